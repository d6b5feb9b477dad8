// Package aws implements the AWS provider gateway.
/*
 * Copyright (c) 2024-2026, CloudEmu Authors. All rights reserved.
 */
package aws

import (
	"bytes"
	"io"
	"testing"

	awssdk "github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/stretchr/testify/require"
)

// sdkSession points an unmodified AWS SDK at the gateway. Credentials are
// static throwaways; the emulator accepts requests without verification.
func sdkSession(t *testing.T, endpoint string) *session.Session {
	t.Helper()
	sess, err := session.NewSession(&awssdk.Config{
		Region:           awssdk.String("us-east-1"),
		Endpoint:         awssdk.String(endpoint),
		Credentials:      credentials.NewStaticCredentials("test", "test", ""),
		S3ForcePathStyle: awssdk.Bool(true),
		MaxRetries:       awssdk.Int(0),
	})
	require.NoError(t, err)
	return sess
}

func TestS3SDKCompatibility(t *testing.T) {
	srv, _ := newTestServer(t)
	client := s3.New(sdkSession(t, srv.URL))

	_, err := client.CreateBucket(&s3.CreateBucketInput{
		Bucket: awssdk.String("sdk-bucket"),
	})
	require.NoError(t, err)

	put, err := client.PutObject(&s3.PutObjectInput{
		Bucket: awssdk.String("sdk-bucket"),
		Key:    awssdk.String("greeting.txt"),
		Body:   bytes.NewReader([]byte("hello from the sdk")),
	})
	require.NoError(t, err)
	require.NotEmpty(t, awssdk.StringValue(put.ETag))

	get, err := client.GetObject(&s3.GetObjectInput{
		Bucket: awssdk.String("sdk-bucket"),
		Key:    awssdk.String("greeting.txt"),
	})
	require.NoError(t, err)
	body, err := io.ReadAll(get.Body)
	require.NoError(t, err)
	get.Body.Close()
	require.Equal(t, "hello from the sdk", string(body))
	require.Equal(t, awssdk.StringValue(put.ETag), awssdk.StringValue(get.ETag))

	list, err := client.ListObjectsV2(&s3.ListObjectsV2Input{
		Bucket: awssdk.String("sdk-bucket"),
	})
	require.NoError(t, err)
	require.Len(t, list.Contents, 1)
	require.Equal(t, "greeting.txt", awssdk.StringValue(list.Contents[0].Key))

	_, err = client.DeleteObject(&s3.DeleteObjectInput{
		Bucket: awssdk.String("sdk-bucket"),
		Key:    awssdk.String("greeting.txt"),
	})
	require.NoError(t, err)

	list, err = client.ListObjectsV2(&s3.ListObjectsV2Input{
		Bucket: awssdk.String("sdk-bucket"),
	})
	require.NoError(t, err)
	require.Empty(t, list.Contents)

	_, err = client.DeleteBucket(&s3.DeleteBucketInput{
		Bucket: awssdk.String("sdk-bucket"),
	})
	require.NoError(t, err)
}

func TestS3SDKErrorShape(t *testing.T) {
	srv, _ := newTestServer(t)
	client := s3.New(sdkSession(t, srv.URL))

	_, err := client.GetObject(&s3.GetObjectInput{
		Bucket: awssdk.String("no-such-bucket"),
		Key:    awssdk.String("k"),
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "NoSuchBucket")
}

func TestDynamoDBSDKCompatibility(t *testing.T) {
	srv, _ := newTestServer(t)
	client := dynamodb.New(sdkSession(t, srv.URL))

	_, err := client.CreateTable(&dynamodb.CreateTableInput{
		TableName: awssdk.String("sdk-users"),
		KeySchema: []*dynamodb.KeySchemaElement{
			{AttributeName: awssdk.String("userId"), KeyType: awssdk.String("HASH")},
		},
		AttributeDefinitions: []*dynamodb.AttributeDefinition{
			{AttributeName: awssdk.String("userId"), AttributeType: awssdk.String("S")},
		},
	})
	require.NoError(t, err)

	_, err = client.PutItem(&dynamodb.PutItemInput{
		TableName: awssdk.String("sdk-users"),
		Item: map[string]*dynamodb.AttributeValue{
			"userId": {S: awssdk.String("u1")},
			"name":   {S: awssdk.String("Alice")},
		},
	})
	require.NoError(t, err)

	got, err := client.GetItem(&dynamodb.GetItemInput{
		TableName: awssdk.String("sdk-users"),
		Key: map[string]*dynamodb.AttributeValue{
			"userId": {S: awssdk.String("u1")},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "Alice", awssdk.StringValue(got.Item["name"].S))

	tables, err := client.ListTables(&dynamodb.ListTablesInput{})
	require.NoError(t, err)
	require.Len(t, tables.TableNames, 1)
}
