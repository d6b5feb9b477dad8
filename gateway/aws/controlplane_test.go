// Package aws implements the AWS provider gateway.
/*
 * Copyright (c) 2024-2026, CloudEmu Authors. All rights reserved.
 */
package aws

import (
	"encoding/base64"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDynamoDBQueryAndScan(t *testing.T) {
	srv, _ := newTestServer(t)

	status, out := rpc(t, srv, "DynamoDB_20120810.CreateTable", map[string]any{
		"TableName": "users",
		"KeySchema": []map[string]string{{"AttributeName": "userId", "KeyType": "HASH"}},
	})
	require.Equal(t, http.StatusOK, status)
	desc := out["TableDescription"].(map[string]any)
	require.Equal(t, "users", desc["TableName"])
	require.Contains(t, desc["TableArn"], "arn:aws:dynamodb:")

	for _, item := range []map[string]any{
		{"userId": map[string]string{"S": "u1"}, "name": map[string]string{"S": "A"}},
		{"userId": map[string]string{"S": "u1"}, "name": map[string]string{"S": "A2"}},
		{"userId": map[string]string{"S": "u2"}, "name": map[string]string{"S": "B"}},
	} {
		status, _ = rpc(t, srv, "DynamoDB_20120810.PutItem", map[string]any{
			"TableName": "users", "Item": item,
		})
		require.Equal(t, http.StatusOK, status)
	}

	// u1 is the partition key; last write wins.
	status, out = rpc(t, srv, "DynamoDB_20120810.Query", map[string]any{
		"TableName":                 "users",
		"KeyConditionExpression":    "userId = :p",
		"ExpressionAttributeValues": map[string]any{":p": map[string]string{"S": "u1"}},
	})
	require.Equal(t, http.StatusOK, status)
	require.EqualValues(t, 1, out["Count"])
	items := out["Items"].([]any)
	first := items[0].(map[string]any)["name"].(map[string]any)
	require.Equal(t, "A2", first["S"])

	status, out = rpc(t, srv, "DynamoDB_20120810.Scan", map[string]any{"TableName": "users"})
	require.Equal(t, http.StatusOK, status)
	require.EqualValues(t, 2, out["Count"])
}

func TestDynamoDBGetItemAndErrors(t *testing.T) {
	srv, _ := newTestServer(t)
	rpc(t, srv, "DynamoDB_20120810.CreateTable", map[string]any{
		"TableName": "t",
		"KeySchema": []map[string]string{{"AttributeName": "pk", "KeyType": "HASH"}},
	})
	rpc(t, srv, "DynamoDB_20120810.PutItem", map[string]any{
		"TableName": "t", "Item": map[string]any{"pk": map[string]string{"S": "x"}},
	})

	status, out := rpc(t, srv, "DynamoDB_20120810.GetItem", map[string]any{
		"TableName": "t", "Key": map[string]any{"pk": map[string]string{"S": "x"}},
	})
	require.Equal(t, http.StatusOK, status)
	require.NotNil(t, out["Item"])

	// Missing item is an empty body, not an error.
	status, out = rpc(t, srv, "DynamoDB_20120810.GetItem", map[string]any{
		"TableName": "t", "Key": map[string]any{"pk": map[string]string{"S": "ghost"}},
	})
	require.Equal(t, http.StatusOK, status)
	require.Nil(t, out["Item"])

	// Unknown table carries the control-plane error shape.
	status, out = rpc(t, srv, "DynamoDB_20120810.GetItem", map[string]any{
		"TableName": "ghost", "Key": map[string]any{"pk": map[string]string{"S": "x"}},
	})
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, "ResourceNotFoundException", out["__type"])
	require.NotEmpty(t, out["message"])
}

func TestSQSLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)

	status, out := rpc(t, srv, "AmazonSQS.CreateQueue", map[string]any{"QueueName": "q"})
	require.Equal(t, http.StatusOK, status)
	queueURL := out["QueueUrl"].(string)
	require.Contains(t, queueURL, "/q")

	status, out = rpc(t, srv, "AmazonSQS.SendMessage", map[string]any{
		"QueueUrl": queueURL, "MessageBody": "hello",
	})
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, out["MessageId"])
	require.NotEmpty(t, out["MD5OfMessageBody"])

	status, out = rpc(t, srv, "AmazonSQS.ReceiveMessage", map[string]any{
		"QueueUrl": queueURL, "MaxNumberOfMessages": 10,
	})
	require.Equal(t, http.StatusOK, status)
	msgs := out["Messages"].([]any)
	require.Len(t, msgs, 1)
	msg := msgs[0].(map[string]any)
	require.Equal(t, "hello", msg["Body"])
	handle := msg["ReceiptHandle"].(string)
	require.NotEmpty(t, handle)

	status, _ = rpc(t, srv, "AmazonSQS.DeleteMessage", map[string]any{
		"QueueUrl": queueURL, "ReceiptHandle": handle,
	})
	require.Equal(t, http.StatusOK, status)

	status, out = rpc(t, srv, "AmazonSQS.ReceiveMessage", map[string]any{"QueueUrl": queueURL})
	require.Equal(t, http.StatusOK, status)
	require.Empty(t, out["Messages"])

	status, out = rpc(t, srv, "AmazonSQS.GetQueueAttributes", map[string]any{
		"QueueUrl": queueURL,
	})
	require.Equal(t, http.StatusOK, status)
	attrs := out["Attributes"].(map[string]any)
	require.Equal(t, "0", attrs["ApproximateNumberOfMessages"])
}

func TestSNSToSQSBridge(t *testing.T) {
	srv, _ := newTestServer(t)

	status, out := query(t, srv, url.Values{
		"Action": []string{"CreateTopic"}, "Name": []string{"t"},
	})
	require.Equal(t, http.StatusOK, status)
	createResp := out["CreateTopicResponse"].(map[string]any)
	topicARN := createResp["CreateTopicResult"].(map[string]any)["TopicArn"].(string)
	require.Contains(t, topicARN, "arn:aws:sns:")

	_, qout := rpc(t, srv, "AmazonSQS.CreateQueue", map[string]any{"QueueName": "q"})
	queueURL := qout["QueueUrl"].(string)

	status, _ = query(t, srv, url.Values{
		"Action":   []string{"Subscribe"},
		"TopicArn": []string{topicARN},
		"Protocol": []string{"sqs"},
		"Endpoint": []string{"arn:aws:sqs:us-east-1:000000000000:q"},
	})
	require.Equal(t, http.StatusOK, status)

	status, out = query(t, srv, url.Values{
		"Action":   []string{"Publish"},
		"TopicArn": []string{topicARN},
		"Message":  []string{"hi"},
	})
	require.Equal(t, http.StatusOK, status)
	pubResp := out["PublishResponse"].(map[string]any)
	messageID := pubResp["PublishResult"].(map[string]any)["MessageId"].(string)
	require.NotEmpty(t, messageID)

	_, rout := rpc(t, srv, "AmazonSQS.ReceiveMessage", map[string]any{"QueueUrl": queueURL})
	msgs := rout["Messages"].([]any)
	require.Len(t, msgs, 1)
	body := msgs[0].(map[string]any)["Body"].(string)
	envelope := make(map[string]any)
	require.NoError(t, js.Unmarshal([]byte(body), &envelope))
	require.Equal(t, "hi", envelope["Message"])
	require.Equal(t, topicARN, envelope["TopicArn"])
	require.Equal(t, messageID, envelope["MessageId"])
	require.NotEmpty(t, envelope["Timestamp"])
}

func TestSNSErrorEnvelope(t *testing.T) {
	srv, _ := newTestServer(t)
	status, out := query(t, srv, url.Values{
		"Action":   []string{"Publish"},
		"TopicArn": []string{"arn:aws:sns:us-east-1:000000000000:ghost"},
		"Message":  []string{"m"},
	})
	require.Equal(t, http.StatusNotFound, status)
	errObj := out["Error"].(map[string]any)
	require.NotEmpty(t, errObj["Code"])
	require.NotEmpty(t, errObj["Message"])
}

func TestEventBridgeRuleAndTargets(t *testing.T) {
	srv, _ := newTestServer(t)

	status, _ := rpc(t, srv, "AWSEvents.CreateEventBus", map[string]any{"Name": "default"})
	require.Equal(t, http.StatusOK, status)

	status, out := rpc(t, srv, "AWSEvents.PutRule", map[string]any{
		"Name": "r", "EventBusName": "default",
		"EventPattern": `{"source":["aws.ec2"]}`,
	})
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, out["RuleArn"], "arn:aws:events:")

	status, _ = rpc(t, srv, "AWSEvents.PutTargets", map[string]any{
		"Rule": "r", "EventBusName": "default",
		"Targets": []map[string]string{
			{"Id": "t1", "Arn": "arn:aws:lambda:us-east-1:000000000000:function:my-func"},
		},
	})
	require.Equal(t, http.StatusOK, status)

	status, out = rpc(t, srv, "AWSEvents.ListTargetsByRule", map[string]any{
		"Rule": "r", "EventBusName": "default",
	})
	require.Equal(t, http.StatusOK, status)
	targets := out["Targets"].([]any)
	require.Len(t, targets, 1)
	require.Equal(t, "t1", targets[0].(map[string]any)["Id"])

	status, out = rpc(t, srv, "AWSEvents.PutEvents", map[string]any{
		"Entries": []map[string]any{
			{"Source": "aws.ec2", "DetailType": "state-change", "Detail": "{}"},
		},
	})
	require.Equal(t, http.StatusOK, status)
	entries := out["Entries"].([]any)
	require.Len(t, entries, 1)
	require.NotEmpty(t, entries[0].(map[string]any)["EventId"])
}

func TestStepFunctionsSynchronousInterpret(t *testing.T) {
	srv, _ := newTestServer(t)

	status, out := rpc(t, srv, "AWSStepFunctions.CreateStateMachine", map[string]any{
		"name":       "m",
		"definition": `{"StartAt":"Pass","States":{"Pass":{"Type":"Pass","End":true}}}`,
		"roleArn":    "arn:aws:iam::000000000000:role/sfn",
	})
	require.Equal(t, http.StatusOK, status)
	machineARN := out["stateMachineArn"].(string)

	status, out = rpc(t, srv, "AWSStepFunctions.StartExecution", map[string]any{
		"stateMachineArn": machineARN, "name": "e1", "input": "{}",
	})
	require.Equal(t, http.StatusOK, status)
	execARN := out["executionArn"].(string)

	status, out = rpc(t, srv, "AWSStepFunctions.DescribeExecution", map[string]any{
		"executionArn": execARN,
	})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "SUCCEEDED", out["status"])
	require.NotEmpty(t, out["stopDate"])

	// An invalid definition is rejected at create time.
	status, out = rpc(t, srv, "AWSStepFunctions.CreateStateMachine", map[string]any{
		"name": "bad", "definition": `{"States":{}}`, "roleArn": "r",
	})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "InvalidArgument", out["__type"])
}

func TestKMSEncryptDecryptOverHTTP(t *testing.T) {
	srv, _ := newTestServer(t)

	status, out := rpc(t, srv, "TrentService.CreateKey", map[string]any{
		"Description": "test",
	})
	require.Equal(t, http.StatusOK, status)
	keyID := out["KeyMetadata"].(map[string]any)["KeyId"].(string)

	plaintext := base64.StdEncoding.EncodeToString([]byte("secret"))
	status, out = rpc(t, srv, "TrentService.Encrypt", map[string]any{
		"KeyId": keyID, "Plaintext": plaintext,
	})
	require.Equal(t, http.StatusOK, status)
	blob := out["CiphertextBlob"].(string)

	status, out = rpc(t, srv, "TrentService.Decrypt", map[string]any{
		"CiphertextBlob": blob,
	})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, plaintext, out["Plaintext"])
}

func TestSecretsManagerLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)

	status, out := rpc(t, srv, "secretsmanager.CreateSecret", map[string]any{
		"Name": "db-pass", "SecretString": "v1",
	})
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, out["ARN"], "arn:aws:secretsmanager:")

	status, _ = rpc(t, srv, "secretsmanager.PutSecretValue", map[string]any{
		"SecretId": "db-pass", "SecretString": "v2",
	})
	require.Equal(t, http.StatusOK, status)

	status, out = rpc(t, srv, "secretsmanager.GetSecretValue", map[string]any{
		"SecretId": "db-pass",
	})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "v2", out["SecretString"])

	status, _ = rpc(t, srv, "secretsmanager.DeleteSecret", map[string]any{
		"SecretId": "db-pass",
	})
	require.Equal(t, http.StatusOK, status)

	status, out = rpc(t, srv, "secretsmanager.GetSecretValue", map[string]any{
		"SecretId": "db-pass",
	})
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, "ResourceNotFoundException", out["__type"])

	status, _ = rpc(t, srv, "secretsmanager.RestoreSecret", map[string]any{
		"SecretId": "db-pass",
	})
	require.Equal(t, http.StatusOK, status)
}

func TestCognitoAuthFlow(t *testing.T) {
	srv, _ := newTestServer(t)

	status, out := rpc(t, srv, "AWSCognitoIdentityProviderService.CreateUserPool",
		map[string]any{"PoolName": "app"})
	require.Equal(t, http.StatusOK, status)
	poolID := out["UserPool"].(map[string]any)["Id"].(string)

	status, _ = rpc(t, srv, "AWSCognitoIdentityProviderService.AdminCreateUser",
		map[string]any{"UserPoolId": poolID, "Username": "alice",
			"TemporaryPassword": "Temp123!"})
	require.Equal(t, http.StatusOK, status)

	status, out = rpc(t, srv, "AWSCognitoIdentityProviderService.InitiateAuth",
		map[string]any{"UserPoolId": poolID, "AuthFlow": "USER_PASSWORD_AUTH",
			"AuthParameters": map[string]string{
				"USERNAME": "alice", "PASSWORD": "Temp123!",
			}})
	require.Equal(t, http.StatusOK, status)
	authResult := out["AuthenticationResult"].(map[string]any)
	idToken := authResult["IdToken"].(string)
	// A JWT: three dot-separated base64 sections.
	require.Len(t, strings.Split(idToken, "."), 3)

	// Wrong password is a caller fault.
	status, _ = rpc(t, srv, "AWSCognitoIdentityProviderService.InitiateAuth",
		map[string]any{"UserPoolId": poolID,
			"AuthParameters": map[string]string{
				"USERNAME": "alice", "PASSWORD": "wrong",
			}})
	require.Equal(t, http.StatusBadRequest, status)
}

func TestCloudWatchAndLogs(t *testing.T) {
	srv, _ := newTestServer(t)

	status, _ := rpc(t, srv, "Monitoring.PutMetricData", map[string]any{
		"Namespace": "App",
		"MetricData": []map[string]any{
			{"MetricName": "Latency", "Value": 12.5, "Unit": "Milliseconds"},
		},
	})
	require.Equal(t, http.StatusOK, status)

	status, out := rpc(t, srv, "Monitoring.ListMetrics", map[string]any{"Namespace": "App"})
	require.Equal(t, http.StatusOK, status)
	require.Len(t, out["Metrics"].([]any), 1)

	status, _ = rpc(t, srv, "Logs_20140530.CreateLogGroup", map[string]any{
		"logGroupName": "app",
	})
	require.Equal(t, http.StatusOK, status)
	status, _ = rpc(t, srv, "Logs_20140530.CreateLogStream", map[string]any{
		"logGroupName": "app", "logStreamName": "web",
	})
	require.Equal(t, http.StatusOK, status)
	status, _ = rpc(t, srv, "Logs_20140530.PutLogEvents", map[string]any{
		"logGroupName": "app", "logStreamName": "web",
		"logEvents": []map[string]any{
			{"timestamp": 1000, "message": "hello"},
		},
	})
	require.Equal(t, http.StatusOK, status)

	status, out = rpc(t, srv, "Logs_20140530.GetLogEvents", map[string]any{
		"logGroupName": "app", "logStreamName": "web",
	})
	require.Equal(t, http.StatusOK, status)
	events := out["events"].([]any)
	require.Len(t, events, 1)
	require.Equal(t, "hello", events[0].(map[string]any)["message"])
}

func TestPricingSeededCatalog(t *testing.T) {
	srv, _ := newTestServer(t)

	status, out := rpc(t, srv, "AWSPriceListService.DescribeServices", map[string]any{})
	require.Equal(t, http.StatusOK, status)
	require.Len(t, out["Services"].([]any), 2)

	status, out = rpc(t, srv, "AWSPriceListService.GetProducts", map[string]any{
		"ServiceCode": "AmazonEC2",
		"Filters": []map[string]string{
			{"Field": "instanceType", "Value": "t3.micro"},
		},
	})
	require.Equal(t, http.StatusOK, status)
	priceList := out["PriceList"].([]any)
	require.Len(t, priceList, 1)
	require.Contains(t, priceList[0].(string), "t3.micro")
}
