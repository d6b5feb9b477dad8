// Package storage provides the shared persistence layer for the cloud emulator.
/*
 * Copyright (c) 2024-2026, CloudEmu Authors. All rights reserved.
 */
package storage

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cloudemu/cloudemu/cmn"
)

func mkBucket(t *testing.T, s *Store, name string) {
	t.Helper()
	_, err := s.CreateBucket(ProviderAWS, name, "us-east-1", "000000000000")
	require.NoError(t, err)
}

func put(t *testing.T, s *Store, bucket, key, body string) *Object {
	t.Helper()
	o, err := s.PutObject(ProviderAWS, &PutObjectInput{Bucket: bucket, Key: key, Body: []byte(body)})
	require.NoError(t, err)
	return o
}

func TestBucketCreateIsUniquePerProvider(t *testing.T) {
	s := newTestStore(t)
	mkBucket(t, s, "b")

	_, err := s.CreateBucket(ProviderAWS, "b", "us-east-1", "000000000000")
	require.Equal(t, cmn.KindBucketAlreadyExists, cmn.KindOf(err))

	// Same name under another provider namespace is fine.
	_, err = s.CreateBucket(ProviderAzure, "b", "us-east-1", "000000000000")
	require.NoError(t, err)
}

func TestDeleteBucketNotEmpty(t *testing.T) {
	s := newTestStore(t)
	mkBucket(t, s, "b")
	put(t, s, "b", "k", "v")

	err := s.DeleteBucket(ProviderAWS, "b", false)
	require.Equal(t, cmn.KindBucketNotEmpty, cmn.KindOf(err))

	require.NoError(t, s.DeleteBucket(ProviderAWS, "b", true))
	_, err = s.GetBucket(ProviderAWS, "b")
	require.Equal(t, cmn.KindNoSuchBucket, cmn.KindOf(err))
}

func TestPutGetRoundtrip(t *testing.T) {
	s := newTestStore(t)
	mkBucket(t, s, "b")

	in := put(t, s, "b", "k", "payload")
	out, data, err := s.GetObject(ProviderAWS, "b", "k", "")
	require.NoError(t, err)
	require.Equal(t, []byte("payload"), data)
	require.Equal(t, in.ETag, out.ETag)
	require.Equal(t, int64(len("payload")), out.Size)
}

func TestUnversionedPutReplaces(t *testing.T) {
	s := newTestStore(t)
	mkBucket(t, s, "b")
	put(t, s, "b", "k", "v1")
	put(t, s, "b", "k", "v2")

	versions, err := s.ListObjectVersions(ProviderAWS, "b", "")
	require.NoError(t, err)
	require.Len(t, versions, 1)
	require.Equal(t, NullVersionID, versions[0].VersionID)

	_, data, err := s.GetObject(ProviderAWS, "b", "k", "")
	require.NoError(t, err)
	require.Equal(t, []byte("v2"), data)
}

func TestVersioningKeepsAllVersionsWithOneLatest(t *testing.T) {
	s := newTestStore(t)
	mkBucket(t, s, "b")
	require.NoError(t, s.SetBucketVersioning(ProviderAWS, "b", VersioningEnabled))

	o1 := put(t, s, "b", "k", "v1")
	o2 := put(t, s, "b", "k", "v2")
	o3 := put(t, s, "b", "k", "v3")
	require.NotEqual(t, o1.VersionID, o2.VersionID)
	require.NotEqual(t, o2.VersionID, o3.VersionID)

	versions, err := s.ListObjectVersions(ProviderAWS, "b", "")
	require.NoError(t, err)
	require.Len(t, versions, 3)
	latest := 0
	for _, v := range versions {
		if v.IsLatest {
			latest++
			require.Equal(t, o3.VersionID, v.VersionID)
		}
	}
	require.Equal(t, 1, latest)

	// Fetch an old version explicitly.
	_, data, err := s.GetObject(ProviderAWS, "b", "k", o1.VersionID)
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), data)
}

func TestVersionedDeleteWritesMarker(t *testing.T) {
	s := newTestStore(t)
	mkBucket(t, s, "b")
	require.NoError(t, s.SetBucketVersioning(ProviderAWS, "b", VersioningEnabled))
	put(t, s, "b", "k", "v1")

	res, err := s.DeleteObject(ProviderAWS, "b", "k", "")
	require.NoError(t, err)
	require.True(t, res.DeleteMarker)

	_, err = s.GetObjectMeta(ProviderAWS, "b", "k", "")
	require.Equal(t, cmn.KindNoSuchKey, cmn.KindOf(err))

	// Deleting the marker version brings the object back.
	_, err = s.DeleteObject(ProviderAWS, "b", "k", res.VersionID)
	require.NoError(t, err)
	o, err := s.GetObjectMeta(ProviderAWS, "b", "k", "")
	require.NoError(t, err)
	require.True(t, o.IsLatest)
}

func TestDeleteObjectIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	mkBucket(t, s, "b")

	_, err := s.DeleteObject(ProviderAWS, "b", "never-existed", "")
	require.NoError(t, err)
}

func TestListObjectsV2DelimiterGrouping(t *testing.T) {
	s := newTestStore(t)
	mkBucket(t, s, "b")
	for _, k := range []string{"a/x", "a/y", "a/b/z", "other"} {
		put(t, s, "b", k, "v")
	}

	res, err := s.ListObjectsV2(ProviderAWS, &ListObjectsInput{
		Bucket: "b", Prefix: "a/", Delimiter: "/", MaxKeys: -1,
	})
	require.NoError(t, err)
	keys := []string{}
	for _, o := range res.Objects {
		keys = append(keys, o.Key)
	}
	require.Equal(t, []string{"a/x", "a/y"}, keys)
	require.Equal(t, []string{"a/b/"}, res.CommonPrefixes)
	require.False(t, res.IsTruncated)
}

func TestListObjectsV2MaxKeysZero(t *testing.T) {
	s := newTestStore(t)
	mkBucket(t, s, "b")
	put(t, s, "b", "k", "v")

	res, err := s.ListObjectsV2(ProviderAWS, &ListObjectsInput{Bucket: "b", MaxKeys: 0})
	require.NoError(t, err)
	require.Empty(t, res.Objects)
	require.Empty(t, res.NextContinuationToken)
	require.False(t, res.IsTruncated)
}

func TestListObjectsV2Pagination(t *testing.T) {
	s := newTestStore(t)
	mkBucket(t, s, "b")
	for _, k := range []string{"k1", "k2", "k3", "k4", "k5"} {
		put(t, s, "b", k, "v")
	}

	var all []string
	token := ""
	for {
		res, err := s.ListObjectsV2(ProviderAWS, &ListObjectsInput{
			Bucket: "b", MaxKeys: 2, ContinuationToken: token,
		})
		require.NoError(t, err)
		for _, o := range res.Objects {
			all = append(all, o.Key)
		}
		if !res.IsTruncated {
			break
		}
		require.NotEmpty(t, res.NextContinuationToken)
		token = res.NextContinuationToken
	}
	require.Equal(t, []string{"k1", "k2", "k3", "k4", "k5"}, all)
}

func TestCopyObject(t *testing.T) {
	s := newTestStore(t)
	mkBucket(t, s, "src")
	mkBucket(t, s, "dst")
	orig := put(t, s, "src", "k", "data")

	copied, err := s.CopyObject(ProviderAWS, "src", "k", "dst", "k2")
	require.NoError(t, err)
	require.Equal(t, orig.ETag, copied.ETag)

	_, data, err := s.GetObject(ProviderAWS, "dst", "k2", "")
	require.NoError(t, err)
	require.Equal(t, []byte("data"), data)
}

func TestBucketPolicyLifecycle(t *testing.T) {
	s := newTestStore(t)
	mkBucket(t, s, "b")

	_, err := s.GetBucketPolicy(ProviderAWS, "b")
	require.Equal(t, cmn.KindNoSuchBucketPolicy, cmn.KindOf(err))

	require.NoError(t, s.SetBucketPolicy(ProviderAWS, "b", `{"Version":"2012-10-17"}`))
	policy, err := s.GetBucketPolicy(ProviderAWS, "b")
	require.NoError(t, err)
	require.Contains(t, policy, "2012-10-17")

	require.NoError(t, s.DeleteBucketPolicy(ProviderAWS, "b"))
	_, err = s.GetBucketPolicy(ProviderAWS, "b")
	require.Equal(t, cmn.KindNoSuchBucketPolicy, cmn.KindOf(err))
}

func TestMultipartUploadLifecycle(t *testing.T) {
	s := newTestStore(t)
	mkBucket(t, s, "b")

	up, err := s.CreateMultipartUpload(ProviderAWS, "b", "big", map[string]string{"k": "v"})
	require.NoError(t, err)

	_, err = s.UploadPart(up.UploadID, 2, []byte("world"))
	require.NoError(t, err)
	_, err = s.UploadPart(up.UploadID, 1, []byte("hello "))
	require.NoError(t, err)

	obj, err := s.CompleteMultipartUpload(up.UploadID)
	require.NoError(t, err)
	require.Equal(t, int64(len("hello world")), obj.Size)

	_, data, err := s.GetObject(ProviderAWS, "b", "big", "")
	require.NoError(t, err)
	require.Equal(t, []byte("hello world"), data)

	// The upload row is gone.
	_, err = s.ListParts(up.UploadID)
	require.True(t, cmn.IsNotFound(err))
}

func TestMultipartAbort(t *testing.T) {
	s := newTestStore(t)
	mkBucket(t, s, "b")

	up, err := s.CreateMultipartUpload(ProviderAWS, "b", "k", nil)
	require.NoError(t, err)
	_, err = s.UploadPart(up.UploadID, 1, []byte("x"))
	require.NoError(t, err)

	require.NoError(t, s.AbortMultipartUpload(up.UploadID))
	_, err = s.ListParts(up.UploadID)
	require.True(t, cmn.IsNotFound(err))

	ups, err := s.ListMultipartUploads(ProviderAWS, "b")
	require.NoError(t, err)
	require.Empty(t, ups)
}
