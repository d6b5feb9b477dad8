// Package aws implements the AWS provider gateway.
/*
 * Copyright (c) 2024-2026, CloudEmu Authors. All rights reserved.
 */
package aws

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestS3CrudWithVersioning(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := httpDo(t, srv, http.MethodPut, "/b", nil, nil)
	readAll(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = httpDo(t, srv, http.MethodPut, "/b?versioning",
		[]byte(`<VersioningConfiguration><Status>Enabled</Status></VersioningConfiguration>`), nil)
	readAll(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = httpDo(t, srv, http.MethodPut, "/b/k", []byte("v1"), nil)
	readAll(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	etag1 := resp.Header.Get("ETag")
	require.NotEmpty(t, etag1)

	resp = httpDo(t, srv, http.MethodPut, "/b/k", []byte("v2"), nil)
	readAll(t, resp)
	etag2 := resp.Header.Get("ETag")
	require.NotEqual(t, etag1, etag2)

	body := readAll(t, httpDo(t, srv, http.MethodGet, "/b?list-type=2", nil, nil))
	require.Contains(t, body, "<KeyCount>1</KeyCount>")
	require.Contains(t, body, "<Key>k</Key>")
	require.Contains(t, body, "<Size>2</Size>")
	require.Contains(t, body, strings.Trim(etag2, `"`))

	resp = httpDo(t, srv, http.MethodGet, "/b/k", nil, nil)
	got := readAll(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "v2", got)
	require.Equal(t, etag2, resp.Header.Get("ETag"))

	versions := readAll(t, httpDo(t, srv, http.MethodGet, "/b?versions", nil, nil))
	require.Contains(t, versions, "<Key>k</Key>")
	require.Equal(t, 2, strings.Count(versions, "<VersionId>"))
}

func TestS3CreateBucketTwice(t *testing.T) {
	srv, _ := newTestServer(t)
	readAll(t, httpDo(t, srv, http.MethodPut, "/dup", nil, nil))

	resp := httpDo(t, srv, http.MethodPut, "/dup", nil, nil)
	body := readAll(t, resp)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Contains(t, body, "<Code>BucketAlreadyOwnedByYou</Code>")
	require.Contains(t, body, "<RequestId>")
}

func TestS3GetBucketLocationUSEast1IsEmpty(t *testing.T) {
	srv, _ := newTestServer(t)
	readAll(t, httpDo(t, srv, http.MethodPut, "/b", nil, nil))

	body := readAll(t, httpDo(t, srv, http.MethodGet, "/b?location", nil, nil))
	require.Contains(t, body, "LocationConstraint")
	require.NotContains(t, body, ">us-east-1<")
}

func TestS3VersioningDisabledRendersEmpty(t *testing.T) {
	srv, _ := newTestServer(t)
	readAll(t, httpDo(t, srv, http.MethodPut, "/b", nil, nil))

	body := readAll(t, httpDo(t, srv, http.MethodGet, "/b?versioning", nil, nil))
	require.Contains(t, body, "VersioningConfiguration")
	require.NotContains(t, body, "<Status>")
}

func TestS3NoSuchBucketAndKey(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := httpDo(t, srv, http.MethodGet, "/ghost/k", nil, nil)
	body := readAll(t, resp)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Contains(t, body, "<Code>NoSuchBucket</Code>")

	readAll(t, httpDo(t, srv, http.MethodPut, "/b", nil, nil))
	resp = httpDo(t, srv, http.MethodGet, "/b/ghost", nil, nil)
	body = readAll(t, resp)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Contains(t, body, "<Code>NoSuchKey</Code>")
}

func TestS3DeleteBucketNotEmpty(t *testing.T) {
	srv, _ := newTestServer(t)
	readAll(t, httpDo(t, srv, http.MethodPut, "/b", nil, nil))
	readAll(t, httpDo(t, srv, http.MethodPut, "/b/k", []byte("v"), nil))

	resp := httpDo(t, srv, http.MethodDelete, "/b", nil, nil)
	body := readAll(t, resp)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Contains(t, body, "<Code>BucketNotEmpty</Code>")
}

func TestS3RangeRequests(t *testing.T) {
	srv, _ := newTestServer(t)
	readAll(t, httpDo(t, srv, http.MethodPut, "/b", nil, nil))
	readAll(t, httpDo(t, srv, http.MethodPut, "/b/k", []byte("0123456789"), nil))

	resp := httpDo(t, srv, http.MethodGet, "/b/k", nil, map[string]string{"Range": "bytes=2-5"})
	body := readAll(t, resp)
	require.Equal(t, http.StatusPartialContent, resp.StatusCode)
	require.Equal(t, "2345", body)

	resp = httpDo(t, srv, http.MethodGet, "/b/k", nil, map[string]string{"Range": "bytes=-3"})
	body = readAll(t, resp)
	require.Equal(t, "789", body)

	// Out-of-range start fails with InvalidRange and 416.
	resp = httpDo(t, srv, http.MethodGet, "/b/k", nil, map[string]string{"Range": "bytes=99-100"})
	body = readAll(t, resp)
	require.Equal(t, http.StatusRequestedRangeNotSatisfiable, resp.StatusCode)
	require.Contains(t, body, "<Code>InvalidRange</Code>")
}

func TestS3DelimiterGrouping(t *testing.T) {
	srv, _ := newTestServer(t)
	readAll(t, httpDo(t, srv, http.MethodPut, "/b", nil, nil))
	for _, k := range []string{"a/x", "a/y", "a/b/z"} {
		readAll(t, httpDo(t, srv, http.MethodPut, "/b/"+k, []byte("v"), nil))
	}

	body := readAll(t, httpDo(t, srv, http.MethodGet, "/b?prefix=a%2F&delimiter=%2F", nil, nil))
	require.Contains(t, body, "<Key>a/x</Key>")
	require.Contains(t, body, "<Key>a/y</Key>")
	require.NotContains(t, body, "<Key>a/b/z</Key>")
	require.Contains(t, body, "<CommonPrefixes><Prefix>a/b/</Prefix></CommonPrefixes>")
}

func TestS3CopyObject(t *testing.T) {
	srv, _ := newTestServer(t)
	readAll(t, httpDo(t, srv, http.MethodPut, "/src", nil, nil))
	readAll(t, httpDo(t, srv, http.MethodPut, "/dst", nil, nil))
	readAll(t, httpDo(t, srv, http.MethodPut, "/src/k", []byte("data"), nil))

	resp := httpDo(t, srv, http.MethodPut, "/dst/k2", nil,
		map[string]string{"x-amz-copy-source": "/src/k"})
	body := readAll(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "<CopyObjectResult>")
	require.Contains(t, body, "<ETag>")

	require.Equal(t, "data", readAll(t, httpDo(t, srv, http.MethodGet, "/dst/k2", nil, nil)))
}

func TestS3Multipart(t *testing.T) {
	srv, _ := newTestServer(t)
	readAll(t, httpDo(t, srv, http.MethodPut, "/b", nil, nil))

	body := readAll(t, httpDo(t, srv, http.MethodPost, "/b/big?uploads", nil, nil))
	require.Contains(t, body, "<UploadId>")
	uploadID := between(body, "<UploadId>", "</UploadId>")
	require.NotEmpty(t, uploadID)

	resp := httpDo(t, srv, http.MethodPut,
		"/b/big?partNumber=1&uploadId="+uploadID, []byte("hello "), nil)
	readAll(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = httpDo(t, srv, http.MethodPut,
		"/b/big?partNumber=2&uploadId="+uploadID, []byte("world"), nil)
	readAll(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	parts := readAll(t, httpDo(t, srv, http.MethodGet, "/b/big?uploadId="+uploadID, nil, nil))
	require.Equal(t, 2, strings.Count(parts, "<PartNumber>"))

	complete := readAll(t, httpDo(t, srv, http.MethodPost, "/b/big?uploadId="+uploadID,
		[]byte(`<CompleteMultipartUpload><Part><PartNumber>1</PartNumber></Part><Part><PartNumber>2</PartNumber></Part></CompleteMultipartUpload>`), nil))
	require.Contains(t, complete, "<CompleteMultipartUploadResult")

	require.Equal(t, "hello world", readAll(t, httpDo(t, srv, http.MethodGet, "/b/big", nil, nil)))
}

func between(s, start, end string) string {
	i := strings.Index(s, start)
	if i < 0 {
		return ""
	}
	rest := s[i+len(start):]
	j := strings.Index(rest, end)
	if j < 0 {
		return ""
	}
	return rest[:j]
}

func TestS3DeleteObjects(t *testing.T) {
	srv, _ := newTestServer(t)
	readAll(t, httpDo(t, srv, http.MethodPut, "/b", nil, nil))
	readAll(t, httpDo(t, srv, http.MethodPut, "/b/k1", []byte("1"), nil))
	readAll(t, httpDo(t, srv, http.MethodPut, "/b/k2", []byte("2"), nil))

	body := readAll(t, httpDo(t, srv, http.MethodPost, "/b?delete",
		[]byte(`<Delete><Object><Key>k1</Key></Object><Object><Key>k2</Key></Object></Delete>`), nil))
	require.Contains(t, body, "<DeleteResult")
	require.Equal(t, 2, strings.Count(body, "<Deleted>"))

	list := readAll(t, httpDo(t, srv, http.MethodGet, "/b?list-type=2", nil, nil))
	require.Contains(t, list, "<KeyCount>0</KeyCount>")
}

func TestS3BucketPolicy(t *testing.T) {
	srv, _ := newTestServer(t)
	readAll(t, httpDo(t, srv, http.MethodPut, "/b", nil, nil))

	resp := httpDo(t, srv, http.MethodGet, "/b?policy", nil, nil)
	body := readAll(t, resp)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Contains(t, body, "<Code>NoSuchBucketPolicy</Code>")

	resp = httpDo(t, srv, http.MethodPut, "/b?policy", []byte(`{"Version":"2012-10-17"}`), nil)
	readAll(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	got := readAll(t, httpDo(t, srv, http.MethodGet, "/b?policy", nil, nil))
	require.Contains(t, got, "2012-10-17")

	// A non-JSON policy is malformed.
	resp = httpDo(t, srv, http.MethodPut, "/b?policy", []byte("not json"), nil)
	body = readAll(t, resp)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Contains(t, body, "<Code>MalformedPolicy</Code>")
}

func TestS3HeadObject(t *testing.T) {
	srv, _ := newTestServer(t)
	readAll(t, httpDo(t, srv, http.MethodPut, "/b", nil, nil))
	readAll(t, httpDo(t, srv, http.MethodPut, "/b/k", []byte("abc"),
		map[string]string{"x-amz-meta-owner": "tests", "Content-Type": "text/plain"}))

	resp := httpDo(t, srv, http.MethodHead, "/b/k", nil, nil)
	readAll(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "3", resp.Header.Get("Content-Length"))
	require.Equal(t, "text/plain", resp.Header.Get("Content-Type"))
	require.Equal(t, "tests", resp.Header.Get("x-amz-meta-owner"))
	require.NotEmpty(t, resp.Header.Get("Last-Modified"))
}

func TestS3IdempotentObjectDelete(t *testing.T) {
	srv, _ := newTestServer(t)
	readAll(t, httpDo(t, srv, http.MethodPut, "/b", nil, nil))

	resp := httpDo(t, srv, http.MethodDelete, "/b/never", nil, nil)
	readAll(t, resp)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
}
