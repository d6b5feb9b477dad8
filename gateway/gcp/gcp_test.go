// Package gcp implements the GCP provider gateway.
/*
 * Copyright (c) 2024-2026, CloudEmu Authors. All rights reserved.
 */
package gcp

import (
	"bytes"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cloudemu/cloudemu/cmn"
	"github.com/cloudemu/cloudemu/storage"
)

var initIDs sync.Once

func newTestServer(t *testing.T) (*httptest.Server, *storage.Store) {
	t.Helper()
	initIDs.Do(func() { cmn.InitShortID(13) })
	log := zap.NewNop().Sugar()
	store, err := storage.Open(t.TempDir(), log)
	require.NoError(t, err)
	cfg := &cmn.Config{Region: cmn.DefaultRegion, AccountID: cmn.DefaultAccountID}
	srv := httptest.NewServer(New(store, cfg, log).Handler())
	t.Cleanup(func() {
		srv.Close()
		store.Close()
	})
	return srv, store
}

func do(t *testing.T, srv *httptest.Server, method, path string, body []byte) (*http.Response, string) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, srv.URL+path, rd)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(raw)
}

func TestGCSBucketAndObjectFlow(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := do(t, srv, http.MethodPost, "/storage/v1/b?project=p",
		[]byte(`{"name":"media"}`))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, `"storage#bucket"`)

	resp, body = do(t, srv, http.MethodPost,
		"/upload/storage/v1/b/media/o?uploadType=media&name=pic.png", []byte("png-bytes"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, `"pic.png"`)

	resp, body = do(t, srv, http.MethodGet, "/storage/v1/b/media/o/pic.png?alt=media", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "png-bytes", body)

	resp, body = do(t, srv, http.MethodGet, "/storage/v1/b/media/o", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, `"storage#objects"`)
	require.Contains(t, body, "pic.png")

	resp, _ = do(t, srv, http.MethodDelete, "/storage/v1/b/media/o/pic.png", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = do(t, srv, http.MethodDelete, "/storage/v1/b/media", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestGCSErrorShape(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, body := do(t, srv, http.MethodGet, "/storage/v1/b/ghost", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Contains(t, body, `"NOT_FOUND"`)
	require.Contains(t, body, `"error"`)
}

func TestFirestoreDocumentLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)
	base := "/v1/projects/p/databases/(default)/documents/users"

	resp, body := do(t, srv, http.MethodPost, base+"?documentId=alice",
		[]byte(`{"fields":{"name":{"stringValue":"Alice"}}}`))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "projects/p/databases/(default)/documents/users/alice")
	require.Contains(t, body, "stringValue")

	resp, body = do(t, srv, http.MethodGet, base+"/alice", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "Alice")

	resp, body = do(t, srv, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, `"documents"`)

	resp, _ = do(t, srv, http.MethodPatch, base+"/alice",
		[]byte(`{"fields":{"name":{"stringValue":"Alicia"}}}`))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_, body = do(t, srv, http.MethodGet, base+"/alice", nil)
	require.Contains(t, body, "Alicia")

	resp, _ = do(t, srv, http.MethodDelete, base+"/alice", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = do(t, srv, http.MethodGet, base+"/alice", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPubSubPublishPullAcknowledge(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, _ := do(t, srv, http.MethodPut, "/v1/projects/p/topics/events", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = do(t, srv, http.MethodPut, "/v1/projects/p/subscriptions/worker",
		[]byte(`{"topic":"projects/p/topics/events"}`))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data := base64.StdEncoding.EncodeToString([]byte("payload"))
	resp, body := do(t, srv, http.MethodPost, "/v1/projects/p/topics/events:publish",
		[]byte(`{"messages":[{"data":"`+data+`"}]}`))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "messageIds")

	resp, body = do(t, srv, http.MethodPost, "/v1/projects/p/subscriptions/worker:pull",
		[]byte(`{"maxMessages":10}`))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, data)

	pull := make(map[string]any)
	require.NoError(t, js.Unmarshal([]byte(body), &pull))
	received := pull["receivedMessages"].([]any)
	require.Len(t, received, 1)
	ackID := received[0].(map[string]any)["ackId"].(string)

	resp, _ = do(t, srv, http.MethodPost, "/v1/projects/p/subscriptions/worker:acknowledge",
		[]byte(`{"ackIds":["`+ackID+`"]}`))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, body = do(t, srv, http.MethodPost, "/v1/projects/p/subscriptions/worker:pull",
		[]byte(`{"maxMessages":10}`))
	require.NotContains(t, body, data)
}

func TestPubSubSubscriptionRequiresTopic(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, _ := do(t, srv, http.MethodPut, "/v1/projects/p/subscriptions/orphan",
		[]byte(`{"topic":"projects/p/topics/ghost"}`))
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBillingCatalog(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := do(t, srv, http.MethodGet, "/v1/services", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "Compute Engine")

	resp, body = do(t, srv, http.MethodGet, "/v1/services/6F81-5844-456A/skus", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "pricingInfo")
	require.Contains(t, body, "pricePerUnit")
}
