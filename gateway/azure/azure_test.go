// Package azure implements the Azure provider gateway.
/*
 * Copyright (c) 2024-2026, CloudEmu Authors. All rights reserved.
 */
package azure

import (
	"bytes"
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
	initIDs.Do(func() { cmn.InitShortID(11) })
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

func TestBlobContainerAndBlobLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, _ := do(t, srv, http.MethodPut, "/c?restype=container", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = do(t, srv, http.MethodPut, "/c/dir/blob.txt", []byte("blob data"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("ETag"))

	resp, body := do(t, srv, http.MethodGet, "/c/dir/blob.txt", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "blob data", body)
	require.Equal(t, "BlockBlob", resp.Header.Get("x-ms-blob-type"))

	_, listing := do(t, srv, http.MethodGet, "/c?restype=container&comp=list", nil)
	require.Contains(t, listing, "<EnumerationResults>")
	require.Contains(t, listing, "<Name>dir/blob.txt</Name>")

	_, containers := do(t, srv, http.MethodGet, "/?comp=list", nil)
	require.Contains(t, containers, "<Name>c</Name>")

	resp, _ = do(t, srv, http.MethodDelete, "/c/dir/blob.txt", nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp, _ = do(t, srv, http.MethodDelete, "/c?restype=container", nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
}

func TestBlobAccountSegmentIsStripped(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, _ := do(t, srv, http.MethodPut, "/devstoreaccount1/c?restype=container", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = do(t, srv, http.MethodPut, "/devstoreaccount1/c/b", []byte("x"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// The same container is visible without the account prefix.
	resp, body := do(t, srv, http.MethodGet, "/c/b", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "x", body)
}

func TestBlobErrorShape(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, body := do(t, srv, http.MethodGet, "/ghost/blob", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Contains(t, body, "<Error>")
	require.Contains(t, body, "<Code>ContainerNotFound</Code>")
}

func TestCosmosDatabaseCollectionDocument(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := do(t, srv, http.MethodPost, "/dbs", []byte(`{"id":"appdb"}`))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Contains(t, body, `"_rid"`)

	resp, _ = do(t, srv, http.MethodPost, "/dbs/appdb/colls", []byte(`{"id":"users"}`))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = do(t, srv, http.MethodPost, "/dbs/appdb/colls/users/docs",
		[]byte(`{"id":"u1","name":"Alice"}`))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body = do(t, srv, http.MethodGet, "/dbs/appdb/colls/users/docs", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, `"Documents"`)
	require.Contains(t, body, `"_count":1`)
	require.Contains(t, body, "Alice")

	resp, body = do(t, srv, http.MethodGet, "/dbs/appdb/colls/users/docs/u1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "Alice")

	resp, _ = do(t, srv, http.MethodDelete, "/dbs/appdb/colls/users/docs/u1", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	_, body = do(t, srv, http.MethodGet, "/dbs", nil)
	require.Contains(t, body, `"Databases"`)
	require.Contains(t, body, "appdb")
}

func TestKeyVaultSecretLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := do(t, srv, http.MethodPut, "/secrets/db-pass",
		[]byte(`{"value":"hunter2"}`))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "hunter2")

	// Setting again adds a version; reads resolve the newest.
	do(t, srv, http.MethodPut, "/secrets/db-pass", []byte(`{"value":"hunter3"}`))
	resp, body = do(t, srv, http.MethodGet, "/secrets/db-pass", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "hunter3")

	_, listing := do(t, srv, http.MethodGet, "/secrets", nil)
	require.Contains(t, listing, "db-pass")

	resp, _ = do(t, srv, http.MethodDelete, "/secrets/db-pass", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = do(t, srv, http.MethodGet, "/secrets/db-pass", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Contains(t, body, `"error"`)
}

func TestKeyVaultKeys(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := do(t, srv, http.MethodPost, "/keys/signer/create", []byte(`{"kty":"RSA"}`))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, `"kid"`)

	_, listing := do(t, srv, http.MethodGet, "/keys", nil)
	require.Contains(t, listing, `"kid"`)
}

func TestServiceBusQueueFlow(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, _ := do(t, srv, http.MethodPut, "/queue/jobs", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = do(t, srv, http.MethodPost, "/queue/jobs/messages", []byte("job-1"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// Peek-lock, then complete with the lock token.
	resp, body := do(t, srv, http.MethodPost, "/queue/jobs/messages/head", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, "job-1", body)
	broker := resp.Header.Get("BrokerProperties")
	require.Contains(t, broker, "LockToken")

	props := make(map[string]any)
	require.NoError(t, js.Unmarshal([]byte(broker), &props))
	lockToken := props["LockToken"].(string)
	messageID := props["MessageId"].(string)

	resp, _ = do(t, srv, http.MethodDelete,
		"/queue/jobs/messages/"+messageID+"/"+lockToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Queue drained.
	resp, _ = do(t, srv, http.MethodPost, "/queue/jobs/messages/head", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestServiceBusReceiveAndDelete(t *testing.T) {
	srv, _ := newTestServer(t)
	do(t, srv, http.MethodPut, "/queue/q", nil)
	do(t, srv, http.MethodPost, "/queue/q/messages", []byte("once"))

	resp, body := do(t, srv, http.MethodDelete, "/queue/q/messages/head", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "once", body)

	resp, _ = do(t, srv, http.MethodDelete, "/queue/q/messages/head", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
}
