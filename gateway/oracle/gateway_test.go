// Package oracle implements the Oracle provider gateway.
/*
 * Copyright (c) 2024-2026, CloudEmu Authors. All rights reserved.
 */
package oracle

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

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	initIDs.Do(func() { cmn.InitShortID(17) })
	log := zap.NewNop().Sugar()
	store, err := storage.Open(t.TempDir(), log)
	require.NoError(t, err)
	cfg := &cmn.Config{
		Region:          cmn.DefaultRegion,
		AccountID:       cmn.DefaultAccountID,
		OracleNamespace: "cloudemu",
	}
	srv := httptest.NewServer(New(store, cfg, log).Handler())
	t.Cleanup(func() {
		srv.Close()
		store.Close()
	})
	return srv
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

func TestNamespaceMetadata(t *testing.T) {
	srv := newTestServer(t)

	resp, body := do(t, srv, http.MethodGet, "/n/cloudemu", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, `"cloudemu"`)

	resp, _ = do(t, srv, http.MethodGet, "/n/wrong-namespace", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestObjectStorageLifecycle(t *testing.T) {
	srv := newTestServer(t)

	resp, body := do(t, srv, http.MethodPost, "/n/cloudemu/b", []byte(`{"name":"archive"}`))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, `"archive"`)

	resp, _ = do(t, srv, http.MethodPut, "/n/cloudemu/b/archive/o/reports/2026.csv",
		[]byte("csv,data"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("ETag"))

	resp, body = do(t, srv, http.MethodGet, "/n/cloudemu/b/archive/o/reports/2026.csv", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "csv,data", body)

	resp, body = do(t, srv, http.MethodGet, "/n/cloudemu/b/archive/o", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "reports/2026.csv")

	resp, _ = do(t, srv, http.MethodHead, "/n/cloudemu/b/archive/o/reports/2026.csv", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "8", resp.Header.Get("Content-Length"))

	resp, _ = do(t, srv, http.MethodDelete, "/n/cloudemu/b/archive/o/reports/2026.csv", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = do(t, srv, http.MethodDelete, "/n/cloudemu/b/archive", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestBucketNotEmptyRejected(t *testing.T) {
	srv := newTestServer(t)
	do(t, srv, http.MethodPost, "/n/cloudemu/b", []byte(`{"name":"full"}`))
	do(t, srv, http.MethodPut, "/n/cloudemu/b/full/o/obj", []byte("x"))

	resp, body := do(t, srv, http.MethodDelete, "/n/cloudemu/b/full", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Contains(t, body, `"BucketNotEmpty"`)
}

func TestErrorShape(t *testing.T) {
	srv := newTestServer(t)
	resp, body := do(t, srv, http.MethodGet, "/n/cloudemu/b/ghost", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Contains(t, body, `"code"`)
	require.Contains(t, body, `"message"`)
}
