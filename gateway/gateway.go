// Package gateway provides the provider-neutral request/response envelope,
// the per-listener middleware (request IDs, metrics, audit log) and the
// HTTP listener runner shared by every provider gateway.
/*
 * Copyright (c) 2024-2026, CloudEmu Authors. All rights reserved.
 */
package gateway

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/cloudemu/cloudemu/cmn"
	"github.com/cloudemu/cloudemu/storage"
)

var js = jsoniter.ConfigCompatibleWithStandardLibrary

type (
	// Request is the parsed, provider-neutral request envelope handed to
	// dispatchers.
	Request struct {
		Method    string
		Path      string
		Query     url.Values
		Header    http.Header
		Body      []byte
		RequestID string
	}

	// Response carries the handler result back through the middleware.
	// Service/Operation feed the audit log; Bucket/Key are set by object
	// handlers when known.
	Response struct {
		Status    int
		Header    http.Header
		Body      []byte
		Service   string
		Operation string
		Bucket    string
		Key       string
		ErrorCode string
	}

	// Dispatcher is a provider gateway's single entry point.
	Dispatcher interface {
		Provider() string
		Dispatch(req *Request) *Response
	}
)

func NewResponse(status int) *Response {
	return &Response{Status: status, Header: make(http.Header)}
}

// JSONResponse marshals v; a marshal failure degrades to 500.
func JSONResponse(status int, v any) *Response {
	r := NewResponse(status)
	r.Header.Set("Content-Type", "application/x-amz-json-1.0")
	body, err := js.Marshal(v)
	if err != nil {
		r.Status = http.StatusInternalServerError
		body = []byte(`{}`)
	}
	r.Body = body
	return r
}

// RESTJSONResponse is JSONResponse with the plain application/json type
// used by the Azure, GCP and Oracle dialects.
func RESTJSONResponse(status int, v any) *Response {
	r := JSONResponse(status, v)
	r.Header.Set("Content-Type", "application/json")
	return r
}

func XMLResponse(status int, body []byte) *Response {
	r := NewResponse(status)
	r.Header.Set("Content-Type", "application/xml")
	r.Body = body
	return r
}

// ParseJSONBody attempts the JSON dialect; on parse failure it
// substitutes an empty object and lets the handler decide whether
// required fields are missing.
func ParseJSONBody(body []byte) map[string]any {
	m := make(map[string]any)
	if len(body) == 0 {
		return m
	}
	if err := js.Unmarshal(body, &m); err != nil {
		return make(map[string]any)
	}
	return m
}

// ParseFormBody parses a form-urlencoded body, tolerating failure.
func ParseFormBody(body []byte) url.Values {
	v, err := url.ParseQuery(string(body))
	if err != nil {
		return url.Values{}
	}
	return v
}

// Str pulls a string field out of a parsed JSON body.
func Str(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// Num pulls a numeric field out of a parsed JSON body.
func Num(m map[string]any, key string) float64 {
	if v, ok := m[key].(float64); ok {
		return v
	}
	return 0
}

// Handler wraps a dispatcher with the cross-cutting middleware: fresh
// request id, metrics, zap request line, audit row. Panics inside a
// request terminate only that request; the listener continues (stdlib
// http recovers per connection).
func Handler(d Dispatcher, store *storage.Store, log *zap.SugaredLogger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "body read failed", http.StatusBadRequest)
			return
		}
		req := &Request{
			Method:    r.Method,
			Path:      r.URL.Path,
			Query:     r.URL.Query(),
			Header:    r.Header,
			Body:      body,
			RequestID: cmn.GenRequestID(),
		}
		resp := d.Dispatch(req)
		if resp == nil {
			resp = NewResponse(http.StatusNotFound)
		}
		if resp.Header == nil {
			resp.Header = make(http.Header)
		}
		resp.Header.Set("x-amz-request-id", req.RequestID)
		resp.Header.Set("x-amzn-RequestId", req.RequestID)
		for k, vals := range resp.Header {
			for _, v := range vals {
				w.Header().Add(k, v)
			}
		}
		if w.Header().Get("Content-Length") == "" {
			w.Header().Set("Content-Length", strconv.Itoa(len(resp.Body)))
		}
		w.WriteHeader(resp.Status)
		if len(resp.Body) > 0 {
			w.Write(resp.Body)
		}

		requestTotal.WithLabelValues(d.Provider(), orUnknown(resp.Service),
			strconv.Itoa(resp.Status)).Inc()
		log.Infow("request",
			"provider", d.Provider(), "method", r.Method, "path", r.URL.Path,
			"service", resp.Service, "op", resp.Operation, "status", resp.Status)
		store.AppendRequestLog(&storage.RequestLogEntry{
			Provider:   d.Provider(),
			Service:    orUnknown(resp.Service),
			Operation:  orUnknown(resp.Operation),
			Bucket:     resp.Bucket,
			Key:        resp.Key,
			StatusCode: resp.Status,
			ErrorCode:  resp.ErrorCode,
			RequestID:  req.RequestID,
			UserAgent:  r.UserAgent(),
			SourceIP:   r.RemoteAddr,
		})
	})
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

// Serve runs one listener until the context is canceled, then drains
// with a short shutdown grace.
func Serve(ctx context.Context, addr string, h http.Handler, log *zap.SugaredLogger) error {
	srv := &http.Server{Addr: addr, Handler: h}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	log.Infow("listening", "addr", addr)
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
