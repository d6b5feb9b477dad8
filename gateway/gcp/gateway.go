// Package gcp implements the GCP provider gateway: REST path templates
// routed to GCS, Firestore, Pub/Sub and Cloud Billing.
/*
 * Copyright (c) 2024-2026, CloudEmu Authors. All rights reserved.
 */
package gcp

import (
	"net/http"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/cloudemu/cloudemu/cmn"
	"github.com/cloudemu/cloudemu/gateway"
	"github.com/cloudemu/cloudemu/storage"
)

var js = jsoniter.ConfigCompatibleWithStandardLibrary

type Gateway struct {
	store *storage.Store
	cfg   *cmn.Config
	log   *zap.SugaredLogger
}

func New(store *storage.Store, cfg *cmn.Config, log *zap.SugaredLogger) *Gateway {
	return &Gateway{store: store, cfg: cfg, log: log}
}

func (g *Gateway) Provider() string { return storage.ProviderGCP }

func (g *Gateway) Handler() http.Handler {
	return gateway.Handler(g, g.store, g.log)
}

// Dispatch routes by URL template: /storage/v1/... and /upload/storage/v1
// are GCS, /v1/projects/{p}/databases/... is Firestore, topics and
// subscriptions are Pub/Sub, /v1/services is Billing.
func (g *Gateway) Dispatch(req *gateway.Request) *gateway.Response {
	path := strings.TrimPrefix(req.Path, "/v1")
	switch {
	case strings.HasPrefix(req.Path, "/storage/v1/") ||
		strings.HasPrefix(req.Path, "/upload/storage/v1/"):
		if !g.cfg.ServiceEnabled(cmn.SvcGCS) {
			return gcpError(req, "gcs", cmn.NewInvalidRequest("service is not mounted: gcs"))
		}
		return g.gcs(req)
	case strings.HasPrefix(path, "/projects/") && strings.Contains(path, "/databases/"):
		if !g.cfg.ServiceEnabled(cmn.SvcFirestore) {
			return gcpError(req, "firestore", cmn.NewInvalidRequest("service is not mounted: firestore"))
		}
		return g.firestore(req, path)
	case strings.HasPrefix(path, "/projects/") &&
		(strings.Contains(path, "/topics") || strings.Contains(path, "/subscriptions")):
		if !g.cfg.ServiceEnabled(cmn.SvcPubSub) {
			return gcpError(req, "pubsub", cmn.NewInvalidRequest("service is not mounted: pubsub"))
		}
		return g.pubsub(req, path)
	case strings.HasPrefix(path, "/services"):
		if !g.cfg.ServiceEnabled(cmn.SvcBilling) {
			return gcpError(req, "billing", cmn.NewInvalidRequest("service is not mounted: billing"))
		}
		return g.billing(req, path)
	}
	return gcpError(req, "gcp", cmn.NewInvalidRequest("unresolved path: "+req.Path))
}

// gcpStatus maps the taxonomy to google.rpc status strings.
func gcpStatus(e *cmn.Err) string {
	switch e.HTTPStatus() {
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusConflict:
		return "ALREADY_EXISTS"
	case http.StatusBadRequest:
		return "INVALID_ARGUMENT"
	default:
		return "INTERNAL"
	}
}

func gcpError(req *gateway.Request, service string, err error) *gateway.Response {
	e := cmn.AsErr(err)
	resp := gateway.RESTJSONResponse(e.HTTPStatus(), map[string]any{
		"error": map[string]any{
			"code":    e.HTTPStatus(),
			"message": e.Context(),
			"status":  gcpStatus(e),
		},
	})
	resp.Service, resp.ErrorCode = service, gcpStatus(e)
	return resp
}

func gcpOK(service, op string, status int, v any) *gateway.Response {
	if v == nil {
		resp := gateway.NewResponse(status)
		resp.Service, resp.Operation = service, op
		return resp
	}
	resp := gateway.RESTJSONResponse(status, v)
	resp.Service, resp.Operation = service, op
	return resp
}
