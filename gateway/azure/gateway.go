// Package azure implements the Azure provider gateway: path-routed
// dispatch to Cosmos, Key Vault, Service Bus and (by default) Blob.
/*
 * Copyright (c) 2024-2026, CloudEmu Authors. All rights reserved.
 */
package azure

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

func (g *Gateway) Provider() string { return storage.ProviderAzure }

func (g *Gateway) Handler() http.Handler {
	return gateway.Handler(g, g.store, g.log)
}

// Dispatch routes by path shape: /dbs/* is Cosmos, /secrets/* and /keys/*
// are Key Vault, /queue/*, /topic/*, /$Resources/* and anything carrying
// /messages is Service Bus, /api/* and /admin/functions/* belong to the
// Functions collaborator (not mounted), everything else is Blob.
func (g *Gateway) Dispatch(req *gateway.Request) *gateway.Response {
	path := req.Path
	switch {
	case path == "/dbs" || strings.HasPrefix(path, "/dbs/"):
		if !g.cfg.ServiceEnabled(cmn.SvcCosmos) {
			return jsonError(req, "cosmos", cmn.NewInvalidRequest("service is not mounted: cosmos"))
		}
		return g.cosmos(req)
	case strings.HasPrefix(path, "/secrets") || strings.HasPrefix(path, "/keys"):
		if !g.cfg.ServiceEnabled(cmn.SvcKeyVault) {
			return jsonError(req, "keyvault", cmn.NewInvalidRequest("service is not mounted: keyvault"))
		}
		return g.keyvault(req)
	case strings.HasPrefix(path, "/queue/") || strings.HasPrefix(path, "/topic/") ||
		strings.HasPrefix(path, "/$Resources/") || strings.Contains(path, "/messages"):
		if !g.cfg.ServiceEnabled(cmn.SvcServiceBus) {
			return jsonError(req, "servicebus", cmn.NewInvalidRequest("service is not mounted: servicebus"))
		}
		return g.servicebus(req)
	case strings.HasPrefix(path, "/api/") || strings.HasPrefix(path, "/admin/functions/"):
		return jsonError(req, "functions",
			cmn.NewInvalidRequest("unresolved path (Functions runtime is not mounted): "+path))
	default:
		if !g.cfg.ServiceEnabled(cmn.SvcBlob) {
			return jsonError(req, "blob", cmn.NewInvalidRequest("service is not mounted: blob"))
		}
		return g.blob(req)
	}
}

// jsonError is the REST/JSON error shape shared by Cosmos, Key Vault and
// Service Bus.
func jsonError(req *gateway.Request, service string, err error) *gateway.Response {
	e := cmn.AsErr(err)
	resp := gateway.RESTJSONResponse(e.HTTPStatus(), map[string]any{
		"error": map[string]string{
			"code":    e.AWSCode(),
			"message": e.Context(),
		},
	})
	resp.Service, resp.ErrorCode = service, e.AWSCode()
	return resp
}

func restOK(service, op string, status int, v any) *gateway.Response {
	if v == nil {
		resp := gateway.NewResponse(status)
		resp.Service, resp.Operation = service, op
		return resp
	}
	resp := gateway.RESTJSONResponse(status, v)
	resp.Service, resp.Operation = service, op
	return resp
}
