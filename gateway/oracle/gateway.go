// Package oracle implements the Oracle provider gateway: Object Storage
// under /n/{namespace}/b/{bucket}[/o/{objectName}].
/*
 * Copyright (c) 2024-2026, CloudEmu Authors. All rights reserved.
 */
package oracle

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/cloudemu/cloudemu/cmn"
	"github.com/cloudemu/cloudemu/gateway"
	"github.com/cloudemu/cloudemu/storage"
)

type Gateway struct {
	store *storage.Store
	cfg   *cmn.Config
	log   *zap.SugaredLogger
}

func New(store *storage.Store, cfg *cmn.Config, log *zap.SugaredLogger) *Gateway {
	return &Gateway{store: store, cfg: cfg, log: log}
}

func (g *Gateway) Provider() string { return storage.ProviderOracle }

func (g *Gateway) Handler() http.Handler {
	return gateway.Handler(g, g.store, g.log)
}

func oracleError(req *gateway.Request, err error) *gateway.Response {
	e := cmn.AsErr(err)
	resp := gateway.RESTJSONResponse(e.HTTPStatus(), map[string]string{
		"code":    e.AWSCode(),
		"message": e.Context(),
	})
	resp.Service, resp.ErrorCode = "objectstorage", e.AWSCode()
	return resp
}

func oracleOK(op string, status int, v any) *gateway.Response {
	if v == nil {
		resp := gateway.NewResponse(status)
		resp.Service, resp.Operation = "objectstorage", op
		return resp
	}
	resp := gateway.RESTJSONResponse(status, v)
	resp.Service, resp.Operation = "objectstorage", op
	return resp
}

// Dispatch: the presence of /o/ distinguishes object-level from
// bucket-level operations; the verb selects the operation.
func (g *Gateway) Dispatch(req *gateway.Request) *gateway.Response {
	if !g.cfg.ServiceEnabled(cmn.SvcObjectStorage) {
		return oracleError(req, cmn.NewInvalidRequest("service is not mounted: objectstorage"))
	}
	segments := strings.Split(strings.Trim(req.Path, "/"), "/")
	if len(segments) < 2 || segments[0] != "n" {
		return oracleError(req, cmn.NewInvalidRequest("unresolved path: "+req.Path))
	}
	namespace := segments[1]
	if namespace != g.cfg.OracleNamespace {
		return oracleError(req, cmn.NewNotFound("Namespace", namespace))
	}
	rest := segments[2:]

	switch {
	case len(rest) == 0: // /n/{namespace}
		if req.Method == http.MethodGet {
			return oracleOK("GetNamespace", http.StatusOK, map[string]string{
				"namespace": namespace,
			})
		}
	case rest[0] == "b" && len(rest) == 1: // /n/{ns}/b
		switch req.Method {
		case http.MethodGet:
			return g.listBuckets(req)
		case http.MethodPost:
			return g.createBucket(req)
		}
	case rest[0] == "b" && len(rest) == 2: // /n/{ns}/b/{bucket}
		return g.bucket(req, rest[1])
	case rest[0] == "b" && len(rest) == 3 && rest[2] == "o": // /n/{ns}/b/{bucket}/o
		if req.Method == http.MethodGet {
			return g.listObjects(req, rest[1])
		}
	case rest[0] == "b" && len(rest) >= 4 && rest[2] == "o":
		name, err := url.PathUnescape(strings.Join(rest[3:], "/"))
		if err != nil {
			name = strings.Join(rest[3:], "/")
		}
		return g.object(req, rest[1], name)
	}
	return oracleError(req, cmn.NewInvalidRequest("unresolved path: "+req.Path))
}

func (g *Gateway) listBuckets(req *gateway.Request) *gateway.Response {
	buckets, err := g.store.ListBuckets(storage.ProviderOracle)
	if err != nil {
		return oracleError(req, err)
	}
	out := make([]map[string]string, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, map[string]string{
			"namespace":   g.cfg.OracleNamespace,
			"name":        b.Name,
			"timeCreated": b.CreatedAt,
		})
	}
	return oracleOK("ListBuckets", http.StatusOK, out)
}

func (g *Gateway) createBucket(req *gateway.Request) *gateway.Response {
	body := gateway.ParseJSONBody(req.Body)
	name := gateway.Str(body, "name")
	if name == "" {
		return oracleError(req, cmn.NewInvalidArgument("name is required"))
	}
	b, err := g.store.CreateBucket(storage.ProviderOracle, name, g.cfg.Region, g.cfg.AccountID)
	if err != nil {
		return oracleError(req, err)
	}
	return oracleOK("CreateBucket", http.StatusOK, map[string]string{
		"namespace":   g.cfg.OracleNamespace,
		"name":        b.Name,
		"timeCreated": b.CreatedAt,
	})
}

func (g *Gateway) bucket(req *gateway.Request, name string) *gateway.Response {
	switch req.Method {
	case http.MethodGet:
		b, err := g.store.GetBucket(storage.ProviderOracle, name)
		if err != nil {
			return oracleError(req, err)
		}
		return oracleOK("GetBucket", http.StatusOK, map[string]string{
			"namespace":   g.cfg.OracleNamespace,
			"name":        b.Name,
			"timeCreated": b.CreatedAt,
		})
	case http.MethodDelete:
		if err := g.store.DeleteBucket(storage.ProviderOracle, name, false); err != nil {
			return oracleError(req, err)
		}
		return oracleOK("DeleteBucket", http.StatusNoContent, nil)
	case http.MethodHead:
		if _, err := g.store.GetBucket(storage.ProviderOracle, name); err != nil {
			resp := oracleError(req, err)
			resp.Body = nil
			return resp
		}
		return oracleOK("HeadBucket", http.StatusOK, nil)
	}
	return oracleError(req, cmn.NewInvalidRequest("unresolved bucket operation"))
}

func (g *Gateway) listObjects(req *gateway.Request, bucket string) *gateway.Response {
	res, err := g.store.ListObjectsV2(storage.ProviderOracle, &storage.ListObjectsInput{
		Bucket:  bucket,
		Prefix:  req.Query.Get("prefix"),
		MaxKeys: -1,
	})
	if err != nil {
		return oracleError(req, err)
	}
	objects := make([]map[string]any, 0, len(res.Objects))
	for _, o := range res.Objects {
		objects = append(objects, map[string]any{
			"name":        o.Key,
			"size":        o.Size,
			"etag":        o.ETag,
			"timeCreated": o.LastModified,
		})
	}
	return oracleOK("ListObjects", http.StatusOK, map[string]any{"objects": objects})
}

func (g *Gateway) object(req *gateway.Request, bucket, name string) *gateway.Response {
	switch req.Method {
	case http.MethodPut:
		obj, err := g.store.PutObject(storage.ProviderOracle, &storage.PutObjectInput{
			Bucket:      bucket,
			Key:         name,
			Body:        req.Body,
			ContentType: req.Header.Get("Content-Type"),
		})
		if err != nil {
			return oracleError(req, err)
		}
		resp := oracleOK("PutObject", http.StatusOK, nil)
		resp.Header.Set("ETag", obj.ETag)
		resp.Bucket, resp.Key = bucket, name
		return resp
	case http.MethodGet:
		obj, data, err := g.store.GetObject(storage.ProviderOracle, bucket, name, "")
		if err != nil {
			return oracleError(req, err)
		}
		resp := gateway.NewResponse(http.StatusOK)
		resp.Service, resp.Operation = "objectstorage", "GetObject"
		resp.Bucket, resp.Key = bucket, name
		resp.Header.Set("Content-Type", obj.ContentType)
		resp.Header.Set("ETag", obj.ETag)
		resp.Body = data
		return resp
	case http.MethodHead:
		obj, err := g.store.GetObjectMeta(storage.ProviderOracle, bucket, name, "")
		if err != nil {
			resp := oracleError(req, err)
			resp.Body = nil
			return resp
		}
		resp := oracleOK("HeadObject", http.StatusOK, nil)
		resp.Header.Set("Content-Length", strconv.FormatInt(obj.Size, 10))
		resp.Header.Set("ETag", obj.ETag)
		return resp
	case http.MethodDelete:
		if _, err := g.store.DeleteObject(storage.ProviderOracle, bucket, name, ""); err != nil {
			return oracleError(req, err)
		}
		return oracleOK("DeleteObject", http.StatusNoContent, nil)
	}
	return oracleError(req, cmn.NewInvalidRequest("unresolved object operation"))
}
