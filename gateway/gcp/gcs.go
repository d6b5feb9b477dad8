// Package gcp implements the GCP provider gateway.
/*
 * Copyright (c) 2024-2026, CloudEmu Authors. All rights reserved.
 */
package gcp

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/cloudemu/cloudemu/cmn"
	"github.com/cloudemu/cloudemu/gateway"
	"github.com/cloudemu/cloudemu/storage"
)

func bucketResource(b *storage.Bucket) map[string]any {
	return map[string]any{
		"kind":        "storage#bucket",
		"id":          b.Name,
		"name":        b.Name,
		"location":    strings.ToUpper(b.Region),
		"timeCreated": b.CreatedAt,
	}
}

func objectResource(o *storage.Object) map[string]any {
	return map[string]any{
		"kind":        "storage#object",
		"id":          o.Bucket + "/" + o.Key,
		"name":        o.Key,
		"bucket":      o.Bucket,
		"size":        strconv.FormatInt(o.Size, 10),
		"contentType": o.ContentType,
		"etag":        o.ETag,
		"md5Hash":     o.ETag,
		"updated":     o.LastModified,
	}
}

// gcs serves /storage/v1/b[/{bucket}[/o[/{object}]]] plus the media
// upload path /upload/storage/v1/b/{bucket}/o?name=...
func (g *Gateway) gcs(req *gateway.Request) *gateway.Response {
	const service = "gcs"
	fail := func(err error) *gateway.Response { return gcpError(req, service, err) }

	if strings.HasPrefix(req.Path, "/upload/storage/v1/b/") {
		rest := strings.TrimPrefix(req.Path, "/upload/storage/v1/b/")
		segments := strings.SplitN(rest, "/", 2)
		if len(segments) != 2 || segments[1] != "o" || req.Method != http.MethodPost {
			return fail(cmn.NewInvalidRequest("unresolved upload path: " + req.Path))
		}
		name := req.Query.Get("name")
		if name == "" {
			return fail(cmn.NewInvalidArgument("object name is required"))
		}
		obj, err := g.store.PutObject(storage.ProviderGCP, &storage.PutObjectInput{
			Bucket:      segments[0],
			Key:         name,
			Body:        req.Body,
			ContentType: req.Header.Get("Content-Type"),
		})
		if err != nil {
			return fail(err)
		}
		resp := gcpOK(service, "InsertObject", http.StatusOK, objectResource(obj))
		resp.Bucket, resp.Key = segments[0], name
		return resp
	}

	rest := strings.TrimPrefix(req.Path, "/storage/v1/b")
	rest = strings.Trim(rest, "/")
	if rest == "" {
		switch req.Method {
		case http.MethodGet:
			buckets, err := g.store.ListBuckets(storage.ProviderGCP)
			if err != nil {
				return fail(err)
			}
			items := make([]map[string]any, 0, len(buckets))
			for _, b := range buckets {
				items = append(items, bucketResource(b))
			}
			return gcpOK(service, "ListBuckets", http.StatusOK, map[string]any{
				"kind": "storage#buckets", "items": items,
			})
		case http.MethodPost:
			body := gateway.ParseJSONBody(req.Body)
			name := gateway.Str(body, "name")
			if name == "" {
				return fail(cmn.NewInvalidArgument("bucket name is required"))
			}
			b, err := g.store.CreateBucket(storage.ProviderGCP, name, g.cfg.Region,
				g.cfg.AccountID)
			if err != nil {
				return fail(err)
			}
			return gcpOK(service, "InsertBucket", http.StatusOK, bucketResource(b))
		}
		return fail(cmn.NewInvalidRequest("unresolved GCS operation"))
	}

	segments := strings.SplitN(rest, "/", 3)
	bucket := segments[0]
	switch len(segments) {
	case 1: // /storage/v1/b/{bucket}
		switch req.Method {
		case http.MethodGet:
			b, err := g.store.GetBucket(storage.ProviderGCP, bucket)
			if err != nil {
				return fail(err)
			}
			return gcpOK(service, "GetBucket", http.StatusOK, bucketResource(b))
		case http.MethodDelete:
			if err := g.store.DeleteBucket(storage.ProviderGCP, bucket, false); err != nil {
				return fail(err)
			}
			return gcpOK(service, "DeleteBucket", http.StatusNoContent, nil)
		}
	case 2: // /storage/v1/b/{bucket}/o
		if segments[1] == "o" && req.Method == http.MethodGet {
			res, err := g.store.ListObjectsV2(storage.ProviderGCP, &storage.ListObjectsInput{
				Bucket:    bucket,
				Prefix:    req.Query.Get("prefix"),
				Delimiter: req.Query.Get("delimiter"),
				MaxKeys:   -1,
			})
			if err != nil {
				return fail(err)
			}
			items := make([]map[string]any, 0, len(res.Objects))
			for _, o := range res.Objects {
				items = append(items, objectResource(o))
			}
			out := map[string]any{"kind": "storage#objects", "items": items}
			if len(res.CommonPrefixes) > 0 {
				out["prefixes"] = res.CommonPrefixes
			}
			return gcpOK(service, "ListObjects", http.StatusOK, out)
		}
	case 3: // /storage/v1/b/{bucket}/o/{object}
		if segments[1] != "o" {
			break
		}
		object, err := url.PathUnescape(segments[2])
		if err != nil {
			object = segments[2]
		}
		switch req.Method {
		case http.MethodGet:
			if req.Query.Get("alt") == "media" {
				obj, data, err := g.store.GetObject(storage.ProviderGCP, bucket, object, "")
				if err != nil {
					return fail(err)
				}
				resp := gateway.NewResponse(http.StatusOK)
				resp.Service, resp.Operation = service, "GetObjectMedia"
				resp.Bucket, resp.Key = bucket, object
				resp.Header.Set("Content-Type", obj.ContentType)
				resp.Body = data
				return resp
			}
			obj, err := g.store.GetObjectMeta(storage.ProviderGCP, bucket, object, "")
			if err != nil {
				return fail(err)
			}
			return gcpOK(service, "GetObject", http.StatusOK, objectResource(obj))
		case http.MethodDelete:
			if _, err := g.store.DeleteObject(storage.ProviderGCP, bucket, object, ""); err != nil {
				return fail(err)
			}
			return gcpOK(service, "DeleteObject", http.StatusNoContent, nil)
		}
	}
	return fail(cmn.NewInvalidRequest("unresolved GCS path: " + req.Path))
}
