// Package azure implements the Azure provider gateway.
/*
 * Copyright (c) 2024-2026, CloudEmu Authors. All rights reserved.
 */
package azure

import (
	"encoding/xml"
	"net/http"
	"strconv"
	"strings"

	"github.com/cloudemu/cloudemu/cmn"
	"github.com/cloudemu/cloudemu/gateway"
	"github.com/cloudemu/cloudemu/storage"
)

type (
	// EnumerationResults is shared by container and blob listings.
	EnumerationResults struct {
		XMLName    xml.Name        `xml:"EnumerationResults"`
		Containers []ContainerXML  `xml:"Containers>Container,omitempty"`
		Blobs      []BlobXML       `xml:"Blobs>Blob,omitempty"`
	}

	ContainerXML struct {
		Name       string       `xml:"Name"`
		Properties PropertiesXML `xml:"Properties"`
	}

	BlobXML struct {
		Name       string        `xml:"Name"`
		Properties PropertiesXML `xml:"Properties"`
	}

	PropertiesXML struct {
		LastModified  string `xml:"Last-Modified,omitempty"`
		ETag          string `xml:"Etag,omitempty"`
		ContentLength int64  `xml:"Content-Length,omitempty"`
		ContentType   string `xml:"Content-Type,omitempty"`
	}

	azureErrorXML struct {
		XMLName xml.Name `xml:"Error"`
		Code    string   `xml:"Code"`
		Message string   `xml:"Message"`
	}
)

// azureBlobCode maps the taxonomy to Storage error codes.
func azureBlobCode(e *cmn.Err) string {
	switch e.Kind() {
	case cmn.KindNoSuchBucket:
		return "ContainerNotFound"
	case cmn.KindNoSuchKey, cmn.KindNotFound:
		return "BlobNotFound"
	case cmn.KindBucketAlreadyExists, cmn.KindAlreadyExists:
		return "ContainerAlreadyExists"
	case cmn.KindBucketNotEmpty:
		return "ContainerBeingDeleted"
	case cmn.KindInvalidRequest, cmn.KindInvalidArgument, cmn.KindMalformedXML:
		return "InvalidQueryParameterValue"
	default:
		return "InternalError"
	}
}

func blobError(req *gateway.Request, err error, container, blob string) *gateway.Response {
	e := cmn.AsErr(err)
	code := azureBlobCode(e)
	body, _ := xml.Marshal(&azureErrorXML{Code: code, Message: e.Context()})
	resp := gateway.XMLResponse(e.HTTPStatus(), append([]byte(xml.Header), body...))
	resp.Service, resp.ErrorCode = "blob", code
	resp.Bucket, resp.Key = container, blob
	return resp
}

func blobOK(op, container, blob string, status int, body []byte) *gateway.Response {
	resp := gateway.XMLResponse(status, body)
	resp.Service, resp.Operation = "blob", op
	resp.Bucket, resp.Key = container, blob
	if len(body) == 0 {
		resp.Header.Del("Content-Type")
	}
	return resp
}

// stripAccount drops the Azurite-style leading account segment.
func (g *Gateway) stripAccount(segments []string) []string {
	if len(segments) > 0 &&
		(segments[0] == "devstoreaccount1" || segments[0] == g.cfg.AccountID) {
		return segments[1:]
	}
	return segments
}

// blob serves the Storage REST dialect: containers keyed by
// restype=container, listings by comp=list.
func (g *Gateway) blob(req *gateway.Request) *gateway.Response {
	segments := strings.Split(strings.Trim(req.Path, "/"), "/")
	if segments[0] == "" {
		segments = nil
	}
	segments = g.stripAccount(segments)

	switch len(segments) {
	case 0:
		if req.Method == http.MethodGet && req.Query.Get("comp") == "list" {
			return g.listContainers(req)
		}
	case 1:
		return g.container(req, segments[0])
	default:
		return g.blobObject(req, segments[0], strings.Join(segments[1:], "/"))
	}
	return blobError(req, cmn.NewInvalidRequest("unresolved Blob operation: "+req.Path), "", "")
}

func (g *Gateway) listContainers(req *gateway.Request) *gateway.Response {
	buckets, err := g.store.ListBuckets(storage.ProviderAzure)
	if err != nil {
		return blobError(req, err, "", "")
	}
	out := &EnumerationResults{}
	for _, b := range buckets {
		out.Containers = append(out.Containers, ContainerXML{
			Name:       b.Name,
			Properties: PropertiesXML{LastModified: b.CreatedAt},
		})
	}
	body, _ := xml.Marshal(out)
	return blobOK("ListContainers", "", "", http.StatusOK, append([]byte(xml.Header), body...))
}

func (g *Gateway) container(req *gateway.Request, name string) *gateway.Response {
	isContainer := req.Query.Get("restype") == "container"
	switch {
	case req.Method == http.MethodPut && isContainer:
		if _, err := g.store.CreateBucket(storage.ProviderAzure, name, g.cfg.Region,
			g.cfg.AccountID); err != nil {
			return blobError(req, err, name, "")
		}
		return blobOK("CreateContainer", name, "", http.StatusCreated, nil)
	case req.Method == http.MethodDelete && isContainer:
		if err := g.store.DeleteBucket(storage.ProviderAzure, name, true); err != nil {
			return blobError(req, err, name, "")
		}
		return blobOK("DeleteContainer", name, "", http.StatusAccepted, nil)
	case req.Method == http.MethodGet && req.Query.Get("comp") == "list":
		return g.listBlobs(req, name)
	case req.Method == http.MethodHead && isContainer:
		if _, err := g.store.GetBucket(storage.ProviderAzure, name); err != nil {
			resp := blobError(req, err, name, "")
			resp.Body = nil
			return resp
		}
		return blobOK("GetContainerProperties", name, "", http.StatusOK, nil)
	}
	return blobError(req, cmn.NewInvalidRequest("unresolved container operation"), name, "")
}

func (g *Gateway) listBlobs(req *gateway.Request, container string) *gateway.Response {
	res, err := g.store.ListObjectsV2(storage.ProviderAzure, &storage.ListObjectsInput{
		Bucket:  container,
		Prefix:  req.Query.Get("prefix"),
		MaxKeys: -1,
	})
	if err != nil {
		return blobError(req, err, container, "")
	}
	out := &EnumerationResults{}
	for _, o := range res.Objects {
		out.Blobs = append(out.Blobs, BlobXML{
			Name: o.Key,
			Properties: PropertiesXML{
				LastModified:  o.LastModified,
				ETag:          o.ETag,
				ContentLength: o.Size,
				ContentType:   o.ContentType,
			},
		})
	}
	body, _ := xml.Marshal(out)
	return blobOK("ListBlobs", container, "", http.StatusOK, append([]byte(xml.Header), body...))
}

func (g *Gateway) blobObject(req *gateway.Request, container, name string) *gateway.Response {
	switch req.Method {
	case http.MethodPut:
		obj, err := g.store.PutObject(storage.ProviderAzure, &storage.PutObjectInput{
			Bucket:      container,
			Key:         name,
			Body:        req.Body,
			ContentType: req.Header.Get("x-ms-blob-content-type"),
		})
		if err != nil {
			return blobError(req, err, container, name)
		}
		resp := blobOK("PutBlob", container, name, http.StatusCreated, nil)
		resp.Header.Set("ETag", obj.ETag)
		return resp
	case http.MethodGet:
		obj, data, err := g.store.GetObject(storage.ProviderAzure, container, name, "")
		if err != nil {
			return blobError(req, err, container, name)
		}
		resp := blobOK("GetBlob", container, name, http.StatusOK, data)
		resp.Header.Set("Content-Type", obj.ContentType)
		resp.Header.Set("ETag", obj.ETag)
		resp.Header.Set("x-ms-blob-type", "BlockBlob")
		return resp
	case http.MethodHead:
		obj, err := g.store.GetObjectMeta(storage.ProviderAzure, container, name, "")
		if err != nil {
			resp := blobError(req, err, container, name)
			resp.Body = nil
			return resp
		}
		resp := blobOK("GetBlobProperties", container, name, http.StatusOK, nil)
		resp.Header.Set("Content-Length", strconv.FormatInt(obj.Size, 10))
		resp.Header.Set("Content-Type", obj.ContentType)
		resp.Header.Set("ETag", obj.ETag)
		return resp
	case http.MethodDelete:
		if _, err := g.store.DeleteObject(storage.ProviderAzure, container, name, ""); err != nil {
			return blobError(req, err, container, name)
		}
		return blobOK("DeleteBlob", container, name, http.StatusAccepted, nil)
	}
	return blobError(req, cmn.NewInvalidRequest("unresolved blob operation"), container, name)
}
