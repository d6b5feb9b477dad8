// Package aws implements the AWS provider gateway.
/*
 * Copyright (c) 2024-2026, CloudEmu Authors. All rights reserved.
 */
package aws

import (
	"encoding/xml"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/cloudemu/cloudemu/cmn"
	"github.com/cloudemu/cloudemu/gateway"
	"github.com/cloudemu/cloudemu/storage"
)

const amzMetaPrefix = "x-amz-meta-"

// s3 routes the REST dialect: /{bucket}[/{key}] plus the verb and the
// query-parameter discriminators (?versioning, ?policy, ?location,
// ?uploads, ?uploadId=..., ?partNumber=...).
func (g *Gateway) s3(req *gateway.Request) *gateway.Response {
	trimmed := strings.Trim(req.Path, "/")
	if trimmed == "" {
		if req.Method == http.MethodGet {
			return g.listBuckets(req)
		}
		return s3Error(req, cmn.NewInvalidRequest("unresolved S3 operation"), "", "")
	}
	parts := strings.SplitN(trimmed, "/", 2)
	bucket := parts[0]
	if len(parts) == 1 {
		return g.s3Bucket(req, bucket)
	}
	return g.s3Object(req, bucket, parts[1])
}

func (g *Gateway) s3Bucket(req *gateway.Request, bucket string) *gateway.Response {
	q := req.Query
	switch req.Method {
	case http.MethodPut:
		switch {
		case q.Has("versioning"):
			return g.putBucketVersioning(req, bucket)
		case q.Has("policy"):
			return g.putBucketPolicy(req, bucket)
		case q.Has("tagging"):
			return g.putBucketTagging(req, bucket)
		default:
			return g.createBucket(req, bucket)
		}
	case http.MethodGet:
		switch {
		case q.Has("versioning"):
			return g.getBucketVersioning(req, bucket)
		case q.Has("location"):
			return g.getBucketLocation(req, bucket)
		case q.Has("policy"):
			return g.getBucketPolicy(req, bucket)
		case q.Has("tagging"):
			return g.getBucketTagging(req, bucket)
		case q.Has("uploads"):
			return g.listMultipartUploads(req, bucket)
		case q.Has("versions"):
			return g.listObjectVersions(req, bucket)
		default:
			return g.listObjectsV2(req, bucket)
		}
	case http.MethodDelete:
		if q.Has("policy") {
			return g.deleteBucketPolicy(req, bucket)
		}
		return g.deleteBucket(req, bucket)
	case http.MethodHead:
		return g.headBucket(req, bucket)
	case http.MethodPost:
		if q.Has("delete") {
			return g.deleteObjects(req, bucket)
		}
	}
	return s3Error(req, cmn.NewInvalidRequest("unresolved S3 bucket operation"), bucket, "")
}

func (g *Gateway) s3Object(req *gateway.Request, bucket, key string) *gateway.Response {
	q := req.Query
	switch req.Method {
	case http.MethodPut:
		if q.Has("partNumber") && q.Has("uploadId") {
			return g.uploadPart(req, bucket, key)
		}
		if src := req.Header.Get("x-amz-copy-source"); src != "" {
			return g.copyObject(req, bucket, key, src)
		}
		return g.putObject(req, bucket, key)
	case http.MethodGet:
		if q.Has("uploadId") {
			return g.listParts(req, bucket, key)
		}
		return g.getObject(req, bucket, key, false)
	case http.MethodHead:
		return g.getObject(req, bucket, key, true)
	case http.MethodDelete:
		if q.Has("uploadId") {
			return g.abortMultipartUpload(req, bucket, key)
		}
		return g.deleteObject(req, bucket, key)
	case http.MethodPost:
		if q.Has("uploads") {
			return g.createMultipartUpload(req, bucket, key)
		}
		if q.Has("uploadId") {
			return g.completeMultipartUpload(req, bucket, key)
		}
	}
	return s3Error(req, cmn.NewInvalidRequest("unresolved S3 object operation"), bucket, key)
}

func s3OK(req *gateway.Request, op, bucket, key string, body []byte) *gateway.Response {
	resp := gateway.XMLResponse(http.StatusOK, body)
	resp.Service, resp.Operation = "s3", op
	resp.Bucket, resp.Key = bucket, key
	if len(body) == 0 {
		resp.Header.Del("Content-Type")
	}
	return resp
}

//
// bucket operations
//

func (g *Gateway) createBucket(req *gateway.Request, bucket string) *gateway.Response {
	region := g.cfg.Region
	if len(req.Body) > 0 {
		var conf createBucketRequest
		if err := xml.Unmarshal(req.Body, &conf); err == nil && conf.LocationConstraint != "" {
			region = conf.LocationConstraint
		}
	}
	if _, err := g.store.CreateBucket(storage.ProviderAWS, bucket, region, g.cfg.AccountID); err != nil {
		return s3Error(req, err, bucket, "")
	}
	resp := s3OK(req, "CreateBucket", bucket, "", nil)
	resp.Header.Set("Location", "/"+bucket)
	return resp
}

func (g *Gateway) deleteBucket(req *gateway.Request, bucket string) *gateway.Response {
	if err := g.store.DeleteBucket(storage.ProviderAWS, bucket, false); err != nil {
		return s3Error(req, err, bucket, "")
	}
	resp := s3OK(req, "DeleteBucket", bucket, "", nil)
	resp.Status = http.StatusNoContent
	return resp
}

func (g *Gateway) headBucket(req *gateway.Request, bucket string) *gateway.Response {
	b, err := g.store.GetBucket(storage.ProviderAWS, bucket)
	if err != nil {
		resp := s3Error(req, err, bucket, "")
		resp.Body = nil // HEAD carries no body
		return resp
	}
	resp := s3OK(req, "HeadBucket", bucket, "", nil)
	resp.Header.Set("x-amz-bucket-region", b.Region)
	return resp
}

func (g *Gateway) listBuckets(req *gateway.Request) *gateway.Response {
	buckets, err := g.store.ListBuckets(storage.ProviderAWS)
	if err != nil {
		return s3Error(req, err, "", "")
	}
	out := &ListAllMyBucketsResult{
		Ns:    s3Namespace,
		Owner: Owner{ID: g.cfg.AccountID, DisplayName: "cloudemu"},
	}
	for _, b := range buckets {
		out.Buckets = append(out.Buckets, BucketXML{Name: b.Name, CreationDate: b.CreatedAt})
	}
	return s3OK(req, "ListBuckets", "", "", mustMarshalXML(out))
}

func (g *Gateway) putBucketVersioning(req *gateway.Request, bucket string) *gateway.Response {
	var conf versioningRequest
	if err := xml.Unmarshal(req.Body, &conf); err != nil {
		return s3Error(req, cmn.NewMalformedXML(err.Error()), bucket, "")
	}
	if err := g.store.SetBucketVersioning(storage.ProviderAWS, bucket, conf.Status); err != nil {
		return s3Error(req, err, bucket, "")
	}
	return s3OK(req, "PutBucketVersioning", bucket, "", nil)
}

func (g *Gateway) getBucketVersioning(req *gateway.Request, bucket string) *gateway.Response {
	b, err := g.store.GetBucket(storage.ProviderAWS, bucket)
	if err != nil {
		return s3Error(req, err, bucket, "")
	}
	out := &VersioningConfiguration{Ns: s3Namespace}
	if b.Versioning != storage.VersioningDisabled {
		out.Status = b.Versioning
	}
	return s3OK(req, "GetBucketVersioning", bucket, "", mustMarshalXML(out))
}

func (g *Gateway) getBucketLocation(req *gateway.Request, bucket string) *gateway.Response {
	b, err := g.store.GetBucket(storage.ProviderAWS, bucket)
	if err != nil {
		return s3Error(req, err, bucket, "")
	}
	out := &LocationConstraint{Ns: s3Namespace}
	if b.Region != "us-east-1" {
		out.Value = b.Region
	}
	return s3OK(req, "GetBucketLocation", bucket, "", mustMarshalXML(out))
}

func (g *Gateway) putBucketPolicy(req *gateway.Request, bucket string) *gateway.Response {
	policy := string(req.Body)
	if !js.Valid(req.Body) {
		return s3Error(req, cmn.NewMalformedPolicy("policy must be a JSON document"), bucket, "")
	}
	if err := g.store.SetBucketPolicy(storage.ProviderAWS, bucket, policy); err != nil {
		return s3Error(req, err, bucket, "")
	}
	return s3OK(req, "PutBucketPolicy", bucket, "", nil)
}

func (g *Gateway) getBucketPolicy(req *gateway.Request, bucket string) *gateway.Response {
	policy, err := g.store.GetBucketPolicy(storage.ProviderAWS, bucket)
	if err != nil {
		return s3Error(req, err, bucket, "")
	}
	resp := s3OK(req, "GetBucketPolicy", bucket, "", []byte(policy))
	resp.Header.Set("Content-Type", "application/json")
	return resp
}

func (g *Gateway) deleteBucketPolicy(req *gateway.Request, bucket string) *gateway.Response {
	if err := g.store.DeleteBucketPolicy(storage.ProviderAWS, bucket); err != nil {
		return s3Error(req, err, bucket, "")
	}
	resp := s3OK(req, "DeleteBucketPolicy", bucket, "", nil)
	resp.Status = http.StatusNoContent
	return resp
}

func (g *Gateway) putBucketTagging(req *gateway.Request, bucket string) *gateway.Response {
	var tagging Tagging
	if err := xml.Unmarshal(req.Body, &tagging); err != nil {
		return s3Error(req, cmn.NewMalformedXML(err.Error()), bucket, "")
	}
	tags := make(map[string]string, len(tagging.TagSet))
	for _, t := range tagging.TagSet {
		tags[t.Key] = t.Value
	}
	enc, _ := js.MarshalToString(tags)
	if err := g.store.SetBucketTags(storage.ProviderAWS, bucket, enc); err != nil {
		return s3Error(req, err, bucket, "")
	}
	return s3OK(req, "PutBucketTagging", bucket, "", nil)
}

func (g *Gateway) getBucketTagging(req *gateway.Request, bucket string) *gateway.Response {
	b, err := g.store.GetBucket(storage.ProviderAWS, bucket)
	if err != nil {
		return s3Error(req, err, bucket, "")
	}
	var tags map[string]string
	js.UnmarshalFromString(b.Tags, &tags)
	out := &Tagging{}
	for k, v := range tags {
		out.TagSet = append(out.TagSet, Tag{Key: k, Value: v})
	}
	return s3OK(req, "GetBucketTagging", bucket, "", mustMarshalXML(out))
}

//
// object operations
//

func metaFromHeaders(h map[string][]string) map[string]string {
	meta := make(map[string]string)
	for k, vals := range h {
		lk := strings.ToLower(k)
		if strings.HasPrefix(lk, amzMetaPrefix) && len(vals) > 0 {
			meta[strings.TrimPrefix(lk, amzMetaPrefix)] = vals[0]
		}
	}
	if len(meta) == 0 {
		return nil
	}
	return meta
}

func (g *Gateway) putObject(req *gateway.Request, bucket, key string) *gateway.Response {
	obj, err := g.store.PutObject(storage.ProviderAWS, &storage.PutObjectInput{
		Bucket:             bucket,
		Key:                key,
		Body:               req.Body,
		ContentType:        req.Header.Get("Content-Type"),
		ContentEncoding:    req.Header.Get("Content-Encoding"),
		CacheControl:       req.Header.Get("Cache-Control"),
		ContentDisposition: req.Header.Get("Content-Disposition"),
		Metadata:           metaFromHeaders(req.Header),
		StorageClass:       req.Header.Get("x-amz-storage-class"),
	})
	if err != nil {
		return s3Error(req, err, bucket, key)
	}
	resp := s3OK(req, "PutObject", bucket, key, nil)
	resp.Header.Set("ETag", quoteETag(obj.ETag))
	if obj.VersionID != storage.NullVersionID {
		resp.Header.Set("x-amz-version-id", obj.VersionID)
	}
	return resp
}

// parseRange handles "bytes=a-b", "bytes=a-" and "bytes=-n" against size.
func parseRange(spec string, size int64) (start, end int64, _ error) {
	spec = strings.TrimPrefix(spec, "bytes=")
	dash := strings.IndexByte(spec, '-')
	if dash < 0 {
		return 0, 0, cmn.NewInvalidObjectState("malformed Range header")
	}
	first, last := spec[:dash], spec[dash+1:]
	switch {
	case first == "" && last != "": // suffix form
		n, err := strconv.ParseInt(last, 10, 64)
		if err != nil || n <= 0 {
			return 0, 0, cmn.NewInvalidObjectState("malformed Range header")
		}
		if n > size {
			n = size
		}
		return size - n, size - 1, nil
	case first != "":
		s, err := strconv.ParseInt(first, 10, 64)
		if err != nil {
			return 0, 0, cmn.NewInvalidObjectState("malformed Range header")
		}
		e := size - 1
		if last != "" {
			e, err = strconv.ParseInt(last, 10, 64)
			if err != nil {
				return 0, 0, cmn.NewInvalidObjectState("malformed Range header")
			}
		}
		if s >= size || e < s {
			return 0, 0, cmn.NewInvalidObjectState(
				fmt.Sprintf("requested range %s is not satisfiable for size %d", spec, size))
		}
		if e >= size {
			e = size - 1
		}
		return s, e, nil
	}
	return 0, 0, cmn.NewInvalidObjectState("malformed Range header")
}

func setObjectHeaders(resp *gateway.Response, obj *storage.Object) {
	resp.Header.Set("ETag", quoteETag(obj.ETag))
	resp.Header.Set("Content-Type", obj.ContentType)
	if t, err := cmn.ParseISO(obj.LastModified); err == nil {
		resp.Header.Set("Last-Modified", cmn.FormatHTTP(t))
	}
	if obj.ContentEncoding != "" {
		resp.Header.Set("Content-Encoding", obj.ContentEncoding)
	}
	if obj.CacheControl != "" {
		resp.Header.Set("Cache-Control", obj.CacheControl)
	}
	if obj.ContentDisposition != "" {
		resp.Header.Set("Content-Disposition", obj.ContentDisposition)
	}
	if obj.VersionID != storage.NullVersionID {
		resp.Header.Set("x-amz-version-id", obj.VersionID)
	}
	for k, v := range obj.Metadata {
		resp.Header.Set(amzMetaPrefix+k, v)
	}
}

func (g *Gateway) getObject(req *gateway.Request, bucket, key string, headOnly bool) *gateway.Response {
	versionID := req.Query.Get("versionId")
	op := "GetObject"
	if headOnly {
		op = "HeadObject"
	}
	if headOnly {
		obj, err := g.store.GetObjectMeta(storage.ProviderAWS, bucket, key, versionID)
		if err != nil {
			resp := s3Error(req, err, bucket, key)
			resp.Body = nil
			return resp
		}
		resp := s3OK(req, op, bucket, key, nil)
		setObjectHeaders(resp, obj)
		resp.Header.Set("Content-Length", strconv.FormatInt(obj.Size, 10))
		return resp
	}
	obj, data, err := g.store.GetObject(storage.ProviderAWS, bucket, key, versionID)
	if err != nil {
		return s3Error(req, err, bucket, key)
	}
	status := http.StatusOK
	if spec := req.Header.Get("Range"); spec != "" {
		start, end, err := parseRange(spec, obj.Size)
		if err != nil {
			return s3Error(req, err, bucket, key)
		}
		data = data[start : end+1]
		status = http.StatusPartialContent
	}
	resp := s3OK(req, op, bucket, key, data)
	resp.Status = status
	setObjectHeaders(resp, obj)
	return resp
}

func (g *Gateway) deleteObject(req *gateway.Request, bucket, key string) *gateway.Response {
	res, err := g.store.DeleteObject(storage.ProviderAWS, bucket, key, req.Query.Get("versionId"))
	if err != nil {
		return s3Error(req, err, bucket, key)
	}
	resp := s3OK(req, "DeleteObject", bucket, key, nil)
	resp.Status = http.StatusNoContent
	if res.DeleteMarker {
		resp.Header.Set("x-amz-delete-marker", "true")
		resp.Header.Set("x-amz-version-id", res.VersionID)
	}
	return resp
}

func (g *Gateway) deleteObjects(req *gateway.Request, bucket string) *gateway.Response {
	var batch deleteObjectsRequest
	if err := xml.Unmarshal(req.Body, &batch); err != nil {
		return s3Error(req, cmn.NewMalformedXML(err.Error()), bucket, "")
	}
	out := &DeleteResult{Ns: s3Namespace}
	for _, o := range batch.Objects {
		if _, err := g.store.DeleteObject(storage.ProviderAWS, bucket, o.Key, o.VersionID); err != nil {
			e := cmn.AsErr(err)
			out.Errors = append(out.Errors, DeleteErrorXML{
				Key: o.Key, Code: e.AWSCode(), Message: e.Context(),
			})
			continue
		}
		if !batch.Quiet {
			out.Deleted = append(out.Deleted, DeletedObjXML{Key: o.Key, VersionID: o.VersionID})
		}
	}
	return s3OK(req, "DeleteObjects", bucket, "", mustMarshalXML(out))
}

func (g *Gateway) copyObject(req *gateway.Request, bucket, key, src string) *gateway.Response {
	// AWS examples prefix the source path with "/".
	src = strings.Trim(src, "/")
	parts := strings.SplitN(src, "/", 2)
	if len(parts) < 2 {
		return s3Error(req, cmn.NewInvalidArgument("x-amz-copy-source must be bucket/key"), bucket, key)
	}
	obj, err := g.store.CopyObject(storage.ProviderAWS, parts[0], parts[1], bucket, key)
	if err != nil {
		return s3Error(req, err, bucket, key)
	}
	out := &CopyObjectResult{LastModified: obj.LastModified, ETag: quoteETag(obj.ETag)}
	return s3OK(req, "CopyObject", bucket, key, mustMarshalXML(out))
}

func (g *Gateway) listObjectsV2(req *gateway.Request, bucket string) *gateway.Response {
	q := req.Query
	maxKeys := -1
	if mk := q.Get("max-keys"); mk != "" {
		if n, err := strconv.Atoi(mk); err == nil {
			maxKeys = n
		}
	}
	in := &storage.ListObjectsInput{
		Bucket:            bucket,
		Prefix:            q.Get("prefix"),
		Delimiter:         q.Get("delimiter"),
		MaxKeys:           maxKeys,
		ContinuationToken: q.Get("continuation-token"),
	}
	// start-after only applies to the first page.
	if in.ContinuationToken == "" {
		in.StartAfter = q.Get("start-after")
	}
	res, err := g.store.ListObjectsV2(storage.ProviderAWS, in)
	if err != nil {
		return s3Error(req, err, bucket, "")
	}
	out := newListBucketResult(bucket)
	out.Prefix = in.Prefix
	out.Delimiter = in.Delimiter
	if maxKeys >= 0 {
		out.MaxKeys = maxKeys
	}
	out.IsTruncated = res.IsTruncated
	out.ContinuationToken = in.ContinuationToken
	out.NextContinuationToken = res.NextContinuationToken
	for _, o := range res.Objects {
		out.Contents = append(out.Contents, &ObjInfo{
			Key:          o.Key,
			LastModified: o.LastModified,
			ETag:         quoteETag(o.ETag),
			Size:         o.Size,
			Class:        o.StorageClass,
		})
	}
	for _, cp := range res.CommonPrefixes {
		out.CommonPrefixes = append(out.CommonPrefixes, &CommonPrefix{Prefix: cp})
	}
	out.KeyCount = len(out.Contents) + len(out.CommonPrefixes)
	return s3OK(req, "ListObjectsV2", bucket, "", mustMarshalXML(out))
}

func (g *Gateway) listObjectVersions(req *gateway.Request, bucket string) *gateway.Response {
	versions, err := g.store.ListObjectVersions(storage.ProviderAWS, bucket, req.Query.Get("prefix"))
	if err != nil {
		return s3Error(req, err, bucket, "")
	}
	out := &ListVersionsResult{Ns: s3Namespace, Name: bucket, Prefix: req.Query.Get("prefix")}
	for _, v := range versions {
		if v.IsDeleteMarker {
			out.DeleteMarkers = append(out.DeleteMarkers, &DeleteMarkerXML{
				Key: v.Key, VersionID: v.VersionID, IsLatest: v.IsLatest,
				LastModified: v.LastModified,
			})
			continue
		}
		out.Versions = append(out.Versions, &VersionInfo{
			Key: v.Key, VersionID: v.VersionID, IsLatest: v.IsLatest,
			LastModified: v.LastModified, ETag: quoteETag(v.ETag), Size: v.Size,
			Class: v.StorageClass,
		})
	}
	return s3OK(req, "ListObjectVersions", bucket, "", mustMarshalXML(out))
}

//
// multipart operations
//

func (g *Gateway) createMultipartUpload(req *gateway.Request, bucket, key string) *gateway.Response {
	up, err := g.store.CreateMultipartUpload(storage.ProviderAWS, bucket, key,
		metaFromHeaders(req.Header))
	if err != nil {
		return s3Error(req, err, bucket, key)
	}
	out := &InitiateMultipartUploadResult{
		Ns: s3Namespace, Bucket: bucket, Key: key, UploadID: up.UploadID,
	}
	return s3OK(req, "CreateMultipartUpload", bucket, key, mustMarshalXML(out))
}

func (g *Gateway) uploadPart(req *gateway.Request, bucket, key string) *gateway.Response {
	partNumber, err := strconv.Atoi(req.Query.Get("partNumber"))
	if err != nil {
		return s3Error(req, cmn.NewInvalidArgument("partNumber must be an integer"), bucket, key)
	}
	part, perr := g.store.UploadPart(req.Query.Get("uploadId"), partNumber, req.Body)
	if perr != nil {
		return s3Error(req, perr, bucket, key)
	}
	resp := s3OK(req, "UploadPart", bucket, key, nil)
	resp.Header.Set("ETag", quoteETag(part.ETag))
	return resp
}

func (g *Gateway) completeMultipartUpload(req *gateway.Request, bucket, key string) *gateway.Response {
	if len(req.Body) > 0 {
		var body completeMultipartUploadRequest
		if err := xml.Unmarshal(req.Body, &body); err != nil {
			return s3Error(req, cmn.NewMalformedXML(err.Error()), bucket, key)
		}
	}
	obj, err := g.store.CompleteMultipartUpload(req.Query.Get("uploadId"))
	if err != nil {
		return s3Error(req, err, bucket, key)
	}
	out := &CompleteMultipartUploadResult{
		Ns:       s3Namespace,
		Location: fmt.Sprintf("http://%s.s3.amazonaws.com/%s", bucket, key),
		Bucket:   bucket,
		Key:      key,
		ETag:     quoteETag(obj.ETag),
	}
	return s3OK(req, "CompleteMultipartUpload", bucket, key, mustMarshalXML(out))
}

func (g *Gateway) abortMultipartUpload(req *gateway.Request, bucket, key string) *gateway.Response {
	if err := g.store.AbortMultipartUpload(req.Query.Get("uploadId")); err != nil {
		return s3Error(req, err, bucket, key)
	}
	resp := s3OK(req, "AbortMultipartUpload", bucket, key, nil)
	resp.Status = http.StatusNoContent
	return resp
}

func (g *Gateway) listParts(req *gateway.Request, bucket, key string) *gateway.Response {
	uploadID := req.Query.Get("uploadId")
	parts, err := g.store.ListParts(uploadID)
	if err != nil {
		return s3Error(req, err, bucket, key)
	}
	out := &ListPartsResult{Ns: s3Namespace, Bucket: bucket, Key: key, UploadID: uploadID}
	for _, p := range parts {
		out.Parts = append(out.Parts, PartInfoXML{
			PartNumber: p.PartNumber, LastModified: p.LastModified,
			ETag: quoteETag(p.ETag), Size: p.Size,
		})
	}
	return s3OK(req, "ListParts", bucket, key, mustMarshalXML(out))
}

func (g *Gateway) listMultipartUploads(req *gateway.Request, bucket string) *gateway.Response {
	ups, err := g.store.ListMultipartUploads(storage.ProviderAWS, bucket)
	if err != nil {
		return s3Error(req, err, bucket, "")
	}
	out := &ListMultipartUploadsResult{Ns: s3Namespace, Bucket: bucket}
	for _, up := range ups {
		out.Uploads = append(out.Uploads, UploadInfoXML{
			Key: up.Key, UploadID: up.UploadID, Initiated: up.Initiated,
		})
	}
	return s3OK(req, "ListMultipartUploads", bucket, "", mustMarshalXML(out))
}
