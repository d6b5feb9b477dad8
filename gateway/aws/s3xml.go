// Package aws implements the AWS provider gateway.
/*
 * Copyright (c) 2024-2026, CloudEmu Authors. All rights reserved.
 */
package aws

import (
	"encoding/xml"
)

const s3Namespace = "http://s3.amazonaws.com/doc/2006-03-01/"

type (
	// ListBucketResult is the ListObjectsV2 response body.
	ListBucketResult struct {
		XMLName               xml.Name        `xml:"ListBucketResult"`
		Ns                    string          `xml:"xmlns,attr"`
		Name                  string          `xml:"Name"`
		Prefix                string          `xml:"Prefix"`
		Delimiter             string          `xml:"Delimiter,omitempty"`
		KeyCount              int             `xml:"KeyCount"`
		MaxKeys               int             `xml:"MaxKeys"`
		IsTruncated           bool            `xml:"IsTruncated"`
		ContinuationToken     string          `xml:"ContinuationToken,omitempty"`
		NextContinuationToken string          `xml:"NextContinuationToken,omitempty"`
		Contents              []*ObjInfo      `xml:"Contents"`
		CommonPrefixes        []*CommonPrefix `xml:"CommonPrefixes"`
	}

	ObjInfo struct {
		Key          string `xml:"Key"`
		LastModified string `xml:"LastModified"`
		ETag         string `xml:"ETag"`
		Size         int64  `xml:"Size"`
		Class        string `xml:"StorageClass"`
	}

	CommonPrefix struct {
		Prefix string `xml:"Prefix"`
	}

	ListAllMyBucketsResult struct {
		XMLName xml.Name    `xml:"ListAllMyBucketsResult"`
		Ns      string      `xml:"xmlns,attr"`
		Owner   Owner       `xml:"Owner"`
		Buckets []BucketXML `xml:"Buckets>Bucket"`
	}

	Owner struct {
		ID          string `xml:"ID"`
		DisplayName string `xml:"DisplayName"`
	}

	BucketXML struct {
		Name         string `xml:"Name"`
		CreationDate string `xml:"CreationDate"`
	}

	// VersioningConfiguration renders empty (no Status element) for
	// Disabled, per the S3 contract.
	VersioningConfiguration struct {
		XMLName xml.Name `xml:"VersioningConfiguration"`
		Ns      string   `xml:"xmlns,attr"`
		Status  string   `xml:"Status,omitempty"`
	}

	// LocationConstraint renders empty for us-east-1.
	LocationConstraint struct {
		XMLName xml.Name `xml:"LocationConstraint"`
		Ns      string   `xml:"xmlns,attr"`
		Value   string   `xml:",chardata"`
	}

	CopyObjectResult struct {
		XMLName      xml.Name `xml:"CopyObjectResult"`
		LastModified string   `xml:"LastModified"`
		ETag         string   `xml:"ETag"`
	}

	InitiateMultipartUploadResult struct {
		XMLName  xml.Name `xml:"InitiateMultipartUploadResult"`
		Ns       string   `xml:"xmlns,attr"`
		Bucket   string   `xml:"Bucket"`
		Key      string   `xml:"Key"`
		UploadID string   `xml:"UploadId"`
	}

	CompleteMultipartUploadResult struct {
		XMLName  xml.Name `xml:"CompleteMultipartUploadResult"`
		Ns       string   `xml:"xmlns,attr"`
		Location string   `xml:"Location"`
		Bucket   string   `xml:"Bucket"`
		Key      string   `xml:"Key"`
		ETag     string   `xml:"ETag"`
	}

	// completeMultipartUploadRequest is the inbound body; the part list
	// is advisory in the emulator (parts are resolved from the store).
	completeMultipartUploadRequest struct {
		XMLName xml.Name           `xml:"CompleteMultipartUpload"`
		Parts   []completedPartXML `xml:"Part"`
	}

	completedPartXML struct {
		PartNumber int    `xml:"PartNumber"`
		ETag       string `xml:"ETag"`
	}

	ListPartsResult struct {
		XMLName  xml.Name      `xml:"ListPartsResult"`
		Ns       string        `xml:"xmlns,attr"`
		Bucket   string        `xml:"Bucket"`
		Key      string        `xml:"Key"`
		UploadID string        `xml:"UploadId"`
		Parts    []PartInfoXML `xml:"Part"`
	}

	PartInfoXML struct {
		PartNumber   int    `xml:"PartNumber"`
		LastModified string `xml:"LastModified"`
		ETag         string `xml:"ETag"`
		Size         int64  `xml:"Size"`
	}

	ListMultipartUploadsResult struct {
		XMLName xml.Name        `xml:"ListMultipartUploadsResult"`
		Ns      string          `xml:"xmlns,attr"`
		Bucket  string          `xml:"Bucket"`
		Uploads []UploadInfoXML `xml:"Upload"`
	}

	UploadInfoXML struct {
		Key       string `xml:"Key"`
		UploadID  string `xml:"UploadId"`
		Initiated string `xml:"Initiated"`
	}

	ListVersionsResult struct {
		XMLName       xml.Name           `xml:"ListVersionsResult"`
		Ns            string             `xml:"xmlns,attr"`
		Name          string             `xml:"Name"`
		Prefix        string             `xml:"Prefix"`
		Versions      []*VersionInfo     `xml:"Version"`
		DeleteMarkers []*DeleteMarkerXML `xml:"DeleteMarker"`
	}

	VersionInfo struct {
		Key          string `xml:"Key"`
		VersionID    string `xml:"VersionId"`
		IsLatest     bool   `xml:"IsLatest"`
		LastModified string `xml:"LastModified"`
		ETag         string `xml:"ETag"`
		Size         int64  `xml:"Size"`
		Class        string `xml:"StorageClass"`
	}

	DeleteMarkerXML struct {
		Key          string `xml:"Key"`
		VersionID    string `xml:"VersionId"`
		IsLatest     bool   `xml:"IsLatest"`
		LastModified string `xml:"LastModified"`
	}

	// deleteObjectsRequest is the POST ?delete batch body.
	deleteObjectsRequest struct {
		XMLName xml.Name          `xml:"Delete"`
		Quiet   bool              `xml:"Quiet"`
		Objects []deleteObjectXML `xml:"Object"`
	}

	deleteObjectXML struct {
		Key       string `xml:"Key"`
		VersionID string `xml:"VersionId"`
	}

	DeleteResult struct {
		XMLName xml.Name          `xml:"DeleteResult"`
		Ns      string            `xml:"xmlns,attr"`
		Deleted []DeletedObjXML   `xml:"Deleted"`
		Errors  []DeleteErrorXML  `xml:"Error"`
	}

	DeletedObjXML struct {
		Key       string `xml:"Key"`
		VersionID string `xml:"VersionId,omitempty"`
	}

	DeleteErrorXML struct {
		Key     string `xml:"Key"`
		Code    string `xml:"Code"`
		Message string `xml:"Message"`
	}

	// Tagging is shared by get/put bucket tagging.
	Tagging struct {
		XMLName xml.Name `xml:"Tagging"`
		TagSet  []Tag    `xml:"TagSet>Tag"`
	}

	Tag struct {
		Key   string `xml:"Key"`
		Value string `xml:"Value"`
	}

	versioningRequest struct {
		XMLName xml.Name `xml:"VersioningConfiguration"`
		Status  string   `xml:"Status"`
	}

	createBucketRequest struct {
		XMLName            xml.Name `xml:"CreateBucketConfiguration"`
		LocationConstraint string   `xml:"LocationConstraint"`
	}
)

// mustMarshalXML prepends the XML header; marshal failures on these
// response types cannot happen with valid field values.
func mustMarshalXML(v any) []byte {
	b, err := xml.Marshal(v)
	if err != nil {
		panic(err)
	}
	return append([]byte(xml.Header), b...)
}

func newListBucketResult(name string) *ListBucketResult {
	return &ListBucketResult{
		Ns:       s3Namespace,
		Name:     name,
		MaxKeys:  1000,
		Contents: make([]*ObjInfo, 0),
	}
}

// quoteETag renders the header/body form S3 clients expect.
func quoteETag(etag string) string {
	if etag == "" {
		return etag
	}
	if etag[0] == '"' {
		return etag
	}
	return `"` + etag + `"`
}
