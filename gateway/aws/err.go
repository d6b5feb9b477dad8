// Package aws implements the AWS provider gateway.
/*
 * Copyright (c) 2024-2026, CloudEmu Authors. All rights reserved.
 */
package aws

import (
	"encoding/xml"
	"net/http"

	"github.com/cloudemu/cloudemu/cmn"
	"github.com/cloudemu/cloudemu/gateway"
)

// errorXML is the S3 REST error body.
type errorXML struct {
	XMLName   xml.Name `xml:"Error"`
	Code      string   `xml:"Code"`
	Message   string   `xml:"Message"`
	RequestID string   `xml:"RequestId"`
}

// s3Error renders the error taxonomy to the S3 XML dialect. Ranged-read
// failures surface as InvalidRange with 416 per the S3 contract.
func s3Error(req *gateway.Request, err error, bucket, key string) *gateway.Response {
	e := cmn.AsErr(err)
	code, status := e.AWSCode(), e.HTTPStatus()
	if e.Kind() == cmn.KindInvalidObjectState && req.Header.Get("Range") != "" {
		code, status = "InvalidRange", http.StatusRequestedRangeNotSatisfiable
	}
	body, _ := xml.Marshal(&errorXML{Code: code, Message: e.Context(), RequestID: req.RequestID})
	resp := gateway.XMLResponse(status, append([]byte(xml.Header), body...))
	resp.Service, resp.Operation = "s3", ""
	resp.Bucket, resp.Key = bucket, key
	resp.ErrorCode = code
	return resp
}

// jsonError is the AWS control-plane error shape:
// {"__type": "<code>", "message": "<text>"}.
func jsonError(req *gateway.Request, service, op string, err error) *gateway.Response {
	e := cmn.AsErr(err)
	resp := gateway.JSONResponse(e.HTTPStatus(), map[string]string{
		"__type":  e.AWSCode(),
		"message": e.Context(),
	})
	resp.Service, resp.Operation, resp.ErrorCode = service, op, e.AWSCode()
	return resp
}

// snsError wraps the code and message in the query-dialect envelope.
func snsError(req *gateway.Request, op string, err error) *gateway.Response {
	e := cmn.AsErr(err)
	resp := gateway.JSONResponse(e.HTTPStatus(), map[string]any{
		"Error": map[string]string{
			"Code":    e.AWSCode(),
			"Message": e.Context(),
		},
	})
	resp.Service, resp.Operation, resp.ErrorCode = "sns", op, e.AWSCode()
	return resp
}
