// Package cmn provides common low-level types and utilities for all cloudemu packages
/*
 * Copyright (c) 2024-2026, CloudEmu Authors. All rights reserved.
 */
package cmn

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrKind classifies every failure the emulator can surface. Handlers and
// domain-store operations construct kinds; the per-provider serializers
// decide how a kind looks on the wire.
type ErrKind int

const (
	KindNoSuchBucket ErrKind = iota
	KindNoSuchKey
	KindNoSuchBucketPolicy
	KindNotFound
	KindBucketAlreadyExists
	KindAlreadyExists
	KindBucketNotEmpty
	KindInvalidRequest
	KindInvalidArgument
	KindMalformedXML
	KindMalformedPolicy
	KindInvalidObjectState
	KindInternal
	KindDatabase
	KindIo
	KindJSON
)

type (
	// Err is the emulator-wide typed error. The kind selects the wire
	// shape, the context string becomes the message field.
	Err struct {
		kind ErrKind
		ctx  string
	}
)

func (e *Err) Error() string { return fmt.Sprintf("%s: %s", e.AWSCode(), e.ctx) }
func (e *Err) Kind() ErrKind { return e.kind }
func (e *Err) Context() string {
	if e.ctx != "" {
		return e.ctx
	}
	return e.AWSCode()
}

// AWSCode is the default AWS-facing error code for the kind. Provider
// serializers may override it (e.g. S3 renders KindInvalidObjectState as
// InvalidRange on ranged reads).
func (e *Err) AWSCode() string {
	switch e.kind {
	case KindNoSuchBucket:
		return "NoSuchBucket"
	case KindNoSuchKey:
		return "NoSuchKey"
	case KindNoSuchBucketPolicy:
		return "NoSuchBucketPolicy"
	case KindNotFound:
		return "ResourceNotFoundException"
	case KindBucketAlreadyExists:
		return "BucketAlreadyOwnedByYou"
	case KindAlreadyExists:
		return "ResourceAlreadyExistsException"
	case KindBucketNotEmpty:
		return "BucketNotEmpty"
	case KindInvalidRequest:
		return "InvalidRequest"
	case KindInvalidArgument:
		return "InvalidArgument"
	case KindMalformedXML:
		return "MalformedXML"
	case KindMalformedPolicy:
		return "MalformedPolicy"
	case KindInvalidObjectState:
		return "InvalidObjectState"
	default:
		return "InternalError"
	}
}

// HTTPStatus follows the error-taxonomy table: 404 for missing targets,
// 409 for unique-key collisions, 400 for caller faults, 500 otherwise.
func (e *Err) HTTPStatus() int {
	switch e.kind {
	case KindNoSuchBucket, KindNoSuchKey, KindNoSuchBucketPolicy, KindNotFound:
		return http.StatusNotFound
	case KindBucketAlreadyExists, KindAlreadyExists:
		return http.StatusConflict
	case KindBucketNotEmpty, KindInvalidRequest, KindInvalidArgument,
		KindMalformedXML, KindMalformedPolicy, KindInvalidObjectState:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func newErr(kind ErrKind, ctx string) *Err { return &Err{kind: kind, ctx: ctx} }

func NewNoSuchBucket(name string) *Err {
	return newErr(KindNoSuchBucket, "The specified bucket does not exist: "+name)
}

func NewNoSuchKey(key string) *Err {
	return newErr(KindNoSuchKey, "The specified key does not exist: "+key)
}

func NewNoSuchBucketPolicy(bucket string) *Err {
	return newErr(KindNoSuchBucketPolicy, "The bucket policy does not exist: "+bucket)
}

func NewNotFound(what, id string) *Err {
	return newErr(KindNotFound, fmt.Sprintf("%s not found: %s", what, id))
}

func NewBucketAlreadyExists(name string) *Err {
	return newErr(KindBucketAlreadyExists,
		"Your previous request to create the named bucket succeeded and you already own it: "+name)
}

func NewAlreadyExists(what, id string) *Err {
	return newErr(KindAlreadyExists, fmt.Sprintf("%s already exists: %s", what, id))
}

func NewBucketNotEmpty(name string) *Err {
	return newErr(KindBucketNotEmpty, "The bucket you tried to delete is not empty: "+name)
}

func NewInvalidRequest(msg string) *Err  { return newErr(KindInvalidRequest, msg) }
func NewInvalidArgument(msg string) *Err { return newErr(KindInvalidArgument, msg) }

func NewMalformedXML(msg string) *Err {
	return newErr(KindMalformedXML, "The XML you provided was not well-formed: "+msg)
}

func NewMalformedPolicy(msg string) *Err {
	return newErr(KindMalformedPolicy, "Malformed policy: "+msg)
}

func NewInvalidObjectState(msg string) *Err { return newErr(KindInvalidObjectState, msg) }

func NewInternal(msg string) *Err { return newErr(KindInternal, msg) }

func NewDatabase(err error) *Err { return newErr(KindDatabase, err.Error()) }
func NewIo(err error) *Err       { return newErr(KindIo, err.Error()) }
func NewJSON(err error) *Err     { return newErr(KindJSON, err.Error()) }

// AsErr normalizes any error to *Err; unclassified errors become Internal.
func AsErr(err error) *Err {
	var e *Err
	if errors.As(err, &e) {
		return e
	}
	return newErr(KindInternal, err.Error())
}

// KindOf returns the kind of err, or KindInternal for foreign errors.
func KindOf(err error) ErrKind { return AsErr(err).Kind() }

func IsErrKind(err error, kind ErrKind) bool {
	var e *Err
	return errors.As(err, &e) && e.kind == kind
}

// IsNotFound covers every missing-target kind.
func IsNotFound(err error) bool {
	switch KindOf(err) {
	case KindNoSuchBucket, KindNoSuchKey, KindNoSuchBucketPolicy, KindNotFound:
		return true
	}
	return false
}
