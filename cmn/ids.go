// Package cmn provides common low-level types and utilities for all cloudemu packages
/*
 * Copyright (c) 2024-2026, CloudEmu Authors. All rights reserved.
 */
package cmn

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenRequestID returns a fresh UUIDv4 carried through response headers.
func GenRequestID() string { return uuid.NewString() }

// GenMessageID returns a UUIDv4 for queue/topic messages and bus events.
func GenMessageID() string { return uuid.NewString() }

// ARN builds an Amazon Resource Name from its parts. Resource may contain
// a type prefix ("stateMachine:name", "key/uuid").
func ARN(service, region, account, resource string) string {
	return fmt.Sprintf("arn:aws:%s:%s:%s:%s", service, region, account, resource)
}

// GlobalARN is for services that carry no region segment (S3, IAM).
func GlobalARN(service, resource string) string {
	return fmt.Sprintf("arn:aws:%s:::%s", service, resource)
}

// QueueURL derives the queue URL from its name, the way SDK clients
// expect it back from CreateQueue/GetQueueUrl.
func QueueURL(region, account, name string) string {
	return fmt.Sprintf("https://sqs.%s.amazonaws.com/%s/%s", region, account, name)
}

// NameFromQueueURL is the inverse used for queue lookup by URL: the
// queue name is the URL tail.
func NameFromQueueURL(url string) string {
	url = strings.TrimRight(url, "/")
	if i := strings.LastIndexByte(url, '/'); i >= 0 {
		return url[i+1:]
	}
	return url
}

// QueueNameFromEndpoint extracts the queue name from a subscription
// endpoint, which may be a queue URL or a queue ARN.
func QueueNameFromEndpoint(endpoint string) string {
	name := NameFromQueueURL(endpoint)
	if i := strings.LastIndexByte(name, ':'); i >= 0 {
		return name[i+1:]
	}
	return name
}

// ISO8601 is the canonical timestamp layout for persisted state.
const ISO8601 = "2006-01-02T15:04:05.000Z"

func FormatISO(t time.Time) string { return t.UTC().Format(ISO8601) }
func NowISO() string               { return FormatISO(time.Now()) }

// FormatHTTP renders Last-Modified/Date headers: "%a, %d %b %Y %H:%M:%S GMT".
func FormatHTTP(t time.Time) string {
	s := t.UTC().Format(time.RFC1123)
	return strings.Replace(s, "UTC", "GMT", 1)
}

// ParseISO tolerates both the canonical layout and RFC3339 input.
func ParseISO(s string) (time.Time, error) {
	if t, err := time.Parse(ISO8601, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
