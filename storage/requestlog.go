// Package storage provides the shared persistence layer for the cloud emulator.
/*
 * Copyright (c) 2024-2026, CloudEmu Authors. All rights reserved.
 */
package storage

import (
	"github.com/cloudemu/cloudemu/cmn"
)

// RequestLogEntry is one audit row; the gateway appends one per
// dispatched request.
type RequestLogEntry struct {
	Timestamp  string
	Provider   string
	Service    string
	Operation  string
	Bucket     string
	Key        string
	StatusCode int
	ErrorCode  string
	RequestID  string
	UserAgent  string
	SourceIP   string
}

// AppendRequestLog records the entry; audit failures are logged, never
// surfaced to the client.
func (s *Store) AppendRequestLog(e *RequestLogEntry) {
	if e.Timestamp == "" {
		e.Timestamp = cmn.NowISO()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec(`
		INSERT INTO request_log (timestamp, provider, service, operation, bucket, key,
			status_code, error_code, request_id, user_agent, source_ip)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Timestamp, e.Provider, e.Service, e.Operation, nullStr(e.Bucket), nullStr(e.Key),
		e.StatusCode, nullStr(e.ErrorCode), e.RequestID, nullStr(e.UserAgent),
		nullStr(e.SourceIP)); err != nil {
		s.log.Warnw("request log append", "err", err)
	}
}

// CountRequestLog is a test hook over the audit table.
func (s *Store) CountRequestLog(provider string) (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM request_log WHERE provider = ?`,
		provider).Scan(&n); err != nil {
		return 0, cmn.NewDatabase(err)
	}
	return n, nil
}
