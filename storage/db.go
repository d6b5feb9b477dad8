// Package storage provides the shared persistence layer for the cloud emulator:
// one transactional relational store plus a content-addressed blob directory.
/*
 * Copyright (c) 2024-2026, CloudEmu Authors. All rights reserved.
 */
package storage

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/cloudemu/cloudemu/cmn"
)

// Provider namespaces. Families that serve more than one provider key
// their rows by one of these.
const (
	ProviderAWS    = "aws"
	ProviderAzure  = "azure"
	ProviderGCP    = "gcp"
	ProviderOracle = "oracle"
)

const dbFileName = "emulator.db"

type (
	// Store owns the database handle and the blob root. All writes are
	// serialized through mu; readers run concurrently at the handle's
	// isolation level. A single Store is shared by every gateway.
	Store struct {
		db  *sql.DB
		mu  sync.Mutex
		dir string
		log *zap.SugaredLogger

		pricingSeeded bool
	}
)

// Open opens (or creates) the store under dataDir. Opening is idempotent:
// schema creation runs on every open and tolerates existing tables.
func Open(dataDir string, log *zap.SugaredLogger) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, cmn.NewIo(err)
	}
	if err := os.MkdirAll(filepath.Join(dataDir, blobDirName), 0o755); err != nil {
		return nil, cmn.NewIo(err)
	}
	// Pragmas ride the DSN so every pooled connection gets them; the
	// foreign_keys pragma in particular is per-connection.
	dsn := "file:" + filepath.Join(dataDir, dbFileName) +
		"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, cmn.NewDatabase(err)
	}
	if _, err := db.Exec(schemaDDL); err != nil {
		db.Close()
		return nil, cmn.NewDatabase(err)
	}
	s := &Store{db: db, dir: dataDir, log: log}
	log.Infow("store open", "dir", dataDir)
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

// DataDir returns the root directory holding the db file and blob tree.
func (s *Store) DataDir() string { return s.dir }

// isUniqueViolation classifies relational failures: uniqueness collisions
// surface as the domain AlreadyExists, everything else as Database.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint") ||
		strings.Contains(msg, "PRIMARY KEY constraint") ||
		strings.Contains(msg, "constraint failed: UNIQUE")
}

// writeErr maps a write failure to the domain taxonomy.
func writeErr(err error, what, id string) error {
	if isUniqueViolation(err) {
		return cmn.NewAlreadyExists(what, id)
	}
	return cmn.NewDatabase(err)
}

// nullStr converts optional text columns.
func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func strOrEmpty(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}
