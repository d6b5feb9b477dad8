// Package storage provides the shared persistence layer for the cloud emulator.
/*
 * Copyright (c) 2024-2026, CloudEmu Authors. All rights reserved.
 */
package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"

	"github.com/cloudemu/cloudemu/cmn"
)

const blobDirName = "objects"

// blobPath lays out blobs as <data_dir>/objects/<hash-prefix>/<hash>.
// Identical payloads share one file.
func (s *Store) blobPath(hash string) string {
	return filepath.Join(s.dir, blobDirName, hash[:2], hash)
}

// PutBlob stores bytes content-addressed and returns the hash. Writing is
// atomic: write-to-temp plus rename. An existing blob is left untouched.
func (s *Store) PutBlob(data []byte) (string, error) {
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])
	path := s.blobPath(hash)
	if _, err := os.Stat(path); err == nil {
		return hash, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", cmn.NewIo(err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return "", cmn.NewIo(err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", cmn.NewIo(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", cmn.NewIo(err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return "", cmn.NewIo(err)
	}
	return hash, nil
}

// GetBlob reads the bytes for a hash.
func (s *Store) GetBlob(hash string) ([]byte, error) {
	if len(hash) < 2 {
		return nil, cmn.NewNotFound("Blob", hash)
	}
	data, err := os.ReadFile(s.blobPath(hash))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, cmn.NewNotFound("Blob", hash)
		}
		return nil, cmn.NewIo(err)
	}
	return data, nil
}

// gcBlob removes the blob file once no metadata row references the hash.
// Collection is lazy: a failed removal is logged and ignored; a failed
// reference count skips the removal without logging.
func (s *Store) gcBlob(hash string) {
	if len(hash) < 2 {
		return
	}
	var n int
	err := s.db.QueryRow(`
		SELECT (SELECT COUNT(*) FROM objects WHERE content_hash = ?) +
		       (SELECT COUNT(*) FROM multipart_parts WHERE content_hash = ?)`,
		hash, hash).Scan(&n)
	if err != nil || n > 0 {
		return
	}
	if err := os.Remove(s.blobPath(hash)); err != nil && !os.IsNotExist(err) {
		s.log.Warnw("blob gc", "hash", hash, "err", err)
	}
}
