// Package storage provides the shared persistence layer for the cloud emulator.
/*
 * Copyright (c) 2024-2026, CloudEmu Authors. All rights reserved.
 */
package storage

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cloudemu/cloudemu/cmn"
)

// Key states.
const (
	KeyStateEnabled         = "Enabled"
	KeyStateDisabled        = "Disabled"
	KeyStatePendingDeletion = "PendingDeletion"
)

// ciphertextPrefix tags emulator ciphertexts so Decrypt can recover the
// key id; symmetric material is plaintext base64-wrapped, not encrypted.
const ciphertextPrefix = "cloudemu:v1:"

type Key struct {
	ID          string
	Provider    string
	ARN         string
	Description string
	Usage       string
	Spec        string
	State       string
	CreatedAt   string
	DeletionAt  string
	Tags        string
}

func (s *Store) CreateKey(provider, description, usage, spec, account, region string) (*Key, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if usage == "" {
		usage = "ENCRYPT_DECRYPT"
	}
	if spec == "" {
		spec = "SYMMETRIC_DEFAULT"
	}
	material := make([]byte, 32)
	if _, err := rand.Read(material); err != nil {
		return nil, cmn.NewInternal(err.Error())
	}
	k := &Key{
		ID:          uuid.NewString(),
		Provider:    provider,
		Description: description,
		Usage:       usage,
		Spec:        spec,
		State:       KeyStateEnabled,
		CreatedAt:   cmn.NowISO(),
	}
	k.ARN = cmn.ARN("kms", region, account, "key/"+k.ID)
	_, err := s.db.Exec(`
		INSERT INTO kms_keys (id, provider, arn, description, key_usage, key_spec, key_state,
			material, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		k.ID, provider, k.ARN, nullStr(description), usage, spec, k.State, material, k.CreatedAt)
	if err != nil {
		return nil, writeErr(err, "Key", k.ID)
	}
	return k, nil
}

const keyCols = `id, provider, arn, description, key_usage, key_spec, key_state,
	created_at, deletion_date, tags`

func scanKey(row interface{ Scan(...any) error }) (*Key, error) {
	var (
		k                Key
		descr, del, tags sql.NullString
	)
	if err := row.Scan(&k.ID, &k.Provider, &k.ARN, &descr, &k.Usage, &k.Spec, &k.State,
		&k.CreatedAt, &del, &tags); err != nil {
		return nil, err
	}
	k.Description, k.DeletionAt, k.Tags = strOrEmpty(descr), strOrEmpty(del), strOrEmpty(tags)
	return &k, nil
}

// DescribeKey resolves by key id or ARN.
func (s *Store) DescribeKey(provider, keyID string) (*Key, error) {
	row := s.db.QueryRow(`SELECT `+keyCols+` FROM kms_keys
		WHERE provider = ? AND (id = ? OR arn = ?)`, provider, keyID, keyID)
	k, err := scanKey(row)
	if err == sql.ErrNoRows {
		return nil, cmn.NewNotFound("Key", keyID)
	}
	if err != nil {
		return nil, cmn.NewDatabase(err)
	}
	return k, nil
}

func (s *Store) ListKeys(provider string) ([]*Key, error) {
	rows, err := s.db.Query(`SELECT `+keyCols+` FROM kms_keys WHERE provider = ? ORDER BY created_at`,
		provider)
	if err != nil {
		return nil, cmn.NewDatabase(err)
	}
	defer rows.Close()
	var keys []*Key
	for rows.Next() {
		k, err := scanKey(rows)
		if err != nil {
			return nil, cmn.NewDatabase(err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *Store) setKeyState(provider, keyID, state, deletionAt string) (*Key, error) {
	k, err := s.DescribeKey(provider, keyID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec(`
		UPDATE kms_keys SET key_state = ?, deletion_date = ? WHERE id = ?`,
		state, nullStr(deletionAt), k.ID); err != nil {
		return nil, cmn.NewDatabase(err)
	}
	k.State, k.DeletionAt = state, deletionAt
	return k, nil
}

func (s *Store) EnableKey(provider, keyID string) (*Key, error) {
	return s.setKeyState(provider, keyID, KeyStateEnabled, "")
}

func (s *Store) DisableKey(provider, keyID string) (*Key, error) {
	return s.setKeyState(provider, keyID, KeyStateDisabled, "")
}

// ScheduleKeyDeletion is reversible until the window elapses.
func (s *Store) ScheduleKeyDeletion(provider, keyID string, pendingDays int) (*Key, error) {
	if pendingDays <= 0 {
		pendingDays = 30
	}
	deletion := cmn.FormatISO(time.Now().Add(time.Duration(pendingDays) * 24 * time.Hour))
	return s.setKeyState(provider, keyID, KeyStatePendingDeletion, deletion)
}

func (s *Store) CancelKeyDeletion(provider, keyID string) (*Key, error) {
	return s.setKeyState(provider, keyID, KeyStateDisabled, "")
}

func (s *Store) keyMaterial(keyID string) ([]byte, error) {
	var material []byte
	err := s.db.QueryRow(`SELECT material FROM kms_keys WHERE id = ? OR arn = ?`,
		keyID, keyID).Scan(&material)
	if err == sql.ErrNoRows {
		return nil, cmn.NewNotFound("Key", keyID)
	}
	if err != nil {
		return nil, cmn.NewDatabase(err)
	}
	return material, nil
}

func (s *Store) usableKey(provider, keyID string) (*Key, error) {
	k, err := s.DescribeKey(provider, keyID)
	if err != nil {
		return nil, err
	}
	if k.State != KeyStateEnabled {
		return nil, cmn.NewInvalidRequest("key is " + k.State + ": " + k.ID)
	}
	return k, nil
}

// Encrypt wraps the plaintext with the key id; Decrypt unwraps it. The
// emulator intentionally stores no real ciphertext.
func (s *Store) Encrypt(provider, keyID string, plaintext []byte) (string, *Key, error) {
	k, err := s.usableKey(provider, keyID)
	if err != nil {
		return "", nil, err
	}
	blob := ciphertextPrefix + k.ID + ":" + base64.StdEncoding.EncodeToString(plaintext)
	return base64.StdEncoding.EncodeToString([]byte(blob)), k, nil
}

func (s *Store) Decrypt(provider, ciphertextB64 string) ([]byte, *Key, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertextB64)
	if err != nil {
		return nil, nil, cmn.NewInvalidArgument("ciphertext is not valid base64")
	}
	blob := string(raw)
	if !strings.HasPrefix(blob, ciphertextPrefix) {
		return nil, nil, cmn.NewInvalidArgument("unrecognized ciphertext format")
	}
	rest := strings.TrimPrefix(blob, ciphertextPrefix)
	parts := strings.SplitN(rest, ":", 2)
	if len(parts) != 2 {
		return nil, nil, cmn.NewInvalidArgument("unrecognized ciphertext format")
	}
	k, err := s.usableKey(provider, parts[0])
	if err != nil {
		return nil, nil, err
	}
	plaintext, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, nil, cmn.NewInvalidArgument("corrupt ciphertext payload")
	}
	return plaintext, k, nil
}

// GenerateDataKey returns fresh plaintext key material plus its wrapped
// form under the named key.
func (s *Store) GenerateDataKey(provider, keyID string, numBytes int) (plaintext []byte, ciphertextB64 string, _ *Key, _ error) {
	if numBytes <= 0 {
		numBytes = 32
	}
	plaintext = make([]byte, numBytes)
	if _, err := rand.Read(plaintext); err != nil {
		return nil, "", nil, cmn.NewInternal(err.Error())
	}
	ct, k, err := s.Encrypt(provider, keyID, plaintext)
	if err != nil {
		return nil, "", nil, err
	}
	return plaintext, ct, k, nil
}

// Sign produces an HMAC-SHA256 over the message with the key material.
func (s *Store) Sign(provider, keyID string, message []byte) (string, *Key, error) {
	k, err := s.usableKey(provider, keyID)
	if err != nil {
		return "", nil, err
	}
	material, err := s.keyMaterial(k.ID)
	if err != nil {
		return "", nil, err
	}
	mac := hmac.New(sha256.New, material)
	mac.Write(message)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), k, nil
}

func (s *Store) Verify(provider, keyID string, message []byte, signatureB64 string) (bool, *Key, error) {
	sig, k, err := s.Sign(provider, keyID, message)
	if err != nil {
		return false, nil, err
	}
	want, err := base64.StdEncoding.DecodeString(sig)
	if err != nil {
		return false, nil, cmn.NewInternal(err.Error())
	}
	got, err := base64.StdEncoding.DecodeString(signatureB64)
	if err != nil {
		return false, nil, cmn.NewInvalidArgument("signature is not valid base64")
	}
	return hmac.Equal(want, got), k, nil
}

// GenerateRandom returns cryptographically random bytes, base64-encoded.
func (s *Store) GenerateRandom(numBytes int) (string, error) {
	if numBytes <= 0 || numBytes > 1024 {
		return "", cmn.NewInvalidArgument("NumberOfBytes must be within (0, 1024]")
	}
	buf := make([]byte, numBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", cmn.NewInternal(err.Error())
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}
