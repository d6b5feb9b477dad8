// Package storage provides the shared persistence layer for the cloud emulator.
/*
 * Copyright (c) 2024-2026, CloudEmu Authors. All rights reserved.
 */
package storage

import (
	"database/sql"

	"github.com/cloudemu/cloudemu/cmn"
)

// StageCurrent is the version-stage label that names the active version.
// At most one version of a secret carries it at a time.
const StageCurrent = "AWSCURRENT"

type (
	Secret struct {
		ARN         string
		Provider    string
		Name        string
		Description string
		KMSKeyID    string
		CreatedAt   string
		LastChanged string
		Tags        string // opaque JSON
		DeletedDate string // soft delete marker; non-empty reads as not-found
	}

	SecretVersion struct {
		SecretARN    string
		VersionID    string
		Stages       []string
		SecretString string
		SecretBinary []byte
		CreatedDate  string
	}
)

func marshalStages(stages []string) string {
	b, _ := js.Marshal(stages)
	return string(b)
}

func unmarshalStages(s string) []string {
	var stages []string
	if s == "" || js.UnmarshalFromString(s, &stages) != nil {
		return nil
	}
	return stages
}

// CreateSecret creates the secret and its first version staged current.
func (s *Store) CreateSecret(provider, name, description, kmsKeyID, secretString string, secretBinary []byte, tags, account, region string) (*Secret, *SecretVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sec := &Secret{
		ARN:         cmn.ARN("secretsmanager", region, account, "secret:"+name+"-"+cmn.GenID()),
		Provider:    provider,
		Name:        name,
		Description: description,
		KMSKeyID:    kmsKeyID,
		CreatedAt:   cmn.NowISO(),
		LastChanged: cmn.NowISO(),
		Tags:        tags,
	}
	_, err := s.db.Exec(`
		INSERT INTO secrets (arn, provider, name, description, kms_key_id, created_at,
			last_changed_date, tags)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sec.ARN, provider, name, nullStr(description), nullStr(kmsKeyID),
		sec.CreatedAt, sec.LastChanged, nullStr(tags))
	if err != nil {
		return nil, nil, writeErr(err, "Secret", name)
	}
	ver, err := s.insertVersion(sec.ARN, secretString, secretBinary)
	if err != nil {
		return nil, nil, err
	}
	return sec, ver, nil
}

// insertVersion adds a version staged current and demotes the previous
// current to AWSPREVIOUS. Caller holds the write-lock.
func (s *Store) insertVersion(secretARN, secretString string, secretBinary []byte) (*SecretVersion, error) {
	if _, err := s.db.Exec(`
		UPDATE secret_versions SET version_stages = '[]'
		WHERE secret_arn = ? AND version_stages = ?`,
		secretARN, marshalStages([]string{"AWSPREVIOUS"})); err != nil {
		return nil, cmn.NewDatabase(err)
	}
	if _, err := s.db.Exec(`
		UPDATE secret_versions SET version_stages = ?
		WHERE secret_arn = ? AND version_stages = ?`,
		marshalStages([]string{"AWSPREVIOUS"}), secretARN,
		marshalStages([]string{StageCurrent})); err != nil {
		return nil, cmn.NewDatabase(err)
	}
	ver := &SecretVersion{
		SecretARN:    secretARN,
		VersionID:    cmn.GenMessageID(),
		Stages:       []string{StageCurrent},
		SecretString: secretString,
		SecretBinary: secretBinary,
		CreatedDate:  cmn.NowISO(),
	}
	if _, err := s.db.Exec(`
		INSERT INTO secret_versions (secret_arn, version_id, version_stages, secret_string,
			secret_binary, created_date)
		VALUES (?, ?, ?, ?, ?, ?)`,
		secretARN, ver.VersionID, marshalStages(ver.Stages), nullStr(secretString),
		secretBinary, ver.CreatedDate); err != nil {
		return nil, cmn.NewDatabase(err)
	}
	return ver, nil
}

const secretCols = `arn, provider, name, description, kms_key_id, created_at,
	last_changed_date, tags, deleted_date`

func scanSecret(row interface{ Scan(...any) error }) (*Secret, error) {
	var (
		sec                        Secret
		descr, kms, lc, tags, del  sql.NullString
	)
	if err := row.Scan(&sec.ARN, &sec.Provider, &sec.Name, &descr, &kms, &sec.CreatedAt,
		&lc, &tags, &del); err != nil {
		return nil, err
	}
	sec.Description, sec.KMSKeyID = strOrEmpty(descr), strOrEmpty(kms)
	sec.LastChanged, sec.Tags, sec.DeletedDate = strOrEmpty(lc), strOrEmpty(tags), strOrEmpty(del)
	return &sec, nil
}

// GetSecret resolves by name or ARN. A soft-deleted secret reads as
// not-found; includeDeleted is for restore.
func (s *Store) GetSecret(provider, nameOrARN string, includeDeleted bool) (*Secret, error) {
	row := s.db.QueryRow(`SELECT `+secretCols+` FROM secrets
		WHERE provider = ? AND (name = ? OR arn = ?)`, provider, nameOrARN, nameOrARN)
	sec, err := scanSecret(row)
	if err == sql.ErrNoRows {
		return nil, cmn.NewNotFound("Secret", nameOrARN)
	}
	if err != nil {
		return nil, cmn.NewDatabase(err)
	}
	if sec.DeletedDate != "" && !includeDeleted {
		return nil, cmn.NewNotFound("Secret", nameOrARN)
	}
	return sec, nil
}

func (s *Store) ListSecrets(provider string) ([]*Secret, error) {
	rows, err := s.db.Query(`SELECT `+secretCols+` FROM secrets
		WHERE provider = ? AND deleted_date IS NULL ORDER BY name`, provider)
	if err != nil {
		return nil, cmn.NewDatabase(err)
	}
	defer rows.Close()
	var secrets []*Secret
	for rows.Next() {
		sec, err := scanSecret(rows)
		if err != nil {
			return nil, cmn.NewDatabase(err)
		}
		secrets = append(secrets, sec)
	}
	return secrets, rows.Err()
}

// PutSecretValue rotates in a new version staged current.
func (s *Store) PutSecretValue(provider, nameOrARN, secretString string, secretBinary []byte) (*SecretVersion, error) {
	sec, err := s.GetSecret(provider, nameOrARN, false)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ver, err := s.insertVersion(sec.ARN, secretString, secretBinary)
	if err != nil {
		return nil, err
	}
	if _, err := s.db.Exec(`UPDATE secrets SET last_changed_date = ? WHERE arn = ?`,
		cmn.NowISO(), sec.ARN); err != nil {
		return nil, cmn.NewDatabase(err)
	}
	return ver, nil
}

// GetSecretValue fetches by version id, by stage label, or the current
// version when neither is given.
func (s *Store) GetSecretValue(provider, nameOrARN, versionID, stage string) (*Secret, *SecretVersion, error) {
	sec, err := s.GetSecret(provider, nameOrARN, false)
	if err != nil {
		return nil, nil, err
	}
	versions, err := s.ListSecretVersions(provider, nameOrARN)
	if err != nil {
		return nil, nil, err
	}
	if versionID == "" && stage == "" {
		stage = StageCurrent
	}
	for _, v := range versions {
		if versionID != "" && v.VersionID == versionID {
			return sec, v, nil
		}
		if versionID == "" {
			for _, st := range v.Stages {
				if st == stage {
					return sec, v, nil
				}
			}
		}
	}
	return nil, nil, cmn.NewNotFound("SecretVersion", nameOrARN)
}

func (s *Store) ListSecretVersions(provider, nameOrARN string) ([]*SecretVersion, error) {
	sec, err := s.GetSecret(provider, nameOrARN, true)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Query(`
		SELECT secret_arn, version_id, version_stages, secret_string, secret_binary, created_date
		FROM secret_versions WHERE secret_arn = ? ORDER BY created_date DESC`, sec.ARN)
	if err != nil {
		return nil, cmn.NewDatabase(err)
	}
	defer rows.Close()
	var versions []*SecretVersion
	for rows.Next() {
		var (
			v          SecretVersion
			stages, ss sql.NullString
		)
		if err := rows.Scan(&v.SecretARN, &v.VersionID, &stages, &ss, &v.SecretBinary,
			&v.CreatedDate); err != nil {
			return nil, cmn.NewDatabase(err)
		}
		v.Stages = unmarshalStages(strOrEmpty(stages))
		v.SecretString = strOrEmpty(ss)
		versions = append(versions, &v)
	}
	return versions, rows.Err()
}

func (s *Store) UpdateSecret(provider, nameOrARN, description, kmsKeyID string) (*Secret, error) {
	sec, err := s.GetSecret(provider, nameOrARN, false)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if description != "" {
		sec.Description = description
	}
	if kmsKeyID != "" {
		sec.KMSKeyID = kmsKeyID
	}
	sec.LastChanged = cmn.NowISO()
	if _, err := s.db.Exec(`
		UPDATE secrets SET description = ?, kms_key_id = ?, last_changed_date = ? WHERE arn = ?`,
		nullStr(sec.Description), nullStr(sec.KMSKeyID), sec.LastChanged, sec.ARN); err != nil {
		return nil, cmn.NewDatabase(err)
	}
	return sec, nil
}

func (s *Store) TagSecret(provider, nameOrARN, tags string) error {
	sec, err := s.GetSecret(provider, nameOrARN, false)
	if err != nil {
		return err
	}
	return s.updateSecretField(sec.ARN, "tags", tags)
}

func (s *Store) updateSecretField(arn, field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec(`UPDATE secrets SET `+field+` = ? WHERE arn = ?`,
		nullStr(value), arn); err != nil {
		return cmn.NewDatabase(err)
	}
	return nil
}

// DeleteSecret is soft: the row survives with deleted_date set so that
// RestoreSecret can bring it back. No recovery window is tracked; a
// restore succeeds at any time and the row is never purged.
func (s *Store) DeleteSecret(provider, nameOrARN string) (*Secret, error) {
	sec, err := s.GetSecret(provider, nameOrARN, false)
	if err != nil {
		return nil, err
	}
	sec.DeletedDate = cmn.NowISO()
	if err := s.updateSecretField(sec.ARN, "deleted_date", sec.DeletedDate); err != nil {
		return nil, err
	}
	return sec, nil
}

func (s *Store) RestoreSecret(provider, nameOrARN string) (*Secret, error) {
	sec, err := s.GetSecret(provider, nameOrARN, true)
	if err != nil {
		return nil, err
	}
	sec.DeletedDate = ""
	if err := s.updateSecretField(sec.ARN, "deleted_date", ""); err != nil {
		return nil, err
	}
	return sec, nil
}
