// Package storage provides the shared persistence layer for the cloud emulator.
/*
 * Copyright (c) 2024-2026, CloudEmu Authors. All rights reserved.
 */
package storage

import (
	"crypto/md5"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/cloudemu/cloudemu/cmn"
)

var js = jsoniter.ConfigCompatibleWithStandardLibrary

// Bucket versioning states.
const (
	VersioningDisabled  = "Disabled"
	VersioningEnabled   = "Enabled"
	VersioningSuspended = "Suspended"

	// NullVersionID marks objects written while versioning is off.
	NullVersionID = "null"

	DefaultStorageClass = "STANDARD"
)

type (
	Bucket struct {
		Provider          string
		Name              string
		Region            string
		CreatedAt         string
		OwnerID           string
		Versioning        string
		ACL               string
		Policy            string
		LifecycleRules    string
		CORSRules         string
		NotificationConf  string
		PublicAccessBlock string
		Tags              string
		ObjectLockEnabled bool
	}

	Object struct {
		Provider           string
		Bucket             string
		Key                string
		VersionID          string
		IsLatest           bool
		IsDeleteMarker     bool
		ContentHash        string
		Size               int64
		ContentType        string
		ContentEncoding    string
		CacheControl       string
		ContentDisposition string
		ETag               string
		LastModified       string
		Metadata           map[string]string
		StorageClass       string
	}

	PutObjectInput struct {
		Bucket             string
		Key                string
		Body               []byte
		ContentType        string
		ContentEncoding    string
		CacheControl       string
		ContentDisposition string
		Metadata           map[string]string
		StorageClass       string
	}

	ListObjectsInput struct {
		Bucket            string
		Prefix            string
		Delimiter         string
		MaxKeys           int
		ContinuationToken string
		StartAfter        string
	}

	ListObjectsResult struct {
		Objects               []*Object
		CommonPrefixes        []string
		IsTruncated           bool
		NextContinuationToken string
	}

	Upload struct {
		UploadID  string
		Provider  string
		Bucket    string
		Key       string
		Initiated string
		Metadata  map[string]string
	}

	Part struct {
		UploadID     string
		PartNumber   int
		ContentHash  string
		Size         int64
		ETag         string
		LastModified string
	}

	DeleteObjectResult struct {
		DeleteMarker bool
		VersionID    string
	}
)

func md5Hex(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

func marshalMeta(m map[string]string) any {
	if len(m) == 0 {
		return nil
	}
	b, _ := js.Marshal(m)
	return string(b)
}

// unmarshalMeta tolerates malformed stored JSON and falls back to empty.
func unmarshalMeta(s string) map[string]string {
	if s == "" {
		return nil
	}
	m := make(map[string]string)
	if err := js.UnmarshalFromString(s, &m); err != nil {
		return nil
	}
	return m
}

//
// buckets
//

func (s *Store) CreateBucket(provider, name, region, owner string) (*Bucket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := &Bucket{
		Provider:   provider,
		Name:       name,
		Region:     region,
		CreatedAt:  cmn.NowISO(),
		OwnerID:    owner,
		Versioning: VersioningDisabled,
	}
	_, err := s.db.Exec(`
		INSERT INTO buckets (provider, name, region, created_at, owner_id, versioning)
		VALUES (?, ?, ?, ?, ?, ?)`,
		provider, name, region, b.CreatedAt, owner, b.Versioning)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, cmn.NewBucketAlreadyExists(name)
		}
		return nil, cmn.NewDatabase(err)
	}
	return b, nil
}

func scanBucket(row interface{ Scan(...any) error }) (*Bucket, error) {
	var (
		b                                                     Bucket
		acl, policy, lc, cors, notif, pab, tags               sql.NullString
		lock                                                  int
	)
	err := row.Scan(&b.Provider, &b.Name, &b.Region, &b.CreatedAt, &b.OwnerID, &b.Versioning,
		&acl, &policy, &lc, &cors, &notif, &pab, &tags, &lock)
	if err != nil {
		return nil, err
	}
	b.ACL, b.Policy, b.LifecycleRules = strOrEmpty(acl), strOrEmpty(policy), strOrEmpty(lc)
	b.CORSRules, b.NotificationConf = strOrEmpty(cors), strOrEmpty(notif)
	b.PublicAccessBlock, b.Tags = strOrEmpty(pab), strOrEmpty(tags)
	b.ObjectLockEnabled = lock != 0
	return &b, nil
}

const bucketCols = `provider, name, region, created_at, owner_id, versioning,
	acl, policy, lifecycle_rules, cors_rules, notification_config, public_access_block, tags,
	object_lock_enabled`

func (s *Store) GetBucket(provider, name string) (*Bucket, error) {
	row := s.db.QueryRow(`SELECT `+bucketCols+` FROM buckets WHERE provider = ? AND name = ?`,
		provider, name)
	b, err := scanBucket(row)
	if err == sql.ErrNoRows {
		return nil, cmn.NewNoSuchBucket(name)
	}
	if err != nil {
		return nil, cmn.NewDatabase(err)
	}
	return b, nil
}

func (s *Store) ListBuckets(provider string) ([]*Bucket, error) {
	rows, err := s.db.Query(`SELECT `+bucketCols+` FROM buckets WHERE provider = ? ORDER BY name`,
		provider)
	if err != nil {
		return nil, cmn.NewDatabase(err)
	}
	defer rows.Close()
	var buckets []*Bucket
	for rows.Next() {
		b, err := scanBucket(rows)
		if err != nil {
			return nil, cmn.NewDatabase(err)
		}
		buckets = append(buckets, b)
	}
	return buckets, rows.Err()
}

// DeleteBucket refuses when live objects remain, unless force; force
// cascades objects and uploads.
func (s *Store) DeleteBucket(provider, name string, force bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.getBucketLocked(provider, name); err != nil {
		return err
	}
	if !force {
		var n int
		err := s.db.QueryRow(`
			SELECT COUNT(*) FROM objects
			WHERE provider = ? AND bucket = ? AND is_delete_marker = 0`,
			provider, name).Scan(&n)
		if err != nil {
			return cmn.NewDatabase(err)
		}
		if n > 0 {
			return cmn.NewBucketNotEmpty(name)
		}
	}
	hashes, _ := s.bucketHashes(provider, name)
	if _, err := s.db.Exec(`DELETE FROM buckets WHERE provider = ? AND name = ?`,
		provider, name); err != nil {
		return cmn.NewDatabase(err)
	}
	for _, h := range hashes {
		s.gcBlob(h)
	}
	return nil
}

func (s *Store) getBucketLocked(provider, name string) (*Bucket, error) {
	row := s.db.QueryRow(`SELECT `+bucketCols+` FROM buckets WHERE provider = ? AND name = ?`,
		provider, name)
	b, err := scanBucket(row)
	if err == sql.ErrNoRows {
		return nil, cmn.NewNoSuchBucket(name)
	}
	if err != nil {
		return nil, cmn.NewDatabase(err)
	}
	return b, nil
}

func (s *Store) bucketHashes(provider, name string) ([]string, error) {
	rows, err := s.db.Query(`
		SELECT DISTINCT content_hash FROM objects
		WHERE provider = ? AND bucket = ? AND content_hash != ''`, provider, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var hashes []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err == nil {
			hashes = append(hashes, h)
		}
	}
	return hashes, rows.Err()
}

func (s *Store) SetBucketVersioning(provider, name, status string) error {
	switch status {
	case VersioningEnabled, VersioningSuspended, VersioningDisabled:
	default:
		return cmn.NewInvalidArgument("invalid versioning status: " + status)
	}
	return s.updateBucketField(provider, name, "versioning", status)
}

func (s *Store) SetBucketPolicy(provider, name, policy string) error {
	return s.updateBucketField(provider, name, "policy", policy)
}

func (s *Store) GetBucketPolicy(provider, name string) (string, error) {
	b, err := s.GetBucket(provider, name)
	if err != nil {
		return "", err
	}
	if b.Policy == "" {
		return "", cmn.NewNoSuchBucketPolicy(name)
	}
	return b.Policy, nil
}

func (s *Store) DeleteBucketPolicy(provider, name string) error {
	return s.updateBucketField(provider, name, "policy", "")
}

func (s *Store) SetBucketTags(provider, name, tags string) error {
	return s.updateBucketField(provider, name, "tags", tags)
}

func (s *Store) updateBucketField(provider, name, field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(`UPDATE buckets SET `+field+` = ? WHERE provider = ? AND name = ?`,
		nullStr(value), provider, name)
	if err != nil {
		return cmn.NewDatabase(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return cmn.NewNoSuchBucket(name)
	}
	return nil
}

//
// objects
//

const objectCols = `provider, bucket, key, version_id, is_latest, is_delete_marker,
	content_hash, content_length, content_type, content_encoding, cache_control,
	content_disposition, etag, last_modified, metadata, storage_class`

func scanObject(row interface{ Scan(...any) error }) (*Object, error) {
	var (
		o                      Object
		verID, enc, cc, cd, md sql.NullString
		ctype, class           sql.NullString
		latest, marker         int
	)
	err := row.Scan(&o.Provider, &o.Bucket, &o.Key, &verID, &latest, &marker,
		&o.ContentHash, &o.Size, &ctype, &enc, &cc, &cd, &o.ETag, &o.LastModified, &md, &class)
	if err != nil {
		return nil, err
	}
	o.VersionID = strOrEmpty(verID)
	o.IsLatest, o.IsDeleteMarker = latest != 0, marker != 0
	o.ContentType, o.ContentEncoding = strOrEmpty(ctype), strOrEmpty(enc)
	o.CacheControl, o.ContentDisposition = strOrEmpty(cc), strOrEmpty(cd)
	o.Metadata = unmarshalMeta(strOrEmpty(md))
	o.StorageClass = strOrEmpty(class)
	return &o, nil
}

// PutObject stores the payload content-addressed and upserts the metadata
// row. With versioning enabled every put lands a fresh version id; with
// versioning off the previous row for the key is replaced.
func (s *Store) PutObject(provider string, in *PutObjectInput) (*Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bck, err := s.getBucketLocked(provider, in.Bucket)
	if err != nil {
		return nil, err
	}
	hash, err := s.PutBlob(in.Body)
	if err != nil {
		return nil, err
	}
	o := &Object{
		Provider:           provider,
		Bucket:             in.Bucket,
		Key:                in.Key,
		VersionID:          NullVersionID,
		IsLatest:           true,
		ContentHash:        hash,
		Size:               int64(len(in.Body)),
		ContentType:        in.ContentType,
		ContentEncoding:    in.ContentEncoding,
		CacheControl:       in.CacheControl,
		ContentDisposition: in.ContentDisposition,
		ETag:               md5Hex(in.Body),
		LastModified:       cmn.NowISO(),
		Metadata:           in.Metadata,
		StorageClass:       in.StorageClass,
	}
	if o.ContentType == "" {
		o.ContentType = "application/octet-stream"
	}
	if o.StorageClass == "" {
		o.StorageClass = DefaultStorageClass
	}
	if bck.Versioning == VersioningEnabled {
		o.VersionID = cmn.GenID()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, cmn.NewDatabase(err)
	}
	defer tx.Rollback()

	var stale []string
	if o.VersionID == NullVersionID {
		// Replace the existing null version (and, with versioning fully
		// disabled, any stray versions for the key).
		cond := `provider = ? AND bucket = ? AND key = ?`
		args := []any{provider, in.Bucket, in.Key}
		if bck.Versioning != VersioningDisabled {
			cond += ` AND version_id = ?`
			args = append(args, NullVersionID)
		}
		rows, err := tx.Query(`SELECT DISTINCT content_hash FROM objects WHERE `+cond, args...)
		if err == nil {
			for rows.Next() {
				var h string
				if rows.Scan(&h) == nil && h != "" {
					stale = append(stale, h)
				}
			}
			rows.Close()
		}
		if _, err := tx.Exec(`DELETE FROM objects WHERE `+cond, args...); err != nil {
			return nil, cmn.NewDatabase(err)
		}
	}
	if _, err := tx.Exec(`
		UPDATE objects SET is_latest = 0
		WHERE provider = ? AND bucket = ? AND key = ? AND is_latest = 1`,
		provider, in.Bucket, in.Key); err != nil {
		return nil, cmn.NewDatabase(err)
	}
	if _, err := tx.Exec(`
		INSERT INTO objects (provider, bucket, key, version_id, is_latest, is_delete_marker,
			content_hash, content_length, content_type, content_encoding, cache_control,
			content_disposition, etag, last_modified, metadata, storage_class)
		VALUES (?, ?, ?, ?, 1, 0, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		provider, in.Bucket, in.Key, o.VersionID, hash, o.Size, o.ContentType,
		nullStr(o.ContentEncoding), nullStr(o.CacheControl), nullStr(o.ContentDisposition),
		o.ETag, o.LastModified, marshalMeta(o.Metadata), o.StorageClass); err != nil {
		return nil, writeErr(err, "Object", in.Key)
	}
	if err := tx.Commit(); err != nil {
		return nil, cmn.NewDatabase(err)
	}
	for _, h := range stale {
		s.gcBlob(h)
	}
	return o, nil
}

// GetObjectMeta resolves the latest (or the named) version. A latest
// delete marker reads as NoSuchKey.
func (s *Store) GetObjectMeta(provider, bucket, key, versionID string) (*Object, error) {
	if _, err := s.GetBucket(provider, bucket); err != nil {
		return nil, err
	}
	var row *sql.Row
	if versionID != "" {
		row = s.db.QueryRow(`SELECT `+objectCols+` FROM objects
			WHERE provider = ? AND bucket = ? AND key = ? AND version_id = ?`,
			provider, bucket, key, versionID)
	} else {
		row = s.db.QueryRow(`SELECT `+objectCols+` FROM objects
			WHERE provider = ? AND bucket = ? AND key = ? AND is_latest = 1`,
			provider, bucket, key)
	}
	o, err := scanObject(row)
	if err == sql.ErrNoRows {
		return nil, cmn.NewNoSuchKey(key)
	}
	if err != nil {
		return nil, cmn.NewDatabase(err)
	}
	if o.IsDeleteMarker {
		return nil, cmn.NewNoSuchKey(key)
	}
	return o, nil
}

func (s *Store) GetObject(provider, bucket, key, versionID string) (*Object, []byte, error) {
	o, err := s.GetObjectMeta(provider, bucket, key, versionID)
	if err != nil {
		return nil, nil, err
	}
	data, err := s.GetBlob(o.ContentHash)
	if err != nil {
		return nil, nil, err
	}
	return o, data, nil
}

// DeleteObject is idempotent. With versioning enabled and no explicit
// version id a delete marker is written; otherwise rows are removed.
func (s *Store) DeleteObject(provider, bucket, key, versionID string) (*DeleteObjectResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bck, err := s.getBucketLocked(provider, bucket)
	if err != nil {
		return nil, err
	}
	res := &DeleteObjectResult{}
	if versionID == "" && bck.Versioning == VersioningEnabled {
		marker := cmn.GenID()
		tx, err := s.db.Begin()
		if err != nil {
			return nil, cmn.NewDatabase(err)
		}
		defer tx.Rollback()
		if _, err := tx.Exec(`
			UPDATE objects SET is_latest = 0
			WHERE provider = ? AND bucket = ? AND key = ? AND is_latest = 1`,
			provider, bucket, key); err != nil {
			return nil, cmn.NewDatabase(err)
		}
		if _, err := tx.Exec(`
			INSERT INTO objects (provider, bucket, key, version_id, is_latest, is_delete_marker,
				content_hash, content_length, etag, last_modified)
			VALUES (?, ?, ?, ?, 1, 1, '', 0, '', ?)`,
			provider, bucket, key, marker, cmn.NowISO()); err != nil {
			return nil, cmn.NewDatabase(err)
		}
		if err := tx.Commit(); err != nil {
			return nil, cmn.NewDatabase(err)
		}
		res.DeleteMarker, res.VersionID = true, marker
		return res, nil
	}

	cond := `provider = ? AND bucket = ? AND key = ?`
	args := []any{provider, bucket, key}
	if versionID != "" {
		cond += ` AND version_id = ?`
		args = append(args, versionID)
		res.VersionID = versionID
	}
	var hashes []string
	rows, err := s.db.Query(`SELECT DISTINCT content_hash FROM objects WHERE `+cond, args...)
	if err == nil {
		for rows.Next() {
			var h string
			if rows.Scan(&h) == nil && h != "" {
				hashes = append(hashes, h)
			}
		}
		rows.Close()
	}
	if _, err := s.db.Exec(`DELETE FROM objects WHERE `+cond, args...); err != nil {
		return nil, cmn.NewDatabase(err)
	}
	if versionID != "" {
		// Promote the most recent surviving version.
		if _, err := s.db.Exec(`
			UPDATE objects SET is_latest = 1
			WHERE id = (SELECT id FROM objects
				WHERE provider = ? AND bucket = ? AND key = ?
				ORDER BY last_modified DESC, id DESC LIMIT 1)
			AND NOT EXISTS (SELECT 1 FROM objects
				WHERE provider = ? AND bucket = ? AND key = ? AND is_latest = 1)`,
			provider, bucket, key, provider, bucket, key); err != nil {
			return nil, cmn.NewDatabase(err)
		}
	}
	for _, h := range hashes {
		s.gcBlob(h)
	}
	return res, nil
}

func (s *Store) CopyObject(provider, srcBucket, srcKey, dstBucket, dstKey string) (*Object, error) {
	src, data, err := s.GetObject(provider, srcBucket, srcKey, "")
	if err != nil {
		return nil, err
	}
	return s.PutObject(provider, &PutObjectInput{
		Bucket:             dstBucket,
		Key:                dstKey,
		Body:               data,
		ContentType:        src.ContentType,
		ContentEncoding:    src.ContentEncoding,
		CacheControl:       src.CacheControl,
		ContentDisposition: src.ContentDisposition,
		Metadata:           src.Metadata,
		StorageClass:       src.StorageClass,
	})
}

func encodeToken(key string) string { return base64.StdEncoding.EncodeToString([]byte(key)) }

func decodeToken(tok string) string {
	b, err := base64.StdEncoding.DecodeString(tok)
	if err != nil {
		return ""
	}
	return string(b)
}

// ListObjectsV2 enumerates latest, non-marker objects. With a delimiter,
// keys sharing a prefix up to the next delimiter collapse into common
// prefixes; keys and prefixes both count toward MaxKeys.
func (s *Store) ListObjectsV2(provider string, in *ListObjectsInput) (*ListObjectsResult, error) {
	if _, err := s.GetBucket(provider, in.Bucket); err != nil {
		return nil, err
	}
	maxKeys := in.MaxKeys
	if maxKeys < 0 || maxKeys > 1000 {
		maxKeys = 1000
	}
	res := &ListObjectsResult{}
	if maxKeys == 0 {
		return res, nil
	}
	after := in.StartAfter
	if in.ContinuationToken != "" {
		after = decodeToken(in.ContinuationToken)
	}
	rows, err := s.db.Query(`
		SELECT `+objectCols+` FROM objects
		WHERE provider = ? AND bucket = ? AND is_latest = 1 AND is_delete_marker = 0
		  AND key > ? AND key LIKE ? ESCAPE '\'
		ORDER BY key`,
		provider, in.Bucket, after, likePattern(in.Prefix))
	if err != nil {
		return nil, cmn.NewDatabase(err)
	}
	defer rows.Close()

	seenPrefix := make(map[string]bool)
	count := 0
	for rows.Next() {
		o, err := scanObject(rows)
		if err != nil {
			return nil, cmn.NewDatabase(err)
		}
		if count >= maxKeys {
			res.IsTruncated = true
			res.NextContinuationToken = encodeToken(lastListedKey(res))
			break
		}
		if in.Delimiter != "" {
			rest := strings.TrimPrefix(o.Key, in.Prefix)
			if i := strings.Index(rest, in.Delimiter); i >= 0 {
				cp := in.Prefix + rest[:i+len(in.Delimiter)]
				if !seenPrefix[cp] {
					seenPrefix[cp] = true
					res.CommonPrefixes = append(res.CommonPrefixes, cp)
					count++
				}
				continue
			}
		}
		res.Objects = append(res.Objects, o)
		count++
	}
	return res, rows.Err()
}

func lastListedKey(res *ListObjectsResult) string {
	last := ""
	if n := len(res.Objects); n > 0 {
		last = res.Objects[n-1].Key
	}
	if n := len(res.CommonPrefixes); n > 0 {
		if cp := res.CommonPrefixes[n-1]; cp > last {
			last = cp
		}
	}
	return last
}

// likePattern escapes LIKE metacharacters in the prefix.
func likePattern(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(prefix) + "%"
}

// ListObjectVersions returns every version for keys under prefix, newest
// first within a key.
func (s *Store) ListObjectVersions(provider, bucket, prefix string) ([]*Object, error) {
	if _, err := s.GetBucket(provider, bucket); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(`
		SELECT `+objectCols+` FROM objects
		WHERE provider = ? AND bucket = ? AND key LIKE ? ESCAPE '\'
		ORDER BY key, last_modified DESC, id DESC`,
		provider, bucket, likePattern(prefix))
	if err != nil {
		return nil, cmn.NewDatabase(err)
	}
	defer rows.Close()
	var objs []*Object
	for rows.Next() {
		o, err := scanObject(rows)
		if err != nil {
			return nil, cmn.NewDatabase(err)
		}
		objs = append(objs, o)
	}
	return objs, rows.Err()
}

//
// multipart
//

func (s *Store) CreateMultipartUpload(provider, bucket, key string, metadata map[string]string) (*Upload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.getBucketLocked(provider, bucket); err != nil {
		return nil, err
	}
	up := &Upload{
		UploadID:  cmn.GenID() + cmn.GenID(),
		Provider:  provider,
		Bucket:    bucket,
		Key:       key,
		Initiated: cmn.NowISO(),
		Metadata:  metadata,
	}
	_, err := s.db.Exec(`
		INSERT INTO multipart_uploads (upload_id, provider, bucket, key, initiated, metadata)
		VALUES (?, ?, ?, ?, ?, ?)`,
		up.UploadID, provider, bucket, key, up.Initiated, marshalMeta(metadata))
	if err != nil {
		return nil, writeErr(err, "Upload", up.UploadID)
	}
	return up, nil
}

func (s *Store) getUpload(uploadID string) (*Upload, error) {
	var (
		up Upload
		md sql.NullString
	)
	err := s.db.QueryRow(`
		SELECT upload_id, provider, bucket, key, initiated, metadata
		FROM multipart_uploads WHERE upload_id = ?`, uploadID).
		Scan(&up.UploadID, &up.Provider, &up.Bucket, &up.Key, &up.Initiated, &md)
	if err == sql.ErrNoRows {
		return nil, cmn.NewNotFound("Upload", uploadID)
	}
	if err != nil {
		return nil, cmn.NewDatabase(err)
	}
	up.Metadata = unmarshalMeta(strOrEmpty(md))
	return &up, nil
}

func (s *Store) UploadPart(uploadID string, partNumber int, data []byte) (*Part, error) {
	if partNumber < 1 {
		return nil, cmn.NewInvalidArgument("part number must be >= 1")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.getUpload(uploadID); err != nil {
		return nil, err
	}
	hash, err := s.PutBlob(data)
	if err != nil {
		return nil, err
	}
	p := &Part{
		UploadID:     uploadID,
		PartNumber:   partNumber,
		ContentHash:  hash,
		Size:         int64(len(data)),
		ETag:         md5Hex(data),
		LastModified: cmn.NowISO(),
	}
	_, err = s.db.Exec(`
		INSERT INTO multipart_parts (upload_id, part_number, content_hash, size, etag, last_modified)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (upload_id, part_number) DO UPDATE SET
			content_hash = excluded.content_hash, size = excluded.size,
			etag = excluded.etag, last_modified = excluded.last_modified`,
		uploadID, partNumber, hash, p.Size, p.ETag, p.LastModified)
	if err != nil {
		return nil, cmn.NewDatabase(err)
	}
	return p, nil
}

func (s *Store) ListParts(uploadID string) ([]*Part, error) {
	if _, err := s.getUpload(uploadID); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(`
		SELECT upload_id, part_number, content_hash, size, etag, last_modified
		FROM multipart_parts WHERE upload_id = ? ORDER BY part_number`, uploadID)
	if err != nil {
		return nil, cmn.NewDatabase(err)
	}
	defer rows.Close()
	var parts []*Part
	for rows.Next() {
		var p Part
		if err := rows.Scan(&p.UploadID, &p.PartNumber, &p.ContentHash, &p.Size, &p.ETag,
			&p.LastModified); err != nil {
			return nil, cmn.NewDatabase(err)
		}
		parts = append(parts, &p)
	}
	return parts, rows.Err()
}

func (s *Store) ListMultipartUploads(provider, bucket string) ([]*Upload, error) {
	if _, err := s.GetBucket(provider, bucket); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(`
		SELECT upload_id, provider, bucket, key, initiated, metadata
		FROM multipart_uploads WHERE provider = ? AND bucket = ? ORDER BY initiated`,
		provider, bucket)
	if err != nil {
		return nil, cmn.NewDatabase(err)
	}
	defer rows.Close()
	var ups []*Upload
	for rows.Next() {
		var (
			up Upload
			md sql.NullString
		)
		if err := rows.Scan(&up.UploadID, &up.Provider, &up.Bucket, &up.Key, &up.Initiated,
			&md); err != nil {
			return nil, cmn.NewDatabase(err)
		}
		up.Metadata = unmarshalMeta(strOrEmpty(md))
		ups = append(ups, &up)
	}
	return ups, rows.Err()
}

// CompleteMultipartUpload concatenates the parts in part-number order into
// one object and drops the upload (parts cascade).
func (s *Store) CompleteMultipartUpload(uploadID string) (*Object, error) {
	up, err := s.getUpload(uploadID)
	if err != nil {
		return nil, err
	}
	parts, err := s.ListParts(uploadID)
	if err != nil {
		return nil, err
	}
	if len(parts) == 0 {
		return nil, cmn.NewInvalidRequest("multipart upload has no parts: " + uploadID)
	}
	var body []byte
	var partHashes []string
	for _, p := range parts {
		data, err := s.GetBlob(p.ContentHash)
		if err != nil {
			return nil, err
		}
		body = append(body, data...)
		partHashes = append(partHashes, p.ContentHash)
	}
	obj, err := s.PutObject(up.Provider, &PutObjectInput{
		Bucket:   up.Bucket,
		Key:      up.Key,
		Body:     body,
		Metadata: up.Metadata,
	})
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	_, derr := s.db.Exec(`DELETE FROM multipart_uploads WHERE upload_id = ?`, uploadID)
	s.mu.Unlock()
	if derr != nil {
		return nil, cmn.NewDatabase(derr)
	}
	for _, h := range partHashes {
		s.gcBlob(h)
	}
	return obj, nil
}

func (s *Store) AbortMultipartUpload(uploadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.getUpload(uploadID); err != nil {
		return err
	}
	hashes := []string{}
	rows, err := s.db.Query(`SELECT DISTINCT content_hash FROM multipart_parts WHERE upload_id = ?`,
		uploadID)
	if err == nil {
		for rows.Next() {
			var h string
			if rows.Scan(&h) == nil {
				hashes = append(hashes, h)
			}
		}
		rows.Close()
	}
	if _, err := s.db.Exec(`DELETE FROM multipart_uploads WHERE upload_id = ?`, uploadID); err != nil {
		return cmn.NewDatabase(err)
	}
	for _, h := range hashes {
		s.gcBlob(h)
	}
	return nil
}
