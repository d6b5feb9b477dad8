// Package storage provides the shared persistence layer for the cloud emulator.
/*
 * Copyright (c) 2024-2026, CloudEmu Authors. All rights reserved.
 */
package storage

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/cloudemu/cloudemu/cmn"
)

type (
	Table struct {
		Provider             string
		Name                 string
		ARN                  string
		Status               string
		AttributeDefinitions string // opaque JSON
		KeySchema            string // opaque JSON
		CreatedAt            string
	}

	// keySchemaElem mirrors the DynamoDB KeySchema entries stored verbatim.
	keySchemaElem struct {
		AttributeName string `json:"AttributeName"`
		KeyType       string `json:"KeyType"`
	}

	Item struct {
		PK   string
		SK   string
		Body string // opaque JSON, stored verbatim
	}
)

func (s *Store) CreateTable(provider, name, attrDefs, keySchema, account, region string) (*Table, error) {
	hashKey, _, err := parseKeySchema(keySchema)
	if err != nil {
		return nil, err
	}
	if hashKey == "" {
		return nil, cmn.NewInvalidArgument("key schema must declare exactly one HASH key")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &Table{
		Provider:             provider,
		Name:                 name,
		ARN:                  cmn.ARN("dynamodb", region, account, "table/"+name),
		Status:               "ACTIVE",
		AttributeDefinitions: attrDefs,
		KeySchema:            keySchema,
		CreatedAt:            cmn.NowISO(),
	}
	_, err = s.db.Exec(`
		INSERT INTO kv_tables (provider, name, arn, status, attribute_definitions, key_schema, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		provider, name, t.ARN, t.Status, nullStr(attrDefs), nullStr(keySchema), t.CreatedAt)
	if err != nil {
		return nil, writeErr(err, "Table", name)
	}
	return t, nil
}

func (s *Store) GetTable(provider, name string) (*Table, error) {
	var (
		t          Table
		attrs, ks  sql.NullString
	)
	err := s.db.QueryRow(`
		SELECT provider, name, arn, status, attribute_definitions, key_schema, created_at
		FROM kv_tables WHERE provider = ? AND name = ?`, provider, name).
		Scan(&t.Provider, &t.Name, &t.ARN, &t.Status, &attrs, &ks, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, cmn.NewNotFound("Table", name)
	}
	if err != nil {
		return nil, cmn.NewDatabase(err)
	}
	t.AttributeDefinitions, t.KeySchema = strOrEmpty(attrs), strOrEmpty(ks)
	return &t, nil
}

func (s *Store) ListTables(provider string) ([]string, error) {
	rows, err := s.db.Query(`SELECT name FROM kv_tables WHERE provider = ? ORDER BY name`, provider)
	if err != nil {
		return nil, cmn.NewDatabase(err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, cmn.NewDatabase(err)
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

func (s *Store) DeleteTable(provider, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(`DELETE FROM kv_tables WHERE provider = ? AND name = ?`, provider, name)
	if err != nil {
		return cmn.NewDatabase(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return cmn.NewNotFound("Table", name)
	}
	return nil
}

// parseKeySchema reads the stored schema: exactly one HASH key, at most
// one RANGE key.
func parseKeySchema(keySchema string) (hashKey, rangeKey string, _ error) {
	if keySchema == "" {
		return "", "", nil
	}
	var elems []keySchemaElem
	if err := js.UnmarshalFromString(keySchema, &elems); err != nil {
		return "", "", cmn.NewInvalidArgument("malformed key schema: " + err.Error())
	}
	for _, e := range elems {
		switch e.KeyType {
		case "HASH":
			if hashKey != "" {
				return "", "", cmn.NewInvalidArgument("key schema declares more than one HASH key")
			}
			hashKey = e.AttributeName
		case "RANGE":
			if rangeKey != "" {
				return "", "", cmn.NewInvalidArgument("key schema declares more than one RANGE key")
			}
			rangeKey = e.AttributeName
		}
	}
	return hashKey, rangeKey, nil
}

// attrScalar extracts the comparable scalar of an attribute value. It
// accepts the typed DynamoDB envelope ({"S": "x"}, {"N": "1"}) as well as
// plain JSON scalars, which is what the Cosmos and Firestore dialects
// store.
func attrScalar(v any) string {
	switch t := v.(type) {
	case map[string]any:
		for _, k := range []string{"S", "N", "B", "BOOL"} {
			if inner, ok := t[k]; ok {
				return attrScalar(inner)
			}
		}
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// ExtractKey resolves the item's partition/sort key values from the
// table's declared key schema. The declared schema is authoritative; an
// item missing its HASH attribute is rejected.
func (s *Store) ExtractKey(provider, table, itemJSON string) (pk, sk string, _ error) {
	t, err := s.GetTable(provider, table)
	if err != nil {
		return "", "", err
	}
	hashKey, rangeKey, err := parseKeySchema(t.KeySchema)
	if err != nil {
		return "", "", err
	}
	var item map[string]any
	if err := js.UnmarshalFromString(itemJSON, &item); err != nil {
		return "", "", cmn.NewInvalidArgument("malformed item: " + err.Error())
	}
	pk = attrScalar(item[hashKey])
	if pk == "" {
		return "", "", cmn.NewInvalidArgument(
			fmt.Sprintf("item is missing the key attribute %q", hashKey))
	}
	if rangeKey != "" {
		sk = attrScalar(item[rangeKey])
	}
	return pk, sk, nil
}

// PutItem upserts by (table, pk, sk); the body is stored verbatim.
func (s *Store) PutItem(provider, table, pk, sk, itemJSON string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.GetTable(provider, table); err != nil {
		return err
	}
	_, err := s.db.Exec(`
		INSERT INTO kv_items (provider, table_name, pk, sk, item)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (provider, table_name, pk, sk) DO UPDATE SET item = excluded.item`,
		provider, table, pk, sk, itemJSON)
	if err != nil {
		return cmn.NewDatabase(err)
	}
	return nil
}

// PutItemChecked extracts the key per the declared schema and upserts.
func (s *Store) PutItemChecked(provider, table, itemJSON string) error {
	pk, sk, err := s.ExtractKey(provider, table, itemJSON)
	if err != nil {
		return err
	}
	return s.PutItem(provider, table, pk, sk, itemJSON)
}

func (s *Store) GetItem(provider, table, pk, sk string) (string, error) {
	if _, err := s.GetTable(provider, table); err != nil {
		return "", err
	}
	var item string
	err := s.db.QueryRow(`
		SELECT item FROM kv_items
		WHERE provider = ? AND table_name = ? AND pk = ? AND sk = ?`,
		provider, table, pk, sk).Scan(&item)
	if err == sql.ErrNoRows {
		return "", cmn.NewNotFound("Item", pk)
	}
	if err != nil {
		return "", cmn.NewDatabase(err)
	}
	return item, nil
}

func (s *Store) DeleteItem(provider, table, pk, sk string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.GetTable(provider, table); err != nil {
		return err
	}
	if _, err := s.db.Exec(`
		DELETE FROM kv_items
		WHERE provider = ? AND table_name = ? AND pk = ? AND sk = ?`,
		provider, table, pk, sk); err != nil {
		return cmn.NewDatabase(err)
	}
	return nil
}

func (s *Store) Scan(provider, table string) ([]string, error) {
	if _, err := s.GetTable(provider, table); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(`
		SELECT item FROM kv_items WHERE provider = ? AND table_name = ? ORDER BY pk, sk`,
		provider, table)
	if err != nil {
		return nil, cmn.NewDatabase(err)
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var item string
		if err := rows.Scan(&item); err != nil {
			return nil, cmn.NewDatabase(err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// KeyCondition is the parsed form of the restricted dialect:
//
//	PK = :pv [AND SK <op> :sv]
//
// with <op> one of =, <, <=, >, >=, BETWEEN, begins_with.
type KeyCondition struct {
	pkValue string
	skOp    string
	skLo    string // operand (or BETWEEN lower bound)
	skHi    string // BETWEEN upper bound
}

// ParseKeyCondition parses the restricted key-condition dialect against
// the placeholder values map; anything else is InvalidArgument.
func ParseKeyCondition(expr, valuesJSON string) (*KeyCondition, error) {
	var values map[string]any
	if valuesJSON != "" {
		if err := js.UnmarshalFromString(valuesJSON, &values); err != nil {
			return nil, cmn.NewInvalidArgument("malformed ExpressionAttributeValues: " + err.Error())
		}
	}
	resolve := func(ph string) (string, error) {
		ph = strings.TrimSpace(ph)
		if !strings.HasPrefix(ph, ":") {
			return "", cmn.NewInvalidArgument("expected a :placeholder, got " + ph)
		}
		v, ok := values[ph]
		if !ok {
			return "", cmn.NewInvalidArgument("missing value for placeholder " + ph)
		}
		sc := attrScalar(v)
		if sc == "" {
			return "", cmn.NewInvalidArgument("unsupported value type for placeholder " + ph)
		}
		return sc, nil
	}

	conds := strings.SplitN(expr, " AND ", 2)
	pkParts := strings.SplitN(conds[0], " = ", 2)
	if len(pkParts) != 2 {
		return nil, cmn.NewInvalidArgument("key condition must start with PK = :placeholder")
	}
	kc := &KeyCondition{}
	pv, err := resolve(pkParts[1])
	if err != nil {
		return nil, err
	}
	kc.pkValue = pv
	if len(conds) == 1 {
		return kc, nil
	}

	sk := strings.TrimSpace(conds[1])
	switch {
	case strings.HasPrefix(sk, "begins_with"):
		inner := strings.TrimPrefix(sk, "begins_with")
		inner = strings.Trim(inner, " ()")
		args := strings.SplitN(inner, ",", 2)
		if len(args) != 2 {
			return nil, cmn.NewInvalidArgument("begins_with expects (SK, :placeholder)")
		}
		v, err := resolve(args[1])
		if err != nil {
			return nil, err
		}
		kc.skOp, kc.skLo = "begins_with", v
	case strings.Contains(sk, " BETWEEN "):
		parts := strings.SplitN(sk, " BETWEEN ", 2)
		bounds := strings.SplitN(parts[1], " AND ", 2)
		if len(bounds) != 2 {
			return nil, cmn.NewInvalidArgument("BETWEEN expects two bounds joined by AND")
		}
		lo, err := resolve(bounds[0])
		if err != nil {
			return nil, err
		}
		hi, err := resolve(bounds[1])
		if err != nil {
			return nil, err
		}
		kc.skOp, kc.skLo, kc.skHi = "BETWEEN", lo, hi
	default:
		matched := false
		for _, op := range []string{" <= ", " >= ", " = ", " < ", " > "} {
			if i := strings.Index(sk, op); i >= 0 {
				v, err := resolve(sk[i+len(op):])
				if err != nil {
					return nil, err
				}
				kc.skOp, kc.skLo = strings.TrimSpace(op), v
				matched = true
				break
			}
		}
		if !matched {
			return nil, cmn.NewInvalidArgument("unsupported sort-key condition: " + sk)
		}
	}
	return kc, nil
}

func (kc *KeyCondition) matchSK(sk string) bool {
	switch kc.skOp {
	case "":
		return true
	case "=":
		return sk == kc.skLo
	case "<":
		return sk < kc.skLo
	case "<=":
		return sk <= kc.skLo
	case ">":
		return sk > kc.skLo
	case ">=":
		return sk >= kc.skLo
	case "BETWEEN":
		return sk >= kc.skLo && sk <= kc.skHi
	case "begins_with":
		return strings.HasPrefix(sk, kc.skLo)
	}
	return false
}

// Query filters rows by partition key and the optional sort-key condition.
func (s *Store) Query(provider, table, keyCondExpr, valuesJSON string) ([]string, error) {
	if _, err := s.GetTable(provider, table); err != nil {
		return nil, err
	}
	kc, err := ParseKeyCondition(keyCondExpr, valuesJSON)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Query(`
		SELECT sk, item FROM kv_items
		WHERE provider = ? AND table_name = ? AND pk = ? ORDER BY sk`,
		provider, table, kc.pkValue)
	if err != nil {
		return nil, cmn.NewDatabase(err)
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var sk, item string
		if err := rows.Scan(&sk, &item); err != nil {
			return nil, cmn.NewDatabase(err)
		}
		if kc.matchSK(sk) {
			items = append(items, item)
		}
	}
	return items, rows.Err()
}

// QueryByPK returns all items for one partition value, ordered by sort key.
func (s *Store) QueryByPK(provider, table, pk string) ([]string, error) {
	if _, err := s.GetTable(provider, table); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(`
		SELECT item FROM kv_items
		WHERE provider = ? AND table_name = ? AND pk = ? ORDER BY sk`,
		provider, table, pk)
	if err != nil {
		return nil, cmn.NewDatabase(err)
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var item string
		if err := rows.Scan(&item); err != nil {
			return nil, cmn.NewDatabase(err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
