// Package storage provides the shared persistence layer for the cloud emulator.
/*
 * Copyright (c) 2024-2026, CloudEmu Authors. All rights reserved.
 */
package storage

import (
	"database/sql"

	"golang.org/x/crypto/bcrypt"

	"github.com/cloudemu/cloudemu/cmn"
)

// User statuses.
const (
	UserUnconfirmed        = "UNCONFIRMED"
	UserConfirmed          = "CONFIRMED"
	UserForceChangePassword = "FORCE_CHANGE_PASSWORD"
)

type (
	UserPool struct {
		ID        string
		Name      string
		ARN       string
		CreatedAt string
	}

	User struct {
		PoolID     string
		Username   string
		Email      string
		Status     string
		Enabled    bool
		CreatedAt  string
		Attributes map[string]string
	}

	Group struct {
		PoolID      string
		Name        string
		Description string
		Precedence  int
	}
)

func (s *Store) CreateUserPool(name, account, region string) (*UserPool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := &UserPool{
		ID:        region + "_" + cmn.GenID(),
		Name:      name,
		CreatedAt: cmn.NowISO(),
	}
	p.ARN = cmn.ARN("cognito-idp", region, account, "userpool/"+p.ID)
	_, err := s.db.Exec(`INSERT INTO user_pools (id, name, arn, created_at) VALUES (?, ?, ?, ?)`,
		p.ID, name, p.ARN, p.CreatedAt)
	if err != nil {
		return nil, writeErr(err, "UserPool", name)
	}
	return p, nil
}

func (s *Store) GetUserPool(id string) (*UserPool, error) {
	var p UserPool
	err := s.db.QueryRow(`SELECT id, name, arn, created_at FROM user_pools WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.ARN, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, cmn.NewNotFound("UserPool", id)
	}
	if err != nil {
		return nil, cmn.NewDatabase(err)
	}
	return &p, nil
}

func (s *Store) ListUserPools() ([]*UserPool, error) {
	rows, err := s.db.Query(`SELECT id, name, arn, created_at FROM user_pools ORDER BY created_at`)
	if err != nil {
		return nil, cmn.NewDatabase(err)
	}
	defer rows.Close()
	var pools []*UserPool
	for rows.Next() {
		var p UserPool
		if err := rows.Scan(&p.ID, &p.Name, &p.ARN, &p.CreatedAt); err != nil {
			return nil, cmn.NewDatabase(err)
		}
		pools = append(pools, &p)
	}
	return pools, rows.Err()
}

func (s *Store) DeleteUserPool(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(`DELETE FROM user_pools WHERE id = ?`, id)
	if err != nil {
		return cmn.NewDatabase(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return cmn.NewNotFound("UserPool", id)
	}
	return nil
}

// AdminCreateUser stores the user with a bcrypt-hashed temporary password
// and per-attribute rows.
func (s *Store) AdminCreateUser(poolID, username, tempPassword string, attrs map[string]string) (*User, error) {
	if _, err := s.GetUserPool(poolID); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &User{
		PoolID:     poolID,
		Username:   username,
		Email:      attrs["email"],
		Status:     UserForceChangePassword,
		Enabled:    true,
		CreatedAt:  cmn.NowISO(),
		Attributes: attrs,
	}
	var hash []byte
	if tempPassword != "" {
		var err error
		hash, err = bcrypt.GenerateFromPassword([]byte(tempPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, cmn.NewInternal(err.Error())
		}
	} else {
		u.Status = UserUnconfirmed
	}
	_, err := s.db.Exec(`
		INSERT INTO users (pool_id, username, email, status, enabled, password_hash, created_at)
		VALUES (?, ?, ?, ?, 1, ?, ?)`,
		poolID, username, nullStr(u.Email), u.Status, nullStr(string(hash)), u.CreatedAt)
	if err != nil {
		return nil, writeErr(err, "User", username)
	}
	for name, value := range attrs {
		if _, err := s.db.Exec(`
			INSERT INTO user_attributes (pool_id, username, name, value) VALUES (?, ?, ?, ?)
			ON CONFLICT (pool_id, username, name) DO UPDATE SET value = excluded.value`,
			poolID, username, name, value); err != nil {
			return nil, cmn.NewDatabase(err)
		}
	}
	return u, nil
}

func (s *Store) AdminGetUser(poolID, username string) (*User, error) {
	var (
		u       User
		email   sql.NullString
		enabled int
		hash    sql.NullString
	)
	err := s.db.QueryRow(`
		SELECT pool_id, username, email, status, enabled, password_hash, created_at
		FROM users WHERE pool_id = ? AND username = ?`, poolID, username).
		Scan(&u.PoolID, &u.Username, &email, &u.Status, &enabled, &hash, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, cmn.NewNotFound("User", username)
	}
	if err != nil {
		return nil, cmn.NewDatabase(err)
	}
	u.Email, u.Enabled = strOrEmpty(email), enabled != 0
	u.Attributes = make(map[string]string)
	rows, err := s.db.Query(`SELECT name, value FROM user_attributes
		WHERE pool_id = ? AND username = ?`, poolID, username)
	if err != nil {
		return nil, cmn.NewDatabase(err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		var value sql.NullString
		if err := rows.Scan(&name, &value); err != nil {
			return nil, cmn.NewDatabase(err)
		}
		u.Attributes[name] = strOrEmpty(value)
	}
	return &u, rows.Err()
}

func (s *Store) ListUsers(poolID string) ([]*User, error) {
	if _, err := s.GetUserPool(poolID); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(`SELECT username FROM users WHERE pool_id = ? ORDER BY username`, poolID)
	if err != nil {
		return nil, cmn.NewDatabase(err)
	}
	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			rows.Close()
			return nil, cmn.NewDatabase(err)
		}
		names = append(names, n)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, cmn.NewDatabase(err)
	}
	var users []*User
	for _, n := range names {
		u, err := s.AdminGetUser(poolID, n)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

// AdminSetUserPassword replaces the password; a permanent set confirms
// the user.
func (s *Store) AdminSetUserPassword(poolID, username, password string, permanent bool) error {
	if _, err := s.AdminGetUser(poolID, username); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return cmn.NewInternal(err.Error())
	}
	status := UserForceChangePassword
	if permanent {
		status = UserConfirmed
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec(`
		UPDATE users SET password_hash = ?, status = ? WHERE pool_id = ? AND username = ?`,
		string(hash), status, poolID, username); err != nil {
		return cmn.NewDatabase(err)
	}
	return nil
}

func (s *Store) AdminConfirmSignUp(poolID, username string) error {
	if _, err := s.AdminGetUser(poolID, username); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec(`
		UPDATE users SET status = ? WHERE pool_id = ? AND username = ?`,
		UserConfirmed, poolID, username); err != nil {
		return cmn.NewDatabase(err)
	}
	return nil
}

// VerifyPassword checks the supplied password against the stored hash.
func (s *Store) VerifyPassword(poolID, username, password string) error {
	var hash sql.NullString
	err := s.db.QueryRow(`SELECT password_hash FROM users WHERE pool_id = ? AND username = ?`,
		poolID, username).Scan(&hash)
	if err == sql.ErrNoRows {
		return cmn.NewNotFound("User", username)
	}
	if err != nil {
		return cmn.NewDatabase(err)
	}
	if !hash.Valid {
		return cmn.NewInvalidRequest("user has no password set: " + username)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash.String), []byte(password)) != nil {
		return cmn.NewInvalidRequest("incorrect username or password")
	}
	return nil
}

func (s *Store) CreateGroup(poolID, name, description string, precedence int) (*Group, error) {
	if _, err := s.GetUserPool(poolID); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	g := &Group{PoolID: poolID, Name: name, Description: description, Precedence: precedence}
	_, err := s.db.Exec(`
		INSERT INTO user_groups (pool_id, name, description, precedence) VALUES (?, ?, ?, ?)`,
		poolID, name, nullStr(description), precedence)
	if err != nil {
		return nil, writeErr(err, "Group", name)
	}
	return g, nil
}

func (s *Store) ListGroups(poolID string) ([]*Group, error) {
	if _, err := s.GetUserPool(poolID); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(`SELECT pool_id, name, description, precedence FROM user_groups
		WHERE pool_id = ? ORDER BY name`, poolID)
	if err != nil {
		return nil, cmn.NewDatabase(err)
	}
	defer rows.Close()
	var groups []*Group
	for rows.Next() {
		var (
			g     Group
			descr sql.NullString
			prec  sql.NullInt64
		)
		if err := rows.Scan(&g.PoolID, &g.Name, &descr, &prec); err != nil {
			return nil, cmn.NewDatabase(err)
		}
		g.Description = strOrEmpty(descr)
		g.Precedence = int(prec.Int64)
		groups = append(groups, &g)
	}
	return groups, rows.Err()
}

func (s *Store) AdminAddUserToGroup(poolID, groupName, username string) error {
	if _, err := s.AdminGetUser(poolID, username); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`
		INSERT INTO group_members (pool_id, group_name, username) VALUES (?, ?, ?)
		ON CONFLICT (pool_id, group_name, username) DO NOTHING`,
		poolID, groupName, username)
	if err != nil {
		return cmn.NewDatabase(err)
	}
	return nil
}

func (s *Store) AdminListGroupsForUser(poolID, username string) ([]*Group, error) {
	if _, err := s.AdminGetUser(poolID, username); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(`
		SELECT g.pool_id, g.name, g.description, g.precedence
		FROM user_groups g JOIN group_members m
			ON g.pool_id = m.pool_id AND g.name = m.group_name
		WHERE m.pool_id = ? AND m.username = ? ORDER BY g.name`, poolID, username)
	if err != nil {
		return nil, cmn.NewDatabase(err)
	}
	defer rows.Close()
	var groups []*Group
	for rows.Next() {
		var (
			g     Group
			descr sql.NullString
			prec  sql.NullInt64
		)
		if err := rows.Scan(&g.PoolID, &g.Name, &descr, &prec); err != nil {
			return nil, cmn.NewDatabase(err)
		}
		g.Description = strOrEmpty(descr)
		g.Precedence = int(prec.Int64)
		groups = append(groups, &g)
	}
	return groups, rows.Err()
}
