// Package storage provides the shared persistence layer for the cloud emulator.
/*
 * Copyright (c) 2024-2026, CloudEmu Authors. All rights reserved.
 */
package storage

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cloudemu/cloudemu/cmn"
)

func mkPool(t *testing.T, s *Store) *UserPool {
	t.Helper()
	p, err := s.CreateUserPool("app-users", "000000000000", "us-east-1")
	require.NoError(t, err)
	return p
}

func TestAdminCreateAndGetUser(t *testing.T) {
	s := newTestStore(t)
	p := mkPool(t, s)

	u, err := s.AdminCreateUser(p.ID, "alice", "Temp123!", map[string]string{
		"email": "alice@example.com",
	})
	require.NoError(t, err)
	require.Equal(t, UserForceChangePassword, u.Status)

	got, err := s.AdminGetUser(p.ID, "alice")
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", got.Email)
	require.Equal(t, "alice@example.com", got.Attributes["email"])
	require.True(t, got.Enabled)

	// Unique per pool.
	_, err = s.AdminCreateUser(p.ID, "alice", "x", nil)
	require.Equal(t, cmn.KindAlreadyExists, cmn.KindOf(err))
}

func TestPasswordVerification(t *testing.T) {
	s := newTestStore(t)
	p := mkPool(t, s)
	_, err := s.AdminCreateUser(p.ID, "bob", "Temp123!", nil)
	require.NoError(t, err)

	require.NoError(t, s.VerifyPassword(p.ID, "bob", "Temp123!"))
	err = s.VerifyPassword(p.ID, "bob", "wrong")
	require.Equal(t, cmn.KindInvalidRequest, cmn.KindOf(err))

	// A permanent password set confirms the user.
	require.NoError(t, s.AdminSetUserPassword(p.ID, "bob", "Final456!", true))
	u, err := s.AdminGetUser(p.ID, "bob")
	require.NoError(t, err)
	require.Equal(t, UserConfirmed, u.Status)
	require.NoError(t, s.VerifyPassword(p.ID, "bob", "Final456!"))
}

func TestGroupsAndMembership(t *testing.T) {
	s := newTestStore(t)
	p := mkPool(t, s)
	_, err := s.AdminCreateUser(p.ID, "carol", "pw", nil)
	require.NoError(t, err)

	_, err = s.CreateGroup(p.ID, "admins", "administrators", 1)
	require.NoError(t, err)
	_, err = s.CreateGroup(p.ID, "admins", "", 0)
	require.Equal(t, cmn.KindAlreadyExists, cmn.KindOf(err))

	require.NoError(t, s.AdminAddUserToGroup(p.ID, "admins", "carol"))
	groups, err := s.AdminListGroupsForUser(p.ID, "carol")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Equal(t, "admins", groups[0].Name)
}

func TestPoolCascadeDeletesUsers(t *testing.T) {
	s := newTestStore(t)
	p := mkPool(t, s)
	_, err := s.AdminCreateUser(p.ID, "dave", "pw", map[string]string{"email": "d@e.com"})
	require.NoError(t, err)

	require.NoError(t, s.DeleteUserPool(p.ID))
	_, err = s.AdminGetUser(p.ID, "dave")
	require.Equal(t, cmn.KindNotFound, cmn.KindOf(err))
}
