package user

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRole_Valid(t *testing.T) {
	for _, r := range []Role{RoleUsuario, RoleCliente, RoleEntrenador, RoleAdmin} {
		require.True(t, r.Valid(), r)
	}
	require.False(t, Role("coach").Valid())
	require.False(t, Role("").Valid())
}

func TestNewUser_StartsAsUnverifiedUsuario(t *testing.T) {
	u := NewUser("Ana", "ana@example.com", "hash")

	require.Equal(t, RoleUsuario, u.Role)
	require.False(t, u.IsEmailVerified)
	require.False(t, u.CreatedAt.IsZero())
	require.Equal(t, u.CreatedAt, u.UpdatedAt)
}

func TestTransitionFor(t *testing.T) {
	cases := []struct {
		from, to Role
		kind     TransitionKind
		ok       bool
	}{
		{RoleUsuario, RoleCliente, TransitionEnrollClient, true},
		{RoleCliente, RoleUsuario, TransitionLeaveClient, true},
		{RoleCliente, RoleCliente, TransitionChangePlan, true},
		{RoleCliente, RoleEntrenador, TransitionLeaveClient, true},
		{RoleUsuario, RoleAdmin, TransitionStaff, true},
		{RoleEntrenador, RoleUsuario, TransitionStaff, true},
		{RoleAdmin, RoleAdmin, TransitionKeep, true},
		{RoleEntrenador, RoleCliente, 0, false},
		{RoleAdmin, RoleCliente, 0, false},
		{Role("ghost"), RoleUsuario, 0, false},
	}
	for _, tc := range cases {
		kind, ok := TransitionFor(tc.from, tc.to)
		require.Equal(t, tc.ok, ok, "%s -> %s", tc.from, tc.to)
		require.Equal(t, tc.kind, kind, "%s -> %s", tc.from, tc.to)
		require.Equal(t, tc.ok, CanTransition(tc.from, tc.to))
	}
}

func TestAuthToken_Expired(t *testing.T) {
	now := time.Now()
	tok := &AuthToken{ExpiresAt: now.Add(time.Hour)}

	require.False(t, tok.Expired(now))
	require.True(t, tok.Expired(now.Add(time.Hour)))
}
