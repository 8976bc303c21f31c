package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/critiquelabs/critique/pkg/auth"
)

func TestGetMe(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/v1/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/v1/users/me", tokenUser, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var me userResponse
	decodeBody(t, rec, &me)
	assert.Equal(t, "alice", me.Username)
	assert.Equal(t, "user", me.Role)
}

// A non-admin's role field is ignored on self-update rather than rejected
func TestPatchMeRoleIsLockedForNonAdmins(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPatch, "/v1/users/me", tokenUser, map[string]string{
		"bio":  "reader of everything",
		"role": "admin",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var me userResponse
	decodeBody(t, rec, &me)
	assert.Equal(t, "reader of everything", me.Bio)
	assert.Equal(t, "user", me.Role)

	stored, err := env.store.GetUserByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, auth.RoleUser, stored.Role)
}

func TestPatchMeAdminMayChangeOwnRole(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPatch, "/v1/users/me", tokenAdmin, map[string]string{
		"role": "moderator",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	stored, err := env.store.GetUserByUsername(context.Background(), "boss")
	require.NoError(t, err)
	assert.Equal(t, auth.RoleModerator, stored.Role)
}

func TestUserManagementRequiresAdminOrStaff(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/v1/users", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/v1/users", tokenUser, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodGet, "/v1/users", tokenMod, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	for _, token := range []string{tokenAdmin, tokenStaff, tokenSuper} {
		rec = env.do(t, http.MethodGet, "/v1/users", token, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

// Staff access stops at the collection: a staff-flagged non-admin may list
// and create accounts but must not read, change, or delete a named one.
func TestStaffCannotManageNamedAccounts(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/users", tokenStaff, map[string]string{
		"username": "hired", "email": "hired@example.com",
	})
	assert.Equal(t, http.StatusCreated, rec.Code)

	cases := []struct {
		method string
		body   interface{}
	}{
		{http.MethodGet, nil},
		{http.MethodPatch, map[string]string{"role": "admin"}},
		{http.MethodPut, map[string]string{"email": "x@example.com"}},
		{http.MethodDelete, nil},
	}
	for _, tc := range cases {
		rec := env.do(t, tc.method, "/v1/users/alice", tokenStaff, tc.body)
		assert.Equal(t, http.StatusForbidden, rec.Code, tc.method)
	}

	// Nor escalate itself through the named route.
	rec = env.do(t, http.MethodPatch, "/v1/users/clerk", tokenStaff, map[string]string{
		"role": "admin",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	stored, err := env.store.GetUserByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, auth.RoleUser, stored.Role)
}

func TestAdminCreatesUser(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/users", tokenAdmin, map[string]string{
		"username": "newmod",
		"email":    "newmod@example.com",
		"role":     "moderator",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	stored, err := env.store.GetUserByUsername(context.Background(), "newmod")
	require.NoError(t, err)
	assert.Equal(t, auth.RoleModerator, stored.Role)
}

func TestAdminCreateUserRejectsUnknownRole(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/users", tokenAdmin, map[string]string{
		"username": "oddball",
		"email":    "odd@example.com",
		"role":     "overlord",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminCreateUserRejectsReservedUsername(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/users", tokenAdmin, map[string]string{
		"username": "me",
		"email":    "me@example.com",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminGetAndPatchUser(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/v1/users/alice", tokenAdmin, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPatch, "/v1/users/alice", tokenAdmin, map[string]string{
		"role": "moderator",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	stored, err := env.store.GetUserByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, auth.RoleModerator, stored.Role)

	rec = env.do(t, http.MethodGet, "/v1/users/ghost", tokenAdmin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminPutReplacesUser(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPut, "/v1/users/alice", tokenAdmin, map[string]string{
		"email": "alice2@example.com",
		"role":  "moderator",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	stored, err := env.store.GetUserByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice2@example.com", stored.Email)
	assert.Equal(t, auth.RoleModerator, stored.Role)
	// Absent fields reset.
	assert.Empty(t, stored.Bio)
}

func TestAdminDeletesUser(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodDelete, "/v1/users/alice", tokenAdmin, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodDelete, "/v1/users/alice", tokenAdmin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRoleChangeRevokesTokens(t *testing.T) {
	env := newTestEnv(t)

	alice, err := env.store.GetUserByUsername(context.Background(), "alice")
	require.NoError(t, err)
	issued := &auth.AccessToken{
		UserID:    alice.ID,
		TokenHash: "alice-hash",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, env.store.CreateToken(context.Background(), issued))

	// A profile-only patch leaves the session alone.
	rec := env.do(t, http.MethodPatch, "/v1/users/alice", tokenAdmin, map[string]string{
		"bio": "likes noir",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	_, _, err = env.store.GetUserByTokenHash(context.Background(), "alice-hash")
	require.NoError(t, err)

	// Promoting the account cuts its live tokens.
	rec = env.do(t, http.MethodPatch, "/v1/users/alice", tokenAdmin, map[string]string{
		"role": "moderator",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	_, _, err = env.store.GetUserByTokenHash(context.Background(), "alice-hash")
	assert.ErrorIs(t, err, ErrNotFound)
}
