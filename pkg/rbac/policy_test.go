package rbac

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/critiquelabs/critique/pkg/auth"
)

var (
	plainUser = &auth.User{ID: 1, Role: auth.RoleUser}
	moderator = &auth.User{ID: 2, Role: auth.RoleModerator}
	admin     = &auth.User{ID: 3, Role: auth.RoleAdmin}
	superuser = &auth.User{ID: 4, Role: auth.RoleUser, IsSuperuser: true}
	staff     = &auth.User{ID: 5, Role: auth.RoleUser, IsStaff: true}
)

func TestSafeMethod(t *testing.T) {
	assert.True(t, SafeMethod(http.MethodGet))
	assert.True(t, SafeMethod(http.MethodHead))
	assert.True(t, SafeMethod(http.MethodOptions))
	assert.False(t, SafeMethod(http.MethodPost))
	assert.False(t, SafeMethod(http.MethodPatch))
	assert.False(t, SafeMethod(http.MethodDelete))
}

func TestAdminOrReadOnly(t *testing.T) {
	p := AdminOrReadOnly{}

	assert.True(t, p.Allow(nil, http.MethodGet))
	assert.True(t, p.Allow(plainUser, http.MethodGet))

	assert.False(t, p.Allow(nil, http.MethodPost))
	assert.False(t, p.Allow(plainUser, http.MethodPost))
	assert.False(t, p.Allow(moderator, http.MethodPost))
	assert.True(t, p.Allow(admin, http.MethodPost))
	assert.True(t, p.Allow(superuser, http.MethodPost))
}

func TestAuthorOrModerator(t *testing.T) {
	p := AuthorOrModerator{}

	assert.True(t, p.Allow(nil, http.MethodGet))
	assert.False(t, p.Allow(nil, http.MethodPost))
	assert.True(t, p.Allow(plainUser, http.MethodPost))

	const authorID = 1
	assert.True(t, p.AllowObject(plainUser, http.MethodPatch, authorID))
	assert.True(t, p.AllowObject(moderator, http.MethodPatch, authorID))
	assert.True(t, p.AllowObject(admin, http.MethodDelete, authorID))
	assert.True(t, p.AllowObject(superuser, http.MethodDelete, authorID))

	other := &auth.User{ID: 99, Role: auth.RoleUser}
	assert.False(t, p.AllowObject(other, http.MethodPatch, authorID))
	assert.False(t, p.AllowObject(nil, http.MethodPatch, authorID))
	assert.True(t, p.AllowObject(other, http.MethodGet, authorID))
}

func TestAdminOrStaff(t *testing.T) {
	p := AdminOrStaff{}

	assert.False(t, p.Allow(nil, http.MethodGet))
	assert.False(t, p.Allow(plainUser, http.MethodGet))
	assert.False(t, p.Allow(moderator, http.MethodGet))
	assert.True(t, p.Allow(admin, http.MethodGet))
	assert.True(t, p.Allow(superuser, http.MethodGet))
	assert.True(t, p.Allow(staff, http.MethodGet))
}

func TestAdminOnly(t *testing.T) {
	p := AdminOnly{}

	assert.False(t, p.Allow(nil, http.MethodGet))
	assert.False(t, p.Allow(plainUser, http.MethodGet))
	assert.False(t, p.Allow(moderator, http.MethodPatch))
	assert.False(t, p.Allow(staff, http.MethodPatch))
	assert.True(t, p.Allow(admin, http.MethodDelete))
	assert.True(t, p.Allow(superuser, http.MethodDelete))
}

// The slug-delete rule checks the stored role literally: a superuser whose
// role is "user" passes IsAdmin but fails here.
func TestSlugDeleteAllowed(t *testing.T) {
	assert.True(t, SlugDeleteAllowed(admin))
	assert.False(t, SlugDeleteAllowed(superuser))
	assert.False(t, SlugDeleteAllowed(moderator))
	assert.False(t, SlugDeleteAllowed(plainUser))
	assert.False(t, SlugDeleteAllowed(nil))
}
