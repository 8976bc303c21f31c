package rbac

import (
	"net/http"

	"github.com/critiquelabs/critique/pkg/auth"
)

// SafeMethod reports whether the HTTP method is read-only.
func SafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// Policy decides whether an actor may perform a request-level action.
// A nil actor means the request is unauthenticated.
type Policy interface {
	Allow(actor *auth.User, method string) bool
}

// ObjectPolicy additionally decides object-level access against the
// resource's author.
type ObjectPolicy interface {
	Policy
	AllowObject(actor *auth.User, method string, authorID int64) bool
}

// AdminOrReadOnly allows safe methods for anyone, including unauthenticated
// callers; unsafe methods require an authenticated admin-equivalent actor.
type AdminOrReadOnly struct{}

func (AdminOrReadOnly) Allow(actor *auth.User, method string) bool {
	if SafeMethod(method) {
		return true
	}
	return actor != nil && actor.IsAdmin()
}

// AuthorOrModerator allows safe methods for anyone. Unsafe methods require
// an authenticated actor; at the object level the actor must be the
// resource's author, a moderator, or an admin.
type AuthorOrModerator struct{}

func (AuthorOrModerator) Allow(actor *auth.User, method string) bool {
	if SafeMethod(method) {
		return true
	}
	return actor != nil
}

func (AuthorOrModerator) AllowObject(actor *auth.User, method string, authorID int64) bool {
	if SafeMethod(method) {
		return true
	}
	if actor == nil {
		return false
	}
	return actor.ID == authorID || actor.IsModerator() || actor.IsAdmin()
}

// AdminOrStaff gates the user collection endpoints (list, create): the
// actor must be authenticated and either admin-equivalent or flagged as
// staff.
type AdminOrStaff struct{}

func (AdminOrStaff) Allow(actor *auth.User, method string) bool {
	return actor != nil && (actor.IsAdmin() || actor.IsStaff)
}

// AdminOnly gates the per-account management endpoints. Staff access stops
// at the collection; reading or changing a named account requires an
// admin-equivalent actor.
type AdminOnly struct{}

func (AdminOnly) Allow(actor *auth.User, method string) bool {
	return actor != nil && actor.IsAdmin()
}

// SlugDeleteAllowed is the inline rule on the slug-based category/genre
// delete endpoints: the stored role must literally be "admin". A superuser
// whose role is not "admin" is rejected here even though IsAdmin() would
// accept them elsewhere. The split is inherited behavior, kept as is.
func SlugDeleteAllowed(actor *auth.User) bool {
	return actor != nil && actor.Role == auth.RoleAdmin
}
