package api

import (
	"net/http"
	"regexp"

	"github.com/critiquelabs/critique/pkg/auth"
	"github.com/critiquelabs/critique/pkg/contextkeys"
	"github.com/critiquelabs/critique/pkg/httputil"
)

// actorFrom returns the authenticated account attached to the request, if any
func actorFrom(r *http.Request) (*auth.User, bool) {
	user, ok := r.Context().Value(contextkeys.ActorKey).(*auth.User)
	return user, ok && user != nil
}

// requireActor writes a 401 and returns false when the request is anonymous
func requireActor(w http.ResponseWriter, r *http.Request) (*auth.User, bool) {
	actor, ok := actorFrom(r)
	if !ok {
		httputil.WriteUnauthorized(w, "authentication required")
		return nil, false
	}
	return actor, true
}

const (
	maxUsernameLength = 150
	maxEmailLength    = 254
	maxSlugLength     = 50
	maxNameLength     = 256
)

var (
	usernameRe = regexp.MustCompile(`^[\w.@+-]+$`)
	emailRe    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	slugRe     = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)
)

// validateUsername enforces length, charset and the reserved "me" name.
// Returns a field error message, or "" when valid.
func validateUsername(username string) string {
	switch {
	case username == "":
		return "username is required"
	case len(username) > maxUsernameLength:
		return "username must be at most 150 characters"
	case !usernameRe.MatchString(username):
		return "username may contain only letters, digits and @/./+/-/_"
	case username == auth.ReservedUsername:
		return "username \"me\" is reserved"
	}
	return ""
}

func validateEmail(email string) string {
	switch {
	case email == "":
		return "email is required"
	case len(email) > maxEmailLength:
		return "email must be at most 254 characters"
	case !emailRe.MatchString(email):
		return "email is not a valid address"
	}
	return ""
}

func validateSlug(slug string) string {
	switch {
	case slug == "":
		return "slug is required"
	case len(slug) > maxSlugLength:
		return "slug must be at most 50 characters"
	case !slugRe.MatchString(slug):
		return "slug may contain only letters, digits, hyphens and underscores"
	}
	return ""
}
