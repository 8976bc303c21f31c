// Package middleware provides HTTP middleware for request authentication.
package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/critiquelabs/critique/pkg/api"
	"github.com/critiquelabs/critique/pkg/auth"
	"github.com/critiquelabs/critique/pkg/contextkeys"
	"github.com/critiquelabs/critique/pkg/httputil"
	"github.com/critiquelabs/critique/pkg/observability"
)

// Authenticator resolves bearer tokens to accounts.
type Authenticator struct {
	tokens   api.TokenStore
	tokenGen *auth.TokenGenerator
	log      *observability.Logger
}

// NewAuthenticator creates an Authenticator backed by the token store
func NewAuthenticator(tokens api.TokenStore, logger *observability.Logger) *Authenticator {
	return &Authenticator{
		tokens:   tokens,
		tokenGen: auth.NewTokenGenerator(),
		log:      logger,
	}
}

// Authenticate attaches the token's account to the request context when a
// valid bearer token is present. An absent header passes through anonymous;
// a malformed, unknown, revoked or expired token is rejected outright so
// that a client holding a bad token learns about it even on public routes.
func (a *Authenticator) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			httputil.WriteUnauthorized(w, "invalid authorization header")
			return
		}

		user, err := a.resolve(r, token)
		if err != nil {
			httputil.WriteUnauthorized(w, err.Error())
			return
		}

		next.ServeHTTP(w, r.WithContext(contextkeys.WithActor(r.Context(), user)))
	})
}

type authError string

func (e authError) Error() string { return string(e) }

const (
	errMalformedToken authError = "malformed token"
	errInvalidToken   authError = "invalid or expired token"
)

func (a *Authenticator) resolve(r *http.Request, token string) (*auth.User, error) {
	if err := a.tokenGen.ValidateTokenFormat(token); err != nil {
		return nil, errMalformedToken
	}

	accessToken, user, err := a.tokens.GetUserByTokenHash(r.Context(), a.tokenGen.HashToken(token))
	if err != nil {
		a.log.FromContext(r.Context()).WithError(err).Debug("token lookup failed")
		return nil, errInvalidToken
	}
	if accessToken.Expired(time.Now()) {
		return nil, errInvalidToken
	}
	return user, nil
}

// RequireAuth rejects anonymous requests. It composes after Authenticate.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetActor(r); !ok {
			httputil.WriteUnauthorized(w, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetActor returns the authenticated account for the request, if any
func GetActor(r *http.Request) (*auth.User, bool) {
	user, ok := r.Context().Value(contextkeys.ActorKey).(*auth.User)
	return user, ok && user != nil
}
