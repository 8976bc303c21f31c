package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/critiquelabs/critique/pkg/auth"
	"github.com/critiquelabs/critique/pkg/httputil"
	"github.com/critiquelabs/critique/pkg/mail"
	"github.com/critiquelabs/critique/pkg/observability"
)

// AuthHandlers handles signup and token exchange
type AuthHandlers struct {
	storage        Storage
	mail           mail.Sender
	tokenGenerator *auth.TokenGenerator
	tokenTTL       time.Duration
	log            *observability.Logger
}

// NewAuthHandlers creates a new auth handlers instance
func NewAuthHandlers(storage Storage, sender mail.Sender, tokenTTL time.Duration, logger *observability.Logger) *AuthHandlers {
	return &AuthHandlers{
		storage:        storage,
		mail:           sender,
		tokenGenerator: auth.NewTokenGenerator(),
		tokenTTL:       tokenTTL,
		log:            logger,
	}
}

// RegisterRoutes registers authentication routes
func (h *AuthHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/auth/signup", h.signup).Methods("POST")
	router.HandleFunc("/auth/token", h.issueToken).Methods("POST")
}

// signup handles POST /v1/auth/signup.
// Finds or creates the account and emails it a confirmation code. Repeating
// the request for the same (username, email) pair re-sends the code, so
// signup is safe to retry.
func (h *AuthHandlers) signup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	details := map[string]string{}
	if msg := validateUsername(req.Username); msg != "" {
		details["username"] = msg
	}
	if msg := validateEmail(req.Email); msg != "" {
		details["email"] = msg
	}
	if len(details) > 0 {
		httputil.WriteValidationError(w, "invalid signup request", details)
		return
	}

	code := auth.ConfirmationCode(req.Username)
	user, err := h.storage.SignupUser(r.Context(), req.Username, req.Email, code)
	if err != nil {
		if errors.Is(err, ErrConflict) {
			httputil.WriteBadRequest(w, "username or email already in use")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}

	body := fmt.Sprintf("Your confirmation code: %s", code)
	if err := h.mail.Send(r.Context(), user.Email, "Critique confirmation code", body); err != nil {
		// The account exists either way; the client can retry signup to
		// trigger another delivery attempt.
		h.log.FromContext(r.Context()).WithError(err).Error("failed to send confirmation code")
		httputil.WriteInternalError(w, errors.New("failed to send confirmation code"))
		return
	}

	httputil.WriteSuccess(w, map[string]string{
		"username": user.Username,
		"email":    user.Email,
	})
}

// issueToken handles POST /v1/auth/token.
// Exchanges a username and confirmation code for an access token. An unknown
// username is 404, a wrong code 400; the split lets clients distinguish
// "sign up first" from "check your mail".
func (h *AuthHandlers) issueToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username         string `json:"username"`
		ConfirmationCode string `json:"confirmation_code"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Username, "username") {
		return
	}
	if !httputil.RequireNonEmpty(w, req.ConfirmationCode, "confirmation_code") {
		return
	}

	user, err := h.storage.GetUserByUsername(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.WriteNotFoundError(w, "user not found")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}

	if user.ConfirmationCode == "" || req.ConfirmationCode != user.ConfirmationCode {
		httputil.WriteBadRequest(w, "invalid confirmation code")
		return
	}

	token, tokenHash, err := h.tokenGenerator.GenerateToken()
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	accessToken := &auth.AccessToken{
		UserID:    user.ID,
		TokenHash: tokenHash,
		ExpiresAt: time.Now().Add(h.tokenTTL),
	}
	if err := h.storage.CreateToken(r.Context(), accessToken); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"token":      token,
		"expires_at": accessToken.ExpiresAt,
	})
}
