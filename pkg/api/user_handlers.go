package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/critiquelabs/critique/pkg/auth"
	"github.com/critiquelabs/critique/pkg/httputil"
	"github.com/critiquelabs/critique/pkg/rbac"
)

// UserHandlers handles account management: the self-service /users/me
// endpoints plus the user CRUD. Staff may list and create accounts; the
// per-username routes require an admin-equivalent actor.
type UserHandlers struct {
	storage       Storage
	listPolicy    rbac.AdminOrStaff
	accountPolicy rbac.AdminOnly
}

// NewUserHandlers creates a new user handlers instance
func NewUserHandlers(storage Storage) *UserHandlers {
	return &UserHandlers{storage: storage}
}

// RegisterRoutes registers user routes. The literal "me" routes come first
// so they are not captured by the {username} variable.
func (h *UserHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/users/me", h.getMe).Methods("GET")
	router.HandleFunc("/users/me", h.patchMe).Methods("PATCH")

	router.HandleFunc("/users", h.listUsers).Methods("GET")
	router.HandleFunc("/users", h.createUser).Methods("POST")
	router.HandleFunc("/users/{username}", h.getUser).Methods("GET")
	router.HandleFunc("/users/{username}", h.putUser).Methods("PUT")
	router.HandleFunc("/users/{username}", h.patchUser).Methods("PATCH")
	router.HandleFunc("/users/{username}", h.deleteUser).Methods("DELETE")
}

// userResponse is the read projection of an account; the confirmation code
// and superuser/staff flags never leave the server.
type userResponse struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	Bio       string `json:"bio"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func newUserResponse(u *auth.User) userResponse {
	return userResponse{
		Username:  u.Username,
		Email:     u.Email,
		Role:      string(u.Role),
		Bio:       u.Bio,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

// userPatch carries a partial account update; nil fields are left unchanged
type userPatch struct {
	Email     *string `json:"email"`
	Role      *string `json:"role"`
	Bio       *string `json:"bio"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

// apply copies the non-nil patch fields onto the user
func (p *userPatch) apply(user *auth.User) {
	if p.Email != nil {
		user.Email = *p.Email
	}
	if p.Role != nil {
		user.Role = auth.Role(*p.Role)
	}
	if p.Bio != nil {
		user.Bio = *p.Bio
	}
	if p.FirstName != nil {
		user.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		user.LastName = *p.LastName
	}
}

// getMe handles GET /v1/users/me
func (h *UserHandlers) getMe(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	httputil.WriteSuccess(w, newUserResponse(actor))
}

// patchMe handles PATCH /v1/users/me.
// A non-admin may edit their profile but not their role: a role field in the
// request is ignored rather than rejected, so profile edits from standard
// clients never fail on it.
func (h *UserHandlers) patchMe(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var patch userPatch
	if !httputil.ParseJSONOrError(w, r, &patch) {
		return
	}
	if !actor.IsAdmin() {
		patch.Role = nil
	}

	user, err := h.storage.GetUserByUsername(r.Context(), actor.Username)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	oldRole := user.Role
	patch.apply(user)
	if !h.validateUpdate(w, user) {
		return
	}
	if err := h.storage.UpdateUser(r.Context(), user); err != nil {
		h.writeStoreError(w, err)
		return
	}
	if err := h.revokeOnRoleChange(r, oldRole, user); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, newUserResponse(user))
}

// listUsers handles GET /v1/users
func (h *UserHandlers) listUsers(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r, h.listPolicy) {
		return
	}
	page, err := httputil.ParsePagination(r, 25, 100)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	users, err := h.storage.ListUsers(r.Context(), page.Limit, page.Offset)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, newUserResponse(u))
	}
	httputil.WriteSuccess(w, out)
}

// createUser handles POST /v1/users
func (h *UserHandlers) createUser(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r, h.listPolicy) {
		return
	}

	var req struct {
		Username  string `json:"username"`
		Email     string `json:"email"`
		Role      string `json:"role"`
		Bio       string `json:"bio"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Role == "" {
		req.Role = string(auth.RoleUser)
	}

	user := &auth.User{
		Username:  req.Username,
		Email:     req.Email,
		Role:      auth.Role(req.Role),
		Bio:       req.Bio,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}

	details := map[string]string{}
	if msg := validateUsername(user.Username); msg != "" {
		details["username"] = msg
	}
	if msg := validateEmail(user.Email); msg != "" {
		details["email"] = msg
	}
	if !user.Role.Valid() {
		details["role"] = auth.ErrInvalidRole{Role: user.Role}.Error()
	}
	if len(details) > 0 {
		httputil.WriteValidationError(w, "invalid user", details)
		return
	}

	if err := h.storage.CreateUser(r.Context(), user); err != nil {
		h.writeStoreError(w, err)
		return
	}
	httputil.WriteCreated(w, newUserResponse(user))
}

// getUser handles GET /v1/users/{username}
func (h *UserHandlers) getUser(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r, h.accountPolicy) {
		return
	}
	username, ok := httputil.ParsePathStringOrError(w, r, "username")
	if !ok {
		return
	}

	user, err := h.storage.GetUserByUsername(r.Context(), username)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	httputil.WriteSuccess(w, newUserResponse(user))
}

// putUser handles PUT /v1/users/{username}: a full replace of the mutable
// fields. Absent fields reset to their zero values.
func (h *UserHandlers) putUser(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r, h.accountPolicy) {
		return
	}
	username, ok := httputil.ParsePathStringOrError(w, r, "username")
	if !ok {
		return
	}

	var req struct {
		Email     string `json:"email"`
		Role      string `json:"role"`
		Bio       string `json:"bio"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Role == "" {
		req.Role = string(auth.RoleUser)
	}

	user, err := h.storage.GetUserByUsername(r.Context(), username)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}

	oldRole := user.Role
	user.Email = req.Email
	user.Role = auth.Role(req.Role)
	user.Bio = req.Bio
	user.FirstName = req.FirstName
	user.LastName = req.LastName

	if !h.validateUpdate(w, user) {
		return
	}
	if err := h.storage.UpdateUser(r.Context(), user); err != nil {
		h.writeStoreError(w, err)
		return
	}
	if err := h.revokeOnRoleChange(r, oldRole, user); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, newUserResponse(user))
}

// patchUser handles PATCH /v1/users/{username}
func (h *UserHandlers) patchUser(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r, h.accountPolicy) {
		return
	}
	username, ok := httputil.ParsePathStringOrError(w, r, "username")
	if !ok {
		return
	}

	var patch userPatch
	if !httputil.ParseJSONOrError(w, r, &patch) {
		return
	}

	user, err := h.storage.GetUserByUsername(r.Context(), username)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}

	oldRole := user.Role
	patch.apply(user)
	if !h.validateUpdate(w, user) {
		return
	}
	if err := h.storage.UpdateUser(r.Context(), user); err != nil {
		h.writeStoreError(w, err)
		return
	}
	if err := h.revokeOnRoleChange(r, oldRole, user); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, newUserResponse(user))
}

// deleteUser handles DELETE /v1/users/{username}
func (h *UserHandlers) deleteUser(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r, h.accountPolicy) {
		return
	}
	username, ok := httputil.ParsePathStringOrError(w, r, "username")
	if !ok {
		return
	}

	if err := h.storage.DeleteUser(r.Context(), username); err != nil {
		h.writeStoreError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

// revokeOnRoleChange revokes the user's live tokens after a role change so
// a demoted account cannot keep acting with its old permissions.
func (h *UserHandlers) revokeOnRoleChange(r *http.Request, oldRole auth.Role, user *auth.User) error {
	if user.Role == oldRole {
		return nil
	}
	_, err := h.storage.RevokeUserTokens(r.Context(), user.ID)
	return err
}

func (h *UserHandlers) validateUpdate(w http.ResponseWriter, user *auth.User) bool {
	details := map[string]string{}
	if msg := validateEmail(user.Email); msg != "" {
		details["email"] = msg
	}
	if !user.Role.Valid() {
		details["role"] = auth.ErrInvalidRole{Role: user.Role}.Error()
	}
	if len(details) > 0 {
		httputil.WriteValidationError(w, "invalid user", details)
		return false
	}
	return true
}

// authorize enforces a management gate. 401 for anonymous callers, 403 for
// authenticated actors the policy rejects.
func (h *UserHandlers) authorize(w http.ResponseWriter, r *http.Request, policy rbac.Policy) bool {
	actor, ok := actorFrom(r)
	if !ok {
		httputil.WriteUnauthorized(w, "authentication required")
		return false
	}
	if !policy.Allow(actor, r.Method) {
		httputil.WriteForbidden(w, "admin access required")
		return false
	}
	return true
}

func (h *UserHandlers) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httputil.WriteNotFoundError(w, "user not found")
	case errors.Is(err, ErrConflict):
		httputil.WriteBadRequest(w, "username or email already in use")
	default:
		var invalidRole auth.ErrInvalidRole
		if errors.As(err, &invalidRole) {
			httputil.WriteBadRequest(w, invalidRole.Error())
			return
		}
		httputil.WriteInternalError(w, err)
	}
}
