package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/critiquelabs/critique/pkg/httputil"
	"github.com/critiquelabs/critique/pkg/rbac"
)

// TitleHandlers handles title CRUD. Reads are public; writes are admin-only.
type TitleHandlers struct {
	storage Storage
	policy  rbac.AdminOrReadOnly
}

// NewTitleHandlers creates a new title handlers instance
func NewTitleHandlers(storage Storage) *TitleHandlers {
	return &TitleHandlers{storage: storage}
}

// RegisterRoutes registers title routes
func (h *TitleHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/titles", h.listTitles).Methods("GET")
	router.HandleFunc("/titles", h.createTitle).Methods("POST")
	router.HandleFunc("/titles/{titleID:[0-9]+}", h.getTitle).Methods("GET")
	router.HandleFunc("/titles/{titleID:[0-9]+}", h.patchTitle).Methods("PATCH")
	router.HandleFunc("/titles/{titleID:[0-9]+}", h.deleteTitle).Methods("DELETE")
}

// listTitles handles GET /v1/titles with filtering by category slug, genre
// slug, name substring and exact year.
func (h *TitleHandlers) listTitles(w http.ResponseWriter, r *http.Request) {
	page, err := httputil.ParsePagination(r, 25, 100)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	filter := TitleFilter{Limit: page.Limit, Offset: page.Offset}
	if v := httputil.ParseQueryString(r, "category", ""); v != "" {
		filter.Category = &v
	}
	if v := httputil.ParseQueryString(r, "genre", ""); v != "" {
		filter.Genre = &v
	}
	if v := httputil.ParseQueryString(r, "name", ""); v != "" {
		filter.Name = &v
	}
	if r.URL.Query().Get("year") != "" {
		year, err := httputil.ParseQueryInt(r, "year", 0)
		if err != nil {
			httputil.WriteBadRequest(w, "year must be an integer")
			return
		}
		filter.Year = &year
	}

	titles, err := h.storage.ListTitles(r.Context(), filter)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, titles)
}

// createTitle handles POST /v1/titles
func (h *TitleHandlers) createTitle(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}

	var write TitleWrite
	if !httputil.ParseJSONOrError(w, r, &write) {
		return
	}
	if !h.validateWrite(w, write.Name, write.Year) {
		return
	}

	title, err := h.storage.CreateTitle(r.Context(), &write)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	httputil.WriteCreated(w, title)
}

// getTitle handles GET /v1/titles/{titleID}
func (h *TitleHandlers) getTitle(w http.ResponseWriter, r *http.Request) {
	titleID, ok := httputil.ParsePathInt64OrError(w, r, "titleID")
	if !ok {
		return
	}

	title, err := h.storage.GetTitle(r.Context(), titleID)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	httputil.WriteSuccess(w, title)
}

// patchTitle handles PATCH /v1/titles/{titleID}
func (h *TitleHandlers) patchTitle(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}
	titleID, ok := httputil.ParsePathInt64OrError(w, r, "titleID")
	if !ok {
		return
	}

	var patch TitlePatch
	if !httputil.ParseJSONOrError(w, r, &patch) {
		return
	}
	details := map[string]string{}
	if patch.Name != nil {
		if msg := validateTitleName(*patch.Name); msg != "" {
			details["name"] = msg
		}
	}
	if patch.Year != nil {
		if msg := validateTitleYear(*patch.Year); msg != "" {
			details["year"] = msg
		}
	}
	if len(details) > 0 {
		httputil.WriteValidationError(w, "invalid title", details)
		return
	}

	title, err := h.storage.UpdateTitle(r.Context(), titleID, &patch)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	httputil.WriteSuccess(w, title)
}

// deleteTitle handles DELETE /v1/titles/{titleID}
func (h *TitleHandlers) deleteTitle(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}
	titleID, ok := httputil.ParsePathInt64OrError(w, r, "titleID")
	if !ok {
		return
	}

	if err := h.storage.DeleteTitle(r.Context(), titleID); err != nil {
		h.writeStoreError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

func validateTitleName(name string) string {
	if name == "" {
		return "name is required"
	}
	if len(name) > maxNameLength {
		return "name must be at most 256 characters"
	}
	return ""
}

// validateTitleYear rejects future years; "this year" is the boundary and
// passes.
func validateTitleYear(year int) string {
	if year > time.Now().Year() {
		return "year must not be in the future"
	}
	return ""
}

// validateWrite checks the full write shape on create.
func (h *TitleHandlers) validateWrite(w http.ResponseWriter, name string, year int) bool {
	details := map[string]string{}
	if msg := validateTitleName(name); msg != "" {
		details["name"] = msg
	}
	if msg := validateTitleYear(year); msg != "" {
		details["year"] = msg
	}
	if len(details) > 0 {
		httputil.WriteValidationError(w, "invalid title", details)
		return false
	}
	return true
}

func (h *TitleHandlers) authorize(w http.ResponseWriter, r *http.Request) bool {
	actor, ok := actorFrom(r)
	if !ok {
		httputil.WriteUnauthorized(w, "authentication required")
		return false
	}
	if !h.policy.Allow(actor, r.Method) {
		httputil.WriteForbidden(w, "admin access required")
		return false
	}
	return true
}

func (h *TitleHandlers) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrBadReference):
		httputil.WriteBadRequest(w, err.Error())
	case errors.Is(err, ErrNotFound):
		httputil.WriteNotFoundError(w, "title not found")
	default:
		httputil.WriteInternalError(w, err)
	}
}
