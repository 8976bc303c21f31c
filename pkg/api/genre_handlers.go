package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/critiquelabs/critique/pkg/httputil"
	"github.com/critiquelabs/critique/pkg/rbac"
)

// GenreHandlers handles genre CRUD with the same access rules as categories
type GenreHandlers struct {
	storage Storage
	policy  rbac.AdminOrReadOnly
}

// NewGenreHandlers creates a new genre handlers instance
func NewGenreHandlers(storage Storage) *GenreHandlers {
	return &GenreHandlers{storage: storage}
}

// RegisterRoutes registers genre routes
func (h *GenreHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/genres", h.listGenres).Methods("GET")
	router.HandleFunc("/genres", h.createGenre).Methods("POST")
	router.HandleFunc("/genres/{slug}", h.deleteGenre).Methods("DELETE")
}

// listGenres handles GET /v1/genres
func (h *GenreHandlers) listGenres(w http.ResponseWriter, r *http.Request) {
	page, err := httputil.ParsePagination(r, 25, 100)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	search := httputil.ParseQueryString(r, "search", "")

	genres, err := h.storage.ListGenres(r.Context(), search, page.Limit, page.Offset)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, genres)
}

// createGenre handles POST /v1/genres
func (h *GenreHandlers) createGenre(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	if !h.policy.Allow(actor, r.Method) {
		httputil.WriteForbidden(w, "admin access required")
		return
	}

	var genre Genre
	if !httputil.ParseJSONOrError(w, r, &genre) {
		return
	}

	details := map[string]string{}
	if genre.Name == "" {
		details["name"] = "name is required"
	} else if len(genre.Name) > maxNameLength {
		details["name"] = "name must be at most 256 characters"
	}
	if msg := validateSlug(genre.Slug); msg != "" {
		details["slug"] = msg
	}
	if len(details) > 0 {
		httputil.WriteValidationError(w, "invalid genre", details)
		return
	}

	if err := h.storage.CreateGenre(r.Context(), &genre); err != nil {
		if errors.Is(err, ErrConflict) {
			httputil.WriteBadRequest(w, "genre slug already exists")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteCreated(w, genre)
}

// deleteGenre handles DELETE /v1/genres/{slug}
func (h *GenreHandlers) deleteGenre(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	if !rbac.SlugDeleteAllowed(actor) {
		httputil.WriteForbidden(w, "admin role required")
		return
	}
	slug, ok := httputil.ParsePathStringOrError(w, r, "slug")
	if !ok {
		return
	}

	if err := h.storage.DeleteGenreBySlug(r.Context(), slug); err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.WriteNotFoundError(w, "genre not found")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}
