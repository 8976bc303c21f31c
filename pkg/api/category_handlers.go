package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/critiquelabs/critique/pkg/httputil"
	"github.com/critiquelabs/critique/pkg/rbac"
)

// CategoryHandlers handles category CRUD. Reads are public; creation is
// admin-only and deletion follows the stricter slug-delete rule.
type CategoryHandlers struct {
	storage Storage
	policy  rbac.AdminOrReadOnly
}

// NewCategoryHandlers creates a new category handlers instance
func NewCategoryHandlers(storage Storage) *CategoryHandlers {
	return &CategoryHandlers{storage: storage}
}

// RegisterRoutes registers category routes
func (h *CategoryHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/categories", h.listCategories).Methods("GET")
	router.HandleFunc("/categories", h.createCategory).Methods("POST")
	router.HandleFunc("/categories/{slug}", h.deleteCategory).Methods("DELETE")
}

// listCategories handles GET /v1/categories
func (h *CategoryHandlers) listCategories(w http.ResponseWriter, r *http.Request) {
	page, err := httputil.ParsePagination(r, 25, 100)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	search := httputil.ParseQueryString(r, "search", "")

	categories, err := h.storage.ListCategories(r.Context(), search, page.Limit, page.Offset)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, categories)
}

// createCategory handles POST /v1/categories
func (h *CategoryHandlers) createCategory(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	if !h.policy.Allow(actor, r.Method) {
		httputil.WriteForbidden(w, "admin access required")
		return
	}

	var category Category
	if !httputil.ParseJSONOrError(w, r, &category) {
		return
	}

	details := map[string]string{}
	if category.Name == "" {
		details["name"] = "name is required"
	} else if len(category.Name) > maxNameLength {
		details["name"] = "name must be at most 256 characters"
	}
	if msg := validateSlug(category.Slug); msg != "" {
		details["slug"] = msg
	}
	if len(details) > 0 {
		httputil.WriteValidationError(w, "invalid category", details)
		return
	}

	if err := h.storage.CreateCategory(r.Context(), &category); err != nil {
		if errors.Is(err, ErrConflict) {
			httputil.WriteBadRequest(w, "category slug already exists")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteCreated(w, category)
}

// deleteCategory handles DELETE /v1/categories/{slug}
func (h *CategoryHandlers) deleteCategory(w http.ResponseWriter, r *http.Request) {
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

	if err := h.storage.DeleteCategoryBySlug(r.Context(), slug); err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.WriteNotFoundError(w, "category not found")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}
