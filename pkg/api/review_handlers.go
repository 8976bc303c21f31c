package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/critiquelabs/critique/pkg/httputil"
	"github.com/critiquelabs/critique/pkg/rbac"
)

// ReviewHandlers handles reviews nested under titles. Reads are public;
// any authenticated user may post, and edits are limited to the author,
// moderators and admins.
type ReviewHandlers struct {
	storage Storage
	policy  rbac.AuthorOrModerator
}

// NewReviewHandlers creates a new review handlers instance
func NewReviewHandlers(storage Storage) *ReviewHandlers {
	return &ReviewHandlers{storage: storage}
}

// RegisterRoutes registers review routes
func (h *ReviewHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/titles/{titleID:[0-9]+}/reviews", h.listReviews).Methods("GET")
	router.HandleFunc("/titles/{titleID:[0-9]+}/reviews", h.createReview).Methods("POST")
	router.HandleFunc("/titles/{titleID:[0-9]+}/reviews/{reviewID:[0-9]+}", h.getReview).Methods("GET")
	router.HandleFunc("/titles/{titleID:[0-9]+}/reviews/{reviewID:[0-9]+}", h.patchReview).Methods("PATCH")
	router.HandleFunc("/titles/{titleID:[0-9]+}/reviews/{reviewID:[0-9]+}", h.deleteReview).Methods("DELETE")
}

// listReviews handles GET /v1/titles/{titleID}/reviews
func (h *ReviewHandlers) listReviews(w http.ResponseWriter, r *http.Request) {
	titleID, ok := h.titleID(w, r)
	if !ok {
		return
	}
	page, err := httputil.ParsePagination(r, 25, 100)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	reviews, err := h.storage.ListReviews(r.Context(), titleID, page.Limit, page.Offset)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, reviews)
}

// createReview handles POST /v1/titles/{titleID}/reviews.
// One review per user per title: a duplicate is a 400, whether it is caught
// here or by the storage constraint under a race.
func (h *ReviewHandlers) createReview(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	titleID, ok := h.titleID(w, r)
	if !ok {
		return
	}

	var req struct {
		Text  string `json:"text"`
		Score int    `json:"score"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !h.validateReview(w, req.Text, req.Score) {
		return
	}

	review := &Review{
		TitleID:  titleID,
		AuthorID: actor.ID,
		Author:   actor.Username,
		Text:     req.Text,
		Score:    req.Score,
	}
	if err := h.storage.CreateReview(r.Context(), review); err != nil {
		switch {
		case errors.Is(err, ErrConflict):
			httputil.WriteBadRequest(w, "you have already reviewed this title")
		case errors.Is(err, ErrNotFound):
			httputil.WriteNotFoundError(w, "title not found")
		default:
			httputil.WriteInternalError(w, err)
		}
		return
	}
	httputil.WriteCreated(w, review)
}

// getReview handles GET /v1/titles/{titleID}/reviews/{reviewID}
func (h *ReviewHandlers) getReview(w http.ResponseWriter, r *http.Request) {
	titleID, reviewID, ok := h.pathIDs(w, r)
	if !ok {
		return
	}

	review, err := h.storage.GetReview(r.Context(), titleID, reviewID)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	httputil.WriteSuccess(w, review)
}

// patchReview handles PATCH /v1/titles/{titleID}/reviews/{reviewID}
func (h *ReviewHandlers) patchReview(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	titleID, reviewID, ok := h.pathIDs(w, r)
	if !ok {
		return
	}

	review, err := h.storage.GetReview(r.Context(), titleID, reviewID)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	if !h.policy.AllowObject(actor, r.Method, review.AuthorID) {
		httputil.WriteForbidden(w, "not the review author")
		return
	}

	var patch struct {
		Text  *string `json:"text"`
		Score *int    `json:"score"`
	}
	if !httputil.ParseJSONOrError(w, r, &patch) {
		return
	}
	if patch.Text != nil {
		review.Text = *patch.Text
	}
	if patch.Score != nil {
		review.Score = *patch.Score
	}
	if !h.validateReview(w, review.Text, review.Score) {
		return
	}

	if err := h.storage.UpdateReview(r.Context(), review); err != nil {
		h.writeStoreError(w, err)
		return
	}
	httputil.WriteSuccess(w, review)
}

// deleteReview handles DELETE /v1/titles/{titleID}/reviews/{reviewID}
func (h *ReviewHandlers) deleteReview(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	titleID, reviewID, ok := h.pathIDs(w, r)
	if !ok {
		return
	}

	review, err := h.storage.GetReview(r.Context(), titleID, reviewID)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	if !h.policy.AllowObject(actor, r.Method, review.AuthorID) {
		httputil.WriteForbidden(w, "not the review author")
		return
	}

	if err := h.storage.DeleteReview(r.Context(), titleID, reviewID); err != nil {
		h.writeStoreError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

// validateReview checks the text and the 1..10 score range
func (h *ReviewHandlers) validateReview(w http.ResponseWriter, text string, score int) bool {
	details := map[string]string{}
	if text == "" {
		details["text"] = "text is required"
	}
	if score < 1 || score > 10 {
		details["score"] = "score must be between 1 and 10"
	}
	if len(details) > 0 {
		httputil.WriteValidationError(w, "invalid review", details)
		return false
	}
	return true
}

// titleID parses the title path variable and verifies the title exists, so
// review routes under an unknown title answer 404 rather than empty lists.
func (h *ReviewHandlers) titleID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	titleID, ok := httputil.ParsePathInt64OrError(w, r, "titleID")
	if !ok {
		return 0, false
	}
	if _, err := h.storage.GetTitle(r.Context(), titleID); err != nil {
		h.writeStoreError(w, err)
		return 0, false
	}
	return titleID, true
}

func (h *ReviewHandlers) pathIDs(w http.ResponseWriter, r *http.Request) (titleID, reviewID int64, ok bool) {
	titleID, ok = httputil.ParsePathInt64OrError(w, r, "titleID")
	if !ok {
		return 0, 0, false
	}
	reviewID, ok = httputil.ParsePathInt64OrError(w, r, "reviewID")
	if !ok {
		return 0, 0, false
	}
	return titleID, reviewID, true
}

func (h *ReviewHandlers) writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) {
		httputil.WriteNotFoundError(w, "not found")
		return
	}
	httputil.WriteInternalError(w, err)
}
