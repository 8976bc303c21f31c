package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/critiquelabs/critique/pkg/httputil"
	"github.com/critiquelabs/critique/pkg/rbac"
)

// CommentHandlers handles comments nested under reviews, with the same
// access rules as reviews.
type CommentHandlers struct {
	storage Storage
	policy  rbac.AuthorOrModerator
}

// NewCommentHandlers creates a new comment handlers instance
func NewCommentHandlers(storage Storage) *CommentHandlers {
	return &CommentHandlers{storage: storage}
}

// RegisterRoutes registers comment routes
func (h *CommentHandlers) RegisterRoutes(router *mux.Router) {
	base := "/titles/{titleID:[0-9]+}/reviews/{reviewID:[0-9]+}/comments"
	router.HandleFunc(base, h.listComments).Methods("GET")
	router.HandleFunc(base, h.createComment).Methods("POST")
	router.HandleFunc(base+"/{commentID:[0-9]+}", h.getComment).Methods("GET")
	router.HandleFunc(base+"/{commentID:[0-9]+}", h.patchComment).Methods("PATCH")
	router.HandleFunc(base+"/{commentID:[0-9]+}", h.deleteComment).Methods("DELETE")
}

// listComments handles GET .../reviews/{reviewID}/comments
func (h *CommentHandlers) listComments(w http.ResponseWriter, r *http.Request) {
	reviewID, ok := h.reviewID(w, r)
	if !ok {
		return
	}
	page, err := httputil.ParsePagination(r, 25, 100)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	comments, err := h.storage.ListComments(r.Context(), reviewID, page.Limit, page.Offset)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, comments)
}

// createComment handles POST .../reviews/{reviewID}/comments
func (h *CommentHandlers) createComment(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	reviewID, ok := h.reviewID(w, r)
	if !ok {
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Text, "text") {
		return
	}

	comment := &Comment{
		ReviewID: reviewID,
		AuthorID: actor.ID,
		Author:   actor.Username,
		Text:     req.Text,
	}
	if err := h.storage.CreateComment(r.Context(), comment); err != nil {
		h.writeStoreError(w, err)
		return
	}
	httputil.WriteCreated(w, comment)
}

// getComment handles GET .../comments/{commentID}
func (h *CommentHandlers) getComment(w http.ResponseWriter, r *http.Request) {
	reviewID, commentID, ok := h.pathIDs(w, r)
	if !ok {
		return
	}

	comment, err := h.storage.GetComment(r.Context(), reviewID, commentID)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	httputil.WriteSuccess(w, comment)
}

// patchComment handles PATCH .../comments/{commentID}
func (h *CommentHandlers) patchComment(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	reviewID, commentID, ok := h.pathIDs(w, r)
	if !ok {
		return
	}

	comment, err := h.storage.GetComment(r.Context(), reviewID, commentID)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	if !h.policy.AllowObject(actor, r.Method, comment.AuthorID) {
		httputil.WriteForbidden(w, "not the comment author")
		return
	}

	var patch struct {
		Text *string `json:"text"`
	}
	if !httputil.ParseJSONOrError(w, r, &patch) {
		return
	}
	if patch.Text != nil {
		comment.Text = *patch.Text
	}
	if !httputil.RequireNonEmpty(w, comment.Text, "text") {
		return
	}

	if err := h.storage.UpdateComment(r.Context(), comment); err != nil {
		h.writeStoreError(w, err)
		return
	}
	httputil.WriteSuccess(w, comment)
}

// deleteComment handles DELETE .../comments/{commentID}
func (h *CommentHandlers) deleteComment(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	reviewID, commentID, ok := h.pathIDs(w, r)
	if !ok {
		return
	}

	comment, err := h.storage.GetComment(r.Context(), reviewID, commentID)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	if !h.policy.AllowObject(actor, r.Method, comment.AuthorID) {
		httputil.WriteForbidden(w, "not the comment author")
		return
	}

	if err := h.storage.DeleteComment(r.Context(), reviewID, commentID); err != nil {
		h.writeStoreError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

// reviewID parses the path variables and verifies the review exists under
// the title, so comment routes under an unknown review answer 404.
func (h *CommentHandlers) reviewID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	titleID, ok := httputil.ParsePathInt64OrError(w, r, "titleID")
	if !ok {
		return 0, false
	}
	reviewID, ok := httputil.ParsePathInt64OrError(w, r, "reviewID")
	if !ok {
		return 0, false
	}
	if _, err := h.storage.GetReview(r.Context(), titleID, reviewID); err != nil {
		h.writeStoreError(w, err)
		return 0, false
	}
	return reviewID, true
}

func (h *CommentHandlers) pathIDs(w http.ResponseWriter, r *http.Request) (reviewID, commentID int64, ok bool) {
	reviewID, ok = h.reviewID(w, r)
	if !ok {
		return 0, 0, false
	}
	commentID, ok = httputil.ParsePathInt64OrError(w, r, "commentID")
	if !ok {
		return 0, 0, false
	}
	return reviewID, commentID, true
}

func (h *CommentHandlers) writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) {
		httputil.WriteNotFoundError(w, "not found")
		return
	}
	httputil.WriteInternalError(w, err)
}
