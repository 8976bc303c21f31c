package api

import (
	"context"
	"errors"

	"github.com/critiquelabs/critique/pkg/auth"
)

// Domain errors returned by Storage implementations. Raw driver errors are
// translated at the storage boundary and never leak to handlers.
var (
	// ErrNotFound indicates a referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a unique-constraint violation. The write-time
	// constraint is authoritative: any pre-check is an optimization only.
	ErrConflict = errors.New("already exists")
	// ErrBadReference indicates a write referenced a category or genre slug
	// that does not exist. Distinct from ErrNotFound so handlers can answer
	// 400 for a bad payload and 404 for a missing resource.
	ErrBadReference = errors.New("referenced slug does not exist")
)

// Storage is the persistence collaborator consumed by the API server.
type Storage interface {
	UserStore
	TokenStore
	CategoryStore
	GenreStore
	TitleStore
	ReviewStore
	CommentStore
}

// UserStore persists accounts.
type UserStore interface {
	// SignupUser finds or creates the (username, email) account and stores
	// the confirmation code, all in one transaction. A username or email
	// already bound to a different pair yields ErrConflict.
	SignupUser(ctx context.Context, username, email, code string) (*auth.User, error)

	GetUserByUsername(ctx context.Context, username string) (*auth.User, error)
	ListUsers(ctx context.Context, limit, offset int) ([]*auth.User, error)
	// CreateUser inserts a fully-specified account (admin user management).
	CreateUser(ctx context.Context, user *auth.User) error
	// UpdateUser persists profile fields and role by username.
	UpdateUser(ctx context.Context, user *auth.User) error
	DeleteUser(ctx context.Context, username string) error
}

// TokenStore persists issued access tokens, keyed by SHA-256 hash.
type TokenStore interface {
	CreateToken(ctx context.Context, token *auth.AccessToken) error
	// GetUserByTokenHash resolves a token hash to its live token and owning
	// user. Revoked or unknown hashes yield ErrNotFound; expiry is checked
	// by the caller against AccessToken.ExpiresAt.
	GetUserByTokenHash(ctx context.Context, hash string) (*auth.AccessToken, *auth.User, error)
	// RevokeUserTokens revokes every live token for a user and reports how
	// many were affected.
	RevokeUserTokens(ctx context.Context, userID int64) (int64, error)
}

// CategoryStore persists categories.
type CategoryStore interface {
	CreateCategory(ctx context.Context, category *Category) error
	ListCategories(ctx context.Context, search string, limit, offset int) ([]*Category, error)
	GetCategoryBySlug(ctx context.Context, slug string) (*Category, error)
	// DeleteCategoryBySlug removes the category; titles referencing it keep
	// existing with a null category (ON DELETE SET NULL).
	DeleteCategoryBySlug(ctx context.Context, slug string) error
}

// GenreStore persists genres.
type GenreStore interface {
	CreateGenre(ctx context.Context, genre *Genre) error
	ListGenres(ctx context.Context, search string, limit, offset int) ([]*Genre, error)
	GetGenreBySlug(ctx context.Context, slug string) (*Genre, error)
	DeleteGenreBySlug(ctx context.Context, slug string) error
}

// TitleStore persists titles and their genre/category linkage.
type TitleStore interface {
	// CreateTitle resolves the category and genre slugs and inserts the
	// title with its genre links in one transaction. An unknown slug yields
	// ErrBadReference.
	CreateTitle(ctx context.Context, write *TitleWrite) (*Title, error)
	GetTitle(ctx context.Context, id int64) (*Title, error)
	ListTitles(ctx context.Context, filter TitleFilter) ([]*Title, error)
	UpdateTitle(ctx context.Context, id int64, patch *TitlePatch) (*Title, error)
	// DeleteTitle removes the title; its reviews and their comments cascade.
	DeleteTitle(ctx context.Context, id int64) error
}

// ReviewStore persists reviews and serves the rating aggregate.
type ReviewStore interface {
	// CreateReview inserts the review. A second review by the same author
	// for the same title yields ErrConflict, enforced by the unique
	// constraint regardless of any pre-check.
	CreateReview(ctx context.Context, review *Review) error
	GetReview(ctx context.Context, titleID, reviewID int64) (*Review, error)
	ListReviews(ctx context.Context, titleID int64, limit, offset int) ([]*Review, error)
	UpdateReview(ctx context.Context, review *Review) error
	DeleteReview(ctx context.Context, titleID, reviewID int64) error
	// TitleRating returns the mean review score for a title, or nil when
	// the title has no reviews.
	TitleRating(ctx context.Context, titleID int64) (*float64, error)
}

// CommentStore persists comments under reviews.
type CommentStore interface {
	CreateComment(ctx context.Context, comment *Comment) error
	GetComment(ctx context.Context, reviewID, commentID int64) (*Comment, error)
	ListComments(ctx context.Context, reviewID int64, limit, offset int) ([]*Comment, error)
	UpdateComment(ctx context.Context, comment *Comment) error
	DeleteComment(ctx context.Context, reviewID, commentID int64) error
}
