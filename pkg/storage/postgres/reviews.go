package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/critiquelabs/critique/pkg/api"
)

// CreateReview inserts a review. The unique (author, title) constraint is
// authoritative: a duplicate yields ErrConflict even when a racing request
// passed the handler's pre-check.
func (s *PostgresStorage) CreateReview(ctx context.Context, review *api.Review) (err error) {
	done := s.instrument("reviews.create")
	defer func() { done(err) }()

	err = s.db.QueryRowContext(ctx, `
		INSERT INTO reviews (title_id, author_id, text, score)
		VALUES ($1, $2, $3, $4)
		RETURNING id, pub_date`,
		review.TitleID, review.AuthorID, review.Text, review.Score,
	).Scan(&review.ID, &review.PubDate)
	if err != nil {
		return translateError("create review", err)
	}
	s.invalidateRating(ctx, review.TitleID)
	return nil
}

// GetReview retrieves a review scoped to its title; a review ID that exists
// under a different title yields ErrNotFound.
func (s *PostgresStorage) GetReview(ctx context.Context, titleID, reviewID int64) (_ *api.Review, err error) {
	done := s.instrument("reviews.get")
	defer func() { done(err) }()

	var r api.Review
	err = s.db.QueryRowContext(ctx, `
		SELECT r.id, r.title_id, r.author_id, u.username, r.text, r.score, r.pub_date
		FROM reviews r
		JOIN users u ON u.id = r.author_id
		WHERE r.id = $1 AND r.title_id = $2`,
		reviewID, titleID,
	).Scan(&r.ID, &r.TitleID, &r.AuthorID, &r.Author, &r.Text, &r.Score, &r.PubDate)
	if err != nil {
		return nil, translateError("get review", err)
	}
	return &r, nil
}

// ListReviews retrieves the reviews of a title, newest last
func (s *PostgresStorage) ListReviews(ctx context.Context, titleID int64, limit, offset int) (_ []*api.Review, err error) {
	done := s.instrument("reviews.list")
	defer func() { done(err) }()

	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.title_id, r.author_id, u.username, r.text, r.score, r.pub_date
		FROM reviews r
		JOIN users u ON u.id = r.author_id
		WHERE r.title_id = $1
		ORDER BY r.pub_date, r.id LIMIT $2 OFFSET $3`,
		titleID, limit, offset,
	)
	if err != nil {
		return nil, translateError("list reviews", err)
	}
	defer rows.Close()

	reviews := make([]*api.Review, 0)
	for rows.Next() {
		var r api.Review
		if err := rows.Scan(&r.ID, &r.TitleID, &r.AuthorID, &r.Author, &r.Text, &r.Score, &r.PubDate); err != nil {
			return nil, translateError("list reviews: scan", err)
		}
		reviews = append(reviews, &r)
	}
	return reviews, rows.Err()
}

// UpdateReview persists text and score for an existing review
func (s *PostgresStorage) UpdateReview(ctx context.Context, review *api.Review) (err error) {
	done := s.instrument("reviews.update")
	defer func() { done(err) }()

	result, err := s.db.ExecContext(ctx, `
		UPDATE reviews SET text = $1, score = $2
		WHERE id = $3 AND title_id = $4`,
		review.Text, review.Score, review.ID, review.TitleID,
	)
	if err != nil {
		return translateError("update review", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	if affected == 0 {
		return api.ErrNotFound
	}
	s.invalidateRating(ctx, review.TitleID)
	return nil
}

// DeleteReview removes a review and its comments
func (s *PostgresStorage) DeleteReview(ctx context.Context, titleID, reviewID int64) (err error) {
	done := s.instrument("reviews.delete")
	defer func() { done(err) }()

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM reviews WHERE id = $1 AND title_id = $2`,
		reviewID, titleID,
	)
	if err != nil {
		return translateError("delete review", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	if affected == 0 {
		return api.ErrNotFound
	}
	s.invalidateRating(ctx, titleID)
	return nil
}

// TitleRating returns the mean review score for a title, or nil when the
// title has no reviews. The aggregate is served from the cache when present.
func (s *PostgresStorage) TitleRating(ctx context.Context, titleID int64) (_ *float64, err error) {
	done := s.instrument("reviews.rating")
	defer func() { done(err) }()

	if s.redisClient != nil {
		if rating, ok := s.redisClient.GetRating(ctx, titleID); ok {
			return rating, nil
		}
	}

	var avg sql.NullFloat64
	err = s.db.QueryRowContext(ctx,
		`SELECT AVG(score) FROM reviews WHERE title_id = $1`, titleID,
	).Scan(&avg)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, translateError("title rating", err)
	}

	var rating *float64
	if avg.Valid {
		rating = &avg.Float64
	}

	if s.redisClient != nil {
		if err := s.redisClient.SetRating(ctx, titleID, rating); err != nil {
			s.log.WithError(err).Debug("failed to cache rating aggregate")
		}
	}
	return rating, nil
}

// invalidateRating drops the cached aggregate after a review write. A cache
// failure is logged, not surfaced: the TTL bounds staleness.
func (s *PostgresStorage) invalidateRating(ctx context.Context, titleID int64) {
	if s.redisClient == nil {
		return
	}
	if err := s.redisClient.InvalidateRating(ctx, titleID); err != nil {
		s.log.WithError(err).Warn("failed to invalidate rating cache")
	}
}
