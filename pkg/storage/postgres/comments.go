package postgres

import (
	"context"
	"fmt"

	"github.com/critiquelabs/critique/pkg/api"
)

// CreateComment inserts a comment under a review
func (s *PostgresStorage) CreateComment(ctx context.Context, comment *api.Comment) (err error) {
	done := s.instrument("comments.create")
	defer func() { done(err) }()

	err = s.db.QueryRowContext(ctx, `
		INSERT INTO comments (review_id, author_id, text)
		VALUES ($1, $2, $3)
		RETURNING id, pub_date`,
		comment.ReviewID, comment.AuthorID, comment.Text,
	).Scan(&comment.ID, &comment.PubDate)
	if err != nil {
		return translateError("create comment", err)
	}
	return nil
}

// GetComment retrieves a comment scoped to its review
func (s *PostgresStorage) GetComment(ctx context.Context, reviewID, commentID int64) (_ *api.Comment, err error) {
	done := s.instrument("comments.get")
	defer func() { done(err) }()

	var c api.Comment
	err = s.db.QueryRowContext(ctx, `
		SELECT c.id, c.review_id, c.author_id, u.username, c.text, c.pub_date
		FROM comments c
		JOIN users u ON u.id = c.author_id
		WHERE c.id = $1 AND c.review_id = $2`,
		commentID, reviewID,
	).Scan(&c.ID, &c.ReviewID, &c.AuthorID, &c.Author, &c.Text, &c.PubDate)
	if err != nil {
		return nil, translateError("get comment", err)
	}
	return &c, nil
}

// ListComments retrieves the comments under a review, oldest first
func (s *PostgresStorage) ListComments(ctx context.Context, reviewID int64, limit, offset int) (_ []*api.Comment, err error) {
	done := s.instrument("comments.list")
	defer func() { done(err) }()

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.review_id, c.author_id, u.username, c.text, c.pub_date
		FROM comments c
		JOIN users u ON u.id = c.author_id
		WHERE c.review_id = $1
		ORDER BY c.pub_date, c.id LIMIT $2 OFFSET $3`,
		reviewID, limit, offset,
	)
	if err != nil {
		return nil, translateError("list comments", err)
	}
	defer rows.Close()

	comments := make([]*api.Comment, 0)
	for rows.Next() {
		var c api.Comment
		if err := rows.Scan(&c.ID, &c.ReviewID, &c.AuthorID, &c.Author, &c.Text, &c.PubDate); err != nil {
			return nil, translateError("list comments: scan", err)
		}
		comments = append(comments, &c)
	}
	return comments, rows.Err()
}

// UpdateComment persists the text of an existing comment
func (s *PostgresStorage) UpdateComment(ctx context.Context, comment *api.Comment) (err error) {
	done := s.instrument("comments.update")
	defer func() { done(err) }()

	result, err := s.db.ExecContext(ctx, `
		UPDATE comments SET text = $1
		WHERE id = $2 AND review_id = $3`,
		comment.Text, comment.ID, comment.ReviewID,
	)
	if err != nil {
		return translateError("update comment", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update comment: %w", err)
	}
	if affected == 0 {
		return api.ErrNotFound
	}
	return nil
}

// DeleteComment removes a comment
func (s *PostgresStorage) DeleteComment(ctx context.Context, reviewID, commentID int64) (err error) {
	done := s.instrument("comments.delete")
	defer func() { done(err) }()

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM comments WHERE id = $1 AND review_id = $2`,
		commentID, reviewID,
	)
	if err != nil {
		return translateError("delete comment", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	if affected == 0 {
		return api.ErrNotFound
	}
	return nil
}
