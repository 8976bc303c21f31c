package postgres

import (
	"context"
	"fmt"

	"github.com/critiquelabs/critique/pkg/api"
)

// CreateGenre inserts a genre; a duplicate slug yields ErrConflict
func (s *PostgresStorage) CreateGenre(ctx context.Context, genre *api.Genre) (err error) {
	done := s.instrument("genres.create")
	defer func() { done(err) }()

	err = s.db.QueryRowContext(ctx,
		`INSERT INTO genres (name, slug) VALUES ($1, $2) RETURNING id`,
		genre.Name, genre.Slug,
	).Scan(&genre.ID)
	if err != nil {
		return translateError("create genre", err)
	}
	return nil
}

// ListGenres retrieves genres, optionally filtered by a name substring
func (s *PostgresStorage) ListGenres(ctx context.Context, search string, limit, offset int) (_ []*api.Genre, err error) {
	done := s.instrument("genres.list")
	defer func() { done(err) }()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, slug FROM genres
		WHERE $1 = '' OR name ILIKE '%' || $1 || '%'
		ORDER BY name LIMIT $2 OFFSET $3`,
		search, limit, offset,
	)
	if err != nil {
		return nil, translateError("list genres", err)
	}
	defer rows.Close()

	genres := make([]*api.Genre, 0)
	for rows.Next() {
		var g api.Genre
		if err := rows.Scan(&g.ID, &g.Name, &g.Slug); err != nil {
			return nil, translateError("list genres: scan", err)
		}
		genres = append(genres, &g)
	}
	return genres, rows.Err()
}

// GetGenreBySlug retrieves a single genre by slug
func (s *PostgresStorage) GetGenreBySlug(ctx context.Context, slug string) (_ *api.Genre, err error) {
	done := s.instrument("genres.get")
	defer func() { done(err) }()

	var g api.Genre
	err = s.db.QueryRowContext(ctx,
		`SELECT id, name, slug FROM genres WHERE slug = $1`,
		slug,
	).Scan(&g.ID, &g.Name, &g.Slug)
	if err != nil {
		return nil, translateError("get genre", err)
	}
	return &g, nil
}

// DeleteGenreBySlug removes a genre and its title links
func (s *PostgresStorage) DeleteGenreBySlug(ctx context.Context, slug string) (err error) {
	done := s.instrument("genres.delete")
	defer func() { done(err) }()

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM genres WHERE slug = $1`, slug)
	if err != nil {
		return translateError("delete genre", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete genre: %w", err)
	}
	if affected == 0 {
		return api.ErrNotFound
	}
	return nil
}
