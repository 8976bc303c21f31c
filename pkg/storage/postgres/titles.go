package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/critiquelabs/critique/pkg/api"
)

// CreateTitle resolves the category and genre slugs and inserts the title
// with its genre links in one transaction. An unknown slug yields
// ErrBadReference and nothing is written.
func (s *PostgresStorage) CreateTitle(ctx context.Context, write *api.TitleWrite) (_ *api.Title, err error) {
	done := s.instrument("titles.create")
	defer func() { done(err) }()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("create title: begin: %w", err)
	}
	defer tx.Rollback()

	title := &api.Title{
		Name:        write.Name,
		Year:        write.Year,
		Description: write.Description,
		Genres:      []api.Genre{},
	}

	var categoryID sql.NullInt64
	if write.Category != nil {
		category, err := resolveCategory(ctx, tx, *write.Category)
		if err != nil {
			return nil, err
		}
		categoryID = sql.NullInt64{Int64: category.ID, Valid: true}
		title.Category = category
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO titles (name, year, description, category_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		write.Name, write.Year, write.Description, categoryID,
	).Scan(&title.ID)
	if err != nil {
		return nil, translateError("create title", err)
	}

	genres, err := linkGenres(ctx, tx, title.ID, write.Genres)
	if err != nil {
		return nil, err
	}
	title.Genres = genres

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("create title: commit: %w", err)
	}
	return title, nil
}

func resolveCategory(ctx context.Context, tx *sql.Tx, slug string) (*api.Category, error) {
	var c api.Category
	err := tx.QueryRowContext(ctx,
		`SELECT id, name, slug FROM categories WHERE slug = $1`, slug,
	).Scan(&c.ID, &c.Name, &c.Slug)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("category %q: %w", slug, api.ErrBadReference)
	}
	if err != nil {
		return nil, translateError("resolve category", err)
	}
	return &c, nil
}

// linkGenres replaces the genre links of a title with the given slugs
func linkGenres(ctx context.Context, tx *sql.Tx, titleID int64, slugs []string) ([]api.Genre, error) {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM genre_titles WHERE title_id = $1`, titleID); err != nil {
		return nil, translateError("unlink genres", err)
	}

	genres := make([]api.Genre, 0, len(slugs))
	for _, slug := range slugs {
		var g api.Genre
		err := tx.QueryRowContext(ctx,
			`SELECT id, name, slug FROM genres WHERE slug = $1`, slug,
		).Scan(&g.ID, &g.Name, &g.Slug)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("genre %q: %w", slug, api.ErrBadReference)
		}
		if err != nil {
			return nil, translateError("resolve genre", err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO genre_titles (genre_id, title_id) VALUES ($1, $2)
			 ON CONFLICT (genre_id, title_id) DO NOTHING`,
			g.ID, titleID); err != nil {
			return nil, translateError("link genre", err)
		}
		genres = append(genres, g)
	}
	return genres, nil
}

// GetTitle retrieves a title with its category, genres and rating attached
func (s *PostgresStorage) GetTitle(ctx context.Context, id int64) (_ *api.Title, err error) {
	done := s.instrument("titles.get")
	defer func() { done(err) }()

	var t api.Title
	var catID sql.NullInt64
	var catName, catSlug sql.NullString
	err = s.db.QueryRowContext(ctx, `
		SELECT t.id, t.name, t.year, t.description, c.id, c.name, c.slug
		FROM titles t
		LEFT JOIN categories c ON c.id = t.category_id
		WHERE t.id = $1`,
		id,
	).Scan(&t.ID, &t.Name, &t.Year, &t.Description, &catID, &catName, &catSlug)
	if err != nil {
		return nil, translateError("get title", err)
	}
	if catID.Valid {
		t.Category = &api.Category{ID: catID.Int64, Name: catName.String, Slug: catSlug.String}
	}

	if err := s.attachGenres(ctx, []*api.Title{&t}); err != nil {
		return nil, err
	}
	rating, err := s.TitleRating(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	t.Rating = rating
	return &t, nil
}

// ListTitles retrieves titles matching the filter, each with its category,
// genres and rating attached.
func (s *PostgresStorage) ListTitles(ctx context.Context, filter api.TitleFilter) (_ []*api.Title, err error) {
	done := s.instrument("titles.list")
	defer func() { done(err) }()

	conditions := []string{"TRUE"}
	args := []interface{}{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Category != nil {
		conditions = append(conditions, "c.slug = "+arg(*filter.Category))
	}
	if filter.Genre != nil {
		conditions = append(conditions, `t.id IN (
			SELECT gt.title_id FROM genre_titles gt
			JOIN genres g ON g.id = gt.genre_id
			WHERE g.slug = `+arg(*filter.Genre)+")")
	}
	if filter.Name != nil {
		conditions = append(conditions, "t.name ILIKE '%' || "+arg(*filter.Name)+" || '%'")
	}
	if filter.Year != nil {
		conditions = append(conditions, "t.year = "+arg(*filter.Year))
	}

	query := `
		SELECT t.id, t.name, t.year, t.description, c.id, c.name, c.slug
		FROM titles t
		LEFT JOIN categories c ON c.id = t.category_id
		WHERE ` + strings.Join(conditions, " AND ") + `
		ORDER BY t.id LIMIT ` + arg(filter.Limit) + ` OFFSET ` + arg(filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translateError("list titles", err)
	}
	defer rows.Close()

	titles := make([]*api.Title, 0)
	for rows.Next() {
		var t api.Title
		var catID sql.NullInt64
		var catName, catSlug sql.NullString
		if err := rows.Scan(&t.ID, &t.Name, &t.Year, &t.Description, &catID, &catName, &catSlug); err != nil {
			return nil, translateError("list titles: scan", err)
		}
		if catID.Valid {
			t.Category = &api.Category{ID: catID.Int64, Name: catName.String, Slug: catSlug.String}
		}
		titles = append(titles, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError("list titles", err)
	}

	if err := s.attachGenres(ctx, titles); err != nil {
		return nil, err
	}
	for _, t := range titles {
		rating, err := s.TitleRating(ctx, t.ID)
		if err != nil {
			return nil, err
		}
		t.Rating = rating
	}
	return titles, nil
}

// attachGenres fills Genres for each title in one query
func (s *PostgresStorage) attachGenres(ctx context.Context, titles []*api.Title) error {
	if len(titles) == 0 {
		return nil
	}

	byID := make(map[int64]*api.Title, len(titles))
	ids := make([]string, 0, len(titles))
	args := make([]interface{}, 0, len(titles))
	for i, t := range titles {
		t.Genres = []api.Genre{}
		byID[t.ID] = t
		ids = append(ids, fmt.Sprintf("$%d", i+1))
		args = append(args, t.ID)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT gt.title_id, g.id, g.name, g.slug
		FROM genre_titles gt
		JOIN genres g ON g.id = gt.genre_id
		WHERE gt.title_id IN (`+strings.Join(ids, ", ")+`)
		ORDER BY g.name`,
		args...,
	)
	if err != nil {
		return translateError("attach genres", err)
	}
	defer rows.Close()

	for rows.Next() {
		var titleID int64
		var g api.Genre
		if err := rows.Scan(&titleID, &g.ID, &g.Name, &g.Slug); err != nil {
			return translateError("attach genres: scan", err)
		}
		if t, ok := byID[titleID]; ok {
			t.Genres = append(t.Genres, g)
		}
	}
	return rows.Err()
}

// UpdateTitle applies the non-nil patch fields and returns the updated title
func (s *PostgresStorage) UpdateTitle(ctx context.Context, id int64, patch *api.TitlePatch) (_ *api.Title, err error) {
	done := s.instrument("titles.update")
	defer func() { done(err) }()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("update title: begin: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM titles WHERE id = $1)`, id,
	).Scan(&exists); err != nil {
		return nil, translateError("update title", err)
	}
	if !exists {
		return nil, api.ErrNotFound
	}

	if patch.Name != nil {
		if _, err := tx.ExecContext(ctx,
			`UPDATE titles SET name = $1 WHERE id = $2`, *patch.Name, id); err != nil {
			return nil, translateError("update title", err)
		}
	}
	if patch.Year != nil {
		if _, err := tx.ExecContext(ctx,
			`UPDATE titles SET year = $1 WHERE id = $2`, *patch.Year, id); err != nil {
			return nil, translateError("update title", err)
		}
	}
	if patch.Description != nil {
		if _, err := tx.ExecContext(ctx,
			`UPDATE titles SET description = $1 WHERE id = $2`, *patch.Description, id); err != nil {
			return nil, translateError("update title", err)
		}
	}
	if patch.Category != nil {
		category, err := resolveCategory(ctx, tx, *patch.Category)
		if err != nil {
			return nil, err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE titles SET category_id = $1 WHERE id = $2`, category.ID, id); err != nil {
			return nil, translateError("update title", err)
		}
	}
	if patch.Genres != nil {
		if _, err := linkGenres(ctx, tx, id, patch.Genres); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("update title: commit: %w", err)
	}
	return s.GetTitle(ctx, id)
}

// DeleteTitle removes a title; its reviews and their comments cascade
func (s *PostgresStorage) DeleteTitle(ctx context.Context, id int64) (err error) {
	done := s.instrument("titles.delete")
	defer func() { done(err) }()

	result, err := s.db.ExecContext(ctx, `DELETE FROM titles WHERE id = $1`, id)
	if err != nil {
		return translateError("delete title", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete title: %w", err)
	}
	if affected == 0 {
		return api.ErrNotFound
	}
	s.invalidateRating(ctx, id)
	return nil
}
