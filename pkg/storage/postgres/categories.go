package postgres

import (
	"context"
	"fmt"

	"github.com/critiquelabs/critique/pkg/api"
)

// CreateCategory inserts a category; a duplicate slug yields ErrConflict
func (s *PostgresStorage) CreateCategory(ctx context.Context, category *api.Category) (err error) {
	done := s.instrument("categories.create")
	defer func() { done(err) }()

	err = s.db.QueryRowContext(ctx,
		`INSERT INTO categories (name, slug) VALUES ($1, $2) RETURNING id`,
		category.Name, category.Slug,
	).Scan(&category.ID)
	if err != nil {
		return translateError("create category", err)
	}
	return nil
}

// ListCategories retrieves categories, optionally filtered by a name substring
func (s *PostgresStorage) ListCategories(ctx context.Context, search string, limit, offset int) (_ []*api.Category, err error) {
	done := s.instrument("categories.list")
	defer func() { done(err) }()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, slug FROM categories
		WHERE $1 = '' OR name ILIKE '%' || $1 || '%'
		ORDER BY name LIMIT $2 OFFSET $3`,
		search, limit, offset,
	)
	if err != nil {
		return nil, translateError("list categories", err)
	}
	defer rows.Close()

	categories := make([]*api.Category, 0)
	for rows.Next() {
		var c api.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug); err != nil {
			return nil, translateError("list categories: scan", err)
		}
		categories = append(categories, &c)
	}
	return categories, rows.Err()
}

// GetCategoryBySlug retrieves a single category by slug
func (s *PostgresStorage) GetCategoryBySlug(ctx context.Context, slug string) (_ *api.Category, err error) {
	done := s.instrument("categories.get")
	defer func() { done(err) }()

	var c api.Category
	err = s.db.QueryRowContext(ctx,
		`SELECT id, name, slug FROM categories WHERE slug = $1`,
		slug,
	).Scan(&c.ID, &c.Name, &c.Slug)
	if err != nil {
		return nil, translateError("get category", err)
	}
	return &c, nil
}

// DeleteCategoryBySlug removes a category. Titles that referenced it keep
// existing with a null category.
func (s *PostgresStorage) DeleteCategoryBySlug(ctx context.Context, slug string) (err error) {
	done := s.instrument("categories.delete")
	defer func() { done(err) }()

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM categories WHERE slug = $1`, slug)
	if err != nil {
		return translateError("delete category", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if affected == 0 {
		return api.ErrNotFound
	}
	return nil
}
