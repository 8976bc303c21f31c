package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// GetMigrations returns all schema migrations in order
func GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create users table",
			SQL: `
				CREATE TABLE IF NOT EXISTS users (
					id BIGSERIAL PRIMARY KEY,
					username VARCHAR(150) NOT NULL UNIQUE,
					email VARCHAR(254) NOT NULL UNIQUE,
					role VARCHAR(16) NOT NULL DEFAULT 'user'
						CHECK (role IN ('user', 'moderator', 'admin')),
					bio TEXT NOT NULL DEFAULT '',
					first_name VARCHAR(150) NOT NULL DEFAULT '',
					last_name VARCHAR(150) NOT NULL DEFAULT '',
					confirmation_code VARCHAR(50) NOT NULL DEFAULT '',
					is_superuser BOOLEAN NOT NULL DEFAULT FALSE,
					is_staff BOOLEAN NOT NULL DEFAULT FALSE,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					UNIQUE (username, email)
				);

				CREATE INDEX IF NOT EXISTS idx_users_role ON users(role);
			`,
		},
		{
			Version:     2,
			Description: "Create api_tokens table",
			SQL: `
				CREATE TABLE IF NOT EXISTS api_tokens (
					id BIGSERIAL PRIMARY KEY,
					user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					token_hash VARCHAR(64) NOT NULL UNIQUE,
					expires_at TIMESTAMPTZ NOT NULL,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					revoked_at TIMESTAMPTZ
				);

				CREATE INDEX IF NOT EXISTS idx_api_tokens_user_id ON api_tokens(user_id);
			`,
		},
		{
			Version:     3,
			Description: "Create categories and genres tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS categories (
					id BIGSERIAL PRIMARY KEY,
					name VARCHAR(256) NOT NULL,
					slug VARCHAR(50) NOT NULL UNIQUE
				);

				CREATE TABLE IF NOT EXISTS genres (
					id BIGSERIAL PRIMARY KEY,
					name VARCHAR(256) NOT NULL,
					slug VARCHAR(50) NOT NULL UNIQUE
				);
			`,
		},
		{
			Version:     4,
			Description: "Create titles and genre_titles tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS titles (
					id BIGSERIAL PRIMARY KEY,
					name VARCHAR(256) NOT NULL,
					year INT NOT NULL,
					description TEXT,
					category_id BIGINT REFERENCES categories(id) ON DELETE SET NULL
				);

				CREATE TABLE IF NOT EXISTS genre_titles (
					id BIGSERIAL PRIMARY KEY,
					genre_id BIGINT NOT NULL REFERENCES genres(id) ON DELETE CASCADE,
					title_id BIGINT NOT NULL REFERENCES titles(id) ON DELETE CASCADE,
					UNIQUE (genre_id, title_id)
				);

				CREATE INDEX IF NOT EXISTS idx_titles_category_id ON titles(category_id);
				CREATE INDEX IF NOT EXISTS idx_titles_year ON titles(year);
				CREATE INDEX IF NOT EXISTS idx_genre_titles_title_id ON genre_titles(title_id);
			`,
		},
		{
			Version:     5,
			Description: "Create reviews and comments tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS reviews (
					id BIGSERIAL PRIMARY KEY,
					title_id BIGINT NOT NULL REFERENCES titles(id) ON DELETE CASCADE,
					author_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					text TEXT NOT NULL,
					score INT NOT NULL CHECK (score >= 1 AND score <= 10),
					pub_date TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					UNIQUE (author_id, title_id)
				);

				CREATE TABLE IF NOT EXISTS comments (
					id BIGSERIAL PRIMARY KEY,
					review_id BIGINT NOT NULL REFERENCES reviews(id) ON DELETE CASCADE,
					author_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					text TEXT NOT NULL,
					pub_date TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_reviews_title_id ON reviews(title_id);
				CREATE INDEX IF NOT EXISTS idx_comments_review_id ON comments(review_id);
			`,
		},
		{
			Version:     6,
			Description: "Create audit_events table",
			SQL: `
				CREATE TABLE IF NOT EXISTS audit_events (
					id BIGSERIAL PRIMARY KEY,
					actor TEXT NOT NULL,
					method TEXT NOT NULL,
					path TEXT NOT NULL,
					status INT NOT NULL,
					request_id TEXT NOT NULL DEFAULT '',
					occurred_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_audit_events_actor ON audit_events(actor);
				CREATE INDEX IF NOT EXISTS idx_audit_events_occurred_at ON audit_events(occurred_at);
			`,
		},
	}
}

// RunMigrations applies all pending migrations in order
func RunMigrations(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INT PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	for _, m := range GetMigrations() {
		var applied bool
		err := db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)`,
			m.Version,
		).Scan(&applied)
		if err != nil {
			return fmt.Errorf("failed to check migration %d: %w", m.Version, err)
		}
		if applied {
			continue
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", m.Version, err)
		}
		if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", m.Version, m.Description, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO schema_migrations (version, description) VALUES ($1, $2)`,
			m.Version, m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}
