package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/critiquelabs/critique/pkg/api"
	"github.com/critiquelabs/critique/pkg/auth"
)

const userColumns = `id, username, email, role, bio, first_name, last_name,
	confirmation_code, is_superuser, is_staff, created_at, updated_at`

func scanUser(row interface{ Scan(...interface{}) error }) (*auth.User, error) {
	var u auth.User
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.Role,
		&u.Bio,
		&u.FirstName,
		&u.LastName,
		&u.ConfirmationCode,
		&u.IsSuperuser,
		&u.IsStaff,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// SignupUser finds or creates the (username, email) account and assigns the
// confirmation code inside one transaction, so a failure never leaves the
// account without its code. A username or email bound to a different pair
// surfaces as ErrConflict from the unique constraints.
func (s *PostgresStorage) SignupUser(ctx context.Context, username, email, code string) (_ *auth.User, err error) {
	done := s.instrument("users.signup")
	defer func() { done(err) }()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("signup: begin: %w", err)
	}
	defer tx.Rollback()

	user, err := scanUser(tx.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1 AND email = $2`,
		username, email,
	))
	if errors.Is(err, sql.ErrNoRows) {
		user, err = scanUser(tx.QueryRowContext(ctx, `
			INSERT INTO users (username, email, role, confirmation_code)
			VALUES ($1, $2, $3, $4)
			RETURNING `+userColumns,
			username, email, auth.RoleUser, code,
		))
		if err != nil {
			return nil, translateError("signup: insert user", err)
		}
	} else if err != nil {
		return nil, translateError("signup: lookup user", err)
	} else {
		// Existing pair: regenerate the stored code.
		if _, err := tx.ExecContext(ctx,
			`UPDATE users SET confirmation_code = $1, updated_at = NOW() WHERE id = $2`,
			code, user.ID,
		); err != nil {
			return nil, translateError("signup: update code", err)
		}
		user.ConfirmationCode = code
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("signup: commit: %w", err)
	}
	return user, nil
}

// GetUserByUsername retrieves a user by username
func (s *PostgresStorage) GetUserByUsername(ctx context.Context, username string) (_ *auth.User, err error) {
	done := s.instrument("users.get")
	defer func() { done(err) }()

	user, err := scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1`,
		username,
	))
	if err != nil {
		return nil, translateError("get user", err)
	}
	return user, nil
}

// ListUsers retrieves users ordered by username
func (s *PostgresStorage) ListUsers(ctx context.Context, limit, offset int) (_ []*auth.User, err error) {
	done := s.instrument("users.list")
	defer func() { done(err) }()

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY username LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, translateError("list users", err)
	}
	defer rows.Close()

	users := make([]*auth.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, translateError("list users: scan", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// CreateUser inserts a fully-specified account (admin user management).
// The role is validated against the closed set before it reaches SQL.
func (s *PostgresStorage) CreateUser(ctx context.Context, user *auth.User) (err error) {
	if !user.Role.Valid() {
		return auth.ErrInvalidRole{Role: user.Role}
	}
	done := s.instrument("users.create")
	defer func() { done(err) }()

	err = s.db.QueryRowContext(ctx, `
		INSERT INTO users (username, email, role, bio, first_name, last_name, is_superuser, is_staff)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`,
		user.Username, user.Email, user.Role, user.Bio,
		user.FirstName, user.LastName, user.IsSuperuser, user.IsStaff,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return translateError("create user", err)
	}
	return nil
}

// UpdateUser persists profile fields and role, keyed by username
func (s *PostgresStorage) UpdateUser(ctx context.Context, user *auth.User) (err error) {
	if !user.Role.Valid() {
		return auth.ErrInvalidRole{Role: user.Role}
	}
	done := s.instrument("users.update")
	defer func() { done(err) }()

	result, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET email = $1, role = $2, bio = $3, first_name = $4, last_name = $5, updated_at = NOW()
		WHERE username = $6`,
		user.Email, user.Role, user.Bio, user.FirstName, user.LastName, user.Username,
	)
	if err != nil {
		return translateError("update user", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if affected == 0 {
		return api.ErrNotFound
	}
	return nil
}

// DeleteUser removes an account; its reviews and comments cascade away.
func (s *PostgresStorage) DeleteUser(ctx context.Context, username string) (err error) {
	done := s.instrument("users.delete")
	defer func() { done(err) }()

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM users WHERE username = $1`, username)
	if err != nil {
		return translateError("delete user", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if affected == 0 {
		return api.ErrNotFound
	}
	return nil
}
