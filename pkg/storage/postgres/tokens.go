package postgres

import (
	"context"
	"fmt"

	"github.com/critiquelabs/critique/pkg/auth"
)

// CreateToken stores the hash of a freshly issued access token
func (s *PostgresStorage) CreateToken(ctx context.Context, token *auth.AccessToken) (err error) {
	done := s.instrument("tokens.create")
	defer func() { done(err) }()

	err = s.db.QueryRowContext(ctx, `
		INSERT INTO api_tokens (user_id, token_hash, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		token.UserID, token.TokenHash, token.ExpiresAt,
	).Scan(&token.ID, &token.CreatedAt)
	if err != nil {
		return translateError("create token", err)
	}
	return nil
}

// GetUserByTokenHash resolves a token hash to its token row and owning user.
// Revoked tokens do not resolve; expiry is the caller's check so that the
// token row can still be reported in logs.
func (s *PostgresStorage) GetUserByTokenHash(ctx context.Context, hash string) (_ *auth.AccessToken, _ *auth.User, err error) {
	done := s.instrument("tokens.resolve")
	defer func() { done(err) }()

	var token auth.AccessToken
	var user auth.User
	err = s.db.QueryRowContext(ctx, `
		SELECT t.id, t.user_id, t.token_hash, t.expires_at, t.created_at,
			u.id, u.username, u.email, u.role, u.bio, u.first_name, u.last_name,
			u.confirmation_code, u.is_superuser, u.is_staff, u.created_at, u.updated_at
		FROM api_tokens t
		JOIN users u ON u.id = t.user_id
		WHERE t.token_hash = $1 AND t.revoked_at IS NULL`,
		hash,
	).Scan(
		&token.ID, &token.UserID, &token.TokenHash, &token.ExpiresAt, &token.CreatedAt,
		&user.ID, &user.Username, &user.Email, &user.Role, &user.Bio,
		&user.FirstName, &user.LastName, &user.ConfirmationCode,
		&user.IsSuperuser, &user.IsStaff, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, nil, translateError("get token", err)
	}
	return &token, &user, nil
}

// RevokeUserTokens marks every live token for a user as revoked, used when
// the account is disabled or its role changes in a way that narrows access.
func (s *PostgresStorage) RevokeUserTokens(ctx context.Context, userID int64) (_ int64, err error) {
	done := s.instrument("tokens.revoke")
	defer func() { done(err) }()

	result, err := s.db.ExecContext(ctx, `
		UPDATE api_tokens SET revoked_at = NOW()
		WHERE user_id = $1 AND revoked_at IS NULL`,
		userID,
	)
	if err != nil {
		return 0, translateError("revoke tokens", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("revoke tokens: %w", err)
	}
	return affected, nil
}
