// AngelaMos | 2026
// repository.go

package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/carterperez-dev/eventhub/internal/core"
)

type TokenRepository interface {
	Create(ctx context.Context, token *RefreshToken) error
	FindByHash(ctx context.Context, tokenHash string) (*RefreshToken, error)
	MarkAsUsed(ctx context.Context, id, replacedByID string) error
	RevokeByID(ctx context.Context, id string) error
	RevokeByFamilyID(ctx context.Context, familyID string) error
	RevokeAllForUser(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context, olderThan time.Time) (int64, error)
}

type PrincipalRepository interface {
	Create(ctx context.Context, p *Principal) error
	// CreateIfAbsent inserts p unless the id or email is taken.
	CreateIfAbsent(ctx context.Context, p *Principal) (bool, error)
	GetByEmail(ctx context.Context, email string) (*Principal, error)
	GetByID(ctx context.Context, id string) (*Principal, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	IncrementTokenVersion(ctx context.Context, id string) error
}

type tokenRepository struct {
	db core.DBTX
}

func NewTokenRepository(db core.DBTX) TokenRepository {
	return &tokenRepository{db: db}
}

func (r *tokenRepository) Create(ctx context.Context, token *RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (
			id, user_id, token_hash, family_id, expires_at,
			user_agent, ip_address
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
		RETURNING created_at`

	err := r.db.GetContext(ctx, &token.CreatedAt, query,
		token.ID,
		token.UserID,
		token.TokenHash,
		token.FamilyID,
		token.ExpiresAt,
		token.UserAgent,
		token.IPAddress,
	)
	if err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}

	return nil
}

func (r *tokenRepository) FindByHash(
	ctx context.Context,
	tokenHash string,
) (*RefreshToken, error) {
	query := `
		SELECT
			id, user_id, token_hash, family_id, expires_at, created_at,
			is_used, used_at, revoked_at, replaced_by_id, user_agent, ip_address
		FROM refresh_tokens
		WHERE token_hash = $1`

	var token RefreshToken
	err := r.db.GetContext(ctx, &token, query, tokenHash)
	if core.IsNoRows(err) {
		return nil, fmt.Errorf("find refresh token: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find refresh token: %w", err)
	}

	return &token, nil
}

func (r *tokenRepository) MarkAsUsed(
	ctx context.Context,
	id, replacedByID string,
) error {
	query := `
		UPDATE refresh_tokens
		SET is_used = true, used_at = NOW(), replaced_by_id = $2
		WHERE id = $1 AND is_used = false`

	result, err := r.db.ExecContext(ctx, query, id, replacedByID)
	if err != nil {
		return fmt.Errorf("mark refresh token as used: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark refresh token as used: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("mark refresh token as used: %w", core.ErrNotFound)
	}

	return nil
}

func (r *tokenRepository) RevokeByID(ctx context.Context, id string) error {
	query := `
		UPDATE refresh_tokens
		SET revoked_at = NOW()
		WHERE id = $1 AND revoked_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("revoke refresh token: %w", core.ErrNotFound)
	}

	return nil
}

func (r *tokenRepository) RevokeByFamilyID(
	ctx context.Context,
	familyID string,
) error {
	query := `
		UPDATE refresh_tokens
		SET revoked_at = NOW()
		WHERE family_id = $1 AND revoked_at IS NULL`

	_, err := r.db.ExecContext(ctx, query, familyID)
	if err != nil {
		return fmt.Errorf("revoke token family: %w", err)
	}

	return nil
}

func (r *tokenRepository) RevokeAllForUser(
	ctx context.Context,
	userID string,
) error {
	query := `
		UPDATE refresh_tokens
		SET revoked_at = NOW()
		WHERE user_id = $1 AND revoked_at IS NULL`

	_, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("revoke all user tokens: %w", err)
	}

	return nil
}

func (r *tokenRepository) DeleteExpired(
	ctx context.Context,
	olderThan time.Time,
) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE expires_at < $1`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}

	return rows, nil
}

type principalRepository struct {
	db core.DBTX
}

func NewPrincipalRepository(db core.DBTX) PrincipalRepository {
	return &principalRepository{db: db}
}

const principalColumns = `id, email, password_hash, token_version, created_at, updated_at`

func (r *principalRepository) Create(ctx context.Context, p *Principal) error {
	query := `
		INSERT INTO principals (id, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING token_version, created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query, p.ID, p.Email, p.PasswordHash).
		Scan(&p.TokenVersion, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if core.IsUniqueViolation(err, "") {
			return fmt.Errorf("create principal: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create principal: %w", err)
	}

	return nil
}

func (r *principalRepository) CreateIfAbsent(
	ctx context.Context,
	p *Principal,
) (bool, error) {
	query := `
		INSERT INTO principals (id, email, password_hash)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING`

	result, err := r.db.ExecContext(ctx, query, p.ID, p.Email, p.PasswordHash)
	if err != nil {
		return false, fmt.Errorf("create principal: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("create principal: %w", err)
	}

	return rows > 0, nil
}

func (r *principalRepository) GetByEmail(
	ctx context.Context,
	email string,
) (*Principal, error) {
	var p Principal
	err := r.db.GetContext(ctx, &p,
		`SELECT `+principalColumns+` FROM principals WHERE email = $1`, email)
	if core.IsNoRows(err) {
		return nil, fmt.Errorf("get principal by email: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get principal by email: %w", err)
	}

	return &p, nil
}

func (r *principalRepository) GetByID(ctx context.Context, id string) (*Principal, error) {
	var p Principal
	err := r.db.GetContext(ctx, &p,
		`SELECT `+principalColumns+` FROM principals WHERE id = $1`, id)
	if core.IsNoRows(err) {
		return nil, fmt.Errorf("get principal: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get principal: %w", err)
	}

	return &p, nil
}

func (r *principalRepository) UpdatePassword(
	ctx context.Context,
	id, passwordHash string,
) error {
	query := `
		UPDATE principals
		SET password_hash = $2, updated_at = NOW()
		WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id, passwordHash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	return nil
}

func (r *principalRepository) IncrementTokenVersion(
	ctx context.Context,
	id string,
) error {
	query := `
		UPDATE principals
		SET token_version = token_version + 1, updated_at = NOW()
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("increment token version: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("increment token version: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("increment token version: %w", core.ErrNotFound)
	}

	return nil
}
