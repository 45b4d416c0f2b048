// AngelaMos | 2026
// service.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/eventhub/internal/core"
	"github.com/carterperez-dev/eventhub/internal/middleware"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenReuse         = errors.New("token reuse detected")
	ErrEmailExists        = errors.New("email already exists")
)

const blacklistPrefix = "blacklist:"

// ProfileProvisioner creates the authorization profile for a new principal.
type ProfileProvisioner interface {
	Provision(ctx context.Context, principalID, email string) error
}

type Service struct {
	tokens      TokenRepository
	principals  PrincipalRepository
	jwt         *JWTManager
	provisioner ProfileProvisioner
	redis       redis.Cmdable
}

func NewService(
	tokens TokenRepository,
	principals PrincipalRepository,
	jwt *JWTManager,
	provisioner ProfileProvisioner,
	redisClient redis.Cmdable,
) *Service {
	return &Service{
		tokens:      tokens,
		principals:  principals,
		jwt:         jwt,
		provisioner: provisioner,
		redis:       redisClient,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) Register(
	ctx context.Context,
	req CredentialsRequest,
	userAgent, ipAddress string,
) (*AuthResponse, error) {
	passwordHash, err := core.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	principal := &Principal{
		ID:           uuid.New().String(),
		Email:        normalizeEmail(req.Email),
		PasswordHash: passwordHash,
	}

	if err := s.principals.Create(ctx, principal); err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("create principal: %w", err)
	}

	if s.provisioner != nil {
		if err := s.provisioner.Provision(ctx, principal.ID, principal.Email); err != nil {
			slog.WarnContext(ctx, "profile provisioning deferred to first lookup",
				"user_id", principal.ID,
				"error", err,
			)
		}
	}

	return s.issueTokens(ctx, principal, userAgent, ipAddress, "", nil)
}

func (s *Service) Login(
	ctx context.Context,
	req CredentialsRequest,
	userAgent, ipAddress string,
) (*AuthResponse, error) {
	principal, err := s.principals.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			//nolint:errcheck // equalizes timing for unknown emails
			_, _, _ = core.VerifyPasswordTimingSafe(req.Password, nil)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get principal: %w", err)
	}

	valid, newHash, err := core.VerifyPasswordTimingSafe(
		req.Password,
		&principal.PasswordHash,
	)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}

	if !valid {
		return nil, ErrInvalidCredentials
	}

	if newHash != "" {
		//nolint:errcheck // best-effort rehash upgrade
		_ = s.principals.UpdatePassword(ctx, principal.ID, newHash)
	}

	return s.issueTokens(ctx, principal, userAgent, ipAddress, "", nil)
}

// Refresh rotates a refresh token. Presenting an already rotated token
// revokes its whole family.
func (s *Service) Refresh(
	ctx context.Context,
	refreshToken, userAgent, ipAddress string,
) (*AuthResponse, error) {
	storedToken, err := s.tokens.FindByHash(ctx, core.HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("refresh: %w", core.ErrTokenInvalid)
		}
		return nil, fmt.Errorf("find token: %w", err)
	}

	if storedToken.IsUsed {
		if revokeErr := s.tokens.RevokeByFamilyID(ctx, storedToken.FamilyID); revokeErr != nil {
			slog.ErrorContext(ctx, "revoke token family failed",
				"family_id", storedToken.FamilyID,
				"error", revokeErr,
			)
		}
		slog.WarnContext(ctx, "refresh token reuse detected",
			"user_id", storedToken.UserID,
			"family_id", storedToken.FamilyID,
		)
		return nil, ErrTokenReuse
	}

	if !storedToken.IsValid() {
		if storedToken.IsRevoked() {
			return nil, fmt.Errorf("refresh: %w", core.ErrTokenRevoked)
		}
		return nil, fmt.Errorf("refresh: %w", core.ErrTokenExpired)
	}

	principal, err := s.principals.GetByID(ctx, storedToken.UserID)
	if err != nil {
		return nil, fmt.Errorf("get principal: %w", err)
	}

	return s.issueTokens(
		ctx,
		principal,
		userAgent,
		ipAddress,
		storedToken.FamilyID,
		&storedToken.ID,
	)
}

// Logout revokes the refresh token and blacklists the presented access
// token until it would have expired anyway.
func (s *Service) Logout(
	ctx context.Context,
	refreshToken string,
	claims *middleware.AccessTokenClaims,
) error {
	if claims == nil {
		return fmt.Errorf("logout: %w", core.ErrUnauthorized)
	}

	if err := s.RevokeAccessToken(ctx, claims.JTI, claims.ExpiresAt); err != nil {
		slog.WarnContext(ctx, "access token blacklist failed",
			"user_id", claims.UserID,
			"error", err,
		)
	}

	if refreshToken == "" {
		return nil
	}

	storedToken, err := s.tokens.FindByHash(ctx, core.HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("find token: %w", err)
	}

	if storedToken.UserID != claims.UserID {
		return fmt.Errorf("logout: %w", core.ErrForbidden)
	}

	if err := s.tokens.RevokeByID(ctx, storedToken.ID); err != nil &&
		!errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("revoke token: %w", err)
	}

	return nil
}

func (s *Service) LogoutAll(
	ctx context.Context,
	claims *middleware.AccessTokenClaims,
) error {
	if claims == nil {
		return fmt.Errorf("logout all: %w", core.ErrUnauthorized)
	}

	if err := s.tokens.RevokeAllForUser(ctx, claims.UserID); err != nil {
		return fmt.Errorf("revoke all tokens: %w", err)
	}

	if err := s.principals.IncrementTokenVersion(ctx, claims.UserID); err != nil {
		return fmt.Errorf("increment token version: %w", err)
	}

	//nolint:errcheck // refresh tokens are already revoked
	_ = s.RevokeAccessToken(ctx, claims.JTI, claims.ExpiresAt)

	return nil
}

func (s *Service) RevokeAccessToken(
	ctx context.Context,
	jti string,
	expiresAt time.Time,
) error {
	if jti == "" || !time.Now().Before(expiresAt) {
		return nil
	}

	err := s.redis.SetArgs(ctx, blacklistPrefix+jti, "1", redis.SetArgs{
		ExpireAt: expiresAt,
	}).Err()
	if err != nil {
		return fmt.Errorf("blacklist token: %w", err)
	}

	return nil
}

func (s *Service) IsAccessTokenBlacklisted(
	ctx context.Context,
	jti string,
) (bool, error) {
	exists, err := s.redis.Exists(ctx, blacklistPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("check blacklist: %w", err)
	}

	return exists > 0, nil
}

// VerifyAccessToken implements middleware.TokenVerifier. A blacklist
// lookup failure lets the token through and is logged.
func (s *Service) VerifyAccessToken(
	ctx context.Context,
	token string,
) (*middleware.AccessTokenClaims, error) {
	claims, err := s.jwt.ParseAccessToken(token)
	if err != nil {
		return nil, err
	}

	revoked, err := s.IsAccessTokenBlacklisted(ctx, claims.JTI)
	if err != nil {
		slog.WarnContext(ctx, "blacklist check failed, accepting token",
			"user_id", claims.UserID,
			"error", err,
		)
		return claims, nil
	}
	if revoked {
		return nil, fmt.Errorf("verify token: %w", core.ErrTokenRevoked)
	}

	if err := s.ValidateTokenVersion(ctx, claims.UserID, claims.TokenVersion); err != nil {
		if errors.Is(err, core.ErrTokenRevoked) || errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("verify token: %w", core.ErrTokenRevoked)
		}
		slog.WarnContext(ctx, "token version check failed, accepting token",
			"user_id", claims.UserID,
			"error", err,
		)
	}

	return claims, nil
}

// ValidateTokenVersion rejects tokens minted before the last logout-all.
func (s *Service) ValidateTokenVersion(
	ctx context.Context,
	userID string,
	tokenVersion int,
) error {
	principal, err := s.principals.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get principal: %w", err)
	}

	if tokenVersion < principal.TokenVersion {
		return fmt.Errorf("token version: %w", core.ErrTokenRevoked)
	}

	return nil
}

// EnsurePrincipal creates a sign-in principal with a fixed id unless the
// id or email is already taken. Used for bootstrap accounts.
func (s *Service) EnsurePrincipal(
	ctx context.Context,
	id, email, password string,
) (bool, error) {
	passwordHash, err := core.HashPassword(password)
	if err != nil {
		return false, fmt.Errorf("hash password: %w", err)
	}

	created, err := s.principals.CreateIfAbsent(ctx, &Principal{
		ID:           id,
		Email:        normalizeEmail(email),
		PasswordHash: passwordHash,
	})
	if err != nil {
		return false, fmt.Errorf("ensure principal %s: %w", id, err)
	}

	return created, nil
}

// PurgeExpired drops refresh tokens that expired more than a day ago.
func (s *Service) PurgeExpired(ctx context.Context) error {
	removed, err := s.tokens.DeleteExpired(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		return err
	}
	if removed > 0 {
		slog.InfoContext(ctx, "expired refresh tokens purged", "count", removed)
	}
	return nil
}

func (s *Service) issueTokens(
	ctx context.Context,
	principal *Principal,
	userAgent, ipAddress, familyID string,
	oldTokenID *string,
) (*AuthResponse, error) {
	access, err := s.jwt.CreateAccessToken(AccessTokenClaims{
		UserID:       principal.ID,
		Email:        principal.Email,
		TokenVersion: principal.TokenVersion,
	})
	if err != nil {
		return nil, fmt.Errorf("create access token: %w", err)
	}

	refreshData, err := s.jwt.CreateRefreshToken(familyID)
	if err != nil {
		return nil, fmt.Errorf("create refresh token: %w", err)
	}

	newTokenID := uuid.New().String()

	if err := s.tokens.Create(ctx, &RefreshToken{
		ID:        newTokenID,
		UserID:    principal.ID,
		TokenHash: refreshData.Hash,
		FamilyID:  refreshData.FamilyID,
		ExpiresAt: refreshData.ExpiresAt,
		UserAgent: userAgent,
		IPAddress: ipAddress,
	}); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	if oldTokenID != nil {
		//nolint:errcheck // best-effort token chain tracking
		_ = s.tokens.MarkAsUsed(ctx, *oldTokenID, newTokenID)
	}

	return &AuthResponse{
		Principal: PrincipalResponse{
			ID:    principal.ID,
			Email: principal.Email,
		},
		Tokens: TokenResponse{
			AccessToken:  access.Token,
			RefreshToken: refreshData.Token,
			TokenType:    "Bearer",
			ExpiresIn:    int(s.jwt.AccessTokenTTL() / time.Second),
			ExpiresAt:    access.ExpiresAt,
		},
	}, nil
}
