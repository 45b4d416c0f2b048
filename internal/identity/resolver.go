// AngelaMos | 2026
// resolver.go

package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/carterperez-dev/eventhub/internal/core"
)

const maxRoleUpdateAttempts = 3

// SeedProfile is a bootstrap profile created at startup when absent.
type SeedProfile struct {
	ID    string
	Email string
	Role  Role
}

// Resolver maps principals to roles and owns the profile collection.
type Resolver struct {
	repo  Repository
	cache *core.Cache
}

// NewResolver builds a resolver. A nil cache disables role caching.
func NewResolver(repo Repository, cache *core.Cache) *Resolver {
	return &Resolver{repo: repo, cache: cache}
}

// Resolve returns the principal's role, creating a User profile on first
// sight. Concurrent first calls for the same principal converge on one row.
func (r *Resolver) Resolve(
	ctx context.Context,
	principalID, email string,
) (Role, error) {
	if principalID == "" {
		return RoleUnknown, fmt.Errorf("resolve role: %w", core.ErrUnauthorized)
	}

	if cached, ok := r.cache.Get(ctx, principalID); ok {
		if role, valid := ParseRole(cached); valid {
			return role, nil
		}
	}

	profile, err := r.getOrCreate(ctx, principalID, email)
	if err != nil {
		return RoleUnknown, err
	}

	r.cache.Set(ctx, principalID, profile.Role.String())
	return profile.Role, nil
}

func (r *Resolver) getOrCreate(
	ctx context.Context,
	principalID, email string,
) (*Profile, error) {
	profile, err := r.repo.GetByID(ctx, principalID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return nil, fmt.Errorf("resolve role: %w", err)
	}

	created, err := r.repo.CreateIfAbsent(ctx, &Profile{
		ID:    principalID,
		Email: strings.ToLower(strings.TrimSpace(email)),
		Role:  RoleUser,
	})
	if err != nil {
		return nil, fmt.Errorf("resolve role: %w", err)
	}
	if created {
		slog.InfoContext(ctx, "profile provisioned",
			"user_id", principalID,
			"role", RoleUser,
		)
	}

	profile, err = r.repo.GetByID(ctx, principalID)
	if err != nil {
		return nil, fmt.Errorf("resolve role: %w", err)
	}

	return profile, nil
}

// RoleOf is Resolve without an error: an unreachable store yields
// RoleUnknown so callers treat the request as unauthenticated.
func (r *Resolver) RoleOf(ctx context.Context, principalID, email string) Role {
	role, err := r.Resolve(ctx, principalID, email)
	if err != nil {
		slog.ErrorContext(ctx, "role lookup failed",
			"user_id", principalID,
			"error", err,
		)
		return RoleUnknown
	}
	return role
}

// RoleName adapts RoleOf to middleware.RoleFunc.
func (r *Resolver) RoleName(ctx context.Context, principalID, email string) string {
	return r.RoleOf(ctx, principalID, email).String()
}

// Provision creates the User profile for a freshly registered principal.
func (r *Resolver) Provision(ctx context.Context, principalID, email string) error {
	_, err := r.getOrCreate(ctx, principalID, email)
	return err
}

// EnsureSeedProfiles creates any missing bootstrap profiles. Existing
// profiles are left untouched, including their current role.
func (r *Resolver) EnsureSeedProfiles(
	ctx context.Context,
	seeds []SeedProfile,
) (int, error) {
	created := 0
	for _, seed := range seeds {
		if !seed.Role.Valid() {
			return created, fmt.Errorf(
				"seed profile %s: invalid role %q: %w",
				seed.ID,
				seed.Role,
				core.ErrInvalidInput,
			)
		}

		ok, err := r.repo.CreateIfAbsent(ctx, &Profile{
			ID:    seed.ID,
			Email: strings.ToLower(seed.Email),
			Role:  seed.Role,
		})
		if err != nil {
			return created, fmt.Errorf("seed profile %s: %w", seed.ID, err)
		}
		if ok {
			created++
			slog.InfoContext(ctx, "seed profile created",
				"user_id", seed.ID,
				"role", seed.Role,
			)
		}
	}

	return created, nil
}

func (r *Resolver) Profile(ctx context.Context, caller Caller) (*Profile, error) {
	if !caller.Authenticated() {
		return nil, fmt.Errorf("get profile: %w", core.ErrUnauthorized)
	}
	return r.getOrCreate(ctx, caller.ID, caller.Email)
}

func (r *Resolver) ListProfiles(
	ctx context.Context,
	caller Caller,
	params ListProfilesParams,
) ([]Profile, int, error) {
	if !caller.Is(RoleAdmin) {
		return nil, 0, fmt.Errorf("list profiles: %w", core.ErrForbidden)
	}
	return r.repo.List(ctx, params)
}

// UpgradeRole promotes targetID to role. Downgrades are rejected with
// ErrInvalidTransition and re-applying the current role is a no-op.
func (r *Resolver) UpgradeRole(
	ctx context.Context,
	caller Caller,
	targetID string,
	role Role,
) (*Profile, error) {
	if !caller.Is(RoleAdmin) {
		return nil, fmt.Errorf("upgrade role: %w", core.ErrForbidden)
	}
	if !role.Valid() {
		return nil, fmt.Errorf(
			"upgrade role: invalid role %q: %w",
			role,
			core.ErrInvalidInput,
		)
	}

	for range maxRoleUpdateAttempts {
		current, err := r.repo.GetByID(ctx, targetID)
		if err != nil {
			return nil, fmt.Errorf("upgrade role: %w", err)
		}

		if current.Role == role {
			return current, nil
		}

		if !current.Role.CanUpgradeTo(role) {
			return nil, fmt.Errorf(
				"upgrade role: cannot change %s to %s: %w",
				current.Role,
				role,
				core.ErrInvalidTransition,
			)
		}

		updated, err := r.repo.UpdateRole(ctx, targetID, current.Role, role)
		if errors.Is(err, core.ErrConflict) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("upgrade role: %w", err)
		}

		r.cache.Delete(ctx, targetID)

		slog.InfoContext(ctx, "role upgraded",
			"user_id", targetID,
			"from", current.Role,
			"to", role,
			"by", caller.ID,
		)
		return updated, nil
	}

	return nil, fmt.Errorf("upgrade role: concurrent updates: %w", core.ErrConflict)
}

func (r *Resolver) CountByRole(ctx context.Context) (map[Role]int, error) {
	return r.repo.CountByRole(ctx)
}
