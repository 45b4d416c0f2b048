// AngelaMos | 2026
// repository.go

package identity

import (
	"context"
	"fmt"
	"strings"

	"github.com/carterperez-dev/eventhub/internal/core"
)

type Repository interface {
	GetByID(ctx context.Context, id string) (*Profile, error)
	// CreateIfAbsent inserts p unless a profile with the same id exists and
	// reports whether a row was written.
	CreateIfAbsent(ctx context.Context, p *Profile) (bool, error)
	// UpdateRole moves the profile from expected to next. It returns
	// ErrConflict when the stored role is no longer expected.
	UpdateRole(ctx context.Context, id string, expected, next Role) (*Profile, error)
	List(ctx context.Context, params ListProfilesParams) ([]Profile, int, error)
	CountByRole(ctx context.Context) (map[Role]int, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) GetByID(ctx context.Context, id string) (*Profile, error) {
	query := `
		SELECT id, email, role, created_at, updated_at
		FROM users
		WHERE id = $1`

	var p Profile
	err := r.db.GetContext(ctx, &p, query, id)
	if core.IsNoRows(err) {
		return nil, fmt.Errorf("get profile: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}

	return &p, nil
}

func (r *repository) CreateIfAbsent(ctx context.Context, p *Profile) (bool, error) {
	query := `
		INSERT INTO users (id, email, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING`

	result, err := r.db.ExecContext(ctx, query, p.ID, p.Email, p.Role)
	if err != nil {
		return false, fmt.Errorf("create profile: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("create profile: %w", err)
	}

	return rows > 0, nil
}

func (r *repository) UpdateRole(
	ctx context.Context,
	id string,
	expected, next Role,
) (*Profile, error) {
	query := `
		UPDATE users
		SET role = $3, updated_at = NOW()
		WHERE id = $1 AND role = $2
		RETURNING id, email, role, created_at, updated_at`

	var p Profile
	err := r.db.GetContext(ctx, &p, query, id, expected, next)
	if core.IsNoRows(err) {
		return nil, fmt.Errorf("update role: %w", core.ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("update role: %w", err)
	}

	return &p, nil
}

func (r *repository) List(
	ctx context.Context,
	params ListProfilesParams,
) ([]Profile, int, error) {
	params.Normalize()

	var conditions []string
	var args []any
	argIdx := 1

	if params.Search != "" {
		conditions = append(conditions, fmt.Sprintf("email ILIKE $%d", argIdx))
		args = append(args, "%"+escapeLike(params.Search)+"%")
		argIdx++
	}

	if params.Role != RoleUnknown {
		conditions = append(conditions, fmt.Sprintf("role = $%d", argIdx))
		args = append(args, params.Role)
		argIdx++
	}

	whereClause := "TRUE"
	if len(conditions) > 0 {
		whereClause = strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM users WHERE " + whereClause
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count profiles: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, email, role, created_at, updated_at
		FROM users
		WHERE %s
		ORDER BY created_at DESC, id
		LIMIT $%d OFFSET $%d`,
		whereClause, argIdx, argIdx+1)

	args = append(args, params.PageSize, params.Offset())

	profiles := []Profile{}
	if err := r.db.SelectContext(ctx, &profiles, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list profiles: %w", err)
	}

	return profiles, total, nil
}

func (r *repository) CountByRole(ctx context.Context) (map[Role]int, error) {
	var rows []struct {
		Role  Role `db:"role"`
		Count int  `db:"count"`
	}

	query := `SELECT role, COUNT(*) AS count FROM users GROUP BY role`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("count profiles by role: %w", err)
	}

	counts := make(map[Role]int, len(rows))
	for _, row := range rows {
		counts[row.Role] = row.Count
	}

	return counts, nil
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "%", "\\%")
	s = strings.ReplaceAll(s, "_", "\\_")
	return s
}
