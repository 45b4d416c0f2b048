// AngelaMos | 2026
// repository.go

package ticket

import (
	"context"
	"fmt"

	"github.com/carterperez-dev/eventhub/internal/core"
)

const codeConstraint = "tickets_ticket_code_key"

type Repository interface {
	// Create inserts t. A taken code is ErrDuplicateKey.
	Create(ctx context.Context, t *Ticket) error
	ListByUser(ctx context.Context, userID string) ([]Ticket, error)
	GetByCode(ctx context.Context, code string) (*Ticket, error)
	// CheckIn flips a Valid ticket to CheckedIn in one conditional write.
	// When nothing was flipped it returns ErrConflict.
	CheckIn(ctx context.Context, code string) (*Ticket, error)
	CountByStatus(ctx context.Context) (map[Status]int, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const ticketColumns = `
	id, ticket_code, event_id, user_id, event_name, status,
	created_at, checked_in_at`

func (r *repository) Create(ctx context.Context, t *Ticket) error {
	query := `
		INSERT INTO tickets (id, ticket_code, event_id, user_id, event_name, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	err := r.db.QueryRowxContext(ctx, query,
		t.ID,
		t.Code,
		t.EventID,
		t.UserID,
		t.EventName,
		t.Status,
	).Scan(&t.CreatedAt)
	if err != nil {
		if core.IsUniqueViolation(err, codeConstraint) {
			return fmt.Errorf("create ticket: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create ticket: %w", err)
	}

	return nil
}

func (r *repository) ListByUser(ctx context.Context, userID string) ([]Ticket, error) {
	query := `SELECT ` + ticketColumns + `
		FROM tickets
		WHERE user_id = $1
		ORDER BY created_at DESC`

	tickets := []Ticket{}
	if err := r.db.SelectContext(ctx, &tickets, query, userID); err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}

	return tickets, nil
}

func (r *repository) GetByCode(ctx context.Context, code string) (*Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE ticket_code = $1`

	var t Ticket
	err := r.db.GetContext(ctx, &t, query, code)
	if core.IsNoRows(err) {
		return nil, fmt.Errorf("get ticket: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get ticket: %w", err)
	}

	return &t, nil
}

func (r *repository) CheckIn(ctx context.Context, code string) (*Ticket, error) {
	query := `
		UPDATE tickets
		SET status = $2, checked_in_at = NOW()
		WHERE ticket_code = $1 AND status = $3
		RETURNING ` + ticketColumns

	var t Ticket
	err := r.db.GetContext(ctx, &t, query, code, StatusCheckedIn, StatusValid)
	if core.IsNoRows(err) {
		return nil, fmt.Errorf("check in ticket: %w", core.ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("check in ticket: %w", err)
	}

	return &t, nil
}

func (r *repository) CountByStatus(ctx context.Context) (map[Status]int, error) {
	var rows []struct {
		Status Status `db:"status"`
		Count  int    `db:"count"`
	}

	query := `SELECT status, COUNT(*) AS count FROM tickets GROUP BY status`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("count tickets by status: %w", err)
	}

	counts := make(map[Status]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}

	return counts, nil
}
