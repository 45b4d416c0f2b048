// AngelaMos | 2026
// repository.go

package event

import (
	"context"
	"fmt"
	"strings"

	"github.com/carterperez-dev/eventhub/internal/core"
)

type Repository interface {
	Create(ctx context.Context, e *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	// ListApproved returns approved events by date, then time. A non-empty
	// search filters on a case-insensitive title substring.
	ListApproved(ctx context.Context, search string) ([]Event, error)
	ListByHoster(ctx context.Context, hosterID string) ([]Event, error)
	ListPending(ctx context.Context) ([]Event, error)
	// Decide moves a Pending event to decision in one conditional write.
	// When nothing was moved it returns ErrConflict.
	Decide(ctx context.Context, id string, decision Status) (*Event, error)
	CountByStatus(ctx context.Context) (map[Status]int, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const eventColumns = `
	id, title, description, event_date::text AS event_date, event_time,
	location, ticket_price, total_tickets, status, hoster_id,
	created_at, updated_at`

func (r *repository) Create(ctx context.Context, e *Event) error {
	query := `
		INSERT INTO events (
			id, title, description, event_date, event_time,
			location, ticket_price, total_tickets, status, hoster_id
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		e.ID,
		e.Title,
		e.Description,
		e.Date,
		e.Time,
		e.Location,
		e.TicketPrice,
		e.TotalTickets,
		e.Status,
		e.HosterID,
	).Scan(&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create event: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`

	var e Event
	err := r.db.GetContext(ctx, &e, query, id)
	if core.IsNoRows(err) {
		return nil, fmt.Errorf("get event: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}

	return &e, nil
}

func (r *repository) ListApproved(ctx context.Context, search string) ([]Event, error) {
	conditions := []string{"status = $1"}
	args := []any{StatusApproved}

	if search = strings.TrimSpace(search); search != "" {
		conditions = append(conditions, "title ILIKE $2")
		args = append(args, "%"+escapeLike(search)+"%")
	}

	query := `SELECT ` + eventColumns + `
		FROM events
		WHERE ` + strings.Join(conditions, " AND ") + `
		ORDER BY event_date ASC, event_time ASC, created_at ASC`

	events := []Event{}
	if err := r.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, fmt.Errorf("list approved events: %w", err)
	}

	return events, nil
}

func (r *repository) ListByHoster(ctx context.Context, hosterID string) ([]Event, error) {
	query := `SELECT ` + eventColumns + `
		FROM events
		WHERE hoster_id = $1
		ORDER BY created_at DESC`

	events := []Event{}
	if err := r.db.SelectContext(ctx, &events, query, hosterID); err != nil {
		return nil, fmt.Errorf("list hoster events: %w", err)
	}

	return events, nil
}

func (r *repository) ListPending(ctx context.Context) ([]Event, error) {
	query := `SELECT ` + eventColumns + `
		FROM events
		WHERE status = $1
		ORDER BY created_at ASC`

	events := []Event{}
	if err := r.db.SelectContext(ctx, &events, query, StatusPending); err != nil {
		return nil, fmt.Errorf("list pending events: %w", err)
	}

	return events, nil
}

func (r *repository) Decide(
	ctx context.Context,
	id string,
	decision Status,
) (*Event, error) {
	query := `
		UPDATE events
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3
		RETURNING ` + eventColumns

	var e Event
	err := r.db.GetContext(ctx, &e, query, id, decision, StatusPending)
	if core.IsNoRows(err) {
		return nil, fmt.Errorf("decide event: %w", core.ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("decide event: %w", err)
	}

	return &e, nil
}

func (r *repository) CountByStatus(ctx context.Context) (map[Status]int, error) {
	var rows []struct {
		Status Status `db:"status"`
		Count  int    `db:"count"`
	}

	query := `SELECT status, COUNT(*) AS count FROM events GROUP BY status`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("count events by status: %w", err)
	}

	counts := make(map[Status]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}

	return counts, nil
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "%", "\\%")
	s = strings.ReplaceAll(s, "_", "\\_")
	return s
}
