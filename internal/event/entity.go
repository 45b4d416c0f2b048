// AngelaMos | 2026
// entity.go

package event

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/carterperez-dev/eventhub/internal/identity"
)

type Status string

const (
	StatusPending  Status = "Pending"
	StatusApproved Status = "Approved"
	StatusRejected Status = "Rejected"
)

func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// ParseDecision accepts the two statuses an admin may decide on.
func ParseDecision(s string) (Status, bool) {
	switch Status(s) {
	case StatusApproved, StatusRejected:
		return Status(s), true
	default:
		return "", false
	}
}

type Event struct {
	ID           string          `db:"id"`
	Title        string          `db:"title"`
	Description  string          `db:"description"`
	Date         string          `db:"event_date"`
	Time         string          `db:"event_time"`
	Location     string          `db:"location"`
	TicketPrice  decimal.Decimal `db:"ticket_price"`
	TotalTickets int             `db:"total_tickets"`
	Status       Status          `db:"status"`
	HosterID     string          `db:"hoster_id"`
	CreatedAt    time.Time       `db:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at"`
}

func (e *Event) Bookable() bool {
	return e.Status == StatusApproved
}

// VisibleTo reports whether caller may read the event. Approved events are
// public; the rest are limited to their hoster and admins.
func (e *Event) VisibleTo(caller identity.Caller) bool {
	switch {
	case e.Status == StatusApproved:
		return true
	case caller.Is(identity.RoleAdmin):
		return true
	default:
		return caller.Authenticated() && caller.ID == e.HosterID
	}
}
