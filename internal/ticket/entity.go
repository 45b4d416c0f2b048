// AngelaMos | 2026
// entity.go

package ticket

import (
	"time"
)

type Status string

const (
	StatusValid     Status = "Valid"
	StatusCheckedIn Status = "CheckedIn"
)

type Ticket struct {
	ID          string     `db:"id"`
	Code        string     `db:"ticket_code"`
	EventID     string     `db:"event_id"`
	UserID      string     `db:"user_id"`
	EventName   string     `db:"event_name"`
	Status      Status     `db:"status"`
	CreatedAt   time.Time  `db:"created_at"`
	CheckedInAt *time.Time `db:"checked_in_at"`
}

// Outcome is the result of presenting a ticket code at the door. All
// three are normal results, not errors.
type Outcome string

const (
	OutcomeValid       Outcome = "valid"
	OutcomeInvalid     Outcome = "invalid"
	OutcomeAlreadyUsed Outcome = "already_used"
)

func (o Outcome) Message() string {
	switch o {
	case OutcomeValid:
		return "Valid Ticket, checked in now."
	case OutcomeAlreadyUsed:
		return "Ticket Already Used"
	default:
		return "Invalid Ticket"
	}
}

type VerifyResult struct {
	Outcome Outcome
	Ticket  *Ticket
}
