// AngelaMos | 2026
// dto.go

package event

import (
	"time"

	"github.com/shopspring/decimal"
)

// SubmitEventRequest takes price and capacity as pointers so a missing
// field is told apart from an explicit zero.
type SubmitEventRequest struct {
	Title        string           `json:"title"         validate:"required,max=200"`
	Description  string           `json:"description"   validate:"required,max=5000"`
	Date         string           `json:"date"          validate:"required,datetime=2006-01-02"`
	Time         string           `json:"time"          validate:"required,datetime=15:04"`
	Location     string           `json:"location"      validate:"required,max=300"`
	TicketPrice  *decimal.Decimal `json:"ticket_price"  validate:"required"`
	TotalTickets *int             `json:"total_tickets" validate:"required,gte=0"`
}

func (r SubmitEventRequest) ToInput() SubmitInput {
	in := SubmitInput{
		Title:       r.Title,
		Description: r.Description,
		Date:        r.Date,
		Time:        r.Time,
		Location:    r.Location,
	}
	if r.TicketPrice != nil {
		in.TicketPrice = *r.TicketPrice
	}
	if r.TotalTickets != nil {
		in.TotalTickets = *r.TotalTickets
	}
	return in
}

type DecideRequest struct {
	Decision string `json:"decision" validate:"required,oneof=Approved Rejected"`
}

type EventResponse struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	Date         string          `json:"date"`
	Time         string          `json:"time"`
	Location     string          `json:"location"`
	TicketPrice  decimal.Decimal `json:"ticket_price"`
	TotalTickets int             `json:"total_tickets"`
	Status       Status          `json:"status"`
	HosterID     string          `json:"hoster_id"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func ToEventResponse(e *Event) EventResponse {
	return EventResponse{
		ID:           e.ID,
		Title:        e.Title,
		Description:  e.Description,
		Date:         e.Date,
		Time:         e.Time,
		Location:     e.Location,
		TicketPrice:  e.TicketPrice,
		TotalTickets: e.TotalTickets,
		Status:       e.Status,
		HosterID:     e.HosterID,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
}

func ToEventResponseList(events []Event) []EventResponse {
	out := make([]EventResponse, 0, len(events))
	for i := range events {
		out = append(out, ToEventResponse(&events[i]))
	}
	return out
}
