// AngelaMos | 2026
// dto.go

package ticket

import (
	"time"
)

type VerifyRequest struct {
	TicketID string `json:"ticket_id" validate:"required,max=64"`
}

type TicketResponse struct {
	ID          string     `json:"id"`
	TicketID    string     `json:"ticket_id"`
	EventID     string     `json:"event_id"`
	EventName   string     `json:"event_name"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	CheckedInAt *time.Time `json:"checked_in_at,omitempty"`
}

type BookingResponse struct {
	Ticket  TicketResponse `json:"ticket"`
	Message string         `json:"message"`
}

type VerifyResponse struct {
	Result  Outcome         `json:"result"`
	Message string          `json:"message"`
	Ticket  *TicketResponse `json:"ticket,omitempty"`
}

func ToTicketResponse(t *Ticket) TicketResponse {
	return TicketResponse{
		ID:          t.ID,
		TicketID:    t.Code,
		EventID:     t.EventID,
		EventName:   t.EventName,
		Status:      t.Status,
		CreatedAt:   t.CreatedAt,
		CheckedInAt: t.CheckedInAt,
	}
}

func ToTicketResponseList(tickets []Ticket) []TicketResponse {
	out := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		out = append(out, ToTicketResponse(&tickets[i]))
	}
	return out
}

func ToVerifyResponse(res *VerifyResult) VerifyResponse {
	resp := VerifyResponse{
		Result:  res.Outcome,
		Message: res.Outcome.Message(),
	}
	if res.Ticket != nil {
		t := ToTicketResponse(res.Ticket)
		resp.Ticket = &t
	}
	return resp
}
