// AngelaMos | 2026
// bus.go

package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	EventSubmitted  = "event.submitted"
	EventDecided    = "event.decided"
	TicketBooked    = "ticket.booked"
	TicketCheckedIn = "ticket.checked_in"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data any) error
}

type Subscriber interface {
	QueueSubscribe(subject, queue string, handler Handler) error
}

type Bus interface {
	Publisher
	Subscriber
	Ping(ctx context.Context) error
	Close() error
}

type Message struct {
	ID         string
	Subject    string
	Data       []byte
	ReceivedAt time.Time
}

func (m *Message) Decode(v any) error {
	if err := json.Unmarshal(m.Data, v); err != nil {
		return fmt.Errorf("decode %s: %w", m.Subject, err)
	}
	return nil
}

type Handler func(ctx context.Context, msg *Message)

type EventSubmittedPayload struct {
	EventID     string    `json:"event_id"`
	Title       string    `json:"title"`
	HosterID    string    `json:"hoster_id"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type EventDecidedPayload struct {
	EventID   string    `json:"event_id"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	DecidedBy string    `json:"decided_by"`
	DecidedAt time.Time `json:"decided_at"`
}

type TicketBookedPayload struct {
	TicketID   string    `json:"ticket_id"`
	TicketCode string    `json:"ticket_code"`
	EventID    string    `json:"event_id"`
	EventName  string    `json:"event_name"`
	UserID     string    `json:"user_id"`
	Email      string    `json:"email"`
	BookedAt   time.Time `json:"booked_at"`
}

type TicketCheckedInPayload struct {
	TicketCode  string    `json:"ticket_code"`
	EventID     string    `json:"event_id"`
	VerifiedBy  string    `json:"verified_by"`
	CheckedInAt time.Time `json:"checked_in_at"`
}

// Local delivers messages to in-process subscribers. It is used when no
// NATS server is configured. One handler per queue group receives each
// message, matching NATS queue semantics within a single process.
type Local struct {
	mu       sync.RWMutex
	handlers map[string]map[string]Handler
	wg       sync.WaitGroup
	closed   bool
}

func NewLocal() *Local {
	return &Local{handlers: make(map[string]map[string]Handler)}
}

func (l *Local) Publish(ctx context.Context, subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", subject, err)
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return fmt.Errorf("publish %s: bus closed", subject)
	}

	for _, handler := range l.handlers[subject] {
		msg := &Message{
			ID:         uuid.New().String(),
			Subject:    subject,
			Data:       payload,
			ReceivedAt: time.Now(),
		}

		l.wg.Add(1)
		go func(h Handler) {
			defer l.wg.Done()
			h(context.WithoutCancel(ctx), msg)
		}(handler)
	}

	slog.DebugContext(ctx, "event published", "subject", subject)
	return nil
}

func (l *Local) QueueSubscribe(subject, queue string, handler Handler) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	groups, ok := l.handlers[subject]
	if !ok {
		groups = make(map[string]Handler)
		l.handlers[subject] = groups
	}
	if _, exists := groups[queue]; exists {
		return fmt.Errorf("subscribe %s: queue %q already has a handler", subject, queue)
	}
	groups[queue] = handler

	return nil
}

func (l *Local) Ping(context.Context) error {
	return nil
}

// Close stops accepting messages and waits for in-flight handlers.
func (l *Local) Close() error {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()

	l.wg.Wait()
	return nil
}
