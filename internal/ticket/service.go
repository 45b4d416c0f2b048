// AngelaMos | 2026
// service.go

package ticket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/eventhub/internal/bus"
	"github.com/carterperez-dev/eventhub/internal/core"
	"github.com/carterperez-dev/eventhub/internal/event"
	"github.com/carterperez-dev/eventhub/internal/identity"
)

const maxCodeAttempts = 5

var ErrNotBookable = errors.New("event is not open for booking")

// EventReader is the slice of the event service booking depends on.
type EventReader interface {
	Get(ctx context.Context, id string) (*event.Event, error)
}

type Recorder interface {
	Lifecycle(entity, outcome string)
}

type Service struct {
	repo      Repository
	events    EventReader
	publisher bus.Publisher
	recorder  Recorder
	now       func() time.Time
}

func NewService(
	repo Repository,
	events EventReader,
	publisher bus.Publisher,
	recorder Recorder,
) *Service {
	return &Service{
		repo:      repo,
		events:    events,
		publisher: publisher,
		recorder:  recorder,
		now:       time.Now,
	}
}

// Book issues a Valid ticket for an approved event. Code collisions are
// detected by the store and retried with a fresh code.
func (s *Service) Book(
	ctx context.Context,
	caller identity.Caller,
	eventID string,
) (*Ticket, error) {
	ctx, span := core.StartSpan(ctx, "ticket.Book",
		attribute.String("event.id", eventID),
	)
	defer span.End()

	if !caller.Is(identity.RoleUser) {
		return nil, fmt.Errorf("book ticket: %w", core.ErrForbidden)
	}

	ev, err := s.events.Get(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("book ticket: %w", err)
	}
	if !ev.Bookable() {
		return nil, fmt.Errorf("book ticket: %w: %w", ErrNotBookable, core.ErrConflict)
	}

	t := &Ticket{
		ID:        uuid.New().String(),
		EventID:   ev.ID,
		UserID:    caller.ID,
		EventName: ev.Title,
		Status:    StatusValid,
	}

	for attempt := 1; ; attempt++ {
		t.Code, err = GenerateCode(s.now())
		if err != nil {
			return nil, fmt.Errorf("book ticket: %w", err)
		}

		err = s.repo.Create(ctx, t)
		if err == nil {
			break
		}
		if !errors.Is(err, core.ErrDuplicateKey) || attempt == maxCodeAttempts {
			core.SetSpanError(ctx, err)
			return nil, fmt.Errorf("book ticket: %w", err)
		}

		slog.WarnContext(ctx, "ticket code collision, regenerating",
			"attempt", attempt,
		)
	}

	core.AddSpanEvent(ctx, "ticket.booked", attribute.String("ticket.code", t.Code))
	slog.InfoContext(ctx, "ticket booked",
		"ticket_code", t.Code,
		"event_id", t.EventID,
		"user_id", t.UserID,
	)

	s.record("booked")
	s.publish(ctx, bus.TicketBooked, bus.TicketBookedPayload{
		TicketID:   t.ID,
		TicketCode: t.Code,
		EventID:    t.EventID,
		EventName:  t.EventName,
		UserID:     t.UserID,
		Email:      caller.Email,
		BookedAt:   t.CreatedAt,
	})

	return t, nil
}

func (s *Service) ListForUser(ctx context.Context, caller identity.Caller) ([]Ticket, error) {
	if !caller.Authenticated() {
		return nil, fmt.Errorf("list tickets: %w", core.ErrUnauthorized)
	}
	return s.repo.ListByUser(ctx, caller.ID)
}

// Verify checks a ticket in. Of any number of concurrent calls for the
// same Valid ticket exactly one sees OutcomeValid.
func (s *Service) Verify(
	ctx context.Context,
	caller identity.Caller,
	code string,
) (*VerifyResult, error) {
	ctx, span := core.StartSpan(ctx, "ticket.Verify")
	defer span.End()

	if !caller.Is(identity.RoleHoster, identity.RoleAdmin) {
		return nil, fmt.Errorf("verify ticket: %w", core.ErrForbidden)
	}

	code = strings.TrimSpace(code)
	if code == "" {
		return s.outcome(ctx, OutcomeInvalid, nil), nil
	}

	t, err := s.repo.CheckIn(ctx, code)
	if err == nil {
		slog.InfoContext(ctx, "ticket checked in",
			"ticket_code", t.Code,
			"event_id", t.EventID,
			"by", caller.ID,
		)

		checkedInAt := s.now()
		if t.CheckedInAt != nil {
			checkedInAt = *t.CheckedInAt
		}
		s.publish(ctx, bus.TicketCheckedIn, bus.TicketCheckedInPayload{
			TicketCode:  t.Code,
			EventID:     t.EventID,
			VerifiedBy:  caller.ID,
			CheckedInAt: checkedInAt,
		})

		return s.outcome(ctx, OutcomeValid, t), nil
	}
	if !errors.Is(err, core.ErrConflict) {
		core.SetSpanError(ctx, err)
		return nil, fmt.Errorf("verify ticket: %w", err)
	}

	existing, err := s.repo.GetByCode(ctx, code)
	if errors.Is(err, core.ErrNotFound) {
		return s.outcome(ctx, OutcomeInvalid, nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("verify ticket: %w", err)
	}

	return s.outcome(ctx, OutcomeAlreadyUsed, existing), nil
}

func (s *Service) CountByStatus(ctx context.Context) (map[Status]int, error) {
	return s.repo.CountByStatus(ctx)
}

func (s *Service) outcome(ctx context.Context, o Outcome, t *Ticket) *VerifyResult {
	core.AddSpanEvent(ctx, "ticket.verified", attribute.String("ticket.outcome", string(o)))
	s.record(string(o))
	return &VerifyResult{Outcome: o, Ticket: t}
}

func (s *Service) record(outcome string) {
	if s.recorder != nil {
		s.recorder.Lifecycle("ticket", outcome)
	}
}

func (s *Service) publish(ctx context.Context, subject string, payload any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, subject, payload); err != nil {
		slog.WarnContext(ctx, "event publish failed",
			"subject", subject,
			"error", err,
		)
	}
}
