// AngelaMos | 2026
// service.go

package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/eventhub/internal/bus"
	"github.com/carterperez-dev/eventhub/internal/core"
	"github.com/carterperez-dev/eventhub/internal/identity"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// Recorder counts lifecycle outcomes.
type Recorder interface {
	Lifecycle(entity, outcome string)
}

type SubmitInput struct {
	Title        string
	Description  string
	Date         string
	Time         string
	Location     string
	TicketPrice  decimal.Decimal
	TotalTickets int
}

func (in *SubmitInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Date = strings.TrimSpace(in.Date)
	in.Time = strings.TrimSpace(in.Time)
	in.Location = strings.TrimSpace(in.Location)
}

func (in SubmitInput) validate() error {
	required := []struct{ name, value string }{
		{"title", in.Title},
		{"description", in.Description},
		{"date", in.Date},
		{"time", in.Time},
		{"location", in.Location},
	}
	for _, f := range required {
		if f.value == "" {
			return fmt.Errorf("%s is required: %w", f.name, core.ErrInvalidInput)
		}
	}

	if _, err := time.Parse(dateLayout, in.Date); err != nil {
		return fmt.Errorf("date must be YYYY-MM-DD: %w", core.ErrInvalidInput)
	}
	if _, err := time.Parse(timeLayout, in.Time); err != nil {
		return fmt.Errorf("time must be HH:MM: %w", core.ErrInvalidInput)
	}
	if in.TicketPrice.IsNegative() {
		return fmt.Errorf("ticket_price must not be negative: %w", core.ErrInvalidInput)
	}
	if in.TotalTickets < 0 {
		return fmt.Errorf("total_tickets must not be negative: %w", core.ErrInvalidInput)
	}

	return nil
}

type Service struct {
	repo      Repository
	publisher bus.Publisher
	recorder  Recorder
}

func NewService(repo Repository, publisher bus.Publisher, recorder Recorder) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		recorder:  recorder,
	}
}

// Submit creates a Pending event owned by the calling Hoster.
func (s *Service) Submit(
	ctx context.Context,
	caller identity.Caller,
	in SubmitInput,
) (*Event, error) {
	ctx, span := core.StartSpan(ctx, "event.Submit")
	defer span.End()

	if !caller.Is(identity.RoleHoster) {
		return nil, fmt.Errorf("submit event: %w", core.ErrForbidden)
	}

	in.normalize()
	if err := in.validate(); err != nil {
		return nil, fmt.Errorf("submit event: %w", err)
	}

	e := &Event{
		ID:           uuid.New().String(),
		Title:        in.Title,
		Description:  in.Description,
		Date:         in.Date,
		Time:         in.Time,
		Location:     in.Location,
		TicketPrice:  in.TicketPrice.Round(2),
		TotalTickets: in.TotalTickets,
		Status:       StatusPending,
		HosterID:     caller.ID,
	}

	if err := s.repo.Create(ctx, e); err != nil {
		core.SetSpanError(ctx, err)
		return nil, fmt.Errorf("submit event: %w", err)
	}

	core.AddSpanEvent(ctx, "event.submitted", attribute.String("event.id", e.ID))
	slog.InfoContext(ctx, "event submitted",
		"event_id", e.ID,
		"hoster_id", caller.ID,
	)

	s.record("submitted")
	s.publish(ctx, bus.EventSubmitted, bus.EventSubmittedPayload{
		EventID:     e.ID,
		Title:       e.Title,
		HosterID:    e.HosterID,
		SubmittedAt: e.CreatedAt,
	})

	return e, nil
}

// Get returns any event by id. Unknown or malformed ids are ErrNotFound.
func (s *Service) Get(ctx context.Context, id string) (*Event, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("get event: %w", core.ErrNotFound)
	}
	return s.repo.GetByID(ctx, id)
}

// GetVisible is Get for public lookups. Events the caller may not see are
// reported as ErrNotFound.
func (s *Service) GetVisible(
	ctx context.Context,
	caller identity.Caller,
	id string,
) (*Event, error) {
	e, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !e.VisibleTo(caller) {
		return nil, fmt.Errorf("get event: %w", core.ErrNotFound)
	}
	return e, nil
}

func (s *Service) ListApproved(ctx context.Context, search string) ([]Event, error) {
	return s.repo.ListApproved(ctx, search)
}

func (s *Service) ListByHoster(ctx context.Context, caller identity.Caller) ([]Event, error) {
	if !caller.Is(identity.RoleHoster) {
		return nil, fmt.Errorf("list hoster events: %w", core.ErrForbidden)
	}
	return s.repo.ListByHoster(ctx, caller.ID)
}

func (s *Service) ListPending(ctx context.Context, caller identity.Caller) ([]Event, error) {
	if !caller.Is(identity.RoleAdmin) {
		return nil, fmt.Errorf("list pending events: %w", core.ErrForbidden)
	}
	return s.repo.ListPending(ctx)
}

// Decide moves a Pending event to Approved or Rejected. Re-applying the
// decision an event already has returns it unchanged and is not recorded
// again; any other change to a decided event is ErrInvalidTransition.
func (s *Service) Decide(
	ctx context.Context,
	caller identity.Caller,
	id string,
	decision Status,
) (*Event, error) {
	ctx, span := core.StartSpan(ctx, "event.Decide",
		attribute.String("event.id", id),
		attribute.String("event.decision", string(decision)),
	)
	defer span.End()

	if !caller.Is(identity.RoleAdmin) {
		return nil, fmt.Errorf("decide event: %w", core.ErrForbidden)
	}
	if _, ok := ParseDecision(string(decision)); !ok {
		return nil, fmt.Errorf(
			"decide event: invalid decision %q: %w",
			decision,
			core.ErrInvalidInput,
		)
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("decide event: %w", core.ErrNotFound)
	}

	e, err := s.repo.Decide(ctx, id, decision)
	if errors.Is(err, core.ErrConflict) {
		current, getErr := s.repo.GetByID(ctx, id)
		if getErr != nil {
			return nil, fmt.Errorf("decide event: %w", getErr)
		}
		if current.Status == decision {
			return current, nil
		}
		return nil, fmt.Errorf(
			"decide event: %s event cannot become %s: %w",
			current.Status,
			decision,
			core.ErrInvalidTransition,
		)
	}
	if err != nil {
		core.SetSpanError(ctx, err)
		return nil, fmt.Errorf("decide event: %w", err)
	}

	slog.InfoContext(ctx, "event decided",
		"event_id", e.ID,
		"status", e.Status,
		"by", caller.ID,
	)

	s.record(strings.ToLower(string(decision)))
	s.publish(ctx, bus.EventDecided, bus.EventDecidedPayload{
		EventID:   e.ID,
		Title:     e.Title,
		Status:    string(e.Status),
		DecidedBy: caller.ID,
		DecidedAt: e.UpdatedAt,
	})

	return e, nil
}

func (s *Service) CountByStatus(ctx context.Context) (map[Status]int, error) {
	return s.repo.CountByStatus(ctx)
}

func (s *Service) record(outcome string) {
	if s.recorder != nil {
		s.recorder.Lifecycle("event", outcome)
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
