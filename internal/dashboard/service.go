// AngelaMos | 2026
// service.go

package dashboard

import (
	"context"
	"fmt"

	"github.com/carterperez-dev/eventhub/internal/core"
	"github.com/carterperez-dev/eventhub/internal/event"
	"github.com/carterperez-dev/eventhub/internal/identity"
	"github.com/carterperez-dev/eventhub/internal/ticket"
)

// adminUserPage bounds the user list on the admin dashboard.
const adminUserPage = 100

type EventSource interface {
	Get(ctx context.Context, id string) (*event.Event, error)
	ListApproved(ctx context.Context, search string) ([]event.Event, error)
	ListByHoster(ctx context.Context, caller identity.Caller) ([]event.Event, error)
	ListPending(ctx context.Context, caller identity.Caller) ([]event.Event, error)
}

type TicketSource interface {
	ListForUser(ctx context.Context, caller identity.Caller) ([]ticket.Ticket, error)
}

type ProfileSource interface {
	ListProfiles(
		ctx context.Context,
		caller identity.Caller,
		params identity.ListProfilesParams,
	) ([]identity.Profile, int, error)
}

// Service picks the view for a caller and loads only what that view shows.
type Service struct {
	events   EventSource
	tickets  TicketSource
	profiles ProfileSource
}

func NewService(events EventSource, tickets TicketSource, profiles ProfileSource) *Service {
	return &Service{
		events:   events,
		tickets:  tickets,
		profiles: profiles,
	}
}

func (s *Service) Catalog(ctx context.Context, search string) (CatalogView, error) {
	events, err := s.events.ListApproved(ctx, search)
	if err != nil {
		return CatalogView{}, fmt.Errorf("catalog view: %w", err)
	}

	return CatalogView{
		View:   ViewCatalog,
		Events: event.ToEventResponseList(events),
	}, nil
}

func (s *Service) Detail(
	ctx context.Context,
	caller identity.Caller,
	eventID string,
) (DetailView, error) {
	e, err := s.events.Get(ctx, eventID)
	if err != nil {
		return DetailView{}, fmt.Errorf("detail view: %w", err)
	}
	if !e.VisibleTo(caller) {
		return DetailView{}, fmt.Errorf("detail view: %w", core.ErrNotFound)
	}

	return DetailView{
		View:    ViewDetail,
		Event:   event.ToEventResponse(e),
		CanBook: caller.Is(identity.RoleUser) && e.Bookable(),
	}, nil
}

// Dashboard returns one of the role dashboards, or the login prompt when
// the caller is anonymous or has no resolved role. The login prompt never
// touches the store.
func (s *Service) Dashboard(ctx context.Context, caller identity.Caller) (any, error) {
	if !caller.Authenticated() {
		return loginRequired(), nil
	}

	switch caller.Role {
	case identity.RoleUser:
		tickets, err := s.tickets.ListForUser(ctx, caller)
		if err != nil {
			return nil, fmt.Errorf("user dashboard: %w", err)
		}
		return UserDashboard{
			View:    ViewUserDashboard,
			Tickets: ticket.ToTicketResponseList(tickets),
		}, nil

	case identity.RoleHoster:
		events, err := s.events.ListByHoster(ctx, caller)
		if err != nil {
			return nil, fmt.Errorf("hoster dashboard: %w", err)
		}
		return HosterDashboard{
			View:   ViewHosterDashboard,
			Events: event.ToEventResponseList(events),
			Tools:  hosterTools(),
		}, nil

	case identity.RoleAdmin:
		pending, err := s.events.ListPending(ctx, caller)
		if err != nil {
			return nil, fmt.Errorf("admin dashboard: %w", err)
		}
		users, _, err := s.profiles.ListProfiles(ctx, caller, identity.ListProfilesParams{
			Page:     1,
			PageSize: adminUserPage,
		})
		if err != nil {
			return nil, fmt.Errorf("admin dashboard: %w", err)
		}
		return AdminDashboard{
			View:    ViewAdminDashboard,
			Pending: event.ToEventResponseList(pending),
			Users:   identity.ToProfileResponseList(users),
			Tools:   adminTools(),
		}, nil

	default:
		return loginRequired(), nil
	}
}
