// AngelaMos | 2026
// handler.go

package ticket

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/eventhub/internal/core"
	"github.com/carterperez-dev/eventhub/internal/identity"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// RegisterRoutes mounts booking and verification. verifyLimit, when not
// nil, wraps the verification endpoint only.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticated func(http.Handler) http.Handler,
	verifyLimit func(http.Handler) http.Handler,
) {
	r.Group(func(r chi.Router) {
		r.Use(authenticated)

		r.With(identity.RequireRole(identity.RoleUser)).
			Post("/events/{eventID}/tickets", h.Book)
		r.Get("/tickets/mine", h.ListMine)

		verify := r.With(identity.RequireRole(identity.RoleHoster, identity.RoleAdmin))
		if verifyLimit != nil {
			verify = verify.With(verifyLimit)
		}
		verify.Post("/tickets/verify", h.Verify)
	})
}

func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	t, err := h.service.Book(
		r.Context(),
		identity.CallerFromContext(r.Context()),
		chi.URLParam(r, "eventID"),
	)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrNotFound):
			core.NotFound(w, "event")
		case errors.Is(err, ErrNotBookable):
			core.JSONError(w, core.ConflictError(ErrNotBookable.Error()))
		default:
			core.JSONError(w, core.ToAppError(err, "ticket"))
		}
		return
	}

	core.Created(w, BookingResponse{
		Ticket:  ToTicketResponse(t),
		Message: "Booked! Your Ticket ID: " + t.Code,
	})
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	tickets, err := h.service.ListForUser(r.Context(), identity.CallerFromContext(r.Context()))
	if err != nil {
		if errors.Is(err, core.ErrUnauthorized) {
			core.Unauthorized(w, "")
			return
		}
		core.JSONError(w, core.StoreUnavailableError(err))
		return
	}

	core.OK(w, ToTicketResponseList(tickets))
}

func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	res, err := h.service.Verify(
		r.Context(),
		identity.CallerFromContext(r.Context()),
		req.TicketID,
	)
	if err != nil {
		if errors.Is(err, core.ErrForbidden) {
			core.Forbidden(w, "")
			return
		}
		core.JSONError(w, core.StoreUnavailableError(err))
		return
	}

	core.OK(w, ToVerifyResponse(res))
}
