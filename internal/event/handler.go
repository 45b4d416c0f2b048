// AngelaMos | 2026
// handler.go

package event

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

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

// RegisterRoutes mounts catalog, hoster and moderation routes.
// authenticated must reject anonymous callers and attach the role; optional
// attaches them when a token is present.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticated func(http.Handler) http.Handler,
	optional func(http.Handler) http.Handler,
) {
	r.Get("/events", h.ListApproved)
	r.With(optional).Get("/events/{eventID}", h.Get)

	r.Group(func(r chi.Router) {
		r.Use(authenticated)
		r.Use(identity.RequireRole(identity.RoleHoster))

		r.Post("/hoster/events", h.Submit)
		r.Get("/hoster/events", h.ListMine)
	})

	r.Group(func(r chi.Router) {
		r.Use(authenticated)
		r.Use(identity.RequireRole(identity.RoleAdmin))

		r.Get("/admin/events/pending", h.ListPending)
		r.Put("/admin/events/{eventID}/decision", h.Decide)
	})
}

func (h *Handler) ListApproved(w http.ResponseWriter, r *http.Request) {
	events, err := h.service.ListApproved(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		core.JSONError(w, core.StoreUnavailableError(err))
		return
	}

	core.OK(w, ToEventResponseList(events))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	e, err := h.service.GetVisible(
		r.Context(),
		identity.CallerFromContext(r.Context()),
		chi.URLParam(r, "eventID"),
	)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "event")
			return
		}
		core.JSONError(w, core.StoreUnavailableError(err))
		return
	}

	core.OK(w, ToEventResponse(e))
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, decodeErrorMessage(err))
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	e, err := h.service.Submit(
		r.Context(),
		identity.CallerFromContext(r.Context()),
		req.ToInput(),
	)
	if err != nil {
		h.writeError(w, err)
		return
	}

	core.Created(w, ToEventResponse(e))
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	events, err := h.service.ListByHoster(r.Context(), identity.CallerFromContext(r.Context()))
	if err != nil {
		if errors.Is(err, core.ErrForbidden) {
			core.Forbidden(w, "")
			return
		}
		core.JSONError(w, core.StoreUnavailableError(err))
		return
	}

	core.OK(w, ToEventResponseList(events))
}

func (h *Handler) ListPending(w http.ResponseWriter, r *http.Request) {
	events, err := h.service.ListPending(r.Context(), identity.CallerFromContext(r.Context()))
	if err != nil {
		if errors.Is(err, core.ErrForbidden) {
			core.Forbidden(w, "")
			return
		}
		core.JSONError(w, core.StoreUnavailableError(err))
		return
	}

	core.OK(w, ToEventResponseList(events))
}

func (h *Handler) Decide(w http.ResponseWriter, r *http.Request) {
	var req DecideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	e, err := h.service.Decide(
		r.Context(),
		identity.CallerFromContext(r.Context()),
		chi.URLParam(r, "eventID"),
		Status(req.Decision),
	)
	if err != nil {
		h.writeError(w, err)
		return
	}

	core.OK(w, ToEventResponse(e))
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrInvalidInput):
		core.BadRequest(w, validationMessage(err))
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "event")
	case errors.Is(err, core.ErrInvalidTransition):
		core.JSONError(w, core.TransitionError("event has already been decided"))
	default:
		core.JSONError(w, core.ToAppError(err, "event"))
	}
}

// validationMessage strips the operation prefix and sentinel suffix from a
// wrapped ErrInvalidInput.
func validationMessage(err error) string {
	msg := strings.TrimSuffix(err.Error(), ": "+core.ErrInvalidInput.Error())
	if i := strings.LastIndex(msg, ": "); i >= 0 {
		msg = msg[i+2:]
	}
	return msg
}

func decodeErrorMessage(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return typeErr.Field + " must be a number"
	}
	if strings.Contains(err.Error(), "decimal") {
		return "ticket_price must be a number"
	}
	return "invalid request body"
}
