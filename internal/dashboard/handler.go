// AngelaMos | 2026
// handler.go

package dashboard

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/eventhub/internal/core"
	"github.com/carterperez-dev/eventhub/internal/identity"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the views. optional attaches the caller and role
// when a valid token is present and never rejects the request.
func (h *Handler) RegisterRoutes(r chi.Router, optional func(http.Handler) http.Handler) {
	r.Route("/views", func(r chi.Router) {
		r.Use(optional)

		r.Get("/catalog", h.Catalog)
		r.Get("/events/{eventID}", h.Detail)
		r.Get("/dashboard", h.Dashboard)
	})
}

func (h *Handler) Catalog(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Catalog(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		core.JSONError(w, core.StoreUnavailableError(err))
		return
	}

	core.OK(w, view)
}

func (h *Handler) Detail(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Detail(
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

	core.OK(w, view)
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Dashboard(r.Context(), identity.CallerFromContext(r.Context()))
	if err != nil {
		core.JSONError(w, core.StoreUnavailableError(err))
		return
	}

	core.OK(w, view)
}
