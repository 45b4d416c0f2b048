// AngelaMos | 2026
// handler.go

package identity

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/eventhub/internal/core"
	"github.com/carterperez-dev/eventhub/internal/middleware"
)

type Handler struct {
	resolver  *Resolver
	validator *validator.Validate
}

func NewHandler(resolver *Resolver) *Handler {
	return &Handler{
		resolver:  resolver,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// RequireRole gates a route on the resolved caller role.
func RequireRole(roles ...Role) func(http.Handler) http.Handler {
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, r.String())
	}
	return middleware.RequireRole(names...)
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticated func(http.Handler) http.Handler,
) {
	r.With(authenticated).Get("/me", h.GetMe)

	r.Route("/admin/users", func(r chi.Router) {
		r.Use(authenticated)
		r.Use(RequireRole(RoleAdmin))

		r.Get("/", h.ListProfiles)
		r.Put("/{userID}/role", h.UpgradeRole)
	})
}

func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	profile, err := h.resolver.Profile(r.Context(), CallerFromContext(r.Context()))
	if err != nil {
		switch {
		case errors.Is(err, core.ErrUnauthorized):
			core.Unauthorized(w, "")
		default:
			core.JSONError(w, core.StoreUnavailableError(err))
		}
		return
	}

	core.OK(w, ToProfileResponse(profile))
}

func (h *Handler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	params := ListProfilesParams{
		Page:     parseIntQuery(r, "page", 1),
		PageSize: parseIntQuery(r, "page_size", 20),
		Search:   q.Get("search"),
	}

	if raw := q.Get("role"); raw != "" {
		role, ok := ParseRole(raw)
		if !ok {
			core.BadRequest(w, "role must be one of: User Hoster Admin")
			return
		}
		params.Role = role
	}
	params.Normalize()

	profiles, total, err := h.resolver.ListProfiles(
		r.Context(),
		CallerFromContext(r.Context()),
		params,
	)
	if err != nil {
		if errors.Is(err, core.ErrForbidden) {
			core.Forbidden(w, "")
			return
		}
		core.JSONError(w, core.StoreUnavailableError(err))
		return
	}

	core.Paginated(
		w,
		ToProfileResponseList(profiles),
		params.Page,
		params.PageSize,
		total,
	)
}

func (h *Handler) UpgradeRole(w http.ResponseWriter, r *http.Request) {
	targetID := chi.URLParam(r, "userID")

	var req UpgradeRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	profile, err := h.resolver.UpgradeRole(
		r.Context(),
		CallerFromContext(r.Context()),
		targetID,
		Role(req.Role),
	)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrNotFound):
			core.NotFound(w, "user")
		case errors.Is(err, core.ErrInvalidTransition):
			core.JSONError(w, core.TransitionError("roles can only be upgraded"))
		default:
			core.JSONError(w, core.ToAppError(err, "user"))
		}
		return
	}

	core.OK(w, ToProfileResponse(profile))
}

func parseIntQuery(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}

	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}

	return parsed
}
