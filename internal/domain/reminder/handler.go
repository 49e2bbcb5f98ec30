package reminder

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/odonto/odonto/internal/platform/apperr"
	"github.com/odonto/odonto/internal/platform/auth"
)

type Handler struct {
	svc        *Service
	dispatcher *Dispatcher
}

// NewHandler wires the tracker routes. dispatcher may be nil, which leaves
// the dispatch route unregistered.
func NewHandler(svc *Service, dispatcher *Dispatcher) *Handler {
	return &Handler{svc: svc, dispatcher: dispatcher}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	staff := api.Group("", auth.RequireRole(auth.RolePractitioner, auth.RoleReceptionist))
	staff.POST("/appointments/:id/reminders", h.Record)
	staff.GET("/appointments/:id/reminders", h.ListByAppointment)
	if h.dispatcher != nil {
		staff.POST("/appointments/:id/reminders/dispatch", h.Dispatch)
	}
	staff.GET("/reminders/stats", h.Stats)
}

type recordRequest struct {
	Recipient Recipient `json:"recipient"`
	Outcome
}

type dispatchRequest struct {
	Recipient Recipient `json:"recipient"`
}

func (h *Handler) Record(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.ToHTTP(apperr.NewValidation("id", "invalid appointment id"))
	}
	var req recordRequest
	if err := c.Bind(&req); err != nil {
		return apperr.ToHTTP(apperr.NewValidation("body", err.Error()))
	}
	rec, err := h.svc.Record(c.Request().Context(), id, req.Recipient, req.Outcome)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, rec)
}

func (h *Handler) Dispatch(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.ToHTTP(apperr.NewValidation("id", "invalid appointment id"))
	}
	var req dispatchRequest
	if err := c.Bind(&req); err != nil {
		return apperr.ToHTTP(apperr.NewValidation("body", err.Error()))
	}
	rec, err := h.dispatcher.Dispatch(c.Request().Context(), id, req.Recipient)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, rec)
}

func (h *Handler) ListByAppointment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.ToHTTP(apperr.NewValidation("id", "invalid appointment id"))
	}
	records, err := h.svc.ListByAppointment(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, records)
}

// Stats handles GET /reminders/stats. Without practitioner_id the counts are
// global.
func (h *Handler) Stats(c echo.Context) error {
	var scope *uuid.UUID
	if raw := c.QueryParam("practitioner_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return apperr.ToHTTP(apperr.NewValidation("practitioner_id", "invalid id"))
		}
		scope = &id
	}
	stats, err := h.svc.Stats(c.Request().Context(), scope)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, stats)
}
