package rescheduling

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/odonto/odonto/internal/platform/apperr"
	"github.com/odonto/odonto/internal/platform/auth"
	"github.com/odonto/odonto/pkg/civil"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	staff := api.Group("", auth.RequireRole(auth.RolePractitioner, auth.RoleReceptionist))
	staff.POST("/appointments/:id/reschedule", h.Reschedule)
}

type rescheduleRequest struct {
	Date      civil.Date      `json:"date"`
	StartTime civil.TimeOfDay `json:"start_time"`
}

func (h *Handler) Reschedule(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.ToHTTP(apperr.NewValidation("id", "invalid appointment id"))
	}
	var req rescheduleRequest
	if err := c.Bind(&req); err != nil {
		return apperr.ToHTTP(apperr.NewValidation("body", err.Error()))
	}
	a, err := h.svc.Reschedule(c.Request().Context(), id, req.Date, req.StartTime)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, a)
}
