package officehours

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/odonto/odonto/internal/platform/apperr"
	"github.com/odonto/odonto/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole(auth.RolePractitioner, auth.RoleReceptionist))
	read.GET("/practitioners/:id/office-hours", h.ListWeek)

	admin := api.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.PUT("/practitioners/:id/office-hours", h.UpsertWeek)
}

type upsertWeekRequest struct {
	Entries []Entry `json:"entries"`
}

type weekResponse struct {
	PractitionerID uuid.UUID      `json:"practitioner_id"`
	Days           []*OfficeHours `json:"days"`
}

func (h *Handler) UpsertWeek(c echo.Context) error {
	pid, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.ToHTTP(apperr.NewValidation("id", "invalid practitioner id"))
	}
	var req upsertWeekRequest
	if err := c.Bind(&req); err != nil {
		return apperr.ToHTTP(apperr.NewValidation("body", err.Error()))
	}
	week, err := h.svc.UpsertWeek(c.Request().Context(), pid, req.Entries)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, weekResponse{PractitionerID: pid, Days: week})
}

func (h *Handler) ListWeek(c echo.Context) error {
	pid, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.ToHTTP(apperr.NewValidation("id", "invalid practitioner id"))
	}
	week, err := h.svc.ListWeek(c.Request().Context(), pid)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	if week == nil {
		week = []*OfficeHours{}
	}
	return c.JSON(http.StatusOK, weekResponse{PractitionerID: pid, Days: week})
}
