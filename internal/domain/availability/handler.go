package availability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/odonto/odonto/internal/platform/apperr"
	"github.com/odonto/odonto/internal/platform/auth"
	"github.com/odonto/odonto/pkg/civil"
)

type Handler struct {
	svc *Service
	now func() time.Time
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc, now: time.Now}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole(auth.RolePractitioner, auth.RoleReceptionist))
	read.GET("/practitioners/:id/availability", h.ComputeSlots)
}

type slotsResponse struct {
	PractitionerID  uuid.UUID  `json:"practitioner_id"`
	Date            civil.Date `json:"date"`
	DurationMinutes int        `json:"duration_minutes,omitempty"`
	Slots           []Slot     `json:"slots"`
}

// ComputeSlots handles GET /practitioners/:id/availability?date=&duration=.
// Without duration the day's configured visit length is used.
func (h *Handler) ComputeSlots(c echo.Context) error {
	v := &apperr.ValidationError{}
	pid, err := uuid.Parse(c.Param("id"))
	if err != nil {
		v.Add("id", "invalid practitioner id")
	}
	date, err := civil.ParseDate(c.QueryParam("date"))
	if err != nil {
		v.Add("date", err.Error())
	}
	duration := 0
	if raw := c.QueryParam("duration"); raw != "" {
		n, err := strconv.Atoi(raw)
		switch {
		case err != nil:
			v.Add("duration", "must be an integer number of minutes")
		case !ValidDuration(n):
			v.Add("duration", durationMessage)
		default:
			duration = n
		}
	}
	if err := v.Err(); err != nil {
		return apperr.ToHTTP(err)
	}

	slots, err := h.svc.ComputeSlots(c.Request().Context(), Request{
		PractitionerID:  pid,
		Date:            date,
		DurationMinutes: duration,
		Now:             h.now(),
	})
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, slotsResponse{
		PractitionerID:  pid,
		Date:            date,
		DurationMinutes: duration,
		Slots:           slots,
	})
}
