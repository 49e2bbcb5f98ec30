package appointment

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/odonto/odonto/internal/platform/apperr"
	"github.com/odonto/odonto/internal/platform/auth"
	"github.com/odonto/odonto/pkg/civil"
	"github.com/odonto/odonto/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	staff := api.Group("", auth.RequireRole(auth.RolePractitioner, auth.RoleReceptionist))
	staff.POST("/appointments", h.Create)
	staff.GET("/appointments", h.List)
	staff.GET("/appointments/:id", h.Get)
	staff.PATCH("/appointments/:id/status", h.ChangeStatus)
	staff.POST("/appointments/:id/cancel", h.Cancel)

	admin := api.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.DELETE("/appointments/:id", h.Delete)
}

type statusRequest struct {
	Status Status `json:"status"`
	Reason string `json:"reason"`
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) Create(c echo.Context) error {
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return apperr.ToHTTP(apperr.NewValidation("body", err.Error()))
	}
	a, err := h.svc.Create(c.Request().Context(), in)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	a, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, a)
}

// List handles GET /appointments with practitioner_id, patient_id, from, to,
// status and include_inactive filters.
func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := Filter{Limit: pg.Limit, Offset: pg.Offset}

	v := &apperr.ValidationError{}
	if raw := c.QueryParam("practitioner_id"); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			f.PractitionerID = &id
		} else {
			v.Add("practitioner_id", "invalid id")
		}
	}
	if raw := c.QueryParam("patient_id"); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			f.PatientID = &id
		} else {
			v.Add("patient_id", "invalid id")
		}
	}
	if raw := c.QueryParam("from"); raw != "" {
		if d, err := civil.ParseDate(raw); err == nil {
			f.From = &d
		} else {
			v.Add("from", err.Error())
		}
	}
	if raw := c.QueryParam("to"); raw != "" {
		if d, err := civil.ParseDate(raw); err == nil {
			f.To = &d
		} else {
			v.Add("to", err.Error())
		}
	}
	if raw := c.QueryParam("status"); raw != "" {
		st := Status(raw)
		if st.Valid() {
			f.Status = &st
		} else {
			v.Add("status", "unknown status "+raw)
		}
	}
	f.IncludeInactive = c.QueryParam("include_inactive") == "true"
	if err := v.Err(); err != nil {
		return apperr.ToHTTP(err)
	}

	items, total, err := h.svc.List(c.Request().Context(), f)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	if items == nil {
		items = []*Appointment{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset).WithLinks(c.Request().URL))
}

func (h *Handler) ChangeStatus(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return apperr.ToHTTP(apperr.NewValidation("body", err.Error()))
	}
	a, err := h.svc.ChangeStatus(c.Request().Context(), id, req.Status, req.Reason)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Cancel(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req cancelRequest
	if err := c.Bind(&req); err != nil {
		return apperr.ToHTTP(apperr.NewValidation("body", err.Error()))
	}
	a, err := h.svc.Cancel(c.Request().Context(), id, req.Reason)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperr.ToHTTP(apperr.NewValidation("id", "invalid appointment id"))
	}
	return id, nil
}
