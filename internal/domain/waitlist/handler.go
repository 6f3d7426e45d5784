package waitlist

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/opdflow/opdflow/internal/domain/appointment"
	"github.com/opdflow/opdflow/internal/platform/apperr"
	"github.com/opdflow/opdflow/internal/platform/auth"
	"github.com/opdflow/opdflow/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole("admin", "doctor", "nurse", "registrar"))
	g.POST("/waitlist", h.Join)
	g.GET("/waitlist", h.List)
	g.GET("/waitlist/:id", h.Get)
	g.POST("/waitlist/:id/confirm", h.Confirm)
	g.DELETE("/waitlist/:id", h.Remove)
}

type joinRequest struct {
	PatientID     uuid.UUID `json:"patient_id"`
	DoctorID      uuid.UUID `json:"doctor_id"`
	PreferredDate string    `json:"preferred_date"`
	PreferredTime *string   `json:"preferred_time"`
	Priority      string    `json:"priority"`
	Reason        string    `json:"reason"`
}

func (h *Handler) Join(c echo.Context) error {
	var req joinRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	e := &Entry{
		PatientID:     req.PatientID,
		DoctorID:      req.DoctorID,
		PreferredDate: req.PreferredDate,
		PreferredTime: req.PreferredTime,
		Priority:      appointment.PriorityScore(req.Priority),
		Reason:        req.Reason,
	}
	if err := h.svc.Join(c.Request().Context(), e); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, e)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	e, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	params := map[string]string{}
	for _, k := range []string{"doctor_id", "patient_id", "status", "preferred_date"} {
		if v := c.QueryParam(k); v != "" {
			params[k] = v
		}
	}
	items, total, err := h.svc.List(c.Request().Context(), params, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Confirm(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	e, appt, err := h.svc.Confirm(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"entry":       e,
		"appointment": appt,
	})
}

func (h *Handler) Remove(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	e, err := h.svc.Remove(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, e)
}
