package walkin

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/opdflow/opdflow/internal/platform/apperr"
	"github.com/opdflow/opdflow/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole("admin", "doctor", "nurse", "registrar"))
	g.POST("/walk-ins", h.CheckIn)
	g.GET("/walk-ins/today", h.ListToday)
	g.GET("/walk-ins/queue", h.GetQueue)
	g.GET("/walk-ins/queue/doctor-loads", h.DoctorLoads)
	g.GET("/walk-ins/unassigned", h.ListUnassigned)
	g.PATCH("/walk-ins/queue/:id/call", h.Call)
	g.PATCH("/walk-ins/queue/:id/start-consultation", h.StartConsultation)
	g.PATCH("/walk-ins/queue/:id/complete", h.Complete)
	g.PATCH("/walk-ins/queue/:id/skip", h.Skip)
	g.POST("/walk-ins/:id/assign-doctor", h.AssignDoctor)
}

func actorFromContext(c echo.Context) Actor {
	ctx := c.Request().Context()
	return Actor{
		UserID:   auth.UserIDFromContext(ctx),
		Roles:    auth.RolesFromContext(ctx),
		DoctorID: auth.DoctorIDFromContext(ctx),
	}
}

func (h *Handler) CheckIn(c echo.Context) error {
	var req CheckInRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	res, err := h.svc.CheckIn(c.Request().Context(), req)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	status := http.StatusCreated
	if res.Waitlisted {
		status = http.StatusAccepted
	}
	return c.JSON(status, res)
}

func (h *Handler) GetQueue(c echo.Context) error {
	var doctorID *uuid.UUID
	if v := c.QueryParam("doctor_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor_id")
		}
		doctorID = &id
	}
	board, err := h.svc.GetQueue(c.Request().Context(), doctorID)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, board)
}

func (h *Handler) ListToday(c echo.Context) error {
	board, err := h.svc.ListToday(c.Request().Context())
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, board)
}

func (h *Handler) ListUnassigned(c echo.Context) error {
	items, err := h.svc.ListUnassigned(c.Request().Context())
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) DoctorLoads(c echo.Context) error {
	loads, err := h.svc.DoctorLoads(c.Request().Context())
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, loads)
}

func (h *Handler) Call(c echo.Context) error {
	return h.drive(c, h.svc.Call)
}

func (h *Handler) StartConsultation(c echo.Context) error {
	return h.drive(c, h.svc.StartConsultation)
}

func (h *Handler) Complete(c echo.Context) error {
	return h.drive(c, h.svc.Complete)
}

func (h *Handler) Skip(c echo.Context) error {
	return h.drive(c, h.svc.Skip)
}

func (h *Handler) drive(c echo.Context, fn func(context.Context, uuid.UUID, Actor) (*QueueEntry, error)) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	q, err := fn(c.Request().Context(), id, actorFromContext(c))
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, q)
}

type assignDoctorRequest struct {
	DoctorID uuid.UUID `json:"doctor_id"`
}

func (h *Handler) AssignDoctor(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req assignDoctorRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	q, err := h.svc.AssignDoctor(c.Request().Context(), id, req.DoctorID, actorFromContext(c))
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, q)
}
