package schedule

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

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
	// Read endpoints – all clinical and desk roles
	readGroup := api.Group("", auth.RequireRole("admin", "doctor", "nurse", "registrar"))
	readGroup.GET("/schedules/available-slots", h.GetAvailableSlots)
	readGroup.GET("/schedules", h.ListSchedules)
	readGroup.GET("/schedules/leaves", h.ListLeaves)
	readGroup.GET("/schedules/:id", h.GetSchedule)

	// Write endpoints – administrative staff only
	writeGroup := api.Group("", auth.RequireRole("admin"))
	writeGroup.POST("/schedules", h.CreateSchedule)
	writeGroup.PUT("/schedules/:id", h.UpdateSchedule)
	writeGroup.DELETE("/schedules/:id", h.DeleteSchedule)
	writeGroup.POST("/schedules/leaves", h.CreateLeave)
	writeGroup.DELETE("/schedules/leaves/:id", h.DeleteLeave)
}

func (h *Handler) GetAvailableSlots(c echo.Context) error {
	doctorID, err := uuid.Parse(c.QueryParam("doctor_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor_id")
	}
	day, err := h.svc.GetAvailableSlots(c.Request().Context(), doctorID, c.QueryParam("date"))
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, day)
}

func (h *Handler) CreateSchedule(c echo.Context) error {
	var sched DoctorSchedule
	if err := c.Bind(&sched); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateSchedule(c.Request().Context(), &sched); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, sched)
}

func (h *Handler) GetSchedule(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	sched, err := h.svc.GetSchedule(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, sched)
}

func (h *Handler) ListSchedules(c echo.Context) error {
	if doctorID := c.QueryParam("doctor_id"); doctorID != "" {
		did, err := uuid.Parse(doctorID)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor_id")
		}
		items, err := h.svc.ListSchedulesByDoctor(c.Request().Context(), did)
		if err != nil {
			return apperr.ToHTTP(err)
		}
		return c.JSON(http.StatusOK, items)
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListSchedules(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateSchedule(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var sched DoctorSchedule
	if err := c.Bind(&sched); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	sched.ID = id
	if err := h.svc.UpdateSchedule(c.Request().Context(), &sched); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, sched)
}

func (h *Handler) DeleteSchedule(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteSchedule(c.Request().Context(), id); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) CreateLeave(c echo.Context) error {
	var l DoctorLeave
	if err := c.Bind(&l); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateLeave(c.Request().Context(), &l); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, l)
}

func (h *Handler) ListLeaves(c echo.Context) error {
	doctorID, err := uuid.Parse(c.QueryParam("doctor_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor_id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListLeavesByDoctor(c.Request().Context(), doctorID, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) DeleteLeave(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteLeave(c.Request().Context(), id); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}
