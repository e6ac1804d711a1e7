package followup

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/vaidyavision/vaidya/internal/domain/identity"
	"github.com/vaidyavision/vaidya/internal/domain/scan"
	"github.com/vaidyavision/vaidya/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole(identity.RoleDoctor))
	g.POST("/follow-ups", h.ScheduleFollowUp)
	g.GET("/follow-ups", h.ListFollowUps)
	g.DELETE("/follow-ups/:id", h.CancelFollowUp)
	g.POST("/follow-ups/run", h.RunDuePass)
}

func (h *Handler) ScheduleFollowUp(c echo.Context) error {
	var in ScheduleInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	f, err := h.svc.Schedule(c.Request().Context(), in)
	switch {
	case errors.Is(err, ErrInvalidInput):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, scan.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "scan not found")
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, f)
}

func (h *Handler) ListFollowUps(c echo.Context) error {
	scanID, err := uuid.Parse(c.QueryParam("scan_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "scan_id is required")
	}
	items, err := h.svc.ListByScan(c.Request().Context(), scanID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if items == nil {
		items = []*FollowUp{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) CancelFollowUp(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	err = h.svc.Cancel(c.Request().Context(), id)
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "follow-up not found")
	case errors.Is(err, ErrNotPending):
		return echo.NewHTTPError(http.StatusConflict, "follow-up already delivered or cancelled")
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// RunDuePass triggers a delivery sweep. Exposed for cron-style
// invocation; the sweep is idempotent so overlapping calls are safe.
func (h *Handler) RunDuePass(c echo.Context) error {
	result, err := h.svc.RunDuePass(c.Request().Context(), time.Now())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, result)
}
