package scan

import (
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/vaidyavision/vaidya/internal/domain/identity"
	"github.com/vaidyavision/vaidya/internal/platform/artifact"
	"github.com/vaidyavision/vaidya/internal/platform/auth"
	"github.com/vaidyavision/vaidya/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/scans", h.SubmitScan)
	api.GET("/scans", h.ListScans)
	api.GET("/scans/:id", h.GetScan)

	review := api.Group("", auth.RequireRole(identity.RoleDoctor))
	review.PATCH("/scans/:id", h.FinalizeScan)
	review.POST("/scans/:id/rerun", h.RerunScan)
}

// SubmitScan accepts a multipart upload with the scan image and
// routes it through the intake pipeline.
func (h *Handler) SubmitScan(c echo.Context) error {
	ctx := c.Request().Context()

	file, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "missing file")
	}
	if file.Size > artifact.MaxSize {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "file exceeds size limit")
	}
	src, err := file.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable file")
	}
	defer src.Close()
	image, err := io.ReadAll(io.LimitReader(src, artifact.MaxSize+1))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable file")
	}
	if int64(len(image)) > artifact.MaxSize {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "file exceeds size limit")
	}

	submitterID, err := uuid.Parse(auth.UserIDFromContext(ctx))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid user identity")
	}

	in := SubmitInput{
		SubmitterID:       submitterID,
		SubmitterIsDoctor: auth.HasRole(ctx, identity.RoleDoctor),
		Image:             image,
		Filename:          file.Filename,
		Modality:          c.FormValue("modality"),
		Symptoms:          c.FormValue("symptoms"),
	}
	if target := c.FormValue("patient_id"); target != "" && in.SubmitterIsDoctor {
		tid, err := uuid.Parse(target)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		in.TargetPatientID = &tid
	}

	result, err := h.svc.Submit(ctx, in)
	switch {
	case errors.Is(err, ErrInvalidModality), errors.Is(err, ErrEmptyImage):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, identity.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	case errors.Is(err, artifact.ErrTooLarge):
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, "scan submission failed")
	}
	return c.JSON(http.StatusCreated, result)
}

func (h *Handler) ListScans(c echo.Context) error {
	ctx := c.Request().Context()
	pg := pagination.FromContext(c)

	var filter ListFilter
	if s := c.QueryParam("status"); s != "" {
		if !Status(s).Valid() {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid status")
		}
		filter.Status = Status(s)
	}
	if p := c.QueryParam("priority"); p != "" {
		if !Priority(p).Valid() {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid priority")
		}
		filter.Priority = Priority(p)
	}
	if pid := c.QueryParam("patient_id"); pid != "" {
		id, err := uuid.Parse(pid)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		filter.PatientID = id
	}

	// Patients only ever see their own scans.
	if !auth.HasRole(ctx, identity.RoleDoctor) {
		self, err := uuid.Parse(auth.UserIDFromContext(ctx))
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid user identity")
		}
		filter.PatientID = self
	}

	items, total, err := h.svc.List(ctx, filter, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetScan(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	sc, err := h.svc.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "scan not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !auth.HasRole(ctx, identity.RoleDoctor) && sc.PatientID.String() != auth.UserIDFromContext(ctx) {
		return echo.NewHTTPError(http.StatusForbidden, "not your scan")
	}
	return c.JSON(http.StatusOK, sc)
}

type finalizeRequest struct {
	Notes string `json:"notes"`
}

// FinalizeScan records the reviewing doctor's sign-off.
func (h *Handler) FinalizeScan(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	doctorID, err := uuid.Parse(auth.UserIDFromContext(ctx))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid user identity")
	}
	var req finalizeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	sc, err := h.svc.Finalize(ctx, id, doctorID, req.Notes)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "scan not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, sc)
}

func (h *Handler) RerunScan(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	sc, err := h.svc.Rerun(ctx, id)
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "scan not found")
	case IsRecoverable(err):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "analysis service unavailable, try again later")
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, sc)
}
