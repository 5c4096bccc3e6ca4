package http

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	dto "taskgrid.com/taskgrid/internal/data_models"
	apperrors "taskgrid.com/taskgrid/internal/errors"
	"taskgrid.com/taskgrid/internal/filters"
	"taskgrid.com/taskgrid/internal/http/validators"
	model "taskgrid.com/taskgrid/internal/models"
	"taskgrid.com/taskgrid/internal/services"
)

type Handler struct {
	queries *services.QueryService
	modes   *services.ModeSelector
	refresh *services.RefreshService
	filters *filters.FilterService
	sync    *services.SyncService
}

func NewHandler(
	queries *services.QueryService,
	modes *services.ModeSelector,
	refresh *services.RefreshService,
	filterService *filters.FilterService,
	syncService *services.SyncService,
) *Handler {
	return &Handler{
		queries: queries,
		modes:   modes,
		refresh: refresh,
		filters: filterService,
		sync:    syncService,
	}
}

func (h *Handler) QueryTasks(c echo.Context) error {
	var req dto.QueryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON payload")
	}
	if err := validators.ValidateQueryRequest(&req); err != nil {
		return err
	}

	result, err := h.queries.QueryTasks(c.Request().Context(), req.Context, req.StartRow, req.EndRow)
	if err != nil {
		return echo.NewHTTPError(apperrors.StatusCode(err), err.Error())
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) DecideMode(c echo.Context) error {
	var req dto.ContextRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON payload")
	}
	if err := validators.ValidateContextRequest(&req); err != nil {
		return err
	}

	decision, err := h.refresh.OnContextChanged(c.Request().Context(), req.Context)
	if err != nil {
		return echo.NewHTTPError(apperrors.StatusCode(err), err.Error())
	}
	return c.JSON(http.StatusOK, decision)
}

func (h *Handler) MaterializedRows(c echo.Context) error {
	rows := h.modes.MaterializedRows()
	if rows == nil {
		rows = []model.Task{}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"count": len(rows),
		"rows":  rows,
	})
}

func (h *Handler) Refresh(c echo.Context) error {
	var req dto.ContextRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON payload")
	}
	if err := validators.ValidateContextRequest(&req); err != nil {
		return err
	}

	if err := h.refresh.Refresh(c.Request().Context(), req.Context); err != nil {
		return echo.NewHTTPError(apperrors.StatusCode(err), err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) SaveFilter(c echo.Context) error {
	scope := c.Param("scope")
	if scope == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "scope key is required")
	}

	var grid model.GridModel
	if err := c.Bind(&grid); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON payload")
	}

	ctx := c.Request().Context()
	if qc, ok := h.modes.Context(); ok {
		if err := h.refresh.OnFilterChanged(ctx, scope, qc, grid); err != nil {
			return echo.NewHTTPError(apperrors.StatusCode(err), err.Error())
		}
	} else if err := h.filters.SaveFilter(ctx, scope, grid); err != nil {
		return echo.NewHTTPError(apperrors.StatusCode(err), err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) LoadFilter(c echo.Context) error {
	scope := c.Param("scope")
	if scope == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "scope key is required")
	}

	grid, err := h.filters.LoadFilter(c.Request().Context(), scope)
	if err != nil {
		return echo.NewHTTPError(apperrors.StatusCode(err), err.Error())
	}
	if grid == nil {
		grid = model.GridModel{}
	}
	return c.JSON(http.StatusOK, grid)
}

func (h *Handler) SaveColumns(c echo.Context) error {
	scope := c.Param("scope")
	if scope == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "scope key is required")
	}

	var fields []string
	if err := c.Bind(&fields); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON payload")
	}
	if err := h.filters.SaveColumns(c.Request().Context(), scope, fields); err != nil {
		return echo.NewHTTPError(apperrors.StatusCode(err), err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) LoadColumns(c echo.Context) error {
	scope := c.Param("scope")
	if scope == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "scope key is required")
	}

	fields, err := h.filters.LoadColumns(c.Request().Context(), scope)
	if err != nil {
		return echo.NewHTTPError(apperrors.StatusCode(err), err.Error())
	}
	if fields == nil {
		fields = []string{}
	}
	return c.JSON(http.StatusOK, fields)
}

func (h *Handler) ApplyRecords(c echo.Context) error {
	var tasks []model.Task
	if err := c.Bind(&tasks); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON payload")
	}
	if err := h.sync.ApplyRecords(c.Request().Context(), tasks); err != nil {
		return echo.NewHTTPError(apperrors.StatusCode(err), err.Error())
	}
	return c.JSON(http.StatusAccepted, echo.Map{"applied": len(tasks)})
}

func (h *Handler) ApplyDelete(c echo.Context) error {
	id, err := taskID(c)
	if err != nil {
		return err
	}
	if err := h.sync.ApplyDelete(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(apperrors.StatusCode(err), err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) UndoDelete(c echo.Context) error {
	id, err := taskID(c)
	if err != nil {
		return err
	}
	if err := h.sync.Undo(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(apperrors.StatusCode(err), err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ApplyApproval(c echo.Context) error {
	var req dto.ApprovalRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON payload")
	}
	if err := validators.ValidateApprovalRequest(&req); err != nil {
		return err
	}
	if err := h.sync.ApplyApproval(c.Request().Context(), req.TaskID, req.ApprovalStatus); err != nil {
		return echo.NewHTTPError(apperrors.StatusCode(err), err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) SetLookup(c echo.Context) error {
	kind := c.Param("kind")
	if kind == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "lookup kind is required")
	}

	var values map[int64]string
	if err := c.Bind(&values); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON payload")
	}
	h.sync.SetLookup(kind, values)
	return c.NoContent(http.StatusNoContent)
}

func taskID(c echo.Context) (int64, error) {
	raw := c.Param("id")
	if raw == "" {
		return 0, echo.NewHTTPError(apperrors.StatusCode(apperrors.ErrTaskIDRequired), apperrors.ErrTaskIDRequired.Error())
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "task id must be an integer")
	}
	return id, nil
}
