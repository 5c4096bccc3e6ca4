package validators

import (
	"net/http"

	"github.com/labstack/echo/v4"

	dto "taskgrid.com/taskgrid/internal/data_models"
)

func ValidateQueryRequest(r *dto.QueryRequest) error {
	if r.Context.Workspace == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "context workspace is required")
	}
	if r.StartRow < 0 || r.EndRow < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "row window bounds must not be negative")
	}
	return nil
}

func ValidateContextRequest(r *dto.ContextRequest) error {
	if r.Context.Workspace == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "context workspace is required")
	}
	return nil
}

func ValidateApprovalRequest(r *dto.ApprovalRequest) error {
	if r.TaskID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "task id is required")
	}
	if r.ApprovalStatus == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "approval status is required")
	}
	return nil
}
