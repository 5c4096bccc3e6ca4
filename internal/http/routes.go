package http

import (
	"time"

	"github.com/labstack/echo/v4"

	middleware "taskgrid.com/taskgrid/internal/http/middlewares"
)

func Register(e *echo.Echo, h *Handler, rateLimitPerMinute int) {
	e.Use(middleware.RateLimiter(rateLimitPerMinute, time.Minute))

	e.POST("/tasks/query", h.QueryTasks)
	e.POST("/tasks/mode", h.DecideMode)
	e.GET("/tasks/materialized", h.MaterializedRows)
	e.POST("/tasks/refresh", h.Refresh)

	e.PUT("/filters/:scope", h.SaveFilter)
	e.GET("/filters/:scope", h.LoadFilter)
	e.PUT("/columns/:scope", h.SaveColumns)
	e.GET("/columns/:scope", h.LoadColumns)

	e.POST("/sync/records", h.ApplyRecords)
	e.DELETE("/sync/records/:id", h.ApplyDelete)
	e.POST("/sync/records/:id/undo", h.UndoDelete)
	e.POST("/sync/approvals", h.ApplyApproval)
	e.PUT("/lookups/:kind", h.SetLookup)
}
