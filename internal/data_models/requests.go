package dto

import (
	model "taskgrid.com/taskgrid/internal/models"
)

type QueryRequest struct {
	Context  model.QueryContext `json:"context"`
	StartRow int                `json:"startRow"`
	EndRow   int                `json:"endRow"`
}

type ContextRequest struct {
	Context model.QueryContext `json:"context"`
}

type ApprovalRequest struct {
	TaskID         int64  `json:"task_id"`
	ApprovalStatus string `json:"approval_status"`
}
