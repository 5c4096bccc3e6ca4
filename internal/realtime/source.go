package realtime

import (
	"context"

	model "taskgrid.com/taskgrid/internal/models"
)

// MutationOp tags a wire event from the real-time stream.
type MutationOp string

const (
	OpUpsert   MutationOp = "upsert"
	OpDelete   MutationOp = "delete"
	OpApproval MutationOp = "approval"
)

// MutationEvent is one decoded record mutation delivered by the stream.
type MutationEvent struct {
	Op             MutationOp   `json:"op"`
	Tasks          []model.Task `json:"tasks,omitempty"`
	TaskID         int64        `json:"task_id,omitempty"`
	ApprovalStatus string       `json:"approval_status,omitempty"`
}

// MutationSource delivers mutation events until the context is canceled.
type MutationSource interface {
	Listen(ctx context.Context, handle func(MutationEvent)) error
}

// Applier is the inbound sync surface the dispatcher feeds.
type Applier interface {
	ApplyRecords(ctx context.Context, tasks []model.Task) error
	ApplyDelete(ctx context.Context, id int64) error
	ApplyApproval(ctx context.Context, taskID int64, approvalStatus string) error
}
