package model

import (
	"time"
)

// Task is the unit stored and queried. Fields not listed in Payload-relevant
// columns are carried through untouched. TagIDs is derived from the tag join
// edges at scan time and never written to the snapshot table.
type Task struct {
	ID             int64          `gorm:"primaryKey" json:"id"`
	WorkspaceID    int64          `gorm:"index" json:"workspace_id"`
	CategoryID     int64          `json:"category_id"`
	StatusID       int64          `json:"status_id"`
	PriorityID     int64          `json:"priority_id"`
	SpotID         int64          `json:"spot_id"`
	UserIDs        []int64        `gorm:"serializer:json" json:"user_ids"`
	ApprovalID     int64          `json:"approval_id"`
	ApprovalStatus string         `json:"approval_status"`
	Name           string         `json:"name"`
	Description    string         `json:"description"`
	Shared         bool           `json:"shared"`
	DueDate        *time.Time     `json:"due_date,omitempty"`
	CreatedAt      *time.Time     `json:"created_at,omitempty"`
	UpdatedAt      *time.Time     `json:"updated_at,omitempty"`
	Payload        map[string]any `gorm:"serializer:json" json:"payload,omitempty"`
	TagIDs         []int64        `gorm:"-" json:"tag_ids,omitempty"`
}

// TagEdge is a task-to-tag association. Edges are additive and removable
// independent of the owning task record.
type TagEdge struct {
	TaskID int64 `gorm:"primaryKey" json:"task_id"`
	TagID  int64 `gorm:"primaryKey" json:"tag_id"`
}

// Clone returns a deep copy so a stored record never aliases caller slices.
func (t Task) Clone() Task {
	out := t
	if t.UserIDs != nil {
		out.UserIDs = append([]int64(nil), t.UserIDs...)
	}
	if t.TagIDs != nil {
		// make keeps an empty slice non-nil; empty and absent tag sets mean
		// different things to the store.
		out.TagIDs = make([]int64, len(t.TagIDs))
		copy(out.TagIDs, t.TagIDs)
	}
	if t.Payload != nil {
		payload := make(map[string]any, len(t.Payload))
		for k, v := range t.Payload {
			payload[k] = v
		}
		out.Payload = payload
	}
	return out
}
