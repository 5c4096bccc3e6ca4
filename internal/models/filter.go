package model

import (
	"encoding/json"
	"strconv"
	"time"

	"taskgrid.com/taskgrid/internal/constants"
)

// FilterKind discriminates the filter-spec union.
type FilterKind string

const (
	FilterKindSet  FilterKind = "set"
	FilterKindText FilterKind = "text"
	FilterKindDate FilterKind = "date"
)

// FilterSpec is the query-side representation of one field filter.
// For set filters on numeric fields IDs carries the typed values; Values is
// the string fallback kept when any grid value fails numeric coercion.
type FilterSpec struct {
	Kind   FilterKind `json:"kind"`
	IDs    []int64    `json:"ids,omitempty"`
	Values []string   `json:"values,omitempty"`
	Text   string     `json:"text,omitempty"`
	From   *time.Time `json:"from,omitempty"`
	To     *time.Time `json:"to,omitempty"`
}

// FilterModel maps field name to its filter spec (query representation).
type FilterModel map[string]FilterSpec

// GridFilter is the grid-side representation of one field filter: set-filter
// values are always strings regardless of the underlying field type.
type GridFilter struct {
	FilterType string   `json:"filterType"`
	Values     []string `json:"values,omitempty"`
	Filter     string   `json:"filter,omitempty"`
	DateFrom   string   `json:"dateFrom,omitempty"`
	DateTo     string   `json:"dateTo,omitempty"`
}

// GridModel maps field name to its grid filter.
type GridModel map[string]GridFilter

// SortSpec is one entry of the grid's sort model.
type SortSpec struct {
	Field      string `json:"field"`
	Descending bool   `json:"descending"`
}

// QueryContext identifies one logical grid view. Two contexts that differ in
// any field are never conflated.
type QueryContext struct {
	Workspace  string      `json:"workspace"`
	Search     string      `json:"search"`
	Filters    FilterModel `json:"filters,omitempty"`
	Sort       []SortSpec  `json:"sort,omitempty"`
	GroupField string      `json:"group_field"`
}

// WorkspaceID returns the numeric workspace id when the scope is a specific
// workspace rather than "all" or "shared".
func (c QueryContext) WorkspaceID() (int64, bool) {
	if c.Workspace == constants.ScopeAll || c.Workspace == constants.ScopeShared {
		return 0, false
	}
	id, err := strconv.ParseInt(c.Workspace, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// Grouped reports whether the grid is grouping rows.
func (c QueryContext) Grouped() bool {
	return c.GroupField != "" && c.GroupField != constants.GroupNone
}

// Key is the canonical cache-key form of the context. Map keys marshal in
// sorted order, so equal contexts always produce equal keys.
func (c QueryContext) Key() string {
	data, err := json.Marshal(c)
	if err != nil {
		return c.Workspace + "|" + c.Search + "|" + c.GroupField
	}
	return string(data)
}
