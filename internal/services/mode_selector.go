package services

import (
	"context"
	"sync"

	"taskgrid.com/taskgrid/internal/cache"
	model "taskgrid.com/taskgrid/internal/models"
)

// Mode is the rendering strategy for the current context.
type Mode int

const (
	// ModeUnknown means no decision has been made yet.
	ModeUnknown Mode = iota
	// ModeDeciding means the context changed and a count query is pending.
	ModeDeciding
	// ModeMaterialized serves the full filtered result set from memory and
	// lets the grid filter/sort/group it client-side.
	ModeMaterialized
	// ModeWindowed serves fixed-size row blocks on demand.
	ModeWindowed
)

// DefaultMaterializeThreshold is the filtered-row-count ceiling below which
// the whole result set is loaded at once.
const DefaultMaterializeThreshold = 300

// ModeDecision is the outcome handed to the rendering surface.
type ModeDecision struct {
	UseMaterialized bool `json:"useMaterialized"`
	TotalFiltered   int  `json:"totalFiltered"`
}

// ModeSelector decides per context between materialized and windowed mode.
// Grouping always materializes; otherwise a count-only query compares the
// filtered row count against the threshold.
type ModeSelector struct {
	mu        sync.Mutex
	query     *QueryService
	rowCache  *cache.RowCache
	threshold int

	mode       Mode
	currentKey string
	current    model.QueryContext
	rows       []model.Task
	total      int
}

func NewModeSelector(query *QueryService, rowCache *cache.RowCache, threshold int) *ModeSelector {
	if threshold <= 0 {
		threshold = DefaultMaterializeThreshold
	}
	return &ModeSelector{
		query:     query,
		rowCache:  rowCache,
		threshold: threshold,
		mode:      ModeUnknown,
	}
}

// DecideMode re-enters Deciding whenever any component of the context
// changed, then settles on materialized or windowed.
func (m *ModeSelector) DecideMode(ctx context.Context, qc model.QueryContext) (*ModeDecision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := qc.Key()
	if key != m.currentKey {
		m.mode = ModeDeciding
		m.currentKey = key
		m.current = qc
		m.rows = nil
		m.total = 0
	}

	return m.decideLocked(ctx)
}

func (m *ModeSelector) decideLocked(ctx context.Context) (*ModeDecision, error) {
	count, err := m.query.QueryTasks(ctx, m.current, 0, 0)
	if err != nil {
		return nil, err
	}
	m.total = count.RowCount

	if m.current.Grouped() || count.RowCount <= m.threshold {
		full, err := m.query.QueryTasks(ctx, m.current, 0, count.RowCount)
		if err != nil {
			return nil, err
		}
		m.mode = ModeMaterialized
		m.rows = full.Rows
		m.total = full.RowCount
		return &ModeDecision{UseMaterialized: true, TotalFiltered: full.RowCount}, nil
	}

	if m.mode == ModeMaterialized {
		// Leaving materialized mode invalidates every block computed for the
		// old rendering strategy.
		m.rowCache.Clear()
	}
	m.mode = ModeWindowed
	m.rows = nil
	return &ModeDecision{UseMaterialized: false, TotalFiltered: count.RowCount}, nil
}

// Reload re-runs the decision for the current context. Called by the refresh
// orchestrator after the underlying store changed.
func (m *ModeSelector) Reload(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.mode == ModeUnknown || m.currentKey == "" {
		return nil
	}
	m.mode = ModeDeciding
	_, err := m.decideLocked(ctx)
	return err
}

// Mode returns the current state of the selector.
func (m *ModeSelector) Mode() Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

// MaterializedRows returns the fully loaded result set, or nil outside
// materialized mode.
func (m *ModeSelector) MaterializedRows() []model.Task {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.mode != ModeMaterialized {
		return nil
	}
	rows := make([]model.Task, len(m.rows))
	copy(rows, m.rows)
	return rows
}

// Context returns the context of the last decision.
func (m *ModeSelector) Context() (model.QueryContext, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current, m.currentKey != ""
}
