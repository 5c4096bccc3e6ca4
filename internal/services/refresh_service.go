package services

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"taskgrid.com/taskgrid/internal/cache"
	"taskgrid.com/taskgrid/internal/events"
	"taskgrid.com/taskgrid/internal/filters"
	model "taskgrid.com/taskgrid/internal/models"
)

// DefaultApprovalGraceDelay is how long to wait before the secondary refresh
// that picks up server-side cascades of an approval decision. Empirically
// chosen; tunable, not semantically meaningful.
const DefaultApprovalGraceDelay = 8 * time.Second

// RefreshService coordinates when the cache is re-queried and the rendering
// surface re-pulled: context changes, local filter changes, real-time
// mutation events, and delayed approval side effects.
type RefreshService struct {
	modes    *ModeSelector
	rowCache *cache.RowCache
	filters  *filters.FilterService
	bus      *events.Bus

	graceDelay time.Duration
	inFlight   atomic.Bool
	suppressed atomic.Bool

	mu            sync.Mutex
	onInvalidated func(model.QueryContext)
	timers        map[*time.Timer]struct{}
	unsubscribe   []func()
}

func NewRefreshService(
	modes *ModeSelector,
	rowCache *cache.RowCache,
	filterService *filters.FilterService,
	bus *events.Bus,
	graceDelay time.Duration,
) *RefreshService {
	if graceDelay <= 0 {
		graceDelay = DefaultApprovalGraceDelay
	}
	r := &RefreshService{
		modes:      modes,
		rowCache:   rowCache,
		filters:    filterService,
		bus:        bus,
		graceDelay: graceDelay,
		timers:     make(map[*time.Timer]struct{}),
	}

	r.unsubscribe = append(r.unsubscribe,
		bus.Subscribe(events.KindRecordMutated, r.onRecordEvent),
		bus.Subscribe(events.KindRecordDeleted, r.onRecordEvent),
		bus.Subscribe(events.KindTaskCreated, r.onRecordEvent),
		bus.Subscribe(events.KindApprovalDecided, r.onApprovalDecided),
	)
	return r
}

// SetInvalidatedFunc installs the outbound signal telling the rendering
// surface to re-pull data. This is the only signal emitted upward.
func (r *RefreshService) SetInvalidatedFunc(fn func(model.QueryContext)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onInvalidated = fn
}

// Refresh re-runs the query for the current mode: windowed mode clears the
// row cache and lets the next block request recompute; materialized mode
// reloads and replaces the full row array. Calls are coalesced: a second call
// while one is in flight is a no-op, relying on the in-flight call to pick up
// the latest state because every query is a fresh store scan.
func (r *RefreshService) Refresh(ctx context.Context, qc model.QueryContext) error {
	if !r.inFlight.CompareAndSwap(false, true) {
		return nil
	}
	defer r.inFlight.Store(false)

	r.rowCache.Clear()
	if err := r.modes.Reload(ctx); err != nil {
		return err
	}
	// The reload recomputed the selector's context, which may differ from the
	// caller's. The upward signal must name the context that was recomputed.
	if current, ok := r.modes.Context(); ok {
		qc = current
	}
	r.notifyInvalidated(qc)
	return nil
}

// OnContextChanged handles workspace/search/sort/grouping changes from the
// UI: immediate refresh after the selector re-decides.
func (r *RefreshService) OnContextChanged(ctx context.Context, qc model.QueryContext) (*ModeDecision, error) {
	r.rowCache.Clear()
	decision, err := r.modes.DecideMode(ctx, qc)
	if err != nil {
		return nil, err
	}
	r.notifyInvalidated(qc)
	return decision, nil
}

// OnFilterChanged persists the new grid filter for its scope and refreshes.
// While the orchestrator itself is programmatically syncing the grid's model,
// the suppression flag makes this a no-op so the grid's echo of the update
// cannot re-trigger it.
func (r *RefreshService) OnFilterChanged(ctx context.Context, scopeKey string, qc model.QueryContext, grid model.GridModel) error {
	if r.suppressed.Load() {
		return nil
	}
	if err := r.filters.SaveFilter(ctx, scopeKey, grid); err != nil {
		return err
	}
	return r.Refresh(ctx, qc)
}

// Suppressed runs fn with filter-change handling suppressed.
func (r *RefreshService) Suppressed(fn func()) {
	r.suppressed.Store(true)
	defer r.suppressed.Store(false)
	fn()
}

func (r *RefreshService) onRecordEvent(event events.Event) {
	// A mutation can invalidate a memoized page for any context, not only the
	// selector's current one. Drop every cached page before the context gate.
	r.rowCache.Clear()
	if !r.inCurrentContext(event) {
		return
	}
	r.backgroundRefresh("record event")
}

// onApprovalDecided performs the safe refresh immediately (the record was
// already optimistically patched) and schedules a second full refresh after
// the grace delay to pick up cascading server-side mutations once the backend
// has committed them. Both must stay; collapsing them into one loses either
// the immediate feedback or the cascade.
func (r *RefreshService) onApprovalDecided(event events.Event) {
	r.rowCache.Clear()
	if !r.inCurrentContext(event) {
		return
	}
	r.backgroundRefresh("approval decision")

	r.mu.Lock()
	var timer *time.Timer
	timer = time.AfterFunc(r.graceDelay, func() {
		r.mu.Lock()
		delete(r.timers, timer)
		r.mu.Unlock()
		r.backgroundRefresh("approval cascade")
	})
	r.timers[timer] = struct{}{}
	r.mu.Unlock()
}

// backgroundRefresh is best-effort: the immediate path already produced a
// safe result, so errors here are warnings, never propagated to a caller.
func (r *RefreshService) backgroundRefresh(reason string) {
	qc, ok := r.modes.Context()
	if !ok {
		return
	}
	if err := r.Refresh(context.Background(), qc); err != nil {
		log.Printf("refresh: background refresh after %s failed: %v", reason, err)
	}
}

func (r *RefreshService) inCurrentContext(event events.Event) bool {
	qc, ok := r.modes.Context()
	if !ok {
		return false
	}
	id, specific := qc.WorkspaceID()
	if !specific {
		return true
	}
	if event.WorkspaceID == 0 {
		// Deletions may arrive without workspace information.
		return true
	}
	return event.WorkspaceID == id
}

func (r *RefreshService) notifyInvalidated(qc model.QueryContext) {
	r.mu.Lock()
	fn := r.onInvalidated
	r.mu.Unlock()
	if fn != nil {
		fn(qc)
	}
}

// Close unsubscribes from the bus and stops pending grace-delay timers.
func (r *RefreshService) Close() {
	for _, unsub := range r.unsubscribe {
		unsub()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for timer := range r.timers {
		timer.Stop()
	}
	r.timers = make(map[*time.Timer]struct{})
}
