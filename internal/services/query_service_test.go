package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"taskgrid.com/taskgrid/internal/cache"
	"taskgrid.com/taskgrid/internal/constants"
	apperrors "taskgrid.com/taskgrid/internal/errors"
	model "taskgrid.com/taskgrid/internal/models"
	"taskgrid.com/taskgrid/internal/store"
)

func newQueryEnv() (*store.RecordStore, *cache.RowCache, *QueryService) {
	recordStore := store.NewRecordStore()
	rowCache := cache.NewRowCache(64)
	return recordStore, rowCache, NewQueryService(recordStore, rowCache)
}

func ts(value string) *time.Time {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}
	return &t
}

func workspaceContext(id string) model.QueryContext {
	return model.QueryContext{Workspace: id, GroupField: constants.GroupNone}
}

func TestQueryTasks_StoreNotReady(t *testing.T) {
	_, _, svc := newQueryEnv()

	_, err := svc.QueryTasks(context.Background(), workspaceContext("1"), 0, 10)
	if !errors.Is(err, apperrors.ErrStoreNotReady) {
		t.Errorf("expected not-ready error, got %v", err)
	}
}

func TestQueryTasks_NegativeWindow(t *testing.T) {
	recordStore, _, svc := newQueryEnv()
	recordStore.MarkReady()

	_, err := svc.QueryTasks(context.Background(), workspaceContext("1"), -1, 10)
	if !errors.Is(err, apperrors.ErrInvalidWindow) {
		t.Errorf("expected invalid-window error, got %v", err)
	}
}

func TestQueryTasks_CountIndependentOfWindow(t *testing.T) {
	recordStore, _, svc := newQueryEnv()
	for i := int64(1); i <= 10; i++ {
		recordStore.Put(model.Task{ID: i, WorkspaceID: 1, Name: "task"})
	}
	recordStore.MarkReady()

	qc := workspaceContext("1")
	windows := [][2]int{{0, 0}, {0, 5}, {0, 100}, {3, 7}, {5, 5}, {8, 2}}
	for _, w := range windows {
		result, err := svc.QueryTasks(context.Background(), qc, w[0], w[1])
		if err != nil {
			t.Fatalf("window %v: %v", w, err)
		}
		if result.RowCount != 10 {
			t.Errorf("window %v: expected rowCount 10, got %d", w, result.RowCount)
		}
	}
}

func TestQueryTasks_CountOnlyWindowReturnsNoRows(t *testing.T) {
	recordStore, _, svc := newQueryEnv()
	recordStore.Put(model.Task{ID: 1, WorkspaceID: 1})
	recordStore.MarkReady()

	result, err := svc.QueryTasks(context.Background(), workspaceContext("1"), 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Rows) != 0 {
		t.Errorf("count-only query must return no rows, got %d", len(result.Rows))
	}
	if result.RowCount != 1 {
		t.Errorf("expected rowCount 1, got %d", result.RowCount)
	}
}

func TestQueryTasks_WorkspaceScoping(t *testing.T) {
	recordStore, _, svc := newQueryEnv()
	recordStore.PutMany([]model.Task{
		{ID: 1, WorkspaceID: 1},
		{ID: 2, WorkspaceID: 2},
		{ID: 3, WorkspaceID: 2, Shared: true},
	})
	recordStore.MarkReady()
	ctx := context.Background()

	byWorkspace, _ := svc.QueryTasks(ctx, workspaceContext("2"), 0, 10)
	if byWorkspace.RowCount != 2 {
		t.Errorf("workspace 2: expected 2 rows, got %d", byWorkspace.RowCount)
	}

	all, _ := svc.QueryTasks(ctx, workspaceContext(constants.ScopeAll), 0, 10)
	if all.RowCount != 3 {
		t.Errorf("all: expected 3 rows, got %d", all.RowCount)
	}

	shared, _ := svc.QueryTasks(ctx, workspaceContext(constants.ScopeShared), 0, 10)
	if shared.RowCount != 1 || shared.Rows[0].ID != 3 {
		t.Errorf("shared: expected only the shared record, got %+v", shared.Rows)
	}
}

func TestQueryTasks_CustomPredicates(t *testing.T) {
	recordStore, _, svc := newQueryEnv()
	recordStore.PutMany([]model.Task{
		{ID: 1, WorkspaceID: 1},
		{ID: 2, WorkspaceID: 2},
	})
	recordStore.MarkReady()

	svc.SetVisibilityPredicate(func(task model.Task) bool { return task.WorkspaceID == 2 })

	all, _ := svc.QueryTasks(context.Background(), workspaceContext(constants.ScopeAll), 0, 10)
	if all.RowCount != 1 || all.Rows[0].ID != 2 {
		t.Errorf("expected visibility predicate applied, got %+v", all.Rows)
	}
}

func TestQueryTasks_FreeTextSearch(t *testing.T) {
	recordStore, _, svc := newQueryEnv()
	recordStore.PutMany([]model.Task{
		{ID: 101, WorkspaceID: 1, Name: "Deploy Backend", Description: "ship it"},
		{ID: 102, WorkspaceID: 1, Name: "Write docs", Description: "deployment guide"},
		{ID: 103, WorkspaceID: 1, Name: "Unrelated"},
	})
	recordStore.MarkReady()
	ctx := context.Background()

	qc := workspaceContext("1")
	qc.Search = "DEPLOY"
	result, _ := svc.QueryTasks(ctx, qc, 0, 10)
	if result.RowCount != 2 {
		t.Errorf("case-insensitive search: expected 2 matches, got %d", result.RowCount)
	}

	qc.Search = "103"
	result, _ = svc.QueryTasks(ctx, qc, 0, 10)
	if result.RowCount != 1 || result.Rows[0].ID != 103 {
		t.Errorf("numeric search must match ids, got %+v", result.Rows)
	}
}

func TestQueryTasks_SetFilterIntersection(t *testing.T) {
	recordStore, _, svc := newQueryEnv()
	recordStore.PutMany([]model.Task{
		{ID: 1, WorkspaceID: 1, UserIDs: []int64{10, 11}},
		{ID: 2, WorkspaceID: 1, UserIDs: []int64{12}},
		{ID: 3, WorkspaceID: 1},
	})
	recordStore.MarkReady()

	// Filter {10, 99}: record 1 overlaps on 10 even though 99 matches nothing
	// and 11 is not in the filter. Overlap, not subset.
	qc := workspaceContext("1")
	qc.Filters = model.FilterModel{
		constants.FieldUsers: {Kind: model.FilterKindSet, IDs: []int64{10, 99}},
	}

	result, err := svc.QueryTasks(context.Background(), qc, 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if result.RowCount != 1 || result.Rows[0].ID != 1 {
		t.Errorf("expected only record 1 via intersection, got %+v", result.Rows)
	}
}

func TestQueryTasks_TagFilterUsesJoinEdges(t *testing.T) {
	recordStore, _, svc := newQueryEnv()
	recordStore.PutMany([]model.Task{
		{ID: 1, WorkspaceID: 1},
		{ID: 2, WorkspaceID: 1},
	})
	recordStore.AddTagEdge(1, 5)
	recordStore.MarkReady()

	qc := workspaceContext("1")
	qc.Filters = model.FilterModel{
		constants.FieldTags: {Kind: model.FilterKindSet, IDs: []int64{5}},
	}

	result, _ := svc.QueryTasks(context.Background(), qc, 0, 10)
	if result.RowCount != 1 || result.Rows[0].ID != 1 {
		t.Errorf("expected tagged record only, got %+v", result.Rows)
	}
}

func TestQueryTasks_ZeroMatchesIsNotAnError(t *testing.T) {
	recordStore, _, svc := newQueryEnv()
	recordStore.Put(model.Task{ID: 1, WorkspaceID: 1, StatusID: 2})
	recordStore.MarkReady()

	qc := workspaceContext("1")
	qc.Filters = model.FilterModel{
		constants.FieldStatus: {Kind: model.FilterKindSet, IDs: []int64{999}},
	}

	result, err := svc.QueryTasks(context.Background(), qc, 0, 10)
	if err != nil {
		t.Fatalf("zero matches must not error: %v", err)
	}
	if result.RowCount != 0 || len(result.Rows) != 0 {
		t.Errorf("expected empty result, got %+v", result)
	}
}

func TestQueryTasks_StringFallbackValues(t *testing.T) {
	recordStore, _, svc := newQueryEnv()
	recordStore.Put(model.Task{ID: 1, WorkspaceID: 1, StatusID: 7})
	recordStore.MarkReady()

	qc := workspaceContext("1")
	qc.Filters = model.FilterModel{
		constants.FieldStatus: {Kind: model.FilterKindSet, Values: []string{"7", "legacy"}},
	}

	result, _ := svc.QueryTasks(context.Background(), qc, 0, 10)
	if result.RowCount != 1 {
		t.Errorf("string fallback must match stringified ids, got %d rows", result.RowCount)
	}
}

func TestQueryTasks_ApprovalStatusFilter(t *testing.T) {
	recordStore, _, svc := newQueryEnv()
	recordStore.PutMany([]model.Task{
		{ID: 1, WorkspaceID: 1, ApprovalStatus: "approved"},
		{ID: 2, WorkspaceID: 1, ApprovalStatus: "pending"},
	})
	recordStore.MarkReady()

	qc := workspaceContext("1")
	qc.Filters = model.FilterModel{
		constants.FieldApprovalStatus: {Kind: model.FilterKindSet, Values: []string{"approved"}},
	}

	result, _ := svc.QueryTasks(context.Background(), qc, 0, 10)
	if result.RowCount != 1 || result.Rows[0].ID != 1 {
		t.Errorf("expected approved record only, got %+v", result.Rows)
	}
}

func TestQueryTasks_DueDateFilter(t *testing.T) {
	recordStore, _, svc := newQueryEnv()
	recordStore.PutMany([]model.Task{
		{ID: 1, WorkspaceID: 1, DueDate: ts("2024-03-10")},
		{ID: 2, WorkspaceID: 1, DueDate: ts("2024-05-10")},
		{ID: 3, WorkspaceID: 1},
	})
	recordStore.MarkReady()

	qc := workspaceContext("1")
	qc.Filters = model.FilterModel{
		constants.FieldDueDate: {Kind: model.FilterKindDate, From: ts("2024-03-01"), To: ts("2024-04-01")},
	}

	result, _ := svc.QueryTasks(context.Background(), qc, 0, 10)
	if result.RowCount != 1 || result.Rows[0].ID != 1 {
		t.Errorf("expected only the in-range record, got %+v", result.Rows)
	}
}

func TestQueryTasks_DefaultSortRecencyFirst(t *testing.T) {
	recordStore, _, svc := newQueryEnv()
	recordStore.PutMany([]model.Task{
		// Missing updated_at sorts after a real one even when its created_at
		// is newer.
		{ID: 1, WorkspaceID: 1, CreatedAt: ts("2024-01-01")},
		{ID: 2, WorkspaceID: 1, UpdatedAt: ts("2023-01-01")},
		{ID: 3, WorkspaceID: 1, UpdatedAt: ts("2023-06-01")},
	})
	recordStore.MarkReady()

	result, err := svc.QueryTasks(context.Background(), workspaceContext("1"), 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	got := []int64{result.Rows[0].ID, result.Rows[1].ID, result.Rows[2].ID}
	want := []int64{3, 2, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, got)
		}
	}
}

func TestQueryTasks_ExplicitSort(t *testing.T) {
	recordStore, _, svc := newQueryEnv()
	recordStore.PutMany([]model.Task{
		{ID: 1, WorkspaceID: 1, Name: "banana"},
		{ID: 2, WorkspaceID: 1, Name: "Apple"},
		{ID: 3, WorkspaceID: 1, Name: "cherry"},
	})
	recordStore.MarkReady()

	qc := workspaceContext("1")
	qc.Sort = []model.SortSpec{{Field: constants.FieldName}}

	result, _ := svc.QueryTasks(context.Background(), qc, 0, 10)
	got := []int64{result.Rows[0].ID, result.Rows[1].ID, result.Rows[2].ID}
	want := []int64{2, 1, 3}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected case-insensitive name order %v, got %v", want, got)
		}
	}
}

func TestQueryTasks_WindowSlicing(t *testing.T) {
	recordStore, _, svc := newQueryEnv()
	for i := int64(1); i <= 5; i++ {
		recordStore.Put(model.Task{ID: i, WorkspaceID: 1})
	}
	recordStore.MarkReady()
	ctx := context.Background()

	qc := workspaceContext("1")
	qc.Sort = []model.SortSpec{{Field: "id"}}

	middle, _ := svc.QueryTasks(ctx, qc, 1, 3)
	if len(middle.Rows) != 2 || middle.Rows[0].ID != 2 || middle.Rows[1].ID != 3 {
		t.Errorf("expected rows 2 and 3, got %+v", middle.Rows)
	}

	past, _ := svc.QueryTasks(ctx, qc, 10, 20)
	if len(past.Rows) != 0 || past.RowCount != 5 {
		t.Errorf("window past the end: expected empty rows with count 5, got %+v", past)
	}

	clipped, _ := svc.QueryTasks(ctx, qc, 3, 20)
	if len(clipped.Rows) != 2 {
		t.Errorf("expected clipped tail of 2 rows, got %d", len(clipped.Rows))
	}
}

func TestQueryTasks_CacheMemoizesUntilCleared(t *testing.T) {
	recordStore, rowCache, svc := newQueryEnv()
	recordStore.Put(model.Task{ID: 1, WorkspaceID: 1})
	recordStore.MarkReady()
	ctx := context.Background()
	qc := workspaceContext("1")

	first, _ := svc.QueryTasks(ctx, qc, 0, 10)
	if first.RowCount != 1 {
		t.Fatalf("expected 1 row, got %d", first.RowCount)
	}

	recordStore.Put(model.Task{ID: 2, WorkspaceID: 1})

	memoized, _ := svc.QueryTasks(ctx, qc, 0, 10)
	if memoized.RowCount != 1 {
		t.Errorf("identical query within a cycle must be served from cache, got %d", memoized.RowCount)
	}

	rowCache.Clear()
	fresh, _ := svc.QueryTasks(ctx, qc, 0, 10)
	if fresh.RowCount != 2 {
		t.Errorf("after clear the next query must rescan, got %d", fresh.RowCount)
	}
}
