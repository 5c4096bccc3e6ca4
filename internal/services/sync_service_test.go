package services

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"taskgrid.com/taskgrid/internal/cache"
	apperrors "taskgrid.com/taskgrid/internal/errors"
	"taskgrid.com/taskgrid/internal/events"
	"taskgrid.com/taskgrid/internal/filters"
	model "taskgrid.com/taskgrid/internal/models"
	repository "taskgrid.com/taskgrid/internal/repositories"
	"taskgrid.com/taskgrid/internal/store"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	err = db.AutoMigrate(&model.Task{}, &model.TagEdge{}, &repository.GridState{})
	if err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)

	return db
}

type testEngine struct {
	store    *store.RecordStore
	rowCache *cache.RowCache
	bus      *events.Bus
	query    *QueryService
	modes    *ModeSelector
	filters  *filters.FilterService
	refresh  *RefreshService
	sync     *SyncService
}

func newTestEngine(t *testing.T, graceDelay, undoWindow time.Duration) *testEngine {
	db := setupTestDB(t)
	recordStore := store.NewRecordStore()
	rowCache := cache.NewRowCache(64)
	bus := events.NewBus()

	query := NewQueryService(recordStore, rowCache)
	modes := NewModeSelector(query, rowCache, 300)
	filterService := filters.NewFilterService(repository.NewStateRepository(db))
	refresh := NewRefreshService(modes, rowCache, filterService, bus, graceDelay)
	t.Cleanup(refresh.Close)

	syncService := NewSyncService(recordStore, repository.NewTaskRepository(db), bus, undoWindow)
	return &testEngine{
		store:    recordStore,
		rowCache: rowCache,
		bus:      bus,
		query:    query,
		modes:    modes,
		filters:  filterService,
		refresh:  refresh,
		sync:     syncService,
	}
}

func TestSyncService_DeleteThenQueryThenUndo(t *testing.T) {
	engine := newTestEngine(t, time.Hour, time.Minute)
	ctx := context.Background()

	original := model.Task{
		ID:          2001,
		WorkspaceID: 20,
		Name:        "to be deleted",
		StatusID:    3,
		UserIDs:     []int64{9},
		TagIDs:      []int64{4},
		CreatedAt:   ts("2024-01-05"),
	}
	if err := engine.sync.ApplyRecords(ctx, []model.Task{original}); err != nil {
		t.Fatal(err)
	}
	engine.store.MarkReady()
	qc := workspaceContext("20")

	if err := engine.sync.ApplyDelete(ctx, 2001); err != nil {
		t.Fatal(err)
	}
	result, err := engine.query.QueryTasks(ctx, qc, 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	for _, row := range result.Rows {
		if row.ID == 2001 {
			t.Fatal("deleted record must not appear in query results")
		}
	}

	if err := engine.sync.Undo(ctx, 2001); err != nil {
		t.Fatalf("undo within window failed: %v", err)
	}
	restored, ok := engine.store.Get(2001)
	if !ok {
		t.Fatal("expected record restored after undo")
	}
	if !reflect.DeepEqual(restored, original) {
		t.Errorf("restored record differs:\nwant %+v\ngot  %+v", original, restored)
	}

	result, _ = engine.query.QueryTasks(ctx, qc, 0, 10)
	if result.RowCount != 1 {
		t.Errorf("expected restored record in query results, got %d rows", result.RowCount)
	}
}

func TestSyncService_UndoAfterWindowExpires(t *testing.T) {
	engine := newTestEngine(t, time.Hour, 10*time.Millisecond)
	ctx := context.Background()

	engine.store.Put(model.Task{ID: 2101, WorkspaceID: 21})
	engine.store.MarkReady()

	if err := engine.sync.ApplyDelete(ctx, 2101); err != nil {
		t.Fatal(err)
	}
	time.Sleep(30 * time.Millisecond)

	if err := engine.sync.Undo(ctx, 2101); !errors.Is(err, apperrors.ErrUndoExpired) {
		t.Errorf("expected undo-expired error, got %v", err)
	}
}

func TestSyncService_DeleteUnknownTask(t *testing.T) {
	engine := newTestEngine(t, time.Hour, time.Minute)

	err := engine.sync.ApplyDelete(context.Background(), 999999)
	if !errors.Is(err, apperrors.ErrTaskNotFound) {
		t.Errorf("expected not-found error, got %v", err)
	}
}

func TestSyncService_ApprovalVisibleInNextQuery(t *testing.T) {
	engine := newTestEngine(t, time.Hour, time.Minute)
	ctx := context.Background()

	if err := engine.sync.ApplyRecords(ctx, []model.Task{
		{ID: 3001, WorkspaceID: 30, ApprovalStatus: "pending"},
	}); err != nil {
		t.Fatal(err)
	}
	engine.store.MarkReady()
	qc := workspaceContext("30")

	if _, err := engine.modes.DecideMode(ctx, qc); err != nil {
		t.Fatal(err)
	}
	// Prime the row cache so the test proves the approval path invalidates it.
	if _, err := engine.query.QueryTasks(ctx, qc, 0, 10); err != nil {
		t.Fatal(err)
	}

	if err := engine.sync.ApplyApproval(ctx, 3001, "approved"); err != nil {
		t.Fatal(err)
	}

	// The very next query must reflect the optimistic patch, long before the
	// grace-delay secondary refresh fires.
	result, err := engine.query.QueryTasks(ctx, qc, 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Rows) != 1 || result.Rows[0].ApprovalStatus != "approved" {
		t.Errorf("expected patched approval status in next query, got %+v", result.Rows)
	}
}

func TestSyncService_ApplyRecordsPublishesCreateThenMutate(t *testing.T) {
	engine := newTestEngine(t, time.Hour, time.Minute)
	ctx := context.Background()

	var kinds []events.Kind
	defer engine.bus.Subscribe(events.KindTaskCreated, func(e events.Event) {
		kinds = append(kinds, e.Kind)
	})()
	defer engine.bus.Subscribe(events.KindRecordMutated, func(e events.Event) {
		kinds = append(kinds, e.Kind)
	})()

	task := model.Task{ID: 5001, WorkspaceID: 50, Name: "v1"}
	if err := engine.sync.ApplyRecords(ctx, []model.Task{task}); err != nil {
		t.Fatal(err)
	}
	task.Name = "v2"
	if err := engine.sync.ApplyRecords(ctx, []model.Task{task}); err != nil {
		t.Fatal(err)
	}

	want := []events.Kind{events.KindTaskCreated, events.KindRecordMutated}
	if !reflect.DeepEqual(kinds, want) {
		t.Errorf("expected %v, got %v", want, kinds)
	}

	stored, _ := engine.store.Get(5001)
	if stored.Name != "v2" {
		t.Errorf("expected authoritative replacement, got %q", stored.Name)
	}
}

func TestSyncService_BootstrapRestoresSnapshot(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewTaskRepository(db)
	ctx := context.Background()

	saved := model.Task{ID: 4001, WorkspaceID: 40, Name: "persisted", UserIDs: []int64{2}}
	if err := repo.SaveTasks(ctx, []model.Task{saved}); err != nil {
		t.Fatal(err)
	}
	if err := repo.ReplaceTagEdges(ctx, 4001, []int64{8}); err != nil {
		t.Fatal(err)
	}

	recordStore := store.NewRecordStore()
	syncService := NewSyncService(recordStore, repo, events.NewBus(), time.Minute)
	if err := syncService.Bootstrap(ctx); err != nil {
		t.Fatal(err)
	}

	if !recordStore.Ready() {
		t.Error("store must be ready after bootstrap")
	}
	task, ok := recordStore.Get(4001)
	if !ok {
		t.Fatal("expected snapshot record after bootstrap")
	}
	if task.Name != "persisted" || len(task.UserIDs) != 1 {
		t.Errorf("unexpected restored record: %+v", task)
	}
	if len(task.TagIDs) != 1 || task.TagIDs[0] != 8 {
		t.Errorf("expected tag edges restored, got %v", task.TagIDs)
	}
}
