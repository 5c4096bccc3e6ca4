package services

import (
	"context"
	"sync"
	"time"

	apperrors "taskgrid.com/taskgrid/internal/errors"
	"taskgrid.com/taskgrid/internal/events"
	model "taskgrid.com/taskgrid/internal/models"
	repository "taskgrid.com/taskgrid/internal/repositories"
	"taskgrid.com/taskgrid/internal/store"
)

// DefaultUndoWindow is how long a confirmed deletion can still be undone by
// re-inserting the removed record.
const DefaultUndoWindow = 30 * time.Second

type deletedRecord struct {
	task      model.Task
	removedAt time.Time
}

// SyncService is the inbound seam for the bootstrap sync and the real-time
// stream: authoritative upserts, deletions with an undo grace window, and
// optimistic approval patches. Every accepted change is mirrored to the
// durable snapshot and announced on the event bus.
type SyncService struct {
	store      *store.RecordStore
	repo       *repository.TaskRepository
	bus        *events.Bus
	undoWindow time.Duration

	mu      sync.Mutex
	deleted map[int64]deletedRecord
}

func NewSyncService(recordStore *store.RecordStore, repo *repository.TaskRepository, bus *events.Bus, undoWindow time.Duration) *SyncService {
	if undoWindow <= 0 {
		undoWindow = DefaultUndoWindow
	}
	return &SyncService{
		store:      recordStore,
		repo:       repo,
		bus:        bus,
		undoWindow: undoWindow,
		deleted:    make(map[int64]deletedRecord),
	}
}

// Bootstrap rehydrates the record store from the durable snapshot and marks
// it ready. Queries issued before this return a retryable not-ready error.
func (s *SyncService) Bootstrap(ctx context.Context) error {
	tasks, err := s.repo.LoadAll(ctx)
	if err != nil {
		return err
	}
	edges, err := s.repo.LoadTagEdges(ctx)
	if err != nil {
		return err
	}

	s.store.PutMany(tasks)
	for _, edge := range edges {
		s.store.AddTagEdge(edge.TaskID, edge.TagID)
	}
	s.store.MarkReady()
	return nil
}

// ApplyRecords upserts authoritative records. Each write replaces the stored
// record wholesale; the authoritative copy always wins over any optimistic
// local state.
func (s *SyncService) ApplyRecords(ctx context.Context, tasks []model.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	created := make([]bool, len(tasks))
	for i, task := range tasks {
		_, existed := s.store.Get(task.ID)
		created[i] = !existed
	}

	s.store.PutMany(tasks)
	if err := s.repo.SaveTasks(ctx, tasks); err != nil {
		return err
	}
	for _, task := range tasks {
		if task.TagIDs != nil {
			if err := s.repo.ReplaceTagEdges(ctx, task.ID, task.TagIDs); err != nil {
				return err
			}
		}
	}

	for i, task := range tasks {
		kind := events.KindRecordMutated
		if created[i] {
			kind = events.KindTaskCreated
		}
		t := task
		s.bus.Publish(events.Event{
			Kind:        kind,
			TaskID:      t.ID,
			WorkspaceID: t.WorkspaceID,
			Task:        &t,
		})
	}
	return nil
}

// ApplyDelete removes a confirmed deletion. The removed record is held for
// the undo window so the host can re-insert it with identical field values.
func (s *SyncService) ApplyDelete(ctx context.Context, id int64) error {
	removed, ok := s.store.Remove(id)
	if !ok {
		return apperrors.ErrTaskNotFound
	}
	if err := s.repo.DeleteTask(ctx, id); err != nil {
		return err
	}

	s.mu.Lock()
	s.pruneLocked()
	s.deleted[id] = deletedRecord{task: removed, removedAt: time.Now()}
	s.mu.Unlock()

	s.bus.Publish(events.Event{
		Kind:        events.KindRecordDeleted,
		TaskID:      id,
		WorkspaceID: removed.WorkspaceID,
	})
	return nil
}

// Undo re-inserts a recently deleted record if the grace window has not
// elapsed.
func (s *SyncService) Undo(ctx context.Context, id int64) error {
	s.mu.Lock()
	entry, ok := s.deleted[id]
	if ok {
		delete(s.deleted, id)
	}
	s.mu.Unlock()

	if !ok || time.Since(entry.removedAt) > s.undoWindow {
		return apperrors.ErrUndoExpired
	}
	return s.ApplyRecords(ctx, []model.Task{entry.task})
}

// ApplyApproval patches the approval status optimistically: the outcome is
// already known locally, so the very next query reflects it before the
// backend commits any cascading changes.
func (s *SyncService) ApplyApproval(ctx context.Context, taskID int64, approvalStatus string) error {
	task, ok := s.store.Get(taskID)
	if !ok {
		return apperrors.ErrTaskNotFound
	}

	patched := task.Clone()
	patched.ApprovalStatus = approvalStatus
	s.store.Put(patched)
	if err := s.repo.SaveTasks(ctx, []model.Task{patched}); err != nil {
		return err
	}

	s.bus.Publish(events.Event{
		Kind:           events.KindApprovalDecided,
		TaskID:         taskID,
		WorkspaceID:    patched.WorkspaceID,
		Task:           &patched,
		ApprovalStatus: approvalStatus,
	})
	return nil
}

// SetLookup installs a host-supplied lookup map on the store.
func (s *SyncService) SetLookup(kind string, values map[int64]string) {
	s.store.SetLookup(kind, values)
}

func (s *SyncService) pruneLocked() {
	cutoff := time.Now().Add(-s.undoWindow)
	for id, entry := range s.deleted {
		if entry.removedAt.Before(cutoff) {
			delete(s.deleted, id)
		}
	}
}
