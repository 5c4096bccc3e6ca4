package store

import (
	"sync"

	model "taskgrid.com/taskgrid/internal/models"
)

// RecordStore is the local authoritative copy of task records, keyed by id,
// plus tag join edges and host-supplied lookup maps. All writes are
// whole-record replacements; readers always see a consistent snapshot.
type RecordStore struct {
	mu       sync.RWMutex
	tasks    map[int64]model.Task
	tagEdges map[int64]map[int64]struct{}
	lookups  map[string]map[int64]string
	ready    bool
}

func NewRecordStore() *RecordStore {
	return &RecordStore{
		tasks:    make(map[int64]model.Task),
		tagEdges: make(map[int64]map[int64]struct{}),
		lookups:  make(map[string]map[int64]string),
	}
}

// Put replaces the record with the same id wholesale. Partial patches are
// never applied in place, so a reader can never observe stale-field ghosts.
func (s *RecordStore) Put(task model.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putLocked(task)
}

func (s *RecordStore) PutMany(tasks []model.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, task := range tasks {
		s.putLocked(task)
	}
}

func (s *RecordStore) putLocked(task model.Task) {
	stored := task.Clone()
	// A nil TagIDs means the record carries no tag information and existing
	// edges stay; an empty non-nil slice is an authoritative "no tags".
	if stored.TagIDs != nil {
		if len(stored.TagIDs) == 0 {
			delete(s.tagEdges, stored.ID)
		} else {
			edges := make(map[int64]struct{}, len(stored.TagIDs))
			for _, tagID := range stored.TagIDs {
				edges[tagID] = struct{}{}
			}
			s.tagEdges[stored.ID] = edges
		}
	}
	stored.TagIDs = nil
	s.tasks[stored.ID] = stored
}

func (s *RecordStore) Remove(id int64) (model.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return model.Task{}, false
	}
	removed := s.withTagsLocked(task)
	delete(s.tasks, id)
	delete(s.tagEdges, id)
	return removed, true
}

func (s *RecordStore) Get(id int64) (model.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[id]
	if !ok {
		return model.Task{}, false
	}
	return s.withTagsLocked(task), true
}

// ScanAll returns a point-in-time snapshot. The copy is taken under the read
// lock, so a scan never observes a torn record or a half-applied batch.
func (s *RecordStore) ScanAll() []model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Task, 0, len(s.tasks))
	for _, task := range s.tasks {
		out = append(out, s.withTagsLocked(task))
	}
	return out
}

func (s *RecordStore) withTagsLocked(task model.Task) model.Task {
	out := task.Clone()
	if edges, ok := s.tagEdges[task.ID]; ok && len(edges) > 0 {
		tagIDs := make([]int64, 0, len(edges))
		for tagID := range edges {
			tagIDs = append(tagIDs, tagID)
		}
		out.TagIDs = tagIDs
	}
	return out
}

// AddTagEdge adds a task-tag association. Duplicate edges collapse.
func (s *RecordStore) AddTagEdge(taskID, tagID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	edges, ok := s.tagEdges[taskID]
	if !ok {
		edges = make(map[int64]struct{})
		s.tagEdges[taskID] = edges
	}
	edges[tagID] = struct{}{}
}

func (s *RecordStore) RemoveTagEdge(taskID, tagID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if edges, ok := s.tagEdges[taskID]; ok {
		delete(edges, tagID)
		if len(edges) == 0 {
			delete(s.tagEdges, taskID)
		}
	}
}

// ReplaceTagEdges swaps the full edge set for a task.
func (s *RecordStore) ReplaceTagEdges(taskID int64, tagIDs []int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(tagIDs) == 0 {
		delete(s.tagEdges, taskID)
		return
	}
	edges := make(map[int64]struct{}, len(tagIDs))
	for _, tagID := range tagIDs {
		edges[tagID] = struct{}{}
	}
	s.tagEdges[taskID] = edges
}

func (s *RecordStore) TagEdges() []model.TagEdge {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.TagEdge
	for taskID, edges := range s.tagEdges {
		for tagID := range edges {
			out = append(out, model.TagEdge{TaskID: taskID, TagID: tagID})
		}
	}
	return out
}

// SetLookup installs a host-supplied denormalized lookup map.
func (s *RecordStore) SetLookup(kind string, values map[int64]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make(map[int64]string, len(values))
	for k, v := range values {
		copied[k] = v
	}
	s.lookups[kind] = copied
}

func (s *RecordStore) Lookup(kind string) map[int64]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	values, ok := s.lookups[kind]
	if !ok {
		return nil
	}
	copied := make(map[int64]string, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return copied
}

func (s *RecordStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

// MarkReady flips the store into the bootstrapped state. Queries issued
// before this return a retryable not-ready error.
func (s *RecordStore) MarkReady() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = true
}

func (s *RecordStore) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}
