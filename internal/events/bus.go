package events

import (
	"sync"

	"github.com/google/uuid"

	model "taskgrid.com/taskgrid/internal/models"
)

// Kind identifies an event class on the bus.
type Kind string

const (
	KindRecordMutated   Kind = "record_mutated"
	KindRecordDeleted   Kind = "record_deleted"
	KindTaskCreated     Kind = "task_created"
	KindApprovalDecided Kind = "approval_decided"
)

// Event carries one cross-cutting notification. Task is set for mutations and
// creations; TaskID alone for deletions; ApprovalStatus for approval
// decisions.
type Event struct {
	Kind           Kind
	TaskID         int64
	WorkspaceID    int64
	Task           *model.Task
	ApprovalStatus string
}

type Handler func(Event)

// Bus is a typed in-process observer registry. Dispatch is synchronous;
// handler order is not guaranteed.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Kind]map[string]Handler
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[Kind]map[string]Handler)}
}

// Subscribe registers a handler and returns its unsubscribe function.
func (b *Bus) Subscribe(kind Kind, handler Handler) func() {
	token := uuid.NewString()

	b.mu.Lock()
	byToken, ok := b.handlers[kind]
	if !ok {
		byToken = make(map[string]Handler)
		b.handlers[kind] = byToken
	}
	byToken[token] = handler
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.handlers[kind], token)
	}
}

func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	byToken := b.handlers[event.Kind]
	handlers := make([]Handler, 0, len(byToken))
	for _, h := range byToken {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
}
