package realtime

import (
	"context"
	"errors"
	"log"

	apperrors "taskgrid.com/taskgrid/internal/errors"
)

// Dispatcher pumps a mutation source into the sync surface.
type Dispatcher struct {
	source  MutationSource
	applier Applier
}

func NewDispatcher(source MutationSource, applier Applier) *Dispatcher {
	return &Dispatcher{source: source, applier: applier}
}

// Run consumes the stream until ctx is canceled. Apply failures are logged
// and the stream keeps going; the next authoritative refresh repairs any gap.
func (d *Dispatcher) Run(ctx context.Context) error {
	return d.source.Listen(ctx, func(event MutationEvent) {
		if err := d.apply(ctx, event); err != nil {
			log.Printf("realtime: failed to apply %s event: %v", event.Op, err)
		}
	})
}

func (d *Dispatcher) apply(ctx context.Context, event MutationEvent) error {
	switch event.Op {
	case OpUpsert:
		return d.applier.ApplyRecords(ctx, event.Tasks)
	case OpDelete:
		err := d.applier.ApplyDelete(ctx, event.TaskID)
		if errors.Is(err, apperrors.ErrTaskNotFound) {
			// Already gone locally; the stream replayed a delete.
			return nil
		}
		return err
	case OpApproval:
		err := d.applier.ApplyApproval(ctx, event.TaskID, event.ApprovalStatus)
		if errors.Is(err, apperrors.ErrTaskNotFound) {
			return nil
		}
		return err
	default:
		log.Printf("realtime: ignoring unknown op %q", event.Op)
		return nil
	}
}
