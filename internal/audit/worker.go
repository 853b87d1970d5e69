package audit

import "context"

// Worker consumes audit events from a channel and persists them. It keeps
// background processing testable without wiring queue implementations in.
type Worker struct {
	sink  Sink
	inbox <-chan Event
}

func NewWorker(sink Sink, inbox <-chan Event) *Worker {
	return &Worker{sink: sink, inbox: inbox}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			// Drain what is already buffered so shutdown does not drop
			// reconciliation hazards.
			drainCtx := context.WithoutCancel(ctx)
			for {
				select {
				case event := <-w.inbox:
					if err := w.sink.Append(drainCtx, event); err != nil {
						return err
					}
				default:
					return ctx.Err()
				}
			}
		case event := <-w.inbox:
			if err := w.sink.Append(ctx, event); err != nil {
				return err
			}
		}
	}
}
