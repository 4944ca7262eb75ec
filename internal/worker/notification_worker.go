package worker

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/angocine/internal/events"
)

// ErrQueueFull is returned to the publisher when the worker cannot accept
// more events.
var ErrQueueFull = errors.New("notification queue full")

// EventProcessor handles one dequeued event.
type EventProcessor interface {
	Handle(ctx context.Context, event events.Event) error
}

// NotificationWorker moves notification delivery off the request path:
// dispatcher handlers only enqueue, a fixed set of goroutines drain.
type NotificationWorker struct {
	processor EventProcessor
	logger    *zap.Logger
	queue     chan events.Event
	workers   int
}

// NewNotificationWorker builds a worker with the given concurrency and queue size.
func NewNotificationWorker(processor EventProcessor, logger *zap.Logger, workers, buffer int) *NotificationWorker {
	if workers <= 0 {
		workers = 1
	}
	if buffer < 0 {
		buffer = 0
	}
	return &NotificationWorker{
		processor: processor,
		logger:    logger,
		queue:     make(chan events.Event, buffer),
		workers:   workers,
	}
}

// Subscribe registers the worker's enqueue handler for each event type.
func (w *NotificationWorker) Subscribe(dispatcher events.Dispatcher, types ...events.EventType) {
	for _, t := range types {
		dispatcher.Subscribe(t, w.enqueue)
	}
}

func (w *NotificationWorker) enqueue(_ context.Context, event events.Event) error {
	select {
	case w.queue <- event:
		return nil
	default:
		w.logger.Warn("dropping notification", zap.String("event_type", string(event.Type)), zap.String("event_id", event.ID))
		return ErrQueueFull
	}
}

// Run drains the queue until ctx is cancelled, then processes whatever is
// still buffered before returning.
func (w *NotificationWorker) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < w.workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					w.drain()
					return nil
				case event := <-w.queue:
					w.process(context.WithoutCancel(gctx), event)
				}
			}
		})
	}
	return g.Wait()
}

func (w *NotificationWorker) drain() {
	for {
		select {
		case event := <-w.queue:
			w.process(context.Background(), event)
		default:
			return
		}
	}
}

func (w *NotificationWorker) process(ctx context.Context, event events.Event) {
	if err := w.processor.Handle(ctx, event); err != nil {
		w.logger.Error("notification failed",
			zap.String("event_type", string(event.Type)),
			zap.String("event_id", event.ID),
			zap.Error(err))
	}
}
