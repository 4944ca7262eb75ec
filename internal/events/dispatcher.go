package events

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
)

// EventHandler reacts to one delivered event.
type EventHandler func(context.Context, Event) error

// Dispatcher fans events out to the handlers subscribed to their type.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType EventType, handler EventHandler)
}

type routeTable map[EventType][]EventHandler

// syncBus delivers on the publishing goroutine. Subscribe installs a new
// route table, so Publish works on a snapshot and never holds a lock while
// handlers run.
type syncBus struct {
	subscribeMu sync.Mutex
	routes      atomic.Pointer[routeTable]
}

// NewInMemoryDispatcher returns an in-process Dispatcher.
func NewInMemoryDispatcher() Dispatcher {
	b := &syncBus{}
	b.routes.Store(&routeTable{})
	return b
}

func (b *syncBus) Subscribe(eventType EventType, handler EventHandler) {
	b.subscribeMu.Lock()
	defer b.subscribeMu.Unlock()

	current := *b.routes.Load()
	next := maps.Clone(current)
	next[eventType] = append(slices.Clip(current[eventType]), handler)
	b.routes.Store(&next)
}

// Publish runs every handler routed to the event type, in subscription
// order. Failures and panics are collected and do not stop later handlers.
func (b *syncBus) Publish(ctx context.Context, event Event) error {
	var errs error
	for i, handler := range (*b.routes.Load())[event.Type] {
		errs = errors.Join(errs, deliver(ctx, handler, event, i))
	}
	return errs
}

func deliver(ctx context.Context, handler EventHandler, event Event, index int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s handler #%d panicked: %v", event.Type, index, r)
		}
	}()
	if herr := handler(ctx, event); herr != nil {
		return fmt.Errorf("%s handler #%d: %w", event.Type, index, herr)
	}
	return nil
}
