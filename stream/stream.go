// Package stream wraps Firestore live queries in a cancellable stream:
// every backend-observed change delivers the full current result set,
// and a stream error is terminal.
package stream

import (
	"context"
	"sync"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/chatline/chatline/fault"
)

// Event is one delivery. Exactly one of Items and Err is meaningful;
// after an Err event the stream's channel is closed and the caller must
// resubscribe if it still wants updates.
type Event[T any] struct {
	Items []T
	Err   error
}

// Decoder converts one document into an item. Returning ok=false drops
// the document from the delivered set (e.g. caller-exclusion filters).
type Decoder[T any] func(doc *firestore.DocumentSnapshot) (item T, ok bool, err error)

// Stream delivers events from a single goroutine in backend write
// order. Close is idempotent and releases the backend listener. The
// events channel is unbuffered, so a snapshot never sits queued past
// cancellation: anything not yet handed to the consumer when Close is
// called is dropped.
type Stream[T any] struct {
	events chan Event[T]
	stop   context.CancelFunc
	once   sync.Once
}

// Listen starts a live query and returns its stream. The stream stops
// when ctx is cancelled or Close is called.
func Listen[T any](ctx context.Context, q firestore.Query, decode Decoder[T]) *Stream[T] {
	ctx, cancel := context.WithCancel(ctx)
	s := &Stream[T]{events: make(chan Event[T]), stop: cancel}
	go s.run(ctx, q, decode)
	return s
}

// Events is closed after a terminal error or Close.
func (s *Stream[T]) Events() <-chan Event[T] { return s.events }

func (s *Stream[T]) Close() { s.once.Do(s.stop) }

func (s *Stream[T]) run(ctx context.Context, q firestore.Query, decode Decoder[T]) {
	defer close(s.events)
	snapshots := q.Snapshots(ctx)
	defer snapshots.Stop()

	for {
		snap, err := snapshots.Next()
		if err != nil {
			if ctx.Err() != nil { // cancelled by caller, not a failure
				return
			}
			s.deliver(ctx, Event[T]{Err: fault.FromRPC("stream.next", err)})
			return
		}
		items, err := collect(snap.Documents, decode)
		if err != nil {
			s.deliver(ctx, Event[T]{Err: err})
			return
		}
		if !s.deliver(ctx, Event[T]{Items: items}) {
			return
		}
	}
}

func collect[T any](docs *firestore.DocumentIterator, decode Decoder[T]) ([]T, error) {
	items := []T{}
	for {
		doc, err := docs.Next()
		if err == iterator.Done {
			return items, nil
		}
		if err != nil {
			return nil, fault.FromRPC("stream.decode", err)
		}
		item, ok, err := decode(doc)
		if err != nil {
			return nil, err
		}
		if ok {
			items = append(items, item)
		}
	}
}

// deliver blocks until the consumer takes the event or the stream is
// cancelled; it never buffers past cancellation.
func (s *Stream[T]) deliver(ctx context.Context, ev Event[T]) bool {
	select {
	case s.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
