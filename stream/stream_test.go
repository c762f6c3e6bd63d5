package stream

import (
	"context"
	"testing"
)

func TestCloseIdempotent(t *testing.T) {
	calls := 0
	s := &Stream[int]{events: make(chan Event[int]), stop: func() { calls++ }}

	s.Close()
	s.Close()

	if calls != 1 {
		t.Errorf("stop called %d times; want 1", calls)
	}
}

func TestDeliver(t *testing.T) {
	s := &Stream[int]{events: make(chan Event[int])}

	got := make(chan Event[int], 1)
	go func() { got <- <-s.events }()

	if !s.deliver(context.Background(), Event[int]{Items: []int{1, 2}}) {
		t.Fatal("deliver returned false on open stream")
	}
	ev := <-got
	if len(ev.Items) != 2 || ev.Err != nil {
		t.Errorf("unexpected event: %+v", ev)
	}
}

func TestDeliverStopsAfterCancel(t *testing.T) {
	s := &Stream[int]{events: make(chan Event[int])} // no consumer
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if s.deliver(ctx, Event[int]{Items: []int{1}}) {
		t.Error("deliver succeeded after cancellation with no consumer")
	}
}

// A snapshot pending at Close time must be dropped, never readable
// later: the unbuffered channel means deliver either hands the event
// to a live consumer or gives up on cancellation.
func TestNoEventReadableAfterClose(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Stream[int]{events: make(chan Event[int]), stop: cancel}

	s.Close()
	if s.deliver(ctx, Event[int]{Items: []int{1}}) {
		t.Fatal("deliver succeeded after Close")
	}

	close(s.events) // what run() does on the way out
	if ev, ok := <-s.events; ok {
		t.Errorf("event %+v readable after close", ev)
	}
}
