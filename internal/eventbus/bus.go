// Package eventbus provides a bounded, sequenced event buffer with
// synchronous subscribers and incremental reads.
package eventbus

import (
	"sync"
	"time"
)

// Envelope wraps a payload with its sequence number.
type Envelope[T any] struct {
	Seq       int64     `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
	Payload   T         `json:"payload"`
}

// Bus stores recent events and fans them out to subscribers in publish
// order. Subscribers run on the publishing goroutine and must not publish
// on the same bus.
type Bus[T any] struct {
	dispatch sync.Mutex

	mu          sync.RWMutex
	nextSeq     int64
	maxEvents   int
	events      []Envelope[T]
	nextSubID   int
	subscribers map[int]func(Envelope[T])
}

// New creates a bus keeping at most maxEvents events (500 when <= 0).
func New[T any](maxEvents int) *Bus[T] {
	if maxEvents <= 0 {
		maxEvents = 500
	}
	return &Bus[T]{
		maxEvents:   maxEvents,
		events:      make([]Envelope[T], 0, maxEvents),
		subscribers: make(map[int]func(Envelope[T])),
	}
}

// Publish appends one event, assigns its sequence and delivers it.
func (b *Bus[T]) Publish(payload T) Envelope[T] {
	b.dispatch.Lock()
	defer b.dispatch.Unlock()

	b.mu.Lock()
	b.nextSeq++
	env := Envelope[T]{Seq: b.nextSeq, Timestamp: time.Now().UTC(), Payload: payload}
	b.events = append(b.events, env)
	if len(b.events) > b.maxEvents {
		trim := len(b.events) - b.maxEvents
		b.events = append([]Envelope[T](nil), b.events[trim:]...)
	}
	subs := make([]func(Envelope[T]), 0, len(b.subscribers))
	for id := 0; id < b.nextSubID; id++ {
		if fn, ok := b.subscribers[id]; ok {
			subs = append(subs, fn)
		}
	}
	b.mu.Unlock()

	for _, fn := range subs {
		fn(env)
	}
	return env
}

// Since returns events with sequence strictly greater than seq.
func (b *Bus[T]) Since(seq int64) []Envelope[T] {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Envelope[T], 0, len(b.events))
	for _, env := range b.events {
		if env.Seq > seq {
			out = append(out, env)
		}
	}
	return out
}

// LastSeq returns the sequence of the newest event, or 0.
func (b *Bus[T]) LastSeq() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.nextSeq
}

// Subscribe registers fn and returns a function that removes it.
func (b *Bus[T]) Subscribe(fn func(Envelope[T])) func() {
	b.mu.Lock()
	id := b.nextSubID
	b.nextSubID++
	b.subscribers[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subscribers, id)
			b.mu.Unlock()
		})
	}
}
