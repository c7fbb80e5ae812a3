// Package observable provides a value holder that publishes every change to
// its subscribers while also exposing a synchronous snapshot.
//
// Delivery is latest-value-wins: each subscriber has a single-slot buffer and
// a slow consumer only ever sees the most recent value, never a backlog.
package observable

import "sync"

// Subject holds a current value of type T and broadcasts replacements.
type Subject[T any] struct {
	mu     sync.Mutex
	value  T
	equal  func(a, b T) bool
	subs   map[int]*subscriber[T]
	nextID int
}

type subscriber[T any] struct {
	ch chan T
	// acked is the latest value the consumer is known to have received.
	acked    T
	hasAcked bool
	// queued is the value sitting in ch, if any.
	queued    T
	hasQueued bool
}

// New returns a Subject that publishes every Set, including repeats.
func New[T any](initial T) *Subject[T] {
	return &Subject[T]{value: initial, subs: make(map[int]*subscriber[T])}
}

// NewDistinct returns a Subject that drops values equal to the last value
// its subscribers received.
func NewDistinct[T comparable](initial T) *Subject[T] {
	s := New(initial)
	s.equal = func(a, b T) bool { return a == b }
	return s
}

// Get returns the current value.
func (s *Subject[T]) Get() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Set replaces the current value and publishes it. It reports whether the
// value differs from the previous one; a Subject created with New always
// reports true.
func (s *Subject[T]) Set(v T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := s.equal == nil || !s.equal(s.value, v)
	s.value = v
	for _, sub := range s.subs {
		s.deliver(sub, v)
	}
	return changed
}

func (s *Subject[T]) deliver(sub *subscriber[T], v T) {
	select {
	case <-sub.ch:
		// the queued value was never consumed
	default:
		if sub.hasQueued {
			sub.acked = sub.queued
			sub.hasAcked = true
		}
	}
	sub.hasQueued = false

	if s.equal != nil && sub.hasAcked && s.equal(sub.acked, v) {
		return
	}

	sub.ch <- v
	sub.queued = v
	sub.hasQueued = true
}

// Subscribe returns a channel receiving the current value immediately and
// every later change, plus a cancel func that releases the subscription and
// closes the channel. Cancel is safe to call more than once.
func (s *Subject[T]) Subscribe() (<-chan T, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++

	sub := &subscriber[T]{ch: make(chan T, 1)}
	sub.ch <- s.value
	sub.queued = s.value
	sub.hasQueued = true
	s.subs[id] = sub

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			close(sub.ch)
		})
	}
	return sub.ch, cancel
}

// Subscribers returns the number of live subscriptions.
func (s *Subject[T]) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}
