// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package utils

import "sync"

// Subject is a broadcast value holder. Every subscriber first receives the
// current value and then every published value in order. Delivery to a slow
// subscriber never blocks Publish and never drops values: each subscriber has
// its own unbounded queue drained by a dedicated goroutine.
//
// Example usage:
//
//	status := utils.NewSubject(false, utils.Distinct[bool]())
//	ch, cancel := status.Subscribe()
//	defer cancel()
//	status.Publish(true)
//	<-ch // false (replayed current value)
//	<-ch // true
type Subject[T any] struct {
	mu     sync.Mutex
	value  T
	equal  func(a, b T) bool
	subs   map[uint64]*subscriber[T]
	nextID uint64
	closed bool
}

// SubjectOption configures a [Subject].
type SubjectOption[T any] func(*Subject[T])

// Distinct makes Publish ignore values equal to the current one, so observers
// never see duplicate transitions.
func Distinct[T comparable]() SubjectOption[T] {
	return func(s *Subject[T]) {
		s.equal = func(a, b T) bool { return a == b }
	}
}

// NewSubject creates a subject holding initial.
func NewSubject[T any](initial T, opts ...SubjectOption[T]) *Subject[T] {
	s := &Subject[T]{value: initial, subs: make(map[uint64]*subscriber[T])}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Value returns the current value.
func (s *Subject[T]) Value() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Publish stores v and fans it out to all subscribers. It reports whether the
// value was emitted; with [Distinct] an unchanged value is not.
func (s *Subject[T]) Publish(v T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	if s.equal != nil && s.equal(s.value, v) {
		return false
	}

	s.value = v
	for _, sub := range s.subs {
		sub.push(v)
	}
	return true
}

// Subscribe returns a channel that receives the current value followed by
// every later publication, and a cancel function that detaches the
// subscriber and closes the channel. Cancel is safe to call more than once.
func (s *Subject[T]) Subscribe() (<-chan T, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub := newSubscriber[T]()
	if s.closed {
		sub.stop()
		return sub.out, func() {}
	}

	id := s.nextID
	s.nextID++
	s.subs[id] = sub
	sub.push(s.value)

	return sub.out, func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
		sub.stop()
	}
}

// Close detaches every subscriber. Later publications are ignored.
func (s *Subject[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	for id, sub := range s.subs {
		delete(s.subs, id)
		sub.stop()
	}
}

type subscriber[T any] struct {
	out    chan T
	notify chan struct{}
	done   chan struct{}
	once   sync.Once

	mu    sync.Mutex
	queue []T
}

func newSubscriber[T any]() *subscriber[T] {
	sub := &subscriber[T]{
		out:    make(chan T),
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go sub.pump()
	return sub
}

func (s *subscriber[T]) push(v T) {
	s.mu.Lock()
	s.queue = append(s.queue, v)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *subscriber[T]) stop() {
	s.once.Do(func() { close(s.done) })
}

func (s *subscriber[T]) pump() {
	defer close(s.out)

	for {
		select {
		case <-s.done:
			return
		case <-s.notify:
		}

		for {
			s.mu.Lock()
			if len(s.queue) == 0 {
				s.mu.Unlock()
				break
			}
			v := s.queue[0]
			var zero T
			s.queue[0] = zero
			s.queue = s.queue[1:]
			s.mu.Unlock()

			select {
			case s.out <- v:
			case <-s.done:
				return
			}
		}
	}
}
