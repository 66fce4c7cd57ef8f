// Package drafts keeps in-progress form state in memory, keyed by random IDs.
//
// Entries expire after an idle TTL. Every successful Get counts as activity.
// A background sweeper removes expired entries until Close is called.
package drafts

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrDraftNotFound is returned for unknown, expired or removed IDs.
	ErrDraftNotFound = errors.New("draft not found")
	// ErrStoreFull is returned by Create when the store is at capacity.
	ErrStoreFull = errors.New("draft store is full")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("draft store is closed")
)

// Options configures a Store.
type Options struct {
	IdleTTL       time.Duration
	SweepInterval time.Duration
	MaxEntries    int
	// OnEvict is called, outside the store lock, for each entry removed on expiry.
	OnEvict func(id string)
	// Now defaults to time.Now.
	Now func() time.Time
}

type entry[T any] struct {
	value    T
	lastSeen time.Time
}

// Store is a concurrency-safe map of drafts with idle expiry.
type Store[T any] struct {
	opts Options

	mu      sync.Mutex
	entries map[string]*entry[T]
	closed  bool

	stop chan struct{}
	done chan struct{}
}

// NewStore creates a store and starts its sweeper.
func NewStore[T any](opts Options) *Store[T] {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = 30 * time.Minute
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = time.Minute
	}

	s := &Store[T]{
		opts:    opts,
		entries: make(map[string]*entry[T]),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go s.sweepLoop()
	return s
}

// Create stores the value built by newFn under a fresh ID.
func (s *Store[T]) Create(newFn func(id string) T) (string, T, error) {
	var zero T
	id := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", zero, ErrClosed
	}
	if s.opts.MaxEntries > 0 && len(s.entries) >= s.opts.MaxEntries {
		return "", zero, ErrStoreFull
	}

	v := newFn(id)
	s.entries[id] = &entry[T]{value: v, lastSeen: s.opts.Now()}
	return id, v, nil
}

// Get returns the draft for id and refreshes its idle timer.
func (s *Store[T]) Get(id string) (T, error) {
	var zero T

	s.mu.Lock()
	e, ok := s.entries[id]
	if !ok {
		s.mu.Unlock()
		return zero, ErrDraftNotFound
	}
	now := s.opts.Now()
	if now.Sub(e.lastSeen) >= s.opts.IdleTTL {
		delete(s.entries, id)
		s.mu.Unlock()
		if s.opts.OnEvict != nil {
			s.opts.OnEvict(id)
		}
		return zero, ErrDraftNotFound
	}
	e.lastSeen = now
	s.mu.Unlock()
	return e.value, nil
}

// Delete removes id and reports whether it was present.
func (s *Store[T]) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.entries[id]
	delete(s.entries, id)
	return ok
}

// Len returns the number of stored drafts, expired or not.
func (s *Store[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep removes expired drafts and returns how many were removed.
func (s *Store[T]) Sweep() int {
	now := s.opts.Now()

	s.mu.Lock()
	var evicted []string
	for id, e := range s.entries {
		if now.Sub(e.lastSeen) >= s.opts.IdleTTL {
			delete(s.entries, id)
			evicted = append(evicted, id)
		}
	}
	s.mu.Unlock()

	if s.opts.OnEvict != nil {
		for _, id := range evicted {
			s.opts.OnEvict(id)
		}
	}
	return len(evicted)
}

func (s *Store[T]) sweepLoop() {
	defer close(s.done)

	ticker := time.NewTicker(s.opts.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Sweep()
		case <-s.stop:
			return
		}
	}
}

// Close stops the sweeper and drops every draft. It is safe to call twice.
func (s *Store[T]) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.entries = make(map[string]*entry[T])
	s.mu.Unlock()

	close(s.stop)
	<-s.done
}
