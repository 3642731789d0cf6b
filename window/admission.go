package window

import (
	"sync"

	"github.com/RuiFG/streaming/streaming-unique/element"
)

type entry[K comparable, T any] struct {
	key   K
	event *element.Event[T]
}

// AdmissionSet retains at most one event per key for a single batch.
// Admission order is kept so batches are emitted deterministically.
// An AdmissionSet is single-use: once drained it stays empty.
type AdmissionSet[K comparable, T any] struct {
	mutex   sync.Mutex
	index   map[K]int
	entries []entry[K, T]
}

func NewAdmissionSet[K comparable, T any](sizeHint int) *AdmissionSet[K, T] {
	if sizeHint < 0 {
		sizeHint = 0
	}
	return &AdmissionSet[K, T]{
		index:   make(map[K]int, sizeHint),
		entries: make([]entry[K, T], 0, sizeHint),
	}
}

// TryAdmit stores event if key is not retained yet and reports whether it did.
func (s *AdmissionSet[K, T]) TryAdmit(key K, event *element.Event[T]) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, ok := s.index[key]; ok {
		return false
	}
	s.index[key] = len(s.entries)
	s.entries = append(s.entries, entry[K, T]{key: key, event: event})
	return true
}

// Replace stores event for key, overwriting a retained one in place.
// It reports whether an event was overwritten.
func (s *AdmissionSet[K, T]) Replace(key K, event *element.Event[T]) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if i, ok := s.index[key]; ok {
		s.entries[i].event = event
		return true
	}
	s.index[key] = len(s.entries)
	s.entries = append(s.entries, entry[K, T]{key: key, event: event})
	return false
}

// Admit applies policy and reports whether event is now retained.
func (s *AdmissionSet[K, T]) Admit(policy Policy, key K, event *element.Event[T]) bool {
	switch policy {
	case LastWins:
		s.Replace(key, event)
		return true
	default:
		return s.TryAdmit(key, event)
	}
}

func (s *AdmissionSet[K, T]) Contains(key K) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	_, ok := s.index[key]
	return ok
}

func (s *AdmissionSet[K, T]) Len() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.entries)
}

// DrainAll hands out the retained events in admission order. Later calls
// return an empty, non-nil slice.
func (s *AdmissionSet[K, T]) DrainAll() []*element.Event[T] {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	events := make([]*element.Event[T], 0, len(s.entries))
	for _, e := range s.entries {
		events = append(events, e.event)
	}
	s.entries = nil
	s.index = map[K]int{}
	return events
}
