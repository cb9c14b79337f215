package runstore

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/signalsfoundry/cascade-simulator/core"
)

// EventType indicates what kind of change happened in the store.
type EventType int

const (
	EventRunCompleted EventType = iota
)

// Event is emitted to subscribers when something interesting happens.
type Event struct {
	Type EventType
	Run  Record
}

// Record is the stored outcome of one completed simulation run.
type Record struct {
	RunID          string
	CompletedAt    time.Time
	Dt             float64
	StepsCompleted int
	Assessment     core.SystemAssessment
	Diagnostics    []core.Diagnostic
}

// Store is an in-memory, thread-safe archive of completed runs.
type Store struct {
	mu sync.RWMutex

	runs  map[string]*Record
	order []string

	subs []func(Event)
}

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{runs: make(map[string]*Record)}
}

// Add archives a completed run and notifies subscribers. It returns an
// error if the run ID already exists.
func (s *Store) Add(rec *Record) error {
	s.mu.Lock()

	if rec.RunID == "" {
		s.mu.Unlock()
		return fmt.Errorf("run record has empty ID")
	}
	if _, exists := s.runs[rec.RunID]; exists {
		s.mu.Unlock()
		return fmt.Errorf("run with ID %q already exists", rec.RunID)
	}
	s.runs[rec.RunID] = rec
	s.order = append(s.order, rec.RunID)

	event := Event{
		Type: EventRunCompleted,
		Run:  *rec, // copy for safety
	}
	subs := append([]func(Event){}, s.subs...)
	s.mu.Unlock()

	// Notify subscribers outside the lock to avoid deadlocks.
	for _, sub := range subs {
		sub(event)
	}
	return nil
}

// Get returns the run with the given ID, or nil if not found.
func (s *Store) Get(runID string) *Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.runs[runID]
}

// List returns a snapshot slice of all runs in completion order.
func (s *Store) List() []*Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res := make([]*Record, 0, len(s.order))
	for _, id := range s.order {
		res = append(res, s.runs[id])
	}
	return res
}

// Subscribe registers a callback for store events. It returns an
// unsubscribe function.
func (s *Store) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
	idx := len(s.subs) - 1

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if idx < 0 || idx >= len(s.subs) {
			return
		}
		s.subs = append(s.subs[:idx], s.subs[idx+1:]...)
		idx = -1
	}
}

// Handler serves the archived runs as a JSON list, for wiring next to
// the /metrics endpoint.
func (s *Store) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(s.List()); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
}
