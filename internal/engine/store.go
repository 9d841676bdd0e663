package engine

import (
	"sort"
	"sync"

	"tradingx/internal/models"
)

// Store is the in-memory active set. The engine goroutine is the only writer;
// HTTP handlers read through Snapshot, so readers never observe a half-applied
// tick.
type Store struct {
	mu      sync.RWMutex
	signals map[string]models.Signal
}

func NewStore() *Store {
	return &Store{signals: map[string]models.Signal{}}
}

// Replace swaps in the full post-tick active set.
func (s *Store) Replace(signals []models.Signal) {
	next := make(map[string]models.Signal, len(signals))
	for _, sig := range signals {
		if sig.ID == "" {
			continue
		}
		next[sig.ID] = sig
	}
	s.mu.Lock()
	s.signals = next
	s.mu.Unlock()
}

// Remove deletes the given IDs, typically after a manual archive.
func (s *Store) Remove(ids ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.signals, id)
	}
}

// Get returns one signal by ID.
func (s *Store) Get(id string) (models.Signal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sig, ok := s.signals[id]
	return sig, ok
}

// Snapshot returns a copy of the active set ordered by confidence descending,
// creation time as tiebreak.
func (s *Store) Snapshot() []models.Signal {
	s.mu.RLock()
	out := make([]models.Signal, 0, len(s.signals))
	for _, sig := range s.signals {
		out = append(out, sig)
	}
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Len returns the active-set size.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.signals)
}
