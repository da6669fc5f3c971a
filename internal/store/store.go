// internal/store/store.go
//
// Score store for the Unscramble leaderboard.
// The authoritative copy lives in memory; a Persister writes snapshots
// periodically and on demand.
//
// Characteristics:
//   - Concurrency-safe via RWMutex (concurrent reads, exclusive writes).
//   - Totals are clamped at zero: Add never leaves a negative score.
//   - Insertion order is remembered so ties rank by who reached the board first.
//   - Dirty tracking via a version counter; Flush skips unchanged state.
//   - Flushes are serialised, so a ResetAll racing an in-flight flush is
//     always followed by a write of the post-reset state.

package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// Entry is one persisted leaderboard row.
type Entry struct {
	UserID string `json:"userId"`
	Score  int    `json:"score"`
}

// Ranked is a leaderboard row with its 1-based position.
type Ranked struct {
	Rank   int    `json:"rank"`
	UserID string `json:"userId"`
	Score  int    `json:"score"`
}

// Persister loads and saves full snapshots, in first-reached order.
// Implementations may be backed by SQL (sql.go) or a JSON file (file.go).
type Persister interface {
	Load(ctx context.Context) ([]Entry, error)
	Save(ctx context.Context, entries []Entry) error
}

// PersistenceError wraps a failed load or save.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return fmt.Sprintf("score store %s: %v", e.Op, e.Err) }
func (e *PersistenceError) Unwrap() error { return e.Err }

// Store is the in-memory score cache.
type Store struct {
	mu      sync.RWMutex   // guards fields below
	scores  map[string]int // keyed by user id
	order   []string       // first-reached order of scores' keys
	version uint64         // bumped on every mutation
	flushed uint64         // version covered by the last successful Save

	flushMu sync.Mutex // serialises Flush
	p       Persister
}

// New returns an empty store backed by p.
func New(p Persister) *Store {
	return &Store{scores: make(map[string]int), p: p}
}

// Open returns a store primed with whatever p currently holds.
func Open(ctx context.Context, p Persister) (*Store, error) {
	s := New(p)
	entries, err := p.Load(ctx)
	if err != nil {
		return nil, &PersistenceError{Op: "load", Err: err}
	}
	for _, e := range entries {
		if _, dup := s.scores[e.UserID]; dup {
			continue
		}
		s.scores[e.UserID] = max(0, e.Score)
		s.order = append(s.order, e.UserID)
	}
	log.Info().Int("entries", len(s.order)).Msg("score store loaded")
	return s, nil
}

// Get returns userID's total, 0 if absent.
func (s *Store) Get(userID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scores[userID]
}

// Add applies delta to userID's total and returns the new total. The result
// is clamped at 0. A zero delta for an unknown user creates no entry.
func (s *Store) Add(userID string, delta int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.scores[userID]
	if !ok && delta == 0 {
		return 0
	}
	if !ok {
		s.order = append(s.order, userID)
	}
	next := max(0, cur+delta)
	s.scores[userID] = next
	s.version++
	return next
}

// ResetAll clears every entry.
func (s *Store) ResetAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores = make(map[string]int)
	s.order = nil
	s.version++
}

// Len reports the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Dirty reports whether there are changes not yet persisted.
func (s *Store) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version != s.flushed
}

// Flush persists the current state if it changed since the last flush.
// Errors are returned as *PersistenceError; state stays dirty so the next
// flush retries.
func (s *Store) Flush(ctx context.Context) error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.mu.RLock()
	v := s.version
	if v == s.flushed {
		s.mu.RUnlock()
		return nil
	}
	snap := s.snapshotLocked()
	s.mu.RUnlock()

	if err := s.p.Save(ctx, snap); err != nil {
		return &PersistenceError{Op: "save", Err: err}
	}

	s.mu.Lock()
	if v > s.flushed {
		s.flushed = v
	}
	s.mu.Unlock()
	log.Debug().Int("entries", len(snap)).Uint64("version", v).Msg("score store flushed")
	return nil
}

func (s *Store) snapshotLocked() []Entry {
	return lo.Map(s.order, func(id string, _ int) Entry {
		return Entry{UserID: id, Score: s.scores[id]}
	})
}

// Leaderboard returns the top limit entries by score, ties in first-reached
// order. limit <= 0 means all.
func (s *Store) Leaderboard(limit int) []Ranked {
	s.mu.RLock()
	snap := s.snapshotLocked()
	s.mu.RUnlock()

	sort.SliceStable(snap, func(i, j int) bool { return snap[i].Score > snap[j].Score })
	if limit > 0 && len(snap) > limit {
		snap = snap[:limit]
	}
	return lo.Map(snap, func(e Entry, i int) Ranked {
		return Ranked{Rank: i + 1, UserID: e.UserID, Score: e.Score}
	})
}

// Rank returns userID's leaderboard position and score.
func (s *Store) Rank(userID string) (Ranked, bool) {
	return lo.Find(s.Leaderboard(0), func(r Ranked) bool { return r.UserID == userID })
}

// Run flushes every interval until ctx is done, then flushes once more.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			final, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := s.Flush(final); err != nil {
				log.Error().Err(err).Msg("final score flush failed")
			}
			cancel()
			return
		case <-ticker.C:
			if err := s.Flush(ctx); err != nil {
				log.Warn().Err(err).Msg("score flush failed, retrying next tick")
			}
		}
	}
}
