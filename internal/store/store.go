package store

import (
	"sort"
	"sync"

	"authwatchd/internal/parser"
	"authwatchd/internal/types"
)

// Store is an append-only ring buffer of recently parsed events, capped at
// maxLines with oldest-first eviction. Owned by exactly one monitor
// instance; consumers only read copies.
type Store struct {
	mu       sync.Mutex
	events   []types.LogEvent
	maxLines int
	patterns []parser.Compiled
}

// New creates a store holding at most maxLines events. The patterns are
// used for alert counting over retained events.
func New(maxLines int, patterns []parser.Compiled) *Store {
	if maxLines < 1 {
		maxLines = 100
	}
	return &Store{
		maxLines: maxLines,
		patterns: patterns,
	}
}

// Append adds an event, evicting the oldest when the buffer is full.
func (s *Store) Append(evt types.LogEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, evt)
	if len(s.events) > s.maxLines {
		s.events = s.events[len(s.events)-s.maxLines:]
	}
}

// Len returns the number of retained events.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// Recent returns up to n events, newest first. The sort is stable on
// timestamp descending, so equal timestamps keep insertion order.
func (s *Store) Recent(n int) []types.LogEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]types.LogEvent, len(s.events))
	copy(out, s.events)

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})

	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// AlertCounts counts retained alert events per pattern name by re-testing
// every event's raw line against every pattern. An event whose line matches
// several patterns is counted under each of them, even though classification
// at parse time stopped at the first match. That mismatch is deliberate:
// it reproduces the counting behavior the display has always shown.
func (s *Store) AlertCounts() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[string]int, len(s.patterns))
	for _, pat := range s.patterns {
		counts[pat.Name] = 0
	}

	for _, evt := range s.events {
		if !evt.IsAlert {
			continue
		}
		for _, pat := range s.patterns {
			if pat.Re.MatchString(evt.RawLine) {
				counts[pat.Name]++
			}
		}
	}
	return counts
}
