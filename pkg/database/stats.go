package database

import "sync"

// Stats counts connection lifecycle events. Requests run on arbitrary
// goroutines, so every field lives behind the one mutex.
type Stats struct {
	mu      sync.Mutex
	created int64
	closed  int64
	errors  int64
}

// StatsSnapshot is the JSON shape served by /api/connection-stats.
type StatsSnapshot struct {
	Created int64 `json:"created"`
	Closed  int64 `json:"closed"`
	Errors  int64 `json:"errors"`
}

func (s *Stats) RecordCreated() {
	s.mu.Lock()
	s.created++
	s.mu.Unlock()
}

func (s *Stats) RecordClosed() {
	s.mu.Lock()
	s.closed++
	s.mu.Unlock()
}

func (s *Stats) RecordError() {
	s.mu.Lock()
	s.errors++
	s.mu.Unlock()
}

func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StatsSnapshot{
		Created: s.created,
		Closed:  s.closed,
		Errors:  s.errors,
	}
}
