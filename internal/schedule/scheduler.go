// Package schedule owns the keyed collection of pending follow-up sends.
// The collection lives only in process memory; a restart drops anything
// still pending.
package schedule

import (
	"log/slog"
	"strings"
	"sync"
	"time"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// FollowUp is one scheduled outbound message, keyed by call and tier.
type FollowUp struct {
	Key         string
	CallID      string
	Tier        string
	Destination string
	Body        string
	DueAt       time.Time
	CreatedAt   time.Time
	SentAt      time.Time
	Status      Status
}

// Entry is the masked, read-only view of a follow-up for observability.
type Entry struct {
	Key         string    `json:"key"`
	Destination string    `json:"destination"`
	DueAt       time.Time `json:"due_at"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// Scheduler is the sole owner of the follow-up collection. All access goes
// through its methods under a single coarse lock; callers never hold a
// reference into the map.
type Scheduler struct {
	mu      sync.Mutex
	entries map[string]*FollowUp
	logger  *slog.Logger
	now     func() time.Time
}

func New(logger *slog.Logger) *Scheduler {
	return &Scheduler{
		entries: make(map[string]*FollowUp),
		logger:  logger,
		now:     time.Now,
	}
}

// Key derives the collection key for a call and tier pair.
func Key(callID, tier string) string {
	return callID + "-" + tier
}

// Enqueue inserts or overwrites the follow-up at (callID, tier). A repeat
// enqueue for the same pair replaces the previous entry wholesale — body,
// due time and status — even if it already fired. Last write wins.
// Returns the entry key.
func (s *Scheduler) Enqueue(callID, tier, destination, body string, delay time.Duration) string {
	key := Key(callID, tier)
	s.mu.Lock()
	now := s.now()
	s.entries[key] = &FollowUp{
		Key:         key,
		CallID:      callID,
		Tier:        tier,
		Destination: destination,
		Body:        body,
		DueAt:       now.Add(delay),
		CreatedAt:   now,
		Status:      StatusPending,
	}
	s.mu.Unlock()

	s.logger.Info("follow-up scheduled",
		"key", key,
		"destination", maskDestination(destination),
		"due_in", delay.String(),
	)
	return key
}

// DueEntries returns copies of every pending entry whose due time has
// passed. Order across keys is unspecified.
func (s *Scheduler) DueEntries(now time.Time) []FollowUp {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []FollowUp
	for _, e := range s.entries {
		if e.Status == StatusPending && !e.DueAt.After(now) {
			due = append(due, *e)
		}
	}
	return due
}

// MarkSent transitions the entry to sent. Repeat calls and unknown keys
// are no-ops.
func (s *Scheduler) MarkSent(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok || e.Status == StatusSent {
		return
	}
	e.Status = StatusSent
	e.SentAt = s.now()
}

// MarkFailed transitions the entry to failed. Repeat calls and unknown
// keys are no-ops.
func (s *Scheduler) MarkFailed(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok || e.Status == StatusFailed {
		return
	}
	e.Status = StatusFailed
}

// Evict removes the entry. Safe on missing keys.
func (s *Scheduler) Evict(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

// PendingCount reports how many entries are still pending.
func (s *Scheduler) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.entries {
		if e.Status == StatusPending {
			n++
		}
	}
	return n
}

// Snapshot lists all current entries with destinations masked down to the
// last four digits.
func (s *Scheduler) Snapshot() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, Entry{
			Key:         e.Key,
			Destination: maskDestination(e.Destination),
			DueAt:       e.DueAt,
			Status:      e.Status,
			CreatedAt:   e.CreatedAt,
		})
	}
	return out
}

func maskDestination(dest string) string {
	if len(dest) <= 4 {
		return dest
	}
	return strings.Repeat("*", len(dest)-4) + dest[len(dest)-4:]
}
