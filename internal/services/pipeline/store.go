package pipeline

import (
	"sync"
	"time"

	"traffic-worker-go/internal/models"
)

// Stats are the running totals of a pipeline
type Stats struct {
	RunID           string             `json:"run_id"`
	Strategy        string             `json:"strategy"`
	StartedAt       time.Time          `json:"started_at"`
	FramesProcessed uint64             `json:"frames_processed"`
	FramesFailed    uint64             `json:"frames_failed"`
	SendFailures    uint64             `json:"send_failures"`
	Totals          models.CountRecord `json:"totals"`
}

// Store keeps the latest frame result for readers outside the frame loop
type Store struct {
	mu       sync.RWMutex
	latest   models.LaneCountsPayload
	has      bool
	snapshot []byte
	stats    Stats
}

func NewStore() *Store {
	return &Store{stats: Stats{StartedAt: time.Now()}}
}

func (s *Store) Begin(runID, strategy string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.RunID = runID
	s.stats.Strategy = strategy
	s.stats.StartedAt = time.Now()
}

func (s *Store) Record(p models.LaneCountsPayload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = p
	s.has = true
	s.stats.FramesProcessed++
	if !p.Sent && !p.SerialDisabled {
		s.stats.SendFailures++
	}
	for _, l := range models.Lanes {
		s.stats.Totals[l] += p.Counts[l]
	}
}

func (s *Store) Fail() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.FramesFailed++
}

func (s *Store) SetSnapshot(jpeg []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = jpeg
}

// Latest returns the most recent frame result
func (s *Store) Latest() (models.LaneCountsPayload, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.has
}

// Snapshot returns the most recent overlay JPEG, if any was rendered
func (s *Store) Snapshot() ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot, len(s.snapshot) > 0
}

func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}
