package ingest

import (
	"fmt"
	"sync"
	"time"
)

// Stats tracks statistics about one ingestion run
type Stats struct {
	mu               sync.RWMutex
	StartTime        time.Time
	Duration         time.Duration
	Fetched          int
	Stored           int
	Duplicates       int
	ValidationErrors int
	Errors           int
}

// NewStats creates a new stats tracker
func NewStats() *Stats {
	return &Stats{StartTime: time.Now()}
}

func (s *Stats) add(field *int, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	*field += n
}

// RecordFetched adds fetched records
func (s *Stats) RecordFetched(n int) { s.add(&s.Fetched, n) }

// RecordStored adds stored records
func (s *Stats) RecordStored(n int) { s.add(&s.Stored, n) }

// RecordDuplicate increments duplicate count
func (s *Stats) RecordDuplicate() { s.add(&s.Duplicates, 1) }

// RecordValidationError increments validation error count
func (s *Stats) RecordValidationError() { s.add(&s.ValidationErrors, 1) }

// RecordError increments error count
func (s *Stats) RecordError() { s.add(&s.Errors, 1) }

func (s *Stats) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Duration = time.Since(s.StartTime)
}

// String returns a formatted string representation of the run
func (s *Stats) String() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	successRate := float64(0)
	if s.Fetched > 0 {
		successRate = float64(s.Stored) / float64(s.Fetched) * 100
	}

	return fmt.Sprintf(
		"Stats{Fetched=%d, Stored=%d (%.1f%%), Duplicates=%d, ValidationErrors=%d, Errors=%d, Duration=%v}",
		s.Fetched,
		s.Stored,
		successRate,
		s.Duplicates,
		s.ValidationErrors,
		s.Errors,
		s.Duration,
	)
}
