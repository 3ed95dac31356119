// Package observability provides scan statistics for the virtual tables.
package observability

import (
	"sort"
	"sync"
	"time"
)

// ScanStats tracks scan counts, row counts and latency per table.
type ScanStats struct {
	mu     sync.RWMutex
	tables map[string]*TableStats
	window time.Duration
}

// TableStats holds statistics for one table.
type TableStats struct {
	Table         string        `json:"table"`
	Scans         int64         `json:"scans"`
	Failures      int64         `json:"failures"`
	Rows          int64         `json:"rows"`
	LastRows      int64         `json:"last_rows"`
	LastDuration  time.Duration `json:"last_duration_ns"`
	TotalDuration time.Duration `json:"total_duration_ns"`
	LastSeen      time.Time     `json:"last_seen"`
}

// NewScanStats creates a new tracker.
// window: entries not seen for this long are dropped by Prune (0 keeps everything)
func NewScanStats(window time.Duration) *ScanStats {
	return &ScanStats{
		tables: make(map[string]*TableStats),
		window: window,
	}
}

// RecordScan records one finished scan of table. A non-nil err counts as
// a failure and contributes no rows.
// This method is O(1) and thread-safe.
func (s *ScanStats) RecordScan(table string, rows int64, elapsed time.Duration, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats, exists := s.tables[table]
	if !exists {
		stats = &TableStats{Table: table}
		s.tables[table] = stats
	}

	stats.Scans++
	stats.LastSeen = time.Now()
	stats.LastDuration = elapsed
	stats.TotalDuration += elapsed
	if err != nil {
		stats.Failures++
		return
	}
	stats.Rows += rows
	stats.LastRows = rows
}

// Get returns a copy of the stats for one table.
func (s *ScanStats) Get(table string) (TableStats, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats, ok := s.tables[table]
	if !ok {
		return TableStats{}, false
	}
	return *stats, true
}

// Snapshot returns copies of all stats sorted by table name.
func (s *ScanStats) Snapshot() []TableStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]TableStats, 0, len(s.tables))
	for _, stats := range s.tables {
		out = append(out, *stats)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Table < out[j].Table
	})
	return out
}

// Prune removes tables not scanned within the window.
func (s *ScanStats) Prune() {
	if s.window <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-s.window)
	for table, stats := range s.tables {
		if stats.LastSeen.Before(cutoff) {
			delete(s.tables, table)
		}
	}
}

// Reset clears all statistics.
func (s *ScanStats) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tables = make(map[string]*TableStats)
}
