package metrics

import (
	"sync"
	"time"
)

type Metrics struct {
	mu sync.RWMutex

	// Counters
	EntriesFetched     int64
	EntriesRejected    int64
	DuplicateURLs      int64
	IncidentsMerged    int64
	IncidentsInserted  int64
	SummariesGenerated int64
	FallbackSummaries  int64
	FetchErrors        int64
	StoreErrors        int64

	// Timings
	LastRunDuration time.Duration

	// Status
	LastRunTime   time.Time
	LastErrorTime time.Time
	LastError     string
	IsHealthy     bool
}

var Global = &Metrics{IsHealthy: true}

func (m *Metrics) AddFetched(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EntriesFetched += int64(n)
}

func (m *Metrics) IncrementRejected() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EntriesRejected++
}

func (m *Metrics) IncrementDuplicateURLs() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DuplicateURLs++
}

func (m *Metrics) IncrementMerged() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.IncidentsMerged++
}

func (m *Metrics) AddInserted(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.IncidentsInserted += int64(n)
}

func (m *Metrics) IncrementSummaries() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SummariesGenerated++
}

func (m *Metrics) IncrementFallbackSummaries() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FallbackSummaries++
}

func (m *Metrics) IncrementFetchErrors() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FetchErrors++
}

func (m *Metrics) IncrementStoreErrors() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StoreErrors++
}

func (m *Metrics) RecordRun(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastRunDuration = duration
	m.LastRunTime = time.Now()
	m.IsHealthy = true
}

func (m *Metrics) SetError(err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastError = err
	m.LastErrorTime = time.Now()
	m.IsHealthy = false
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"entries_fetched":      m.EntriesFetched,
		"entries_rejected":     m.EntriesRejected,
		"duplicate_urls":       m.DuplicateURLs,
		"incidents_merged":     m.IncidentsMerged,
		"incidents_inserted":   m.IncidentsInserted,
		"summaries_generated":  m.SummariesGenerated,
		"fallback_summaries":   m.FallbackSummaries,
		"fetch_errors":         m.FetchErrors,
		"store_errors":         m.StoreErrors,
		"last_run_duration_ms": m.LastRunDuration.Milliseconds(),
		"last_run_time":        m.LastRunTime.Format(time.RFC3339),
		"last_error_time":      m.LastErrorTime.Format(time.RFC3339),
		"last_error":           m.LastError,
		"is_healthy":           m.IsHealthy,
	}
}
