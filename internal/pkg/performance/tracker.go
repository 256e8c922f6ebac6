package performance

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

// RoundRecord is the outcome of one source worker in one collection round.
type RoundRecord struct {
	Source   string
	BatchID  string
	State    string // terminal worker state: done, failed, skipped
	Stage    string // state the worker failed in, empty on success
	Attempts int
	Lines    int // lines emitted to the store
	Dropped  int // lines dropped on resolution misses
	Duration time.Duration
	Err      error
	At       time.Time
}

type sourceStats struct {
	rounds       int
	failures     int
	skipped      int
	lines        int
	dropped      int
	attempts     int
	duration     time.Duration
	lastState    string
	lastStage    string
	lastError    string
	lastDuration time.Duration
	lastRoundAt  time.Time
}

// Tracker aggregates per-source round outcomes for the /stats endpoint and
// forwards them to Prometheus when metrics are attached.
type Tracker struct {
	mu      sync.RWMutex
	sources map[string]*sourceStats
	metrics *Metrics
}

func NewTracker(metrics *Metrics) *Tracker {
	return &Tracker{sources: make(map[string]*sourceStats), metrics: metrics}
}

// RecordRound records a finished worker.
func (t *Tracker) RecordRound(r RoundRecord) {
	if r.At.IsZero() {
		r.At = time.Now()
	}

	t.mu.Lock()
	st, ok := t.sources[r.Source]
	if !ok {
		st = &sourceStats{}
		t.sources[r.Source] = st
	}
	st.lastState = r.State
	st.lastStage = r.Stage
	st.lastRoundAt = r.At
	st.lastError = ""
	if r.Err != nil {
		st.lastError = r.Err.Error()
	}
	switch r.State {
	case "skipped":
		st.skipped++
	default:
		st.rounds++
		st.attempts += r.Attempts
		st.lines += r.Lines
		st.dropped += r.Dropped
		st.duration += r.Duration
		st.lastDuration = r.Duration
		if r.State == "failed" {
			st.failures++
		}
	}
	t.mu.Unlock()

	if t.metrics != nil {
		t.metrics.observeRound(r)
	}
}

// Reset resets all metrics
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sources = make(map[string]*sourceStats)
}

// PrintSummary logs one line per source.
func (t *Tracker) PrintSummary() {
	m := t.GetMetrics()
	if m.Overall.TotalRounds == 0 {
		slog.Info("No performance data collected yet")
		return
	}
	slog.Info("Collection summary",
		"total_rounds", m.Overall.TotalRounds,
		"total_failures", m.Overall.TotalFailures,
		"total_lines", m.Overall.TotalLines,
		"total_dropped", m.Overall.TotalDropped)
	for _, s := range m.Sources {
		slog.Info("Source summary",
			"source", s.Source,
			"rounds", s.Rounds,
			"failures", s.Failures,
			"success_rate", s.SuccessRate,
			"avg_duration", s.AvgDuration,
			"last_state", s.LastState,
			"last_error", s.LastError)
	}
}

// SourceMetrics is the per-source section of MetricsResponse.
type SourceMetrics struct {
	Source       string    `json:"source"`
	Rounds       int       `json:"rounds"`
	Failures     int       `json:"failures"`
	Skipped      int       `json:"skipped"`
	SuccessRate  float64   `json:"success_rate"`
	Lines        int       `json:"lines"`
	Dropped      int       `json:"dropped"`
	AvgAttempts  float64   `json:"avg_attempts"`
	AvgDuration  string    `json:"avg_duration"`
	LastDuration string    `json:"last_duration"`
	LastState    string    `json:"last_state"`
	LastStage    string    `json:"last_stage,omitempty"`
	LastError    string    `json:"last_error,omitempty"`
	LastRoundAt  time.Time `json:"last_round_at"`
}

// MetricsResponse represents the JSON response structure for /stats endpoint
type MetricsResponse struct {
	Overall struct {
		TotalRounds   int `json:"total_rounds"`
		TotalFailures int `json:"total_failures"`
		TotalLines    int `json:"total_lines"`
		TotalDropped  int `json:"total_dropped"`
	} `json:"overall"`

	Sources []SourceMetrics `json:"sources"`
}

// GetMetrics returns structured metrics for JSON API
func (t *Tracker) GetMetrics() MetricsResponse {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var resp MetricsResponse
	resp.Sources = make([]SourceMetrics, 0, len(t.sources))
	for name, st := range t.sources {
		resp.Overall.TotalRounds += st.rounds
		resp.Overall.TotalFailures += st.failures
		resp.Overall.TotalLines += st.lines
		resp.Overall.TotalDropped += st.dropped

		sm := SourceMetrics{
			Source:       name,
			Rounds:       st.rounds,
			Failures:     st.failures,
			Skipped:      st.skipped,
			Lines:        st.lines,
			Dropped:      st.dropped,
			LastDuration: st.lastDuration.String(),
			LastState:    st.lastState,
			LastStage:    st.lastStage,
			LastError:    st.lastError,
			LastRoundAt:  st.lastRoundAt,
		}
		if st.rounds > 0 {
			sm.SuccessRate = float64(st.rounds-st.failures) / float64(st.rounds) * 100
			sm.AvgAttempts = float64(st.attempts) / float64(st.rounds)
			sm.AvgDuration = (st.duration / time.Duration(st.rounds)).String()
		}
		resp.Sources = append(resp.Sources, sm)
	}
	sort.Slice(resp.Sources, func(i, j int) bool { return resp.Sources[i].Source < resp.Sources[j].Source })
	return resp
}
