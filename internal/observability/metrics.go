package observability

import (
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Metrics are the process counters exposed on /metrics. A nil *Metrics is a
// valid no-op so callers never need to check whether metrics are enabled.
type Metrics struct {
	apiRequests   *CounterVec
	apiLatency    *HistogramVec
	llmRequests   *CounterVec
	llmLatency    *HistogramVec
	llmTokens     *CounterVec
	llmCost       *CounterVec
	ledgerOps     *CounterVec
	ledgerCredits *CounterVec
	stageTotal    *CounterVec
	stageLatency  *HistogramVec
	jobsResolved  *CounterVec
	usageFailures *CounterVec
}

var (
	mu       sync.RWMutex
	instance *Metrics
)

func Current() *Metrics {
	mu.RLock()
	defer mu.RUnlock()
	return instance
}

// Init installs the process-wide metrics when enabled and returns them.
func Init(enabled bool) *Metrics {
	if !enabled {
		return nil
	}
	mu.Lock()
	defer mu.Unlock()
	if instance == nil {
		instance = New()
	}
	return instance
}

// New returns an unregistered Metrics, for tests.
func New() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("sd_api_requests_total", "API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec("sd_api_request_duration_seconds", "API request latency.",
			[]string{"method", "route"}, []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30}),
		llmRequests: NewCounterVec("sd_llm_requests_total", "Model calls by model/status.", []string{"model", "status"}),
		llmLatency: NewHistogramVec("sd_llm_request_duration_seconds", "Model call latency.",
			[]string{"model"}, []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 180}),
		llmTokens:     NewCounterVec("sd_llm_tokens_total", "Model tokens by model/direction.", []string{"model", "direction"}),
		llmCost:       NewCounterVec("sd_llm_cost_usd_total", "Estimated model spend in USD.", []string{"model", "pricing_source"}),
		ledgerOps:     NewCounterVec("sd_ledger_operations_total", "Ledger operations by op/kind/outcome.", []string{"op", "kind", "outcome"}),
		ledgerCredits: NewCounterVec("sd_ledger_credits_total", "Credits moved by transaction kind.", []string{"kind"}),
		stageTotal:    NewCounterVec("sd_pipeline_stage_total", "Pipeline stage completions by outcome.", []string{"stage", "outcome"}),
		stageLatency: NewHistogramVec("sd_pipeline_stage_duration_seconds", "Pipeline stage latency.",
			[]string{"stage"}, []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600}),
		jobsResolved:  NewCounterVec("sd_jobs_resolved_total", "Jobs reaching a final state.", []string{"kind", "status"}),
		usageFailures: NewCounterVec("sd_usage_record_failures_total", "Token usage records that could not be written.", []string{"operation"}),
	}
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	method = strings.ToUpper(method)
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route)
}

func (m *Metrics) ObserveLLMRequest(model, status string, dur time.Duration, promptTokens, completionTokens int) {
	if m == nil {
		return
	}
	m.llmRequests.Inc(model, status)
	if dur > 0 {
		m.llmLatency.Observe(dur.Seconds(), model)
	}
	m.llmTokens.Add(float64(promptTokens), model, "prompt")
	m.llmTokens.Add(float64(completionTokens), model, "completion")
}

func (m *Metrics) AddLLMCost(model, source string, usd float64) {
	if m == nil {
		return
	}
	m.llmCost.Add(usd, model, source)
}

func (m *Metrics) ObserveLedger(op, kind, outcome string, amount int) {
	if m == nil {
		return
	}
	m.ledgerOps.Inc(op, kind, outcome)
	if outcome == "ok" && amount > 0 {
		m.ledgerCredits.Add(float64(amount), kind)
	}
}

func (m *Metrics) ObserveStage(stage, outcome string, dur time.Duration) {
	if m == nil {
		return
	}
	m.stageTotal.Inc(stage, outcome)
	m.stageLatency.Observe(dur.Seconds(), stage)
}

func (m *Metrics) IncJobResolved(kind, status string) {
	if m == nil {
		return
	}
	m.jobsResolved.Inc(kind, status)
}

func (m *Metrics) IncUsageFailure(operation string) {
	if m == nil {
		return
	}
	m.usageFailures.Inc(operation)
}

// LedgerOps reads one ledger counter, for tests and diagnostics.
func (m *Metrics) LedgerOps(op, kind, outcome string) float64 {
	if m == nil {
		return 0
	}
	return m.ledgerOps.Value(op, kind, outcome)
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, _ *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	writers := []interface{ WritePrometheus(io.Writer) error }{
		m.apiRequests, m.apiLatency,
		m.llmRequests, m.llmLatency, m.llmTokens, m.llmCost,
		m.ledgerOps, m.ledgerCredits,
		m.stageTotal, m.stageLatency,
		m.jobsResolved, m.usageFailures,
	}
	for _, wr := range writers {
		if err := wr.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}
