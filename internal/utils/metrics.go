// internal/utils/metrics.go
package utils

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// MetricsCollector collects application metrics
type MetricsCollector struct {
	counters   map[string]*int64
	gauges     map[string]*int64
	histograms map[string]*Histogram

	mu sync.RWMutex
}

// Histogram tracks count, sum, min and max of observed values
type Histogram struct {
	count int64
	sum   int64
	min   int64
	max   int64
	mu    sync.Mutex
}

var (
	globalMetrics *MetricsCollector
	metricsOnce   sync.Once
)

// NewMetricsCollector creates an empty collector
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		counters:   make(map[string]*int64),
		gauges:     make(map[string]*int64),
		histograms: make(map[string]*Histogram),
	}
}

// GetMetricsCollector returns the global metrics collector
func GetMetricsCollector() *MetricsCollector {
	metricsOnce.Do(func() {
		globalMetrics = NewMetricsCollector()
	})
	return globalMetrics
}

// slot returns the atomic cell for name, creating it under the write lock
// only on first use.
func (m *MetricsCollector) slot(set map[string]*int64, name string) *int64 {
	m.mu.RLock()
	v, exists := set[name]
	m.mu.RUnlock()
	if exists {
		return v
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if v, exists = set[name]; !exists {
		v = new(int64)
		set[name] = v
	}
	return v
}

// IncrementCounter increments a counter metric
func (m *MetricsCollector) IncrementCounter(name string) {
	atomic.AddInt64(m.slot(m.counters, name), 1)
}

// AddCounter adds a value to a counter metric
func (m *MetricsCollector) AddCounter(name string, value int64) {
	atomic.AddInt64(m.slot(m.counters, name), value)
}

// SetGauge sets a gauge metric
func (m *MetricsCollector) SetGauge(name string, value int64) {
	atomic.StoreInt64(m.slot(m.gauges, name), value)
}

// IncGauge increments a gauge metric
func (m *MetricsCollector) IncGauge(name string) {
	atomic.AddInt64(m.slot(m.gauges, name), 1)
}

// DecGauge decrements a gauge metric
func (m *MetricsCollector) DecGauge(name string) {
	atomic.AddInt64(m.slot(m.gauges, name), -1)
}

// GetCounterValue gets the current value of a counter
func (m *MetricsCollector) GetCounterValue(name string) int64 {
	m.mu.RLock()
	v, exists := m.counters[name]
	m.mu.RUnlock()
	if !exists {
		return 0
	}
	return atomic.LoadInt64(v)
}

// GetGauge gets the current value of a gauge
func (m *MetricsCollector) GetGauge(name string) int64 {
	m.mu.RLock()
	v, exists := m.gauges[name]
	m.mu.RUnlock()
	if !exists {
		return 0
	}
	return atomic.LoadInt64(v)
}

// RecordHistogram records a value in a histogram
func (m *MetricsCollector) RecordHistogram(name string, value int64) {
	m.mu.RLock()
	h, exists := m.histograms[name]
	m.mu.RUnlock()

	if !exists {
		m.mu.Lock()
		if h, exists = m.histograms[name]; !exists {
			h = &Histogram{min: value, max: value}
			m.histograms[name] = h
		}
		m.mu.Unlock()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	if value < h.min {
		h.min = value
	}
	if value > h.max {
		h.max = value
	}
}

// GetMetrics returns a snapshot of all metrics
func (m *MetricsCollector) GetMetrics() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counters := make(map[string]int64, len(m.counters))
	for name, v := range m.counters {
		counters[name] = atomic.LoadInt64(v)
	}

	gauges := make(map[string]int64, len(m.gauges))
	for name, v := range m.gauges {
		gauges[name] = atomic.LoadInt64(v)
	}

	histograms := make(map[string]map[string]int64, len(m.histograms))
	for name, h := range m.histograms {
		h.mu.Lock()
		histograms[name] = map[string]int64{
			"count": h.count,
			"sum":   h.sum,
			"min":   h.min,
			"max":   h.max,
		}
		h.mu.Unlock()
	}

	return map[string]interface{}{
		"counters":   counters,
		"gauges":     gauges,
		"histograms": histograms,
	}
}

// LayoutMetrics records planner-specific metrics
type LayoutMetrics struct {
	metrics *MetricsCollector
	logger  *Logger
}

// NewLayoutMetrics creates a metrics recorder backed by the global collector
func NewLayoutMetrics() *LayoutMetrics {
	return &LayoutMetrics{
		metrics: GetMetricsCollector(),
		logger:  GetLogger(),
	}
}

// Collector exposes the underlying collector.
func (lm *LayoutMetrics) Collector() *MetricsCollector {
	return lm.metrics
}

// RecordAPIRequest records metrics for an API request
func (lm *LayoutMetrics) RecordAPIRequest(endpoint, method string, statusCode int, duration time.Duration) {
	lm.metrics.IncrementCounter("api_requests_total")
	lm.metrics.IncrementCounter("api_requests_" + method + "_" + endpoint)
	lm.metrics.IncrementCounter("api_responses_" + strconv.Itoa(statusCode/100) + "xx")
	lm.metrics.RecordHistogram("api_response_time_ms", duration.Milliseconds())

	lm.logger.Debug("API request completed", map[string]interface{}{
		"endpoint": endpoint,
		"method":   method,
		"status":   statusCode,
		"duration": duration.Milliseconds(),
	})
}

// RecordPlacement counts placement searches by the strategy that won
func (lm *LayoutMetrics) RecordPlacement(strategy string, exhausted bool) {
	lm.metrics.IncrementCounter("placement_total")
	lm.metrics.IncrementCounter("placement_strategy_" + strategy)
	if exhausted {
		lm.metrics.IncrementCounter("placement_exhausted")
	}
}

// RecordCollisionRejected counts edits refused because of an overlap or bounds violation
func (lm *LayoutMetrics) RecordCollisionRejected(reason string) {
	lm.metrics.IncrementCounter("edits_rejected_total")
	lm.metrics.IncrementCounter("edits_rejected_" + reason)
}

// RecordIngestion records one AI ingestion run
func (lm *LayoutMetrics) RecordIngestion(items int, repaired bool, warnings int, failed bool) {
	lm.metrics.IncrementCounter("ingest_total")
	if failed {
		lm.metrics.IncrementCounter("ingest_failed")
		return
	}
	if repaired {
		lm.metrics.IncrementCounter("ingest_repaired")
	}
	lm.metrics.AddCounter("ingest_items_total", int64(items))
	lm.metrics.AddCounter("ingest_warnings_total", int64(warnings))
}

// RecordLLMRequest records metrics for an LLM request
func (lm *LayoutMetrics) RecordLLMRequest(provider, model string, tokensUsed int, duration time.Duration) {
	lm.metrics.IncrementCounter("llm_requests_total")
	lm.metrics.IncrementCounter("llm_requests_" + provider)
	lm.metrics.AddCounter("llm_tokens_total", int64(tokensUsed))
	lm.metrics.RecordHistogram("llm_response_time_ms", duration.Milliseconds())

	lm.logger.Info("LLM request completed", map[string]interface{}{
		"provider": provider,
		"model":    model,
		"tokens":   tokensUsed,
		"duration": duration.Milliseconds(),
	})
}

// StartMetricsCollection periodically logs a metrics summary until ctx is done
func (lm *LayoutMetrics) StartMetricsCollection(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				lm.logger.Info("Periodic metrics report", map[string]interface{}{
					"metrics": lm.metrics.GetMetrics(),
				})
			}
		}
	}()
}
