package utils

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanLLMJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"code fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"prose around", "Here is your layout: {\"a\":{\"b\":2}} Hope it helps!", `{"a":{"b":2}}`},
		{"array", "result: [1,2,[3]] done", `[1,2,[3]]`},
		{"brace inside string", `{"a":"}"} trailing`, `{"a":"}"}`},
		{"typographic quotes", "{“a”：1}", `{"a":1}`},
		{"no json", "sorry, I cannot", "sorry, I cannot"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanLLMJSON(tt.in))
		})
	}
}

func TestSplitJSONStrings(t *testing.T) {
	parts := SplitJSONStrings(`{"a": "x, y: \"z\"", b: 1}`)
	assert.Equal(t, []string{`{`, `"a"`, `: `, `"x, y: \"z\""`, `, b: 1}`}, parts)
	assert.Equal(t, `{"a": "x, y: \"z\"", b: 1}`, strings.Join(parts, ""))
}

func TestLoggerWritesFieldsSorted(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, INFO)

	logger.Debug("hidden", nil)
	logger.Warn("layout defaulted", map[string]interface{}{"stage": "defaulting", "field": "layout"})

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[WARNING]")
	assert.Contains(t, out, "layout defaulted | field=layout stage=defaulting")
}

func TestMetricsCollector(t *testing.T) {
	m := NewMetricsCollector()
	m.IncrementCounter("placement_total")
	m.AddCounter("placement_total", 2)
	m.SetGauge("ws_clients", 4)
	m.DecGauge("ws_clients")
	m.RecordHistogram("latency", 10)
	m.RecordHistogram("latency", 4)

	assert.Equal(t, int64(3), m.GetCounterValue("placement_total"))
	assert.Equal(t, int64(3), m.GetGauge("ws_clients"))
	snapshot := m.GetMetrics()
	hist := snapshot["histograms"].(map[string]map[string]int64)["latency"]
	assert.Equal(t, int64(2), hist["count"])
	assert.Equal(t, int64(4), hist["min"])
	assert.Equal(t, int64(10), hist["max"])
}
