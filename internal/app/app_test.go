package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanplanner/VanLayoutMCP/internal/config"
	"github.com/vanplanner/VanLayoutMCP/internal/di"
	"github.com/vanplanner/VanLayoutMCP/internal/services"
	"github.com/vanplanner/VanLayoutMCP/internal/utils"
)

func testConfig(t *testing.T) *config.AppConfig {
	t.Helper()
	dir := t.TempDir()
	return &config.AppConfig{
		Port:              "0",
		DataDir:           dir,
		DBPath:            filepath.Join(dir, "db", "vanlayout.db"),
		DebugMode:         true,
		ResolveAIOverlaps: true,
		LLMProvider:       "anthropic",
		LLMConfig:         map[string]string{},
		LLMTimeoutSeconds: 5,
	}
}

func TestInitServices(t *testing.T) {
	utils.GetLogger().SetOutput(io.Discard)
	container := di.NewContainer()

	a, err := InitServices(testConfig(t), container)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, a.Shutdown(context.Background())) })

	for _, name := range []string{di.Plan, di.Layout, di.LLM, di.Stats, di.Export, di.WebSocket, di.Metrics, di.Limiter} {
		assert.True(t, container.Has(name), name)
	}

	layoutService, err := di.Resolve[*services.LayoutService](container, di.Layout)
	require.NoError(t, err)
	assert.True(t, layoutService.ResolveOverlapsEnabled())
	llmService, err := di.Resolve[*services.LLMService](container, di.LLM)
	require.NoError(t, err)
	assert.False(t, llmService.IsReady())

	w := httptest.NewRecorder()
	body := strings.NewReader(`{"name": "Test", "vehicle_type": "fiat-ducato-l2h2"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/plans", body)
	req.Header.Set("Content-Type", "application/json")
	a.Router().ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	// 没有配置LLM时生成接口返回503
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/plans/"+resp.Data.ID+"/generate", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	a.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestInitServicesRequiresConfig(t *testing.T) {
	_, err := InitServices(nil, di.NewContainer())
	assert.Error(t, err)
}
