// internal/services/layout_service.go
package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	apperrors "github.com/vanplanner/VanLayoutMCP/internal/errors"
	"github.com/vanplanner/VanLayoutMCP/internal/ingest"
	"github.com/vanplanner/VanLayoutMCP/internal/layout"
	"github.com/vanplanner/VanLayoutMCP/internal/llm"
	"github.com/vanplanner/VanLayoutMCP/internal/models"
	"github.com/vanplanner/VanLayoutMCP/internal/storage"
	"github.com/vanplanner/VanLayoutMCP/internal/utils"
)

const (
	journalDir        = "journal"
	layoutTemperature = 0.4
	layoutMaxTokens   = 4096
)

// LayoutService 调用LLM生成或优化布局，并把响应交给 ingest 管道
type LayoutService struct {
	llm      *LLMService
	pipeline *ingest.Pipeline
	stats    *StatsService
	journal  *storage.FileStorage
	metrics  *utils.LayoutMetrics
	logger   *utils.Logger
	now      func() time.Time

	resolveOverlaps atomic.Bool
}

// NewLayoutService wires the AI layout flow. stats, journal and metrics may be nil.
func NewLayoutService(llmService *LLMService, pipeline *ingest.Pipeline, stats *StatsService,
	journal *storage.FileStorage, metrics *utils.LayoutMetrics, resolveOverlaps bool) *LayoutService {
	if pipeline == nil {
		pipeline = ingest.New()
	}
	s := &LayoutService{
		llm:      llmService,
		pipeline: pipeline,
		stats:    stats,
		journal:  journal,
		metrics:  metrics,
		logger:   utils.GetLogger(),
		now:      time.Now,
	}
	s.resolveOverlaps.Store(resolveOverlaps)
	return s
}

// ResolveOverlapsEnabled reports the default overlap policy for AI items.
func (s *LayoutService) ResolveOverlapsEnabled() bool {
	return s.resolveOverlaps.Load()
}

// SetResolveOverlaps changes the default overlap policy.
func (s *LayoutService) SetResolveOverlaps(enabled bool) {
	s.resolveOverlaps.Store(enabled)
}

func (s *LayoutService) shouldResolve(override *bool) bool {
	if override != nil {
		return *override
	}
	return s.ResolveOverlapsEnabled()
}

// ResolveVehicle looks up a vehicle, defaulting an empty type.
func ResolveVehicle(vehicleType string) (models.VehicleEnvelope, error) {
	if vehicleType == "" {
		vehicleType = models.DefaultVehicleType
	}
	env, ok := models.LookupVehicle(vehicleType)
	if !ok {
		return models.VehicleEnvelope{}, apperrors.NewValidationError(
			fmt.Sprintf("unknown vehicle type %q", vehicleType), nil).
			WithDetail("vehicle_type", vehicleType)
	}
	return env, nil
}

// Generate asks the LLM for a fresh layout.
func (s *LayoutService) Generate(ctx context.Context, planID string, req models.LayoutGenerationRequest) (*models.LayoutGenerationResult, error) {
	env, err := ResolveVehicle(req.VehicleType)
	if err != nil {
		return nil, err
	}
	prompt := buildGeneratePrompt(req, env)
	return s.complete(ctx, "generate", planID, prompt, env, req.ResolveOverlaps, req.Existing)
}

// Optimize asks the LLM to revise an existing plan.
func (s *LayoutService) Optimize(ctx context.Context, plan *models.Plan, goals string, resolve *bool) (*models.LayoutGenerationResult, error) {
	env, err := ResolveVehicle(plan.VehicleType)
	if err != nil {
		return nil, err
	}
	prompt := buildOptimizePrompt(plan, env, goals)
	return s.complete(ctx, "optimize", plan.ID, prompt, env, resolve, nil)
}

func (s *LayoutService) complete(ctx context.Context, kind, planID, prompt string, env models.VehicleEnvelope, resolve *bool, existing []models.FurnitureItem) (*models.LayoutGenerationResult, error) {
	if s.llm == nil {
		return nil, apperrors.NewUnavailableError("LLM service not configured", nil)
	}

	resp, err := s.llm.CompleteText(ctx, llm.CompletionRequest{
		Prompt:       prompt,
		SystemPrompt: layoutSystemPrompt,
		Temperature:  layoutTemperature,
		MaxTokens:    layoutMaxTokens,
	}, false)
	if err != nil {
		return nil, err
	}
	if s.stats != nil {
		if err := s.stats.RecordAIRequest(resp.TokensUsed); err != nil {
			s.logger.Warn("failed to record AI usage", map[string]interface{}{"error": err.Error()})
		}
	}

	provider := resp.ProviderName
	if provider == "" {
		provider = s.llm.GetProviderName()
	}

	result, err := s.ingest(kind, planID, provider, resp.Text, env, resolve, existing)
	if err != nil {
		return nil, err
	}
	s.logger.Info("AI layout ingested", map[string]interface{}{
		"kind":     kind,
		"plan_id":  planID,
		"items":    len(result.Items),
		"repaired": result.Repaired,
		"warnings": len(result.Warnings),
		"resolved": result.Resolved,
	})
	return result, nil
}

// IngestRaw runs text through the ingestion pipeline without calling an LLM.
func (s *LayoutService) IngestRaw(raw, vehicleType string, resolve *bool) (*models.LayoutGenerationResult, error) {
	env, err := ResolveVehicle(vehicleType)
	if err != nil {
		return nil, err
	}
	return s.ingest("ingest", "", "manual", raw, env, resolve, nil)
}

// ingest parses raw and, when the overlap policy is on, moves AI items off
// existing and off each other.
func (s *LayoutService) ingest(kind, planID, provider, raw string, env models.VehicleEnvelope, resolve *bool, existing []models.FurnitureItem) (*models.LayoutGenerationResult, error) {
	entry := models.AIJournalEntry{
		PlanID:    planID,
		Kind:      kind,
		Provider:  provider,
		Raw:       raw,
		CreatedAt: s.now(),
	}

	res, err := s.pipeline.Ingest(raw, env)
	if err != nil {
		entry.Error = err.Error()
		s.record(entry, 0, false, 0, true)
		return nil, err
	}
	entry.Warnings = res.Warnings
	s.record(entry, len(res.Items), res.Repaired, len(res.Warnings), false)

	items := res.Items
	resolved := 0
	if s.shouldResolve(resolve) {
		items, resolved = layout.ResolveOverlaps(items, existing, env)
	}

	return &models.LayoutGenerationResult{
		Items:        items,
		Explanation:  res.Explanation,
		Alternatives: res.Alternatives,
		Improvements: res.Improvements,
		Repaired:     res.Repaired,
		Warnings:     res.Warnings,
		Resolved:     resolved,
		Provider:     provider,
		GeneratedAt:  entry.CreatedAt,
	}, nil
}

// record 写入AI响应日志和指标
func (s *LayoutService) record(entry models.AIJournalEntry, items int, repaired bool, warnings int, failed bool) {
	if s.metrics != nil {
		s.metrics.RecordIngestion(items, repaired, warnings, failed)
	}
	if s.journal == nil {
		return
	}
	entry.Raw = apperrors.Truncate(entry.Raw, 8000)
	filename := entry.CreatedAt.Format("2006-01-02") + ".jsonl"
	if err := s.journal.AppendJSONLine(journalDir, filename, entry); err != nil {
		s.logger.Warn("failed to write AI journal", map[string]interface{}{"error": err.Error()})
	}
}
