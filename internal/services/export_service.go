// internal/services/export_service.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	apperrors "github.com/vanplanner/VanLayoutMCP/internal/errors"
	"github.com/vanplanner/VanLayoutMCP/internal/layout"
	"github.com/vanplanner/VanLayoutMCP/internal/models"
	"github.com/vanplanner/VanLayoutMCP/internal/render"
	"github.com/vanplanner/VanLayoutMCP/internal/storage"
	"github.com/vanplanner/VanLayoutMCP/internal/utils"
)

const exportsDir = "exports"

var supportedExportFormats = []string{"png", "json"}

// ExportService 导出方案的俯视图或JSON快照
type ExportService struct {
	plans  *PlanService
	store  *storage.FileStorage
	logger *utils.Logger
	now    func() time.Time
}

// NewExportService creates the service. store may be nil, in which case
// exports are rendered but not kept.
func NewExportService(plans *PlanService, store *storage.FileStorage) *ExportService {
	return &ExportService{
		plans:  plans,
		store:  store,
		logger: utils.GetLogger(),
		now:    time.Now,
	}
}

// planSnapshot is the JSON export body.
type planSnapshot struct {
	Plan    *models.Plan           `json:"plan"`
	Vehicle models.VehicleEnvelope `json:"vehicle"`
	Views   *PlanViews             `json:"views"`
	Stats   layout.Stats           `json:"stats"`
}

// ExportPlan 导出方案
func (s *ExportService) ExportPlan(ctx context.Context, planID, format string) (*models.ExportResult, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "png"
	}
	if !contains(supportedExportFormats, format) {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("unsupported export format %q, supported: %v", format, supportedExportFormats), nil)
	}

	plan, err := s.plans.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	env, err := ResolveVehicle(plan.VehicleType)
	if err != nil {
		return nil, err
	}

	result := &models.ExportResult{
		PlanID:      plan.ID,
		Title:       fmt.Sprintf("%s - %s", plan.Name, env.Name),
		Format:      format,
		GeneratedAt: s.now().UTC(),
	}

	var buf bytes.Buffer
	switch format {
	case "png":
		opts := render.DefaultOptions()
		opts.Title = result.Title
		if err := render.RenderPlan(&buf, plan, env, opts); err != nil {
			return nil, apperrors.NewProcessingError("failed to render plan", err)
		}
		result.ContentType = "image/png"
	case "json":
		snapshot := planSnapshot{
			Plan:    plan,
			Vehicle: env,
			Views:   BuildViews(plan, env),
			Stats:   layout.ComputeStats(plan.Items, env),
		}
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(snapshot); err != nil {
			return nil, apperrors.NewProcessingError("failed to encode plan", err)
		}
		result.ContentType = "application/json"
	}
	result.Content = buf.Bytes()
	result.FileSize = int64(buf.Len())

	if s.store != nil {
		dir := path.Join(exportsDir, plan.ID)
		name := fmt.Sprintf("%s_%s.%s", plan.ID, result.GeneratedAt.Format("20060102_150405"), format)
		if err := s.store.SaveFile(dir, name, result.Content); err != nil {
			// 保存失败不影响返回内容
			s.logger.Warn("failed to keep export", map[string]interface{}{
				"plan_id": plan.ID,
				"error":   err.Error(),
			})
		} else {
			result.FilePath = path.Join(dir, name)
		}
	}

	s.logger.Info("Plan exported", map[string]interface{}{
		"plan_id": plan.ID,
		"format":  format,
		"bytes":   result.FileSize,
	})
	return result, nil
}

// ListExports 列出方案已保存的导出文件
func (s *ExportService) ListExports(planID string) ([]string, error) {
	if s.store == nil {
		return []string{}, nil
	}
	return s.store.ListFiles(path.Join(exportsDir, planID))
}

// DeleteExports removes every saved export of a plan.
func (s *ExportService) DeleteExports(planID string) error {
	if s.store == nil || planID == "" {
		return nil
	}
	return s.store.DeleteDir(path.Join(exportsDir, planID))
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
