// internal/services/plan_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/vanplanner/VanLayoutMCP/internal/errors"
	"github.com/vanplanner/VanLayoutMCP/internal/layout"
	"github.com/vanplanner/VanLayoutMCP/internal/models"
	"github.com/vanplanner/VanLayoutMCP/internal/utils"
)

const defaultPlanName = "Untitled layout"

// 方案事件类型
const (
	EventPlanUpdated = "plan_updated"
	EventPlanDeleted = "plan_deleted"
)

// PlanStore persists plans. storage.PlanRepository implements it.
type PlanStore interface {
	Create(ctx context.Context, plan *models.Plan) error
	Get(ctx context.Context, id string) (*models.Plan, error)
	Update(ctx context.Context, plan *models.Plan) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*models.Plan, error)
}

// PlanEvent 方案变更事件，推送给订阅了该方案的客户端
type PlanEvent struct {
	Type      string       `json:"type"`
	PlanID    string       `json:"plan_id"`
	ItemID    string       `json:"item_id,omitempty"`
	Plan      *models.Plan `json:"plan,omitempty"`
	Views     *PlanViews   `json:"views,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// PlanNotifier receives plan events after a mutation commits.
type PlanNotifier interface {
	NotifyPlanChanged(event PlanEvent)
}

// PlanViews carries both presentations of every item.
type PlanViews struct {
	PlanID  string                 `json:"plan_id"`
	Vehicle models.VehicleEnvelope `json:"vehicle"`
	View2D  []layout.View2D        `json:"view_2d"`
	View3D  []layout.View3D        `json:"view_3d"`
}

// CreatePlanRequest 创建方案请求
type CreatePlanRequest struct {
	Name        string                 `json:"name"`
	VehicleType string                 `json:"vehicle_type"`
	Notes       string                 `json:"notes"`
	Items       []models.FurnitureItem `json:"items"`
}

// UpdatePlanRequest 更新方案元数据，nil 字段保持不变
type UpdatePlanRequest struct {
	Name        *string `json:"name"`
	VehicleType *string `json:"vehicle_type"`
	Notes       *string `json:"notes"`
}

// AddFurnitureRequest describes a piece to add. Missing dimensions come from
// the type preset; X and Y are searched for when both are nil.
type AddFurnitureRequest struct {
	Type     string           `json:"type"`
	Name     string           `json:"name"`
	X        *float64         `json:"x"`
	Y        *float64         `json:"y"`
	Z        float64          `json:"z"`
	Width    *float64         `json:"width"`
	Height   *float64         `json:"height"`
	Depth    *float64         `json:"depth"`
	Rotation *models.Rotation `json:"rotation"`
	Color    string           `json:"color"`
}

// AddFurnitureResult 添加家具结果
type AddFurnitureResult struct {
	Item      models.FurnitureItem `json:"item"`
	Placement *layout.Placement    `json:"placement,omitempty"`
	Warnings  []string             `json:"warnings,omitempty"`
}

// CollisionCheckResult answers whether a candidate could be committed.
type CollisionCheckResult struct {
	Collides      bool     `json:"collides"`
	InBounds      bool     `json:"in_bounds"`
	ConflictsWith []string `json:"conflicts_with"`
}

// PlanService 管理方案及其家具集合，所有写操作在方案写锁下执行
type PlanService struct {
	store    PlanStore
	locks    *LockManager
	notifier PlanNotifier
	metrics  *utils.LayoutMetrics
	logger   *utils.Logger
	newID    func() string
	now      func() time.Time
}

// NewPlanService creates the service. notifier and metrics may be nil.
func NewPlanService(store PlanStore, locks *LockManager, metrics *utils.LayoutMetrics) *PlanService {
	if locks == nil {
		locks = NewLockManager()
	}
	return &PlanService{
		store:   store,
		locks:   locks,
		metrics: metrics,
		logger:  utils.GetLogger(),
		newID:   uuid.NewString,
		now:     time.Now,
	}
}

// SetNotifier 设置变更通知接收者
func (s *PlanService) SetNotifier(n PlanNotifier) {
	s.notifier = n
}

// CreatePlan 创建方案，初始家具必须在界内且互不重叠
func (s *PlanService) CreatePlan(ctx context.Context, req CreatePlanRequest) (*models.Plan, error) {
	env, err := ResolveVehicle(req.VehicleType)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = defaultPlanName
	}
	items, err := s.prepareItems(req.Items, nil, env)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	plan := &models.Plan{
		ID:          s.newID(),
		Name:        name,
		VehicleType: env.Type,
		Items:       items,
		Notes:       req.Notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Create(ctx, plan); err != nil {
		return nil, err
	}

	s.logger.Info("Plan created", map[string]interface{}{
		"plan_id": plan.ID,
		"vehicle": plan.VehicleType,
		"items":   len(plan.Items),
	})
	return plan, nil
}

// GetPlan 读取方案
func (s *PlanService) GetPlan(ctx context.Context, id string) (*models.Plan, error) {
	var plan *models.Plan
	err := s.locks.ExecuteWithPlanReadLock(id, func() error {
		var err error
		plan, err = s.store.Get(ctx, id)
		return err
	})
	return plan, err
}

// ListPlans returns summaries, most recently updated first.
func (s *PlanService) ListPlans(ctx context.Context) ([]models.PlanSummary, error) {
	plans, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	summaries := make([]models.PlanSummary, 0, len(plans))
	for _, p := range plans {
		summaries = append(summaries, p.Summary())
	}
	return summaries, nil
}

// UpdatePlan 更新名称、备注或车型；更换车型时所有家具须仍在界内
func (s *PlanService) UpdatePlan(ctx context.Context, id string, req UpdatePlanRequest) (*models.Plan, error) {
	return s.mutate(ctx, id, "", func(plan *models.Plan) error {
		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return apperrors.NewValidationError("plan name cannot be empty", nil)
			}
			plan.Name = name
		}
		if req.Notes != nil {
			plan.Notes = *req.Notes
		}
		if req.VehicleType != nil && *req.VehicleType != plan.VehicleType {
			env, err := ResolveVehicle(*req.VehicleType)
			if err != nil {
				return err
			}
			for _, item := range plan.Items {
				if err := layout.ValidateBounds(item, env); err != nil {
					return withItemDetail(err, item.ID)
				}
			}
			plan.VehicleType = env.Type
		}
		return nil
	})
}

// DeletePlan 删除方案
func (s *PlanService) DeletePlan(ctx context.Context, id string) error {
	err := s.locks.ExecuteWithPlanLock(id, func() error {
		return s.store.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.logger.Info("Plan deleted", map[string]interface{}{"plan_id": id})
	s.notify(PlanEvent{Type: EventPlanDeleted, PlanID: id, Timestamp: s.now().UTC()})
	return nil
}

// AddFurniture places a new item. With explicit X and Y the position is only
// validated; otherwise a placement search picks it.
func (s *PlanService) AddFurniture(ctx context.Context, planID string, req AddFurnitureRequest) (*AddFurnitureResult, error) {
	itemType, ok := models.ParseFurnitureType(req.Type)
	if !ok {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown furniture type %q", req.Type), nil).
			WithDetail("field", "type")
	}
	if (req.X == nil) != (req.Y == nil) {
		return nil, apperrors.NewValidationError("x and y must be given together", nil)
	}
	item, err := s.itemFromRequest(itemType, req)
	if err != nil {
		return nil, err
	}

	result := &AddFurnitureResult{}
	_, err = s.mutate(ctx, planID, item.ID, func(plan *models.Plan) error {
		env, err := ResolveVehicle(plan.VehicleType)
		if err != nil {
			return err
		}
		fp := layout.Footprint(item)
		if !layout.FitsEnvelope(fp.Width, fp.Height, env) {
			s.reject("bounds")
			return apperrors.NewOutOfBoundsError(
				fmt.Sprintf("%s %.0fx%.0f mm does not fit vehicle %s", item.Type, fp.Width, fp.Height, env.Type), nil).
				WithDetail("item_id", item.ID)
		}

		if req.X != nil {
			item.X, item.Y = *req.X, *req.Y
		} else {
			p := layout.FindPlacement(layout.Footprint2D{Width: fp.Width, Height: fp.Height}, plan.Items, env)
			if s.metrics != nil {
				s.metrics.RecordPlacement(string(p.Strategy), p.Exhausted)
			}
			item = layout.AtFootprint(item, p.X, p.Y)
			result.Placement = &p
			if p.Exhausted {
				result.Warnings = append(result.Warnings, "no free position found, item placed at the vehicle center")
			}
		}

		if err := layout.CheckCommit(item, plan.Items, env, layout.Mode3D); err != nil {
			s.reject(rejectReason(err))
			if result.Placement != nil && result.Placement.Exhausted {
				var appErr *apperrors.AppError
				if errors.As(err, &appErr) {
					appErr.WithDetail("placement_exhausted", true)
				}
			}
			return err
		}
		plan.Items = append(plan.Items, item)
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.Item = item
	return result, nil
}

func (s *PlanService) itemFromRequest(itemType models.FurnitureType, req AddFurnitureRequest) (models.FurnitureItem, error) {
	preset := models.PresetFor(itemType)
	item := models.FurnitureItem{
		ID:       s.newID(),
		Type:     itemType,
		Name:     strings.TrimSpace(req.Name),
		Z:        req.Z,
		Width:    preset.Width,
		Height:   preset.Height,
		Depth:    models.Float64Ptr(preset.Depth),
		Rotation: req.Rotation,
		Color:    req.Color,
	}
	if item.Name == "" {
		item.Name = preset.Name
	}
	if item.Color == "" {
		item.Color = preset.Color
	}
	if req.Width != nil {
		item.Width = *req.Width
	}
	if req.Height != nil {
		item.Height = *req.Height
	}
	if req.Depth != nil {
		item.Depth = models.Float64Ptr(*req.Depth)
	}

	switch {
	case item.Width <= 0:
		return item, apperrors.NewValidationError("width must be positive", nil).WithDetail("field", "width")
	case item.Height <= 0:
		return item, apperrors.NewValidationError("height must be positive", nil).WithDetail("field", "height")
	case item.Depth != nil && *item.Depth <= 0:
		return item, apperrors.NewValidationError("depth must be positive", nil).WithDetail("field", "depth")
	case item.Z < 0:
		return item, apperrors.NewValidationError("z cannot be negative", nil).WithDetail("field", "z")
	}
	return item, nil
}

// MoveFurniture applies an edit from either presentation. The delta is
// reconciled to canonical units and the result must pass bounds and 3D
// collision checks before it is written back.
func (s *PlanService) MoveFurniture(ctx context.Context, planID, itemID string, delta layout.Delta) (*models.FurnitureItem, error) {
	var moved models.FurnitureItem
	_, err := s.mutate(ctx, planID, itemID, func(plan *models.Plan) error {
		idx := plan.FindItem(itemID)
		if idx < 0 {
			return apperrors.NewNotFoundError(fmt.Sprintf("item %s not found in plan %s", itemID, planID), nil)
		}
		env, err := ResolveVehicle(plan.VehicleType)
		if err != nil {
			return err
		}

		patch := layout.Reconcile(plan.Items[idx], delta, env)
		if patch.IsEmpty() {
			return apperrors.NewValidationError("delta carries no change for the requested presentation", nil).
				WithDetail("presentation", string(delta.Presentation))
		}
		candidate := layout.ApplyPatch(plan.Items[idx], patch)
		if candidate.Width <= 0 || candidate.Height <= 0 || (candidate.Depth != nil && *candidate.Depth <= 0) {
			return apperrors.NewValidationError("edited size must be positive", nil).WithDetail("item_id", itemID)
		}
		if candidate.Z < 0 {
			s.reject("bounds")
			return apperrors.NewOutOfBoundsError("item cannot sit below the floor", nil).WithDetail("item_id", itemID)
		}
		if err := layout.CheckCommit(candidate, plan.Items, env, layout.Mode3D); err != nil {
			s.reject(rejectReason(err))
			return err
		}
		plan.Items[idx] = candidate
		moved = candidate
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &moved, nil
}

// DeleteFurniture 从方案中删除家具
func (s *PlanService) DeleteFurniture(ctx context.Context, planID, itemID string) error {
	_, err := s.mutate(ctx, planID, itemID, func(plan *models.Plan) error {
		idx := plan.FindItem(itemID)
		if idx < 0 {
			return apperrors.NewNotFoundError(fmt.Sprintf("item %s not found in plan %s", itemID, planID), nil)
		}
		plan.Items = append(plan.Items[:idx], plan.Items[idx+1:]...)
		return nil
	})
	return err
}

// ApplyLayout writes AI-produced items into a plan. With replace the current
// items are dropped first. Either every item commits or none does.
func (s *PlanService) ApplyLayout(ctx context.Context, planID string, items []models.FurnitureItem, replace bool) (*models.Plan, error) {
	return s.mutate(ctx, planID, "", func(plan *models.Plan) error {
		env, err := ResolveVehicle(plan.VehicleType)
		if err != nil {
			return err
		}
		var base []models.FurnitureItem
		if !replace {
			base = plan.Items
		}
		next, err := s.prepareItems(items, base, env)
		if err != nil {
			return err
		}
		plan.Items = next
		return nil
	})
}

// CheckCollision reports whether candidate could be committed to the plan.
// The candidate's own ID is ignored, so an existing item can be checked at a
// new position.
func (s *PlanService) CheckCollision(ctx context.Context, planID string, candidate models.FurnitureItem, mode layout.Mode) (*CollisionCheckResult, error) {
	if mode == "" {
		mode = layout.Mode3D
	}
	if mode != layout.Mode2D && mode != layout.Mode3D {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown collision mode %q", mode), nil)
	}
	if candidate.Width <= 0 || candidate.Height <= 0 {
		return nil, apperrors.NewValidationError("candidate needs a positive width and height", nil)
	}

	plan, err := s.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	env, err := ResolveVehicle(plan.VehicleType)
	if err != nil {
		return nil, err
	}

	result := &CollisionCheckResult{
		InBounds:      layout.ValidateBounds(candidate, env) == nil,
		ConflictsWith: []string{},
	}
	for _, other := range plan.Items {
		if other.ID == candidate.ID && candidate.ID != "" {
			continue
		}
		if layout.Collides(candidate, other, mode) {
			result.ConflictsWith = append(result.ConflictsWith, other.ID)
		}
	}
	result.Collides = len(result.ConflictsWith) > 0
	return result, nil
}

// Views returns the 2D and 3D projection of every item.
func (s *PlanService) Views(ctx context.Context, planID string) (*PlanViews, error) {
	plan, err := s.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	env, err := ResolveVehicle(plan.VehicleType)
	if err != nil {
		return nil, err
	}
	return BuildViews(plan, env), nil
}

// Stats 方案统计
func (s *PlanService) Stats(ctx context.Context, planID string) (*layout.Stats, error) {
	plan, err := s.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	env, err := ResolveVehicle(plan.VehicleType)
	if err != nil {
		return nil, err
	}
	stats := layout.ComputeStats(plan.Items, env)
	return &stats, nil
}

// BuildViews projects every item of plan into both presentations.
func BuildViews(plan *models.Plan, env models.VehicleEnvelope) *PlanViews {
	views := &PlanViews{
		PlanID:  plan.ID,
		Vehicle: env,
		View2D:  make([]layout.View2D, 0, len(plan.Items)),
		View3D:  make([]layout.View3D, 0, len(plan.Items)),
	}
	for _, item := range plan.Items {
		views.View2D = append(views.View2D, layout.Project2D(item))
		views.View3D = append(views.View3D, layout.Project3D(item, env))
	}
	return views
}

// mutate 在方案写锁下读取、修改并保存方案，成功后发送通知
func (s *PlanService) mutate(ctx context.Context, planID, itemID string, fn func(plan *models.Plan) error) (*models.Plan, error) {
	var updated *models.Plan
	err := s.locks.ExecuteWithPlanLock(planID, func() error {
		plan, err := s.store.Get(ctx, planID)
		if err != nil {
			return err
		}
		if err := fn(plan); err != nil {
			return err
		}
		plan.UpdatedAt = s.now().UTC()
		if err := s.store.Update(ctx, plan); err != nil {
			return err
		}
		updated = plan
		return nil
	})
	if err != nil {
		return nil, err
	}

	event := PlanEvent{
		Type:      EventPlanUpdated,
		PlanID:    planID,
		ItemID:    itemID,
		Plan:      updated,
		Timestamp: updated.UpdatedAt,
	}
	if env, err := ResolveVehicle(updated.VehicleType); err == nil {
		event.Views = BuildViews(updated, env)
	} else {
		s.logger.Warn("plan updated with unknown vehicle, views not broadcast", map[string]interface{}{
			"plan_id":      planID,
			"vehicle_type": updated.VehicleType,
			"error":        err.Error(),
		})
	}
	s.notify(event)
	return updated, nil
}

// prepareItems assigns missing IDs and validates items one by one against
// base plus the items accepted before them.
func (s *PlanService) prepareItems(items, base []models.FurnitureItem, env models.VehicleEnvelope) ([]models.FurnitureItem, error) {
	out := models.CloneItems(base)
	seen := make(map[string]bool, len(out)+len(items))
	for _, item := range out {
		seen[item.ID] = true
	}

	for i, item := range items {
		item = item.Clone()
		if item.ID == "" || seen[item.ID] {
			item.ID = s.newID()
		}
		if !item.Type.IsValid() {
			return nil, apperrors.NewValidationError(fmt.Sprintf("item %d has unknown type %q", i, item.Type), nil).
				WithDetail("item_index", i)
		}
		if item.Width <= 0 || item.Height <= 0 {
			return nil, apperrors.NewValidationError(fmt.Sprintf("item %d needs a positive width and height", i), nil).
				WithDetail("item_index", i)
		}
		if item.Name == "" {
			item.Name = models.PresetFor(item.Type).Name
		}
		if err := layout.CheckCommit(item, out, env, layout.Mode3D); err != nil {
			s.reject(rejectReason(err))
			return nil, withItemDetail(err, item.ID)
		}
		seen[item.ID] = true
		out = append(out, item)
	}
	return out, nil
}

func (s *PlanService) notify(event PlanEvent) {
	if s.notifier != nil {
		s.notifier.NotifyPlanChanged(event)
	}
}

func (s *PlanService) reject(reason string) {
	if s.metrics != nil {
		s.metrics.RecordCollisionRejected(reason)
	}
}

func rejectReason(err error) string {
	if apperrors.IsOutOfBoundsError(err) {
		return "bounds"
	}
	return "overlap"
}

func withItemDetail(err error, itemID string) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if _, ok := appErr.Details["item_id"]; !ok {
			appErr.WithDetail("item_id", itemID)
		}
	}
	return err
}
