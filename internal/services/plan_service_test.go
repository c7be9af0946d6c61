package services

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/vanplanner/VanLayoutMCP/internal/errors"
	"github.com/vanplanner/VanLayoutMCP/internal/layout"
	"github.com/vanplanner/VanLayoutMCP/internal/models"
	"github.com/vanplanner/VanLayoutMCP/internal/utils"
)

// memPlanStore is an in-memory PlanStore.
type memPlanStore struct {
	mu    sync.Mutex
	plans map[string]*models.Plan
}

func newMemPlanStore() *memPlanStore {
	return &memPlanStore{plans: make(map[string]*models.Plan)}
}

func clonePlan(p *models.Plan) *models.Plan {
	c := *p
	c.Items = models.CloneItems(p.Items)
	return &c
}

func (m *memPlanStore) Create(_ context.Context, plan *models.Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.plans[plan.ID]; ok {
		return apperrors.NewConflictError("plan exists", nil)
	}
	m.plans[plan.ID] = clonePlan(plan)
	return nil
}

func (m *memPlanStore) Get(_ context.Context, id string) (*models.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.plans[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("plan not found", nil)
	}
	return clonePlan(p), nil
}

func (m *memPlanStore) Update(_ context.Context, plan *models.Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.plans[plan.ID]; !ok {
		return apperrors.NewNotFoundError("plan not found", nil)
	}
	m.plans[plan.ID] = clonePlan(plan)
	return nil
}

func (m *memPlanStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.plans[id]; !ok {
		return apperrors.NewNotFoundError("plan not found", nil)
	}
	delete(m.plans, id)
	return nil
}

func (m *memPlanStore) List(_ context.Context) ([]*models.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Plan, 0, len(m.plans))
	for _, p := range m.plans {
		out = append(out, clonePlan(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []PlanEvent
}

func (r *recordingNotifier) NotifyPlanChanged(event PlanEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingNotifier) last() PlanEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

func newTestPlanService(t *testing.T) (*PlanService, *recordingNotifier) {
	t.Helper()
	svc := NewPlanService(newMemPlanStore(), NewLockManager(), utils.NewLayoutMetrics())
	notifier := &recordingNotifier{}
	svc.SetNotifier(notifier)
	return svc, notifier
}

func f64(v float64) *float64 { return &v }

func TestPlanServiceIDBuzzScenario(t *testing.T) {
	ctx := context.Background()
	svc, notifier := newTestPlanService(t)

	plan, err := svc.CreatePlan(ctx, CreatePlanRequest{Name: "Weekend", VehicleType: "vw-id-buzz"})
	require.NoError(t, err)

	bed, err := svc.AddFurniture(ctx, plan.ID, AddFurnitureRequest{Type: "bed", Width: f64(1900), Height: f64(1400)})
	require.NoError(t, err)
	require.NotNil(t, bed.Placement)
	assert.Equal(t, layout.StrategyCentered, bed.Placement.Strategy)
	assert.Equal(t, 1406.0, bed.Item.X)
	assert.Equal(t, 292.5, bed.Item.Y)
	assert.Equal(t, "Bed", bed.Item.Name)

	box, err := svc.AddFurniture(ctx, plan.ID, AddFurnitureRequest{Type: "storage", Width: f64(800), Height: f64(400)})
	require.NoError(t, err)
	assert.Equal(t, layout.StrategyAdjacent, box.Placement.Strategy)
	assert.Equal(t, 3356.0, box.Item.X)
	assert.Equal(t, 292.5, box.Item.Y)
	assert.False(t, layout.AnyCollision(box.Item, []models.FurnitureItem{bed.Item}, "", layout.Mode2D))

	stored, err := svc.GetPlan(ctx, plan.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Items, 2)

	event := notifier.last()
	assert.Equal(t, EventPlanUpdated, event.Type)
	assert.Equal(t, box.Item.ID, event.ItemID)
	require.NotNil(t, event.Views)
	assert.Len(t, event.Views.View2D, 2)
	assert.Len(t, event.Views.View3D, 2)
}

func TestPlanServiceCreateRejectsUnknownVehicle(t *testing.T) {
	svc, _ := newTestPlanService(t)
	_, err := svc.CreatePlan(context.Background(), CreatePlanRequest{VehicleType: "delorean"})
	assert.True(t, apperrors.IsValidationError(err))
}

func TestPlanServiceCreateDefaults(t *testing.T) {
	svc, _ := newTestPlanService(t)
	plan, err := svc.CreatePlan(context.Background(), CreatePlanRequest{})
	require.NoError(t, err)
	assert.Equal(t, defaultPlanName, plan.Name)
	assert.Equal(t, models.DefaultVehicleType, plan.VehicleType)
	assert.NotEmpty(t, plan.ID)
}

func TestPlanServiceAddFurnitureExplicitPosition(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestPlanService(t)
	plan, err := svc.CreatePlan(ctx, CreatePlanRequest{VehicleType: "vw-id-buzz"})
	require.NoError(t, err)

	bed, err := svc.AddFurniture(ctx, plan.ID, AddFurnitureRequest{Type: "bed", X: f64(0), Y: f64(0)})
	require.NoError(t, err)
	assert.Nil(t, bed.Placement)

	_, err = svc.AddFurniture(ctx, plan.ID, AddFurnitureRequest{Type: "seat", X: f64(1000), Y: f64(300)})
	require.Error(t, err)
	assert.True(t, apperrors.IsConflictError(err))
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, bed.Item.ID, appErr.Details["conflicts_with"])

	// 床高600mm，放在床上方的储物柜不冲突
	shelf, err := svc.AddFurniture(ctx, plan.ID, AddFurnitureRequest{Type: "storage", X: f64(0), Y: f64(0), Z: 600})
	require.NoError(t, err)
	assert.Equal(t, 600.0, shelf.Item.Z)

	_, err = svc.AddFurniture(ctx, plan.ID, AddFurnitureRequest{Type: "seat", X: f64(4500), Y: f64(0)})
	assert.True(t, apperrors.IsOutOfBoundsError(err))
}

func TestPlanServiceAddFurnitureValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestPlanService(t)
	plan, err := svc.CreatePlan(ctx, CreatePlanRequest{})
	require.NoError(t, err)

	_, err = svc.AddFurniture(ctx, plan.ID, AddFurnitureRequest{Type: "spaceship"})
	assert.True(t, apperrors.IsValidationError(err))

	_, err = svc.AddFurniture(ctx, plan.ID, AddFurnitureRequest{Type: "seat", X: f64(10)})
	assert.True(t, apperrors.IsValidationError(err))

	_, err = svc.AddFurniture(ctx, plan.ID, AddFurnitureRequest{Type: "seat", Width: f64(0)})
	assert.True(t, apperrors.IsValidationError(err))

	_, err = svc.AddFurniture(ctx, plan.ID, AddFurnitureRequest{Type: "bed", Width: f64(6000)})
	assert.True(t, apperrors.IsOutOfBoundsError(err))

	_, err = svc.AddFurniture(ctx, "missing", AddFurnitureRequest{Type: "seat"})
	assert.True(t, apperrors.IsNotFoundError(err))
}

func TestPlanServicePlacementExhausted(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestPlanService(t)
	plan, err := svc.CreatePlan(ctx, CreatePlanRequest{
		VehicleType: "vw-california",
		Items: []models.FurnitureItem{
			{Type: models.FurnitureCustom, Width: 2500, Height: 1580, Depth: f64(500)},
		},
	})
	require.NoError(t, err)

	_, err = svc.AddFurniture(ctx, plan.ID, AddFurnitureRequest{Type: "seat"})
	require.Error(t, err)
	assert.True(t, apperrors.IsConflictError(err))
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, true, appErr.Details["placement_exhausted"])

	// 放在平台上方时，回退位置通过三维校验
	res, err := svc.AddFurniture(ctx, plan.ID, AddFurnitureRequest{Type: "seat", Z: 500})
	require.NoError(t, err)
	require.NotNil(t, res.Placement)
	assert.True(t, res.Placement.Exhausted)
	assert.NotEmpty(t, res.Warnings)
}

func TestPlanServiceMoveFurniture(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestPlanService(t)
	env, _ := models.LookupVehicle("vw-id-buzz")

	plan, err := svc.CreatePlan(ctx, CreatePlanRequest{VehicleType: env.Type})
	require.NoError(t, err)
	bed, err := svc.AddFurniture(ctx, plan.ID, AddFurnitureRequest{Type: "bed"})
	require.NoError(t, err)
	seat, err := svc.AddFurniture(ctx, plan.ID, AddFurnitureRequest{Type: "seat", X: f64(0), Y: f64(0)})
	require.NoError(t, err)

	t.Run("2d move", func(t *testing.T) {
		moved, err := svc.MoveFurniture(ctx, plan.ID, seat.Item.ID, layout.Delta{
			Presentation: layout.Presentation2D,
			View2D:       &layout.Delta2D{Y: f64(1300), RotationDeg: f64(90)},
		})
		require.NoError(t, err)
		assert.Equal(t, 0.0, moved.X)
		assert.Equal(t, 1300.0, moved.Y)
		assert.Equal(t, 90.0, moved.Yaw())
	})

	t.Run("3d move", func(t *testing.T) {
		target := bed.Item.Clone()
		target.X = 2800
		pos := layout.Project3D(target, env).Position

		moved, err := svc.MoveFurniture(ctx, plan.ID, bed.Item.ID, layout.Delta{
			Presentation: layout.Presentation3D,
			View3D:       &layout.Delta3D{Position: &pos},
		})
		require.NoError(t, err)
		assert.InDelta(t, 2800.0, moved.X, 1e-6)
		assert.InDelta(t, bed.Item.Y, moved.Y, 1e-6)
		assert.InDelta(t, 0.0, moved.Z, 1e-6)
	})

	t.Run("collision rejected", func(t *testing.T) {
		_, err := svc.MoveFurniture(ctx, plan.ID, seat.Item.ID, layout.Delta{
			Presentation: layout.Presentation2D,
			View2D:       &layout.Delta2D{X: f64(2900), Y: f64(400)},
		})
		assert.True(t, apperrors.IsConflictError(err))

		stored, err := svc.GetPlan(ctx, plan.ID)
		require.NoError(t, err)
		assert.Equal(t, 1300.0, stored.Items[stored.FindItem(seat.Item.ID)].Y)
	})

	t.Run("out of bounds", func(t *testing.T) {
		_, err := svc.MoveFurniture(ctx, plan.ID, seat.Item.ID, layout.Delta{
			Presentation: layout.Presentation2D,
			View2D:       &layout.Delta2D{Y: f64(1500)},
		})
		assert.True(t, apperrors.IsOutOfBoundsError(err))
	})

	t.Run("empty delta", func(t *testing.T) {
		_, err := svc.MoveFurniture(ctx, plan.ID, seat.Item.ID, layout.Delta{Presentation: layout.Presentation3D})
		assert.True(t, apperrors.IsValidationError(err))
	})

	t.Run("unknown item", func(t *testing.T) {
		_, err := svc.MoveFurniture(ctx, plan.ID, "nope", layout.Delta{
			Presentation: layout.Presentation2D,
			View2D:       &layout.Delta2D{X: f64(1)},
		})
		assert.True(t, apperrors.IsNotFoundError(err))
	})
}

func TestPlanServiceUpdateVehicleRevalidates(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestPlanService(t)
	plan, err := svc.CreatePlan(ctx, CreatePlanRequest{VehicleType: "vw-id-buzz"})
	require.NoError(t, err)
	bed, err := svc.AddFurniture(ctx, plan.ID, AddFurnitureRequest{Type: "bed"})
	require.NoError(t, err)

	california := "vw-california"
	_, err = svc.UpdatePlan(ctx, plan.ID, UpdatePlanRequest{VehicleType: &california})
	require.Error(t, err)
	assert.True(t, apperrors.IsOutOfBoundsError(err))
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, bed.Item.ID, appErr.Details["item_id"])

	name := "Renamed"
	crafter := "vw-crafter-l3h3"
	_, err = svc.MoveFurniture(ctx, plan.ID, bed.Item.ID, layout.Delta{
		Presentation: layout.Presentation2D,
		View2D:       &layout.Delta2D{X: f64(0), Y: f64(0)},
	})
	require.NoError(t, err)
	updated, err := svc.UpdatePlan(ctx, plan.ID, UpdatePlanRequest{Name: &name, VehicleType: &crafter})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, crafter, updated.VehicleType)

	empty := " "
	_, err = svc.UpdatePlan(ctx, plan.ID, UpdatePlanRequest{Name: &empty})
	assert.True(t, apperrors.IsValidationError(err))
}

func TestPlanServiceApplyLayoutIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestPlanService(t)
	plan, err := svc.CreatePlan(ctx, CreatePlanRequest{})
	require.NoError(t, err)
	_, err = svc.AddFurniture(ctx, plan.ID, AddFurnitureRequest{Type: "kitchen", X: f64(0), Y: f64(0)})
	require.NoError(t, err)

	overlapping := []models.FurnitureItem{
		{ID: "a", Type: models.FurnitureSeat, X: 3000, Y: 0, Width: 600, Height: 600},
		{ID: "b", Type: models.FurnitureSeat, X: 3300, Y: 300, Width: 600, Height: 600},
	}
	_, err = svc.ApplyLayout(ctx, plan.ID, overlapping, true)
	require.Error(t, err)
	assert.True(t, apperrors.IsConflictError(err))

	stored, err := svc.GetPlan(ctx, plan.ID)
	require.NoError(t, err)
	require.Len(t, stored.Items, 1)
	assert.Equal(t, models.FurnitureKitchen, stored.Items[0].Type)

	applied, err := svc.ApplyLayout(ctx, plan.ID, overlapping[:1], false)
	require.NoError(t, err)
	assert.Len(t, applied.Items, 2)
	assert.Equal(t, "Seat", applied.Items[1].Name)

	replaced, err := svc.ApplyLayout(ctx, plan.ID, overlapping[1:], true)
	require.NoError(t, err)
	require.Len(t, replaced.Items, 1)
	assert.Equal(t, "b", replaced.Items[0].ID)
}

func TestPlanServiceCheckCollisionViewsAndStats(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestPlanService(t)
	plan, err := svc.CreatePlan(ctx, CreatePlanRequest{})
	require.NoError(t, err)
	bed, err := svc.AddFurniture(ctx, plan.ID, AddFurnitureRequest{Type: "bed", X: f64(0), Y: f64(0)})
	require.NoError(t, err)

	seat := models.FurnitureItem{Type: models.FurnitureSeat, X: 1900, Y: 0, Width: 600, Height: 600}
	res, err := svc.CheckCollision(ctx, plan.ID, seat, "")
	require.NoError(t, err)
	assert.False(t, res.Collides)
	assert.True(t, res.InBounds)

	seat.X = 1800
	res, err = svc.CheckCollision(ctx, plan.ID, seat, layout.Mode2D)
	require.NoError(t, err)
	assert.True(t, res.Collides)
	assert.Equal(t, []string{bed.Item.ID}, res.ConflictsWith)

	// the item itself is ignored
	self := bed.Item.Clone()
	res, err = svc.CheckCollision(ctx, plan.ID, self, layout.Mode3D)
	require.NoError(t, err)
	assert.False(t, res.Collides)

	_, err = svc.CheckCollision(ctx, plan.ID, seat, "4d")
	assert.True(t, apperrors.IsValidationError(err))

	views, err := svc.Views(ctx, plan.ID)
	require.NoError(t, err)
	require.Len(t, views.View2D, 1)
	assert.Equal(t, bed.Item.ID, views.View3D[0].ID)
	assert.InDelta(t, 1.9, views.View3D[0].Scale.X, 1e-9)

	stats, err := svc.Stats(ctx, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ItemCount)
	assert.Empty(t, stats.Collisions)
}

func TestPlanServiceDeletes(t *testing.T) {
	ctx := context.Background()
	svc, notifier := newTestPlanService(t)
	plan, err := svc.CreatePlan(ctx, CreatePlanRequest{})
	require.NoError(t, err)
	seat, err := svc.AddFurniture(ctx, plan.ID, AddFurnitureRequest{Type: "seat"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteFurniture(ctx, plan.ID, seat.Item.ID))
	assert.True(t, apperrors.IsNotFoundError(svc.DeleteFurniture(ctx, plan.ID, seat.Item.ID)))

	summaries, err := svc.ListPlans(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, 0, summaries[0].ItemCount)

	require.NoError(t, svc.DeletePlan(ctx, plan.ID))
	assert.Equal(t, EventPlanDeleted, notifier.last().Type)

	_, err = svc.GetPlan(ctx, plan.ID)
	assert.True(t, apperrors.IsNotFoundError(err))
}

func TestPlanServiceNotifySkipsViewsForUnknownVehicle(t *testing.T) {
	ctx := context.Background()
	store := newMemPlanStore()
	svc := NewPlanService(store, NewLockManager(), nil)
	notifier := &recordingNotifier{}
	svc.SetNotifier(notifier)

	plan, err := svc.CreatePlan(ctx, CreatePlanRequest{})
	require.NoError(t, err)
	added, err := svc.AddFurniture(ctx, plan.ID, AddFurnitureRequest{Type: "seat"})
	require.NoError(t, err)
	require.NotNil(t, notifier.last().Views)

	// a catalog entry removed after the plan was saved
	store.mu.Lock()
	store.plans[plan.ID].VehicleType = "retired-van"
	store.mu.Unlock()

	require.NoError(t, svc.DeleteFurniture(ctx, plan.ID, added.Item.ID))
	event := notifier.last()
	assert.Equal(t, EventPlanUpdated, event.Type)
	assert.Equal(t, added.Item.ID, event.ItemID)
	assert.NotNil(t, event.Plan)
	assert.Nil(t, event.Views)
}

func TestPlanServiceAddRotatedUsesFootprint(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestPlanService(t)
	plan, err := svc.CreatePlan(ctx, CreatePlanRequest{VehicleType: "vw-california"})
	require.NoError(t, err)

	_, err = svc.AddFurniture(ctx, plan.ID, AddFurnitureRequest{Type: "bed", Rotation: &models.Rotation{Yaw: 90}})
	require.Error(t, err)
	assert.True(t, apperrors.IsOutOfBoundsError(err))

	res, err := svc.AddFurniture(ctx, plan.ID, AddFurnitureRequest{Type: "storage", Rotation: &models.Rotation{Yaw: 90}})
	require.NoError(t, err)
	env, _ := models.LookupVehicle("vw-california")
	assert.NoError(t, layout.ValidateBounds(res.Item, env))
}
