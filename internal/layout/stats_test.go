package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vanplanner/VanLayoutMCP/internal/models"
)

func TestVolumeUsagePercent(t *testing.T) {
	env := models.VehicleEnvelope{Length: 4000, Width: 2000}
	items := []models.FurnitureItem{
		{ID: "a", Width: 1000, Height: 1000},
		{ID: "b", X: 2000, Width: 2000, Height: 1000, Depth: models.Float64Ptr(2000)},
	}
	// capacity 4*2*2 = 16 m3; used 1 + 4 = 5 m3
	assert.InDelta(t, 31.25, VolumeUsagePercent(items, env), 1e-9)
	assert.Equal(t, 0.0, VolumeUsagePercent(nil, env))
	assert.Equal(t, 0.0, VolumeUsagePercent(items, models.VehicleEnvelope{}))
}

func TestComputeStats(t *testing.T) {
	env := models.VehicleEnvelope{Length: 4000, Width: 2000}
	items := []models.FurnitureItem{
		{ID: "a", Type: models.FurnitureBed, Width: 1000, Height: 1000},
		{ID: "b", Type: models.FurnitureBed, X: 500, Width: 1000, Height: 1000},
		{ID: "c", Type: models.FurnitureSeat, X: 3900, Width: 500, Height: 500},
	}

	s := ComputeStats(items, env)
	assert.Equal(t, 3, s.ItemCount)
	assert.Equal(t, 2, s.ByType[models.FurnitureBed])
	assert.Equal(t, []CollisionPair{{A: "a", B: "b"}}, s.Collisions)
	assert.Equal(t, []string{"c"}, s.OutOfBounds)
	assert.InDelta(t, 28.125, s.FloorUsagePercent, 1e-9)
	assert.InDelta(t, 5.75, s.FreeFloorM2, 1e-9)
}
