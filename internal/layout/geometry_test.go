package layout

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/vanplanner/VanLayoutMCP/internal/errors"
	"github.com/vanplanner/VanLayoutMCP/internal/models"
)

var idBuzz = models.VehicleEnvelope{Type: "vw-id-buzz", Length: 4712, Width: 1985}

func TestRectanglesOverlap(t *testing.T) {
	tests := []struct {
		name string
		a, b Rect
		want bool
	}{
		{"disjoint", Rect{0, 0, 100, 100}, Rect{200, 200, 50, 50}, false},
		{"overlapping", Rect{0, 0, 100, 100}, Rect{50, 50, 100, 100}, true},
		{"contained", Rect{0, 0, 100, 100}, Rect{10, 10, 10, 10}, true},
		{"touching right edge", Rect{0, 0, 100, 100}, Rect{100, 0, 100, 100}, false},
		{"touching bottom edge", Rect{0, 0, 100, 100}, Rect{0, 100, 100, 100}, false},
		{"touching corner", Rect{0, 0, 100, 100}, Rect{100, 100, 10, 10}, false},
		{"same rect", Rect{5, 5, 10, 10}, Rect{5, 5, 10, 10}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RectanglesOverlap(tt.a, tt.b))
			assert.Equal(t, tt.want, RectanglesOverlap(tt.b, tt.a), "overlap must be symmetric")
		})
	}
}

func TestRectanglesOverlapSymmetryRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 2000; i++ {
		a := Rect{rng.Float64() * 1000, rng.Float64() * 1000, rng.Float64() * 400, rng.Float64() * 400}
		b := Rect{rng.Float64() * 1000, rng.Float64() * 1000, rng.Float64() * 400, rng.Float64() * 400}
		require.Equal(t, RectanglesOverlap(a, b), RectanglesOverlap(b, a))
	}
}

func TestClampToBounds(t *testing.T) {
	item := models.FurnitureItem{ID: "a", X: 4500, Y: -20, Width: 800, Height: 400}
	clamped := ClampToBounds(item, idBuzz)

	assert.Equal(t, 3912.0, clamped.X)
	assert.Equal(t, 0.0, clamped.Y)
	assert.Equal(t, 4500.0, item.X, "input must not be mutated")
	assert.NoError(t, ValidateBounds(clamped, idBuzz))
}

func TestClampToBoundsOversized(t *testing.T) {
	item := models.FurnitureItem{ID: "wide", X: 300, Y: 300, Width: 5000, Height: 400}
	clamped := ClampToBounds(item, idBuzz)

	assert.Equal(t, 0.0, clamped.X)
	err := ValidateBounds(clamped, idBuzz)
	require.Error(t, err)
	assert.True(t, apperrors.IsOutOfBoundsError(err))
}

func TestClampIdempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 1000; i++ {
		item := models.FurnitureItem{
			X:      rng.Float64()*12000 - 6000,
			Y:      rng.Float64()*6000 - 3000,
			Width:  rng.Float64() * 6000,
			Height: rng.Float64() * 3000,
		}
		once := ClampToBounds(item, idBuzz)
		twice := ClampToBounds(once, idBuzz)
		require.Equal(t, once, twice)
	}
}

func TestValidateBounds(t *testing.T) {
	inside := models.FurnitureItem{X: 0, Y: 0, Width: 4712, Height: 1985}
	assert.NoError(t, ValidateBounds(inside, idBuzz))

	spill := models.FurnitureItem{X: 1, Y: 0, Width: 4712, Height: 100}
	assert.True(t, apperrors.IsOutOfBoundsError(ValidateBounds(spill, idBuzz)))
}

func TestValidateBoundsRotatedFootprint(t *testing.T) {
	california, ok := models.LookupVehicle("vw-california")
	require.True(t, ok)
	bed := models.FurnitureItem{ID: "bed", X: 300, Y: 90, Width: 1900, Height: 1400}
	require.NoError(t, ValidateBounds(bed, california))

	bed.Rotation = &models.Rotation{Yaw: 90}
	err := ValidateBounds(bed, california)
	require.Error(t, err)
	assert.True(t, apperrors.IsOutOfBoundsError(err))

	// half turn keeps the footprint
	bed.Rotation = &models.Rotation{Yaw: 180}
	assert.NoError(t, ValidateBounds(bed, california))
}

func TestClampToBoundsRotated(t *testing.T) {
	bed := models.FurnitureItem{ID: "bed", X: 0, Y: 0, Width: 1900, Height: 1400, Rotation: &models.Rotation{Yaw: 90}}
	clamped := ClampToBounds(bed, idBuzz)

	assert.Equal(t, 0.0, clamped.X)
	assert.Equal(t, 250.0, clamped.Y)
	fp := Footprint(clamped)
	assert.Equal(t, 0.0, fp.Y)
	assert.NoError(t, ValidateBounds(clamped, idBuzz))
}

func TestClampRotatedAlwaysValid(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 1000; i++ {
		item := models.FurnitureItem{
			X:        rng.Float64()*12000 - 6000,
			Y:        rng.Float64()*6000 - 3000,
			Width:    1 + rng.Float64()*999,
			Height:   1 + rng.Float64()*799,
			Rotation: &models.Rotation{Yaw: rng.Float64() * 360},
		}
		clamped := ClampToBounds(item, idBuzz)
		require.NoError(t, ValidateBounds(clamped, idBuzz), "yaw %.3f", item.Yaw())
	}
}
