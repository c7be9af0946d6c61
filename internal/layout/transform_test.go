package layout

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanplanner/VanLayoutMCP/internal/models"
)

func TestTo3DAxisMapping(t *testing.T) {
	v := To3D(Point2D{X: 0, Y: 0, Z: 0}, idBuzz)
	assert.InDelta(t, -2.356, v.X, 1e-12)
	assert.InDelta(t, 0.0, v.Y, 1e-12)
	assert.InDelta(t, -0.9925, v.Z, 1e-12)

	center := To3D(Point2D{X: 2356, Y: 992.5, Z: 500}, idBuzz)
	assert.InDelta(t, 0.0, center.X, 1e-12)
	assert.InDelta(t, 0.5, center.Y, 1e-12, "elevation maps to vertical")
	assert.InDelta(t, 0.0, center.Z, 1e-12)

	// Moving along the length only changes scene X; along the width only scene Z.
	alongLength := To3D(Point2D{X: 1000}, idBuzz)
	alongWidth := To3D(Point2D{Y: 1000}, idBuzz)
	assert.InDelta(t, v.X+1, alongLength.X, 1e-12)
	assert.InDelta(t, v.Z, alongLength.Z, 1e-12)
	assert.InDelta(t, v.Z+1, alongWidth.Z, 1e-12)
	assert.InDelta(t, v.X, alongWidth.X, 1e-12)
}

func TestTransformRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	envs := []models.VehicleEnvelope{idBuzz, {Length: 3120, Width: 1870}, {Length: 2500, Width: 1580}}
	for _, env := range envs {
		for i := 0; i < 500; i++ {
			p := Point2D{
				X: rng.Float64() * env.Length,
				Y: rng.Float64() * env.Width,
				Z: rng.Float64() * 2000,
			}
			back := To2D(To3D(p, env), env)
			require.InDelta(t, p.X, back.X, 1e-9)
			require.InDelta(t, p.Y, back.Y, 1e-9)
			require.InDelta(t, p.Z, back.Z, 1e-9)
		}
	}
}

func TestItemCenterRoundTrip(t *testing.T) {
	item := models.FurnitureItem{X: 100, Y: 200, Z: 30, Width: 800, Height: 400}
	c := ItemCenter2D(item)
	assert.Equal(t, Point2D{X: 500, Y: 400, Z: 30}, c)
	assert.Equal(t, Point2D{X: 100, Y: 200, Z: 30}, CornerFromCenter2D(c, 800, 400))
}
