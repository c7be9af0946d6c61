package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vanplanner/VanLayoutMCP/internal/models"
)

func box(id string, x, y, w, h float64) models.FurnitureItem {
	return models.FurnitureItem{ID: id, Type: models.FurnitureStorage, X: x, Y: y, Width: w, Height: h}
}

func TestVerticalExtent(t *testing.T) {
	item := box("a", 0, 0, 800, 400)
	assert.Equal(t, 400.0, VerticalExtent(item))

	item.Depth = models.Float64Ptr(1200)
	assert.Equal(t, 1200.0, VerticalExtent(item))

	item.Depth = models.Float64Ptr(0)
	assert.Equal(t, 400.0, VerticalExtent(item), "zero depth falls back to height")
}

func TestCollides2DTouchingEdges(t *testing.T) {
	a := box("a", 0, 0, 100, 100)
	b := box("b", 100, 0, 100, 100)
	assert.False(t, Collides2D(a, b))
	assert.False(t, Collides2D(b, a))

	b.X = 99
	assert.True(t, Collides2D(a, b))
	assert.True(t, Collides2D(b, a))
}

func TestCollides3DStackedItems(t *testing.T) {
	cabinet := box("cabinet", 0, 0, 800, 400)
	cabinet.Depth = models.Float64Ptr(900)

	shelf := box("shelf", 100, 0, 600, 300)
	shelf.Z = 1500
	shelf.Depth = models.Float64Ptr(300)

	assert.True(t, Collides2D(cabinet, shelf))
	assert.False(t, Collides3D(cabinet, shelf), "shelf hangs above the cabinet")

	shelf.Z = 900
	assert.False(t, Collides3D(cabinet, shelf), "resting exactly on top is not a collision")

	shelf.Z = 850
	assert.True(t, Collides3D(cabinet, shelf))
	assert.True(t, Collides3D(shelf, cabinet))
}

func TestFootprintYaw(t *testing.T) {
	item := box("bed", 1000, 500, 1900, 1400)
	assert.Equal(t, RectOf(item), Footprint(item))

	item.Rotation = &models.Rotation{Yaw: 90}
	fp := Footprint(item)
	assert.Equal(t, 1400.0, fp.Width)
	assert.Equal(t, 1900.0, fp.Height)
	assert.Equal(t, 1000.0+950-700, fp.X, "rotation keeps the center")

	item.Rotation = &models.Rotation{Yaw: 180, Pitch: 30}
	assert.Equal(t, RectOf(item), Footprint(item), "half turn and pitch do not change the footprint")

	item.Rotation = &models.Rotation{Yaw: -90}
	assert.Equal(t, 1400.0, Footprint(item).Width)
}

func TestYawChangesCollision(t *testing.T) {
	long := box("long", 0, 0, 1000, 100)
	other := box("other", 500, 200, 100, 100)
	assert.False(t, Collides2D(long, other))

	long.Rotation = &models.Rotation{Yaw: 90}
	assert.True(t, Collides2D(long, other))
}

func TestAnyCollisionExcludesID(t *testing.T) {
	items := []models.FurnitureItem{box("a", 0, 0, 500, 500), box("b", 1000, 0, 500, 500)}
	moved := box("a", 100, 100, 500, 500)

	assert.False(t, AnyCollision(moved, items, "a", Mode2D))
	assert.True(t, AnyCollision(moved, items, "", Mode2D))

	moved.X = 900
	assert.True(t, AnyCollision(moved, items, "a", Mode3D))
}

func TestFindCollisions(t *testing.T) {
	items := []models.FurnitureItem{
		box("a", 0, 0, 500, 500),
		box("b", 400, 0, 500, 500),
		box("c", 2000, 0, 100, 100),
	}
	assert.Equal(t, []CollisionPair{{A: "a", B: "b"}}, FindCollisions(items, Mode2D))
	assert.Empty(t, FindCollisions(items[2:], Mode3D))
}
