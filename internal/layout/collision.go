package layout

import (
	"math"

	"github.com/vanplanner/VanLayoutMCP/internal/models"
)

// Mode selects which presentation's collision rule applies.
type Mode string

const (
	Mode2D Mode = "2d"
	Mode3D Mode = "3d"
)

// VerticalExtent is the height an item occupies off the floor.
//
// An explicit Depth wins. Without one the item is assumed to be as tall as
// its footprint is deep across the vehicle width, i.e. Height.
func VerticalExtent(item models.FurnitureItem) float64 {
	if item.Depth != nil && *item.Depth > 0 {
		return *item.Depth
	}
	return item.Height
}

// Footprint returns the axis-aligned footprint used for collisions. Yaw
// rotates the rectangle about its center; other axes are ignored.
func Footprint(item models.FurnitureItem) Rect {
	r := RectOf(item)
	yaw := math.Mod(item.Yaw(), 180)
	if yaw < 0 {
		yaw += 180
	}
	if yaw == 0 {
		return r
	}

	var w, h float64
	if yaw == 90 {
		w, h = item.Height, item.Width
	} else {
		rad := yaw * math.Pi / 180
		cos, sin := math.Abs(math.Cos(rad)), math.Abs(math.Sin(rad))
		w = item.Width*cos + item.Height*sin
		h = item.Width*sin + item.Height*cos
	}

	cx, cy := item.X+item.Width/2, item.Y+item.Height/2
	return Rect{X: cx - w/2, Y: cy - h/2, Width: w, Height: h}
}

// AtFootprint returns a copy of item moved so that its footprint's top-left
// corner sits at (x, y).
func AtFootprint(item models.FurnitureItem, x, y float64) models.FurnitureItem {
	out := item.Clone()
	fp := Footprint(models.FurnitureItem{Width: item.Width, Height: item.Height, Rotation: item.Rotation})
	out.X, out.Y = x-fp.X, y-fp.Y
	return out
}

// Collides2D reports a footprint overlap.
func Collides2D(a, b models.FurnitureItem) bool {
	return RectanglesOverlap(Footprint(a), Footprint(b))
}

// Collides3D requires a footprint overlap and an overlap of the vertical
// extents. A shelf fully above a cabinet does not collide with it.
func Collides3D(a, b models.FurnitureItem) bool {
	if !Collides2D(a, b) {
		return false
	}
	aTop := a.Z + VerticalExtent(a)
	bTop := b.Z + VerticalExtent(b)
	return !(aTop <= b.Z || bTop <= a.Z)
}

// Collides dispatches on mode.
func Collides(a, b models.FurnitureItem, mode Mode) bool {
	if mode == Mode3D {
		return Collides3D(a, b)
	}
	return Collides2D(a, b)
}

// AnyCollision reports whether candidate collides with any item except the
// one whose ID equals excludeID.
func AnyCollision(candidate models.FurnitureItem, items []models.FurnitureItem, excludeID string, mode Mode) bool {
	for _, other := range items {
		if excludeID != "" && other.ID == excludeID {
			continue
		}
		if Collides(candidate, other, mode) {
			return true
		}
	}
	return false
}

// CollisionPair names two colliding items.
type CollisionPair struct {
	A string `json:"a"`
	B string `json:"b"`
}

// FindCollisions lists every colliding pair, in input order.
func FindCollisions(items []models.FurnitureItem, mode Mode) []CollisionPair {
	var pairs []CollisionPair
	for i := 0; i < len(items); i++ {
		for j := i + 1; j < len(items); j++ {
			if Collides(items[i], items[j], mode) {
				pairs = append(pairs, CollisionPair{A: items[i].ID, B: items[j].ID})
			}
		}
	}
	return pairs
}
