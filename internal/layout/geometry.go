// Package layout is the placement and coordinate-synchronization engine.
//
// Every function here is a pure transformer over a snapshot of furniture
// items: the caller owns the canonical slice and decides what to commit.
package layout

import (
	"fmt"
	"math"

	apperrors "github.com/vanplanner/VanLayoutMCP/internal/errors"
	"github.com/vanplanner/VanLayoutMCP/internal/models"
)

// Rect is an axis-aligned rectangle in 2D millimeter space.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Right returns the far edge on the length axis.
func (r Rect) Right() float64 { return r.X + r.Width }

// Bottom returns the far edge on the width axis.
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// Area returns width*height.
func (r Rect) Area() float64 { return r.Width * r.Height }

// RectOf returns the unrotated footprint of an item.
func RectOf(item models.FurnitureItem) Rect {
	return Rect{X: item.X, Y: item.Y, Width: item.Width, Height: item.Height}
}

// RectanglesOverlap reports a positive-area intersection. Rectangles that
// only share an edge do not overlap.
func RectanglesOverlap(a, b Rect) bool {
	separated := a.X+a.Width <= b.X ||
		b.X+b.Width <= a.X ||
		a.Y+a.Height <= b.Y ||
		b.Y+b.Height <= a.Y
	return !separated
}

// InEnvelope reports whether r lies fully inside the vehicle envelope.
func InEnvelope(r Rect, env models.VehicleEnvelope) bool {
	return r.X >= 0 && r.Y >= 0 &&
		r.X+r.Width <= env.Length &&
		r.Y+r.Height <= env.Width
}

// FitsEnvelope reports whether a footprint of this size can be placed at all.
func FitsEnvelope(width, height float64, env models.VehicleEnvelope) bool {
	return width > 0 && height > 0 && width <= env.Length && height <= env.Width
}

// ClampToBounds returns a copy of item with X and Y pulled so that its
// yaw-adjusted footprint lies inside the envelope. An oversized footprint is
// pinned to the low edge and still exceeds the bounds; ValidateBounds
// reports that case.
func ClampToBounds(item models.FurnitureItem, env models.VehicleEnvelope) models.FurnitureItem {
	out := item.Clone()
	fp := Footprint(models.FurnitureItem{Width: item.Width, Height: item.Height, Rotation: item.Rotation})
	out.X = clamp(item.X, -fp.X, env.Length-fp.Width-fp.X)
	out.Y = clamp(item.Y, -fp.Y, env.Width-fp.Height-fp.Y)
	return out
}

// ValidateBounds returns an OutOfBounds error when item violates the
// envelope invariant. Rotated items are checked on their yaw-adjusted
// footprint, the same rectangle the collision engine uses.
func ValidateBounds(item models.FurnitureItem, env models.VehicleEnvelope) error {
	fp := Footprint(item)
	if !FitsEnvelope(fp.Width-rotationTolerance(item), fp.Height-rotationTolerance(item), env) {
		return apperrors.NewOutOfBoundsError(
			fmt.Sprintf("footprint %.0fx%.0f mm does not fit vehicle %.0fx%.0f mm",
				fp.Width, fp.Height, env.Length, env.Width), nil).
			WithDetail("item_id", item.ID)
	}
	if !footprintInEnvelope(item, fp, env) {
		return apperrors.NewOutOfBoundsError(
			fmt.Sprintf("item at (%.1f, %.1f) leaves the vehicle envelope", item.X, item.Y), nil).
			WithDetail("item_id", item.ID)
	}
	return nil
}

// 旋转后的包围盒由三角函数算出，允许微小舍入误差
const boundsTolerance = 1e-6

func rotationTolerance(item models.FurnitureItem) float64 {
	if math.Mod(item.Yaw(), 180) == 0 {
		return 0
	}
	return boundsTolerance
}

func footprintInEnvelope(item models.FurnitureItem, fp Rect, env models.VehicleEnvelope) bool {
	tol := rotationTolerance(item)
	return fp.X >= -tol && fp.Y >= -tol &&
		fp.X+fp.Width <= env.Length+tol &&
		fp.Y+fp.Height <= env.Width+tol
}

// clamp pins v into [lo, hi]; when hi < lo the lower bound wins.
func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}
