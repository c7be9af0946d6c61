package layout

import "github.com/vanplanner/VanLayoutMCP/internal/models"

// Point2D is a position in vehicle-local top-down space, millimeters.
// X is the distance from the front, Y from the left wall, Z the elevation.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Vec3 is a position or size in the 3D scene, meters. The origin is the
// vehicle center at floor level and Y is vertical.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// To3D maps a 2D point into scene space. The 2D length axis becomes scene X,
// the elevation becomes scene Y and the 2D width axis becomes scene Z.
func To3D(p Point2D, env models.VehicleEnvelope) Vec3 {
	return Vec3{
		X: p.X/1000 - env.Length/2000,
		Y: p.Z / 1000,
		Z: p.Y/1000 - env.Width/2000,
	}
}

// To2D is the exact inverse of To3D.
func To2D(v Vec3, env models.VehicleEnvelope) Point2D {
	return Point2D{
		X: (v.X + env.Length/2000) * 1000,
		Y: (v.Z + env.Width/2000) * 1000,
		Z: v.Y * 1000,
	}
}

// ItemCenter2D translates an item's top-left corner to its footprint
// center. To3D is unaware of footprint size, so callers placing objects by
// centroid go through here first.
func ItemCenter2D(item models.FurnitureItem) Point2D {
	return Point2D{
		X: item.X + item.Width/2,
		Y: item.Y + item.Height/2,
		Z: item.Z,
	}
}

// CornerFromCenter2D is the inverse of ItemCenter2D for a given footprint.
func CornerFromCenter2D(center Point2D, width, height float64) Point2D {
	return Point2D{
		X: center.X - width/2,
		Y: center.Y - height/2,
		Z: center.Z,
	}
}
