package layout

import (
	"math"

	"github.com/vanplanner/VanLayoutMCP/internal/models"
)

// Presentation names one of the two derived views.
type Presentation string

const (
	Presentation2D Presentation = "2d"
	Presentation3D Presentation = "3d"
)

// View2D is the top-down editor state of one item.
type View2D struct {
	ID          string  `json:"id"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	RotationDeg float64 `json:"rotation_deg"`
}

// View3D is the scene state of one item. Position is the centroid, Rotation
// is Euler radians (X pitch, Y yaw, Z roll) and Scale the box size in meters.
type View3D struct {
	ID       string `json:"id"`
	Position Vec3   `json:"position"`
	Rotation Vec3   `json:"rotation"`
	Scale    Vec3   `json:"scale"`
}

// PresentationState holds whichever view was requested.
type PresentationState struct {
	Presentation Presentation `json:"presentation"`
	View2D       *View2D      `json:"view_2d,omitempty"`
	View3D       *View3D      `json:"view_3d,omitempty"`
}

// Project2D derives the top-down view of item.
func Project2D(item models.FurnitureItem) View2D {
	return View2D{
		ID:          item.ID,
		X:           item.X,
		Y:           item.Y,
		Width:       item.Width,
		Height:      item.Height,
		RotationDeg: item.Yaw(),
	}
}

// Project3D derives the scene view of item. The footprint center and half
// the vertical extent give the centroid before the axis mapping.
func Project3D(item models.FurnitureItem, env models.VehicleEnvelope) View3D {
	extent := VerticalExtent(item)
	center := ItemCenter2D(item)
	center.Z += extent / 2

	var rot Vec3
	if item.Rotation != nil {
		rot = Vec3{
			X: degToRad(item.Rotation.Pitch),
			Y: degToRad(item.Rotation.Yaw),
			Z: degToRad(item.Rotation.Roll),
		}
	}

	return View3D{
		ID:       item.ID,
		Position: To3D(center, env),
		Rotation: rot,
		Scale: Vec3{
			X: item.Width / 1000,
			Y: extent / 1000,
			Z: item.Height / 1000,
		},
	}
}

// Project derives the requested presentation.
func Project(item models.FurnitureItem, env models.VehicleEnvelope, presentation Presentation) PresentationState {
	state := PresentationState{Presentation: presentation}
	if presentation == Presentation3D {
		v := Project3D(item, env)
		state.View3D = &v
	} else {
		v := Project2D(item)
		state.View2D = &v
	}
	return state
}

// Delta2D is a single edit coming from the top-down editor. Nil fields are
// unchanged.
type Delta2D struct {
	X           *float64 `json:"x,omitempty"`
	Y           *float64 `json:"y,omitempty"`
	Width       *float64 `json:"width,omitempty"`
	Height      *float64 `json:"height,omitempty"`
	RotationDeg *float64 `json:"rotation_deg,omitempty"`
}

// Delta3D is a single edit coming from the scene (drag, rotate gizmo,
// scale handle).
type Delta3D struct {
	Position *Vec3 `json:"position,omitempty"`
	Rotation *Vec3 `json:"rotation,omitempty"`
	Scale    *Vec3 `json:"scale,omitempty"`
}

// Delta carries an edit from either presentation.
type Delta struct {
	Presentation Presentation `json:"presentation"`
	View2D       *Delta2D     `json:"view_2d,omitempty"`
	View3D       *Delta3D     `json:"view_3d,omitempty"`
}

// ItemPatch is a partial FurnitureItem in canonical units.
type ItemPatch struct {
	X        *float64         `json:"x,omitempty"`
	Y        *float64         `json:"y,omitempty"`
	Z        *float64         `json:"z,omitempty"`
	Width    *float64         `json:"width,omitempty"`
	Height   *float64         `json:"height,omitempty"`
	Depth    *float64         `json:"depth,omitempty"`
	Rotation *models.Rotation `json:"rotation,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p ItemPatch) IsEmpty() bool {
	return p.X == nil && p.Y == nil && p.Z == nil &&
		p.Width == nil && p.Height == nil && p.Depth == nil && p.Rotation == nil
}

// Reconcile converts a presentation edit back into canonical fields. The
// current item is needed because a 3D position is a centroid and must be
// turned back into a top-left corner using the (possibly new) size.
func Reconcile(item models.FurnitureItem, delta Delta, env models.VehicleEnvelope) ItemPatch {
	switch delta.Presentation {
	case Presentation3D:
		if delta.View3D == nil {
			return ItemPatch{}
		}
		return reconcile3D(item, *delta.View3D, env)
	default:
		if delta.View2D == nil {
			return ItemPatch{}
		}
		return reconcile2D(item, *delta.View2D)
	}
}

func reconcile2D(item models.FurnitureItem, d Delta2D) ItemPatch {
	patch := ItemPatch{
		X:      d.X,
		Y:      d.Y,
		Width:  d.Width,
		Height: d.Height,
	}
	if d.RotationDeg != nil {
		rot := models.Rotation{Yaw: *d.RotationDeg}
		if item.Rotation != nil {
			rot.Pitch, rot.Roll = item.Rotation.Pitch, item.Rotation.Roll
		}
		patch.Rotation = &rot
	}
	return patch
}

func reconcile3D(item models.FurnitureItem, d Delta3D, env models.VehicleEnvelope) ItemPatch {
	var patch ItemPatch

	width, height, extent := item.Width, item.Height, VerticalExtent(item)
	if d.Scale != nil {
		width = d.Scale.X * 1000
		extent = d.Scale.Y * 1000
		height = d.Scale.Z * 1000
		patch.Width = &width
		patch.Height = &height
		patch.Depth = &extent
	}

	if d.Position != nil {
		center := To2D(*d.Position, env)
		corner := CornerFromCenter2D(center, width, height)
		z := corner.Z - extent/2
		patch.X = &corner.X
		patch.Y = &corner.Y
		patch.Z = &z
	}

	if d.Rotation != nil {
		patch.Rotation = &models.Rotation{
			Pitch: radToDeg(d.Rotation.X),
			Yaw:   radToDeg(d.Rotation.Y),
			Roll:  radToDeg(d.Rotation.Z),
		}
	}
	return patch
}

// ApplyPatch returns a copy of item with patch applied.
func ApplyPatch(item models.FurnitureItem, patch ItemPatch) models.FurnitureItem {
	out := item.Clone()
	if patch.X != nil {
		out.X = *patch.X
	}
	if patch.Y != nil {
		out.Y = *patch.Y
	}
	if patch.Z != nil {
		out.Z = *patch.Z
	}
	if patch.Width != nil {
		out.Width = *patch.Width
	}
	if patch.Height != nil {
		out.Height = *patch.Height
	}
	if patch.Depth != nil {
		d := *patch.Depth
		out.Depth = &d
	}
	if patch.Rotation != nil {
		r := *patch.Rotation
		out.Rotation = &r
	}
	return out
}

func degToRad(d float64) float64 { return d * math.Pi / 180 }

func radToDeg(r float64) float64 { return r * 180 / math.Pi }
