package layout

import (
	"github.com/vanplanner/VanLayoutMCP/internal/models"
)

const (
	// AdjacencyGap separates a new item from the neighbour it is placed next to.
	AdjacencyGap = 50.0
	// GridStep is the spacing of the fallback scan.
	GridStep = 100.0
	// GridPadding trims the far edges of the fallback scan.
	GridPadding = 200.0
)

// Strategy records which stage of the search produced a placement.
type Strategy string

const (
	StrategyCentered Strategy = "centered"
	StrategyAdjacent Strategy = "adjacent"
	StrategyGrid     Strategy = "grid"
	StrategyFallback Strategy = "fallback"
)

// Footprint2D is the size of an item about to be placed.
type Footprint2D struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Placement is the result of FindPlacement. Exhausted is set when no legal
// cell was found and the envelope center was returned anyway; callers must
// re-validate before committing such a result.
type Placement struct {
	X         float64  `json:"x"`
	Y         float64  `json:"y"`
	Strategy  Strategy `json:"strategy"`
	Exhausted bool     `json:"exhausted"`
}

// FindPlacement searches for a collision-free top-left position for fp.
//
// The order is: centered when the vehicle is empty, then next to each
// existing item (right, below, left, above), then a coarse grid scan, and
// finally the envelope center. It never fails to return a position.
func FindPlacement(fp Footprint2D, items []models.FurnitureItem, env models.VehicleEnvelope) Placement {
	center := centered(fp, env)
	if len(items) == 0 {
		return Placement{X: center.X, Y: center.Y, Strategy: StrategyCentered}
	}

	for _, item := range items {
		for _, c := range adjacentCandidates(fp, item) {
			if tryCandidate(c, fp, items, env) {
				return Placement{X: c.X, Y: c.Y, Strategy: StrategyAdjacent}
			}
		}
	}

	for y := env.Width / 4; y < env.Width-GridPadding; y += GridStep {
		for x := env.Length / 4; x < env.Length-GridPadding; x += GridStep {
			c := Point2D{X: x, Y: y}
			if tryCandidate(c, fp, items, env) {
				return Placement{X: x, Y: y, Strategy: StrategyGrid}
			}
		}
	}

	return Placement{X: center.X, Y: center.Y, Strategy: StrategyFallback, Exhausted: true}
}

func centered(fp Footprint2D, env models.VehicleEnvelope) Point2D {
	return Point2D{
		X: (env.Length - fp.Width) / 2,
		Y: (env.Width - fp.Height) / 2,
	}
}

func adjacentCandidates(fp Footprint2D, item models.FurnitureItem) []Point2D {
	return []Point2D{
		{X: item.X + item.Width + AdjacencyGap, Y: item.Y},
		{X: item.X, Y: item.Y + item.Height + AdjacencyGap},
		{X: item.X - fp.Width - AdjacencyGap, Y: item.Y},
		{X: item.X, Y: item.Y - fp.Height - AdjacencyGap},
	}
}

func tryCandidate(c Point2D, fp Footprint2D, items []models.FurnitureItem, env models.VehicleEnvelope) bool {
	r := Rect{X: c.X, Y: c.Y, Width: fp.Width, Height: fp.Height}
	if !InEnvelope(r, env) {
		return false
	}
	trial := models.FurnitureItem{X: c.X, Y: c.Y, Width: fp.Width, Height: fp.Height}
	return !AnyCollision(trial, items, "", Mode2D)
}

// ResolveOverlaps moves every item in incoming that collides with existing
// or with an earlier incoming item to a position chosen by FindPlacement.
// Collisions use the 3D rule of the commit gate, so stacked items stay put.
// It returns the adjusted copy and the number of moved items. Items for
// which the search is exhausted are left where they were.
func ResolveOverlaps(incoming, existing []models.FurnitureItem, env models.VehicleEnvelope) ([]models.FurnitureItem, int) {
	placed := models.CloneItems(existing)
	out := make([]models.FurnitureItem, 0, len(incoming))
	moved := 0

	for _, item := range incoming {
		candidate := item.Clone()
		if AnyCollision(candidate, placed, candidate.ID, Mode3D) {
			fp := Footprint(candidate)
			p := FindPlacement(Footprint2D{Width: fp.Width, Height: fp.Height}, placed, env)
			if !p.Exhausted {
				candidate = AtFootprint(candidate, p.X, p.Y)
				moved++
			}
		}
		placed = append(placed, candidate)
		out = append(out, candidate)
	}
	return out, moved
}
