package layout

import (
	"github.com/vanplanner/VanLayoutMCP/internal/models"
)

// ReferenceCeiling is the fixed interior height used for volume usage, meters.
const ReferenceCeiling = 2.0

// VolumeUsagePercent is the share of the reference interior volume taken by
// the items' boxes.
func VolumeUsagePercent(items []models.FurnitureItem, env models.VehicleEnvelope) float64 {
	capacity := env.Length / 1000 * env.Width / 1000 * ReferenceCeiling
	if capacity <= 0 {
		return 0
	}
	var used float64
	for _, item := range items {
		used += item.Width / 1000 * item.Height / 1000 * VerticalExtent(item) / 1000
	}
	return used / capacity * 100
}

// FloorUsagePercent is the share of the floor covered by footprints.
// Overlapping footprints are counted twice.
func FloorUsagePercent(items []models.FurnitureItem, env models.VehicleEnvelope) float64 {
	floor := env.Length * env.Width
	if floor <= 0 {
		return 0
	}
	var used float64
	for _, item := range items {
		used += item.Width * item.Height
	}
	return used / floor * 100
}

// Stats summarises a layout.
type Stats struct {
	ItemCount          int                          `json:"item_count"`
	VolumeUsagePercent float64                      `json:"volume_usage_percent"`
	FloorUsagePercent  float64                      `json:"floor_usage_percent"`
	FreeFloorM2        float64                      `json:"free_floor_m2"`
	ByType             map[models.FurnitureType]int `json:"by_type"`
	Collisions         []CollisionPair              `json:"collisions"`
	OutOfBounds        []string                     `json:"out_of_bounds"`
}

// ComputeStats derives usage figures and invariant violations for items.
func ComputeStats(items []models.FurnitureItem, env models.VehicleEnvelope) Stats {
	stats := Stats{
		ItemCount:          len(items),
		VolumeUsagePercent: VolumeUsagePercent(items, env),
		FloorUsagePercent:  FloorUsagePercent(items, env),
		ByType:             make(map[models.FurnitureType]int),
		Collisions:         FindCollisions(items, Mode3D),
		OutOfBounds:        []string{},
	}

	var covered float64
	for _, item := range items {
		stats.ByType[item.Type]++
		covered += item.Width * item.Height
		if ValidateBounds(item, env) != nil {
			stats.OutOfBounds = append(stats.OutOfBounds, item.ID)
		}
	}
	free := (env.Length*env.Width - covered) / 1e6
	if free < 0 {
		free = 0
	}
	stats.FreeFloorM2 = free
	if stats.Collisions == nil {
		stats.Collisions = []CollisionPair{}
	}
	return stats
}
