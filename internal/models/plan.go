// internal/models/plan.go
package models

import "time"

// Plan 保存的车内布局方案，Items 为权威的家具集合
type Plan struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	VehicleType string          `json:"vehicle_type"`
	Items       []FurnitureItem `json:"items"`
	Notes       string          `json:"notes,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// PlanSummary is the list view of a plan.
type PlanSummary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	VehicleType string    `json:"vehicle_type"`
	ItemCount   int       `json:"item_count"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// FindItem returns the index of the item with id, or -1.
func (p *Plan) FindItem(id string) int {
	for i := range p.Items {
		if p.Items[i].ID == id {
			return i
		}
	}
	return -1
}

// Summary builds the list view.
func (p *Plan) Summary() PlanSummary {
	return PlanSummary{
		ID:          p.ID,
		Name:        p.Name,
		VehicleType: p.VehicleType,
		ItemCount:   len(p.Items),
		UpdatedAt:   p.UpdatedAt,
	}
}
