// internal/models/ai_layout.go
package models

import "time"

// LayoutGenerationRequest AI 生成布局请求
type LayoutGenerationRequest struct {
	VehicleType     string          `json:"vehicle_type"`
	Preferences     string          `json:"preferences"`
	RequiredTypes   []string        `json:"required_types,omitempty"`
	Travelers       int             `json:"travelers,omitempty"`
	ResolveOverlaps *bool           `json:"resolve_overlaps,omitempty"`
	Existing        []FurnitureItem `json:"-"` // 追加模式下保留的家具，重叠处理需避开
}

// LayoutGenerationResult is what the host receives after ingestion.
type LayoutGenerationResult struct {
	Items        []FurnitureItem `json:"items"`
	Explanation  string          `json:"explanation"`
	Alternatives []string        `json:"alternatives,omitempty"`
	Improvements []string        `json:"improvements,omitempty"`
	Repaired     bool            `json:"repaired"`
	Warnings     []string        `json:"warnings,omitempty"`
	Resolved     int             `json:"resolved_overlaps"`
	Provider     string          `json:"provider,omitempty"`
	GeneratedAt  time.Time       `json:"generated_at"`
}

// AIJournalEntry 记录原始 AI 响应，便于排查
type AIJournalEntry struct {
	PlanID    string    `json:"plan_id,omitempty"`
	Kind      string    `json:"kind"`
	Provider  string    `json:"provider"`
	Raw       string    `json:"raw"`
	Error     string    `json:"error,omitempty"`
	Warnings  []string  `json:"warnings,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
