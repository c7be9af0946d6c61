// internal/models/export.go
package models

import (
	"time"
)

// ExportResult 导出结果
type ExportResult struct {
	PlanID      string    `json:"plan_id"`
	Title       string    `json:"title"`
	Format      string    `json:"format"`
	ContentType string    `json:"content_type"`
	Content     []byte    `json:"-"`
	GeneratedAt time.Time `json:"generated_at"`
	FilePath    string    `json:"file_path"` // 相对于数据目录
	FileSize    int64     `json:"file_size"`
}
