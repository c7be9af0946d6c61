// internal/storage/sqlite.go
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	apperrors "github.com/vanplanner/VanLayoutMCP/internal/errors"
	"github.com/vanplanner/VanLayoutMCP/internal/models"
)

// 表结构，按顺序执行
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS plans (
		id           TEXT PRIMARY KEY,
		name         TEXT NOT NULL,
		vehicle_type TEXT NOT NULL,
		items        TEXT NOT NULL DEFAULT '[]',
		notes        TEXT NOT NULL DEFAULT '',
		created_at   TEXT NOT NULL,
		updated_at   TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_plans_updated_at ON plans (updated_at DESC)`,
}

// OpenSQLite 打开指定路径的 sqlite 数据库，必要时创建目录
func OpenSQLite(dbPath string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?mode=rwc&_pragma=busy_timeout(5000)&_pragma=journal_mode(wal)", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// PlanRepository persists plans in SQLite. Items are stored as one JSON
// document per plan.
type PlanRepository struct {
	db *sql.DB
}

// NewPlanRepository wraps an open database.
func NewPlanRepository(db *sql.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

// Init 运行迁移
func (r *PlanRepository) Init(ctx context.Context) error {
	for i, stmt := range migrations {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration %d: %w", i, err)
		}
	}
	return nil
}

// Close closes the underlying database.
func (r *PlanRepository) Close() error {
	return r.db.Close()
}

// Create inserts a new plan. A duplicate ID is a conflict.
func (r *PlanRepository) Create(ctx context.Context, plan *models.Plan) error {
	items, err := encodeItems(plan.Items)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
        INSERT INTO plans (id, name, vehicle_type, items, notes, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
    `, plan.ID, plan.Name, plan.VehicleType, items, plan.Notes,
		formatTime(plan.CreatedAt), formatTime(plan.UpdatedAt))
	if err != nil {
		if _, getErr := r.Get(ctx, plan.ID); getErr == nil {
			return apperrors.NewConflictError(fmt.Sprintf("plan %s already exists", plan.ID), err)
		}
		return fmt.Errorf("insert plan: %w", err)
	}
	return nil
}

// Get loads one plan.
func (r *PlanRepository) Get(ctx context.Context, id string) (*models.Plan, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT id, name, vehicle_type, items, notes, created_at, updated_at
        FROM plans
        WHERE id = ?
    `, id)

	plan, err := scanPlan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("plan %s not found", id), nil)
		}
		return nil, err
	}
	return plan, nil
}

// Update replaces name, vehicle, notes and items of an existing plan.
func (r *PlanRepository) Update(ctx context.Context, plan *models.Plan) error {
	items, err := encodeItems(plan.Items)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
        UPDATE plans
        SET name = ?, vehicle_type = ?, items = ?, notes = ?, updated_at = ?
        WHERE id = ?
    `, plan.Name, plan.VehicleType, items, plan.Notes, formatTime(plan.UpdatedAt), plan.ID)
	if err != nil {
		return fmt.Errorf("update plan: %w", err)
	}
	return expectOneRow(res, plan.ID)
}

// Delete removes a plan.
func (r *PlanRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM plans WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete plan: %w", err)
	}
	return expectOneRow(res, id)
}

// List returns every plan, most recently updated first.
func (r *PlanRepository) List(ctx context.Context) ([]*models.Plan, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT id, name, vehicle_type, items, notes, created_at, updated_at
        FROM plans
        ORDER BY updated_at DESC, id
    `)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	plans := []*models.Plan{}
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}
	return plans, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPlan(row rowScanner) (*models.Plan, error) {
	var (
		p                    models.Plan
		items                string
		createdAt, updatedAt string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.VehicleType, &items, &p.Notes, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(items), &p.Items); err != nil {
		return nil, fmt.Errorf("decode items of plan %s: %w", p.ID, err)
	}
	if p.Items == nil {
		p.Items = []models.FurnitureItem{}
	}
	var err error
	if p.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at of plan %s: %w", p.ID, err)
	}
	if p.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at of plan %s: %w", p.ID, err)
	}
	return &p, nil
}

func encodeItems(items []models.FurnitureItem) (string, error) {
	if items == nil {
		items = []models.FurnitureItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("encode items: %w", err)
	}
	return string(data), nil
}

func expectOneRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("plan %s not found", id), nil)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
