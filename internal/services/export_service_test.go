package services

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/vanplanner/VanLayoutMCP/internal/errors"
	"github.com/vanplanner/VanLayoutMCP/internal/storage"
)

func TestExportServiceExportPlan(t *testing.T) {
	ctx := context.Background()
	plans, _ := newTestPlanService(t)
	store, err := storage.NewFileStorage(t.TempDir())
	require.NoError(t, err)
	svc := NewExportService(plans, store)

	plan, err := plans.CreatePlan(ctx, CreatePlanRequest{Name: "Export me"})
	require.NoError(t, err)
	_, err = plans.AddFurniture(ctx, plan.ID, AddFurnitureRequest{Type: "bed"})
	require.NoError(t, err)

	res, err := svc.ExportPlan(ctx, plan.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "png", res.Format)
	assert.Equal(t, "image/png", res.ContentType)
	assert.True(t, bytes.HasPrefix(res.Content, []byte("\x89PNG")))
	assert.NotEmpty(t, res.FilePath)
	assert.Equal(t, int64(len(res.Content)), res.FileSize)

	res, err = svc.ExportPlan(ctx, plan.ID, "JSON")
	require.NoError(t, err)
	var snapshot struct {
		Plan struct {
			ID string `json:"id"`
		} `json:"plan"`
		Views struct {
			View3D []json.RawMessage `json:"view_3d"`
		} `json:"views"`
	}
	require.NoError(t, json.Unmarshal(res.Content, &snapshot))
	assert.Equal(t, plan.ID, snapshot.Plan.ID)
	assert.Len(t, snapshot.Views.View3D, 1)

	files, err := svc.ListExports(plan.ID)
	require.NoError(t, err)
	assert.Len(t, files, 2)

	require.NoError(t, svc.DeleteExports(plan.ID))
	files, err = svc.ListExports(plan.ID)
	require.NoError(t, err)
	assert.Empty(t, files)

	_, err = svc.ExportPlan(ctx, plan.ID, "pdf")
	assert.True(t, apperrors.IsValidationError(err))

	_, err = svc.ExportPlan(ctx, "missing", "png")
	assert.True(t, apperrors.IsNotFoundError(err))
}
