package ingest

import (
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/vanplanner/VanLayoutMCP/internal/errors"
	"github.com/vanplanner/VanLayoutMCP/internal/models"
	"github.com/vanplanner/VanLayoutMCP/internal/utils"
)

var idBuzz = models.VehicleEnvelope{Type: "vw-id-buzz", Length: 4712, Width: 1985}

func newTestPipeline() *Pipeline {
	n := 0
	return New(
		WithLogger(utils.NewLogger(io.Discard, utils.FATAL)),
		WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("item-%d", n)
		}),
	)
}

func TestIngestDefaultsMalformedLayout(t *testing.T) {
	res, err := newTestPipeline().Ingest(`{"layout": "not-an-array"}`, idBuzz)
	require.NoError(t, err)

	assert.Empty(t, res.Items)
	assert.Equal(t, DefaultExplanation, res.Explanation)
	assert.Equal(t, []string{DefaultAlternative}, res.Alternatives)
	assert.False(t, res.Repaired)
	assert.NotEmpty(t, res.Warnings)
}

func TestIngestKeepsImprovementsWithoutPlaceholder(t *testing.T) {
	res, err := newTestPipeline().Ingest(`{"layout": [], "explanation": "tight", "improvements": ["move the seat"]}`, idBuzz)
	require.NoError(t, err)

	assert.Equal(t, "tight", res.Explanation)
	assert.Empty(t, res.Alternatives)
	assert.Equal(t, []string{"move the seat"}, res.Improvements)
}

func TestIngestRepairsTrailingCommas(t *testing.T) {
	raw := `{"layout": [{"type": "bed", "x": 100, "y": 100, "width": 1900, "height": 1400,},], "explanation": "Bed at the rear",}`

	res, err := newTestPipeline().Ingest(raw, idBuzz)
	require.NoError(t, err)

	assert.True(t, res.Repaired)
	require.Len(t, res.Items, 1)
	assert.Equal(t, models.FurnitureBed, res.Items[0].Type)
	assert.Equal(t, "Bed at the rear", res.Explanation)
}

func TestIngestRepairsBareKeysAndCodeFence(t *testing.T) {
	raw := "Sure! Here is the layout:\n```json\n{layout: [{type: \"seat\", x: 10, y: 20, width: 600, height: 600, name: \"Swivel, front\"}], explanation: \"Seat up front\"}\n```\nEnjoy."

	res, err := newTestPipeline().Ingest(raw, idBuzz)
	require.NoError(t, err)

	assert.True(t, res.Repaired)
	require.Len(t, res.Items, 1)
	assert.Equal(t, models.FurnitureSeat, res.Items[0].Type)
	assert.Equal(t, "Swivel, front", res.Items[0].Name)
	assert.Equal(t, 10.0, res.Items[0].X)
}

func TestIngestUnrepairable(t *testing.T) {
	_, err := newTestPipeline().Ingest("I'm sorry, I cannot design a layout for that vehicle.", idBuzz)
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidAIResponse(err))

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Contains(t, appErr.Details, "raw")
}

func TestResolveType(t *testing.T) {
	tests := []struct {
		raw  string
		want models.FurnitureType
	}{
		{"bed", models.FurnitureBed},
		{"KITCHEN", models.FurnitureKitchen},
		{"Lit double", models.FurnitureBed},
		{"xyz-unknown", models.FurnitureCustom},
		{"Compact toilet", models.FurnitureBathroom},
		{"Pull-out drawer", models.FurnitureStorage},
		{"Swivel chair", models.FurnitureSeat},
		{"", models.FurnitureCustom},
		{"Utility cabinet", models.FurnitureStorage},
		{"Split bench", models.FurnitureSeat},
		{"Bedside cabinet", models.FurnitureStorage},
		{"Lit-double", models.FurnitureBed},
		{"Compact WC", models.FurnitureBathroom},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveType(tt.raw))
		})
	}
}

func TestIngestNormalizesItemFields(t *testing.T) {
	raw := `{"layout": [
		{"type": "Lit double", "x": "250mm", "y": "10", "width": 1900, "height": 1400, "rotation": 90},
		{"type": "xyz-unknown", "x": "left", "width": -5}
	], "explanation": "mixed", "alternatives": ["none"]}`

	res, err := newTestPipeline().Ingest(raw, idBuzz)
	require.NoError(t, err)
	require.Len(t, res.Items, 2)

	bed := res.Items[0]
	assert.Equal(t, "item-1", bed.ID)
	assert.Equal(t, models.FurnitureBed, bed.Type)
	assert.Equal(t, "Bed", bed.Name)
	// rotated 90°, the 1900 mm side runs across the vehicle and y is pulled in
	assert.Equal(t, 250.0, bed.X)
	assert.Equal(t, 250.0, bed.Y)
	assert.Equal(t, "gray", bed.Color)
	require.NotNil(t, bed.Rotation)
	assert.Equal(t, 90.0, bed.Rotation.Yaw)

	custom := res.Items[1]
	assert.Equal(t, "item-2", custom.ID)
	assert.Equal(t, models.FurnitureCustom, custom.Type)
	assert.Equal(t, 0.0, custom.X)
	assert.Equal(t, 100.0, custom.Width)
	assert.Equal(t, 100.0, custom.Height)
	assert.Nil(t, custom.Depth)
}

func TestIngestSubstitutesPresetForOversizedFootprint(t *testing.T) {
	raw := `{"layout": [{"type": "bed", "x": 0, "y": 0, "width": 6000, "height": 1400}], "explanation": "huge bed"}`

	res, err := newTestPipeline().Ingest(raw, idBuzz)
	require.NoError(t, err)
	require.Len(t, res.Items, 1)

	assert.Equal(t, 1900.0, res.Items[0].Width)
	assert.Equal(t, 1400.0, res.Items[0].Height)
	assert.NotEmpty(t, res.Warnings)
}

func TestIngestClampsPosition(t *testing.T) {
	raw := `{"layout": [{"type": "seat", "x": 4500, "y": -30, "width": 600, "height": 600}], "explanation": "seat"}`

	res, err := newTestPipeline().Ingest(raw, idBuzz)
	require.NoError(t, err)
	require.Len(t, res.Items, 1)

	assert.Equal(t, 4112.0, res.Items[0].X)
	assert.Equal(t, 0.0, res.Items[0].Y)
}

func TestIngestOutOfBoundsWhenPresetCannotFit(t *testing.T) {
	tiny := models.VehicleEnvelope{Type: "tiny", Length: 1000, Width: 1000}
	raw := `{"layout": [{"type": "bed", "width": 3000, "height": 3000}], "explanation": "no room"}`

	_, err := newTestPipeline().Ingest(raw, tiny)
	require.Error(t, err)
	assert.True(t, apperrors.IsOutOfBoundsError(err))
}

func TestIngestTopLevelArray(t *testing.T) {
	res, err := newTestPipeline().Ingest(`[{"type": "table", "x": 1000, "y": 500, "width": 800, "height": 600}]`, idBuzz)
	require.NoError(t, err)

	require.Len(t, res.Items, 1)
	assert.Equal(t, models.FurnitureTable, res.Items[0].Type)
	assert.Equal(t, DefaultExplanation, res.Explanation)
}

func TestRepairLeavesStringsAlone(t *testing.T) {
	out := Repair(`{"name": "a, ]b", x: 1,}`)
	assert.Equal(t, `{"name": "a, ]b", "x": 1}`, out)
}
