// Package ingest turns raw LLM layout responses into validated furniture
// records. Malformed fields are absorbed with defaults; only total
// unparseability or a schema failure after defaulting is returned as an
// error.
package ingest

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	apperrors "github.com/vanplanner/VanLayoutMCP/internal/errors"
	"github.com/vanplanner/VanLayoutMCP/internal/layout"
	"github.com/vanplanner/VanLayoutMCP/internal/models"
	"github.com/vanplanner/VanLayoutMCP/internal/utils"
)

const (
	// DefaultExplanation replaces a missing or non-string explanation.
	DefaultExplanation = "Layout generated automatically; no explanation was provided."
	// DefaultAlternative is used when neither alternatives nor improvements came back.
	DefaultAlternative = "No alternative layouts were suggested."

	defaultColor     = "gray"
	defaultDimension = 100.0
)

// Result is the output of a successful ingestion.
type Result struct {
	Items        []models.FurnitureItem `json:"items"`
	Explanation  string                 `json:"explanation"`
	Alternatives []string               `json:"alternatives,omitempty"`
	Improvements []string               `json:"improvements,omitempty"`
	Repaired     bool                   `json:"repaired"`
	Warnings     []string               `json:"warnings,omitempty"`
}

// record is one layout entry after normalization, before it gets an ID.
type record struct {
	Type     models.FurnitureType
	Name     string
	X, Y, Z  float64
	Width    float64
	Height   float64
	Depth    *float64
	Rotation *models.Rotation
	Color    string
}

// Pipeline runs the ingestion stages. The zero value is not usable; build
// one with New.
type Pipeline struct {
	logger *utils.Logger
	newID  func() string
}

// Option customises a Pipeline.
type Option func(*Pipeline)

// WithLogger routes defaulting warnings to logger.
func WithLogger(logger *utils.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// WithIDGenerator replaces the UUID generator, mostly for tests.
func WithIDGenerator(gen func() string) Option {
	return func(p *Pipeline) { p.newID = gen }
}

// New creates a pipeline with the global logger and UUID identifiers.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		logger: utils.GetLogger(),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ingest parses raw and returns furniture records fitted to env.
func (p *Pipeline) Ingest(raw string, env models.VehicleEnvelope) (*Result, error) {
	doc, repaired, err := parseDocument(raw)
	if err != nil {
		p.logger.Error("AI layout response could not be parsed", map[string]interface{}{
			"length": len(raw),
			"error":  err.Error(),
		})
		return nil, err
	}

	res := &Result{Repaired: repaired}
	if repaired {
		p.warn(res, "response JSON was repaired before parsing")
	}

	rawLayout := p.applyDefaults(doc, res)

	records := make([]record, 0, len(rawLayout))
	for i, entry := range rawLayout {
		rec := p.normalize(i, entry, res)
		rec = p.substituteDimensions(i, rec, env, res)
		rec = clampRecord(rec, env)
		records = append(records, rec)
	}

	if err := validate(res, records, raw); err != nil {
		return nil, err
	}

	res.Items = make([]models.FurnitureItem, 0, len(records))
	for i, rec := range records {
		item := p.toItem(rec)
		if err := layout.ValidateBounds(item, env); err != nil {
			return nil, apperrors.NewOutOfBoundsError(
				fmt.Sprintf("layout item %d cannot fit vehicle %s", i, env.Type), err).
				WithDetail("item_index", i)
		}
		res.Items = append(res.Items, item)
	}
	return res, nil
}

// applyDefaults fills the top-level fields so later stages always see a
// well-shaped document.
func (p *Pipeline) applyDefaults(doc map[string]interface{}, res *Result) []interface{} {
	rawLayout, ok := doc["layout"].([]interface{})
	if !ok {
		p.warn(res, "layout missing or not an array, using an empty layout")
		rawLayout = []interface{}{}
	}

	if explanation, ok := toString(doc["explanation"]); ok {
		res.Explanation = explanation
	} else {
		p.warn(res, "explanation missing or not a string, using placeholder")
		res.Explanation = DefaultExplanation
	}

	alternatives, hasAlternatives := toStringList(doc["alternatives"])
	improvements, hasImprovements := toStringList(doc["improvements"])
	if !hasAlternatives && !hasImprovements {
		p.warn(res, "neither alternatives nor improvements provided, using placeholder")
		alternatives = []string{DefaultAlternative}
	}
	res.Alternatives = alternatives
	res.Improvements = improvements
	return rawLayout
}

func (p *Pipeline) normalize(index int, entry interface{}, res *Result) record {
	obj, ok := entry.(map[string]interface{})
	if !ok {
		p.warn(res, fmt.Sprintf("item %d is not an object, using defaults", index))
		obj = map[string]interface{}{}
	}

	rawType, _ := toString(obj["type"])
	rec := record{Type: ResolveType(rawType)}
	if rec.Type == models.FurnitureCustom && rawType != "" && rawType != string(models.FurnitureCustom) {
		p.warn(res, fmt.Sprintf("item %d type %q not recognised, using custom", index, rawType))
	}

	rec.X = p.number(index, obj, "x", 0, res)
	rec.Y = p.number(index, obj, "y", 0, res)
	rec.Width = p.number(index, obj, "width", defaultDimension, res)
	rec.Height = p.number(index, obj, "height", defaultDimension, res)
	if rec.Width <= 0 {
		p.warn(res, fmt.Sprintf("item %d width %.1f is not positive, using %.0f", index, rec.Width, defaultDimension))
		rec.Width = defaultDimension
	}
	if rec.Height <= 0 {
		p.warn(res, fmt.Sprintf("item %d height %.1f is not positive, using %.0f", index, rec.Height, defaultDimension))
		rec.Height = defaultDimension
	}

	if z, ok := toNumber(obj["z"]); ok && z > 0 {
		rec.Z = z
	}
	if depth, ok := toNumber(obj["depth"]); ok && depth > 0 {
		rec.Depth = models.Float64Ptr(depth)
	}
	rec.Rotation = toRotation(obj["rotation"])

	if name, ok := toString(obj["name"]); ok {
		rec.Name = name
	}
	if color, ok := toString(obj["color"]); ok {
		rec.Color = color
	} else {
		rec.Color = defaultColor
	}
	return rec
}

func (p *Pipeline) number(index int, obj map[string]interface{}, key string, fallback float64, res *Result) float64 {
	v, present := obj[key]
	n, ok := toNumber(v)
	if ok {
		return n
	}
	if present {
		p.warn(res, fmt.Sprintf("item %d field %s is not numeric, using %.0f", index, key, fallback))
	}
	return fallback
}

// substituteDimensions swaps an oversized AI footprint for the type preset.
// AI dimensions are never shrunk in place.
func (p *Pipeline) substituteDimensions(index int, rec record, env models.VehicleEnvelope, res *Result) record {
	if rec.Width <= env.Length && rec.Height <= env.Width {
		return rec
	}
	preset := models.PresetFor(rec.Type)
	p.warn(res, fmt.Sprintf("item %d footprint %.0fx%.0f exceeds the vehicle, using %s preset %.0fx%.0f",
		index, rec.Width, rec.Height, preset.Type, preset.Width, preset.Height))
	rec.Width = preset.Width
	rec.Height = preset.Height
	return rec
}

func clampRecord(rec record, env models.VehicleEnvelope) record {
	clamped := layout.ClampToBounds(models.FurnitureItem{
		X: rec.X, Y: rec.Y, Width: rec.Width, Height: rec.Height, Rotation: rec.Rotation,
	}, env)
	rec.X, rec.Y = clamped.X, clamped.Y
	return rec
}

// validate is the final schema check. After defaulting it should not fail;
// it guards against a stage regressing.
func validate(res *Result, records []record, raw string) error {
	if res.Explanation == "" {
		return apperrors.NewInvalidAIResponseError("AI response has no explanation", raw, nil).
			WithDetail("field", "explanation")
	}
	for i, rec := range records {
		if field := missingField(rec); field != "" {
			return apperrors.NewInvalidAIResponseError(
				fmt.Sprintf("layout item %d is missing required field %s", i, field), raw, nil).
				WithDetail("item_index", i).
				WithDetail("field", field)
		}
	}
	return nil
}

func missingField(rec record) string {
	switch {
	case !rec.Type.IsValid():
		return "type"
	case !finite(rec.X):
		return "x"
	case !finite(rec.Y):
		return "y"
	case !finite(rec.Width) || rec.Width <= 0:
		return "width"
	case !finite(rec.Height) || rec.Height <= 0:
		return "height"
	case rec.Color == "":
		return "color"
	}
	return ""
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func (p *Pipeline) toItem(rec record) models.FurnitureItem {
	name := rec.Name
	if name == "" {
		name = models.PresetFor(rec.Type).Name
	}
	return models.FurnitureItem{
		ID:       p.newID(),
		Type:     rec.Type,
		Name:     name,
		X:        rec.X,
		Y:        rec.Y,
		Z:        rec.Z,
		Width:    rec.Width,
		Height:   rec.Height,
		Depth:    rec.Depth,
		Rotation: rec.Rotation,
		Color:    rec.Color,
	}
}

func (p *Pipeline) warn(res *Result, msg string) {
	res.Warnings = append(res.Warnings, msg)
	p.logger.Warn("AI layout ingestion: "+msg, nil)
}
