// internal/services/layout_prompts.go
package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vanplanner/VanLayoutMCP/internal/models"
)

const layoutSystemPrompt = `You are an expert camper van interior designer.
Coordinates are millimeters in the vehicle floor plan: x runs along the vehicle length from the front (0), y runs across the width from the left wall (0).
Each item is an axis-aligned rectangle: "width" spans the x axis, "height" spans the y axis, "depth" is the vertical size, "z" the elevation off the floor.
Allowed types: bed, kitchen, storage, bathroom, table, seat, custom.
Items must stay inside the vehicle and must not overlap unless one sits fully above the other.
Reply with a single JSON object and nothing else:
{"layout":[{"type":"bed","name":"...","x":0,"y":0,"z":0,"width":0,"height":0,"depth":0,"rotation":0,"color":"#RRGGBB"}],"explanation":"...","alternatives":["..."],"improvements":["..."]}`

// buildGeneratePrompt 生成新布局的用户提示
func buildGeneratePrompt(req models.LayoutGenerationRequest, env models.VehicleEnvelope) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Design a complete interior layout for a %s.\n", env.Name)
	fmt.Fprintf(&b, "Usable floor: length %.0f mm, width %.0f mm.\n", env.Length, env.Width)
	if req.Travelers > 0 {
		fmt.Fprintf(&b, "Travelers: %d.\n", req.Travelers)
	}
	if len(req.RequiredTypes) > 0 {
		fmt.Fprintf(&b, "Required furniture: %s.\n", strings.Join(req.RequiredTypes, ", "))
	}
	if p := strings.TrimSpace(req.Preferences); p != "" {
		fmt.Fprintf(&b, "Preferences: %s\n", p)
	}
	b.WriteString("Typical sizes (width x height x depth mm):\n")
	writePresets(&b)
	b.WriteString("Fill \"alternatives\" with other layout ideas worth considering.")
	return b.String()
}

// buildOptimizePrompt 优化现有布局的用户提示
func buildOptimizePrompt(plan *models.Plan, env models.VehicleEnvelope, goals string) string {
	items, _ := json.Marshal(plan.Items)

	var b strings.Builder
	fmt.Fprintf(&b, "Improve this existing layout for a %s.\n", env.Name)
	fmt.Fprintf(&b, "Usable floor: length %.0f mm, width %.0f mm.\n", env.Length, env.Width)
	fmt.Fprintf(&b, "Current items: %s\n", items)
	if g := strings.TrimSpace(goals); g != "" {
		fmt.Fprintf(&b, "Goals: %s\n", g)
	}
	b.WriteString("Keep furniture that already works, return the full revised layout, and list the changes you made in \"improvements\".")
	return b.String()
}

func writePresets(b *strings.Builder) {
	for _, p := range models.Presets() {
		fmt.Fprintf(b, "- %s: %.0f x %.0f x %.0f\n", p.Type, p.Width, p.Height, p.Depth)
	}
}
