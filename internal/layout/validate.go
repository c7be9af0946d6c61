package layout

import (
	"fmt"

	apperrors "github.com/vanplanner/VanLayoutMCP/internal/errors"
	"github.com/vanplanner/VanLayoutMCP/internal/models"
)

// CheckCommit validates candidate against the envelope and the other items
// before it is written to the canonical set. The candidate's own ID is
// excluded from the collision test, so the same call serves adds and moves.
func CheckCommit(candidate models.FurnitureItem, items []models.FurnitureItem, env models.VehicleEnvelope, mode Mode) error {
	if err := ValidateBounds(candidate, env); err != nil {
		return err
	}
	for _, other := range items {
		if other.ID == candidate.ID {
			continue
		}
		if Collides(candidate, other, mode) {
			return apperrors.NewConflictError(
				fmt.Sprintf("item %s would overlap %s", displayName(candidate), displayName(other)), nil).
				WithDetail("item_id", candidate.ID).
				WithDetail("conflicts_with", other.ID)
		}
	}
	return nil
}

func displayName(item models.FurnitureItem) string {
	if item.Name != "" {
		return item.Name
	}
	if item.ID != "" {
		return item.ID
	}
	return string(item.Type)
}
