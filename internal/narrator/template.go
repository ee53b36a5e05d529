package narrator

import (
	"context"
	"strings"

	"github.com/Porkelson/dnd-project/internal/models"
)

var categoryDetail = map[models.Category]string{
	models.CategoryExploration: "The area is filled with interesting details and potential discoveries.",
	models.CategoryCombat:      "The situation is tense and dangerous.",
	models.CategorySocial:      "The person seems to have valuable information or items.",
	models.CategoryPuzzle:      "There are clues scattered around that might help solve this puzzle.",
	models.CategoryTreasure:    "Valuable items are visible, but there might be traps or guardians.",
}

// Template is the deterministic provider. It never fails and uses no network.
type Template struct{}

// Generate implements Provider.
func (Template) Generate(_ context.Context, event models.AdventureEvent, state models.PlayerState) (string, error) {
	var b strings.Builder
	b.WriteString("You encounter ")
	b.WriteString(strings.ToLower(event.Title))
	b.WriteString(". ")
	b.WriteString(event.Prompt)

	if detail, ok := categoryDetail[event.Category]; ok {
		b.WriteString(" ")
		b.WriteString(detail)
	}
	if state.Tags.Has("rested") {
		b.WriteString(" You feel well-rested and ready for anything.")
	}
	if state.Stats.Health*2 < state.Stats.MaxHealth {
		b.WriteString(" Your injuries make this situation more challenging.")
	}
	if state.Stats.Level > 5 {
		b.WriteString(" Your experience helps you notice details that others might miss.")
	}
	return b.String(), nil
}
