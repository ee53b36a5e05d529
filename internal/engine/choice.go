package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/Porkelson/dnd-project/internal/models"
)

// ErrInvalidChoiceIndex matches every [InvalidChoiceIndexError].
var ErrInvalidChoiceIndex = errors.New("invalid choice index")

// ErrChoiceLocked is returned when a follow-up choice has unmet requirements.
var ErrChoiceLocked = errors.New("choice requirements not met")

// InvalidChoiceIndexError reports a choice index outside an event's choices.
type InvalidChoiceIndexError struct {
	EventID string
	Index   int
	Count   int
}

func (e *InvalidChoiceIndexError) Error() string {
	return fmt.Sprintf("engine: invalid choice index %d for event %q with %d choices", e.Index, e.EventID, e.Count)
}

// Is makes errors.Is(err, ErrInvalidChoiceIndex) hold.
func (e *InvalidChoiceIndexError) Is(target error) bool {
	return target == ErrInvalidChoiceIndex
}

// Follow-up options offered after a choice.
var (
	continueChoice = models.EventChoice{
		Text:    "Continue",
		Outcome: "You continue your journey.",
	}
	restChoice = models.EventChoice{
		Text:    "Rest",
		Outcome: "You take a moment to rest and recover.",
		Grants:  models.NewTagSet("rested"),
	}
	examineChoice = models.EventChoice{
		Text:    "Examine closely",
		Outcome: "You examine the treasure more closely.",
		Grants:  models.NewTagSet("careful_examiner"),
	}
)

// Process applies the player's choice of option choiceIndex on event.
//
// An out-of-range index fails with an [*InvalidChoiceIndexError] before
// anything changes. Otherwise the event's grants are unioned into store,
// which is idempotent, and the outcome is narrated with d. Inventory and
// stats are not touched.
func Process(ctx context.Context, event models.AdventureEvent, choiceIndex int, store *Store, d Describer) (models.EventOutcome, error) {
	if choiceIndex < 0 || choiceIndex >= len(event.Choices) {
		return models.EventOutcome{}, &InvalidChoiceIndexError{
			EventID: event.ID,
			Index:   choiceIndex,
			Count:   len(event.Choices),
		}
	}

	store.AddTags(event.Grants...)

	return models.EventOutcome{
		Description: d.Describe(ctx, event, store.Snapshot()),
		Choices:     followUpChoices(event.Category),
	}, nil
}

// ResolveFollowUp records a follow-up choice from an outcome by unioning its
// grants into store.
func ResolveFollowUp(choice models.EventChoice, store *Store) error {
	if !IsEligible(choice.Requires, store.Tags()) {
		return fmt.Errorf("engine: %q: %w", choice.Text, ErrChoiceLocked)
	}
	store.AddTags(choice.Grants...)
	return nil
}

func followUpChoices(category models.Category) []models.EventChoice {
	choices := []models.EventChoice{cloneChoice(continueChoice)}
	switch category {
	case models.CategoryCombat:
		choices = append(choices, cloneChoice(restChoice))
	case models.CategoryTreasure:
		choices = append(choices, cloneChoice(examineChoice))
	}
	return choices
}

func cloneChoice(c models.EventChoice) models.EventChoice {
	c.Requires = c.Requires.Clone()
	c.Grants = c.Grants.Clone()
	return c
}
