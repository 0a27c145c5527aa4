package tasks

import (
	"fmt"

	"github.com/desertthunder/tcgx/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	SearchCatalog Phase = iota
	FindCard
	GenerateAdvice
	ValuateCards
)

func (p Phase) String() string {
	switch p {
	case SearchCatalog:
		return "search_catalog"
	case FindCard:
		return "find_card"
	case GenerateAdvice:
		return "generate_advice"
	case ValuateCards:
		return "valuate_cards"
	default:
		return ""
	}
}

func searchCatalogUpdate(q string) ProgressUpdate {
	msg := fmt.Sprintf("Searching catalog: %s", q)
	if q == "" {
		msg = "Searching catalog (no filters)..."
	}
	return ProgressUpdate{Phase: SearchCatalog, Step: 1, Total: 1, Message: msg}
}

func findCardUpdate(step, total int, q string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FindCard,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Looking up %s...", q),
	}
}

func foundCardUpdate(step, total int, card *models.Card) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FindCard,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Found card: %s (%s, %s)", card.Name, card.Set.Name, card.ID),
		Data:    card,
	}
}

func generateAdviceUpdate(step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   GenerateAdvice,
		Step:    step,
		Total:   total,
		Message: "Generating investment commentary...",
	}
}

func valuateStartUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ValuateCards,
		Step:    0,
		Total:   total,
		Message: fmt.Sprintf("Fetching current prices for %d cards...", total),
	}
}

func valuatedCardUpdate(step, total int, v models.CardValuation) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ValuateCards,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s", step, total, v.Saved.CardName),
		Data:    v,
	}
}

func valuateFailedUpdate(step, total int, v models.CardValuation) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ValuateCards,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %s", step, total, v.Saved.CardName, v.Error),
		Data:    v,
	}
}
