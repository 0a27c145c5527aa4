package tasks

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/goleak"

	"github.com/desertthunder/tcgx/internal/models"
	"github.com/desertthunder/tcgx/internal/shared"
	tu "github.com/desertthunder/tcgx/internal/testing"
)

func saved(id, name, set string) models.SavedCard {
	return models.SavedCard{UserID: "u1", CardID: id, CardName: name, CardSet: set}
}

func TestValuate(t *testing.T) {
	defer goleak.VerifyNone(t)

	catalog := tu.NewMockCatalog(
		tu.NewCard("base1-4", "Charizard", "Base", "Rare Holo", 350.5),
		tu.NewCard("base1-2", "Blastoise", "Base Set", "Rare Holo", 100),
		tu.NewCard("base1-58", "Pikachu", "Base", "Common", 0),
	)
	engine := newTestEngine(catalog, nil)

	cards := []models.SavedCard{
		saved("base1-4", "Charizard", "Base"),
		saved("base1-2", "Blastoise", "Base"),
		saved("gone-1", "Missingno", "Glitch"),
		saved("base1-58", "Pikachu", "Base"),
	}

	progress := make(chan ProgressUpdate, 20)
	result, err := engine.Valuate(context.Background(), cards, ValuationOpts{NumWorkers: 3, RateLimit: 1000}, progress)
	if err != nil {
		t.Fatalf("Valuate() error = %v", err)
	}

	t.Run("Preserves Input Order", func(t *testing.T) {
		for i, v := range result.Cards {
			if v.Saved.CardID != cards[i].CardID {
				t.Errorf("position %d: expected %s, got %s", i, cards[i].CardID, v.Saved.CardID)
			}
		}
	})

	t.Run("Totals", func(t *testing.T) {
		if result.Total != 450.5 {
			t.Errorf("Total = %v, want 450.5", result.Total)
		}
		if result.Priced != 2 {
			t.Errorf("Priced = %d, want 2", result.Priced)
		}
		if result.Failed != 1 {
			t.Errorf("Failed = %d, want 1", result.Failed)
		}
		if result.Stale != 1 {
			t.Errorf("Stale = %d, want 1", result.Stale)
		}
	})

	t.Run("Records Failures", func(t *testing.T) {
		if result.Cards[2].Error == "" || result.Cards[2].Card != nil {
			t.Errorf("expected missing card to carry an error, got %+v", result.Cards[2])
		}
		if !result.Cards[1].Stale {
			t.Error("expected renamed set to be stale")
		}
	})

	t.Run("Progress", func(t *testing.T) {
		updates := drain(progress)
		if len(updates) != len(cards)+1 {
			t.Fatalf("expected %d updates, got %d", len(cards)+1, len(updates))
		}
		last := updates[len(updates)-1]
		if last.Phase != ValuateCards || last.Step != len(cards) || last.Total != len(cards) {
			t.Errorf("unexpected final update %+v", last)
		}
	})
}

func TestValuateEdgeCases(t *testing.T) {
	defer goleak.VerifyNone(t)

	t.Run("Empty List", func(t *testing.T) {
		result, err := newTestEngine(tu.NewMockCatalog(), nil).Valuate(context.Background(), nil, ValuationOpts{}, nil)
		if err != nil {
			t.Fatalf("Valuate() error = %v", err)
		}
		if len(result.Cards) != 0 || result.Total != 0 {
			t.Errorf("unexpected result %+v", result)
		}
	})

	t.Run("Canceled Context", func(t *testing.T) {
		cards := make([]models.SavedCard, 20)
		for i := range cards {
			cards[i] = saved(fmt.Sprintf("base1-%d", i+1), "Card", "Base")
		}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := newTestEngine(tu.NewMockCatalog(), nil).Valuate(ctx, cards, ValuationOpts{}, nil)
		if err == nil {
			t.Fatal("expected error for canceled context")
		}
	})

	t.Run("Nil Catalog", func(t *testing.T) {
		_, err := NewCardEngine(nil, nil, nil).Valuate(context.Background(), nil, ValuationOpts{}, nil)
		if err == nil {
			t.Fatal("expected error without catalog")
		}
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}
