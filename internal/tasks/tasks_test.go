package tasks

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/tcgx/internal/models"
	"github.com/desertthunder/tcgx/internal/shared"
	tu "github.com/desertthunder/tcgx/internal/testing"
)

func newTestEngine(catalog *tu.MockCatalog, generator *tu.MockGenerator) *CardEngine {
	return NewCardEngine(catalog, generator, log.New(io.Discard))
}

func drain(ch chan ProgressUpdate) []ProgressUpdate {
	close(ch)
	var updates []ProgressUpdate
	for u := range ch {
		updates = append(updates, u)
	}
	return updates
}

func TestInvestmentRequest(t *testing.T) {
	t.Run("Trims Input", func(t *testing.T) {
		req := NewInvestmentRequest(" Base ", "Charizard\t", " Rare Holo")
		if req != (InvestmentRequest{Set: "Base", Name: "Charizard", Rarity: "Rare Holo"}) {
			t.Errorf("unexpected request %+v", req)
		}
		if err := req.Validate(); err != nil {
			t.Errorf("expected valid request, got %v", err)
		}
	})

	t.Run("Missing Fields", func(t *testing.T) {
		err := NewInvestmentRequest("", "Charizard", " ").Validate()
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Fatalf("expected ErrMissingArgument, got %v", err)
		}
		if !strings.Contains(err.Error(), "set, rarity") {
			t.Errorf("expected missing fields to be named, got %v", err)
		}
	})
}

func TestCardEngine(t *testing.T) {
	charizard := tu.NewCard("base1-4", "Charizard", "Base", "Rare Holo", 350.5)
	ctx := context.Background()

	t.Run("Search", func(t *testing.T) {
		t.Run("Builds Query", func(t *testing.T) {
			catalog := tu.NewMockCatalog(charizard)
			engine := newTestEngine(catalog, nil)

			result, err := engine.Search(ctx, models.NewSearchFilter("Charizard", "", "Rare Holo", ""))
			if err != nil {
				t.Fatalf("Search() error = %v", err)
			}

			want := `name:"Charizard" rarity:"Rare Holo"`
			if result.Query != want || catalog.LastQuery() != want {
				t.Errorf("expected query %q, got %q (catalog saw %q)", want, result.Query, catalog.LastQuery())
			}
			if len(result.Cards) != 1 {
				t.Errorf("expected 1 card, got %d", len(result.Cards))
			}
		})

		t.Run("Empty Filter", func(t *testing.T) {
			catalog := tu.NewMockCatalog()
			engine := newTestEngine(catalog, nil)

			result, err := engine.Search(ctx, models.SearchFilter{})
			if err != nil {
				t.Fatalf("Search() with empty filter error = %v", err)
			}
			if result.Query != "" {
				t.Errorf("expected empty query, got %q", result.Query)
			}
		})

		t.Run("Catalog Failure", func(t *testing.T) {
			catalog := &tu.MockCatalog{Err: shared.ErrServiceUnavailable}
			_, err := newTestEngine(catalog, nil).Search(ctx, models.SearchFilter{})
			if !errors.Is(err, shared.ErrServiceUnavailable) {
				t.Errorf("expected ErrServiceUnavailable, got %v", err)
			}
		})

		t.Run("Nil Catalog", func(t *testing.T) {
			_, err := NewCardEngine(nil, nil, nil).Search(ctx, models.SearchFilter{})
			if !errors.Is(err, shared.ErrServiceUnavailable) {
				t.Errorf("expected ErrServiceUnavailable, got %v", err)
			}
		})
	})

	t.Run("Lookup", func(t *testing.T) {
		engine := newTestEngine(tu.NewMockCatalog(charizard), nil)

		t.Run("Found", func(t *testing.T) {
			card, err := engine.Lookup(ctx, " base1-4 ")
			if err != nil {
				t.Fatalf("Lookup() error = %v", err)
			}
			if card.Name != "Charizard" {
				t.Errorf("expected Charizard, got %s", card.Name)
			}
		})

		t.Run("Unknown", func(t *testing.T) {
			_, err := engine.Lookup(ctx, "nope-1")
			if !errors.Is(err, shared.ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}
		})

		t.Run("Blank", func(t *testing.T) {
			_, err := engine.Lookup(ctx, "  ")
			if !errors.Is(err, shared.ErrMissingArgument) {
				t.Errorf("expected ErrMissingArgument, got %v", err)
			}
		})
	})

	t.Run("Invest", func(t *testing.T) {
		t.Run("Uses First Result", func(t *testing.T) {
			other := tu.NewCard("base2-4", "Charizard", "Base", "Rare Holo", 10)
			catalog := tu.NewMockCatalog(charizard, other)
			generator := &tu.MockGenerator{Text: "**Hold.**"}
			engine := newTestEngine(catalog, generator)
			progress := make(chan ProgressUpdate, 10)

			result, err := engine.Invest(ctx, NewInvestmentRequest("Base", "Charizard", "Rare Holo"), progress)
			if err != nil {
				t.Fatalf("Invest() error = %v", err)
			}

			if catalog.LastQuery() != `set.name:"Base" name:"Charizard" rarity:"Rare Holo"` {
				t.Errorf("unexpected investment query %q", catalog.LastQuery())
			}
			if result.Card.ID != "base1-4" {
				t.Errorf("expected first result, got %s", result.Card.ID)
			}
			if result.Advice != "**Hold.**" {
				t.Errorf("unexpected advice %q", result.Advice)
			}
			if len(generator.Prompts) != 1 || !strings.Contains(generator.Prompts[0], "Charizard") {
				t.Errorf("unexpected prompts %v", generator.Prompts)
			}

			updates := drain(progress)
			if len(updates) != 3 {
				t.Fatalf("expected 3 progress updates, got %d", len(updates))
			}
			if updates[0].Phase != FindCard || updates[2].Phase != GenerateAdvice {
				t.Errorf("unexpected phases %v, %v", updates[0].Phase, updates[2].Phase)
			}
		})

		t.Run("Missing Field Skips Services", func(t *testing.T) {
			catalog := tu.NewMockCatalog(charizard)
			generator := &tu.MockGenerator{}
			_, err := newTestEngine(catalog, generator).Invest(ctx, NewInvestmentRequest("Base", "", "Rare"), nil)

			if !errors.Is(err, shared.ErrMissingArgument) {
				t.Errorf("expected ErrMissingArgument, got %v", err)
			}
			if len(catalog.Queries) != 0 || len(generator.Prompts) != 0 {
				t.Error("services should not be called for invalid input")
			}
		})

		t.Run("No Match", func(t *testing.T) {
			generator := &tu.MockGenerator{}
			_, err := newTestEngine(tu.NewMockCatalog(), generator).Invest(ctx, NewInvestmentRequest("Base", "Missingno", "Rare"), nil)

			if !errors.Is(err, shared.ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}
			if len(generator.Prompts) != 0 {
				t.Error("generator should not be called without a card")
			}
		})

		t.Run("Generator Unavailable", func(t *testing.T) {
			generator := &tu.MockGenerator{Err: shared.ErrServiceUnavailable}
			_, err := newTestEngine(tu.NewMockCatalog(charizard), generator).Invest(ctx, NewInvestmentRequest("Base", "Charizard", "Rare Holo"), nil)

			if !errors.Is(err, shared.ErrServiceUnavailable) {
				t.Errorf("expected ErrServiceUnavailable, got %v", err)
			}
		})

		t.Run("Full Progress Channel Does Not Block", func(t *testing.T) {
			progress := make(chan ProgressUpdate)
			engine := newTestEngine(tu.NewMockCatalog(charizard), &tu.MockGenerator{Text: "ok"})

			if _, err := engine.Invest(ctx, NewInvestmentRequest("Base", "Charizard", "Rare Holo"), progress); err != nil {
				t.Fatalf("Invest() error = %v", err)
			}
		})
	})
}

func TestInvestmentPrompt(t *testing.T) {
	card := tu.NewCard("base1-4", "Charizard", "Base", "Rare Holo", 350.5)
	card.Set.Series = "Base"
	card.Prices.UpdatedAt = "2025/01/01"

	prompt := InvestmentPrompt(card)
	for _, want := range []string{"Name: Charizard", "Set: Base (Base series)", "Rarity: Rare Holo", "holofoil", "$350.50", "updated 2025/01/01"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("expected prompt to contain %q:\n%s", want, prompt)
		}
	}

	card.Prices.Variants = nil
	if !strings.Contains(InvestmentPrompt(card), "No current market prices") {
		t.Error("expected prompt to mention missing prices")
	}
}

func TestPhaseString(t *testing.T) {
	tc := map[Phase]string{
		SearchCatalog:  "search_catalog",
		FindCard:       "find_card",
		GenerateAdvice: "generate_advice",
		ValuateCards:   "valuate_cards",
		Phase(99):      "",
	}
	for phase, want := range tc {
		if got := phase.String(); got != want {
			t.Errorf("Phase(%d).String() = %q, want %q", int(phase), got, want)
		}
	}
}
