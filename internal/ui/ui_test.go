package ui

import (
	"context"
	"database/sql"
	"io"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/desertthunder/tcgx/internal/models"
	"github.com/desertthunder/tcgx/internal/repositories"
	"github.com/desertthunder/tcgx/internal/shared"
	"github.com/desertthunder/tcgx/internal/tasks"
	tu "github.com/desertthunder/tcgx/internal/testing"
)

const userID = "auth0|ash"

var (
	pikachu   = tu.NewCard("base1-58", "Pikachu", "Base", "Common", 2.5)
	charizard = tu.NewCard("base1-4", "Charizard", "Base", "Rare Holo", 350)
)

type fixture struct {
	db        *sql.DB
	model     *Model
	catalog   *tu.MockCatalog
	generator *tu.MockGenerator
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	if err := shared.RunMigrations(ctx, db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store := repositories.NewSavedCardRepository(db)
	for _, c := range []models.Card{pikachu, charizard} {
		if err := store.Add(ctx, models.NewSavedCard(userID, c)); err != nil {
			t.Fatalf("failed to seed saved card: %v", err)
		}
	}

	catalog := tu.NewMockCatalog(pikachu, charizard)
	generator := &tu.MockGenerator{Text: "**Hold** this one."}
	engine := tasks.NewCardEngine(catalog, generator, log.New(io.Discard))

	m := NewModel(ctx, userID, store, engine)
	m.render = func(markdown string, width int) (string, error) {
		return "RENDERED:" + markdown, nil
	}
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})

	return &fixture{db: db, model: m, catalog: catalog, generator: generator}
}

// run executes cmd and feeds its message back into the model.
func run(t *testing.T, m *Model, cmd tea.Cmd) tea.Cmd {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	_, next := m.Update(cmd())
	return next
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func TestModel(t *testing.T) {
	t.Run("Init loads saved cards", func(t *testing.T) {
		f := setup(t)
		run(t, f.model, f.model.Init())

		if len(f.model.cards) != 2 {
			t.Fatalf("expected 2 cards, got %d", len(f.model.cards))
		}
		if n := len(f.model.cardList.Items()); n != 2 {
			t.Errorf("expected 2 list items, got %d", n)
		}
		if !strings.Contains(f.model.View(), "Pikachu") {
			t.Error("expected list view to show Pikachu")
		}
	})

	t.Run("remove with confirmation", func(t *testing.T) {
		f := setup(t)
		m := f.model
		run(t, m, m.Init())

		m.Update(keyPress("d"))
		if m.view != ConfirmRemoveView {
			t.Fatalf("expected confirm view, got %v", m.view)
		}
		if !strings.Contains(m.View(), "Remove 'Pikachu'") {
			t.Errorf("unexpected confirm view %q", m.View())
		}

		_, cmd := m.Update(keyPress("y"))
		reload := run(t, m, cmd)
		if m.view != ListView {
			t.Errorf("expected list view after remove, got %v", m.view)
		}
		run(t, m, reload)

		if len(m.cards) != 1 || m.cards[0].CardID != charizard.ID {
			t.Errorf("expected only Charizard to remain, got %+v", m.cards)
		}
	})

	t.Run("cancel remove", func(t *testing.T) {
		f := setup(t)
		m := f.model
		run(t, m, m.Init())

		m.Update(keyPress("d"))
		m.Update(keyPress("n"))

		if m.view != ListView {
			t.Errorf("expected list view, got %v", m.view)
		}
		var n int
		f.db.QueryRow("SELECT COUNT(*) FROM saved_cards").Scan(&n)
		if n != 2 {
			t.Errorf("expected 2 saved cards, got %d", n)
		}
	})

	t.Run("advice view", func(t *testing.T) {
		f := setup(t)
		m := f.model
		run(t, m, m.Init())

		_, cmd := m.Update(keyPress("enter"))
		if m.view != AdviceView {
			t.Fatalf("expected advice view, got %v", m.view)
		}
		if !strings.Contains(m.View(), "Asking the advisor") {
			t.Errorf("expected loading message, got %q", m.View())
		}

		run(t, m, cmd)

		if want := `set.name:"Base" name:"Pikachu" rarity:"Common"`; f.catalog.LastQuery() != want {
			t.Errorf("expected query %q, got %q", want, f.catalog.LastQuery())
		}
		view := m.View()
		if !strings.Contains(view, "RENDERED:**Hold** this one.") {
			t.Errorf("expected rendered advice, got %q", view)
		}

		m.Update(keyPress("esc"))
		if m.view != ListView {
			t.Errorf("expected list view after esc, got %v", m.view)
		}
	})

	t.Run("advice failure", func(t *testing.T) {
		f := setup(t)
		m := f.model
		run(t, m, m.Init())
		f.generator.Err = shared.ErrServiceUnavailable

		_, cmd := m.Update(keyPress("enter"))
		run(t, m, cmd)

		if !strings.Contains(m.View(), "Could not get an outlook") {
			t.Errorf("expected failure message, got %q", m.View())
		}
	})

	t.Run("valuation", func(t *testing.T) {
		f := setup(t)
		m := f.model
		run(t, m, m.Init())

		_, cmd := m.Update(keyPress("p"))
		if !m.valuating {
			t.Fatal("expected valuation to start")
		}

		for m.valuating {
			if cmd == nil {
				t.Fatal("valuation stopped without completing")
			}
			msg := cmd()
			_, cmd = m.Update(msg)
		}

		if m.portfolio == nil {
			t.Fatal("expected a portfolio")
		}
		if m.portfolio.Total != 352.5 {
			t.Errorf("expected total 352.5, got %v", m.portfolio.Total)
		}
		if !strings.Contains(m.status, "$352.50") {
			t.Errorf("expected status to show total, got %q", m.status)
		}
		if _, ok := m.valuations[pikachu.ID]; !ok {
			t.Error("expected a valuation for Pikachu")
		}
	})

	t.Run("load error", func(t *testing.T) {
		f := setup(t)
		f.db.Close()

		run(t, f.model, f.model.Init())
		if f.model.err == nil {
			t.Fatal("expected an error")
		}
		if !strings.Contains(f.model.View(), "Error:") {
			t.Errorf("expected error view, got %q", f.model.View())
		}
	})
}

func TestCardItem(t *testing.T) {
	saved := models.SavedCard{CardID: "base1-58", CardName: "Pikachu", CardSet: "Base"}

	t.Run("without valuation", func(t *testing.T) {
		item := cardItem{saved: saved}
		if item.Title() != "Pikachu" || item.Description() != "Base" {
			t.Errorf("unexpected item %q / %q", item.Title(), item.Description())
		}
	})

	t.Run("with valuation", func(t *testing.T) {
		card := tu.NewCard("base1-58", "Pikachu", "Base Set 2", "Common", 2.5)
		v := models.NewCardValuation(saved, &card)
		item := cardItem{saved: saved, valuation: &v}

		desc := item.Description()
		if !strings.Contains(desc, "$2.50") || !strings.Contains(desc, "changed upstream") {
			t.Errorf("unexpected description %q", desc)
		}
	})

	t.Run("failed valuation", func(t *testing.T) {
		v := models.CardValuation{Saved: saved, Error: "boom"}
		item := cardItem{saved: saved, valuation: &v}
		if !strings.Contains(item.Description(), "price unavailable") {
			t.Errorf("unexpected description %q", item.Description())
		}
	})
}
