// package tasks implements card lookups, investment commentary and saved-list valuation.
//
// The core abstraction is Engine, which orchestrates catalog searches, advice generation and valuation.
// Operations emit progress updates via channels for non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/tcgx/internal/models"
	"github.com/desertthunder/tcgx/internal/query"
	"github.com/desertthunder/tcgx/internal/services"
	"github.com/desertthunder/tcgx/internal/shared"
)

// InvestmentRequest identifies the single printing an investment lookup is about.
type InvestmentRequest struct {
	Set    string
	Name   string
	Rarity string
}

// NewInvestmentRequest trims raw form or flag input.
func NewInvestmentRequest(set, name, rarity string) InvestmentRequest {
	return InvestmentRequest{
		Set:    strings.TrimSpace(set),
		Name:   strings.TrimSpace(name),
		Rarity: strings.TrimSpace(rarity),
	}
}

// Validate reports [shared.ErrMissingArgument] naming every blank field.
func (r InvestmentRequest) Validate() error {
	var missing []string
	if strings.TrimSpace(r.Set) == "" {
		missing = append(missing, "set")
	}
	if strings.TrimSpace(r.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(r.Rarity) == "" {
		missing = append(missing, "rarity")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", shared.ErrMissingArgument, strings.Join(missing, ", "))
	}
	return nil
}

// SearchResult contains the query sent to the catalog and what it returned.
type SearchResult struct {
	Query string        `json:"query"`
	Cards []models.Card `json:"cards"`
}

// InvestmentResult contains the selected printing and the generated commentary.
type InvestmentResult struct {
	Query  string      `json:"query"`
	Card   models.Card `json:"card"`
	Prompt string      `json:"prompt"`
	Advice string      `json:"advice"` // Markdown
}

// Engine defines card operations used by the web, CLI and TUI front ends.
type Engine interface {
	// Search builds a query from filter and returns the matching cards. An empty filter is allowed.
	Search(ctx context.Context, filter models.SearchFilter) (*SearchResult, error)

	// Lookup fetches a single printing by catalog id.
	Lookup(ctx context.Context, id string) (*models.Card, error)

	// Invest looks up one printing and asks the generator for commentary on it.
	Invest(ctx context.Context, req InvestmentRequest, progress chan<- ProgressUpdate) (*InvestmentResult, error)

	// Valuate fetches current catalog records for saved cards.
	Valuate(ctx context.Context, cards []models.SavedCard, opts ValuationOpts, progress chan<- ProgressUpdate) (*models.Portfolio, error)
}

// CardEngine implements Engine.
// Contains dependencies on the catalog and generator services.
type CardEngine struct {
	catalog   services.Catalog
	generator services.Generator
	logger    *log.Logger
}

// NewCardEngine creates a new CardEngine with the provided services.
func NewCardEngine(catalog services.Catalog, generator services.Generator, logger *log.Logger) *CardEngine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &CardEngine{catalog: catalog, generator: generator, logger: logger}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *CardEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Search builds the catalog query for filter and runs it.
func (e *CardEngine) Search(ctx context.Context, filter models.SearchFilter) (*SearchResult, error) {
	if e.catalog == nil {
		return nil, fmt.Errorf("%w: catalog not initialized", shared.ErrServiceUnavailable)
	}

	q := query.Build(filter)
	cards, err := e.catalog.Search(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to search catalog: %w", err)
	}

	e.logger.Debug("search", "query", q, "results", len(cards))
	return &SearchResult{Query: q, Cards: cards}, nil
}

// Lookup returns the catalog record for id, wrapping [shared.ErrNotFound] when it does not exist.
func (e *CardEngine) Lookup(ctx context.Context, id string) (*models.Card, error) {
	if e.catalog == nil {
		return nil, fmt.Errorf("%w: catalog not initialized", shared.ErrServiceUnavailable)
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: card id", shared.ErrMissingArgument)
	}

	card, err := e.catalog.Card(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to look up card %s: %w", id, err)
	}
	return card, nil
}

// Invest validates req, selects the first catalog match and generates commentary for it.
func (e *CardEngine) Invest(ctx context.Context, req InvestmentRequest, progress chan<- ProgressUpdate) (*InvestmentResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if e.catalog == nil {
		return nil, fmt.Errorf("%w: catalog not initialized", shared.ErrServiceUnavailable)
	}
	if e.generator == nil {
		return nil, fmt.Errorf("%w: advisor not initialized", shared.ErrServiceUnavailable)
	}

	q := query.Investment(req.Set, req.Name, req.Rarity)
	e.sendProgress(progress, findCardUpdate(1, 2, q))

	cards, err := e.catalog.Search(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to find card: %w", err)
	}
	if len(cards) == 0 {
		return nil, fmt.Errorf("%w: no card matches %s", shared.ErrNotFound, q)
	}

	card := cards[0]
	e.sendProgress(progress, foundCardUpdate(1, 2, &card))
	e.sendProgress(progress, generateAdviceUpdate(2, 2))

	prompt := InvestmentPrompt(card)
	advice, err := e.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate advice: %w", err)
	}

	return &InvestmentResult{Query: q, Card: card, Prompt: prompt, Advice: advice}, nil
}

// InvestmentPrompt describes card and its price snapshot for the generator.
func InvestmentPrompt(card models.Card) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Give a short investment outlook for this Pokémon trading card.\n\n")
	fmt.Fprintf(&b, "Name: %s\n", card.Name)
	fmt.Fprintf(&b, "Set: %s", card.Set.Name)
	if card.Set.Series != "" {
		fmt.Fprintf(&b, " (%s series)", card.Set.Series)
	}
	b.WriteString("\n")
	if card.Set.ReleaseDate != "" {
		fmt.Fprintf(&b, "Released: %s\n", card.Set.ReleaseDate)
	}
	fmt.Fprintf(&b, "Rarity: %s\n", card.Rarity)
	if card.Artist != "" {
		fmt.Fprintf(&b, "Artist: %s\n", card.Artist)
	}

	variants := sortedVariants(card.Prices.Variants)
	if len(variants) == 0 {
		b.WriteString("\nNo current market prices are available.\n")
	} else {
		fmt.Fprintf(&b, "\nCurrent %s prices (USD", card.Prices.Source)
		if card.Prices.UpdatedAt != "" {
			fmt.Fprintf(&b, ", updated %s", card.Prices.UpdatedAt)
		}
		b.WriteString("):\n")
		for _, name := range variants {
			p := card.Prices.Variants[name]
			fmt.Fprintf(&b, "- %s: low %s, mid %s, high %s, market %s\n", name,
				shared.FormatPrice(p.Low), shared.FormatPrice(p.Mid), shared.FormatPrice(p.High), shared.FormatPrice(p.Market))
		}
	}

	b.WriteString("\nCover demand drivers, risks and whether to buy, hold or sell.")
	return b.String()
}

var _ Engine = (*CardEngine)(nil)
