package main

import (
	"context"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/desertthunder/tcgx/internal/shared"
	"github.com/desertthunder/tcgx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Invest looks up one printing and prints the advisor's outlook on it.
func (r *Runner) Invest(ctx context.Context, cmd *cli.Command) error {
	req := tasks.NewInvestmentRequest(cmd.String("set"), cmd.String("name"), cmd.String("rarity"))
	if err := req.Validate(); err != nil {
		return err
	}

	progress := make(chan tasks.ProgressUpdate, 10)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for update := range progress {
			r.logger.Info(update.Message, "phase", update.Phase)
		}
	}()

	result, err := r.cardEngine().Invest(ctx, req, progress)
	close(progress)
	wg.Wait()

	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, cmd.Bool("pretty"))
	}

	r.writePlainHeader(result.Card.Name)
	r.writePlain("Set: %s\nRarity: %s\nMarket: %s\n", result.Card.Set.Name, result.Card.Rarity, shared.FormatPrice(result.Card.Prices.Market()))
	r.writePlain("Query: %s\n\n", result.Query)

	if cmd.Bool("raw") {
		return r.writePlain("%s\n", result.Advice)
	}

	rendered, err := renderMarkdown(result.Advice)
	if err != nil {
		r.logger.Warn("failed to render markdown", "error", err)
		return r.writePlain("%s\n", result.Advice)
	}
	return r.writePlain("%s", rendered)
}

func renderMarkdown(md string) (string, error) {
	renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		return "", err
	}
	return renderer.Render(md)
}
