package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/desertthunder/tcgx/internal/formatter"
	"github.com/desertthunder/tcgx/internal/models"
	"github.com/desertthunder/tcgx/internal/shared"
	"github.com/desertthunder/tcgx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// SavedList prints the user's saved cards, optionally valued against the catalog.
func (r *Runner) SavedList(ctx context.Context, cmd *cli.Command) error {
	userID, err := r.currentUser(cmd)
	if err != nil {
		return err
	}

	store, err := r.savedCards(ctx)
	if err != nil {
		return err
	}

	cards, err := store.List(ctx, userID)
	if err != nil {
		return err
	}

	var portfolio *models.Portfolio
	if cmd.Bool("prices") {
		if portfolio, err = r.valuate(ctx, cards); err != nil {
			return err
		}
	} else {
		portfolio = &models.Portfolio{Cards: make([]models.CardValuation, len(cards))}
		for i, c := range cards {
			portfolio.Cards[i] = models.NewCardValuation(c, nil)
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(portfolio, cmd.Bool("pretty"))
	}

	if len(portfolio.Cards) == 0 {
		return r.writePlain("You have not saved any cards yet.\n")
	}

	r.writePlainHeader("Saved cards")
	for _, v := range portfolio.Cards {
		line := fmt.Sprintf("%-14s %-28s %-24s", v.Saved.CardID, v.Saved.CardName, v.Saved.CardSet)
		if cmd.Bool("prices") {
			line += " " + shared.FormatPrice(v.Market)
		}
		if v.Stale {
			line += " (changed)"
		}
		if v.Error != "" {
			line += " (unavailable)"
		}
		r.writePlain("%s\n", line)
	}

	if cmd.Bool("prices") {
		return r.writePlainln("%d cards, estimated value %s", len(portfolio.Cards), shared.FormatPrice(portfolio.Total))
	}
	return r.writePlainln("%d cards", len(portfolio.Cards))
}

// SavedAdd saves a catalog card for the user.
func (r *Runner) SavedAdd(ctx context.Context, cmd *cli.Command) error {
	cardID := strings.TrimSpace(cmd.StringArg("card-id"))
	if cardID == "" {
		return fmt.Errorf("%w: card-id", shared.ErrMissingArgument)
	}

	userID, err := r.currentUser(cmd)
	if err != nil {
		return err
	}

	card, err := r.cardEngine().Lookup(ctx, cardID)
	if err != nil {
		return err
	}

	store, err := r.savedCards(ctx)
	if err != nil {
		return err
	}

	if err := store.Add(ctx, models.NewSavedCard(userID, *card)); err != nil {
		if errors.Is(err, shared.ErrDuplicateEntry) {
			return r.writePlain("%s is already on your list.\n", card.Name)
		}
		return err
	}

	return r.writePlain("✓ Saved %s (%s) to your list\n", card.Name, card.Set.Name)
}

// SavedRemove removes a card from the user's list. Removing a card that is not saved is not an error.
func (r *Runner) SavedRemove(ctx context.Context, cmd *cli.Command) error {
	cardID := strings.TrimSpace(cmd.StringArg("card-id"))
	if cardID == "" {
		return fmt.Errorf("%w: card-id", shared.ErrMissingArgument)
	}

	userID, err := r.currentUser(cmd)
	if err != nil {
		return err
	}

	store, err := r.savedCards(ctx)
	if err != nil {
		return err
	}

	if err := store.Remove(ctx, userID, cardID); err != nil {
		return err
	}
	return r.writePlain("✓ Removed %s from your list\n", cardID)
}

// SavedExport values the saved list and writes it in the requested format.
//
// A markdown export with --images writes a directory with a README and downloaded card images.
func (r *Runner) SavedExport(ctx context.Context, cmd *cli.Command) error {
	format := strings.ToLower(cmd.String("format"))
	output := cmd.String("output")

	userID, err := r.currentUser(cmd)
	if err != nil {
		return err
	}

	store, err := r.savedCards(ctx)
	if err != nil {
		return err
	}

	cards, err := store.List(ctx, userID)
	if err != nil {
		return err
	}

	portfolio, err := r.valuate(ctx, cards)
	if err != nil {
		return err
	}

	if cmd.Bool("images") && formatter.Extension(format) == "md" {
		result, err := formatter.WriteMarkdownExport(portfolio, output, r.httpClient)
		if err != nil {
			return err
		}
		for _, w := range result.Warnings {
			r.logger.Warn("image download failed", "detail", w)
		}
		return r.writePlain("✓ Exported %d cards (%d images) to %s\n", len(portfolio.Cards), result.Images, result.Directory)
	}

	path, err := formatter.WriteExport(portfolio, format, output)
	if err != nil {
		return err
	}
	return r.writePlain("✓ Exported %d cards to %s\n", len(portfolio.Cards), path)
}

// valuate runs the engine over cards, logging progress as it arrives.
func (r *Runner) valuate(ctx context.Context, cards []models.SavedCard) (*models.Portfolio, error) {
	progress := make(chan tasks.ProgressUpdate, 50)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for update := range progress {
			r.logger.Debug(update.Message, "step", update.Step, "total", update.Total)
		}
	}()

	opts := tasks.ValuationOpts{RateLimit: r.config.Credentials.Catalog.RateLimit}
	portfolio, err := r.cardEngine().Valuate(ctx, cards, opts, progress)
	close(progress)
	wg.Wait()

	if err != nil {
		return nil, err
	}
	if portfolio.Failed > 0 {
		r.logger.Warn("some cards could not be priced", "failed", portfolio.Failed)
	}
	return portfolio, nil
}
