package main

import (
	"context"

	"github.com/desertthunder/tcgx/internal/models"
	"github.com/desertthunder/tcgx/internal/shared"
	"github.com/urfave/cli/v3"
)

// Search queries the catalog with the given filters. No filters lists the catalog's first page.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	filter := models.NewSearchFilter(cmd.String("name"), cmd.String("set"), cmd.String("rarity"), cmd.String("artist"))

	r.logger.Debug("searching catalog", "filter", filter)

	result, err := r.cardEngine().Search(ctx, filter)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, cmd.Bool("pretty"))
	}

	if result.Query != "" {
		r.writePlain("Query: %s\n", result.Query)
	}
	if len(result.Cards) == 0 {
		return r.writePlain("No cards found.\n")
	}

	r.writePlainHeader("Results")
	for _, c := range result.Cards {
		r.writePlain("%-14s %-28s %-24s %-16s %s\n", c.ID, c.Name, c.Set.Name, c.Rarity, shared.FormatPrice(c.Prices.Market()))
	}
	return r.writePlainln("%d cards", len(result.Cards))
}
