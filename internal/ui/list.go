package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/tcgx/internal/models"
	"github.com/desertthunder/tcgx/internal/shared"
)

var _ list.Item = cardItem{}

// cardItem wraps [models.SavedCard], and its valuation once known, to implement [list.Item].
type cardItem struct {
	saved     models.SavedCard
	valuation *models.CardValuation
}

func (i cardItem) FilterValue() string { return i.saved.CardName }
func (i cardItem) Title() string       { return i.saved.CardName }
func (i cardItem) Description() string {
	desc := i.saved.CardSet
	if v := i.valuation; v != nil {
		switch {
		case v.Error != "":
			desc = fmt.Sprintf("%s • price unavailable", desc)
		default:
			desc = fmt.Sprintf("%s • %s", desc, shared.FormatPrice(v.Market))
		}
		if v.Stale {
			desc += " • changed upstream"
		}
	}
	return desc
}

func cardItems(cards []models.SavedCard, valuations map[string]models.CardValuation) []list.Item {
	items := make([]list.Item, len(cards))
	for i, c := range cards {
		item := cardItem{saved: c}
		if v, ok := valuations[c.CardID]; ok {
			item.valuation = &v
		}
		items[i] = item
	}
	return items
}
