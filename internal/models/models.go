package models

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/tcgx/internal/shared"
)

// Field is an explicitly optional free-text value: either present with a non-blank value or absent.
type Field struct {
	value string
	ok    bool
}

// Some returns a [Field] holding v trimmed. Blank input yields an absent [Field].
func Some(v string) Field {
	v = strings.TrimSpace(v)
	if v == "" {
		return None()
	}
	return Field{value: v, ok: true}
}

// None returns an absent [Field].
func None() Field {
	return Field{}
}

// FieldFrom converts raw form or flag input into a [Field].
func FieldFrom(raw string) Field {
	return Some(raw)
}

// Get returns the value and whether it is present.
func (f Field) Get() (string, bool) {
	return f.value, f.ok
}

// Present reports whether the field holds a value.
func (f Field) Present() bool {
	return f.ok
}

// String returns the value, or "" when absent.
func (f Field) String() string {
	return f.value
}

// SearchFilter holds the optional criteria for one catalog search.
type SearchFilter struct {
	Name   Field
	Set    Field
	Rarity Field
	Artist Field
}

// NewSearchFilter builds a [SearchFilter] from raw form or flag input.
func NewSearchFilter(name, set, rarity, artist string) SearchFilter {
	return SearchFilter{
		Name:   FieldFrom(name),
		Set:    FieldFrom(set),
		Rarity: FieldFrom(rarity),
		Artist: FieldFrom(artist),
	}
}

// Empty reports whether no criteria are present.
func (f SearchFilter) Empty() bool {
	return !f.Name.Present() && !f.Set.Present() && !f.Rarity.Present() && !f.Artist.Present()
}

// CardSet is the expansion a card printing belongs to.
type CardSet struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Series      string `json:"series"`
	ReleaseDate string `json:"releaseDate"`
}

// CardImages holds image URLs for a card.
type CardImages struct {
	Small string `json:"small"`
	Large string `json:"large"`
}

// PriceRange is the market summary for one printing variant (e.g. "holofoil", "normal").
type PriceRange struct {
	Low    float64 `json:"low"`
	Mid    float64 `json:"mid"`
	High   float64 `json:"high"`
	Market float64 `json:"market"`
}

// PriceSnapshot is the most recent market data the catalog has for a card.
type PriceSnapshot struct {
	Source    string                `json:"source"`
	URL       string                `json:"url"`
	UpdatedAt string                `json:"updatedAt"`
	Variants  map[string]PriceRange `json:"prices"`
}

// Market returns the highest market price across variants, or 0 when none is known.
func (p PriceSnapshot) Market() float64 {
	var best float64
	for _, v := range p.Variants {
		if v.Market > best {
			best = v.Market
		}
	}
	return best
}

// Card is a read-only catalog record for one card printing.
type Card struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Supertype string        `json:"supertype"`
	Rarity    string        `json:"rarity"`
	Artist    string        `json:"artist"`
	Set       CardSet       `json:"set"`
	Images    CardImages    `json:"images"`
	Prices    PriceSnapshot `json:"prices"`
}

// SavedCard is one (user, card) tracking relationship.
//
// CardName and CardSet are a snapshot taken when the card was saved.
type SavedCard struct {
	UserID    string    `json:"user_id"`
	CardID    string    `json:"card_id"`
	CardName  string    `json:"card_name"`
	CardSet   string    `json:"card_set"`
	CreatedAt time.Time `json:"created_at"`
}

// NewSavedCard snapshots the display fields of card for userID.
func NewSavedCard(userID string, card Card) *SavedCard {
	return &SavedCard{UserID: userID, CardID: card.ID, CardName: card.Name, CardSet: card.Set.Name}
}

// Validate checks that the identifying fields are present.
func (s *SavedCard) Validate() error {
	if strings.TrimSpace(s.UserID) == "" {
		return fmt.Errorf("%w: user id is required", shared.ErrInvalidInput)
	}
	if strings.TrimSpace(s.CardID) == "" {
		return fmt.Errorf("%w: card id is required", shared.ErrInvalidInput)
	}
	if strings.TrimSpace(s.CardName) == "" {
		return fmt.Errorf("%w: card name is required", shared.ErrInvalidInput)
	}
	return nil
}

// CardValuation joins a saved card with its current catalog record.
type CardValuation struct {
	Saved  SavedCard `json:"saved"`
	Card   *Card     `json:"card,omitempty"`
	Market float64   `json:"market"`
	// Stale is set when the catalog's name or set differs from the saved snapshot.
	Stale bool   `json:"stale"`
	Error string `json:"error,omitempty"`
}

// NewCardValuation compares saved against its current catalog record.
func NewCardValuation(saved SavedCard, card *Card) CardValuation {
	v := CardValuation{Saved: saved, Card: card}
	if card == nil {
		return v
	}
	v.Market = card.Prices.Market()
	v.Stale = shared.NormalizeName(card.Name) != shared.NormalizeName(saved.CardName) ||
		shared.NormalizeName(card.Set.Name) != shared.NormalizeName(saved.CardSet)
	return v
}

// Portfolio is a valued saved list.
type Portfolio struct {
	Cards  []CardValuation `json:"cards"`  // Same order as the saved list
	Total  float64         `json:"total"`  // Sum of market prices
	Priced int             `json:"priced"` // Cards with a market price
	Stale  int             `json:"stale"`  // Cards whose snapshot differs from the catalog
	Failed int             `json:"failed"` // Cards that could not be fetched
}

// Identity is the authenticated subject carried in session state.
type Identity struct {
	UserID string `json:"sub"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

// Valid reports whether the identity names a subject.
func (i Identity) Valid() bool {
	return strings.TrimSpace(i.UserID) != ""
}

// SavedCardStore defines persistence for saved cards.
// Implementations enforce (user, card) uniqueness and isolate users from each other.
type SavedCardStore interface {
	Add(ctx context.Context, card *SavedCard) error               // Add fails with [shared.ErrDuplicateEntry] when already saved
	Remove(ctx context.Context, userID, cardID string) error      // Remove is a no-op when nothing matches
	List(ctx context.Context, userID string) ([]SavedCard, error) // List returns cards in insertion order
	Has(ctx context.Context, userID, cardID string) (bool, error) // Has reports whether the card is saved
}
