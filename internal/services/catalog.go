// Pokémon TCG API implementation of [Catalog]
//
// Response types based on https://docs.pokemontcg.io/api-reference/cards/card-object
package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/tcgx/internal/models"
	"github.com/desertthunder/tcgx/internal/shared"
)

const (
	catalogBaseURL  = "https://api.pokemontcg.io/v2"
	catalogPageSize = 20
)

// TCGSet is the set object embedded in a card.
type TCGSet struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Series      string `json:"series"`
	ReleaseDate string `json:"releaseDate"`
}

// TCGPrice is one variant's TCGplayer price summary.
type TCGPrice struct {
	Low       float64 `json:"low"`
	Mid       float64 `json:"mid"`
	High      float64 `json:"high"`
	Market    float64 `json:"market"`
	DirectLow float64 `json:"directLow"`
}

// TCGPlayer holds TCGplayer market data for a card.
type TCGPlayer struct {
	URL       string              `json:"url"`
	UpdatedAt string              `json:"updatedAt"`
	Prices    map[string]TCGPrice `json:"prices"`
}

// TCGCard represents a card object returned by the API.
type TCGCard struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Supertype string `json:"supertype"`
	Rarity    string `json:"rarity"`
	Artist    string `json:"artist"`
	Set       TCGSet `json:"set"`
	Images    struct {
		Small string `json:"small"`
		Large string `json:"large"`
	} `json:"images"`
	TCGPlayer *TCGPlayer `json:"tcgplayer"`
}

// ToModel converts the API card into a [models.Card].
func (c TCGCard) ToModel() models.Card {
	card := models.Card{
		ID:        c.ID,
		Name:      c.Name,
		Supertype: c.Supertype,
		Rarity:    c.Rarity,
		Artist:    c.Artist,
		Set: models.CardSet{
			ID:          c.Set.ID,
			Name:        c.Set.Name,
			Series:      c.Set.Series,
			ReleaseDate: c.Set.ReleaseDate,
		},
		Images: models.CardImages{Small: c.Images.Small, Large: c.Images.Large},
	}

	if c.TCGPlayer != nil {
		card.Prices = models.PriceSnapshot{
			Source:    "tcgplayer",
			URL:       c.TCGPlayer.URL,
			UpdatedAt: c.TCGPlayer.UpdatedAt,
			Variants:  make(map[string]models.PriceRange, len(c.TCGPlayer.Prices)),
		}
		for variant, p := range c.TCGPlayer.Prices {
			card.Prices.Variants[variant] = models.PriceRange{Low: p.Low, Mid: p.Mid, High: p.High, Market: p.Market}
		}
	}

	return card
}

// CatalogService implements [Catalog] for the Pokémon TCG API.
type CatalogService struct {
	api      *APIService
	limiter  *rate.Limiter
	pageSize int
	logger   *log.Logger
}

// NewCatalogService creates a catalog client from config. A nil client uses [http.DefaultClient].
//
// A non-positive rate limit disables client-side throttling.
func NewCatalogService(cfg shared.CatalogConfig, client *http.Client, logger *log.Logger) *CatalogService {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = catalogBaseURL
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = catalogPageSize
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}

	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &CatalogService{
		api:      NewAPIService(baseURL, client).WithHeader("X-Api-Key", cfg.APIKey),
		limiter:  rate.NewLimiter(limit, 1),
		pageSize: pageSize,
		logger:   logger.WithPrefix("catalog"),
	}
}

// Name returns the name of the service
func (c *CatalogService) Name() string {
	return "Pokémon TCG API"
}

// Search returns up to one page of cards matching q, ordered by release date.
func (c *CatalogService) Search(ctx context.Context, q string) ([]models.Card, error) {
	params := url.Values{}
	if q = strings.TrimSpace(q); q != "" {
		params.Set("q", q)
	}
	params.Set("pageSize", strconv.Itoa(c.pageSize))
	params.Set("orderBy", "-set.releaseDate")

	var response struct {
		Data       []TCGCard `json:"data"`
		TotalCount int       `json:"totalCount"`
	}

	if err := c.get(ctx, "/cards?"+params.Encode(), &response); err != nil {
		return nil, err
	}

	cards := make([]models.Card, len(response.Data))
	for i, card := range response.Data {
		cards[i] = card.ToModel()
	}

	c.logger.Debug("search complete", "query", q, "results", len(cards), "total", response.TotalCount)
	return cards, nil
}

// Card retrieves one card printing by id.
func (c *CatalogService) Card(ctx context.Context, id string) (*models.Card, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: card id", shared.ErrMissingArgument)
	}

	var response struct {
		Data TCGCard `json:"data"`
	}

	if err := c.get(ctx, "/cards/"+url.PathEscape(id), &response); err != nil {
		return nil, err
	}

	card := response.Data.ToModel()
	return &card, nil
}

func (c *CatalogService) get(ctx context.Context, path string, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: catalog rate limiter: %w", shared.ErrServiceUnavailable, err)
	}

	resp, err := c.api.Get(ctx, path)
	if err != nil {
		return fmt.Errorf("%w: catalog: %w", shared.ErrServiceUnavailable, err)
	}

	if err := resp.StatusError("catalog"); err != nil {
		c.logger.Warn("catalog request failed", "path", path, "status", resp.StatusCode)
		return err
	}

	return resp.Decode(result)
}
