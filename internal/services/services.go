// package services defines the narrow interfaces tcgx uses to reach external HTTP APIs
//
// Pokémon TCG API (catalog), OpenAI-compatible chat completions (advisor), Auth0 (identity)
package services

import (
	"context"

	"github.com/desertthunder/tcgx/internal/models"
)

// Catalog looks up card printings in a remote card-data service.
type Catalog interface {
	// Search returns the cards matching a query expression built by the query package.
	// An empty expression is valid; an empty result is not an error.
	Search(ctx context.Context, q string) ([]models.Card, error)

	// Card retrieves a single printing by catalog id.
	// Returns [shared.ErrNotFound] when the id is unknown.
	Card(ctx context.Context, id string) (*models.Card, error)
}

// Generator produces free text for a prompt.
type Generator interface {
	// Generate returns the generated text or an error wrapping [shared.ErrServiceUnavailable].
	Generate(ctx context.Context, prompt string) (string, error)
}

// IdentityProvider runs the redirect-based login flow against an external provider.
type IdentityProvider interface {
	// AuthCodeURL returns the provider's login URL carrying state.
	AuthCodeURL(state string) string

	// Authenticate exchanges an authorization code and resolves the subject it belongs to.
	Authenticate(ctx context.Context, code string) (models.Identity, error)

	// LogoutURL returns the provider's logout URL that redirects back to returnTo.
	LogoutURL(returnTo string) string
}

var (
	_ Catalog          = (*CatalogService)(nil)
	_ Generator        = (*AdvisorService)(nil)
	_ IdentityProvider = (*IdentityService)(nil)
)
