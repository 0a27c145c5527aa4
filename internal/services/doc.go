// Package services implements the external collaborators of tcgx behind the [Catalog], [Generator] and
// [IdentityProvider] interfaces.
//
// # Raw API client
//
// [APIService] performs JSON-over-HTTP requests against a base URL, attaching default headers and returning an
// [APIResponse] with status, headers, raw body and decoded JSON. The catalog and advisor clients are built on it.
//
// # Catalog
//
// [CatalogService] talks to the Pokémon TCG API (https://docs.pokemontcg.io). Searches call GET /cards?q=... and
// single lookups GET /cards/{id}. The optional API key is sent in the X-Api-Key header. Requests pass through a
// token-bucket [rate.Limiter] so bulk operations stay under the public quota.
//
// # Advisor
//
// [AdvisorService] posts to an OpenAI-compatible /chat/completions endpoint. The default configuration targets
// LM Studio running locally.
//
// # Identity
//
// [IdentityService] runs the Auth0 authorization-code flow through [oauth2.Config] and resolves the subject with
// the /userinfo endpoint.
//
// # Error Handling
//
// Services use typed errors from the shared package:
//   - [shared.ErrServiceUnavailable] : transport failure, 429 or 5xx from the remote service
//   - [shared.ErrNotFound] : unknown card id
//   - [shared.ErrAPIRequest] : any other unexpected response
//   - [shared.ErrAuthFailed] : code exchange or userinfo lookup failed
//   - [shared.ErrMissingCredentials] : identity provider not configured
package services
