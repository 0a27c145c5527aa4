// Package tasks orchestrates card operations between the catalog, the advice generator and the saved-card store
// with real-time progress reporting.
//
// # Core Operations
//
// The [Engine] interface defines three operations:
//
//  1. [Engine.Search] : Catalog search from a [models.SearchFilter]
//     - Builds the query expression with the query package
//     - Returns the expression alongside the matching cards
//
//  2. [Engine.Invest] : Investment commentary for one printing
//     - Validates that set, name and rarity are present
//     - Looks up the printing and takes the first result, or fails with [shared.ErrNotFound]
//     - Prompts the generator with the card's details and current prices
//
//  3. [Engine.Valuate] : Current market value of a saved list
//     - Fetches each saved card's catalog record with a bounded worker pool behind a token-bucket limiter
//     - Flags entries whose stored name or set no longer match the catalog
//     - Records per-card failures without aborting the run
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
//
// # Implementation
//
// [CardEngine] implements [Engine] with dependencies on:
//   - [services.Catalog] : Pokémon TCG API client
//   - [services.Generator] : OpenAI-compatible completion client
package tasks
