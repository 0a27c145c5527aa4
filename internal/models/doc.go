// Package models defines domain entities and persistence interfaces for tcgx.
//
// The package contains two categories of types:
//
// 1. Catalog and request values: read-only or transient data that never touches the database
//   - [Card] : A card printing as reported by the catalog, with its price snapshot
//   - [SearchFilter] : One catalog search built from optional [Field] values
//   - [CardValuation] : A saved card joined with its current catalog record
//   - [Identity] : The authenticated subject held in session state
//
// 2. Persistent entities
//   - [SavedCard] : One (user, card) tracking relationship
//
// The [SavedCardStore] interface is the contract the web, CLI and TUI front ends depend on.
package models
