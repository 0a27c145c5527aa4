// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI browses one user's saved cards:
//  1. [ListView] : Saved cards, with current market prices once valued
//  2. [ConfirmRemoveView] : Confirm removing the selected card
//  3. [AdviceView] : Generated investment outlook for the selected card, rendered with glamour
//
// The [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Valuation progress flows through a channel from the card engine, providing non-blocking status reporting.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, d, p, y/n, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
