package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/tcgx/internal/models"
	"github.com/desertthunder/tcgx/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgCardsLoaded MsgKind = iota
	MsgProgressUpdate
	MsgValuationComplete
	MsgCardRemoved
	MsgAdviceReady
)

type cardsLoaded struct {
	cards []models.SavedCard
	err   error
}

type valuationComplete struct {
	portfolio *models.Portfolio
	err       error
}

type cardRemoved struct {
	card models.SavedCard
	err  error
}

type adviceReady struct {
	result *tasks.InvestmentResult
	err    error
}

// cardsLoadedMsg is the constructor for [MsgCardsLoaded]
func cardsLoadedMsg(cards []models.SavedCard, err error) Msg {
	return Msg{kind: MsgCardsLoaded, data: cardsLoaded{cards, err}}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// valuationCompleteMsg is the constructor for [MsgValuationComplete]
func valuationCompleteMsg(portfolio *models.Portfolio, err error) Msg {
	return Msg{kind: MsgValuationComplete, data: valuationComplete{portfolio, err}}
}

// cardRemovedMsg is the constructor for [MsgCardRemoved]
func cardRemovedMsg(card models.SavedCard, err error) Msg {
	return Msg{kind: MsgCardRemoved, data: cardRemoved{card, err}}
}

// adviceReadyMsg is the constructor for [MsgAdviceReady]
func adviceReadyMsg(result *tasks.InvestmentResult, err error) Msg {
	return Msg{kind: MsgAdviceReady, data: adviceReady{result, err}}
}
