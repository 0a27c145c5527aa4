package ui

import (
	"context"
	"fmt"
	"slices"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/desertthunder/tcgx/internal/models"
	"github.com/desertthunder/tcgx/internal/shared"
	"github.com/desertthunder/tcgx/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ListView ViewState = iota
	ConfirmRemoveView
	AdviceView
)

// MarkdownRenderer renders generated Markdown for a terminal of the given width.
type MarkdownRenderer func(markdown string, width int) (string, error)

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	userID       string
	store        models.SavedCardStore
	engine       tasks.Engine
	render       MarkdownRenderer
	view         ViewState
	width        int
	height       int
	cardList     list.Model
	cards        []models.SavedCard
	valuations   map[string]models.CardValuation
	portfolio    *models.Portfolio
	progressChan chan tasks.ProgressUpdate
	doneChan     chan Msg
	progress     tasks.ProgressUpdate
	valuating    bool
	selected     *models.SavedCard
	loadingAdv   bool
	advice       viewport.Model
	status       string
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model for userID's saved cards.
func NewModel(ctx context.Context, userID string, store models.SavedCardStore, engine tasks.Engine) *Model {
	m := &Model{
		ctx:        ctx,
		userID:     userID,
		store:      store,
		engine:     engine,
		render:     renderGlamour,
		view:       ListView,
		valuations: make(map[string]models.CardValuation),
		advice:     viewport.New(0, 0),
		help:       help.New(),
		keys:       newKeyMap(),
	}
	m.cardList = list.New(nil, list.NewDefaultDelegate(), 0, 0)
	m.cardList.Title = "Saved Cards"
	return m
}

// Init loads the saved list.
func (m *Model) Init() tea.Cmd {
	return m.loadCards()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.cardList.SetSize(msg.Width-4, msg.Height-6)
		m.advice.Width = msg.Width - 4
		m.advice.Height = msg.Height - 8
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case ListView:
			return m.handleListKeys(msg)
		case ConfirmRemoveView:
			return m.handleConfirmKeys(msg)
		case AdviceView:
			return m.handleAdviceKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	var cmd tea.Cmd
	m.cardList, cmd = m.cardList.Update(msg)
	return m, cmd
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgCardsLoaded:
		data := msg.data.(cardsLoaded)
		if data.err != nil {
			m.err = data.err
			return m, nil
		}
		m.err = nil
		m.cards = data.cards
		m.status = fmt.Sprintf("%d saved cards", len(data.cards))
		return m, m.cardList.SetItems(cardItems(m.cards, m.valuations))

	case MsgProgressUpdate:
		m.progress = msg.data.(tasks.ProgressUpdate)
		m.status = m.progress.Message
		return m, m.waitForProgress()

	case MsgValuationComplete:
		data := msg.data.(valuationComplete)
		m.valuating = false
		m.progressChan = nil
		m.doneChan = nil
		if data.err != nil {
			m.status = styles.err.Render(fmt.Sprintf("Valuation failed: %v", data.err))
			return m, nil
		}
		m.portfolio = data.portfolio
		for _, v := range data.portfolio.Cards {
			m.valuations[v.Saved.CardID] = v
		}
		m.status = summary(data.portfolio)
		return m, m.cardList.SetItems(cardItems(m.cards, m.valuations))

	case MsgCardRemoved:
		data := msg.data.(cardRemoved)
		m.view = ListView
		m.selected = nil
		if data.err != nil {
			m.status = styles.err.Render(fmt.Sprintf("Remove failed: %v", data.err))
			return m, nil
		}
		delete(m.valuations, data.card.CardID)
		m.status = styles.ok.Render(fmt.Sprintf("Removed %s", data.card.CardName))
		return m, m.loadCards()

	case MsgAdviceReady:
		data := msg.data.(adviceReady)
		m.loadingAdv = false
		if data.err != nil {
			m.advice.SetContent(styles.err.Render(fmt.Sprintf("Could not get an outlook: %v", data.err)))
			return m, nil
		}
		m.advice.SetContent(m.renderAdvice(data.result))
		m.advice.GotoTop()
		return m, nil
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress r to retry, q to quit", m.err))
	}

	switch m.view {
	case ListView:
		return m.renderList()
	case ConfirmRemoveView:
		return m.renderConfirm()
	case AdviceView:
		return m.renderAdviceView()
	default:
		return ""
	}
}

func (m *Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.cardList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.cardList, cmd = m.cardList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.refresh):
		return m, m.loadCards()
	case key.Matches(msg, m.keys.prices):
		return m, m.startValuation()
	case key.Matches(msg, m.keys.remove):
		if card := m.selectedCard(); card != nil {
			m.selected = card
			m.view = ConfirmRemoveView
		}
		return m, nil
	case key.Matches(msg, m.keys.advice):
		if card := m.selectedCard(); card != nil {
			m.selected = card
			m.view = AdviceView
			m.loadingAdv = true
			m.advice.SetContent("")
			return m, m.fetchAdvice(*card)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.cardList, cmd = m.cardList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.yes):
		return m, m.removeCard(*m.selected)
	case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.quit):
		m.view = ListView
		m.selected = nil
	}
	return m, nil
}

func (m *Model) handleAdviceKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back):
		m.view = ListView
		m.selected = nil
		return m, nil
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.advice, cmd = m.advice.Update(msg)
	return m, cmd
}

func (m *Model) selectedCard() *models.SavedCard {
	item, ok := m.cardList.SelectedItem().(cardItem)
	if !ok {
		return nil
	}
	card := item.saved
	return &card
}

func (m *Model) loadCards() tea.Cmd {
	return func() tea.Msg {
		cards, err := m.store.List(m.ctx, m.userID)
		return cardsLoadedMsg(cards, err)
	}
}

func (m *Model) removeCard(card models.SavedCard) tea.Cmd {
	return func() tea.Msg {
		err := m.store.Remove(m.ctx, m.userID, card.CardID)
		return cardRemovedMsg(card, err)
	}
}

// fetchAdvice resolves the card's rarity from the catalog, then asks for an outlook on that printing.
func (m *Model) fetchAdvice(card models.SavedCard) tea.Cmd {
	return func() tea.Msg {
		current, err := m.engine.Lookup(m.ctx, card.CardID)
		if err != nil {
			return adviceReadyMsg(nil, err)
		}
		req := tasks.NewInvestmentRequest(current.Set.Name, current.Name, current.Rarity)
		result, err := m.engine.Invest(m.ctx, req, nil)
		return adviceReadyMsg(result, err)
	}
}

// startValuation runs the engine in the background; progress is read one update per command.
func (m *Model) startValuation() tea.Cmd {
	if m.valuating || len(m.cards) == 0 {
		return nil
	}

	m.valuating = true
	m.progressChan = make(chan tasks.ProgressUpdate, 50)
	m.doneChan = make(chan Msg, 1)

	progress, done := m.progressChan, m.doneChan
	cards := slices.Clone(m.cards)

	go func() {
		portfolio, err := m.engine.Valuate(m.ctx, cards, tasks.ValuationOpts{}, progress)
		close(progress)
		done <- valuationCompleteMsg(portfolio, err)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	progress, done := m.progressChan, m.doneChan
	if progress == nil {
		return nil
	}
	return func() tea.Msg {
		if update, ok := <-progress; ok {
			return progressUpdateMsg(update)
		}
		return <-done
	}
}

func (m *Model) renderList() string {
	helpKeys := []key.Binding{m.keys.advice, m.keys.remove, m.keys.prices, m.keys.refresh, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	status := m.status
	if m.valuating && m.progress.Total > 0 {
		status = fmt.Sprintf("Valuing cards (%d/%d) %s", m.progress.Step, m.progress.Total, m.progress.Message)
	}

	return fmt.Sprintf("%s\n%s\n\n%s", m.cardList.View(), styles.help.Render(status), helpView)
}

func (m *Model) renderConfirm() string {
	title := styles.title.Render(fmt.Sprintf("Remove '%s' from your list?", m.selected.CardName))
	info := fmt.Sprintf("\nSet: %s\nCard: %s\n", m.selected.CardSet, m.selected.CardID)

	helpKeys := []key.Binding{m.keys.yes, m.keys.no, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s\n%s", title, info, helpView)
}

func (m *Model) renderAdviceView() string {
	title := styles.title.Render(fmt.Sprintf("Outlook: %s", m.selected.CardName))

	body := m.advice.View()
	if m.loadingAdv {
		body = styles.help.Render("Asking the advisor...")
	}

	helpKeys := []key.Binding{m.keys.up, m.keys.down, m.keys.back, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s\n\n%s", title, body, helpView)
}

func (m *Model) renderAdvice(result *tasks.InvestmentResult) string {
	header := fmt.Sprintf("%s • %s • %s", result.Card.Set.Name, result.Card.Rarity, styles.price.Render(shared.FormatPrice(result.Card.Prices.Market())))

	text, err := m.render(result.Advice, m.advice.Width)
	if err != nil {
		text = result.Advice
	}
	return header + "\n" + text
}

func summary(p *models.Portfolio) string {
	s := fmt.Sprintf("%d cards • %d priced • total %s", len(p.Cards), p.Priced, shared.FormatPrice(p.Total))
	if p.Stale > 0 {
		s += styles.warn.Render(fmt.Sprintf(" • %d changed upstream", p.Stale))
	}
	if p.Failed > 0 {
		s += styles.err.Render(fmt.Sprintf(" • %d unavailable", p.Failed))
	}
	return s
}

func renderGlamour(markdown string, width int) (string, error) {
	opts := []glamour.TermRendererOption{glamour.WithAutoStyle()}
	if width > 0 {
		opts = append(opts, glamour.WithWordWrap(width))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", err
	}
	return r.Render(markdown)
}
