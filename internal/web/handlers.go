package web

import (
	"errors"
	"html/template"
	"net/http"
	"strings"

	"github.com/desertthunder/tcgx/internal/models"
	"github.com/desertthunder/tcgx/internal/shared"
	"github.com/desertthunder/tcgx/internal/tasks"
)

type homeData struct {
	Profile string
}

type investmentData struct {
	Card   models.Card
	Query  string
	Advice template.HTML
	Saved  bool
	Next   string
}

type searchRow struct {
	Card  models.Card
	Saved bool
}

type searchData struct {
	Query   string
	Results []searchRow
	Next    string
}

type listData struct {
	Cards     []models.SavedCard
	Rows      []models.CardValuation
	Portfolio *models.Portfolio
}

func (a *App) home(w http.ResponseWriter, r *http.Request) {
	v := a.view(w, r, "", nil)
	if v.User != nil {
		profile, err := shared.MarshalJSON(v.User, true)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		v.Data = homeData{Profile: string(profile)}
	}
	a.render(w, r, http.StatusOK, "home.html", v)
}

func (a *App) login(w http.ResponseWriter, r *http.Request) {
	state := shared.GenerateID()
	if err := a.sessions.SetState(w, r, state); err != nil {
		a.fail(w, r, err)
		return
	}
	http.Redirect(w, r, a.identity.AuthCodeURL(state), http.StatusFound)
}

func (a *App) callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	expected, err := a.sessions.PopState(w, r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if expected == "" || q.Get("state") != expected {
		a.logger.Warn("rejected callback", "error", shared.ErrInvalidState)
		a.renderError(w, r, http.StatusBadRequest, "Sign-in failed",
			"The sign-in request expired or did not come from this site. Please log in again.")
		return
	}

	code := q.Get("code")
	if code == "" {
		a.logger.Warn("sign-in cancelled", "error", q.Get("error"), "description", q.Get("error_description"))
		a.redirectWithFlash(w, r, "/", flashError, "Sign-in was cancelled.")
		return
	}

	identity, err := a.identity.Authenticate(r.Context(), code)
	if err != nil {
		if errors.Is(err, shared.ErrServiceUnavailable) {
			a.fail(w, r, err)
			return
		}
		a.logger.Warn("authentication failed", "error", err)
		a.redirectWithFlash(w, r, "/", flashError, "Sign-in failed. Please try again.")
		return
	}

	if err := a.sessions.SetIdentity(w, r, identity); err != nil {
		a.fail(w, r, err)
		return
	}
	a.logger.Info("signed in", "user", identity.UserID)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (a *App) logout(w http.ResponseWriter, r *http.Request) {
	if err := a.sessions.Clear(w, r); err != nil {
		a.logger.Warn("failed to clear session", "error", err)
	}
	http.Redirect(w, r, a.identity.LogoutURL(a.baseURL(r)+"/"), http.StatusFound)
}

func (a *App) investment(w http.ResponseWriter, r *http.Request, _ models.Identity) {
	a.render(w, r, http.StatusOK, "investment.html", a.view(w, r, "Investment", nil))
}

func (a *App) investmentResult(w http.ResponseWriter, r *http.Request, user models.Identity) {
	q := r.URL.Query()
	req := tasks.NewInvestmentRequest(q.Get("set"), q.Get("name"), q.Get("rarity"))

	result, err := a.engine.Invest(r.Context(), req, nil)
	switch {
	case errors.Is(err, shared.ErrMissingArgument):
		missing := strings.TrimPrefix(err.Error(), shared.ErrMissingArgument.Error()+": ")
		a.redirectWithFlash(w, r, "/investment", flashError, "Please fill in: "+missing+".")
		return
	case errors.Is(err, shared.ErrNotFound):
		a.redirectWithFlash(w, r, "/investment", flashError, "No card matches that set, name and rarity.")
		return
	case err != nil:
		a.fail(w, r, err)
		return
	}

	advice, err := a.markdown.Render(result.Advice)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	saved, err := a.store.Has(r.Context(), user.UserID, result.Card.ID)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	data := investmentData{
		Card:   result.Card,
		Query:  result.Query,
		Advice: advice,
		Saved:  saved,
		Next:   r.URL.RequestURI(),
	}
	a.render(w, r, http.StatusOK, "investment_result.html", a.view(w, r, result.Card.Name, data))
}

func (a *App) search(w http.ResponseWriter, r *http.Request, _ models.Identity) {
	a.render(w, r, http.StatusOK, "search.html", a.view(w, r, "Search", nil))
}

func (a *App) searchResults(w http.ResponseWriter, r *http.Request, user models.Identity) {
	q := r.URL.Query()
	filter := models.NewSearchFilter(q.Get("name"), q.Get("set"), q.Get("rarity"), q.Get("artist"))

	result, err := a.engine.Search(r.Context(), filter)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	rows := make([]searchRow, len(result.Cards))
	for i, card := range result.Cards {
		saved, err := a.store.Has(r.Context(), user.UserID, card.ID)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		rows[i] = searchRow{Card: card, Saved: saved}
	}

	data := searchData{Query: result.Query, Results: rows, Next: r.URL.RequestURI()}
	a.render(w, r, http.StatusOK, "search_results.html", a.view(w, r, "Results", data))
}

func (a *App) list(w http.ResponseWriter, r *http.Request, user models.Identity) {
	cards, err := a.store.List(r.Context(), user.UserID)
	a.metrics.RecordSavedCard("list", err)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	data := listData{Cards: cards}
	if r.URL.Query().Get("prices") != "" && len(cards) > 0 {
		portfolio, err := a.engine.Valuate(r.Context(), cards, tasks.ValuationOpts{}, nil)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		data.Portfolio = portfolio
		data.Rows = portfolio.Cards
	} else {
		data.Rows = make([]models.CardValuation, len(cards))
		for i, c := range cards {
			data.Rows[i] = models.NewCardValuation(c, nil)
		}
	}

	a.render(w, r, http.StatusOK, "list.html", a.view(w, r, "My List", data))
}

func (a *App) addCard(w http.ResponseWriter, r *http.Request, user models.Identity) {
	next := localPath(r.PostFormValue("next"), "/list")

	card, err := a.engine.Lookup(r.Context(), r.PostFormValue("card_id"))
	switch {
	case errors.Is(err, shared.ErrMissingArgument):
		a.redirectWithFlash(w, r, next, flashError, "No card was selected.")
		return
	case errors.Is(err, shared.ErrNotFound):
		a.redirectWithFlash(w, r, next, flashError, "That card is not in the catalog.")
		return
	case err != nil:
		a.fail(w, r, err)
		return
	}

	err = a.store.Add(r.Context(), models.NewSavedCard(user.UserID, *card))
	a.metrics.RecordSavedCard("add", err)
	switch {
	case errors.Is(err, shared.ErrDuplicateEntry):
		a.redirectWithFlash(w, r, next, flashError, card.Name+" is already on your list.")
	case errors.Is(err, shared.ErrInvalidInput):
		a.redirectWithFlash(w, r, next, flashError, "That card could not be saved.")
	case err != nil:
		a.fail(w, r, err)
	default:
		a.redirectWithFlash(w, r, next, flashInfo, "Saved "+card.Name+" to your list.")
	}
}

func (a *App) removeCard(w http.ResponseWriter, r *http.Request, user models.Identity) {
	next := localPath(r.PostFormValue("next"), "/list")

	cardID := strings.TrimSpace(r.PostFormValue("card_id"))
	if cardID == "" {
		a.redirectWithFlash(w, r, next, flashError, "No card was selected.")
		return
	}

	err := a.store.Remove(r.Context(), user.UserID, cardID)
	a.metrics.RecordSavedCard("remove", err)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.redirectWithFlash(w, r, next, flashInfo, "Removed the card from your list.")
}
