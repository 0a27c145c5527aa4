package web

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/tcgx/internal/models"
	"github.com/desertthunder/tcgx/internal/server"
	"github.com/desertthunder/tcgx/internal/services"
	"github.com/desertthunder/tcgx/internal/shared"
	"github.com/desertthunder/tcgx/internal/tasks"
)

// Options contains the collaborators for an [App].
type Options struct {
	Store       models.SavedCardStore
	Engine      tasks.Engine
	Identity    services.IdentityProvider
	Sessions    *Sessions
	Metrics     *server.Metrics
	RateLimiter *server.RateLimiter // Optional
	Logger      *log.Logger
	PublicURL   string // External base URL for logout redirects; derived from the request when empty
}

// App serves the tcgx web pages.
type App struct {
	store     models.SavedCardStore
	engine    tasks.Engine
	identity  services.IdentityProvider
	sessions  *Sessions
	metrics   *server.Metrics
	limiter   *server.RateLimiter
	logger    *log.Logger
	templates *Templates
	markdown  *Markdown
	publicURL string
}

// New validates opts and parses the page templates.
func New(opts Options) (*App, error) {
	switch {
	case opts.Store == nil:
		return nil, fmt.Errorf("%w: saved-card store", shared.ErrMissingArgument)
	case opts.Engine == nil:
		return nil, fmt.Errorf("%w: card engine", shared.ErrMissingArgument)
	case opts.Identity == nil:
		return nil, fmt.Errorf("%w: identity provider", shared.ErrMissingArgument)
	case opts.Sessions == nil:
		return nil, fmt.Errorf("%w: session store", shared.ErrMissingArgument)
	}
	if opts.Metrics == nil {
		opts.Metrics = server.NewMetrics()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	templates, err := ParseTemplates()
	if err != nil {
		return nil, err
	}

	return &App{
		store:     opts.Store,
		engine:    opts.Engine,
		identity:  opts.Identity,
		sessions:  opts.Sessions,
		metrics:   opts.Metrics,
		limiter:   opts.RateLimiter,
		logger:    opts.Logger.WithPrefix("web"),
		templates: templates,
		markdown:  NewMarkdown(),
		publicURL: strings.TrimRight(opts.PublicURL, "/"),
	}, nil
}

// Handler returns the application's router with its middleware stack.
func (a *App) Handler() http.Handler {
	router := server.NewBasicRouter()
	router.Use(server.RequestID(), server.Logger(a.logger), server.Recover(a.logger), a.metrics.Middleware())
	if a.limiter != nil {
		router.Use(a.limiter.Middleware())
	}
	a.Register(router)
	return router
}

// Register adds every page route to router.
func (a *App) Register(router server.Router) {
	router.Handle(http.MethodGet, "/health", server.Health())
	router.Handle(http.MethodGet, "/metrics", a.metrics.Handler())

	router.Handle(http.MethodGet, "/{$}", http.HandlerFunc(a.home))
	router.Handle(http.MethodGet, "/login", http.HandlerFunc(a.login))
	router.Handle(http.MethodGet, "/callback", http.HandlerFunc(a.callback))
	router.Handle(http.MethodGet, "/logout", http.HandlerFunc(a.logout))

	router.Handle(http.MethodGet, "/investment", a.authed(a.investment))
	router.Handle(http.MethodGet, "/investment/result", a.authed(a.investmentResult))
	router.Handle(http.MethodGet, "/search", a.authed(a.search))
	router.Handle(http.MethodGet, "/search/results", a.authed(a.searchResults))
	router.Handle(http.MethodGet, "/list", a.authed(a.list))
	router.Handle(http.MethodPost, "/list/add", a.authed(a.addCard))
	router.Handle(http.MethodPost, "/list/remove", a.authed(a.removeCard))
}

type authedHandlerFunc func(w http.ResponseWriter, r *http.Request, user models.Identity)

// authed redirects anonymous visitors to /login.
func (a *App) authed(h authedHandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := a.sessions.Identity(r)
		if !ok {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		h(w, r, user)
	})
}

func (a *App) view(w http.ResponseWriter, r *http.Request, title string, data any) view {
	v := view{Title: title, Flashes: a.sessions.Flashes(w, r), Data: data}
	if user, ok := a.sessions.Identity(r); ok {
		v.User = &user
	}
	return v
}

func (a *App) render(w http.ResponseWriter, r *http.Request, status int, page string, v view) {
	if err := a.templates.Render(w, status, page, v); err != nil {
		a.logger.Error("render failed", "page", page, "path", r.URL.Path, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (a *App) renderError(w http.ResponseWriter, r *http.Request, status int, title, message string) {
	a.render(w, r, status, "error.html", a.view(w, r, title, message))
}

// fail maps err onto an error page.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, shared.ErrServiceUnavailable):
		a.metrics.RecordUpstreamError(r)
		a.logger.Warn("upstream unavailable", "path", r.URL.Path, "error", err)
		a.renderError(w, r, http.StatusServiceUnavailable, "Service unavailable",
			"A service tcgx depends on is not responding right now. Please try again later.")
	case errors.Is(err, shared.ErrNotFound):
		a.renderError(w, r, http.StatusNotFound, "Not found", "We could not find what you were looking for.")
	default:
		a.logger.Error("request failed", "path", r.URL.Path, "error", err)
		a.renderError(w, r, http.StatusInternalServerError, "Something went wrong",
			"We could not complete that request. Please try again later.")
	}
}

// redirectWithFlash queues a message and sends the browser to target with 303 See Other.
func (a *App) redirectWithFlash(w http.ResponseWriter, r *http.Request, target, kind, message string) {
	if err := a.sessions.AddFlash(w, r, kind, message); err != nil {
		a.logger.Warn("failed to save flash", "error", err)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// baseURL is the externally visible origin of the app.
func (a *App) baseURL(r *http.Request) string {
	if a.publicURL != "" {
		return a.publicURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}

// localPath returns next when it is a same-origin path, otherwise fallback.
func localPath(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return fallback
	}
	return next
}
