package server

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"sync"

	"github.com/desertthunder/tcgx/internal/models"
	"github.com/desertthunder/tcgx/internal/shared"
)

// Authenticator exchanges an authorization code for the identity it belongs to.
type Authenticator interface {
	Authenticate(ctx context.Context, code string) (models.Identity, error)
}

// OAuthResult contains the result of an OAuth authorization flow.
type OAuthResult struct {
	Identity models.Identity
	err      error
}

func (o *OAuthResult) Error() error {
	return o.err
}

// OAuthHandler handles OAuth2 callback requests for authorization code flow.
// Implements the Handler interface for registration with a Router.
type OAuthHandler struct {
	auth        Authenticator
	state       string
	resultChan  chan OAuthResult
	once        sync.Once
	callbackHit bool
	mu          sync.Mutex
}

// NewOAuthHandler creates a new OAuth handler with the given authenticator and state token.
// The state token should be cryptographically random for CSRF protection.
func NewOAuthHandler(auth Authenticator, state string) *OAuthHandler {
	return &OAuthHandler{
		auth:       auth,
		state:      state,
		resultChan: make(chan OAuthResult, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *OAuthHandler) Routes() []string {
	return []string{"GET /callback"}
}

// ServeHTTP handles the OAuth callback request.
//
// Validates state parameter, exchanges authorization code for the user's identity, and sends the
// result through the result channel.
func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.callbackHit {
		h.mu.Unlock()
		writeCallbackPage(w, http.StatusBadRequest, "Already signed in", "This sign-in link has already been used.")
		return
	}
	h.callbackHit = true
	h.mu.Unlock()

	query := r.URL.Query()
	if query.Get("state") != h.state {
		h.Send(OAuthResult{err: shared.ErrInvalidState})
		writeCallbackPage(w, http.StatusBadRequest, "Sign-in failed", "The sign-in request did not match. Run the login command again.")
		return
	}

	code := query.Get("code")
	if code == "" {
		h.Send(OAuthResult{err: fmt.Errorf("%w: %s - %s", shared.ErrAuthFailed, query.Get("error"), query.Get("error_description"))})
		writeCallbackPage(w, http.StatusBadRequest, "Sign-in cancelled", "The identity provider did not authorize the request.")
		return
	}

	identity, err := h.auth.Authenticate(r.Context(), code)
	if err == nil && !identity.Valid() {
		err = fmt.Errorf("%w: identity has no subject", shared.ErrAuthFailed)
	}
	if err != nil {
		h.Send(OAuthResult{err: err})
		writeCallbackPage(w, http.StatusInternalServerError, "Sign-in failed", "Could not confirm your identity.")
		return
	}

	h.Send(OAuthResult{Identity: identity})

	name := identity.Name
	if name == "" {
		name = identity.UserID
	}
	writeCallbackPage(w, http.StatusOK, "✓ Signed in", "Signed in as "+name+". You can close this window and return to the terminal.")
}

var callbackPage = template.Must(template.New("callback").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>tcgx: {{.Title}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: #e3350d; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>{{.Title}}</h1>
        <p>{{.Message}}</p>
    </div>
</body>
</html>
`))

func writeCallbackPage(w http.ResponseWriter, status int, title, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	callbackPage.Execute(w, struct{ Title, Message string }{title, message})
}

// Send sends the OAuth result through the channel (only once).
func (h *OAuthHandler) Send(result OAuthResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result returns the result channel for receiving OAuth flow completion.
//
// Channel will receive exactly one result and then be closed.
func (h *OAuthHandler) Result() <-chan OAuthResult {
	return h.resultChan
}
