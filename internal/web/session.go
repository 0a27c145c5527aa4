package web

import (
	"fmt"
	"net/http"

	"github.com/gorilla/sessions"

	"github.com/desertthunder/tcgx/internal/models"
	"github.com/desertthunder/tcgx/internal/shared"
)

const (
	sessionName = "tcgx_session"

	keyUserID = "user_id"
	keyName   = "name"
	keyEmail  = "email"
	keyState  = "oauth_state"

	flashInfo  = "info"
	flashError = "error"
)

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Kind    string
	Message string
}

// Sessions stores the signed-in identity, the pending OAuth state and flash messages in a signed cookie.
type Sessions struct {
	store sessions.Store
}

// NewSessions creates a cookie-backed session store signed with secret.
func NewSessions(secret string, secure bool) (*Sessions, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: session secret is required", shared.ErrMissingConfig)
	}

	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   7 * 24 * 60 * 60,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &Sessions{store: store}, nil
}

// get returns the request's session. A cookie that fails verification yields a fresh session.
func (s *Sessions) get(r *http.Request) *sessions.Session {
	session, err := s.store.Get(r, sessionName)
	if err != nil && session == nil {
		session = sessions.NewSession(s.store, sessionName)
	}
	return session
}

// Identity returns the signed-in user, if any.
func (s *Sessions) Identity(r *http.Request) (models.Identity, bool) {
	session := s.get(r)
	identity := models.Identity{
		UserID: stringValue(session, keyUserID),
		Name:   stringValue(session, keyName),
		Email:  stringValue(session, keyEmail),
	}
	return identity, identity.Valid()
}

// SetIdentity signs the user in.
func (s *Sessions) SetIdentity(w http.ResponseWriter, r *http.Request, identity models.Identity) error {
	session := s.get(r)
	session.Values[keyUserID] = identity.UserID
	session.Values[keyName] = identity.Name
	session.Values[keyEmail] = identity.Email
	return session.Save(r, w)
}

// Clear deletes the session cookie.
func (s *Sessions) Clear(w http.ResponseWriter, r *http.Request) error {
	session := s.get(r)
	session.Values = make(map[any]any)
	session.Options.MaxAge = -1
	return session.Save(r, w)
}

// SetState remembers the OAuth state sent to the identity provider.
func (s *Sessions) SetState(w http.ResponseWriter, r *http.Request, state string) error {
	session := s.get(r)
	session.Values[keyState] = state
	return session.Save(r, w)
}

// PopState returns and forgets the pending OAuth state.
func (s *Sessions) PopState(w http.ResponseWriter, r *http.Request) (string, error) {
	session := s.get(r)
	state := stringValue(session, keyState)
	delete(session.Values, keyState)
	return state, session.Save(r, w)
}

// AddFlash queues a message of kind for the next page.
//
// Messages are kept as []string, which gob encodes without registration.
func (s *Sessions) AddFlash(w http.ResponseWriter, r *http.Request, kind, message string) error {
	session := s.get(r)
	key := flashKey(kind)
	queued, _ := session.Values[key].([]string)
	session.Values[key] = append(queued, message)
	return session.Save(r, w)
}

// Flashes returns and clears the queued messages, errors first.
func (s *Sessions) Flashes(w http.ResponseWriter, r *http.Request) []Flash {
	session := s.get(r)

	var flashes []Flash
	for _, kind := range []string{flashError, flashInfo} {
		key := flashKey(kind)
		queued, _ := session.Values[key].([]string)
		for _, msg := range queued {
			flashes = append(flashes, Flash{Kind: kind, Message: msg})
		}
		delete(session.Values, key)
	}
	if len(flashes) > 0 {
		session.Save(r, w)
	}
	return flashes
}

func flashKey(kind string) string {
	return "_flash_" + kind
}

func stringValue(session *sessions.Session, key string) string {
	v, _ := session.Values[key].(string)
	return v
}
