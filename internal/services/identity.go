// Auth0 implementation of [IdentityProvider]
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"

	"github.com/desertthunder/tcgx/internal/models"
	"github.com/desertthunder/tcgx/internal/shared"
)

// IdentityService implements [IdentityProvider] using Auth0's authorization-code flow.
type IdentityService struct {
	config     *oauth2.Config
	baseURL    string
	httpClient *http.Client
}

// NewIdentityService creates an identity client for the configured Auth0 tenant.
//
// Domain may be a bare host ("tenant.us.auth0.com") or a full URL.
func NewIdentityService(cfg shared.Auth0Config, client *http.Client) (*IdentityService, error) {
	if cfg.Domain == "" {
		return nil, fmt.Errorf("%w: auth0 domain", shared.ErrMissingCredentials)
	}
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("%w: auth0 client_id", shared.ErrMissingCredentials)
	}

	if client == nil {
		client = http.DefaultClient
	}

	baseURL := strings.TrimRight(cfg.Domain, "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "https://" + baseURL
	}

	callbackURL := cfg.CallbackURL
	if callbackURL == "" {
		callbackURL = "http://127.0.0.1:3000/callback"
	}

	config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  callbackURL,
		Scopes:       []string{"openid", "profile", "email"},
		Endpoint: oauth2.Endpoint{
			AuthURL:   baseURL + "/authorize",
			TokenURL:  baseURL + "/oauth/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	return &IdentityService{config: config, baseURL: baseURL, httpClient: client}, nil
}

// WithRedirectURL returns a copy of the service that uses redirectURL as its callback.
//
// The CLI login flow uses this to point Auth0 at its temporary localhost listener.
func (s *IdentityService) WithRedirectURL(redirectURL string) *IdentityService {
	config := *s.config
	config.RedirectURL = redirectURL
	return &IdentityService{config: &config, baseURL: s.baseURL, httpClient: s.httpClient}
}

// RedirectURL returns the configured callback URL.
func (s *IdentityService) RedirectURL() string {
	return s.config.RedirectURL
}

// AuthCodeURL returns the OAuth2 authorization URL for user login.
func (s *IdentityService) AuthCodeURL(state string) string {
	return s.config.AuthCodeURL(state)
}

// Exchange trades an authorization code for a token.
func (s *IdentityService) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: missing authorization code", shared.ErrAuthFailed)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	token, err := s.config.Exchange(ctx, code)
	if err != nil {
		return nil, exchangeError(err)
	}
	return token, nil
}

// exchangeError separates a rejected code from a tenant that could not answer.
func exchangeError(err error) error {
	var rerr *oauth2.RetrieveError
	if !errors.As(err, &rerr) || rerr.Response == nil {
		return fmt.Errorf("%w: token exchange: %w", shared.ErrServiceUnavailable, err)
	}
	if code := rerr.Response.StatusCode; code == http.StatusTooManyRequests || code >= 500 {
		return fmt.Errorf("%w: token endpoint returned status %d", shared.ErrServiceUnavailable, code)
	}
	return fmt.Errorf("%w: failed to exchange auth code: %w", shared.ErrAuthFailed, err)
}

// UserInfo resolves the subject that token was issued to.
func (s *IdentityService) UserInfo(ctx context.Context, token *oauth2.Token) (models.Identity, error) {
	api := NewAPIService(s.baseURL, s.httpClient).WithHeader("Authorization", "Bearer "+token.AccessToken)

	resp, err := api.Get(ctx, "/userinfo")
	if err != nil {
		return models.Identity{}, fmt.Errorf("%w: userinfo: %w", shared.ErrServiceUnavailable, err)
	}
	if err := resp.StatusError("userinfo"); errors.Is(err, shared.ErrServiceUnavailable) {
		return models.Identity{}, err
	} else if err != nil {
		return models.Identity{}, fmt.Errorf("%w: userinfo returned status %d", shared.ErrAuthFailed, resp.StatusCode)
	}

	var identity models.Identity
	if err := resp.Decode(&identity); err != nil {
		return models.Identity{}, fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
	}
	if !identity.Valid() {
		return models.Identity{}, fmt.Errorf("%w: userinfo did not include a subject", shared.ErrAuthFailed)
	}

	return identity, nil
}

// Authenticate exchanges code and looks up the user it belongs to.
func (s *IdentityService) Authenticate(ctx context.Context, code string) (models.Identity, error) {
	token, err := s.Exchange(ctx, code)
	if err != nil {
		return models.Identity{}, err
	}
	return s.UserInfo(ctx, token)
}

// LogoutURL returns the tenant logout URL that sends the browser back to returnTo.
func (s *IdentityService) LogoutURL(returnTo string) string {
	params := url.Values{}
	params.Set("returnTo", returnTo)
	params.Set("client_id", s.config.ClientID)
	return s.baseURL + "/v2/logout?" + params.Encode()
}
