package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/tcgx/internal/models"
	"github.com/desertthunder/tcgx/internal/server"
	"github.com/desertthunder/tcgx/internal/services"
	"github.com/desertthunder/tcgx/internal/shared"
	"github.com/urfave/cli/v3"
)

const loginTimeout = 2 * time.Minute

// AuthLogin signs in through the browser using a temporary callback listener on localhost.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	identitySvc, err := services.NewIdentityService(r.config.Credentials.Auth0, r.httpClient)
	if err != nil {
		return err
	}

	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(cmd.Int("port")))
	identity, err := r.doOAuth(ctx, identitySvc.WithRedirectURL("http://"+addr+"/callback"), addr)
	if err != nil {
		return err
	}

	if err := saveIdentity(r.identityPath, identity); err != nil {
		return err
	}
	r.logger.Info("identity saved", "path", r.identityPath)

	return r.writePlain("✓ Signed in as %s\n", displayName(identity))
}

// doOAuth runs the authorization-code flow against a local listener at addr.
func (r *Runner) doOAuth(ctx context.Context, identitySvc *services.IdentityService, addr string) (models.Identity, error) {
	state := shared.GenerateID()
	authURL := identitySvc.AuthCodeURL(state)

	oauthHandler := server.NewOAuthHandler(identitySvc, state)
	router := server.NewBasicRouter()
	router.Handler(oauthHandler)

	httpServer := server.NewHTTPServer(addr, router)

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting login callback server at %v", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("error shutting down server", "error", err)
		}
	}()

	time.Sleep(100 * time.Millisecond)

	r.writePlain("→ Opening browser to sign in...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for sign-in (2 minute timeout)...\n")

	timeout := time.NewTimer(loginTimeout)
	defer timeout.Stop()

	var result server.OAuthResult

	select {
	case result = <-oauthHandler.Result():
	case err := <-serverErrors:
		return models.Identity{}, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return models.Identity{}, fmt.Errorf("%w: sign-in timed out after 2 minutes", shared.ErrTimeout)
	case <-ctx.Done():
		return models.Identity{}, ctx.Err()
	}

	if err := result.Error(); err != nil {
		return models.Identity{}, fmt.Errorf("sign-in failed: %w", err)
	}
	return result.Identity, nil
}

// AuthStatus prints the remembered identity.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	identity, err := loadIdentity(r.identityPath)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(identity, true)
	}

	r.writePlain("✓ Signed in as %s\n", displayName(identity))
	r.writePlain("User ID: %s\n", identity.UserID)
	return nil
}

// AuthLogout forgets the remembered identity. Logging out twice is not an error.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if err := os.Remove(r.identityPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove identity file: %w", err)
	}
	return r.writePlain("✓ Signed out\n")
}

// currentUser resolves the user id from --user, falling back to the remembered identity.
func (r *Runner) currentUser(cmd *cli.Command) (string, error) {
	if user := strings.TrimSpace(cmd.String("user")); user != "" {
		return user, nil
	}

	identity, err := loadIdentity(r.identityPath)
	if err != nil {
		return "", err
	}
	return identity.UserID, nil
}

func saveIdentity(path string, identity models.Identity) error {
	if !identity.Valid() {
		return fmt.Errorf("%w: identity has no subject", shared.ErrAuthFailed)
	}

	data, err := shared.MarshalJSON(identity, true)
	if err != nil {
		return fmt.Errorf("failed to marshal identity: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create identity directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write identity file: %w", err)
	}
	return nil
}

// loadIdentity reads the identity saved by `auth login`.
// A missing or empty file reports [shared.ErrNotAuthenticated].
func loadIdentity(path string) (models.Identity, error) {
	var identity models.Identity

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return identity, shared.ErrNotAuthenticated
	}
	if err != nil {
		return identity, fmt.Errorf("failed to read identity file: %w", err)
	}

	if err := json.Unmarshal(data, &identity); err != nil {
		return identity, fmt.Errorf("%w: corrupt identity file: %v", shared.ErrNotAuthenticated, err)
	}
	if !identity.Valid() {
		return identity, shared.ErrNotAuthenticated
	}
	return identity, nil
}

func displayName(identity models.Identity) string {
	switch {
	case identity.Name != "":
		return identity.Name
	case identity.Email != "":
		return identity.Email
	default:
		return identity.UserID
	}
}
