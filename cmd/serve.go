package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/desertthunder/tcgx/internal/server"
	"github.com/desertthunder/tcgx/internal/services"
	"github.com/desertthunder/tcgx/internal/shared"
	"github.com/desertthunder/tcgx/internal/web"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout = 10 * time.Second
	limiterSweep    = time.Minute
)

// Serve runs the web application until ctx is cancelled, then drains in-flight requests.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config := r.config
	if host := cmd.String("host"); host != "" {
		config.Server.Host = host
	}
	if port := cmd.Int("port"); port > 0 {
		config.Server.Port = port
	}
	if err := config.Validate(); err != nil {
		return err
	}

	store, err := r.savedCards(ctx)
	if err != nil {
		return err
	}

	identity, err := services.NewIdentityService(config.Credentials.Auth0, r.httpClient)
	if err != nil {
		return err
	}

	sessions, err := web.NewSessions(config.Server.SessionSecret, cmd.Bool("secure-cookies"))
	if err != nil {
		return err
	}

	limiter := server.NewRateLimiter(config.Server.RateLimit, config.Server.RateBurst, r.logger)

	app, err := web.New(web.Options{
		Store:       store,
		Engine:      r.cardEngine(),
		Identity:    identity,
		Sessions:    sessions,
		Metrics:     server.NewMetrics(),
		RateLimiter: limiter,
		Logger:      r.logger,
		PublicURL:   cmd.String("public-url"),
	})
	if err != nil {
		return err
	}

	addr := config.Server.Addr()
	httpServer := server.NewHTTPServer(addr, app.Handler())
	logger := shared.WithLogger(r.logger, "addr", addr)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		limiter.Run(ctx, limiterSweep)
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if cmd.Bool("open") {
		url := fmt.Sprintf("http://%s/", addr)
		if err := shared.OpenBrowser(url); err != nil {
			r.logger.Warn("failed to open browser", "url", url, "error", err)
		}
	}

	return g.Wait()
}
