// Package server provides HTTP routing, middleware, and OAuth handling for the CLI and web interfaces.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally and registers
// "METHOD /path" patterns, so the mux answers other methods with 405.
//
// # Middleware
//
//   - [RequestID] tags each request and echoes the id in X-Request-ID
//   - [Logger] writes one structured line per request
//   - [Recover] converts handler panics into 500 responses
//   - [RateLimiter] applies a token bucket per client address
//   - [Metrics] records Prometheus request counters and latency histograms
//
// # OAuth Callback Handler
//
// [OAuthHandler] implements the OAuth2 authorization code callback for `tcgx auth login`.
//
// The handler validates the state parameter (CSRF protection), exchanges the authorization code
// for the user's identity, and sends the result through a channel.
//
// It only processes one callback to prevent replay attacks.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
