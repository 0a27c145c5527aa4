// Package web implements the server-rendered tcgx web application.
//
// # Architecture
//
// [App] owns the page handlers and registers them on a [server.BasicRouter] together with the
// shared middleware stack (request ids, logging, panic recovery, metrics and optional rate limiting).
// Pages are html/template files embedded from templates/, each layered on base.html.
//
// Routes
//
//	GET  /                   → Home page, shows the signed-in profile
//	GET  /login              → Redirect to the identity provider
//	GET  /callback           → OAuth completion, stores the identity in the session
//	GET  /logout             → Clear the session and sign out at the provider
//	GET  /investment         → Set / name / rarity form (requires auth)
//	GET  /investment/result  → Card details with generated outlook (requires auth)
//	GET  /search             → Search form (requires auth)
//	GET  /search/results     → Matching cards with save / remove buttons (requires auth)
//	GET  /list               → Saved cards, ?prices=1 adds current market values (requires auth)
//	POST /list/add           → Save card_id (requires auth)
//	POST /list/remove        → Remove card_id (requires auth)
//	GET  /health             → Liveness
//	GET  /metrics            → Prometheus metrics
//
// # State Management
//
// The only server-side state is the saved-card table. Everything else lives in a signed
// gorilla/sessions cookie: the identity (subject, name, email), the pending OAuth state and
// one-shot flash messages.
//
// # Errors
//
// Expected failures (duplicate saves, missing fields, unknown cards) become flash messages and
// a redirect. An unavailable upstream service renders a retry-later page with 503. Storage and
// other failures are logged and render a 500 page.
//
// Generated commentary is Markdown; it is converted with goldmark and sanitized with bluemonday
// before it reaches a template.
package web
