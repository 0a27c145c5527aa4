package web

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/tcgx/internal/models"
	"github.com/desertthunder/tcgx/internal/repositories"
	"github.com/desertthunder/tcgx/internal/shared"
	"github.com/desertthunder/tcgx/internal/tasks"
	tu "github.com/desertthunder/tcgx/internal/testing"
)

var (
	ash   = models.Identity{UserID: "auth0|ash", Name: "Ash Ketchum", Email: "ash@example.com"}
	misty = models.Identity{UserID: "auth0|misty", Name: "Misty", Email: "misty@example.com"}

	pikachu   = tu.NewCard("base1-58", "Pikachu", "Base", "Common", 2.5)
	charizard = tu.NewCard("base1-4", "Charizard", "Base", "Rare Holo", 350)
)

type testEnv struct {
	t         *testing.T
	srv       *httptest.Server
	db        *sql.DB
	catalog   *tu.MockCatalog
	generator *tu.MockGenerator
	identity  *tu.MockIdentity
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	if err := shared.RunMigrations(context.Background(), db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	catalog := tu.NewMockCatalog(pikachu, charizard)
	generator := &tu.MockGenerator{Text: "**Hold** for now."}
	identity := &tu.MockIdentity{Identity: ash}
	logger := log.New(io.Discard)

	sessions, err := NewSessions("test-secret", false)
	if err != nil {
		t.Fatalf("NewSessions() error = %v", err)
	}

	app, err := New(Options{
		Store:    repositories.NewSavedCardRepository(db),
		Engine:   tasks.NewCardEngine(catalog, generator, logger),
		Identity: identity,
		Sessions: sessions,
		Logger:   logger,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	srv := httptest.NewServer(app.Handler())
	t.Cleanup(func() {
		srv.Close()
		db.Close()
	})

	return &testEnv{t: t, srv: srv, db: db, catalog: catalog, generator: generator, identity: identity}
}

// client returns a browser-like client with its own cookie jar that does not follow redirects.
func (e *testEnv) client() *http.Client {
	jar, err := cookiejar.New(nil)
	if err != nil {
		e.t.Fatalf("cookiejar.New() error = %v", err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (e *testEnv) get(c *http.Client, path string) (*http.Response, string) {
	e.t.Helper()
	resp, err := c.Get(e.srv.URL + path)
	if err != nil {
		e.t.Fatalf("GET %s: %v", path, err)
	}
	return resp, readBody(e.t, resp)
}

func (e *testEnv) post(c *http.Client, path string, form url.Values) (*http.Response, string) {
	e.t.Helper()
	resp, err := c.PostForm(e.srv.URL+path, form)
	if err != nil {
		e.t.Fatalf("POST %s: %v", path, err)
	}
	return resp, readBody(e.t, resp)
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	return string(b)
}

// login signs c in as the identity currently configured on the mock provider.
func (e *testEnv) login(c *http.Client) {
	e.t.Helper()

	resp, _ := e.get(c, "/login")
	if resp.StatusCode != http.StatusFound {
		e.t.Fatalf("expected /login to redirect, got %d", resp.StatusCode)
	}
	authURL, err := url.Parse(resp.Header.Get("Location"))
	if err != nil {
		e.t.Fatalf("invalid authorize URL: %v", err)
	}
	state := authURL.Query().Get("state")

	resp, _ = e.get(c, "/callback?code=abc&state="+url.QueryEscape(state))
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/" {
		e.t.Fatalf("expected callback to redirect home, got %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}
}

func (e *testEnv) countSaved(userID string) int {
	e.t.Helper()
	var n int
	if err := e.db.QueryRow("SELECT COUNT(*) FROM saved_cards WHERE user_id = ?", userID).Scan(&n); err != nil {
		e.t.Fatalf("failed to count saved cards: %v", err)
	}
	return n
}

func assertContains(t *testing.T, body string, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(body, w) {
			t.Errorf("expected body to contain %q", w)
		}
	}
}

func assertRedirect(t *testing.T, resp *http.Response, status int, location string) {
	t.Helper()
	if resp.StatusCode != status {
		t.Errorf("expected status %d, got %d", status, resp.StatusCode)
	}
	if got := resp.Header.Get("Location"); got != location {
		t.Errorf("expected redirect to %q, got %q", location, got)
	}
}

func TestAnonymous(t *testing.T) {
	env := newTestEnv(t)
	c := env.client()

	t.Run("home invites login", func(t *testing.T) {
		resp, body := env.get(c, "/")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		assertContains(t, body, `href="/login"`)
	})

	t.Run("protected pages redirect to login", func(t *testing.T) {
		for _, path := range []string{"/investment", "/investment/result", "/search", "/search/results", "/list"} {
			resp, _ := env.get(c, path)
			assertRedirect(t, resp, http.StatusFound, "/login")
		}

		resp, _ := env.post(c, "/list/add", url.Values{"card_id": {"base1-58"}})
		assertRedirect(t, resp, http.StatusFound, "/login")
	})

	t.Run("health and metrics are public", func(t *testing.T) {
		resp, body := env.get(c, "/health")
		if resp.StatusCode != http.StatusOK {
			t.Errorf("expected 200, got %d", resp.StatusCode)
		}
		assertContains(t, body, `"status":"ok"`)

		resp, body = env.get(c, "/metrics")
		if resp.StatusCode != http.StatusOK {
			t.Errorf("expected 200, got %d", resp.StatusCode)
		}
		assertContains(t, body, "tcgx_http_requests_total")
	})

	t.Run("unknown path", func(t *testing.T) {
		resp, _ := env.get(c, "/nope")
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("expected 404, got %d", resp.StatusCode)
		}
	})

	t.Run("wrong method", func(t *testing.T) {
		resp, _ := env.get(c, "/list/add")
		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", resp.StatusCode)
		}
	})
}

func TestLogin(t *testing.T) {
	t.Run("redirects to provider", func(t *testing.T) {
		env := newTestEnv(t)
		resp, _ := env.get(env.client(), "/login")

		if resp.StatusCode != http.StatusFound {
			t.Fatalf("expected 302, got %d", resp.StatusCode)
		}
		if loc := resp.Header.Get("Location"); !strings.HasPrefix(loc, "https://idp.test/authorize?state=") {
			t.Errorf("unexpected location %q", loc)
		}
	})

	t.Run("callback stores identity", func(t *testing.T) {
		env := newTestEnv(t)
		c := env.client()
		env.login(c)

		if env.identity.Code != "abc" {
			t.Errorf("expected code abc to be exchanged, got %q", env.identity.Code)
		}

		_, body := env.get(c, "/")
		assertContains(t, body, "Welcome Ash Ketchum!", "auth0|ash", "ash@example.com", `href="/logout"`)
	})

	t.Run("callback rejects forged state", func(t *testing.T) {
		env := newTestEnv(t)
		c := env.client()
		env.get(c, "/login")

		resp, _ := env.get(c, "/callback?code=abc&state=forged")
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", resp.StatusCode)
		}
		if env.identity.Code != "" {
			t.Error("expected no code exchange for a forged state")
		}

		resp, _ = env.get(c, "/list")
		assertRedirect(t, resp, http.StatusFound, "/login")
	})

	t.Run("callback without login", func(t *testing.T) {
		env := newTestEnv(t)
		resp, _ := env.get(env.client(), "/callback?code=abc&state=")
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", resp.StatusCode)
		}
	})

	t.Run("provider failure", func(t *testing.T) {
		env := newTestEnv(t)
		env.identity.Err = shared.ErrAuthFailed
		c := env.client()

		resp, _ := env.get(c, "/login")
		authURL, _ := url.Parse(resp.Header.Get("Location"))
		resp, _ = env.get(c, "/callback?code=abc&state="+url.QueryEscape(authURL.Query().Get("state")))
		assertRedirect(t, resp, http.StatusSeeOther, "/")

		_, body := env.get(c, "/")
		assertContains(t, body, "Sign-in failed. Please try again.")
	})

	t.Run("provider unavailable", func(t *testing.T) {
		env := newTestEnv(t)
		env.identity.Err = fmt.Errorf("%w: userinfo returned status 503", shared.ErrServiceUnavailable)
		c := env.client()

		resp, _ := env.get(c, "/login")
		authURL, _ := url.Parse(resp.Header.Get("Location"))
		resp, body := env.get(c, "/callback?code=abc&state="+url.QueryEscape(authURL.Query().Get("state")))
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("expected 503, got %d", resp.StatusCode)
		}
		assertContains(t, body, "Please try again later.")

		resp, _ = env.get(c, "/list")
		assertRedirect(t, resp, http.StatusFound, "/login")
	})

	t.Run("logout", func(t *testing.T) {
		env := newTestEnv(t)
		c := env.client()
		env.login(c)

		resp, _ := env.get(c, "/logout")
		want := "https://idp.test/v2/logout?returnTo=" + url.QueryEscape(env.srv.URL+"/")
		assertRedirect(t, resp, http.StatusFound, want)

		resp, _ = env.get(c, "/list")
		assertRedirect(t, resp, http.StatusFound, "/login")
	})
}

func TestSearch(t *testing.T) {
	env := newTestEnv(t)
	c := env.client()
	env.login(c)

	t.Run("form", func(t *testing.T) {
		resp, body := env.get(c, "/search")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		assertContains(t, body, `name="name"`, `name="set"`, `name="rarity"`, `name="artist"`)
	})

	t.Run("results", func(t *testing.T) {
		resp, body := env.get(c, "/search/results?name=Pikachu&set=&rarity=Common&artist=+")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}

		if want := `name:"Pikachu" rarity:"Common"`; env.catalog.LastQuery() != want {
			t.Errorf("expected query %q, got %q", want, env.catalog.LastQuery())
		}
		assertContains(t, body, "Pikachu", "Charizard", `action="/list/add"`)
	})

	t.Run("catalog unavailable", func(t *testing.T) {
		env.catalog.Err = fmt.Errorf("%w: catalog returned status 503", shared.ErrServiceUnavailable)
		defer func() { env.catalog.Err = nil }()

		resp, body := env.get(c, "/search/results?name=Pikachu")
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("expected 503, got %d", resp.StatusCode)
		}
		assertContains(t, body, "try again later")
	})
}

func TestSavedList(t *testing.T) {
	t.Run("add list remove", func(t *testing.T) {
		env := newTestEnv(t)
		c := env.client()
		env.login(c)

		_, body := env.get(c, "/list")
		assertContains(t, body, "You have not saved any cards yet.")

		resp, _ := env.post(c, "/list/add", url.Values{"card_id": {"base1-58"}, "next": {"/search/results?name=Pikachu"}})
		assertRedirect(t, resp, http.StatusSeeOther, "/search/results?name=Pikachu")

		_, body = env.get(c, "/list")
		assertContains(t, body, "Saved Pikachu to your list.", "<td>Pikachu", "<td>Base</td>")

		_, body = env.get(c, "/search/results?name=Pikachu")
		assertContains(t, body, `action="/list/remove"`)

		resp, _ = env.post(c, "/list/remove", url.Values{"card_id": {"base1-58"}})
		assertRedirect(t, resp, http.StatusSeeOther, "/list")

		_, body = env.get(c, "/list")
		assertContains(t, body, "Removed the card from your list.", "You have not saved any cards yet.")

		resp, _ = env.post(c, "/list/remove", url.Values{"card_id": {"base1-58"}})
		assertRedirect(t, resp, http.StatusSeeOther, "/list")
	})

	t.Run("duplicate add", func(t *testing.T) {
		env := newTestEnv(t)
		c := env.client()
		env.login(c)

		env.post(c, "/list/add", url.Values{"card_id": {"base1-58"}})
		env.get(c, "/list")

		resp, _ := env.post(c, "/list/add", url.Values{"card_id": {"base1-58"}})
		assertRedirect(t, resp, http.StatusSeeOther, "/list")

		_, body := env.get(c, "/list")
		assertContains(t, body, "Pikachu is already on your list.")

		if n := env.countSaved(ash.UserID); n != 1 {
			t.Errorf("expected 1 saved row, got %d", n)
		}

		_, body = env.get(c, "/metrics")
		assertContains(t, body,
			`tcgx_saved_cards_operations_total{op="add",result="duplicate"} 1`,
			`tcgx_saved_cards_operations_total{op="add",result="ok"} 1`,
		)
	})

	t.Run("missing and unknown cards", func(t *testing.T) {
		env := newTestEnv(t)
		c := env.client()
		env.login(c)

		resp, _ := env.post(c, "/list/add", url.Values{"card_id": {" "}})
		assertRedirect(t, resp, http.StatusSeeOther, "/list")
		_, body := env.get(c, "/list")
		assertContains(t, body, "No card was selected.")

		env.post(c, "/list/add", url.Values{"card_id": {"xy1-1"}})
		_, body = env.get(c, "/list")
		assertContains(t, body, "That card is not in the catalog.")

		env.post(c, "/list/remove", url.Values{})
		_, body = env.get(c, "/list")
		assertContains(t, body, "No card was selected.")

		if n := env.countSaved(ash.UserID); n != 0 {
			t.Errorf("expected no saved rows, got %d", n)
		}
	})

	t.Run("offsite next is ignored", func(t *testing.T) {
		env := newTestEnv(t)
		c := env.client()
		env.login(c)

		resp, _ := env.post(c, "/list/add", url.Values{"card_id": {"base1-58"}, "next": {"//evil.test/"}})
		assertRedirect(t, resp, http.StatusSeeOther, "/list")
	})

	t.Run("users are isolated", func(t *testing.T) {
		env := newTestEnv(t)
		ashClient := env.client()
		env.login(ashClient)
		env.post(ashClient, "/list/add", url.Values{"card_id": {"base1-4"}})

		env.identity.Identity = misty
		mistyClient := env.client()
		env.login(mistyClient)

		_, body := env.get(mistyClient, "/list")
		assertContains(t, body, "You have not saved any cards yet.")

		env.post(mistyClient, "/list/remove", url.Values{"card_id": {"base1-4"}})
		if n := env.countSaved(ash.UserID); n != 1 {
			t.Errorf("expected another user's remove to leave the row, got %d rows", n)
		}

		_, body = env.get(ashClient, "/list")
		assertContains(t, body, "Charizard")
	})

	t.Run("current prices", func(t *testing.T) {
		env := newTestEnv(t)
		c := env.client()
		env.login(c)
		env.post(c, "/list/add", url.Values{"card_id": {"base1-58"}})
		env.post(c, "/list/add", url.Values{"card_id": {"base1-4"}})

		resp, body := env.get(c, "/list?prices=1")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		assertContains(t, body, "Estimated value: <strong>$352.50</strong>", "$2.50", "$350.00")
	})

	t.Run("storage unavailable", func(t *testing.T) {
		env := newTestEnv(t)
		c := env.client()
		env.login(c)
		env.db.Close()

		resp, body := env.get(c, "/list")
		if resp.StatusCode != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", resp.StatusCode)
		}
		assertContains(t, body, "Something went wrong")
	})
}

func TestInvestment(t *testing.T) {
	env := newTestEnv(t)
	c := env.client()
	env.login(c)

	t.Run("form", func(t *testing.T) {
		resp, body := env.get(c, "/investment")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		assertContains(t, body, `action="/investment/result"`)
	})

	t.Run("missing fields", func(t *testing.T) {
		resp, _ := env.get(c, "/investment/result?name=Pikachu")
		assertRedirect(t, resp, http.StatusSeeOther, "/investment")

		_, body := env.get(c, "/investment")
		assertContains(t, body, "Please fill in: set, rarity.")
	})

	t.Run("renders sanitized advice", func(t *testing.T) {
		env.generator.Text = "**Hold** for now.\n\n<script>alert(1)</script>"

		resp, body := env.get(c, "/investment/result?set=Base&name=Pikachu&rarity=Common")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}

		if want := `set.name:"Base" name:"Pikachu" rarity:"Common"`; env.catalog.LastQuery() != want {
			t.Errorf("expected query %q, got %q", want, env.catalog.LastQuery())
		}
		assertContains(t, body, "<strong>Hold</strong>", "Save to my list", "$2.50")
		if strings.Contains(body, "<script") {
			t.Error("expected generated script to be stripped")
		}
	})

	t.Run("no matching card", func(t *testing.T) {
		env.catalog.Cards = nil
		defer func() { env.catalog.Cards = []models.Card{pikachu, charizard} }()

		resp, _ := env.get(c, "/investment/result?set=Base&name=Mew&rarity=Promo")
		assertRedirect(t, resp, http.StatusSeeOther, "/investment")

		_, body := env.get(c, "/investment")
		assertContains(t, body, "No card matches that set, name and rarity.")
	})

	t.Run("generator unavailable", func(t *testing.T) {
		env.generator.Err = fmt.Errorf("%w: connection refused", shared.ErrServiceUnavailable)
		defer func() { env.generator.Err = nil }()

		resp, body := env.get(c, "/investment/result?set=Base&name=Pikachu&rarity=Common")
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("expected 503, got %d", resp.StatusCode)
		}
		assertContains(t, body, "Service unavailable")
	})
}

func TestNew(t *testing.T) {
	sessions, _ := NewSessions("secret", false)

	_, err := New(Options{Sessions: sessions})
	if !errors.Is(err, shared.ErrMissingArgument) {
		t.Errorf("expected ErrMissingArgument, got %v", err)
	}

	if _, err := NewSessions("", false); !errors.Is(err, shared.ErrMissingConfig) {
		t.Errorf("expected ErrMissingConfig, got %v", err)
	}
}

func TestLocalPath(t *testing.T) {
	tests := []struct {
		next string
		want string
	}{
		{"", "/list"},
		{"/search/results?name=Pikachu", "/search/results?name=Pikachu"},
		{"https://evil.test/", "/list"},
		{"//evil.test/", "/list"},
		{"/\\evil.test", "/list"},
	}
	for _, tt := range tests {
		if got := localPath(tt.next, "/list"); got != tt.want {
			t.Errorf("localPath(%q) = %q, want %q", tt.next, got, tt.want)
		}
	}
}

func TestMarkdown(t *testing.T) {
	html, err := NewMarkdown().Render("# Outlook\n\n- **Buy** below $5\n\n<img src=x onerror=alert(1)>")
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	out := string(html)
	assertContains(t, out, "<h1", "Outlook</h1>", "<li><strong>Buy</strong> below $5</li>")
	if strings.Contains(out, "onerror") {
		t.Errorf("expected event handler to be stripped, got %s", out)
	}
}
