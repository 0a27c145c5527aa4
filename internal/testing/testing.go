// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/tcgx/internal/models"
	"github.com/desertthunder/tcgx/internal/shared"
)

// MockCatalog is a test double for [services.Catalog]
type MockCatalog struct {
	mu      sync.Mutex
	Cards   []models.Card
	Err     error
	Queries []string
}

// NewMockCatalog returns a catalog that serves cards for every search.
func NewMockCatalog(cards ...models.Card) *MockCatalog {
	return &MockCatalog{Cards: cards}
}

func (m *MockCatalog) Search(ctx context.Context, q string) ([]models.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Queries = append(m.Queries, q)
	if m.Err != nil {
		return nil, m.Err
	}
	return append([]models.Card(nil), m.Cards...), nil
}

func (m *MockCatalog) Card(ctx context.Context, id string) (*models.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, c := range m.Cards {
		if c.ID == id {
			card := c
			return &card, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", shared.ErrNotFound, id)
}

// LastQuery returns the most recent search expression, or "" if none.
func (m *MockCatalog) LastQuery() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Queries) == 0 {
		return ""
	}
	return m.Queries[len(m.Queries)-1]
}

// NewCard builds a catalog card with a single holofoil market price.
func NewCard(id, name, set, rarity string, market float64) models.Card {
	return models.Card{
		ID:     id,
		Name:   name,
		Rarity: rarity,
		Set:    models.CardSet{ID: strings.SplitN(id, "-", 2)[0], Name: set},
		Images: models.CardImages{Small: "https://images.test/" + id + ".png"},
		Prices: models.PriceSnapshot{
			Source:   "tcgplayer",
			Variants: map[string]models.PriceRange{"holofoil": {Market: market}},
		},
	}
}

// MockGenerator is a test double for [services.Generator]
type MockGenerator struct {
	Text    string
	Err     error
	Prompts []string
}

func (m *MockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	m.Prompts = append(m.Prompts, prompt)
	if m.Err != nil {
		return "", m.Err
	}
	return m.Text, nil
}

// MockIdentity is a test double for [services.IdentityProvider]
type MockIdentity struct {
	Identity models.Identity
	Err      error
	Code     string
}

func (m *MockIdentity) AuthCodeURL(state string) string {
	return "https://idp.test/authorize?state=" + url.QueryEscape(state)
}

func (m *MockIdentity) Authenticate(ctx context.Context, code string) (models.Identity, error) {
	m.Code = code
	if m.Err != nil {
		return models.Identity{}, m.Err
	}
	return m.Identity, nil
}

func (m *MockIdentity) LogoutURL(returnTo string) string {
	return "https://idp.test/v2/logout?returnTo=" + url.QueryEscape(returnTo)
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
