package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Auth0   Auth0Config   `toml:"auth0"`
	Catalog CatalogConfig `toml:"catalog"`
	Advisor AdvisorConfig `toml:"advisor"`
}

// Auth0Config contains identity provider credentials.
type Auth0Config struct {
	Domain       string `toml:"domain"`
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	CallbackURL  string `toml:"callback_url"`
}

// CatalogConfig contains Pokémon TCG API settings.
type CatalogConfig struct {
	BaseURL   string  `toml:"base_url"`
	APIKey    string  `toml:"api_key"`
	RateLimit float64 `toml:"rate_limit"`
	PageSize  int     `toml:"page_size"`
}

// AdvisorConfig contains settings for the OpenAI-compatible completion endpoint.
type AdvisorConfig struct {
	BaseURL        string  `toml:"base_url"`
	APIKey         string  `toml:"api_key"`
	Model          string  `toml:"model"`
	Temperature    float64 `toml:"temperature"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host          string  `toml:"host"`
	Port          int     `toml:"port"`
	SessionSecret string  `toml:"session_secret"`
	RateLimit     float64 `toml:"rate_limit"`
	RateBurst     int     `toml:"rate_burst"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, ErrInvalidConfig)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadEnv loads variables from the dotenv files, when present, into the process environment.
//
// Variables already set in the environment are not overwritten.
func LoadEnv(paths ...string) error {
	var found []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			found = append(found, p)
		}
	}
	if len(found) == 0 {
		return nil
	}
	if err := godotenv.Load(found...); err != nil {
		return fmt.Errorf("%w: failed to load env file: %v", ErrInvalidConfig, err)
	}
	return nil
}

// ApplyEnv overrides secrets and endpoints in config with values from the environment.
func (c *Config) ApplyEnv() error {
	overrides := []struct {
		key    string
		target *string
	}{
		{"AUTH0_DOMAIN", &c.Credentials.Auth0.Domain},
		{"AUTH0_CLIENT_ID", &c.Credentials.Auth0.ClientID},
		{"AUTH0_CLIENT_SECRET", &c.Credentials.Auth0.ClientSecret},
		{"AUTH0_CALLBACK_URL", &c.Credentials.Auth0.CallbackURL},
		{"APP_SECRET_KEY", &c.Server.SessionSecret},
		{"POKEMONTCG_API_KEY", &c.Credentials.Catalog.APIKey},
		{"ADVISOR_BASE_URL", &c.Credentials.Advisor.BaseURL},
		{"ADVISOR_API_KEY", &c.Credentials.Advisor.APIKey},
		{"ADVISOR_MODEL", &c.Credentials.Advisor.Model},
		{"TCGX_DATABASE_PATH", &c.Database.Path},
	}

	for _, o := range overrides {
		if v, ok := os.LookupEnv(o.key); ok && v != "" {
			*o.target = v
		}
	}

	if v, ok := os.LookupEnv("TCGX_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: TCGX_PORT=%q", ErrInvalidConfig, v)
		}
		c.Server.Port = port
	}

	return nil
}

// Session secrets sign the cookie that carries the user id.
const (
	placeholderSecret   = "change-me-to-a-long-random-string"
	minSessionSecretLen = 32
)

// Validate reports missing settings required to serve the web application.
func (c *Config) Validate() error {
	switch secret := c.Server.SessionSecret; {
	case secret == "":
		return fmt.Errorf("%w: server.session_secret is required (or set APP_SECRET_KEY)", ErrMissingConfig)
	case secret == placeholderSecret:
		return fmt.Errorf("%w: server.session_secret still holds the example value (or set APP_SECRET_KEY)", ErrMissingConfig)
	case len(secret) < minSessionSecretLen:
		return fmt.Errorf("%w: server.session_secret must be at least %d bytes", ErrMissingConfig, minSessionSecretLen)
	}
	if c.Credentials.Auth0.Domain == "" || c.Credentials.Auth0.ClientID == "" {
		return fmt.Errorf("%w: auth0 domain and client_id are required", ErrMissingCredentials)
	}
	if c.Credentials.Catalog.BaseURL == "" {
		return fmt.Errorf("%w: catalog base_url is required", ErrMissingConfig)
	}
	return nil
}
