package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tcgx/internal/models"
	"github.com/desertthunder/tcgx/internal/repositories"
	"github.com/desertthunder/tcgx/internal/services"
	"github.com/desertthunder/tcgx/internal/shared"
	"github.com/desertthunder/tcgx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config       *shared.Config
	configPath   string
	identityPath string
	catalog      services.Catalog
	generator    services.Generator
	engine       tasks.Engine
	store        models.SavedCardStore
	db           *sql.DB
	httpClient   *http.Client
	logger       *log.Logger
	output       io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Catalog, Generator, Engine and Store are built from Config on first use when left nil.
type RunnerOpts struct {
	Config       *shared.Config
	ConfigPath   string
	IdentityPath string // Defaults to ~/.tcgx/identity.json
	Catalog      services.Catalog
	Generator    services.Generator
	Engine       tasks.Engine
	Store        models.SavedCardStore
	HTTPClient   *http.Client
	Logger       *log.Logger
	Output       io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.IdentityPath == "" {
		opts.IdentityPath = filepath.Join(shared.HomeDir(), "identity.json")
	}
	if opts.Engine == nil && opts.Catalog != nil {
		opts.Engine = tasks.NewCardEngine(opts.Catalog, opts.Generator, opts.Logger)
	}

	return &Runner{
		config:       opts.Config,
		configPath:   opts.ConfigPath,
		identityPath: opts.IdentityPath,
		catalog:      opts.Catalog,
		generator:    opts.Generator,
		engine:       opts.Engine,
		store:        opts.Store,
		httpClient:   opts.HTTPClient,
		logger:       opts.Logger,
		output:       opts.Output,
	}
}

// SetLogger replaces the runner's logger.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// Before loads the configuration named by --config (defaults when the file is absent)
// and applies environment overrides.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	path := cmd.String("config")
	config, err := r.loadConfig(path)
	if err != nil {
		return ctx, err
	}
	r.config = config
	r.configPath = path
	return ctx, nil
}

func (r *Runner) loadConfig(path string) (*shared.Config, error) {
	config := shared.DefaultConfig()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if config, err = shared.LoadConfig(path); err != nil {
				return nil, err
			}
			r.logger.Debug("loaded config", "path", path)
		} else {
			r.logger.Debug("config file not found, using defaults", "path", path)
		}
	}

	if err := config.ApplyEnv(); err != nil {
		return nil, err
	}
	return config, nil
}

// After releases the database opened by a command, if any.
func (r *Runner) After(ctx context.Context, cmd *cli.Command) error {
	return r.Close()
}

// Close closes the runner's database connection.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	r.store = nil
	return err
}

// cardEngine returns the engine, building catalog and advisor clients from the config when needed.
func (r *Runner) cardEngine() tasks.Engine {
	if r.engine != nil {
		return r.engine
	}
	if r.catalog == nil {
		r.catalog = services.NewCatalogService(r.config.Credentials.Catalog, r.httpClient, r.logger)
	}
	if r.generator == nil {
		r.generator = services.NewAdvisorService(r.config.Credentials.Advisor, nil, r.logger)
	}
	r.engine = tasks.NewCardEngine(r.catalog, r.generator, r.logger)
	return r.engine
}

// savedCards returns the saved-card store, opening and migrating the configured database when needed.
func (r *Runner) savedCards(ctx context.Context) (models.SavedCardStore, error) {
	if r.store != nil {
		return r.store, nil
	}

	db, err := r.openDatabase(ctx)
	if err != nil {
		return nil, err
	}
	r.db = db
	r.store = repositories.NewSavedCardRepository(db)
	return r.store, nil
}

func (r *Runner) openDatabase(ctx context.Context) (*sql.DB, error) {
	path := r.config.Database.Path
	r.logger.Debug("opening database", "path", path)

	db, err := shared.NewDatabase(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrStorageUnavailable, err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, serveCommand, authCommand, searchCommand, investCommand, savedCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
