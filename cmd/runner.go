package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/trackq/internal/audio"
	"github.com/desertthunder/trackq/internal/models"
	"github.com/desertthunder/trackq/internal/repositories"
	"github.com/desertthunder/trackq/internal/services"
	"github.com/desertthunder/trackq/internal/shared"
	"github.com/desertthunder/trackq/internal/tasks"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	configPath string
	config     *shared.Config
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	ConfigPath string
	Config     *shared.Config
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
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

	return &Runner{
		configPath: opts.ConfigPath,
		config:     opts.Config,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, enqueueCommand, statusCommand, pauseCommand, resumeCommand, retryCommand, cancelCommand,
		deleteCommand, clearCommand, logCommand, settingsCommand, runCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Before applies the global flags: the log level and the config file.
//
// A missing config file is not an error; the embedded defaults apply until `setup database` writes one.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	shared.SetLogLevel(r.logger, shared.LogLevel(cmd.String("log-level")))

	if path := cmd.String("config"); path != "" {
		r.configPath = path
	}
	if r.configPath == "" {
		return ctx, nil
	}

	if _, err := os.Stat(r.configPath); err != nil {
		r.logger.Debug("config file not found, using defaults", "path", r.configPath)
		return ctx, nil
	}

	config, err := shared.LoadConfig(r.configPath)
	if err != nil {
		return ctx, err
	}
	r.config = config
	return ctx, nil
}

// SetLogger replaces the logger used by subsequently opened components.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// queueApp is the download queue wired from the config for one command.
type queueApp struct {
	db       *sql.DB
	store    *repositories.QueueRepository
	settings *repositories.SettingsRepository
	logs     *repositories.SessionLogRepository
	manager  *tasks.Manager
	ops      *tasks.Operations
}

// Close stops the manager and closes the database.
func (a *queueApp) Close() error {
	a.manager.Stop()
	return a.db.Close()
}

// openDatabase opens the configured database and applies pending migrations.
func (r *Runner) openDatabase() (*sql.DB, error) {
	cfg := r.config.Database

	db, err := shared.OpenDatabase(cfg.Path, cfg.BusyTimeoutMS)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, cfg.MaxOpenConns, cfg.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

func (r *Runner) downloadDefaults() models.DownloadSettings {
	d := r.config.Download
	return models.DownloadSettings{
		ConcurrencyLimit: d.Concurrency,
		PreferredQuality: d.PreferredQuality,
		DownloadLyrics:   d.DownloadLyrics,
		StorageRoot:      d.StorageRoot,
	}
}

// openQueue wires the store, resolver, and manager. The manager is not started.
//
// events may be nil.
func (r *Runner) openQueue(events chan<- tasks.Event) (*queueApp, error) {
	db, err := r.openDatabase()
	if err != nil {
		return nil, err
	}

	cfg := r.config
	store := repositories.NewQueueRepository(db)
	settings := repositories.NewSettingsRepository(db, r.downloadDefaults())
	logs := repositories.NewSessionLogRepository(db, shared.WithLogger(r.logger, "component", "session"))

	retry := services.RetryPolicyFromConfig(cfg.Retry)
	resolver := tasks.NewResolver(tasks.ResolverConfig{
		Platforms: services.NewVKeysPlatforms(cfg.Platforms, retry),
		Order:     cfg.Platforms.SearchOrder,
		Mapping:   cfg.Platforms.Mapping,
		Gate:      audio.NewGate(cfg.Quality),
		Tagger:    audio.NewTagger(r.httpClient, r.logger),
		Albums: services.NewQQMusicClient(cfg.QQMusic, services.APIOptions{
			RequestTimeout: cfg.Platforms.RequestTimeout.Duration,
			MaxRedirects:   cfg.Platforms.MaxRedirects,
			Retry:          retry,
		}),
		Sink:   logs,
		Logger: shared.WithLogger(r.logger, "component", "resolver"),
	})

	manager := tasks.NewManager(store, settings, resolver, tasks.ManagerOptions{
		PollInterval:  cfg.Download.PollInterval.Duration,
		WorkerTimeout: cfg.Download.WorkerTimeout.Duration,
		Hook:          tasks.NewHooks(cfg.Hooks, r.httpClient, r.logger),
		Sink:          logs,
		Events:        events,
		Logger:        shared.WithLogger(r.logger, "component", "manager"),
	})

	return &queueApp{
		db:       db,
		store:    store,
		settings: settings,
		logs:     logs,
		manager:  manager,
		ops:      tasks.NewOperations(manager, logs, tasks.JSONMissingTracks{Dir: cfg.Download.MissingDir}),
	}, nil
}

// withQueue opens the queue for the duration of fn.
func (r *Runner) withQueue(fn func(app *queueApp) error) error {
	app, err := r.openQueue(nil)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(app)
}

// resultError carries a failed [tasks.Result] as an error.
type resultError struct {
	res tasks.Result
}

func (e resultError) Error() string { return e.res.Message }
func (e resultError) Unwrap() error { return e.res.Err }

// writeResult prints a successful or no-op result and turns a failure into an error.
func (r *Runner) writeResult(res tasks.Result) error {
	if res.Err != nil {
		return resultError{res}
	}

	mark := "•"
	if res.Success {
		mark = "✓"
	}
	if err := r.writePlain("%s %s\n", mark, res.Message); err != nil {
		return err
	}
	if res.SessionID != "" {
		return r.writePlain("  session: %s\n", res.SessionID)
	}
	return nil
}

func requireArg(cmd *cli.Command, name string) (string, error) {
	value := cmd.StringArg(name)
	if value == "" {
		return "", fmt.Errorf("%w: <%s>", shared.ErrMissingArgument, name)
	}
	return value, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

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

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
