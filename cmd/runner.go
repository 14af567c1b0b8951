package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"

	"github.com/desertthunder/hitqr/internal/auth"
	"github.com/desertthunder/hitqr/internal/catalog"
	"github.com/desertthunder/hitqr/internal/models"
	"github.com/desertthunder/hitqr/internal/playback"
	"github.com/desertthunder/hitqr/internal/repositories"
	"github.com/desertthunder/hitqr/internal/scanner"
	"github.com/desertthunder/hitqr/internal/services"
	"github.com/desertthunder/hitqr/internal/session"
	"github.com/desertthunder/hitqr/internal/shared"
	"github.com/desertthunder/hitqr/internal/tasks"
)

// HistoryStore records and lists plays. Implemented by [repositories.PlayRepository].
type HistoryStore interface {
	Create(p *models.Play) error
	Recent(limit int) ([]*models.Play, error)
	Count() (int, error)
	Clear() error
}

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Dependencies that need the database or a login are built on first use, so commands like resolve work
// without either.
type Runner struct {
	config     *shared.Config
	configPath string
	logger     *log.Logger
	output     io.Writer
	input      io.Reader
	httpClient *http.Client

	db       *sql.DB
	history  HistoryStore
	auth     *auth.Authenticator
	tokens   session.TokenClearer
	remote   services.PlaybackService
	fetcher  catalog.Fetcher
	searcher tasks.Searcher
	policy   *playback.Selector

	session    *session.Session
	controller *playback.Controller
	resolver   *catalog.Resolver
	bridge     *scanner.Bridge
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Remote, Fetcher, History, Tokens and Searcher replace the database and Spotify backed defaults.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Logger     *log.Logger
	Output     io.Writer
	Input      io.Reader
	HTTPClient *http.Client
	Remote     services.PlaybackService
	Fetcher    catalog.Fetcher
	History    HistoryStore
	Tokens     session.TokenClearer
	Searcher   tasks.Searcher
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		logger:     opts.Logger,
		output:     opts.Output,
		input:      opts.Input,
		httpClient: opts.HTTPClient,
		remote:     opts.Remote,
		fetcher:    opts.Fetcher,
		history:    opts.History,
		tokens:     opts.Tokens,
		searcher:   opts.Searcher,
	}
}

// before loads the environment and configuration and applies the global flags.
func (r *Runner) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("debug") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	if err := shared.LoadEnvFile(); err != nil {
		r.logger.Warn("failed to load .env", "error", err)
	}

	if r.config == nil {
		r.configPath = cmd.String("config")
		r.config = r.loadConfig(r.configPath)
	}

	if cmd.IsSet("mode") {
		r.config.Playback.Mode = cmd.String("mode")
	}
	if cmd.IsSet("start") {
		r.config.Playback.CustomStart = int(cmd.Int("start"))
	}

	policy, err := playback.PolicyFromConfig(r.config.Playback)
	if err != nil {
		return ctx, fmt.Errorf("%w: --mode: %w", shared.ErrInvalidFlag, err)
	}
	r.policy = playback.NewSelector(policy)
	return ctx, nil
}

// after releases what the command opened.
func (r *Runner) after(ctx context.Context, cmd *cli.Command) error {
	return r.Close()
}

func (r *Runner) loadConfig(path string) *shared.Config {
	if _, err := os.Stat(path); err != nil {
		r.logger.Debug("config file not found, using defaults", "path", path)
		config := shared.DefaultConfig()
		config.ApplyEnv()
		return config
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		r.logger.Warn("failed to load config, using defaults", "error", err)
		config = shared.DefaultConfig()
		config.ApplyEnv()
	}
	return config
}

// Close closes the database if one was opened.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

// SetLogger replaces the logger, used by the TUI to keep log lines off the screen.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

func (r *Runner) cfg() *shared.Config {
	if r.config == nil {
		r.config = shared.DefaultConfig()
	}
	return r.config
}

func (r *Runner) startPolicy() *playback.Selector {
	if r.policy == nil {
		policy, err := playback.PolicyFromConfig(r.cfg().Playback)
		if err != nil {
			policy = playback.StartPolicy{Mode: playback.ModeBeginning}
		}
		r.policy = playback.NewSelector(policy)
	}
	return r.policy
}

func (r *Runner) database() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}

	db, err := shared.OpenDatabase(r.cfg().Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	r.db = db
	return db, nil
}

func (r *Runner) historyStore() (HistoryStore, error) {
	if r.history != nil {
		return r.history, nil
	}
	db, err := r.database()
	if err != nil {
		return nil, err
	}
	r.history = repositories.NewPlayRepository(db)
	return r.history, nil
}

func (r *Runner) authenticator() (*auth.Authenticator, error) {
	if r.auth != nil {
		return r.auth, nil
	}
	db, err := r.database()
	if err != nil {
		return nil, err
	}
	r.auth = auth.NewAuthenticator(r.cfg().Spotify, repositories.NewCredentialRepository(db), shared.WithLogger(r.logger, "component", "auth"))
	return r.auth, nil
}

func (r *Runner) tokenClearer() (session.TokenClearer, error) {
	if r.tokens != nil {
		return r.tokens, nil
	}
	a, err := r.authenticator()
	if err != nil {
		return nil, err
	}
	r.tokens = a
	return a, nil
}

// apiClient returns a rate limited HTTP client carrying the stored token. It fails with
// [shared.ErrNotAuthenticated] when nobody is logged in.
func (r *Runner) apiClient(ctx context.Context) (*http.Client, error) {
	a, err := r.authenticator()
	if err != nil {
		return nil, err
	}

	token, err := a.ValidToken(ctx)
	if err != nil {
		return nil, err
	}
	if token == nil {
		return nil, fmt.Errorf("%w: run `hitqr login` first", shared.ErrNotAuthenticated)
	}

	base := context.WithValue(ctx, oauth2.HTTPClient, r.httpClient)
	return services.NewRateLimitedClient(a.Client(base), r.cfg().Spotify.RateLimit), nil
}

func (r *Runner) playbackService(ctx context.Context) (services.PlaybackService, error) {
	if r.remote != nil {
		return r.remote, nil
	}
	client, err := r.apiClient(ctx)
	if err != nil {
		return nil, err
	}
	r.remote = services.NewSpotifyService(client, r.cfg().Spotify.APIURL, shared.WithLogger(r.logger, "component", "spotify"))
	return r.remote, nil
}

func (r *Runner) catalogSearcher(ctx context.Context) (tasks.Searcher, error) {
	if r.searcher != nil {
		return r.searcher, nil
	}
	client, err := r.apiClient(ctx)
	if err != nil {
		return nil, err
	}
	r.searcher = tasks.NewSpotifySearcher(client, r.cfg().Spotify.APIURL)
	return r.searcher, nil
}

// catalogFetcher picks the catalog location: a base URL when configured, else a local directory.
func (r *Runner) catalogFetcher() (catalog.Fetcher, error) {
	if r.fetcher != nil {
		return r.fetcher, nil
	}

	c := r.cfg().Catalog
	switch {
	case c.BaseURL != "":
		r.fetcher = catalog.NewHTTPFetcher(c.BaseURL, c.Prefix)
	case c.Dir != "":
		r.fetcher = catalog.NewDirFetcher(os.DirFS(c.Dir), c.Prefix)
	default:
		return nil, fmt.Errorf("%w: catalog.base_url or catalog.dir is required", shared.ErrInvalidConfig)
	}
	return r.fetcher, nil
}

func (r *Runner) catalogResolver() (*catalog.Resolver, error) {
	if r.resolver != nil {
		return r.resolver, nil
	}
	fetcher, err := r.catalogFetcher()
	if err != nil {
		return nil, err
	}
	r.resolver = catalog.NewResolver(fetcher, shared.WithLogger(r.logger, "component", "catalog"))
	return r.resolver, nil
}

// connect builds the session, controller and scan bridge for a logged in user. notifier receives every
// user facing message; nil writes them to the log.
func (r *Runner) connect(ctx context.Context, notifier session.Notifier) error {
	if r.session != nil && r.session.Alive() {
		return nil
	}
	if notifier == nil {
		notifier = session.LogNotifier{Logger: r.logger}
	}

	remote, err := r.playbackService(ctx)
	if err != nil {
		return err
	}
	history, err := r.historyStore()
	if err != nil {
		return err
	}
	tokens, err := r.tokenClearer()
	if err != nil {
		return err
	}
	resolver, err := r.catalogResolver()
	if err != nil {
		return err
	}

	r.session = session.New(remote, session.Options{
		Tokens:   tokens,
		Notifier: notifier,
		Logger:   shared.WithLogger(r.logger, "component", "session"),
	})
	r.controller = playback.New(r.session, remote, playback.Options{
		SnippetDuration: r.cfg().Playback.SnippetDuration(),
		History:         history,
		Logger:          shared.WithLogger(r.logger, "component", "playback"),
	})
	r.bridge = scanner.NewBridge(resolver, r.controller, r.startPolicy().Policy, notifier, shared.WithLogger(r.logger, "component", "scanner"))

	r.logger.Debug("session started", "session", r.session.ID())
	return nil
}

// establish connects and loads devices and playlists. Load failures were already reported and do not stop
// the command.
func (r *Runner) establish(ctx context.Context, notifier session.Notifier) error {
	if err := r.connect(ctx, notifier); err != nil {
		return err
	}
	if err := r.session.Establish(ctx); err != nil {
		if errors.Is(err, shared.ErrUnauthorized) || errors.Is(err, shared.ErrSessionClosed) {
			return fmt.Errorf("%w: run `hitqr login` again", shared.ErrNotAuthenticated)
		}
		r.logger.Debug("initial load incomplete", "error", err)
	}
	return nil
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, loginCommand, logoutCommand, statusCommand, devicesCommand, playlistsCommand,
		resolveCommand, playCommand, randomCommand, scanCommand, historyCommand, catalogCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
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
