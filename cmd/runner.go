package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/rize/internal/auth"
	"github.com/desertthunder/rize/internal/navigation"
	"github.com/desertthunder/rize/internal/repositories"
	"github.com/desertthunder/rize/internal/server"
	"github.com/desertthunder/rize/internal/services"
	"github.com/desertthunder/rize/internal/session"
	"github.com/desertthunder/rize/internal/shared"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Session, storage, and Google dependencies are built on first use so that setup commands work
// before the identity provider is configured.
type Runner struct {
	config     *shared.Config
	configPath string
	provider   services.Provider
	cache      *session.FileCache
	auth       *auth.Manager
	lists      *repositories.ListStore
	ownsLists  bool
	google     *server.GoogleFlow
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	input      *bufio.Reader
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Provider   services.Provider
	Cache      *session.FileCache
	Lists      *repositories.ListStore
	Google     *server.GoogleFlow
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Input      io.Reader
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
	if opts.Input == nil {
		opts.Input = os.Stdin
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		provider:   opts.Provider,
		cache:      opts.Cache,
		lists:      opts.Lists,
		google:     opts.Google,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		input:      bufio.NewReader(opts.Input),
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, notesCommand, tasksCommand, exportCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Before loads the configuration named by --config and applies the log level.
//
// A missing config file falls back to the embedded defaults.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if path := cmd.String("config"); path != "" {
		r.configPath = path
	}

	if r.configPath != "" {
		if _, err := os.Stat(r.configPath); err == nil {
			config, err := shared.LoadConfig(r.configPath)
			if err != nil {
				return ctx, err
			}
			r.config = config
		} else {
			r.logger.Debug("config file not found, using defaults", "path", r.configPath)
		}
	}

	if err := r.config.ResolvePaths(); err != nil {
		return ctx, err
	}

	level := shared.ParseLogLevel(r.config.App.LogLevel)
	if cmd.Bool("debug") {
		level = log.DebugLevel
	}
	shared.SetLogLevel(r.logger, level)

	return ctx, nil
}

// After releases the list store if a command opened it.
func (r *Runner) After(ctx context.Context, cmd *cli.Command) error {
	if r.lists == nil || !r.ownsLists {
		return nil
	}
	err := r.lists.Close()
	r.lists = nil
	r.ownsLists = false
	return err
}

// SetLogger replaces the logger used by the runner and dependencies built afterwards.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// session returns the auth manager, building the provider and cache on first use.
func (r *Runner) session() (*auth.Manager, error) {
	if r.auth != nil {
		return r.auth, nil
	}

	if r.cache == nil {
		cache, err := session.Open(r.config.PreferencesPath())
		if err != nil {
			return nil, fmt.Errorf("failed to open session cache: %w", err)
		}
		r.cache = cache
	}

	if r.provider == nil {
		r.provider = services.NewIdentityToolkitService(
			r.config.Identity,
			r.config.IdentityPath(),
			r.httpClient,
			shared.WithLogger(r.logger, "component", "identity"),
		)
	}

	r.auth = auth.NewManager(r.provider, r.cache, shared.WithLogger(r.logger, "component", "auth"))
	return r.auth, nil
}

// store returns the list store, opening and migrating both databases on first use.
func (r *Runner) store() (*repositories.ListStore, error) {
	if r.lists != nil {
		return r.lists, nil
	}

	lists, err := repositories.OpenListStore(r.config.Database, shared.WithLogger(r.logger, "component", "lists"))
	if err != nil {
		return nil, err
	}
	r.lists = lists
	r.ownsLists = true
	return lists, nil
}

func (r *Runner) googleFlow() *server.GoogleFlow {
	if r.google == nil {
		r.google = server.NewGoogleFlow(r.config.Google, shared.WithLogger(r.logger, "component", "google"))
		r.google.OnAuthURL = func(url string) {
			r.writePlain("Open this URL to continue:\n%s\n", url)
		}
	}
	return r.google
}

// admit reconciles the session and asks the navigation policy whether dest may be shown.
func (r *Runner) admit(ctx context.Context, dest navigation.Destination) (*auth.Manager, error) {
	manager, err := r.session()
	if err != nil {
		return nil, err
	}

	if _, err := manager.Reconcile(ctx); err != nil && !errors.Is(err, shared.ErrReconciliationDiscarded) {
		return nil, err
	}

	decision := navigation.Decide(manager.State(), navigation.Home, dest)
	if decision.Target != dest {
		return nil, fmt.Errorf("%w: run 'rize auth signin' first", shared.ErrNotAuthenticated)
	}
	return manager, nil
}

// prompt reads one line from input after printing label.
func (r *Runner) prompt(label string) (string, error) {
	r.writePlain("%s: ", label)
	line, err := r.input.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("%w: %s", shared.ErrMissingArgument, strings.ToLower(label))
	}
	return strings.TrimRight(line, "\r\n"), nil
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
