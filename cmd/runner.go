package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunescope/internal/auth"
	"github.com/desertthunder/tunescope/internal/gateway"
	"github.com/desertthunder/tunescope/internal/services"
	"github.com/desertthunder/tunescope/internal/shared"
	"github.com/desertthunder/tunescope/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config  *shared.Config
	session *auth.Session
	library *services.Library
	search  *services.Search
	engine  *tasks.Engine
	ledger  *gateway.Ledger
	cache   *gateway.Cache
	logger  *log.Logger
	output  io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config  *shared.Config
	Session *auth.Session
	Library *services.Library
	Search  *services.Search
	Engine  *tasks.Engine
	Ledger  *gateway.Ledger
	Cache   *gateway.Cache
	Logger  *log.Logger
	Output  io.Writer
}

// NewRunner creates a new Runner with the provided dependencies.
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

	return &Runner{
		config:  opts.Config,
		session: opts.Session,
		library: opts.Library,
		search:  opts.Search,
		engine:  opts.Engine,
		ledger:  opts.Ledger,
		cache:   opts.Cache,
		logger:  opts.Logger,
		output:  opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, libraryCommand, searchCommand, analyzeCommand, quotaCommand, cacheCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// requireSession fails early when no OAuth client descriptor was configured.
func (r *Runner) requireSession() error {
	if r.session == nil {
		return fmt.Errorf("%w: set [credentials.google] in config.toml", shared.ErrMissingCredentials)
	}
	return nil
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
