package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/jonwraymond/assetmigrate/app"
	"github.com/jonwraymond/assetmigrate/config"
)

// Runner holds the dependencies of the CLI commands and implements their
// actions.
type Runner struct {
	output  io.Writer
	appOpts []app.Option
}

// RunnerOpts configures a Runner.
type RunnerOpts struct {
	// Output receives command output. Logs go to stderr.
	// Default: os.Stdout
	Output io.Writer

	// AppOptions are applied to every App the commands build.
	AppOptions []app.Option
}

// NewRunner creates a Runner.
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	return &Runner{output: opts.Output, appOpts: opts.AppOptions}
}

func (r *Runner) register() []*cli.Command {
	var commands []*cli.Command
	for _, fn := range []func(*Runner) *cli.Command{
		planCommand, batchCommand, serveCommand, configCommand,
	} {
		commands = append(commands, fn(r))
	}
	return commands
}

func (r *Runner) loadConfig(ctx context.Context, cmd *cli.Command) (*config.Config, error) {
	return config.Load(ctx, cmd.String("config"))
}

// startApp builds and initializes an App. The caller must shut it down.
func (r *Runner) startApp(ctx context.Context, cfg *config.Config, opts ...app.Option) (*app.App, error) {
	a, err := app.New(ctx, cfg, append(append([]app.Option(nil), r.appOpts...), opts...)...)
	if err != nil {
		return nil, err
	}
	if err := a.Init(ctx); err != nil {
		_ = a.Shutdown(ctx)
		return nil, err
	}
	return a, nil
}

func (r *Runner) writeJSON(data any) error {
	enc := json.NewEncoder(r.output)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	if _, err := fmt.Fprintf(r.output, format, args...); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
