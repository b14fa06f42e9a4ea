package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/jonwraymond/assetmigrate/config"
)

// ConfigInit writes the annotated default configuration. An existing file
// is never overwritten.
func (r *Runner) ConfigInit(_ context.Context, cmd *cli.Command) error {
	path := cmd.String("output")
	if err := config.WriteExample(path); err != nil {
		return err
	}
	return r.writePlain("wrote %s\n", path)
}

// ConfigCheck loads the configuration, resolving its secrets, and reports
// whether it is valid.
func (r *Runner) ConfigCheck(ctx context.Context, cmd *cli.Command) error {
	cfg, err := r.loadConfig(ctx, cmd)
	if err != nil {
		return err
	}
	return r.writePlain("ok: service %s, %d resilience targets, store %s\n",
		cfg.Service.Name, len(cfg.Resilience.TargetNames()), storeKind(cfg.Store))
}

func storeKind(s config.StoreConfig) string {
	if s.Kind == "" {
		return config.StoreMemory
	}
	return s.Kind
}
