package main

import (
	"context"
	"errors"
	"slices"

	"github.com/urfave/cli/v3"

	"github.com/jonwraymond/assetmigrate/app"
	"github.com/jonwraymond/assetmigrate/attachment"
	"github.com/jonwraymond/assetmigrate/batch"
	"github.com/jonwraymond/assetmigrate/config"
)

type lister interface {
	List(ctx context.Context, ownerID string) ([]string, error)
}

// batchOptions starts from the configured options and applies the flags
// that were set.
func batchOptions(cfg *config.Config, cmd *cli.Command) batch.Options {
	opts := cfg.Batch
	opts.FilterByContentType = slices.Clone(opts.FilterByContentType)
	opts.FilterByFileName = slices.Clone(opts.FilterByFileName)

	if cmd.IsSet("concurrency") {
		opts.MaxConcurrentJobs = cmd.Int("concurrency")
	}
	if cmd.IsSet("timeout") {
		opts.TimeoutSeconds = cmd.Int("timeout")
	}
	if cmd.IsSet("retries") {
		opts.RetryCount = cmd.Int("retries")
	}
	if cmd.IsSet("retry-delay") {
		opts.RetryDelayMs = cmd.Int("retry-delay")
	}
	if cmd.IsSet("abort-on-failure") {
		opts.AbortOnFailure = cmd.Bool("abort-on-failure")
	}
	if cmd.IsSet("content-type") {
		opts.FilterByContentType = cmd.StringSlice("content-type")
	}
	if cmd.IsSet("file-name") {
		opts.FilterByFileName = cmd.StringSlice("file-name")
	}
	if cmd.IsSet("stats") {
		opts.CollectDetailedStats = cmd.Bool("stats")
	}
	return opts
}

// Batch converts the selected attachments of one owner and prints the
// result. Item failures are reported, not returned.
func (r *Runner) Batch(ctx context.Context, cmd *cli.Command) error {
	cfg, err := r.loadConfig(ctx, cmd)
	if err != nil {
		return err
	}
	opts := batchOptions(cfg, cmd)
	if err := opts.Validate(); err != nil {
		return err
	}

	var appOpts []app.Option
	if dir := cmd.String("dir"); dir != "" {
		store, err := attachment.NewDirStore(dir)
		if err != nil {
			return err
		}
		appOpts = append(appOpts, app.WithStore(store))
	}

	a, err := r.startApp(ctx, cfg, appOpts...)
	if err != nil {
		return err
	}
	defer func() { _ = a.Shutdown(context.WithoutCancel(ctx)) }()

	owner := cmd.String("owner")
	ids := cmd.StringSlice("ids")
	if cmd.Bool("all") {
		l, ok := a.Store().(lister)
		if !ok {
			return errors.New("--all requires a directory store")
		}
		listed, err := l.List(ctx, owner)
		if err != nil {
			return err
		}
		ids = append(ids, listed...)
	}
	if len(ids) == 0 {
		return errors.New("no attachments selected: pass --ids or --all")
	}

	proc := batch.ProcessingOptions{
		SourceProvider: cmd.String("source"),
		TargetProvider: cmd.String("target"),
		RatePerSecond:  cmd.Float("rate"),
	}
	res, err := a.Processor().ProcessAttachments(ctx, owner, ids, proc, opts, a.Store())
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(res)
	}
	if err := r.writePlain("batch %s: %s (%d/%d processed, %d failed) in %s\n",
		res.BatchID, res.Status, res.Processed, res.Total, res.Failed, res.ElapsedTime); err != nil {
		return err
	}
	failed := make([]string, 0, len(res.FailedAttachments))
	for id := range res.FailedAttachments {
		failed = append(failed, id)
	}
	slices.Sort(failed)
	for _, id := range failed {
		if err := r.writePlain("  failed %s: %s\n", id, res.FailedAttachments[id]); err != nil {
			return err
		}
	}
	for _, id := range res.Excluded {
		if err := r.writePlain("  excluded %s\n", id); err != nil {
			return err
		}
	}
	return nil
}
