package main

import "github.com/urfave/cli/v3"

func newRootCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:     "assetmigrate",
		Usage:    "Migrate test-management assets between providers",
		Version:  version,
		Writer:   r.output,
		Commands: r.register(),
	}
}

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file (defaults when empty)",
		Sources: cli.EnvVars("ASSETMIGRATE_CONFIG"),
	}
}

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "json",
		Usage: "Output JSON",
	}
}

// planCommand resolves and optionally simulates an operation plan.
func planCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "plan",
		Usage: "Resolve the execution order of provider operations",
		Flags: []cli.Flag{
			configFlag(),
			jsonFlag(),
			&cli.StringFlag{
				Name:     "ops",
				Usage:    "TOML file with [[operations]] definitions",
				Required: true,
			},
			&cli.StringSliceFlag{
				Name:    "goal",
				Aliases: []string{"g"},
				Usage:   "Operation to reach; the required operations when omitted",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Execute the plan with simulated outputs from the operations file",
			},
			&cli.StringSliceFlag{
				Name:    "param",
				Aliases: []string{"p"},
				Usage:   "Initial parameter as key=value",
			},
		},
		Action: r.Plan,
	}
}

// batchCommand converts attachments once and prints the result.
func batchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "batch",
		Usage: "Convert a batch of attachments",
		Flags: []cli.Flag{
			configFlag(),
			jsonFlag(),
			&cli.StringFlag{
				Name:     "owner",
				Aliases:  []string{"o"},
				Usage:    "Owner whose attachments are converted",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "dir",
				Usage: "Attachment directory; overrides the configured store",
			},
			&cli.StringSliceFlag{
				Name:  "ids",
				Usage: "Attachment ids to convert",
			},
			&cli.BoolFlag{
				Name:  "all",
				Usage: "Convert every attachment of the owner in --dir",
			},
			&cli.StringFlag{
				Name:  "source",
				Usage: "Source provider id",
			},
			&cli.StringFlag{
				Name:  "target",
				Usage: "Target provider id",
			},
			&cli.IntFlag{
				Name:  "concurrency",
				Usage: "Maximum concurrent conversions",
			},
			&cli.IntFlag{
				Name:  "timeout",
				Usage: "Batch timeout in seconds",
			},
			&cli.IntFlag{
				Name:  "retries",
				Usage: "Retries per item",
			},
			&cli.IntFlag{
				Name:  "retry-delay",
				Usage: "Initial retry delay in milliseconds",
			},
			&cli.FloatFlag{
				Name:  "rate",
				Usage: "Maximum items dispatched per second",
			},
			&cli.BoolFlag{
				Name:  "abort-on-failure",
				Usage: "Stop dispatching after the first failed item",
			},
			&cli.StringSliceFlag{
				Name:  "content-type",
				Usage: "Only convert these content types (e.g. text/*)",
			},
			&cli.StringSliceFlag{
				Name:  "file-name",
				Usage: "Only convert ids matching these glob patterns",
			},
			&cli.BoolFlag{
				Name:  "stats",
				Usage: "Collect detailed statistics",
			},
		},
		Action: r.Batch,
	}
}

// serveCommand runs the HTTP API.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the HTTP API",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address; overrides server.addr",
			},
		},
		Action: r.Serve,
	}
}

// configCommand manages configuration files.
func configCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration file commands",
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Write the annotated default configuration",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "output",
						Usage: "Destination file",
						Value: "assetmigrate.toml",
					},
				},
				Action: r.ConfigInit,
			},
			{
				Name:   "check",
				Usage:  "Load and validate a configuration file",
				Flags:  []cli.Flag{configFlag()},
				Action: r.ConfigCheck,
			},
		},
	}
}
