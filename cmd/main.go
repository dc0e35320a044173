package main

import (
	"context"
	"errors"
	"os"

	"github.com/desertthunder/rize/internal/auth"
	"github.com/desertthunder/rize/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)
	runner := NewRunner(RunnerOpts{Logger: logger, ConfigPath: "config.toml"})

	if err := newApp(runner).Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		}
		logger.Fatalf("%s", auth.UserMessage(err))
	}
}

func newApp(runner *Runner) *cli.Command {
	return &cli.Command{
		Name:    "rize",
		Usage:   "Notes and tasks behind a verified sign-in",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Before:   runner.Before,
		After:    runner.After,
		Commands: runner.register(),
	}
}
