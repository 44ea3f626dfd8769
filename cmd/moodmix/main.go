package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/ewilliams-labs/moodmix/backend/internal/shared"
)

func main() {
	logger := shared.NewLogger(nil)
	runner := NewRunner(RunnerOpts{Logger: logger})

	if err := rootCommand(runner).Run(context.Background(), os.Args); err != nil {
		logger.Fatal("moodmix failed", "error", err)
	}
}

func rootCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "moodmix",
		Usage: "Turn a mood into a Spotify playlist",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Path to a .env file with secrets",
				Value: ".env",
			},
			&cli.StringFlag{
				Name:    "user",
				Aliases: []string{"u"},
				Usage:   "Local user id owning leases and history",
				Value:   "local",
			},
		},
		Commands: r.register(),
	}
}
