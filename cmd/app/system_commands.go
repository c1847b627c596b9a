package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/relay/cmd/app/commands"
	"github.com/allisson/relay/internal/app"
	"github.com/allisson/relay/internal/config"
)

func getSystemCommands(version string) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "server",
			Usage: "Start the admin API and metrics servers",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunServer(ctx, version)
			},
		},
		{
			Name:  "worker",
			Usage: "Run the outbox dispatcher and the message scheduler",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "outbox",
					Value: true,
					Usage: "Run the outbox dispatcher loop",
				},
				&cli.BoolFlag{
					Name:  "scheduler",
					Value: true,
					Usage: "Run the scheduled message loop",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunWorker(ctx, version, cmd.Bool("outbox"), cmd.Bool("scheduler"))
			},
		},
		{
			Name:  "migrate",
			Usage: "Run database migrations",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				return commands.RunMigrations(container.Logger(), cfg.DBDriver, cfg.DBConnectionString)
			},
		},
	}
}
