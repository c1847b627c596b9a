package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/relay/cmd/app/commands"
	"github.com/allisson/relay/internal/app"
	"github.com/allisson/relay/internal/config"
	outboxUsecase "github.com/allisson/relay/internal/outbox/usecase"
)

func getMessagingCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "dispatch-once",
			Usage: "Run a single outbox and scheduler dispatch cycle",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "outbox",
					Value: true,
					Usage: "Dispatch pending outbox messages",
				},
				&cli.BoolFlag{
					Name:  "scheduler",
					Value: true,
					Usage: "Dispatch due scheduled messages",
				},
				&cli.StringFlag{
					Name:    "format",
					Aliases: []string{"f"},
					Value:   "text",
					Usage:   "Output format: 'text' or 'json'",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				var outbox outboxUsecase.DispatchUseCase
				if cmd.Bool("outbox") {
					dispatcher, err := container.Dispatcher()
					if err != nil {
						return err
					}
					outbox = dispatcher
				}

				var scheduler commands.ScheduledDispatcher
				if cmd.Bool("scheduler") {
					s, err := container.Scheduler()
					if err != nil {
						return err
					}
					scheduler = s
				}

				return commands.RunDispatchOnce(
					ctx,
					outbox,
					scheduler,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "cancel-schedule",
			Usage: "Cancel a pending scheduled message",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "token",
					Aliases:  []string{"t"},
					Required: true,
					Usage:    "Schedule token (UUID)",
				},
				&cli.StringFlag{
					Name:    "format",
					Aliases: []string{"f"},
					Value:   "text",
					Usage:   "Output format: 'text' or 'json'",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				useCase, err := container.SchedulerUseCase()
				if err != nil {
					return err
				}

				return commands.RunCancelSchedule(
					ctx,
					useCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("token"),
					cmd.String("format"),
				)
			},
		},
	}
}
