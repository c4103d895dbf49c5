package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"mempoolrace/internal/pkg/flags"
	"mempoolrace/internal/pkg/logging"
	"mempoolrace/pkg/cmppending"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func main() {
	app := &cli.App{
		Name:                   "mempoolrace",
		Usage:                  "compares which of two nodes sees pending txs to a contract first",
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			flags.Verbosity,
			flags.Quiet,
		},
		Before: func(c *cli.Context) error {
			logging.Setup(c.Count(flags.Verbosity.Name), c.Bool(flags.Quiet.Name))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "race",
				Usage: "subscribes to both nodes and compares first-seen times of pending txs",
				Flags: []cli.Flag{
					flags.FirstRPC,
					flags.SecondRPC,
					flags.FirstName,
					flags.SecondName,
					flags.FirstFeed,
					flags.SecondFeed,
					flags.Count,
					flags.Target,
					flags.Timeout,
					flags.ResubscribeDelay,
				},
				Action: cmppending.NewRaceService().Run,
			},
		},
	}

	if err := flags.LoadEnv(); err != nil {
		logging.Setup(0, false)
		zap.L().Fatal("cannot load env file", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := app.RunContext(ctx, os.Args)
	if err != nil {
		logging.Setup(0, false)
		zap.L().Fatal("fatal", zap.Error(err))
	}
}
