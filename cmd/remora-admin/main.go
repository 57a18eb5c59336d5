package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/remora-run/remora/pkg/log"
)

func main() {
	command := &cli.Command{
		Name:                  "remora-admin",
		EnableShellCompletion: true,
		Usage:                 "Inspect and manage stored executions",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "error",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Commands: []*cli.Command{
			NewListCommand(),
			NewShowCommand(),
			NewStopCommand(),
			NewDeleteCommand(),
		},
	}

	log.Setup("error")

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		os.Exit(1)
	}
}
