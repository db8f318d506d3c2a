package main

import (
	"context"
	"log"
	"os"

	"github.com/urfave/cli/v3"
)

const (
	logLevelKey = "log-level"
	configKey   = "config"
	reportKey   = "report"
	seedKey     = "seed"
)

func main() {
	cmd := &cli.Command{
		Name:  "tierbench",
		Usage: "Load scenarios for the tiered reactive scheduler",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  logLevelKey,
				Usage: "Log level: debug, info, warn or error",
				Value: "info",
			},
			&cli.StringFlag{
				Name:  configKey,
				Usage: "HCL scenario file; built-in defaults are used when empty",
			},
			&cli.StringFlag{
				Name:  reportKey,
				Usage: "Also write a markdown report to this path",
			},
			&cli.StringFlag{
				Name:  seedKey,
				Usage: "Seed phrase for the random write order",
				Value: "tierbench",
			},
		},
		Commands: []*cli.Command{
			propagateCommand(),
			tiersCommand(),
			adaptiveCommand(),
		},
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
