package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

const version = "0.1.0"

func main() {
	app := &cli.App{
		Name:    "pulsectl",
		Usage:   "Replay chat transcripts and inspect conversation analytics",
		Version: version,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Log each processed message to stderr",
			},
		},
		Commands: []*cli.Command{
			replayCommand(),
			flowsCommand(),
			threadsCommand(),
			engagementCommand(),
			leaderboardCommand(),
			insightsCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
