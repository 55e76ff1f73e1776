// Package cliapp builds the aitownd command tree: urfave/cli/v3
// subcommands standardizing the teacher's flag-based "server vs
// stdio-mcp" dispatch (statefullgame's main.go) into serve, kick, tick,
// and validate-map. It is imported by both the root main.go (kept as a
// thin `go run .` entry point) and cmd/aitownd's own main.go, so both
// binaries share one command tree.
package cliapp

import (
	"context"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
)

// Run builds the command tree and executes it against args.
func Run(ctx context.Context, args []string) error {
	cmd := &cli.Command{
		Name:  "aitownd",
		Usage: "AiTown simulation engine daemon",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "maps-dir",
				Value: defaultMapsDir(),
				Usage: "directory containing map JSON documents",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging",
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			kickCommand(),
			tickCommand(),
			validateMapCommand(),
		},
	}
	return cmd.Run(ctx, args)
}

func defaultMapsDir() string {
	if v := os.Getenv("AITOWN_MAPS_DIR"); v != "" {
		return v
	}
	return "configs/maps"
}

func loggerFromCmd(cmd *cli.Command) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})
	if cmd.Root().Bool("debug") {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

func mapsDirFromCmd(cmd *cli.Command) string {
	if v := cmd.Root().String("maps-dir"); v != "" {
		return v
	}
	return defaultMapsDir()
}
