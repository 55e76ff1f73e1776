package cliapp

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v3"
)

// tickCommand provisions an ephemeral world from a map, starts its
// engine, waits one tick, and forces exactly one RunStep — a
// diagnostic for inspecting a single step's effect (drained inputs,
// advanced time, flushed history) without waiting on the scheduler.
func tickCommand() *cli.Command {
	return &cli.Command{
		Name:  "tick",
		Usage: "provision a world from a map and force one engine step",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "map", Value: "", Usage: "map to provision (defaults to the manager's default map)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			logger := loggerFromCmd(cmd)
			mapsDir := mapsDirFromCmd(cmd)
			if err := os.MkdirAll(mapsDir, 0o755); err != nil {
				return err
			}
			rt, err := newRuntime(mapsDir, logger)
			if err != nil {
				return err
			}

			worldID, engineID, err := rt.provisionWorld("tick", cmd.String("map"))
			if err != nil {
				return err
			}
			if err := rt.engine.Start(ctx, engineID); err != nil {
				return err
			}

			before, err := rt.engine.EngineStatus(ctx, engineID)
			if err != nil {
				return err
			}

			time.Sleep(20 * time.Millisecond)
			if err := rt.engine.RunStep(ctx, engineID, before.GenerationNumber); err != nil {
				return err
			}

			after, err := rt.engine.EngineStatus(ctx, engineID)
			if err != nil {
				return err
			}
			fmt.Printf("world=%s engine=%s currentTime %d -> %d\n", worldID, engineID, before.CurrentTime, after.CurrentTime)
			return nil
		},
	}
}
