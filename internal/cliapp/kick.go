package cliapp

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

// kickCommand provisions an ephemeral world from a map, starts its
// engine, submits one input, and kicks the engine — the operational
// "bound input latency" primitive of §4.5, exercised here as a
// stand-alone diagnostic rather than through a live server.
func kickCommand() *cli.Command {
	return &cli.Command{
		Name:  "kick",
		Usage: "provision a world from a map, submit one input, and kick its engine",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "map", Value: "", Usage: "map to provision (defaults to the manager's default map)"},
			&cli.StringFlag{Name: "input", Value: "join", Usage: "input name to submit before kicking"},
			&cli.StringFlag{Name: "args", Value: `{"name":"scout","x":0,"y":0}`, Usage: "JSON input arguments"},
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

			worldID, engineID, err := rt.provisionWorld("kick", cmd.String("map"))
			if err != nil {
				return err
			}
			if err := rt.engine.Start(ctx, engineID); err != nil {
				return err
			}

			inputID, number, err := rt.engine.InsertInput(ctx, engineID, cmd.String("input"), []byte(cmd.String("args")))
			if err != nil {
				return err
			}
			if err := rt.engine.Kick(ctx, engineID); err != nil {
				return err
			}

			doc, err := rt.engine.EngineStatus(ctx, engineID)
			if err != nil {
				return err
			}
			fmt.Printf("world=%s engine=%s inputId=%s number=%d generation=%d state=%s\n",
				worldID, engineID, inputID, number, doc.GenerationNumber, doc.State)
			return nil
		},
	}
}
