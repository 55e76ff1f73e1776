package cliapp

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/aitown/internal/config"
)

// validateMapCommand checks a single map document's grid consistency
// and walkability, the quick structural half of validate/'s fuller
// connectivity report — handy for a CI step that doesn't want to shell
// out to a separate binary.
func validateMapCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate-map",
		Usage:     "check a map document's grid consistency and walkability",
		ArgsUsage: "<map-name>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			name := cmd.Args().First()
			if name == "" {
				return fmt.Errorf("aitownd validate-map: missing <map-name> argument")
			}
			mapsDir := mapsDirFromCmd(cmd)
			maps, err := config.NewManager(mapsDir, config.EngineConfig{})
			if err != nil {
				return err
			}
			doc, err := maps.LoadMap(name)
			if err != nil {
				return fmt.Errorf("aitownd validate-map: %w", err)
			}
			fmt.Printf("%s: valid (%dx%d)\n", doc.ID, doc.Width, doc.Height)
			return nil
		},
	}
}
