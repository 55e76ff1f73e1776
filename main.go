// Command aitown is a thin convenience entry point for `go run .`; the
// full command tree (serve, kick, tick, validate-map) lives in
// cmd/aitownd and internal/cliapp, mirroring the teacher's main.go
// which loaded .env and dispatched a mode before starting servers.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/wricardo/aitown/internal/cliapp"
)

func main() {
	os.Exit(run(os.Args))
}

// run loads .env, then delegates to internal/cliapp's command tree,
// returning the process exit code instead of calling os.Exit directly
// so it stays testable.
func run(args []string) int {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintln(os.Stderr, "aitown: warning: error loading .env file:", err)
	}

	if err := cliapp.Run(context.Background(), args); err != nil {
		fmt.Fprintln(os.Stderr, "aitown:", err)
		return 1
	}
	return 0
}
