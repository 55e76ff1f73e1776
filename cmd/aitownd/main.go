package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/wricardo/aitown/internal/cliapp"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintln(os.Stderr, "aitownd: warning: error loading .env file:", err)
	}

	if err := cliapp.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "aitownd:", err)
		os.Exit(1)
	}
}
