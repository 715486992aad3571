package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/featureprep/internal/commands"
	"github.com/JonMunkholm/featureprep/internal/core"
)

var version = "dev"

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err == nil {
		slog.Debug("loaded .env file")
	}

	root := commands.NewRootCmd(version)
	if err := root.ExecuteContext(context.Background()); err != nil {
		code := commands.ExitCode(err)
		if core.IsUserFacing(err) {
			fmt.Fprintln(os.Stderr, core.FormatUserError(err))
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(code)
	}
}
