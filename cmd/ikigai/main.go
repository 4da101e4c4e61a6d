// Command ikigai is the interactive multi-agent terminal client's
// entrypoint, grounded on the teacher's cmd/ozzie/main.go: load the
// .env file, build a signal-cancellable context, and hand off to the
// urfave/cli command tree.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/dohr-michael/ikigai/cmd/commands"
	"github.com/dohr-michael/ikigai/internal/config"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	if err := config.LoadDotenv(config.DotenvPath()); err != nil {
		slog.Warn("failed to load .env", "error", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cmd := commands.NewRootCommand(version, commit)
	if err := cmd.Run(ctx, os.Args); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}
