// Package commands implements ikigai's urfave/cli/v3 command tree, one
// file per subcommand in the teacher's cmd/commands layout, wiring the
// core packages (eventstore, registry, mailbox, replay, agentsession,
// provider, repl, wait) behind a terminal entrypoint.
package commands

import (
	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/ikigai/internal/config"
)

// NewRootCommand returns the top-level CLI command. Running ikigai with
// no subcommand starts the interactive REPL directly (spec §1: "a single
// running session hosts a tree of agents"), matching the teacher's
// pattern of one default entry surface (there tui, here repl-by-default)
// plus operational subcommands.
func NewRootCommand(version, commit string) *cli.Command {
	return &cli.Command{
		Name:    "ikigai",
		Usage:   "Interactive multi-agent terminal client for LLM providers",
		Version: version + " (" + commit + ")",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
				Value:   config.ConfigPath(),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Commands: []*cli.Command{
			NewMigrateCommand(),
			NewReplCommand(),
		},
		Action: runREPL,
	}
}
