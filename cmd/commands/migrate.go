package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/ikigai/internal/config"
	"github.com/dohr-michael/ikigai/internal/migrations"
)

// NewMigrateCommand returns the migrate subcommand: apply every pending
// SQL migration (spec §6) without starting the REPL. The REPL's own
// startup path also calls migrations.Run, so this exists for operators
// who want to migrate a database ahead of first connect (e.g. in a
// deploy pipeline) without opening an interactive session.
func NewMigrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply pending database migrations and exit",
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := migrations.Run(*cfg); err != nil {
				return err
			}
			fmt.Println("migrations applied")
			return nil
		},
	}
}

func loadConfig(cmd *cli.Command) (*config.Config, error) {
	return config.Load(cmd.String("config"))
}
