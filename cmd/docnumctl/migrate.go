package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"docnum/internal/config"
)

func newMigrateCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.open(cmd.Context(), func(cfg *config.Config) { cfg.AutoMigrate = false })
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Backend.Migrate(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema is up to date (%s)\n", a.Backend.Driver)
			return nil
		},
	}
}
