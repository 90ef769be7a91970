package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"docnum/internal/infrastructure/storage/sqlstore"
)

func newSeedCmd(opts *globalOptions) *cobra.Command {
	var filePath string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load projects, series and submissions from a YAML file",
		Long:  "seed inserts the rows of a fixture file. Rows whose id already exists are left untouched, so seeding twice is harmless.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := os.Open(filePath)
			if err != nil {
				return err
			}
			defer f.Close()

			fixtures, err := sqlstore.DecodeFixtures(f)
			if err != nil {
				return err
			}

			a, err := opts.open(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.Backend.Seeder.Seed(cmd.Context(), fixtures)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(),
				"inserted %d projects, %d document types, %d series, %d submissions\n",
				res.Projects, res.DocumentTypes, res.Series, res.Submissions)
			return nil
		},
	}

	cmd.Flags().StringVarP(&filePath, "file", "f", "", "Fixture file (YAML)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
