package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"docnum/internal/app"
	"docnum/internal/core/id"
)

func newPreviewCmd(opts *globalOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "preview <series-id|series-code>",
		Short: "Show the next number of a series without reserving it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer a.Close()

			seriesID, err := resolveSeries(cmd.Context(), a, args[0])
			if err != nil {
				return err
			}
			p, err := a.Engine.Preview(cmd.Context(), seriesID)
			if err != nil {
				return err
			}

			switch format {
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(p)
			case "table":
				t := table.NewWriter()
				t.SetOutputMirror(cmd.OutOrStdout())
				t.SetStyle(table.StyleLight)
				t.AppendRows([]table.Row{
					{"Series", p.SeriesCode},
					{"Period key", p.PeriodKey},
					{"Reset policy", p.ResetPolicy},
					{"Generate on", p.GenerateOn},
					{"Current", p.CurrentNumber},
					{"Next sequence", p.NextSequence},
					{"Next number", p.DocumentNumber},
				})
				t.Render()
				return nil
			default:
				return fmt.Errorf("invalid format: %s (valid values: table, json)", format)
			}
		},
	}

	cmd.Flags().StringVar(&format, "format", "table", "Output format: table or json")
	return cmd
}

// resolveSeries accepts either a series id or its code.
func resolveSeries(ctx context.Context, a *app.App, ref string) (id.ID, error) {
	if parsed, err := id.Parse(ref); err == nil {
		return parsed, nil
	}
	s, err := a.Backend.Series.GetSeriesByCode(ctx, ref)
	if err != nil {
		return id.ID{}, err
	}
	return s.ID, nil
}
