package main

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"docnum/internal/core/numbering"
)

func newTemplateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Work with numbering templates",
	}
	cmd.AddCommand(newTemplateCheckCmd())
	return cmd
}

func newTemplateCheckCmd() *cobra.Command {
	var (
		in numbering.TemplateInput
		at string
	)

	cmd := &cobra.Command{
		Use:   "check <template>",
		Short: "Validate a template and render the first number of a bucket",
		Example: `  docnumctl template check '{PROJECT}-{YYYY}{MM}-{SEQ}' --reset-policy Monthly --project ACME
  docnumctl template check 'INV-{SEQ}' --padding 6 --start 1000`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Template = args[0]
			if at != "" {
				parsed, err := time.Parse(time.DateOnly, at)
				if err != nil {
					return fmt.Errorf("--at: %w", err)
				}
				in.At = parsed
			}

			check, err := numbering.CheckTemplate(in)
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendRows([]table.Row{
				{"Template", check.Template},
				{"Reset policy", check.ResetPolicy},
				{"Generate on", check.GenerateOn},
				{"Sequence start", check.SequenceStart},
				{"Padding", check.SequencePadding},
				{"Period key", check.PeriodKey},
				{"Example", check.Example},
			})
			t.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&in.ResetPolicy, "reset-policy", "", "None, Yearly, Monthly or Daily")
	cmd.Flags().StringVar(&in.GenerateOn, "generate-on", "", "Submit or Approval")
	cmd.Flags().Int64Var(&in.SequenceStart, "start", 1, "First sequence of every bucket")
	cmd.Flags().IntVar(&in.SequencePadding, "padding", 4, "Minimum digits of {SEQ}")
	cmd.Flags().StringVar(&in.ProjectCode, "project", "", "Project code rendered for {PROJECT}")
	cmd.Flags().StringVar(&at, "at", "", "Render for this UTC date (YYYY-MM-DD) instead of today")
	return cmd
}
