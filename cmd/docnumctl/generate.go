package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"docnum/internal/core/id"
	"docnum/internal/core/numbering"
	domain "docnum/internal/domain/numbering"
)

func newGenerateCmd(opts *globalOptions) *cobra.Command {
	var (
		trigger string
		userID  string
		format  string
	)

	cmd := &cobra.Command{
		Use:   "generate <submission-id>",
		Short: "Assign the next document number to a submission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			subID, err := id.Parse(args[0])
			if err != nil {
				return fmt.Errorf("submission id: %w", err)
			}

			a, err := opts.open(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.Engine.GenerateForSubmission(cmd.Context(), domain.GenerateRequest{
				SubmissionID: subID,
				Trigger:      trigger,
				ActingUserID: userID,
			})
			if err != nil {
				return err
			}

			if err := printResult(cmd.OutOrStdout(), format, res); err != nil {
				return err
			}
			if res.Failure != nil {
				return errors.New(res.Failure.Error())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&trigger, "trigger", "", "Submit (default) or Approval")
	cmd.Flags().StringVar(&userID, "user", "", "User recorded in the audit trail")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table or json")
	return cmd
}

func printResult(w io.Writer, format string, res *numbering.Result) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case "table":
		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.SetStyle(table.StyleLight)
		if res.Failure != nil {
			t.AppendRows([]table.Row{
				{"Result", "failed"},
				{"Failure", res.Failure.Kind},
				{"Category", res.Failure.Kind.Category()},
				{"Retryable", res.Failure.Kind.Retryable()},
				{"Reason", res.Failure.Message},
			})
		} else {
			t.AppendRows([]table.Row{
				{"Document number", res.DocumentNumber},
				{"Sequence", res.SequenceNumber},
				{"Period key", res.PeriodKey},
				{"New bucket", res.IsNewBucket},
				{"Trigger", res.Trigger},
				{"Generated by", res.GeneratedBy},
			})
		}
		t.Render()
		return nil
	default:
		return fmt.Errorf("invalid format: %s (valid values: table, json)", format)
	}
}
