package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"docnum/internal/app"
	"docnum/internal/core/id"
	"docnum/internal/core/numbering"
	"docnum/internal/infrastructure/export"
)

type auditQuery struct {
	submission string
	series     string
	limit      int
}

func (q *auditQuery) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&q.submission, "submission", "", "Submission id")
	cmd.Flags().StringVar(&q.series, "series", "", "Series id or code")
	cmd.Flags().IntVar(&q.limit, "limit", 100, "Maximum records of a series, newest first")
	cmd.MarkFlagsMutuallyExclusive("submission", "series")
	cmd.MarkFlagsOneRequired("submission", "series")
}

func (q *auditQuery) run(cmd *cobra.Command, a *app.App) ([]numbering.AuditRecord, error) {
	ctx := cmd.Context()
	if q.submission != "" {
		subID, err := id.Parse(q.submission)
		if err != nil {
			return nil, fmt.Errorf("submission id: %w", err)
		}
		return a.Backend.Audit.ListBySubmission(ctx, subID)
	}
	seriesID, err := resolveSeries(ctx, a, q.series)
	if err != nil {
		return nil, err
	}
	return a.Backend.Audit.ListBySeries(ctx, seriesID, q.limit)
}

func newAuditCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect the generation audit trail",
	}
	cmd.AddCommand(newAuditListCmd(opts))
	cmd.AddCommand(newAuditExportCmd(opts))
	return cmd
}

func newAuditListCmd(opts *globalOptions) *cobra.Command {
	var (
		q      auditQuery
		format string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List audit records of a submission or a series",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.open(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer a.Close()

			records, err := q.run(cmd, a)
			if err != nil {
				return err
			}
			return printAudit(cmd.OutOrStdout(), format, records)
		},
	}

	q.bind(cmd)
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table or json")
	return cmd
}

func printAudit(w io.Writer, format string, records []numbering.AuditRecord) error {
	switch format {
	case "json":
		if records == nil {
			records = []numbering.AuditRecord{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	case "table":
		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"Number", "Seq", "Period", "Trigger", "By", "At (UTC)"})
		for _, r := range records {
			t.AppendRow(table.Row{
				r.DocumentNumber, r.SequenceNumber, r.PeriodKey, r.Trigger, r.GeneratedBy,
				r.GeneratedAt.UTC().Format("2006-01-02 15:04:05"),
			})
		}
		t.AppendFooter(table.Row{"", "", "", "", "Total", len(records)})
		t.Render()
		return nil
	default:
		return fmt.Errorf("invalid format: %s (valid values: table, json)", format)
	}
}

func newAuditExportCmd(opts *globalOptions) *cobra.Command {
	var (
		q   auditQuery
		out string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write audit records to an .xlsx workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			a, err := opts.open(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer a.Close()

			records, err := q.run(cmd, a)
			if err != nil {
				return err
			}

			f, err := os.Create(out)
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, f.Close()) }()

			if err := export.WriteAudit(f, records); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d records to %s\n", len(records), out)
			return nil
		},
	}

	q.bind(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "audit.xlsx", "Output file")
	return cmd
}
