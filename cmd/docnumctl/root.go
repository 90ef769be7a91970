package main

import (
	"context"

	"github.com/spf13/cobra"

	"docnum/internal/app"
	"docnum/internal/config"
	appctx "docnum/internal/core/context"
	"docnum/pkg/logger"
)

type globalOptions struct {
	envFile string
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:           "docnumctl",
		Short:         "docnumctl - administer the document numbering service",
		Long:          "docnumctl migrates and seeds the numbering database, checks templates, generates numbers and inspects the audit trail.",
		Version:       app.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			cmd.SetContext(appctx.StartTrace(cmd.Context(), appctx.OriginCLI, "", ""))
		},
	}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", "", "Load settings from this .env file")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log to stdout")

	cmd.AddCommand(newMigrateCmd(opts))
	cmd.AddCommand(newSeedCmd(opts))
	cmd.AddCommand(newTemplateCmd())
	cmd.AddCommand(newGenerateCmd(opts))
	cmd.AddCommand(newPreviewCmd(opts))
	cmd.AddCommand(newAuditCmd(opts))
	cmd.AddCommand(newTokenCmd(opts))
	return cmd
}

func (o *globalOptions) loadConfig() (*config.Config, error) {
	if o.envFile != "" {
		return config.Load(o.envFile)
	}
	return config.Load()
}

// open loads settings and connects. Logging stays silent unless --verbose.
func (o *globalOptions) open(ctx context.Context, tune func(*config.Config)) (*app.App, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	if tune != nil {
		tune(cfg)
	}

	log := logger.Nop()
	if o.verbose {
		if log, err = app.NewLogger(cfg); err != nil {
			return nil, err
		}
	} else {
		logger.SetDefault(log)
	}
	return app.Open(ctx, cfg, log)
}
