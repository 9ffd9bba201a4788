package main

import (
	"errors"

	"github.com/spf13/cobra"

	"cta-backtester/internal/reporting"
)

var reportRunID string

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render the report of a stored run",
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportRunID, "run-id", "", "Stored run to report on (required)")
}

func runReport(cmd *cobra.Command, _ []string) error {
	if reportRunID == "" {
		return errors.New("--run-id is required")
	}
	ctx := cmd.Context()
	env, err := setup(ctx)
	if err != nil {
		return err
	}
	defer env.close()

	if !env.stores.Persistent {
		env.log.Warn("no storage.postgres_dsn configured, stored runs are not available")
	}

	rep, err := reporting.NewGenerator(env.stores.Runs, env.stores.Trades, env.stores.Daily).Generate(ctx, reportRunID)
	if err != nil {
		return err
	}
	reporting.RenderConsole(cmd.OutOrStdout(), rep)

	if dir := env.cfg.Output.Dir; dir != "" {
		paths, err := reporting.WriteFiles(dir, rep, env.cfg.Output.Formats)
		if err != nil {
			return err
		}
		env.log.WithField("files", paths).Info("report written")
	}
	return nil
}
