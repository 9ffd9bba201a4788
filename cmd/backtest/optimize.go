package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"cta-backtester/internal/optimize"
)

var optimizeTop int

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Sweep the configured parameter grid and rank combinations",
	RunE:  runOptimize,
}

func init() {
	optimizeCmd.Flags().IntVar(&optimizeTop, "top", 10, "Number of combinations to print (0 prints all)")
}

func runOptimize(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	env, err := setup(ctx)
	if err != nil {
		return err
	}
	defer env.close()

	settings, err := env.cfg.Settings()
	if err != nil {
		return err
	}
	grid, err := env.cfg.Grid()
	if err != nil {
		return err
	}
	if grid.Size() == 0 {
		return errors.New("optimize.grid is empty")
	}
	ocfg, err := env.cfg.OptimizerConfig()
	if err != nil {
		return err
	}
	if _, err := env.stores.LoadHistory(ctx, env.cfg, env.log, env.metrics); err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	ds, err := env.stores.NewRunner().Load(ctx, settings)
	if err != nil {
		return err
	}
	outcomes, err := optimize.NewOptimizer(ocfg, settings, env.log, env.metrics).Run(ctx, ds, grid)
	if err != nil {
		return err
	}

	renderOutcomes(cmd.OutOrStdout(), ocfg.Target, outcomes, optimizeTop)
	return nil
}

func renderOutcomes(w io.Writer, target optimize.Target, outcomes []optimize.Outcome, top int) {
	if top > 0 && top < len(outcomes) {
		outcomes = outcomes[:top]
	}
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"#", "Params", string(target), "Trades", "Error"})
	for i, o := range outcomes {
		value, trades, msg := "", "", ""
		if o.Err != nil {
			msg = o.Err.Error()
		} else {
			value = strconv.FormatFloat(o.Value, 'f', 4, 64)
			trades = strconv.Itoa(len(o.Result.Trades))
		}
		table.Append([]string{strconv.Itoa(i + 1), optimize.FormatParams(o.Params), value, trades, msg})
	}
	table.Render()
}
