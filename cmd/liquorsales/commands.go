package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"liquorsales/internal/analysis"
	"liquorsales/internal/category"
	"liquorsales/internal/population"
	"liquorsales/internal/probe"
	"liquorsales/internal/report"
)

func (a *app) newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the columns of a sample of the transactions file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.cfg.Require("transactions"); err != nil {
				return err
			}
			res, err := probe.Sample(cmd.Context(), probe.Options{
				Path: a.cfg.Input.Transactions,
				Rows: a.cfg.Sample.Rows,
			})
			if err != nil {
				return err
			}
			if res.Skipped > 0 {
				a.logger.Printf("stage=schema skipped=%d", res.Skipped)
			}
			probe.RenderTable(cmd.OutOrStdout(), res)
			return nil
		},
	}
}

func (a *app) newCategoriesCmd() *cobra.Command {
	var family string
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List the distinct category codes in the transactions file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.cfg.Require("transactions"); err != nil {
				return err
			}
			var only category.Family
			if family != "" {
				f, err := category.ParseFamily(family)
				if err != nil {
					return err
				}
				only = f
			}

			ctx := cmd.Context()
			defer a.setupMetrics(ctx, a.cfg.Metrics)()

			engine, err := analysis.Engine(a.cfg, a.logger, a.verbose)
			if err != nil {
				return err
			}
			res, err := analysis.Aggregate(ctx, a.cfg.Input.Transactions, engine, a.cfg.Runtime.ChannelBuffer)
			if err != nil {
				return err
			}

			entries := res.Categories
			if only != 0 {
				entries = make([]category.Entry, 0, len(res.Categories))
				for _, e := range res.Categories {
					if e.Family == only {
						entries = append(entries, e)
					}
				}
			}
			report.WriteCategories(cmd.OutOrStdout(), entries)
			return nil
		},
	}
	cmd.Flags().StringVar(&family, "family", "", "only list codes of this family (code or name)")
	return cmd
}

func (a *app) newAnalyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze",
		Short: "Aggregate the transactions and write charts, report and results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			defer a.setupMetrics(ctx, a.cfg.Metrics)()

			runner := analysis.NewDefaultRunner(a.logger)
			runner.Debug = a.verbose
			out, err := runner.Run(ctx, a.cfg)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if err := report.WriteText(w, report.Summary{
				RunID:      out.RunID,
				Source:     a.cfg.Input.Transactions,
				Result:     out.Result,
				Population: out.Population,
			}); err != nil {
				return err
			}
			for _, p := range out.Charts {
				fmt.Fprintf(w, "chart: %s\n", p)
			}
			if out.Report != "" {
				fmt.Fprintf(w, "report: %s\n", out.Report)
			}
			tables := make([]string, 0, len(out.Stored))
			for t := range out.Stored {
				tables = append(tables, t)
			}
			sort.Strings(tables)
			for _, t := range tables {
				fmt.Fprintf(w, "stored: %s rows=%d\n", t, out.Stored[t])
			}
			fmt.Fprintf(w, "run %s completed in %s\n", out.RunID, out.Duration.Truncate(time.Millisecond))
			return nil
		},
	}
}

func (a *app) newPopulationCmd() *cobra.Command {
	var top int
	cmd := &cobra.Command{
		Use:   "population",
		Short: "Load the population table and print its most populous keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.cfg.Require("population"); err != nil {
				return err
			}
			start := time.Now()
			t, hit, err := population.LoadCached(cmd.Context(), a.cfg.Input.Population, a.cfg.Input.PopulationCache, population.Options{})
			if err != nil {
				return err
			}
			a.logger.Printf("stage=population keys=%d cache_hit=%t duration=%s",
				t.Len(), hit, time.Since(start).Truncate(time.Millisecond))
			report.WritePopulation(cmd.OutOrStdout(), t, top)
			return nil
		},
	}
	cmd.Flags().IntVar(&top, "top", 10, "number of keys to print")
	return cmd
}
