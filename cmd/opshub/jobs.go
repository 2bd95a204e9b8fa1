/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package main

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/HamedShams/platform-ops-hub/internal/domain"
	"github.com/HamedShams/platform-ops-hub/internal/services"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run the nightly sync once",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer a.store.Close()

		ctx, cancel := a.jobContext(cmd.Context())
		defer cancel()
		run, err := a.sync.Run(ctx)
		if errors.Is(err, domain.ErrSyncInProgress) {
			color.New(color.FgYellow).Println("Another sync holds the lock; nothing to do.")
			return nil
		}
		if run != nil {
			printSyncRun(run)
		}
		var serr *services.SyncError
		if errors.As(err, &serr) {
			return fmt.Errorf("%d source(s) failed", len(serr.Sources))
		}
		return err
	},
}

func printSyncRun(run *domain.SyncRun) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()

	fmt.Printf("\n%s %s\n\n", cyan("Sync run"), run.RunID)
	for _, s := range run.Sources {
		mark := green("✓")
		if s.Error != "" {
			mark = red("✗")
		}
		fmt.Printf("  %s %-14s fetched %4d  written %4d  skipped %4d\n", mark, s.Source, s.Fetched, s.Written, s.Skipped)
		if s.Error != "" {
			fmt.Printf("      %s\n", red(s.Error))
		}
	}
	fmt.Println()
}

var (
	newsletterPeriod string
	newsletterPrompt string
)

var newsletterCmd = &cobra.Command{
	Use:   "newsletter",
	Short: "Generate a newsletter, or publish the weekly one with --publish",
	RunE: func(cmd *cobra.Command, args []string) error {
		publish, _ := cmd.Flags().GetBool("publish")
		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer a.store.Close()

		ctx, cancel := a.jobContext(cmd.Context())
		defer cancel()

		var dto services.NewsletterDTO
		if publish {
			dto, err = a.newsletters.PublishWeekly(ctx)
		} else {
			period, perr := domain.ParsePeriod(newsletterPeriod)
			if perr != nil {
				return fmt.Errorf("--period %q: %w", newsletterPeriod, perr)
			}
			dto, err = a.newsletters.Generate(ctx, period, newsletterPrompt)
		}
		if dto.ID != 0 {
			color.New(color.FgCyan, color.Bold).Printf("Newsletter #%d (%s)\n\n", dto.ID, dto.Period)
			fmt.Println(dto.Markdown)
		}
		return err
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print the dashboard rollup",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer a.store.Close()

		st, err := a.dashboard.Stats(cmd.Context())
		if err != nil {
			return err
		}
		printStats(st)
		return nil
	},
}

func printStats(st services.DashboardStats) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()
	variance := color.New(color.FgGreen).SprintFunc()
	if st.CostVariance.IsNegative() {
		variance = color.New(color.FgRed).SprintFunc()
	}

	fmt.Printf("\n%s\n\n", cyan("=== Platform Operations ==="))
	fmt.Printf("%s\n", yellow("Delivery:"))
	fmt.Printf("  Epics            backlog %d  in progress %d  blocked %d  done %d\n",
		st.BacklogEpics, st.InProgressEpics, st.BlockedEpics, st.DoneEpics)
	fmt.Printf("  Deployments (7d) %d\n", st.DeploymentsThisWeek)
	fmt.Printf("  Regression pass  %.1f%%\n", st.NightlyRegressionPassRate)
	fmt.Printf("  GenAI initiatives %d\n", st.GenAIInitiativesCount)
	fmt.Printf("  DBA backlog      %d\n\n", st.DbaMaintenanceBacklogCount)

	fmt.Printf("%s\n", yellow(fmt.Sprintf("Cost %d:", st.CostYear)))
	fmt.Printf("  Target   %s\n", st.AnnualCostTarget.StringFixed(2))
	fmt.Printf("  YTD      %s\n", st.CostYTD.StringFixed(2))
	fmt.Printf("  Variance %s\n\n", variance(st.CostVariance.StringFixed(2)))

	fmt.Printf("%s\n", yellow("Code quality:"))
	fmt.Printf("  Bugs %d  Vulnerabilities %d  Coverage %.1f%%\n\n",
		st.NewBugsCount, st.NewVulnerabilitiesCount, st.AverageCodeCoverage)

	fmt.Printf("%s\n", yellow("DORA:"))
	fmt.Printf("  Pipeline health %.1f%%  MTTR %.1fh  Lead time %.1fd  CFR %.1f%%\n",
		st.PipelineHealthPercentage, st.MeanTimeToRecoverHours, st.LeadTimeDays, st.ChangeFailureRatePercentage)
	fmt.Printf("  %s\n\n", gray("fixed values: "+fmt.Sprint(st.Placeholders)))
}

func init() {
	newsletterCmd.Flags().StringVar(&newsletterPeriod, "period", "weekly", "weekly or monthly")
	newsletterCmd.Flags().StringVar(&newsletterPrompt, "prompt", "", "extra context for the generator")
	newsletterCmd.Flags().Bool("publish", false, "run the scheduled weekly publish: save and notify")
	rootCmd.AddCommand(syncCmd, newsletterCmd, statsCmd)
}
