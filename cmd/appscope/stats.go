package main

import (
	"context"
	"fmt"

	"github.com/ooAKLoo/AppScope/internal/analytics"
	"github.com/spf13/cobra"
)

var appsCmd = &cobra.Command{
	Use:     "apps",
	Short:   "List applications with today's DAU and total installs",
	GroupID: "stats",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		apps, err := appClient.ListApps(context.Background())
		if err != nil {
			return fmt.Errorf("listing apps: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), apps)
		}
		return printAppsTable(cmd.OutOrStdout(), apps)
	},
}

var dauCmd = &cobra.Command{
	Use:     "dau <app-id>",
	Short:   "Show daily active users",
	GroupID: "stats",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		days, _ := cmd.Flags().GetInt("days")
		points, err := appClient.DAU(context.Background(), args[0], days)
		if err != nil {
			return fmt.Errorf("fetching DAU: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), points)
		}
		return printDAUTable(cmd.OutOrStdout(), points)
	},
}

var installsCmd = &cobra.Command{
	Use:     "installs <app-id>",
	Short:   "Show total and daily installs",
	GroupID: "stats",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		days, _ := cmd.Flags().GetInt("days")
		stats, err := appClient.Installs(context.Background(), args[0], days)
		if err != nil {
			return fmt.Errorf("fetching installs: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), stats)
		}
		return printInstallsTable(cmd.OutOrStdout(), stats)
	},
}

var retentionCmd = &cobra.Command{
	Use:     "retention <app-id>",
	Short:   "Show day 1, 7 and 30 retention per first-open cohort",
	GroupID: "stats",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cohorts, err := appClient.Retention(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("fetching retention: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), cohorts)
		}
		return printRetentionTable(cmd.OutOrStdout(), cohorts)
	},
}

func init() {
	dauCmd.Flags().Int("days", analytics.DefaultDays, "window length in days")
	installsCmd.Flags().Int("days", analytics.DefaultDays, "window length in days")
}
