package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ooAKLoo/AppScope/internal/config"
	"github.com/ooAKLoo/AppScope/internal/export"
	"github.com/ooAKLoo/AppScope/internal/model"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write one day of events and feedback as JSONL",
	Long: `Write one UTC day of events and feedback as JSONL, reading the database
named by APPSCOPE_DATABASE_URL directly. The first line is a header record
with the day's counts.`,
	GroupID: "system",
	Args:    cobra.NoArgs,
	// Reads the database directly rather than through a server.
	PersistentPreRunE: noClient,
	RunE: func(cmd *cobra.Command, args []string) error {
		dateFlag, _ := cmd.Flags().GetString("date")
		outPath, _ := cmd.Flags().GetString("out")

		date := model.AddDays(time.Now(), -1)
		if dateFlag != "" {
			d, err := model.ParseDate(dateFlag)
			if err != nil {
				return fmt.Errorf("invalid --date %q (want YYYY-MM-DD): %w", dateFlag, err)
			}
			date = d
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		s, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		var w io.Writer = cmd.OutOrStdout()
		if outPath != "" {
			f, err := os.Create(outPath)
			if err != nil {
				return fmt.Errorf("creating %s: %w", outPath, err)
			}
			defer f.Close()
			w = f
		}
		return export.ExportDay(context.Background(), s, date, w)
	},
}

func init() {
	exportCmd.Flags().String("date", "", "UTC day to export as YYYY-MM-DD (default: yesterday)")
	exportCmd.Flags().StringP("out", "o", "", "write to this file instead of stdout")
}
