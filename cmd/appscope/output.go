package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/ooAKLoo/AppScope/internal/model"
	"github.com/ooAKLoo/AppScope/internal/ui"
)

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func printAppsTable(w io.Writer, apps []model.AppSummary) error {
	if len(apps) == 0 {
		_, err := fmt.Fprintln(w, ui.RenderMuted("no applications yet"))
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "APP\tDAU TODAY\tINSTALLS")
	for _, a := range apps {
		fmt.Fprintf(tw, "%s\t%d\t%d\n", ui.RenderAccent(a.AppID), a.DAUToday, a.TotalInstalls)
	}
	return tw.Flush()
}

// bar renders n relative to peak as a bar at most width cells long.
func bar(n, peak int64, width int) string {
	if peak <= 0 || n <= 0 {
		return ""
	}
	filled := int(n * int64(width) / peak)
	if filled == 0 {
		filled = 1
	}
	return strings.Repeat("#", filled)
}

func printDAUTable(w io.Writer, points []model.DauPoint) error {
	var peak int64
	for _, p := range points {
		peak = max(peak, p.DAU)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tDAU\t")
	for _, p := range points {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", p.Date, p.DAU, ui.RenderAccent(bar(p.DAU, peak, 30)))
	}
	return tw.Flush()
}

func printInstallsTable(w io.Writer, stats *model.InstallStats) error {
	fmt.Fprintf(w, "Total installs: %d\n\n", stats.Total)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tINSTALLS")
	for _, p := range stats.Data {
		fmt.Fprintf(tw, "%s\t%d\n", p.Date, p.Installs)
	}
	return tw.Flush()
}

func printRetentionTable(w io.Writer, cohorts []model.RetentionCohort) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "COHORT\tUSERS\tDAY 1\tDAY 7\tDAY 30")
	for _, c := range cohorts {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n",
			c.CohortDate,
			c.Day0,
			ui.RenderPercent(c.Day1),
			ui.RenderPercent(c.Day7),
			ui.RenderPercent(c.Day30),
		)
	}
	return tw.Flush()
}

func printFeedbackList(w io.Writer, items []*model.Feedback) error {
	if len(items) == 0 {
		_, err := fmt.Fprintln(w, ui.RenderMuted("no feedback"))
		return err
	}
	for _, f := range items {
		who := "anonymous"
		if f.UserID != nil {
			who = *f.UserID
		}
		if f.Contact != nil {
			who += " <" + *f.Contact + ">"
		}
		fmt.Fprintf(w, "%s  %s\n", ui.RenderMuted(f.CreatedAt.Format("2006-01-02 15:04:05")), ui.RenderAccent(who))
		for _, line := range strings.Split(f.Content, "\n") {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}
	return nil
}
