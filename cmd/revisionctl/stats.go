package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sakif/revision-tracker/internal/stats"
)

// heatmapCells maps an activity level (0-4) to a terminal cell.
var heatmapCells = []string{"·", "░", "▒", "▓", "█"}

const barWidth = 30

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show progress statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := a.requireUser()
			if err != nil {
				return err
			}
			loc, err := a.location()
			if err != nil {
				return err
			}
			st, err := a.questions.Stats(cmd.Context(), userID, loc)
			if err != nil {
				return err
			}
			printStats(cmd.OutOrStdout(), st)
			return nil
		},
	}
}

func printStats(out io.Writer, st stats.Stats) {
	fmt.Fprintln(out, "📊 Statistics")
	fmt.Fprintln(out, "-------------")
	fmt.Fprintf(out, "Total:          %d (easy %d, medium %d, hard %d)\n",
		st.Total, st.Counts.Easy, st.Counts.Medium, st.Counts.Hard)
	fmt.Fprintf(out, "Due (%2dd):      %d\n", st.ThresholdDays, st.DueCount)
	fmt.Fprintf(out, "Revised:        %d\n", st.RevisedCount)
	fmt.Fprintf(out, "Never revised:  %d\n", st.NeverRevised)
	fmt.Fprintf(out, "Streak:         %d days\n", st.StreakDays)

	if len(st.Topics) > 0 {
		fmt.Fprintln(out, "\nTopics")
		width := 0
		most := 0
		for _, tc := range st.Topics {
			width = max(width, len(tc.Topic))
			most = max(most, tc.Count)
		}
		for _, tc := range st.Topics {
			bar := 0
			if most > 0 {
				bar = tc.Count * barWidth / most
			}
			fmt.Fprintf(out, "  %-*s %s %d\n", width, tc.Topic, strings.Repeat("■", bar), tc.Count)
		}
	}

	if len(st.Activity) > 0 {
		var row strings.Builder
		for _, b := range st.Activity {
			row.WriteString(heatmapCells[min(max(b.Level, 0), len(heatmapCells)-1)])
		}
		first, last := st.Activity[0].Date, st.Activity[len(st.Activity)-1].Date
		fmt.Fprintf(out, "\nLast %d days (%s → %s, busiest day %d)\n  %s\n",
			len(st.Activity), first, last, st.MaxActivity, row.String())
	}
}
