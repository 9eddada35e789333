package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newDueCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "due",
		Short: "Show questions due for revision",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := a.requireUser()
			if err != nil {
				return err
			}
			due, err := a.questions.Due(cmd.Context(), userID)
			if err != nil {
				return err
			}

			view, err := a.settings.Get(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(due) == 0 {
				fmt.Fprintln(out, "✅ Nothing due. Good job.")
				return nil
			}
			fmt.Fprintf(out, "🔥 %d questions due (threshold %d days):\n\n", len(due), view.RevisionDays)

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tQuestion\tDifficulty\tTopic\tLast Revised")
			fmt.Fprintln(w, "--\t--------\t----------\t-----\t------------")
			for _, q := range due {
				last := "never"
				if q.LastRevised != nil {
					last = q.LastRevised.Format("2006-01-02")
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", q.ID, q.Question, q.Difficulty, q.Topic, last)
			}
			return w.Flush()
		},
	}
}
