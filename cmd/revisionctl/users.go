package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newUsersCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List accounts and their ids",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			users, err := a.db.ListUsers(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(users) == 0 {
				fmt.Fprintln(out, "No accounts yet.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tLogin\tEmail\tGitHub\tCreated")
			fmt.Fprintln(w, "--\t-----\t-----\t------\t-------")
			for _, u := range users {
				github := "-"
				if u.GitHubID != nil {
					github = fmt.Sprint(*u.GitHubID)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", u.ID, u.Login, u.Email, github, u.CreatedAt.Format("2006-01-02"))
			}
			return w.Flush()
		},
	}
}
