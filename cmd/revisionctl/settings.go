package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newSettingsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the revision threshold",
	}

	get := &cobra.Command{
		Use:   "get",
		Short: "Print the revision threshold",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := a.settings.Get(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "revisionDays: %d (allowed %v)\n", view.RevisionDays, view.Allowed)
			return nil
		},
	}

	set := &cobra.Command{
		Use:   "set <days>",
		Short: "Change the revision threshold",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			days, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("days must be a number, got %q", args[0])
			}
			view, err := a.settings.Update(cmd.Context(), days)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "🔄 revisionDays: %d\n", view.RevisionDays)
			return nil
		},
	}

	cmd.AddCommand(get, set)
	return cmd
}
