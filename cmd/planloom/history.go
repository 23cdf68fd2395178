package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List saved plans",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp()
			if err != nil {
				return err
			}
			defer app.close()

			plans, err := app.store.ListPlans(cmd.Context(), limit, 0)
			if err != nil {
				return err
			}
			if len(plans) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No plans saved yet.")
				return nil
			}
			for _, plan := range plans {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s\n",
					plan.ID, plan.CreatedAt.Format("2006-01-02 15:04"), plan.Goal)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of plans to list")
	return cmd
}
