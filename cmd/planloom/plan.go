package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/planloom/planloom"
)

const cliGenerateTimeout = 5 * time.Minute

func newPlanCmd() *cobra.Command {
	var noSave bool

	cmd := &cobra.Command{
		Use:   "plan <goal>",
		Short: "Generate a plan for a goal and print it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			goal := strings.TrimSpace(strings.Join(args, " "))
			if goal == "" {
				return planloom.ErrEmptyGoal
			}

			app, err := buildApp()
			if err != nil {
				return err
			}
			defer app.close()

			ctx, cancel := context.WithTimeout(cmd.Context(), cliGenerateTimeout)
			defer cancel()

			plan, err := app.planner.Generate(ctx, goal, func(response planloom.Response) {
				if response.Type == planloom.ResponseTypeToolStatus {
					fmt.Fprintln(cmd.ErrOrStderr(), response.Content)
				}
			})
			if err != nil {
				return err
			}

			if !noSave {
				if err := app.store.SavePlan(ctx, plan); err != nil {
					return err
				}
			}

			fmt.Fprintln(cmd.OutOrStdout(), plan.Output)
			if !noSave {
				fmt.Fprintf(cmd.ErrOrStderr(), "Saved plan %s\n", plan.ID)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&noSave, "no-save", false, "print the plan without saving it")
	return cmd
}
