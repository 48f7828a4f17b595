package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/caravel-sh/caravel/internal/fargate"
)

func newPlanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "show what apply would change, without changing anything",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			d, err := loadDescriptor()
			if err != nil {
				return err
			}

			store := fargate.NewStateStore(v.GetString("state"))
			prior, err := store.Load()
			if err != nil {
				return err
			}

			changes, summary, err := fargate.Plan(d, prior)
			if err != nil {
				printDeployError(err)
				return err
			}

			for _, c := range changes {
				fmt.Printf("  %-10s %-16s %s\n", c.Action, c.Type, c.Detail)
			}
			fmt.Println(summary)
			return nil
		},
	}
}
