package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/caravel-sh/caravel/internal/fargate"
)

func newApplyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "apply",
		Short: "converge AWS to the descriptor and wait for the chatbot to run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := loadDescriptor()
			if err != nil {
				return err
			}

			if warnings := fargate.DiagnoseDescriptor(d); len(warnings) > 0 {
				fmt.Print(fargate.FormatWarnings(warnings))
			}

			result, err := newDeployer().Apply(context.Background(), d)
			if err != nil {
				// A timeout still produced resources; show them before the error.
				if result != nil && result.TimedOut {
					fmt.Printf("apply timed out waiting for %q; resources were created and may still converge\n", d.App)
					printResources(result.Resources)
				}
				printDeployError(err)
				return err
			}

			fmt.Printf("apply complete: %d/%d task(s) running\n", result.RunningCount, result.DesiredCount)
			printResources(result.Resources)
			if result.Endpoint != "" {
				fmt.Printf("endpoint: %s\n", result.Endpoint)
			}
			return nil
		},
	}
}

func printResources(resources []fargate.ResourceState) {
	for _, r := range resources {
		if r.ARN != "" {
			fmt.Printf("  %-16s %s (%s)\n", r.Type, r.Name, r.ARN)
			continue
		}
		fmt.Printf("  %-16s %s\n", r.Type, r.Name)
	}
}
