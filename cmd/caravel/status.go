package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "report the health of the deployed chatbot",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			d, err := loadDescriptor()
			if err != nil {
				return err
			}

			report, err := newDeployer().Status(context.Background(), d)
			if err != nil {
				printDeployError(err)
				return err
			}

			if len(report.Resources) == 0 {
				fmt.Printf("nothing deployed for %q\n", d.App)
				return nil
			}

			for _, r := range report.Resources {
				fmt.Printf("  %-16s %-30s %s\n", r.Type, r.Name, r.Status)
			}
			for _, t := range report.Tasks {
				fmt.Printf("  task %s: %s\n", t.ARN, t.LastStatus)
			}
			if report.Endpoint != "" {
				fmt.Printf("endpoint: %s\n", report.Endpoint)
			}
			if report.Metrics != nil {
				fmt.Println(report.Metrics.String())
			}
			if report.Healthy {
				fmt.Println("deployment is healthy")
			} else {
				fmt.Println("deployment is NOT healthy")
			}
			return nil
		},
	}
}
