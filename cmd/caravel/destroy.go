package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newDestroyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "destroy",
		Short: "delete every resource recorded in the state file",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			d, err := loadDescriptor()
			if err != nil {
				return err
			}

			if err := newDeployer().Destroy(context.Background(), d); err != nil {
				printDeployError(err)
				return err
			}
			fmt.Printf("destroyed deployment for %q\n", d.App)
			return nil
		},
	}
}
