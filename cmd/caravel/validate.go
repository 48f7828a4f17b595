package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/caravel-sh/caravel/internal/fargate"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "validate the deployment descriptor without touching AWS",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			d, err := loadDescriptor()
			if err != nil {
				return err
			}

			if errs := d.Validate(); len(errs) > 0 {
				fmt.Printf("descriptor is invalid (%d error(s)):\n", len(errs))
				for i, e := range errs {
					fmt.Printf("  %d. %s\n", i+1, e)
				}
				return errors.New("descriptor validation failed")
			}

			if warnings := fargate.DiagnoseDescriptor(d); len(warnings) > 0 {
				fmt.Print(fargate.FormatWarnings(warnings))
			}
			fmt.Printf("descriptor for %q is valid\n", d.App)
			return nil
		},
	}
}
