package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/caravel-sh/caravel/internal/fargate"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("caravel %s (built with %s)\n", fargate.Version, runtime.Version())
		},
	}
}
