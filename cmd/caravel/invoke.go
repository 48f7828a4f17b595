package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/caravel-sh/caravel/internal/fargate"
)

func newInvokeCmd() *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   "invoke",
		Short: "send a test message to the deployed chatbot",
		RunE: func(cmd *cobra.Command, args []string) error {
			if message == "" {
				message = strings.Join(args, " ")
			}
			if message == "" {
				return errors.New("no message given; use --message or positional arguments")
			}

			d, err := loadDescriptor()
			if err != nil {
				return err
			}

			report, err := newDeployer().Status(context.Background(), d)
			if err != nil {
				return err
			}
			if report.Endpoint == "" {
				return errors.New("no reachable endpoint; run apply first and check status")
			}

			client := fargate.NewChatClient(report.Endpoint)
			reply, err := client.Send(context.Background(), message)
			if err != nil {
				return err
			}
			fmt.Println(reply)
			return nil
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "message to send")
	return cmd
}
