package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/DeBrosOfficial/kvpubsub/pkg/client"
)

func newPublishCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "publish <channel> <message>",
		Short: "Publish a message and print the number of receivers",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			c, err := client.Connect(ctx, a.cfg.Client, a.zap())
			if err != nil {
				return err
			}
			defer c.Close()

			n, err := c.Publish(ctx, args[0], []byte(args[1]))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "(integer) %d\n", n)
			return nil
		},
	}
}
