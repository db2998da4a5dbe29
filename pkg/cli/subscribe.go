package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/DeBrosOfficial/kvpubsub/pkg/client"
	"github.com/DeBrosOfficial/kvpubsub/pkg/pubsub"
)

func newSubscribeCmd(a *app, pattern bool) *cobra.Command {
	use, short := "subscribe <channel>...", "Print messages published to channels"
	if pattern {
		use, short = "psubscribe <pattern>...", "Print messages published to channels matching glob patterns"
	}

	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			c, err := client.Connect(ctx, a.cfg.Client, a.zap())
			if err != nil {
				return err
			}
			defer c.Close()

			h := printer(cmd.OutOrStdout())
			if pattern {
				err = c.PSubscribeMany(args, h)
			} else {
				err = c.SubscribeMany(args, h)
			}
			if err != nil {
				return err
			}

			select {
			case <-ctx.Done():
				return nil
			case <-c.Done():
				return c.Wait()
			}
		},
	}
}

// printer writes one line per message.
func printer(w io.Writer) pubsub.MessageHandler {
	return func(channel string, payload []byte) error {
		_, err := fmt.Fprintf(w, "%s: %s\n", channel, payload)
		return err
	}
}
