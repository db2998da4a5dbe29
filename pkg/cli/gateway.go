package cli

import (
	"github.com/spf13/cobra"

	"github.com/DeBrosOfficial/kvpubsub/pkg/client"
	"github.com/DeBrosOfficial/kvpubsub/pkg/gateway"
)

func newGatewayCmd(a *app) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "gateway",
		Short: "Serve publish, stats and WebSocket subscribe endpoints over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg.Gateway
			if listen != "" {
				cfg.ListenAddr = listen
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			c, err := client.Connect(ctx, a.cfg.Client, a.zap())
			if err != nil {
				return err
			}
			defer c.Close()

			// Losing the server connection ends the gateway too.
			go func() {
				<-c.Done()
				stop()
			}()

			err = gateway.New(cfg, c, a.zap()).Start(ctx)
			select {
			case <-c.Done():
				if werr := c.Wait(); werr != nil {
					return werr
				}
			default:
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&listen, "listen", "l", "", "override gateway.listen_addr")
	return cmd
}
