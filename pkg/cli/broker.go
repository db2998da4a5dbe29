package cli

import (
	"net"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/DeBrosOfficial/kvpubsub/pkg/broker"
	"github.com/DeBrosOfficial/kvpubsub/pkg/logging"
)

func newBrokerCmd(a *app) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "broker",
		Short: "Run the embedded pub/sub server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg.Broker
			if listen != "" {
				cfg.ListenAddr = listen
			}

			ln, err := net.Listen("tcp", cfg.ListenAddr)
			if err != nil {
				return err
			}
			b := broker.New(cfg, a.zap())

			ctx, stop := signalContext(cmd.Context())
			defer stop()
			go func() {
				<-ctx.Done()
				if err := b.Close(); err != nil {
					a.logger.ComponentWarn(logging.ComponentCLI, "Broker close failed", zap.Error(err))
				}
			}()

			return b.Serve(ln)
		},
	}
	cmd.Flags().StringVarP(&listen, "listen", "l", "", "override broker.listen_addr")
	return cmd
}
