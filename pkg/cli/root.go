package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/DeBrosOfficial/kvpubsub/pkg/config"
	"github.com/DeBrosOfficial/kvpubsub/pkg/logging"
)

// BuildInfo carries version metadata populated via -ldflags at build time.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// app holds state shared by every subcommand once the root pre-run has
// loaded the config.
type app struct {
	configPath string
	logLevel   string
	address    string

	cfg    *config.Config
	logger *logging.ColoredLogger
}

// NewRootCmd builds the kvpubsub command tree.
func NewRootCmd(info BuildInfo) *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "kvpubsub",
		Short:         "Pub/sub client, broker and gateway for RESP key-value servers",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "path to a YAML config file")
	flags.StringVar(&a.logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")
	flags.StringVarP(&a.address, "addr", "a", "", "override client.address (host:port)")

	root.AddCommand(
		newBrokerCmd(a),
		newSubscribeCmd(a, false),
		newSubscribeCmd(a, true),
		newPublishCmd(a),
		newGatewayCmd(a),
		newVersionCmd(info),
	)
	return root
}

func (a *app) load() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.address != "" {
		cfg.Client.Address = a.address
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return fmt.Errorf("invalid configuration:\n%w", errors.Join(errs...))
	}

	logger, err := logging.NewLogger(logging.ComponentCLI, cfg.Logging)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

func (a *app) zap() *zap.Logger {
	return a.logger.Logger
}

func newVersionCmd(info BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		// Needs no config.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "kvpubsub %s", info.Version)
			if info.Commit != "" {
				fmt.Fprintf(out, " (commit %s)", info.Commit)
			}
			if info.Date != "" {
				fmt.Fprintf(out, " built %s", info.Date)
			}
			fmt.Fprintln(out)
		},
	}
}
