// Package cli implements the ospf-animator command tree.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/signalsfoundry/ospf-animator/internal/config"
	"github.com/signalsfoundry/ospf-animator/internal/logging"
)

// rootOptions are the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string
}

// NewRootCmd creates the root ospf-animator command.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "ospf-animator",
		Short: "Step-by-step OSPF protocol animations",
		Long: `ospf-animator replays scripted OSPF walkthroughs: the hello/DBD/LSR/LSU/LSAck
packet exchange, link discovery across areas, and SPF route calculation.

Animations advance on a virtual clock with play, pause, reset, step and
speed controls, served over HTTP, websocket and gRPC or replayed headless.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to a YAML config file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "log format (text, json)")

	root.AddCommand(
		newRunCmd(opts),
		newServeCmd(opts),
		newScheduleCmd(),
		newConfigCmd(),
	)

	return root
}

// load reads the config file when one is given, applies the logging flags
// and validates the result.
func (o *rootOptions) load() (config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		var err error
		cfg, err = config.LoadFile(o.configPath)
		if err != nil {
			return cfg, err
		}
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Logging.Format = o.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// newLogger builds the process logger. Logs go to stderr so stdout stays
// free for frames and exports.
func newLogger(cfg config.Config) logging.Logger {
	lc := cfg.Logging
	lc.Output = os.Stderr
	return logging.New(lc)
}
