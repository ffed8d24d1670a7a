package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Shaizy-S/AutoSentiment/internal/app"
	"github.com/Shaizy-S/AutoSentiment/internal/config"
	"github.com/Shaizy-S/AutoSentiment/internal/logging"
)

type rootOptions struct {
	configPath string
	logLevel   string
	noColor    bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "autosentiment",
		Short:         "Compare products by aspect sentiment of Hindi and Marathi reviews",
		Version:       app.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.noColor {
				color.NoColor = true
			}
		},
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file path (defaults to $AUTOSENTIMENT_CONFIG)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override the configured log level")
	root.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "disable colored output")

	root.AddCommand(newCompareCmd(opts), newServeCmd(opts), newIngestCmd(opts))
	return root
}

// open loads the configuration and builds the application.
func (o *rootOptions) open(ctx context.Context, adjust func(*config.Config)) (*app.Application, error) {
	var (
		cfg config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.LoadFile(o.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if adjust != nil {
		adjust(&cfg)
	}
	return app.New(ctx, cfg, logging.New(cfg.Logging.Level))
}
