package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/dgallion1/docoutline/internal/config"
	"github.com/spf13/cobra"
)

// options are the flags shared by every subcommand. Unset flags keep the
// environment configuration.
type options struct {
	workers   int
	forceTier int
	model     string
	cachePath string
	verbose   bool
}

func (o *options) config() (config.Config, error) {
	cfg := config.Load()
	if o.workers > 0 {
		cfg.WorkerCount = o.workers
	}
	if o.forceTier >= 0 {
		cfg.ForceTier = o.forceTier
	}
	if o.model != "" {
		cfg.ModelName = o.model
	}
	if o.cachePath != "" {
		cfg.CachePath = o.cachePath
	}
	return cfg, cfg.Validate()
}

func (o *options) logger() *slog.Logger {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func main() {
	opts := &options{}
	root := &cobra.Command{
		Use:           "outline",
		Short:         "Extract heading outlines (title, H1-H3) from documents",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().IntVar(&opts.workers, "workers", 0, "worker slots (default: WORKER_COUNT)")
	root.PersistentFlags().IntVar(&opts.forceTier, "force-tier", -1, "force a tier: 0 auto, 1 full, 2 hybrid, 3 basic (default: FORCE_TIER)")
	root.PersistentFlags().StringVar(&opts.model, "model", "", "semantic model name, or off (default: MODEL_NAME)")
	root.PersistentFlags().StringVar(&opts.cachePath, "cache", "", "sqlite outline cache path (default: CACHE_PATH)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log per-document tier decisions")

	root.AddCommand(extractCmd(opts), probeCmd(opts))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
