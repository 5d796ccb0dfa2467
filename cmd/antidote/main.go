// Command antidote is the passive ARP-poisoning and MAC-spoofing monitor.
// Command-line handling follows the teacher's cobra wiring in cmd/run.go,
// pared down to the two flags spec.md §6 names (-f, -h) plus the opt-in
// --debug-dump flag; no subcommands.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jamescort/antidote-ng/internal/alert"
	"github.com/jamescort/antidote-ng/internal/audit"
	"github.com/jamescort/antidote-ng/internal/capture"
	"github.com/jamescort/antidote-ng/internal/config"
	"github.com/jamescort/antidote-ng/internal/decode"
	"github.com/jamescort/antidote-ng/internal/dump"
	"github.com/jamescort/antidote-ng/internal/errs"
	"github.com/jamescort/antidote-ng/internal/logging"
	"github.com/jamescort/antidote-ng/internal/table"
)

var configPath string
var debugDumpPath string

var rootCmd = &cobra.Command{
	Use:           "antidote",
	Short:         "Passive ARP cache-poisoning and MAC-spoofing monitor",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "f", config.DefaultPath,
		"Path to the configuration file")
	rootCmd.Flags().StringVar(&debugDumpPath, "debug-dump", "",
		"Write a CSV snapshot of the IP state table to this path after every observation (disabled by default)")
	rootCmd.Flags().BoolP("help", "h", false, "Show usage")

	// -h prints usage and exits with the invalid-options code, matching
	// original_source/src/checkopts.c's processarguments (both -h and an
	// unrecognised flag route through showusage + ERR_INOPTS) rather than
	// cobra's default exit-zero help behavior.
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(os.Stderr, cmd.UsageString())
		os.Exit(errs.InvalidOptions.ExitCode())
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if kerr, ok := err.(*errs.Error); ok {
			os.Exit(kerr.Kind.ExitCode())
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(errs.InvalidOptions.ExitCode())
	}
}

func run() error {
	cfg, cfgKind, cfgErr := config.Load(configPath)

	log, err := logging.New("info", nil, nil)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer log.Sync()

	dispatcher, err := alert.New(log, cfg, os.Stderr, os.Stdout)
	if err != nil {
		return err
	}
	defer dispatcher.Close()

	if cfgKind == errs.NoOptsFile {
		dispatcher.Fire(alert.Medium, fmt.Sprintf("no options file detected at %q; using defaults", configPath))
	} else if cfgErr != nil {
		dispatcher.Fire(alert.Medium, fmt.Sprintf("configuration error: %v", cfgErr))
		return errs.New(errs.InvalidOptions, cfgErr)
	}

	tbl := table.New()
	engine := audit.New(tbl, cfg, dispatcher)

	driver, err := capture.Open(cfg.EthernetDevice, cfg.Promiscuous, cfg.CaptureFilter)
	if err != nil {
		kerr, _ := err.(*errs.Error)
		msg := err.Error()
		if kerr != nil {
			msg = kerr.Kind.String() + ": " + kerr.Error()
		}
		dispatcher.Fire(alert.Medium, msg)
		return err
	}
	defer driver.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("capture started", zap.String("device", cfg.EthernetDevice), zap.String("filter", cfg.CaptureFilter))

	err = driver.Run(ctx, func(frame []byte) {
		obs := decode.Decode(frame)
		engine.Process(obs)

		if debugDumpPath != "" {
			writeDebugDump(log, tbl)
		}
	})
	if err != nil && ctx.Err() != nil {
		// Cancelled by signal: an orderly shutdown, not a failure.
		return nil
	}
	return err
}

func writeDebugDump(log *zap.Logger, tbl *table.Table) {
	f, err := os.Create(debugDumpPath)
	if err != nil {
		log.Error("debug dump: cannot create file", zap.Error(err))
		return
	}
	defer f.Close()

	if err := dump.Write(f, tbl); err != nil {
		log.Error("debug dump: write failed", zap.Error(err))
	}
}
