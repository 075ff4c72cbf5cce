/**
 * SPDX-License-Identifier: Apache-2.0
 * Copyright 2020 vorteil.io Pty Ltd
 */
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/minixfs/mfsck/pkg/audit"
	"github.com/minixfs/mfsck/pkg/config"
	"github.com/minixfs/mfsck/pkg/device"
	"github.com/minixfs/mfsck/pkg/elog"
	"github.com/minixfs/mfsck/pkg/fsck"
	"github.com/minixfs/mfsck/pkg/metrics"
	"github.com/minixfs/mfsck/pkg/operator"
)

const (
	exitUsage = 16
)

var log elog.View

var lastExitCode = 0

var (
	flagList        bool
	flagAutomatic   bool
	flagInteractive bool
	flagVerbose     bool
	flagShow        bool
	flagWarnMode    bool
	flagForce       bool
	flagMetricsAddr string
	flagHistoryDB   string
	flagConfig      string
)

func commandInit() {

	flags := rootCmd.Flags()
	flags.BoolVarP(&flagList, "list", "l", false, "list mode: report only, never repair")
	flags.BoolVarP(&flagAutomatic, "automatic", "a", false, "apply the default answer to every repair prompt")
	flags.BoolVarP(&flagInteractive, "interactive", "r", false, "prompt interactively before each repair")
	flags.BoolVarP(&flagVerbose, "verbose", "v", false, "enable verbose output")
	flags.BoolVarP(&flagShow, "show", "s", false, "show a summary report")
	flags.BoolVarP(&flagWarnMode, "warn-mode", "m", false, "warn about inodes not in use whose mode was never cleared")
	flags.BoolVarP(&flagForce, "force", "f", false, "check even if the superblock claims the filesystem is clean")
	flags.StringVar(&flagMetricsAddr, "metrics-addr", "", "expose Prometheus metrics on this address (disabled if empty)")
	flags.StringVar(&flagHistoryDB, "history-db", "", "path to the run-history SQLite database (defaults under ~/.mfsckd)")
	flags.StringVar(&flagConfig, "config", "", "path to a TOML config file")
	flags.BoolP("version", "V", false, "print version information and exit")
	rootCmd.Version = release

	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		logger := &elog.CLI{}
		logger.DisableTTY = !isatty.IsTerminal(os.Stdout.Fd())
		logger.IsVerbose = flagVerbose
		logrus.SetFormatter(logger)
		logrus.SetLevel(logrus.TraceLevel)
		log = logger
		return nil
	}
}

var rootCmd = &cobra.Command{
	Use:   "mfsck <device>",
	Short: "Check and repair a Minix v1/v2 filesystem image",
	Long: `mfsck verifies that the on-disk bookkeeping of a Minix v1/v2 filesystem --
superblock, inode and zone bitmaps, inodes, and directory tree -- is internally
consistent, optionally prompting for repairs and writing them back in place.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "View CLI version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Version: %s\nRef: %s\nReleased: %s\n", release, commit, date)
	},
}

func runCheck(cmd *cobra.Command, args []string) error {

	devicePath := args[0]

	cfg, err := config.Resolve(cmd.Flags(), devicePath, flagConfig)
	if err != nil {
		lastExitCode = exitUsage
		return err
	}
	if flagHistoryDB != "" {
		cfg.HistoryDB = flagHistoryDB
	}
	if flagMetricsAddr != "" {
		cfg.MetricsAddr = flagMetricsAddr
	}

	collectors := metrics.New()
	var metricsSrv *metrics.Server
	if cfg.MetricsAddr != "" {
		srv, errCh := collectors.Serve(cfg.MetricsAddr)
		metricsSrv = srv
		go func() {
			if err := <-errCh; err != nil {
				log.Warnf("%v", err)
			}
		}()
	}

	opt := fsck.Options{
		Repair:      cfg.Automatic || cfg.Interactive,
		Automatic:   cfg.Automatic,
		Interactive: cfg.Interactive,
		Verbose:     cfg.Verbose,
		Show:        cfg.Show,
		WarnMode:    cfg.WarnMode,
		List:        cfg.List || !(cfg.Automatic || cfg.Interactive),
		Force:       cfg.Force,
		Metrics:     collectors,
		Progress:    log,
	}

	var op operator.Operator
	switch {
	case cfg.Automatic:
		op = operator.Automatic{}
	case cfg.Interactive:
		op = operator.NewInteractive(os.Stdin, os.Stdout)
	default:
		op = operator.ReadOnly{}
	}

	devUncorrectable := new(bool)
	dev, closeImage, err := device.OpenImage(devicePath, opt.List, devUncorrectable)
	if err != nil {
		lastExitCode = fsck.ExitFatal
		return err
	}

	runID := uuid.New().String()
	started := time.Now()

	report, code := fsck.Run(dev, op, log, opt)

	if err := closeImage(); err != nil {
		log.Errorf("closing image: %v", err)
	}

	if *devUncorrectable && !report.Uncorrectable {
		report.Uncorrectable = true
		code |= fsck.ExitUncorrectable
	}

	collectors.ObserveDuration(started)

	if cfg.HistoryDB != "" {
		if store, err := audit.Open(cfg.HistoryDB); err == nil {
			rec := audit.Record{
				RunID:         runID,
				Device:        devicePath,
				Variant:       report.Variant.String(),
				StartedAt:     started,
				Changed:       report.Changed,
				Uncorrectable: report.Uncorrectable,
				ExitCode:      code,
				Directories:   report.Directories,
				Files:         report.Files,
			}
			if err := store.Append(rec); err != nil {
				log.Warnf("writing run history: %v", err)
			}
			store.Close()
		} else {
			log.Warnf("opening run history database: %v", err)
		}
	}

	if metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = metricsSrv.Close(ctx)
	}

	lastExitCode = code
	return nil
}
