package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"genomefetch/internal/archive"
	"genomefetch/internal/config"
	"genomefetch/internal/entrez"
	"genomefetch/internal/logging"
	"genomefetch/internal/metrics"
	"genomefetch/internal/pipeline"
	"genomefetch/internal/preflight"
)

type fetchFlags struct {
	numRecords    int
	onlyAnnotated bool
	yes           bool
	outputDir     string
	keepTemp      bool
	json          bool
}

func runFetch(cmd *cobra.Command, ctx *commandContext, flags *fetchFlags, args []string) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}

	searchTerm := strings.TrimSpace(args[0])
	if searchTerm == "" {
		return errors.New("search term must not be empty")
	}
	if err := applyFetchOverrides(cmd, cfg, flags, args); err != nil {
		return err
	}
	if err := cfg.ValidateContact(); err != nil {
		return err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}
	if res := preflight.CheckDirectoryAccess("Output directory", cfg.Output.Dir); !res.Passed {
		return fmt.Errorf("output directory %s: %s", cfg.Output.Dir, res.Detail)
	}

	logger, err := ctx.newLogger(cmd, cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	client, err := entrez.NewFromConfig(cfg)
	if err != nil {
		return err
	}

	stderr := cmd.ErrOrStderr()
	fetcherOpts := []archive.Option{archive.WithLogger(logger)}
	if isTerminal(stderr) {
		fetcherOpts = append(fetcherOpts, archive.WithProgress(stderr))
	}
	fetcher, err := archive.New(cfg, fetcherOpts...)
	if err != nil {
		return err
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			logger.Debug("close archive connection", logging.Error(err))
		}
	}()

	// With --json, stdout carries only the report.
	consoleOut := cmd.OutOrStdout()
	if flags.json {
		consoleOut = stderr
	}
	con := newConsole(consoleOut, shouldColorize(consoleOut))

	runnerOpts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithObserver(con),
	}
	if cfg.Metrics.TextfilePath != "" {
		runnerOpts = append(runnerOpts, pipeline.WithMetrics(metrics.New()))
	}
	runner := pipeline.New(cfg, client, fetcher, runnerOpts...)

	opts := pipeline.Options{
		SearchTerm:    searchTerm,
		OnlyAnnotated: flags.onlyAnnotated,
		MaxRecords:    cfg.Entrez.MaxRecords,
	}
	if !flags.yes {
		opts.Confirm = promptConfirm(cmd.InOrStdin(), con)
	}

	report, err := runner.Run(cmd.Context(), opts)
	if errors.Is(err, pipeline.ErrDeclined) {
		con.println("Exited by user")
		return err
	}
	if err != nil {
		return err
	}

	if flags.json {
		return writeJSON(cmd, report)
	}
	con.summary(report)
	return nil
}

// applyFetchOverrides folds positional arguments and flags into cfg.
func applyFetchOverrides(cmd *cobra.Command, cfg *config.Config, flags *fetchFlags, args []string) error {
	if len(args) > 1 {
		if email := strings.TrimSpace(args[1]); email != "" {
			cfg.Entrez.Email = email
		}
	}
	if dir := strings.TrimSpace(flags.outputDir); dir != "" {
		expanded, err := config.ExpandPath(dir)
		if err != nil {
			return fmt.Errorf("resolve output directory: %w", err)
		}
		cfg.Output.Dir = expanded
	}
	if flags.keepTemp {
		cfg.Output.KeepTemp = true
	}
	if cmd.Flags().Changed("num-records") {
		if flags.numRecords <= 0 {
			return fmt.Errorf("--num-records must be positive, got %d", flags.numRecords)
		}
		cfg.Entrez.MaxRecords = flags.numRecords
	}
	return nil
}
