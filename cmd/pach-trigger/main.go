// Package main provides the pach-trigger CLI: given a trigger config
// file, decide whether the last commit warrants an image rebuild, and if
// so build, push, and update the pipeline definition on the cluster.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/pachlabs/pach-trigger/internal/platform/config"
	"github.com/pachlabs/pach-trigger/internal/platform/logger"
	"github.com/pachlabs/pach-trigger/internal/platform/telemetry"
	"github.com/pachlabs/pach-trigger/internal/trigger/domain"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	dryRun := flag.Bool("dry-run", false, "decide and show the pipeline change without building, pushing, or updating")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprintf(os.Stderr, "Usage: pach-trigger [flags] <config-file>\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		return fmt.Errorf("no argument provided, expected config file path")
	}
	configPath := args[0]
	if info, err := os.Stat(configPath); err != nil || info.IsDir() {
		return fmt.Errorf("config file does not exist: %s", configPath)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log := logger.New(cfg.LogLevel)

	ctx := context.Background()
	tel, err := telemetry.New(ctx, cfg.OTelEnabled)
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			log.Warn("telemetry shutdown", "error", err)
		}
	}()

	container, err := NewContainer(cfg, log, tel)
	if err != nil {
		return fmt.Errorf("building container: %w", err)
	}

	runCfg, spec, err := container.LoadRunConfig(configPath)
	if err != nil {
		return err
	}

	outcome, err := container.Trigger.Execute(ctx, domain.Run{
		Config:    runCfg,
		Spec:      spec,
		CommitSHA: cfg.CommitSHA,
		DryRun:    *dryRun,
	})
	if err != nil {
		return err
	}

	log.Info("run complete", "state", outcome.State.String(), "image", outcome.Image)
	return nil
}
