package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/wadjakorntonsri/go-shortlinks/pkg/adapters/events"
	"github.com/wadjakorntonsri/go-shortlinks/pkg/adapters/repository"
	"github.com/wadjakorntonsri/go-shortlinks/pkg/config"
	"github.com/wadjakorntonsri/go-shortlinks/pkg/core/shortcode"
	"github.com/wadjakorntonsri/go-shortlinks/pkg/core/services"
	"github.com/wadjakorntonsri/go-shortlinks/pkg/ports"
)

func main() {
	if err := execute(&app{}, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}

// execute runs one CLI invocation and releases storage whether or not the
// command succeeded.
func execute(a *app, args []string, stdout, stderr io.Writer) error {
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	if cerr := a.close(); cerr != nil {
		fmt.Fprintf(stderr, "closing storage: %v\n", cerr)
		if err == nil {
			err = cerr
		}
	}
	return err
}

// app holds what every subcommand needs. It is filled in by the root
// command's pre-run hook once flags are parsed.
type app struct {
	cfg       *config.Config
	repo      ports.LinkRepository
	links     ports.LinkService
	stats     ports.StatsService
	closeSink func(context.Context) error
}

func (a *app) open(stderr io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := cfg.NewLogger(stderr)
	slog.SetDefault(logger)
	repo, err := repository.Open(cfg)
	if err != nil {
		return fmt.Errorf("opening %s storage: %w", cfg.StorageType, err)
	}

	sink, closeSink := events.FromConfig(cfg, logger)
	alloc := shortcode.NewAllocator(cfg.ShortcodeLength, cfg.AllocationMaxAttempts)

	a.cfg = cfg
	a.repo = repo
	a.closeSink = closeSink
	a.links = services.NewLinkService(repo, services.WithEvents(sink), services.WithAllocator(alloc))
	a.stats = services.NewStatsService(repo, services.WithEvents(sink))
	return nil
}

func (a *app) close() error {
	if a.repo == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.closeSink(ctx); err != nil {
		slog.Warn("event sink not drained", slog.Any("error", err))
	}
	err := a.repo.Close()
	a.repo = nil
	return err
}

// needsStore is false for help and shell completion, which must not create
// a database as a side effect.
func needsStore(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "help", "completion", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
			return false
		}
	}
	return true
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:          "shortlinks",
		Short:        "Create, resolve and inspect short links",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !needsStore(cmd) {
				return nil
			}
			return a.open(cmd.ErrOrStderr())
		},
	}

	root.AddCommand(
		newCreateCmd(a),
		newResolveCmd(a),
		newStatsCmd(a),
		newDeactivateCmd(a),
		newClearCmd(a),
		newExportCmd(a),
		newImportCmd(a),
	)
	return root
}
