// Copyright 2025 The PlaceServe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package main runs the place search server and its interactive CLI.

placeserve loads a list of places (JSON or MessagePack, optionally compressed) into a
catalog sorted by name and answers prefix searches against it. It can operate as a
MessagePack IPC server over stdin/stdout for integration with other programs, or as a
CLI for trying searches by hand.

# Usage

Start the server with the data files from the config:

	placeserve

Load specific files and enable debug logging on stderr:

	placeserve -data cities.json.gz,extra.msgpack -d

Run the interactive prompt:

	placeserve -c -limit 20

Convert the loaded catalog to a compressed MessagePack dump and exit:

	placeserve -data cities.json -export cities.msgpack.zst

Reset the default config file:

	placeserve -rebuild-config

# Configuration

The config file is TOML (or YAML when named *.yaml) and is created with defaults at
~/.config/placeserve/config.toml when missing:

	[server]
	max_limit = 100
	live = false
	live_buffer = 16

	[catalog]
	files = ["data/cities.json"]
	sort = "stable"
	watch = false
	watch_debounce_ms = 500
	reload_schedule = ""

	[cache]
	size = 256

	[metrics]
	addr = ""

	[cli]
	default_limit = 10

Relative data paths are looked up in the working directory, next to the executable and
in the config directory's data folder; globs are allowed. With watch on, the catalog is
rebuilt when a data file changes; reload_schedule takes a cron spec such as "@every 6h".
Every rebuild publishes a new catalog atomically, searches in flight finish on the old one.

# IPC Protocol

See package server. In short:

	{"id": "req1", "p": "ams", "l": 10}
	{"id": "req1", "st": "update", "r": [...], "c": 2, "n": 2, "v": 1, "t": 35}

# Metrics

With metrics.addr (or -metrics) set, Prometheus metrics are served on /metrics.
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bastiangx/placeserve/internal/cli"
	"github.com/bastiangx/placeserve/internal/logger"
	"github.com/bastiangx/placeserve/internal/metrics"
	"github.com/bastiangx/placeserve/internal/utils"
	"github.com/bastiangx/placeserve/pkg/catalog"
	"github.com/bastiangx/placeserve/pkg/config"
	"github.com/bastiangx/placeserve/pkg/ingest"
	"github.com/bastiangx/placeserve/pkg/reload"
	"github.com/bastiangx/placeserve/pkg/search"
	"github.com/bastiangx/placeserve/pkg/server"
	"github.com/bastiangx/placeserve/pkg/suggest"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

const (
	Version = "0.3.0"
	AppName = "placeserve"
	gh      = "https://github.com/bastiangx/placeserve"
)

func main() {
	if err := run(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

// run parses flags and wires the packages together. It holds no search logic itself.
func run() error {
	defaultConfig := config.DefaultConfig()

	showVersion := flag.Bool("version", false, "Show current version")
	configPath := flag.String("config", "", "Path to a config file (TOML or YAML)")
	dataFiles := flag.String("data", "", "Comma separated data files or globs, overrides catalog.files")
	debugMode := flag.Bool("d", false, "Toggle debug mode")
	cliMode := flag.Bool("c", false, "Run CLI -- useful for testing and debugging")
	limit := flag.Int("limit", 0, fmt.Sprintf("Number of records to print in CLI mode (default from config: %d)", defaultConfig.CLI.DefaultLimit))
	metricsAddr := flag.String("metrics", "", "Serve Prometheus metrics on this address, overrides metrics.addr")
	exportPath := flag.String("export", "", "Write the loaded catalog as MessagePack to this path and exit")
	rebuildConfig := flag.Bool("rebuild-config", false, "Overwrite the default config file with defaults and exit")
	flag.Parse()

	if *showVersion {
		printVersion()
		return nil
	}

	logger.Setup(*debugMode)

	if *rebuildConfig {
		if err := config.RebuildConfigFile(); err != nil {
			return fmt.Errorf("failed to rebuild config: %w", err)
		}
		path, _ := config.GetDefaultConfigPath()
		fmt.Fprintf(os.Stderr, "Wrote default config to %s\n", path)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, usedConfig, err := config.LoadConfigWithPriority(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log.Debugf("Using config file: (%s)", config.GetActiveConfigPath(usedConfig))

	if *dataFiles != "" {
		cfg.Catalog.Files = strings.Split(*dataFiles, ",")
	}
	if *metricsAddr != "" {
		cfg.Metrics.Addr = *metricsAddr
	}
	if *limit > 0 {
		cfg.CLI.DefaultLimit = *limit
	}

	pathResolver, err := utils.NewPathResolver()
	if err != nil {
		return fmt.Errorf("failed to initialize path resolver: %w", err)
	}
	paths, err := pathResolver.ResolveDataFiles(cfg.Catalog.Files)
	if err != nil {
		log.Debug("Path diagnostics", "info", pathResolver.GetRuntimeInfo())
		return fmt.Errorf("failed to resolve data files: %w", err)
	}
	log.Debugf("Using data files: %v", paths)

	m := metrics.NewMetrics(nil)
	engine := search.NewEngine(search.WithCache(cfg.Cache.Size), search.WithMetrics(m))
	completer := suggest.NewCompleter(suggest.WithOriginalCase())
	reloader := reload.New(paths, engine,
		reload.WithIndexer(completer),
		reload.WithMetrics(m),
		reload.WithBuildOptions(catalog.WithSortStrategy(cfg.SortStrategy())),
	)

	if _, err := reloader.Reload(ctx); err != nil {
		return err
	}

	if *exportPath != "" {
		records := engine.Catalog().All()
		if err := ingest.ExportFile(*exportPath, records); err != nil {
			return err
		}
		log.Infof("Exported %s records to %s", utils.FormatWithCommas(len(records)), *exportPath)
		return nil
	}

	// CLI would be mainly used for testing and dbg purposes.
	if *cliMode {
		log.SetReportTimestamp(false)
		inputHandler := cli.NewInputHandler(engine, completer, cfg.CLI.DefaultLimit)
		if err := inputHandler.Start(); err != nil {
			return fmt.Errorf("CLI error: %w", err)
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Metrics.Addr != "" {
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: metricsMux(m), ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			log.Debugf("Serving metrics on %s", cfg.Metrics.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if cfg.Catalog.Watch {
		g.Go(func() error {
			return reloader.Watch(gctx, cfg.WatchDebounce())
		})
	}
	if cfg.Catalog.ReloadSchedule != "" {
		if err := reloader.Schedule(cfg.Catalog.ReloadSchedule); err != nil {
			return err
		}
		defer reloader.Stop()
	}

	opts := []server.Option{
		server.WithCompleter(completer),
		server.WithReloader(reloader),
		server.WithMaxLimit(cfg.Server.MaxLimit),
	}
	if cfg.Server.Live {
		opts = append(opts, server.WithLive(cfg.Server.LiveBuffer))
	}
	srv := server.NewServer(engine, opts...)

	showStartupInfo(engine.Catalog(), reloader)

	// Start blocks on stdin, so it stays outside the group: a signal must not wait for
	// the next request to arrive.
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Start(gctx)
	}()

	select {
	case err := <-serveErr:
		stop()
		if waitErr := g.Wait(); err == nil {
			err = waitErr
		}
		return err
	case <-gctx.Done():
		fmt.Fprintf(os.Stderr, "\nExiting...\n")
		stop()
		return g.Wait()
	}
}

func metricsMux(m *metrics.Metrics) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return mux
}

func printVersion() {
	l := log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    false,
		ReportTimestamp: false,
		Prefix:          "",
	})

	styles := log.DefaultStyles()
	styles.Values["version"] = lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	styles.Values["gh"] = lipgloss.NewStyle().Italic(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	l.SetStyles(styles)

	l.Print("")
	l.Print("[ placeserve ] Prefix search over place names")
	l.Print("", "version", Version)
	l.Print("")
	l.Print("use -h or --help to see available options")
	l.Print("Github Repo", "gh", gh)
}

// showStartupInfo displays some basic info about the init process on stderr.
func showStartupInfo(c *catalog.Catalog, reloader *reload.Reloader) {
	currentLevel := log.GetLevel()
	log.SetLevel(log.InfoLevel)
	defer log.SetLevel(currentLevel)

	paths := reloader.Paths()
	log.Infof("%s %s, pid [ %d ]", AppName, Version, os.Getpid())
	log.Infof("catalog v%d: %s places from %d files", c.Version(), utils.FormatWithCommas(c.Size()), len(paths))
	for _, p := range paths {
		log.Infof("  %s", p)
	}
	if last, _ := reloader.Last(); last.Stats.Skipped > 0 {
		log.Warnf("%s malformed records skipped", utils.FormatWithCommas(last.Stats.Skipped))
	}
	log.Info("status: ready")
}
