// Package main provides the playback daemon entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"github.com/amplfr/amplfrd/internal/api/rest"
	"github.com/amplfr/amplfrd/internal/app/notify"
	"github.com/amplfr/amplfrd/internal/app/player"
	"github.com/amplfr/amplfrd/internal/domain/item"
	"github.com/amplfr/amplfrd/internal/infra/beepout"
	"github.com/amplfr/amplfrd/internal/infra/config"
	"github.com/amplfr/amplfrd/internal/infra/logger"
	"github.com/amplfr/amplfrd/internal/infra/resolver"
)

var (
	app        = kingpin.New("amplfrd", "amplfr playback daemon")
	configPath = app.Flag("config", "Path to config file").Default("config/amplfrd.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()
	playlist   = app.Flag("playlist", "M3U playlist to enqueue at startup").String()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	kingpin.MustParse(app.Parse(os.Args[1:]))

	// Initialize logger
	loggerConfig := logger.Config{
		Level:  "info",
		Output: "stdout",
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}
	// The config file's log section applies unless flags override it.
	if !*verbose && *logfile == "" {
		if err := logger.Init(logger.Config{Level: cfg.Log.Level, Output: cfg.Log.Output}); err != nil {
			zlog.Fatal().Msgf("Failed to reconfigure logger: %v", err)
		}
	}

	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Daemon error: %v", err)
		os.Exit(1)
	}
}

// run executes the main daemon logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	factory, err := newTransportFactory(cfg)
	if err != nil {
		return fmt.Errorf("transport setup failed: %w", err)
	}

	res, err := resolver.New(resolver.Config{
		BaseURL:   cfg.Resolver.BaseURL,
		Timeout:   cfg.ResolverTimeout(),
		HeadProbe: cfg.Resolver.HeadProbe,
	})
	if err != nil {
		return fmt.Errorf("failed to create resolver: %w", err)
	}

	ctrl := player.NewController(player.Config{
		PreloadCount: cfg.Player.PreloadCount,
		HistoryLimit: cfg.Player.HistoryLimit,
		Loop:         cfg.Player.Loop,
	}, factory, res)
	defer ctrl.Close()

	broadcaster := notify.NewBroadcaster()
	go broadcaster.Run(ctrl.Events())

	if *playlist != "" {
		if err := enqueuePlaylist(ctrl, res, *playlist); err != nil {
			return fmt.Errorf("failed to load playlist: %w", err)
		}
	}

	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: rest.NewRouter(ctrl, broadcaster),
	}

	serverErrCh := make(chan error, 1)
	go func() {
		zlog.Info().Msgf("Starting server: addr=%s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		}
	}()

	// Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case err := <-serverErrCh:
		return fmt.Errorf("server error: %w", err)
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}

	zlog.Info().Msg("Daemon stopped")
	return nil
}

// newTransportFactory builds the media transport backend named by the config.
func newTransportFactory(cfg *config.Config) (player.TransportFactory, error) {
	switch cfg.Transport.Type {
	case "speaker", "":
		if !beepout.AudioAvailable {
			return nil, fmt.Errorf("speaker transport is not available in this build")
		}
		settings, err := beepout.DecodeSettings(cfg.Transport.Settings)
		if err != nil {
			return nil, err
		}
		factory, err := beepout.NewFactory(settings)
		if err != nil {
			return nil, err
		}
		return factory, nil
	default:
		return nil, fmt.Errorf("unknown transport type %q", cfg.Transport.Type)
	}
}

// enqueuePlaylist parses an M3U file, resolves its entries concurrently and
// enqueues the ones that resolve. Failed entries are skipped with a warning.
func enqueuePlaylist(ctrl *player.Controller, res *resolver.Client, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	entries, err := resolver.ParseM3U(f)
	if err != nil {
		return err
	}
	refs := make([]string, len(entries))
	for i, e := range entries {
		refs[i] = e.Ref
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	items := make([]item.Item, 0, len(refs))
	for _, r := range res.ResolveAll(ctx, refs) {
		if r.State != resolver.ResolutionReady {
			zlog.Warn().Msgf("Playlist entry %q skipped: %v", r.Ref, r.Err)
			continue
		}
		items = append(items, r.Item)
	}
	ctrl.Append(items...)
	zlog.Info().Msgf("Enqueued %d/%d playlist entries from %s", len(items), len(refs), path)
	return nil
}
