package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dgnsrekt/voicify-tts/internal/api"
	"github.com/dgnsrekt/voicify-tts/internal/artifact"
	"github.com/dgnsrekt/voicify-tts/internal/config"
	"github.com/dgnsrekt/voicify-tts/internal/queue"
	"github.com/dgnsrekt/voicify-tts/internal/tts"
)

type serveOptions struct {
	port    int
	workDir string
}

func addServeFlags(cmd *cobra.Command, opts *serveOptions) {
	cmd.Flags().IntVarP(&opts.port, "port", "p", 0, "listen port (overrides HTTP_PORT)")
	cmd.Flags().StringVar(&opts.workDir, "work-dir", "", "artifact directory (overrides WORK_DIR)")
}

func newServeCommand() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Purge stale artifacts and serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}
	addServeFlags(cmd, &opts)

	return cmd
}

func runServe(cmd *cobra.Command, opts serveOptions) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if opts.port != 0 {
		cfg.HTTPPort = opts.port
	}
	if opts.workDir != "" {
		cfg.WorkDir = opts.workDir
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.HTTPPort))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	return serve(ctx, cfg, logger, ln)
}

// serve runs the service on ln until ctx is cancelled or the server fails.
// Stale artifacts are purged before the first request is accepted.
func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger, ln net.Listener) error {
	logger.Info("starting voicify-tts", "version", version)
	logger.Info("configuration loaded",
		"log_level", cfg.LogLevel,
		"log_format", cfg.LogFormat,
		"http_port", cfg.HTTPPort,
		"work_dir", cfg.WorkDir,
		"mode", cfg.Mode,
		"backend", cfg.Backend,
		"queue_capacity", cfg.QueueCapacity,
		"rate_limit_rps", cfg.RateLimitRPS,
	)

	artifacts, err := artifact.NewManager(cfg.WorkDir, logger)
	if err != nil {
		ln.Close()
		return err
	}
	if _, err := artifacts.PurgeStale(); err != nil {
		logger.Warn("stale artifact sweep incomplete", "error", err)
	}

	registry := tts.NewDefaultRegistry(tts.Options{
		WorkDir:       artifacts.Dir(),
		VoicifyPath:   cfg.VoicifyPath,
		VoicifyOutput: cfg.VoicifyOutput,
		PiperPath:     cfg.PiperPath,
		PiperModel:    cfg.PiperModel,
	}, logger)

	backend, err := registry.Load(cfg.Backend)
	if err != nil {
		logger.Warn("TTS backend not available",
			"backend", cfg.Backend,
			"mode", cfg.Mode,
			"available_backends", registry.List(),
			"error", err,
		)
		if cfg.FallbackEnabled() {
			logger.Info("serving fallback tone audio")
		}
	} else {
		logger.Info("TTS backend loaded", "backend", backend.Name(), "output", backend.OutputPath())
	}

	synthQueue := queue.NewQueue(cfg.QueueCapacity, logger)
	synthQueue.Start()
	defer synthQueue.Stop()

	adapter := tts.NewAdapter(backend, artifacts, synthQueue, tts.AdapterConfig{
		Fallback:       cfg.FallbackEnabled(),
		InstallCommand: cfg.InstallCommand,
	}, logger)

	server := api.New(cfg, logger, adapter, artifacts)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	logger.Info("shutdown complete",
		"queued_jobs", synthQueue.Len(),
		"pending_scopes", artifacts.Pending(),
	)
	return nil
}
