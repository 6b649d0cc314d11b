package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/aryandanave7-glitch/server5/internal/config"
	"github.com/aryandanave7-glitch/server5/internal/directory"
	"github.com/aryandanave7-glitch/server5/internal/httpserver"
	"github.com/aryandanave7-glitch/server5/internal/metrics"
	"github.com/aryandanave7-glitch/server5/internal/presence"
	"github.com/aryandanave7-glitch/server5/internal/ratelimit"
	"github.com/aryandanave7-glitch/server5/internal/rooms"
	"github.com/aryandanave7-glitch/server5/internal/signaling"
)

var (
	// Set via -ldflags at build time. Values may be empty in local/dev builds.
	buildCommit = ""
	buildTime   = ""
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger, err := config.NewLogger(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	slog.SetDefault(logger)

	logger.Info("starting server5",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DatabasePath,
		"rate_limit_max", cfg.RateLimitMax,
		"rate_limit_window", cfg.RateLimitWindow,
		"max_signaling_message_bytes", cfg.MaxSignalingMessageBytes,
	)

	store, err := directory.Open(cfg.DatabasePath)
	if err != nil {
		logger.Error("failed to open address directory", "err", err)
		os.Exit(2)
	}
	defer store.Close()

	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		logger.Error("failed to listen", "err", err)
		os.Exit(1)
	}

	commit, built := resolveBuildInfo(buildCommit, buildTime)
	srv := httpserver.New(cfg, logger, httpserver.BuildInfo{Commit: commit, BuildTime: built})

	m := metrics.New()
	limiter := ratelimit.NewFixedWindow(ratelimit.RealClock{}, cfg.RateLimitMax, cfg.RateLimitWindow)
	sig := signaling.NewServer(signaling.Config{
		Registry:        presence.NewRegistry(),
		Rooms:           rooms.New(),
		Limiter:         limiter,
		Metrics:         m,
		Logger:          logger,
		MaxMessageBytes: cfg.MaxSignalingMessageBytes,
	})
	sig.RegisterRoutes(srv.Mux())

	dir := directory.NewHandlers(store, logger)
	dir.RegisterRoutes(srv.Mux())

	srv.Mux().Handle("GET /metrics", m.Handler())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Stale rate-limit windows accumulate one entry per origin ever seen;
	// sweep them periodically. Sweeping never changes an admit/reject
	// outcome.
	if cfg.RateLimitSweepInterval > 0 {
		go sweepLoop(ctx, limiter, cfg.RateLimitSweepInterval, logger)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		sig.Close()
		if err != nil && !errors.Is(err, httpserver.ErrServerClosed) {
			logger.Error("http server exited", "err", err)
			os.Exit(1)
		}
		return
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", "err", err)
	}
	sig.Close()

	if err := <-errCh; err != nil && !errors.Is(err, httpserver.ErrServerClosed) {
		logger.Error("http server exited after shutdown", "err", err)
		os.Exit(1)
	}
}

func sweepLoop(ctx context.Context, limiter *ratelimit.FixedWindow, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if removed := limiter.Sweep(); removed > 0 {
				logger.Debug("swept stale rate-limit windows", "removed", removed)
			}
		case <-ctx.Done():
			return
		}
	}
}

func resolveBuildInfo(commit, built string) (string, string) {
	// Prefer ldflags-injected values (production builds) but fall back to the
	// Go build info when available (useful for `go run` / dev builds).
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if commit == "" {
					commit = s.Value
				}
			case "vcs.time":
				if built == "" {
					built = s.Value
				}
			}
		}
	}

	return commit, built
}
