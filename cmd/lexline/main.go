// Command lexline is the main entry point for the Lexline intake server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/lexline-ai/lexline/internal/call"
	"github.com/lexline-ai/lexline/internal/config"
	"github.com/lexline-ai/lexline/internal/health"
	"github.com/lexline-ai/lexline/internal/leadstore"
	"github.com/lexline-ai/lexline/internal/leadstore/postgres"
	"github.com/lexline-ai/lexline/internal/observe"
	"github.com/lexline-ai/lexline/internal/orchestrator"
	"github.com/lexline-ai/lexline/internal/telephony"
	oaspeech "github.com/lexline-ai/lexline/pkg/speech/openai"
)

const shutdownTimeout = 15 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "lexline: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "lexline: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("lexline starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Metrics ───────────────────────────────────────────────────────────────
	metricsShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{})
	if err != nil {
		slog.Error("failed to initialise metrics", "err", err)
		return 1
	}
	metrics := observe.DefaultMetrics()

	// ── Lead store ────────────────────────────────────────────────────────────
	leads, err := postgres.NewStore(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		slog.Error("failed to connect lead store", "err", err)
		return 1
	}
	defer leads.Close()
	saver := leadstore.NewGuardedSaver(leads, leadstore.GuardedSaverConfig{})
	slog.Info("lead store connected")

	// ── Speech provider ───────────────────────────────────────────────────────
	var provOpts []oaspeech.Option
	if cfg.Model.Model != "" {
		provOpts = append(provOpts, oaspeech.WithModel(cfg.Model.Model))
	}
	if cfg.Model.BaseURL != "" {
		provOpts = append(provOpts, oaspeech.WithBaseURL(cfg.Model.BaseURL))
	}
	provider := oaspeech.New(cfg.Model.APIKey, provOpts...)

	// ── Call control (optional) ───────────────────────────────────────────────
	var control telephony.Controller
	if cfg.Telephony.ControlURL != "" {
		control = telephony.NewRESTController(cfg.Telephony.ControlURL, cfg.Telephony.AuthToken)
	}

	// ── Orchestrator ──────────────────────────────────────────────────────────
	store := call.NewStore()
	orch := orchestrator.New(store, provider, saver, control, metrics, orchestrator.Config{
		SettleDelay:  cfg.Intake.SettleDelay,
		SaveTimeout:  cfg.Intake.SaveTimeout,
		Greeting:     cfg.Intake.Greeting,
		Instructions: cfg.Intake.Instructions,
		Voice:        cfg.Model.Voice,
	})

	// ── HTTP routes ───────────────────────────────────────────────────────────
	mux := http.NewServeMux()

	webhook := telephony.NewHandler(orch)
	mux.HandleFunc("POST /call/status", webhook.HandleStatus)
	mux.HandleFunc("/call/media", webhook.HandleMedia)

	checker := health.New(health.Checker{Name: "leadstore", Check: leads.Ping}).
		WithActiveCalls(store.Len)
	checker.Register(mux)

	mux.Handle("GET /metrics", promhttp.Handler())

	listenAddr := cfg.Server.ListenAddr
	if listenAddr == "" {
		listenAddr = ":8080"
	}
	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ── Run ───────────────────────────────────────────────────────────────────
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("server ready — press Ctrl+C to shut down", "listen_addr", listenAddr)
		var err error
		if cfg.Server.TLS != nil {
			err = srv.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-gctx.Done()

		slog.Info("shutdown signal received, stopping…")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		// Stop accepting new calls first, then drain live ones.
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("http shutdown error", "err", err)
		}
		orch.Close()
		if err := metricsShutdown(shutdownCtx); err != nil {
			slog.Warn("metrics shutdown error", "err", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
