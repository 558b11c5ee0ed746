package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/TimurManjosov/ruleconsole/internal/audit"
	"github.com/TimurManjosov/ruleconsole/internal/client"
	"github.com/TimurManjosov/ruleconsole/internal/combine"
	"github.com/TimurManjosov/ruleconsole/internal/config"
	"github.com/TimurManjosov/ruleconsole/internal/console"
	"github.com/TimurManjosov/ruleconsole/internal/logging"
	"github.com/TimurManjosov/ruleconsole/internal/telemetry"
	"github.com/TimurManjosov/ruleconsole/internal/web"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "console: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	log = log.With().Str("env", cfg.AppEnv).Logger()

	telemetry.Init()

	rc := client.NewClient(cfg.RulesBaseURL, cfg.RulesTimeout)
	rc.Logger = log.With().Str("component", "client").Logger()

	trail := audit.NewService(audit.NewLogSink(log), nil, nil, log, 256)
	defer trail.Close()

	srvConsole := web.NewServer(
		console.NewController(rc, log),
		combine.NewController(rc, log),
		rc,
		log,
		web.Options{
			RateLimitPerIP: cfg.RateLimitPerIP,
			RequestTimeout: cfg.RulesTimeout + 5*time.Second,
			Audit:          trail,
			SessionIdle:    cfg.SessionIdle,
		},
	)

	consoleHTTP := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srvConsole.Router(),
		ReadHeaderTimeout: 3 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", telemetry.Handler())
	metricsHTTP := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           metricsMux,
		ReadHeaderTimeout: 3 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return serve(log, "console", consoleHTTP) })
	g.Go(func() error { return serve(log, "metrics", metricsHTTP) })
	g.Go(func() error {
		// graceful shutdown
		<-gctx.Done()
		ctxShut, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return errors.Join(consoleHTTP.Shutdown(ctxShut), metricsHTTP.Shutdown(ctxShut))
	})

	log.Info().Str("rules_base_url", cfg.RulesBaseURL).Msg("console started")
	err = g.Wait()
	log.Info().Msg("stopped")
	return err
}

func serve(log zerolog.Logger, name string, srv *http.Server) error {
	log.Info().Str("server", name).Str("addr", srv.Addr).Msg("listening")
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s server: %w", name, err)
	}
	return nil
}
