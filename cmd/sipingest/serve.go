package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"braces.dev/errtrace"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sourcegraph/conc"
	"github.com/spf13/cobra"

	"github.com/tmnsur/jsip-sub002/internal/log"
	"github.com/tmnsur/jsip-sub002/sip"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Accept TCP connections and log delivered SIP messages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig(cmd)
			if err != nil {
				return errtrace.Wrap(err)
			}
			return errtrace.Wrap(runServe(cmd.Context(), cfg))
		},
	}
	addServeFlags(cmd.Flags())
	return cmd
}

func runServe(ctx context.Context, cfg *config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return errtrace.Wrap(err)
	}
	log.SetDefault(logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := sip.NewMetrics(reg)

	var wg conc.WaitGroup
	defer wg.Wait()
	if cfg.Metrics.Listen != "" {
		srv := newMetricsServer(cfg.Metrics, reg)
		wg.Go(func() {
			logger.LogAttrs(ctx, slog.LevelInfo, "metrics server started",
				slog.String("listen", cfg.Metrics.Listen),
				slog.String("path", cfg.Metrics.Path),
			)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.LogAttrs(ctx, slog.LevelError, "metrics server failed", slog.Any("error", err))
			}
		})
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx) //nolint:errcheck
		}()
	}

	pool := sip.NewPool(cfg.Workers)
	defer pool.Wait()

	opts := cfg.Ingest.connOptions()
	opts.Executor = pool
	opts.Log = logger
	opts.Metrics = metrics
	consumer := &logConsumer{log: logger}

	logger.LogAttrs(ctx, slog.LevelInfo, "serving",
		slog.String("listen", cfg.Listen),
		slog.String("engine", cfg.Engine),
		slog.Int("workers", pool.MaxGoroutines()),
	)

	switch cfg.Engine {
	case engineGnet:
		srv := sip.NewGnetServer(cfg.Listen, consumer, &sip.GnetServerOptions{
			ConnOptions:  *opts,
			Multicore:    cfg.Gnet.Multicore,
			NumEventLoop: cfg.Gnet.NumEventLoop,
			ReusePort:    cfg.Gnet.ReusePort,
		})
		err = srv.Serve(ctx)
	default:
		var ls net.Listener
		if ls, err = net.Listen("tcp", cfg.Listen); err != nil {
			return errtrace.Wrap(err)
		}
		err = sip.NewListener(consumer, opts).Serve(ctx, ls)
	}
	if errors.Is(err, sip.ErrListenerClosed) {
		logger.LogAttrs(context.Background(), slog.LevelInfo, "stopped")
		return nil
	}
	return errtrace.Wrap(err)
}

func newMetricsServer(cfg metricsConfig, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	return &http.Server{
		Addr:         cfg.Listen,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
