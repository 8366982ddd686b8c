package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/signalsfoundry/ospf-animator/internal/config"
	"github.com/signalsfoundry/ospf-animator/internal/control"
	"github.com/signalsfoundry/ospf-animator/internal/logging"
	"github.com/signalsfoundry/ospf-animator/internal/observability"
	"github.com/signalsfoundry/ospf-animator/internal/server"
	"github.com/signalsfoundry/ospf-animator/timectrl"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var (
		httpAddr    string
		grpcAddr    string
		metricsAddr string
		autoplay    bool
		mode        string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the animations over HTTP, websocket and gRPC",
		Long: `Drives every view from a shared ticker and exposes playback control.

Endpoints:
  GET  /                          Service info
  GET  /health                    Health check
  GET  /api/views                 Snapshots of every view
  GET  /api/views/{view}          Snapshot of one view
  POST /api/views/{view}/{action} play, pause, reset, step, speed?percent=N
  WS   /ws                        Frame stream
  GET  /metrics                   Prometheus metrics

gRPC: ospf.animator.v1.PlaybackService on --grpc-addr.`,
		Example: `  ospf-animator serve
  ospf-animator serve --config animator.yaml --autoplay
  ospf-animator serve --http-addr :8081 --grpc-addr "" --metrics-addr ""`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("http-addr") {
				cfg.Server.HTTPAddr = httpAddr
			}
			if flags.Changed("grpc-addr") {
				cfg.Server.GRPCAddr = grpcAddr
			}
			if flags.Changed("metrics-addr") {
				cfg.Server.MetricsAddr = metricsAddr
			}
			if flags.Changed("autoplay") {
				cfg.Playback.Autoplay = autoplay
			}
			if flags.Changed("mode") {
				cfg.Playback.Mode = timectrl.ParseMode(mode)
			}

			// Graceful shutdown on SIGINT/SIGTERM.
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, newLogger(cfg))
		},
	}

	cmd.Flags().StringVar(&httpAddr, "http-addr", ":8080", "HTTP/websocket listen address (empty disables)")
	cmd.Flags().StringVar(&grpcAddr, "grpc-addr", ":50051", "gRPC listen address (empty disables)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9090", "standalone Prometheus listen address (empty disables)")
	cmd.Flags().BoolVar(&autoplay, "autoplay", false, "start every view playing")
	cmd.Flags().StringVar(&mode, "mode", "realtime", "ticker mode (realtime, accelerated)")

	return cmd
}

// serve runs every configured listener until ctx is done.
func serve(ctx context.Context, cfg config.Config, log logging.Logger) error {
	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(cfg.Tracing), log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	reg := prometheus.NewRegistry()
	engineMetrics, err := observability.NewEngineCollector(reg)
	if err != nil {
		return err
	}
	controlMetrics, err := observability.NewControlCollector(reg)
	if err != nil {
		return err
	}
	metricsHandler := observability.HandlerFor(reg)

	state, err := buildState(cfg, log, engineMetrics)
	if err != nil {
		return err
	}
	for _, name := range state.Views() {
		if _, err := state.SetSpeed(ctx, name, cfg.Playback.SpeedPercent); err != nil {
			return err
		}
		if cfg.Playback.Autoplay {
			if _, err := state.Play(ctx, name); err != nil {
				return err
			}
		}
	}

	errCh := make(chan error, 3)
	var shutdowns []func(context.Context)

	if cfg.Server.HTTPAddr != "" {
		ln, err := net.Listen("tcp", cfg.Server.HTTPAddr)
		if err != nil {
			return fmt.Errorf("listen http: %w", err)
		}
		srv := server.New(cfg.Server.HTTPAddr, state,
			server.WithLogger(log),
			server.WithMetricsHandler(metricsHandler),
			server.WithControlMetrics(controlMetrics),
		)
		go func() {
			if err := srv.StartOnListener(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("http server: %w", err)
			}
		}()
		shutdowns = append(shutdowns, func(ctx context.Context) { _ = srv.Shutdown(ctx) })
	}

	if cfg.Server.GRPCAddr != "" {
		ln, err := net.Listen("tcp", cfg.Server.GRPCAddr)
		if err != nil {
			return fmt.Errorf("listen grpc: %w", err)
		}
		grpcServer := control.NewServer(state, log, controlMetrics)
		log.Info(ctx, "starting playback gRPC server", logging.String("addr", ln.Addr().String()))
		go func() {
			if err := grpcServer.Serve(ln); err != nil {
				errCh <- fmt.Errorf("grpc server: %w", err)
			}
		}()
		shutdowns = append(shutdowns, func(context.Context) { grpcServer.GracefulStop() })
	}

	if cfg.Server.MetricsAddr != "" {
		ln, err := net.Listen("tcp", cfg.Server.MetricsAddr)
		if err != nil {
			return fmt.Errorf("listen metrics: %w", err)
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", metricsHandler)
		metricsSrv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		log.Info(ctx, "serving Prometheus metrics", logging.String("addr", ln.Addr().String()))
		go func() {
			if err := metricsSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Warn(context.Background(), "metrics server exited", logging.Err(err))
			}
		}()
		shutdowns = append(shutdowns, func(ctx context.Context) { _ = metricsSrv.Shutdown(ctx) })
	}

	ticker := timectrl.NewTicker(cfg.Playback.FrameInterval, cfg.Playback.Mode)
	state.AttachTicker(ticker)
	tickCtx, stopTicker := context.WithCancel(ctx)
	tickerDone := ticker.Start(tickCtx, 0)
	log.Info(ctx, "ticker started",
		logging.String("mode", cfg.Playback.Mode.String()),
		logging.Duration("interval", cfg.Playback.FrameInterval),
		logging.Bool("autoplay", cfg.Playback.Autoplay),
	)

	var runErr error
	select {
	case runErr = <-errCh:
	case <-ctx.Done():
	}

	log.Info(context.Background(), "shutting down")
	stopTicker()
	<-tickerDone

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(shutdowns) - 1; i >= 0; i-- {
		shutdowns[i](shutdownCtx)
	}
	return runErr
}
