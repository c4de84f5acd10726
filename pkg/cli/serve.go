package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/getrelayd/relayd/pkg/admin"
	"github.com/getrelayd/relayd/pkg/broker"
	"github.com/getrelayd/relayd/pkg/config"
	"github.com/getrelayd/relayd/pkg/logging"
	"github.com/getrelayd/relayd/pkg/metrics"
	"github.com/getrelayd/relayd/pkg/sse"
	"github.com/getrelayd/relayd/pkg/websocket"
)

var serveConfigPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the fan-out server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(serveConfigPath)
	},
}

func init() {
	serveCmd.Flags().StringVarP(&serveConfigPath, "config", "c", "", "Path to relayd.yaml")
	rootCmd.AddCommand(serveCmd)
}

func runServe(configPath string) error {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	logger := logging.New(logging.Config{
		Level:  logging.ParseLevel(cfg.Log.Level),
		Format: logging.ParseFormat(cfg.Log.Format),
	})

	if cfg.Metrics {
		metrics.Init()
	}

	opts := cfg.BrokerOptions()
	opts.Logger = logger

	sseBroker := sse.NewBroker(opts)
	wsBroker := websocket.NewBroker(opts)

	mux := http.NewServeMux()
	mux.Handle("/events", sse.NewHandler(sseBroker, sse.WithLogger(logger)))
	mux.Handle("/ws", websocket.NewUpgradeHandler(wsBroker, websocket.WithLogger(logger)))

	public := &http.Server{Addr: cfg.Listen, Handler: mux}

	var adminSrv *http.Server
	if cfg.AdminListen != "" {
		adminMux := admin.NewAPI(sseBroker, wsBroker, logger).Routes()
		if cfg.Metrics {
			adminMux.Handle("GET /metrics", metrics.Handler())
		}
		adminSrv = &http.Server{Addr: cfg.AdminListen, Handler: adminMux}
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("listening", "addr", cfg.Listen)
		if err := public.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("public server: %w", err)
		}
	}()
	if adminSrv != nil {
		go func() {
			logger.Info("admin listening", "addr", cfg.AdminListen)
			if err := adminSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("admin server: %w", err)
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		return err
	}

	// Close live connections first so streaming handlers unblock, then
	// shut the listeners down.
	sseBroker.CloseAll(broker.CloseGoingAway, "server shutdown")
	wsBroker.CloseAll(broker.CloseGoingAway, "server shutdown")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := public.Shutdown(ctx); err != nil {
		logger.Warn("public server shutdown", "error", err)
	}
	if adminSrv != nil {
		if err := adminSrv.Shutdown(ctx); err != nil {
			logger.Warn("admin server shutdown", "error", err)
		}
	}

	return nil
}
