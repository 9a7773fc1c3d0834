// Command robotd is the control server's entry point: it parses the
// flat CLI flag set System_Init used to accept, builds a config
// Environment rooted at --root, opens the Events/Axes/Joints network
// surface, optionally mirrors telemetry onto a debug WebSocket, and runs
// the dispatcher until an OS signal requests shutdown.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/arobi-robotics/robotd/internal/config"
	"github.com/arobi-robotics/robotd/internal/dispatch"
	"github.com/arobi-robotics/robotd/internal/network"
	"github.com/arobi-robotics/robotd/internal/network/debugws"
	"github.com/arobi-robotics/robotd/pkg/logging"

	_ "github.com/arobi-robotics/robotd/internal/signalio/dummy"
	_ "github.com/arobi-robotics/robotd/internal/signalio/serialio"
)

const defaultShutdownTimeout = 5 * time.Second

func main() {
	var (
		root       string
		logDir     string
		addr       string
		configName string
		logLevel   string
		debugAddr  string
	)

	cmd := &cobra.Command{
		Use:   "robotd",
		Short: "Soft-real-time multi-DoF robot control server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(root, logDir, addr, configName, logLevel, debugAddr)
		},
	}

	cmd.Flags().StringVarP(&root, "root", "r", ".", "root directory containing config/ and plugins/")
	cmd.Flags().StringVarP(&logDir, "log", "l", "./logs", "root directory for persisted per-component logs")
	cmd.Flags().StringVarP(&addr, "addr", "a", "", "bind address for the network surface (empty binds any interface)")
	cmd.Flags().StringVarP(&configName, "config", "c", "", "initial robot configuration to load at startup")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	cmd.Flags().StringVar(&debugAddr, "debug-addr", "", "address for the debug telemetry WebSocket (empty disables it)")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(root, logDir, addr, configName, logLevel, debugAddr string) error {
	logging.SetLevel(logLevel)
	log := logging.Component("main")

	env := config.Environment{Root: root, Log: logDir, Addr: addr}

	surface, err := network.Listen(env.Addr)
	if err != nil {
		return fmt.Errorf("robotd: open network surface: %w", err)
	}
	defer surface.Close()

	var debug *debugws.Streamer
	var httpServer *http.Server
	debugCtx, debugCancel := context.WithCancel(context.Background())
	defer debugCancel()

	if debugAddr != "" {
		debug = debugws.NewStreamer()
		go func() {
			if err := debug.Run(debugCtx); err != nil && err != context.Canceled {
				log.WithError(err).Warn("debug streamer exited")
			}
		}()

		mux := http.NewServeMux()
		mux.HandleFunc("/ws/telemetry", debug.HandleWebSocket)
		httpServer = &http.Server{Addr: debugAddr, Handler: mux}
		go func() {
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.WithError(err).Warn("debug http server exited")
			}
		}()
		log.WithField("addr", debugAddr).Info("debug telemetry websocket listening")
	}

	system := dispatch.New(env, surface, debug)
	if err := system.LoadInitial(configName); err != nil {
		return fmt.Errorf("robotd: load initial config %q: %w", configName, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	runErr := make(chan error, 1)
	go func() { runErr <- system.Run(ctx) }()

	log.WithField("root", root).Info("robotd started")

	select {
	case <-sigChan:
		log.Info("shutdown signal received")
		cancel()
		<-runErr
	case err := <-runErr:
		if err != nil && err != context.Canceled {
			return fmt.Errorf("robotd: dispatcher exited: %w", err)
		}
	}

	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("debug http server shutdown error")
		}
	}
	debugCancel()

	log.Info("robotd stopped")
	return nil
}
