// Command biasd controls a Powersoft Bias amplifier over its HTTP
// control protocol, exposing live channel state and preset operations
// through a local REST API.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/micro-nova/bias-go/internal/api"
	"github.com/micro-nova/bias-go/internal/bias"
	"github.com/micro-nova/bias-go/internal/coordinator"
	"github.com/micro-nova/bias-go/internal/events"
	"github.com/micro-nova/bias-go/internal/maintenance"
	"github.com/micro-nova/bias-go/internal/models"
	"github.com/micro-nova/bias-go/internal/scenes"
	"github.com/micro-nova/bias-go/internal/zeroconf"
)

func main() {
	var (
		host     = flag.String("host", "", "amplifier IP address or hostname (required)")
		port     = flag.Int("port", bias.DefaultPort, "amplifier HTTP port")
		addr     = flag.String("addr", ":8095", "API listen address")
		cfgDir   = flag.String("config-dir", "", "config directory (default: ~/.config/biasd)")
		interval = flag.Duration("interval", coordinator.DefaultInterval, "device poll interval")
		channels = flag.Int("channels", models.DefaultChannels, "amplifier output channel count")
		timeout  = flag.Duration("timeout", bias.DefaultTimeout, "device request timeout")
		debug    = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	// Configure logging
	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	if *host == "" {
		slog.Error("missing required -host flag")
		os.Exit(1)
	}

	// Resolve config directory
	if *cfgDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			slog.Error("cannot determine home directory", "err", err)
			os.Exit(1)
		}
		*cfgDir = filepath.Join(home, ".config", "biasd")
	}
	if err := os.MkdirAll(*cfgDir, 0755); err != nil {
		slog.Error("cannot create config directory", "path", *cfgDir, "err", err)
		os.Exit(1)
	}

	// Graceful shutdown context
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Transport client
	client := bias.New(*host, *port, *timeout)
	defer client.Close()

	// Event bus
	bus := events.NewBus()

	// Coordinator
	coord := coordinator.New(client, bus, *channels, *interval)

	// Device identity (best effort; the device may be offline at start)
	infoCtx, infoCancel := context.WithTimeout(ctx, *timeout)
	if info, err := client.DeviceInfo(infoCtx); err != nil {
		slog.Warn("could not read device info", "err", err)
	} else {
		coord.SetInfo(info)
		slog.Info("amplifier identified",
			"model", info.Model, "serial", info.Serial, "manufacturer", info.Manufacturer)
	}
	infoCancel()

	// Preset store (comes up empty but usable if the document is corrupt)
	store, err := scenes.NewJSONStore(*cfgDir, *channels)
	if err != nil {
		slog.Warn("preset store loaded degraded", "err", err)
	}
	defer store.Close()

	// Scene engine
	engine := scenes.NewEngine(store, coord)

	// Poll loop
	go coord.Run(ctx)

	// Maintenance goroutines (reachability probe, preset backups)
	maint := maintenance.New(
		fmt.Sprintf("%s:%d", *host, *port),
		store.Path(),
		filepath.Join(*cfgDir, "backups"),
		func(online bool) {
			slog.Info("amplifier reachability changed", "online", online)
		},
	)
	go maint.Start(ctx)

	// Zeroconf mDNS registration
	hostname, _ := os.Hostname()
	state, _ := coord.State()
	zc := zeroconf.New(hostname, listenPort(*addr), state.Info.Model)
	go func() {
		if err := zc.Start(ctx); err != nil {
			slog.Warn("zeroconf failed", "err", err)
		}
	}()

	// HTTP server
	router := api.NewRouter(coord, engine, bus)
	srv := &http.Server{
		Addr:         *addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // 0 = no timeout (needed for SSE)
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("biasd listening", "addr", *addr, "amp", *host, "config", *cfgDir)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutCancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		slog.Warn("server shutdown error", "err", err)
	}

	slog.Info("shutdown complete")
}

// listenPort extracts the port from a listen address like ":8095".
func listenPort(addr string) int {
	port := 80
	if _, portStr, err := net.SplitHostPort(addr); err == nil {
		if p, err := strconv.Atoi(portStr); err == nil {
			port = p
		}
	}
	return port
}
