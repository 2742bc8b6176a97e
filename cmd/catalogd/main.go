// Command catalogd runs the cataloging daemon: it indexes configured asset
// roots, derives thumbnails/representations/DASH packages as the rules
// engine calls for them, and serves no network surface of its own (spec.md
// Non-goals: no HTTP API in this core). Grounded on the teacher's
// cmd/worker/main.go entrypoint shape.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"catalogd/config"
	"catalogd/internal/daemon"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file (optional; defaults and env vars apply regardless)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log, err := newLogger(cfg.Server.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := daemon.Run(ctx, cfg, log); err != nil {
		log.Fatal("daemon exited with error", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = zapcore.InfoLevel
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}
