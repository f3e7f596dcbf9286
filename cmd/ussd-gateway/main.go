package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"olink/go-backend/internal/bootstrap/gatewayconfig"
	"olink/go-backend/internal/composition/gateway"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "Path to gateway.yaml (optional)")
	addr := flag.String("addr", "", "HTTP listen address override")
	dataDir := flag.String("data-dir", "", "Directory for identity storage (optional)")
	sandboxMode := flag.Bool("sandbox", false, "Simulate chain, payments and SMS")
	flag.Parse()
	if *showVersion {
		fmt.Printf("ussd-gateway version=%s commit=%s build_date=%s\n", version, commit, buildDate)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := gatewayconfig.LoadFromPath(*configPath)
	if err != nil {
		log.Fatalf("ussd-gateway failed to load config: %v", err)
	}
	if *addr != "" {
		cfg.HTTPAddr = *addr
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *sandboxMode {
		cfg.Sandbox = true
	}

	logger := gateway.NewLogger(os.Stderr, cfg.LogFormat, cfg.LogLevel)
	g, err := gateway.Build(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("ussd-gateway failed to initialize: %v", err)
	}

	logger.Info("ussd-gateway starting", "addr", cfg.HTTPAddr, "version", version, "sandbox", cfg.Sandbox)
	if err := g.Run(ctx); err != nil {
		log.Fatalf("ussd-gateway failed: %v", err)
	}
	logger.Info("ussd-gateway stopped")
}
