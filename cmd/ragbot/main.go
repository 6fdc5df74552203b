package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"

	"ragbot/internal/app"
	"ragbot/internal/config"
	"ragbot/internal/logging"
	"ragbot/internal/server"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/ragbot/config.yaml if not provided)")
	flag.Parse()

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, cfgPath, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger, err := logging.Setup(cfg.Logging)
	if err != nil {
		log.Fatalf("failed to configure logging: %v", err)
	}
	logger.WithField("config", cfgPath).Info("config loaded")

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, reg, logger)
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}

	srv := server.New(a.Pipeline, app.ServerOptions(cfg.Server, reg, logger))
	if err := srv.Start(ctx); err != nil {
		log.Fatalf("server: %v", err)
	}
}
