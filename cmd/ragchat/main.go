package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"ragbot/internal/app"
	"ragbot/internal/config"
	"ragbot/internal/logging"
	"ragbot/internal/tui"
)

func main() {
	_ = godotenv.Load()

	var cfgPath, logPath string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/ragbot/config.yaml if not provided)")
	flag.StringVar(&logPath, "log", "", "Append logs to this file (default: discard while the UI runs)")
	flag.Parse()

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
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

	a, err := app.Build(context.Background(), cfg, prometheus.NewRegistry(), logger)
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}

	// the UI owns the terminal from here on
	var out io.Writer = io.Discard
	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			log.Fatalf("open log file: %v", err)
		}
		defer f.Close()
		out = f
	}
	logger.SetOutput(out)

	subtitle := fmt.Sprintf("retriever: %s  generator: %s", a.Retriever.Name(), a.Generator.Name())
	m := tui.New(a.Pipeline, subtitle, config.Duration(cfg.Server.RequestTimeoutSecs))
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		log.Fatal(err)
	}
}
