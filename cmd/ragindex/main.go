package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"ragbot/internal/app"
	"ragbot/internal/config"
	"ragbot/internal/corpus"
	"ragbot/internal/indexer"
	"ragbot/internal/logging"
)

func main() {
	_ = godotenv.Load()

	var cfgPath, output string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/ragbot/config.yaml if not provided)")
	flag.StringVar(&output, "output", "", "Index file to write (default: index.output from config)")
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), "Usage: ragindex [--config=config.yaml] [--output=index.json] [file1.txt ...]")
		fmt.Fprintln(flag.CommandLine.Output(), "With no files, the built-in sentences are indexed.")
		flag.PrintDefaults()
	}
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
	if _, err := logging.Setup(cfg.Logging); err != nil {
		log.Fatalf("failed to configure logging: %v", err)
	}
	if output == "" {
		output = cfg.Index.Output
	}

	docs, err := corpus.LoadOrBuiltin(flag.Args())
	if err != nil {
		log.Fatalf("load corpus: %v", err)
	}
	svc, err := app.BuildIndexer(cfg.Index)
	if err != nil {
		log.Fatalf("indexer init failed: %v", err)
	}
	f, summary, err := svc.Build(context.Background(), docs)
	if err != nil {
		log.Fatalf("index failed: %v", err)
	}
	if err := indexer.Save(output, f); err != nil {
		log.Fatalf("write index: %v", err)
	}

	log.WithFields(log.Fields{
		"output":    output,
		"entries":   len(f.Entries),
		"embedder":  f.Embedder.Type,
		"dimension": f.Embedder.Dimension,
		"store":     f.Store.Type,
	}).Info("index written")
	fmt.Println(summary)
}
