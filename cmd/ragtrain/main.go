package main

import (
	"flag"
	"fmt"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"ragbot/internal/config"
	"ragbot/internal/corpus"
	"ragbot/internal/generation/ngram"
	"ragbot/internal/logging"
)

func main() {
	_ = godotenv.Load()

	var cfgPath, output string
	var order int
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/ragbot/config.yaml if not provided)")
	flag.StringVar(&output, "output", "", "Weights file to write (default: generator.ngram.model_path from config)")
	flag.IntVar(&order, "order", 3, "Longest n-gram to count")
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), "Usage: ragtrain [--config=config.yaml] [--order=3] [--output=weights.json] [file1.txt ...]")
		fmt.Fprintln(flag.CommandLine.Output(), "With no files, the built-in sentences are used.")
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
	if output == "" && cfg.Generator.NGram != nil {
		output = cfg.Generator.NGram.ModelPath
	}
	if output == "" {
		output = "ragbot.ngram.json"
	}

	docs, err := corpus.LoadOrBuiltin(flag.Args())
	if err != nil {
		log.Fatalf("load corpus: %v", err)
	}
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}
	m, err := ngram.Train(texts, order)
	if err != nil {
		log.Fatalf("train failed: %v", err)
	}
	if err := m.Save(output); err != nil {
		log.Fatalf("write weights: %v", err)
	}
	log.WithFields(log.Fields{
		"output":   output,
		"order":    m.Order,
		"unigrams": len(m.Unigrams),
		"contexts": len(m.Contexts),
	}).Info("weights written")
}
