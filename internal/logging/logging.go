// Package logging configures the process-wide logrus logger.
package logging

import (
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"

	"ragbot/internal/config"
)

// Setup applies level and format from cfg to the standard logrus logger and
// returns it. Logs go to stderr so the terminal client can own stdout.
func Setup(cfg config.LoggingConfig) (*log.Logger, error) {
	return configure(log.StandardLogger(), cfg, os.Stderr)
}

// New builds a standalone logger writing to out.
func New(cfg config.LoggingConfig, out io.Writer) (*log.Logger, error) {
	return configure(log.New(), cfg, out)
}

func configure(logger *log.Logger, cfg config.LoggingConfig, out io.Writer) (*log.Logger, error) {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}
	logger.SetLevel(level)
	logger.SetOutput(out)

	switch cfg.Format {
	case "json":
		logger.SetFormatter(&log.JSONFormatter{})
	case "text", "":
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("logging: unknown format %q", cfg.Format)
	}
	return logger, nil
}
