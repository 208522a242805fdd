package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"quranrag/internal/config"
)

var (
	configPath string
	logger     = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
)

func main() {
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:           "quranrag",
		Short:         "Question answering over Quran and tafsir embedding stores",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.yaml (default: ./config.yaml, then ~/.config/quranrag/config.yaml)")

	root.AddCommand(serveCmd())
	root.AddCommand(chatCmd())
	root.AddCommand(askCmd())

	if err := root.Execute(); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.AppConfig, error) {
	var (
		cfg  *config.AppConfig
		path = configPath
		err  error
	)
	if path == "" {
		cfg, path, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(path)
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger = newLogger(cfg.Log)
	logger.Debug("config loaded", "path", path)
	return cfg, nil
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(cfg.Format) == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
