package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"quranrag/internal/config"
	"quranrag/internal/domain"
	"quranrag/internal/embedding"
	"quranrag/internal/history"
	"quranrag/internal/llm"
	"quranrag/internal/loader"
	"quranrag/internal/observability"
	"quranrag/internal/server"
	"quranrag/internal/service"
	"quranrag/internal/vectorstore"
)

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Load the embedding stores and serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			return runServe(cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

func runServe(cfg *config.AppConfig) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, err := observability.InitTracing(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		tp.Shutdown(shutdownCtx)
	}()

	remote, err := embedding.NewRemote(cfg.Embedder)
	if err != nil {
		return fmt.Errorf("remote embedder: %w", err)
	}
	gen, err := llm.NewClient(llm.Config{
		BaseURL:     cfg.LLM.BaseURL,
		APIKeyEnv:   cfg.LLM.APIKeyEnv,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     time.Duration(cfg.LLM.TimeoutSecs) * time.Second,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("llm client: %w", err)
	}

	svc := service.NewRAGService(service.Config{
		Load: func(ctx context.Context) ([]vectorstore.Store, []domain.Document, error) {
			res, err := loader.Load(ctx, cfg.Stores, loader.Config{Remote: remote, Logger: logger})
			if err != nil {
				return nil, nil, err
			}
			return res.Stores, res.Documents, nil
		},
		Generator:   gen,
		History:     history.New(cfg.History.MaxTurns),
		TopK:        cfg.Retrieval.TopK,
		ContextMode: cfg.Retrieval.ContextMode,
		Logger:      logger,
	})
	defer svc.Close()

	srv := server.New(server.Config{Addr: cfg.Server.Addr, Service: svc, Logger: logger})

	// The API answers 503 until the stores are loaded; a load failure stops the process.
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	go func() {
		if err := svc.Load(ctx); err != nil {
			cancel(fmt.Errorf("load embeddings: %w", err))
		}
	}()

	if err := srv.Run(ctx); err != nil {
		return err
	}
	if err := context.Cause(ctx); err != nil && err != context.Canceled {
		return err
	}
	return nil
}
