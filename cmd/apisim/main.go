package main

import (
	"context"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"pharma-checkout/internal/config"
	"pharma-checkout/internal/order"
)

func main() {
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	pool, err := pgxpool.New(context.Background(), cfg.PostgresDSN)
	if err != nil {
		logger.Fatal("postgres connect", zap.Error(err))
	}
	defer pool.Close()

	repo := order.NewPGRepo(pool)
	r := newRouter(logger, repo, cfg.AuthToken, simLinks{
		publicURL:   cfg.SimPublicURL,
		deepLinkURL: cfg.SimDeepLinkURL,
	})

	logger.Info("apisim listening", zap.String("addr", cfg.SimAddr))
	if err := r.Run(cfg.SimAddr); err != nil {
		logger.Fatal("server", zap.Error(err))
	}
}
