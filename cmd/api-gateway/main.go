package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/gamble-game-poc/internal/api-gateway/gateway"
	"github.com/radieske/gamble-game-poc/internal/api-gateway/ws"
	"github.com/radieske/gamble-game-poc/internal/shared/cache"
	"github.com/radieske/gamble-game-poc/internal/shared/config"
	"github.com/radieske/gamble-game-poc/internal/shared/logger"
	"github.com/radieske/gamble-game-poc/internal/shared/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Redis Pub/Sub alimenta o relay de eventos do jogo
	rdb, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	hub := ws.NewHub(log.Named("ws"), func(r *http.Request) bool { return true })
	ws.StartRedisSubscriber(ctx, log.Named("ws"), rdb, cfg.RedisPubSubChannel, hub)

	router, err := gateway.Router(log, gateway.Targets{GameURL: cfg.GameURL, WalletURL: cfg.WalletURL}, hub.HandleWS)
	if err != nil {
		log.Fatal("gateway routes", zap.Error(err))
	}

	metricsSrv := metrics.StartMetricsServer(log, cfg.MetricsPort, func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("api-gateway listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("gateway failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
}
