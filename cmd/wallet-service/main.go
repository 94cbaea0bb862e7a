package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/gamble-game-poc/internal/shared/config"
	"github.com/radieske/gamble-game-poc/internal/shared/db"
	"github.com/radieske/gamble-game-poc/internal/shared/logger"
	"github.com/radieske/gamble-game-poc/internal/shared/metrics"
	whttp "github.com/radieske/gamble-game-poc/internal/wallet-service/http"
	wrepo "github.com/radieske/gamble-game-poc/internal/wallet-service/repo"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	// Inicializa logger estruturado
	log, err := logger.New("wallet-service", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("starting service", zap.String("service", "wallet-service"), zap.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Conexão com Postgres para operações de carteira
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	repo := wrepo.NewPostgres(pg)
	if err := repo.EnsureSchema(ctx); err != nil {
		log.Fatal("wallet schema", zap.Error(err))
	}
	api := whttp.NewServer(log, repo)

	// Servidor de métricas e health check
	metricsSrv := metrics.StartMetricsServer(log, cfg.MetricsPort, repo.Ping) // ex: 9098

	// Servidor HTTP público (API de wallet)
	apiSrv := &http.Server{
		Addr:              ":" + cfg.HTTPPort, // ex: 8082
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("api listening", zap.String("addr", apiSrv.Addr))
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("api srv", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = apiSrv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
}
