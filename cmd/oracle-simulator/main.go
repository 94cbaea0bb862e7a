package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/gamble-game-poc/internal/oracle-simulator/simulator"
	"github.com/radieske/gamble-game-poc/internal/shared/config"
	"github.com/radieske/gamble-game-poc/internal/shared/kafka"
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

	requests := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicRandomnessRequested, "oracle-simulator")
	defer requests.Close()
	fulfillments := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicRandomnessFulfilled)
	defer fulfillments.Close()

	sim := &simulator.Simulator{
		Log:           log,
		Reader:        requests,
		Writer:        fulfillments,
		Metrics:       simulator.NewMetrics(prometheus.DefaultRegisterer),
		MaxDelay:      cfg.Oracle.MaxDelay,
		DropRate:      cfg.Oracle.DropRate,
		DuplicateRate: cfg.Oracle.DuplicateRate,
	}
	if err := sim.Validate(); err != nil {
		log.Fatal("oracle config", zap.Error(err))
	}

	// simulador não expõe HTTP público, só /metrics e /healthz
	metricsSrv := metrics.StartMetricsServer(log, cfg.MetricsPort, nil)

	log.Info("oracle simulator running",
		zap.Duration("max_delay", sim.MaxDelay),
		zap.Float64("drop_rate", sim.DropRate),
		zap.Float64("duplicate_rate", sim.DuplicateRate),
	)
	if err := sim.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("simulator stopped", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsSrv.Shutdown(shutdownCtx)
}
