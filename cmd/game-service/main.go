package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/gamble-game-poc/internal/game-service/cache"
	"github.com/radieske/gamble-game-poc/internal/game-service/engine"
	ghttp "github.com/radieske/gamble-game-poc/internal/game-service/http"
	gmetrics "github.com/radieske/gamble-game-poc/internal/game-service/metrics"
	"github.com/radieske/gamble-game-poc/internal/game-service/oracle"
	"github.com/radieske/gamble-game-poc/internal/game-service/producer"
	"github.com/radieske/gamble-game-poc/internal/game-service/pubsub"
	"github.com/radieske/gamble-game-poc/internal/game-service/repo"
	"github.com/radieske/gamble-game-poc/internal/game-service/wallet"
	scache "github.com/radieske/gamble-game-poc/internal/shared/cache"
	"github.com/radieske/gamble-game-poc/internal/shared/config"
	"github.com/radieske/gamble-game-poc/internal/shared/db"
	"github.com/radieske/gamble-game-poc/internal/shared/kafka"
	"github.com/radieske/gamble-game-poc/internal/shared/logger"
	smetrics "github.com/radieske/gamble-game-poc/internal/shared/metrics"
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

	// Persistência do estado do jogo
	dialect, err := repo.ParseDialect(cfg.StoreDriver)
	if err != nil {
		log.Fatal("store driver", zap.Error(err))
	}
	conn, err := openStore(dialect, cfg)
	if err != nil {
		log.Fatal("store connect", zap.String("driver", string(dialect)), zap.Error(err))
	}
	defer conn.Close()
	store := repo.NewSQLStore(conn, dialect)
	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatal("store schema", zap.Error(err))
	}

	// Redis: broadcast e cache de resultados
	rdb, err := scache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	// Kafka
	requests := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicRandomnessRequested)
	defer requests.Close()
	gameEvents := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicGameEvents)
	defer gameEvents.Close()
	dlq := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicRandomnessFulfilledDLQ)
	defer dlq.Close()
	fulfillments := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicRandomnessFulfilled, "game-service")
	defer fulfillments.Close()

	// deps
	mets := gmetrics.New(prometheus.DefaultRegisterer)
	policy, err := engine.PolicyByName(cfg.Game.OutcomePolicy, cfg.Game.WinThresholdBps)
	if err != nil {
		log.Fatal("outcome policy", zap.Error(err))
	}
	wcli := wallet.New(cfg.WalletURL)
	results := cache.NewBetResults(rdb, 24*time.Hour)
	publ := producer.Fanout{
		producer.NewKafkaPublisher(gameEvents, cfg.TopicGameEvents),
		pubsub.NewRedisBroadcaster(rdb, cfg.RedisPubSubChannel),
		results,
	}

	eng, err := engine.New(log, cfg.Game.OperatorID,
		engine.Config{MinimumBet: cfg.Game.MinimumBet, HouseEdgeBps: cfg.Game.HouseEdgeBps},
		oracle.NewClient(requests),
		engine.WithPayer(wcli),
		engine.WithStore(store),
		engine.WithPublisher(publ),
		engine.WithObserver(mets),
		engine.WithPolicy(policy),
		engine.WithTransferLimit(wallet.MaxTransfer),
	)
	if err != nil {
		log.Fatal("engine", zap.Error(err))
	}
	if err := eng.Restore(ctx); err != nil {
		log.Fatal("engine restore", zap.Error(err))
	}
	log.Info("engine ready",
		zap.String("operator", eng.Owner()),
		zap.Uint64("balance", eng.Balance()),
		zap.Int("pending", len(eng.UnsettledBets())),
		zap.String("policy", policy.Name()),
		zap.Int("queued_transfers", len(eng.PendingTransfers())),
	)

	// Transferências que ficaram na fila (carteira fora do ar ou processo anterior)
	if left, err := eng.DrainTransfers(ctx); err != nil {
		log.Warn("initial transfer drain", zap.Int("queued", left), zap.Error(err))
	}
	go eng.RunTransferRetry(ctx, cfg.Game.TransferRetryInterval)

	// Consumer das respostas do oráculo
	consumer := &oracle.Consumer{
		Log:         log.Named("oracle-consumer"),
		Reader:      fulfillments,
		Engine:      eng,
		DLQ:         dlq,
		Retries:     3,
		Backoff:     200 * time.Millisecond,
		OnConsumed:  mets.OnConsumed,
		OnDuplicate: mets.OnDuplicate,
		OnError:     mets.OnError,
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("oracle consumer stopped", zap.Error(err))
		}
	}()

	// metrics/health
	metricsSrv := smetrics.StartMetricsServer(log, cfg.MetricsPort, func(ctx context.Context) error {
		if err := store.Ping(ctx); err != nil {
			return err
		}
		return rdb.Ping(ctx).Err()
	})

	// HTTP público
	api := ghttp.NewServer(log, eng, wcli, results, store)
	apiSrv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("game-service listening", zap.String("addr", apiSrv.Addr))
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("api srv", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = apiSrv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
	<-done
}

func openStore(dialect repo.Dialect, cfg config.Config) (*sql.DB, error) {
	if dialect == repo.SQLite {
		return db.ConnectSQLite(cfg.SQLitePath)
	}
	return db.ConnectPostgres(cfg.PostgresDSN)
}
