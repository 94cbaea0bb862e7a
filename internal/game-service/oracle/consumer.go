package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/gamble-game-poc/internal/game-service/engine"
	"github.com/radieske/gamble-game-poc/internal/shared/kafka"
	"github.com/radieske/gamble-game-poc/pkg/contracts/events"
)

// Fulfiller liquida a aposta associada a um requestId
type Fulfiller interface {
	FulfillRandomness(ctx context.Context, requestID string, randomValue *big.Int) (engine.Settlement, error)
}

// DeadLetter é o payload publicado na DLQ quando uma resposta do oráculo
// não pôde ser aplicada
type DeadLetter struct {
	RequestID string `json:"request_id,omitempty"`
	Payload   string `json:"payload"`
	Reason    string `json:"reason"`
	Partition int    `json:"partition"`
	Offset    int64  `json:"offset"`
	TsUnixMs  int64  `json:"ts_unix_ms"`
}

// Consumer lê respostas do oráculo e liquida as apostas no engine.
// Respostas duplicadas ou atrasadas (ErrUnknownRequest) são descartadas;
// falhas transitórias são repetidas e, esgotadas as tentativas, vão para a DLQ.
type Consumer struct {
	Log    *zap.Logger
	Reader kafka.MessageReader
	Engine Fulfiller
	DLQ    kafka.MessageWriter // opcional

	Retries int           // tentativas extras após a primeira
	Backoff time.Duration // cresce linearmente por tentativa

	OnConsumed  func()         // métricas (counter++)
	OnSettled   func(won bool) // métricas
	OnDuplicate func()         // métricas
	OnError     func(string)   // métricas por fase
}

// Run inicia o loop de consumo. O offset só é confirmado depois que a
// mensagem foi aplicada ou enviada para a DLQ.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		m, err := c.Reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err() // encerra se o contexto for cancelado
			}
			c.Log.Warn("kafka fetch failed", zap.Error(err))
			c.fail("read")
			if !sleep(ctx, 500*time.Millisecond) {
				return ctx.Err()
			}
			continue
		}

		if c.OnConsumed != nil {
			c.OnConsumed()
		}

		c.Handle(ctx, m)
		if ctx.Err() != nil {
			return ctx.Err() // sem commit: a mensagem será relida
		}

		if err := c.Reader.CommitMessages(ctx, m); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.Log.Warn("kafka commit failed", zap.Int64("offset", m.Offset), zap.Error(err))
			c.fail("commit")
		}
	}
}

// Handle aplica uma mensagem de resposta do oráculo
func (c *Consumer) Handle(ctx context.Context, m kafka.Message) {
	var ev events.RandomnessFulfilled
	if err := json.Unmarshal(m.Value, &ev); err != nil || ev.RequestID == "" {
		c.Log.Warn("invalid fulfillment message", zap.Int64("offset", m.Offset), zap.Error(err))
		c.fail("decode")
		c.deadLetter(ctx, m, ev.RequestID, "decode")
		return
	}

	v, ok := new(big.Int).SetString(ev.RandomValue, 10)
	if !ok || v.Sign() < 0 {
		c.Log.Warn("invalid random value", zap.String("requestId", ev.RequestID), zap.String("value", ev.RandomValue))
		c.fail("decode")
		c.deadLetter(ctx, m, ev.RequestID, "invalid random value")
		return
	}

	var err error
	for attempt := 0; attempt <= c.Retries; attempt++ {
		if attempt > 0 && !sleep(ctx, time.Duration(attempt)*c.Backoff) {
			return
		}

		var res engine.Settlement
		res, err = c.Engine.FulfillRandomness(ctx, ev.RequestID, v)
		if err == nil {
			if c.OnSettled != nil {
				c.OnSettled(res.Won)
			}
			return
		}
		if errors.Is(err, engine.ErrUnknownRequest) {
			c.Log.Info("fulfillment ignored: request not pending", zap.String("requestId", ev.RequestID))
			if c.OnDuplicate != nil {
				c.OnDuplicate()
			}
			return
		}
		if !retryable(err) {
			break
		}
		c.Log.Warn("settle failed, retrying",
			zap.String("requestId", ev.RequestID), zap.Int("attempt", attempt+1), zap.Error(err))
	}

	c.Log.Error("settle failed", zap.String("requestId", ev.RequestID), zap.Error(err))
	c.fail("settle")
	c.deadLetter(ctx, m, ev.RequestID, err.Error())
}

func (c *Consumer) deadLetter(ctx context.Context, m kafka.Message, requestID, reason string) {
	if c.DLQ == nil {
		return
	}
	dl := DeadLetter{
		RequestID: requestID,
		Payload:   string(m.Value),
		Reason:    reason,
		Partition: m.Partition,
		Offset:    m.Offset,
		TsUnixMs:  time.Now().UnixMilli(),
	}
	key := requestID
	if key == "" {
		key = string(m.Key)
	}
	if err := kafka.WriteJSON(ctx, c.DLQ, key, dl); err != nil {
		c.Log.Error("dlq write failed", zap.String("requestId", requestID), zap.Error(err))
		c.fail("dlq")
	}
}

func (c *Consumer) fail(phase string) {
	if c.OnError != nil {
		c.OnError(phase)
	}
}

// retryable: erros de contabilidade ou de entrada não melhoram com nova tentativa
func retryable(err error) bool {
	return !errors.Is(err, engine.ErrInvariantViolation) && !errors.Is(err, engine.ErrInvalidRandomness)
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
