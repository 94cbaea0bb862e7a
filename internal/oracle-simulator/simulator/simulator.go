package simulator

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"
	mrand "math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/gamble-game-poc/internal/shared/kafka"
	"github.com/radieske/gamble-game-poc/pkg/contracts/events"
)

// maxValue = 2^256, teto exclusivo dos valores gerados
var maxValue = new(big.Int).Lsh(big.NewInt(1), 256)

// RandomValue sorteia um inteiro uniforme em [0, 2^256)
func RandomValue() (*big.Int, error) {
	return rand.Int(rand.Reader, maxValue)
}

// Simulator responde pedidos de aleatoriedade com atraso aleatório.
// Pode descartar pedidos (nunca responde) ou responder duas vezes,
// imitando um oráculo externo.
type Simulator struct {
	Log     *zap.Logger
	Reader  kafka.MessageReader
	Writer  kafka.MessageWriter
	Metrics *Metrics // opcional

	MaxDelay      time.Duration
	DropRate      float64
	DuplicateRate float64

	Rand  *mrand.Rand              // usado só pela goroutine de Run/Handle
	Value func() (*big.Int, error) // default RandomValue

	wg sync.WaitGroup
}

// Run consome pedidos até o contexto acabar e espera as respostas em voo
func (s *Simulator) Run(ctx context.Context) error {
	defer s.wg.Wait()
	for {
		m, err := s.Reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.Log.Warn("kafka fetch failed", zap.Error(err))
			s.fail("read")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(500 * time.Millisecond):
			}
			continue
		}

		s.Handle(ctx, m)

		if err := s.Reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
			s.Log.Warn("kafka commit failed", zap.Int64("offset", m.Offset), zap.Error(err))
			s.fail("commit")
		}
	}
}

// Handle decide o destino de um pedido e agenda a(s) resposta(s)
func (s *Simulator) Handle(ctx context.Context, m kafka.Message) {
	var req events.RandomnessRequested
	if err := json.Unmarshal(m.Value, &req); err != nil || req.RequestID == "" {
		s.Log.Warn("invalid randomness request", zap.Int64("offset", m.Offset), zap.Error(err))
		s.fail("decode")
		return
	}
	if s.Metrics != nil {
		s.Metrics.Requests.Inc()
	}

	if s.roll() < s.DropRate {
		s.Log.Info("request dropped", zap.String("requestId", req.RequestID))
		if s.Metrics != nil {
			s.Metrics.Dropped.Inc()
		}
		return
	}

	copies := 1
	if s.roll() < s.DuplicateRate {
		copies = 2
		if s.Metrics != nil {
			s.Metrics.Duplicated.Inc()
		}
	}
	delay := s.delay()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if delay > 0 {
			t := time.NewTimer(delay)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return
			case <-t.C:
			}
		}
		s.fulfill(ctx, req.RequestID, copies)
	}()
}

// Wait bloqueia até todas as respostas agendadas terminarem
func (s *Simulator) Wait() { s.wg.Wait() }

func (s *Simulator) fulfill(ctx context.Context, requestID string, copies int) {
	gen := s.Value
	if gen == nil {
		gen = RandomValue
	}
	v, err := gen()
	if err != nil {
		s.Log.Error("random value", zap.String("requestId", requestID), zap.Error(err))
		s.fail("random")
		return
	}

	// duplicatas repetem o mesmo valor
	resp := events.RandomnessFulfilled{RequestID: requestID, RandomValue: v.String()}
	for i := 0; i < copies; i++ {
		resp.TsUnixMs = time.Now().UnixMilli()
		if err := kafka.WriteJSON(ctx, s.Writer, requestID, resp); err != nil {
			s.Log.Error("publish fulfillment", zap.String("requestId", requestID), zap.Error(err))
			s.fail("publish")
			return
		}
		if s.Metrics != nil {
			s.Metrics.Fulfillments.Inc()
		}
	}
	s.Log.Debug("request fulfilled", zap.String("requestId", requestID), zap.Int("copies", copies))
}

func (s *Simulator) roll() float64 {
	if s.Rand == nil {
		return mrand.Float64()
	}
	return s.Rand.Float64()
}

func (s *Simulator) delay() time.Duration {
	if s.MaxDelay <= 0 {
		return 0
	}
	if s.Rand == nil {
		return mrand.N(s.MaxDelay + 1)
	}
	return time.Duration(s.Rand.Int64N(int64(s.MaxDelay) + 1))
}

func (s *Simulator) fail(stage string) {
	if s.Metrics != nil {
		s.Metrics.Errors.WithLabelValues(stage).Inc()
	}
}

// Validate confere as taxas configuradas
func (s *Simulator) Validate() error {
	if s.DropRate < 0 || s.DropRate > 1 {
		return fmt.Errorf("drop rate out of range: %v", s.DropRate)
	}
	if s.DuplicateRate < 0 || s.DuplicateRate > 1 {
		return fmt.Errorf("duplicate rate out of range: %v", s.DuplicateRate)
	}
	return nil
}
