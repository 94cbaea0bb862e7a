package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/gamble-game-poc/pkg/contracts/events"
)

// Client é o subconjunto de *redis.Client usado pelo cache
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// BetResults guarda no Redis o desfecho de apostas encerradas (liquidadas ou
// estornadas), para consulta de status depois que saem do conjunto pendente.
// TTL: tempo de expiração dos registros
type BetResults struct {
	Client Client
	TTL    time.Duration
}

func NewBetResults(c Client, ttl time.Duration) *BetResults {
	return &BetResults{Client: c, TTL: ttl}
}

func key(requestID string) string { return "game:bet:" + requestID }

// Publish registra o evento final de uma aposta; demais eventos são ignorados
func (b *BetResults) Publish(ctx context.Context, e events.GameEvent) error {
	if e.Type != events.TypeBetSettled && e.Type != events.TypeBetRefunded {
		return nil
	}
	v, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return b.Client.Set(ctx, key(e.RequestID), v, b.TTL).Err()
}

// Get retorna o evento final da aposta, se ainda estiver em cache
func (b *BetResults) Get(ctx context.Context, requestID string) (events.GameEvent, bool, error) {
	raw, err := b.Client.Get(ctx, key(requestID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return events.GameEvent{}, false, nil
	}
	if err != nil {
		return events.GameEvent{}, false, err
	}
	var e events.GameEvent
	if err := json.Unmarshal(raw, &e); err != nil {
		return events.GameEvent{}, false, err
	}
	return e, true, nil
}
