package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/gamble-game-poc/pkg/contracts/events"
)

// DefaultChannel é o canal Redis lido pelo relay de websocket
const DefaultChannel = "game_events_broadcast"

// Client é o subconjunto de *redis.Client usado pelo broadcaster
type Client interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisBroadcaster replica os eventos do jogo no Redis Pub/Sub
type RedisBroadcaster struct {
	r       Client
	channel string
}

func NewRedisBroadcaster(r Client, channel string) *RedisBroadcaster {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisBroadcaster{r: r, channel: channel}
}

func (b *RedisBroadcaster) Publish(ctx context.Context, e events.GameEvent) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal game event: %w", err)
	}
	return b.r.Publish(ctx, b.channel, payload).Err()
}
