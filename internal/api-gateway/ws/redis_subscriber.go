package ws

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/radieske/gamble-game-poc/pkg/contracts/events"
)

// StartRedisSubscriber escuta o canal Redis Pub/Sub de eventos do jogo e
// repassa cada evento ao Hub. Encerra quando o contexto acaba.
func StartRedisSubscriber(ctx context.Context, log *zap.Logger, r *redis.Client, channel string, hub *Hub) {
	sub := r.Subscribe(ctx, channel)
	go func() {
		defer sub.Close() // encerra a inscrição ao finalizar o contexto
		Relay(ctx, log, sub.Channel(), hub)
	}()
}

// Relay consome mensagens até o canal fechar ou o contexto acabar
func Relay(ctx context.Context, log *zap.Logger, ch <-chan *redis.Message, hub *Hub) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if msg == nil {
				continue
			}
			var ev events.GameEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil || ev.Type == "" {
				log.Warn("ws subscriber: invalid game event", zap.String("channel", msg.Channel), zap.Error(err))
				continue
			}
			hub.Broadcast(ev)
		}
	}
}
