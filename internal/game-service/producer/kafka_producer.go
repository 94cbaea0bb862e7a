package producer

import (
	"context"
	"errors"

	"github.com/radieske/gamble-game-poc/internal/shared/kafka"
	"github.com/radieske/gamble-game-poc/pkg/contracts/events"
)

// Publisher é implementado por todo destino de eventos do jogo
type Publisher interface {
	Publish(ctx context.Context, e events.GameEvent) error
}

// KafkaPublisher publica eventos do jogo no tópico game_events,
// particionados pelo requestId (ou pelo tipo, em eventos de tesouraria)
type KafkaPublisher struct {
	Writer kafka.MessageWriter
	Topic  string
}

func NewKafkaPublisher(w kafka.MessageWriter, topic string) *KafkaPublisher {
	return &KafkaPublisher{Writer: w, Topic: topic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e events.GameEvent) error {
	return kafka.WriteJSON(ctx, p.Writer, e.Key(), e)
}

// Fanout entrega cada evento a todos os destinos, mesmo que algum falhe
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, e events.GameEvent) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
