package oracle

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/radieske/gamble-game-poc/internal/shared/kafka"
	"github.com/radieske/gamble-game-poc/pkg/contracts/events"
)

// Client pede aleatoriedade publicando no tópico randomness_requested.
// A resposta volta de forma assíncrona pelo tópico randomness_fulfilled (ver Consumer).
type Client struct {
	w   kafka.MessageWriter
	now func() time.Time
}

func NewClient(w kafka.MessageWriter) *Client {
	return &Client{w: w, now: time.Now}
}

// RequestRandomness gera o requestId e publica o pedido, com o id como chave
func (c *Client) RequestRandomness(ctx context.Context) (string, error) {
	id := uuid.NewString()
	req := events.RandomnessRequested{
		RequestID: id,
		NumWords:  1,
		TsUnixMs:  c.now().UnixMilli(),
	}
	if err := kafka.WriteJSON(ctx, c.w, id, req); err != nil {
		return "", fmt.Errorf("publish randomness request: %w", err)
	}
	return id, nil
}
