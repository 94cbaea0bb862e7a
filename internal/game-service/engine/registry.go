package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/gamble-game-poc/pkg/contracts/events"
)

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusSettled  Status = "SETTLED"
	StatusRefunded Status = "REFUNDED"
)

// Bet é uma aposta aceita pelo jogo.
// Payout é o prêmio em caso de vitória, calculado com a margem da casa
// vigente no momento do aceite.
type Bet struct {
	RequestID string
	Bettor    string
	Amount    uint64
	Payout    uint64
	PlacedAt  time.Time
	Status    Status
}

// Liability é quanto do pool fica comprometido enquanto a aposta está pendente:
// o maior entre o prêmio (vitória) e o valor apostado (estorno).
func (b Bet) Liability() uint64 {
	if b.Payout > b.Amount {
		return b.Payout
	}
	return b.Amount
}

// Registry é o conjunto de apostas pendentes, indexado pelo requestId do oráculo.
// Só contém apostas PENDING; sair do mapa é o que garante liquidação única.
type Registry struct {
	pending  map[string]Bet
	reserved uint64 // soma de Liability() das pendentes
}

func newRegistry() Registry {
	return Registry{pending: make(map[string]Bet)}
}

func (r Registry) clone() Registry {
	c := Registry{pending: make(map[string]Bet, len(r.pending)), reserved: r.reserved}
	for id, b := range r.pending {
		c.pending[id] = b
	}
	return c
}

// Len retorna a quantidade de apostas pendentes
func (r Registry) Len() int { return len(r.pending) }

// Reserved retorna a exposição total das apostas pendentes
func (r Registry) Reserved() uint64 { return r.reserved }

func (r Registry) get(requestID string) (Bet, bool) {
	b, ok := r.pending[requestID]
	return b, ok
}

func (r *Registry) insert(b Bet) error {
	if _, ok := r.pending[b.RequestID]; ok {
		return fmt.Errorf("duplicate request id %q", b.RequestID)
	}
	b.Status = StatusPending
	r.pending[b.RequestID] = b
	r.reserved += b.Liability()
	return nil
}

func (r *Registry) remove(requestID string) (Bet, bool) {
	b, ok := r.pending[requestID]
	if !ok {
		return Bet{}, false
	}
	delete(r.pending, requestID)
	r.reserved -= b.Liability()
	return b, true
}

// list retorna as pendentes em ordem de aceite (desempate pelo requestId)
func (r Registry) list() []Bet {
	out := make([]Bet, 0, len(r.pending))
	for _, b := range r.pending {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PlacedAt.Equal(out[j].PlacedAt) {
			return out[i].PlacedAt.Before(out[j].PlacedAt)
		}
		return out[i].RequestID < out[j].RequestID
	})
	return out
}

// quote valida uma nova aposta contra a config e a capacidade do pool.
// O pool (já somado ao valor apostado) precisa cobrir a exposição atual
// mais a exposição da nova aposta.
func quote(amount uint64, cfg Config, balance, reserved uint64) (Bet, error) {
	if amount == 0 || amount < cfg.MinimumBet {
		return Bet{}, ErrBetTooSmall
	}
	payout, ok := WinPayout(amount, cfg.HouseEdgeBps)
	if !ok {
		return Bet{}, ErrBetTooLarge
	}
	b := Bet{Amount: amount, Payout: payout}

	if amount > ^uint64(0)-balance {
		return Bet{}, ErrBetTooLarge
	}
	available := balance + amount
	if reserved > available || b.Liability() > available-reserved {
		return Bet{}, ErrBetTooLarge
	}
	return b, nil
}

// AcceptBet aceita uma aposta: o valor entra no pool na hora, um pedido de
// aleatoriedade é emitido e a aposta fica pendente sob o requestId devolvido.
// Os fundos já foram recolhidos pelo chamador antes desta chamada.
func (e *Engine) AcceptBet(ctx context.Context, bettor string, amount uint64) (string, error) {
	if bettor == "" {
		return "", ErrInvalidBettor
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.st.clone()
	bet, err := quote(amount, next.cfg, next.ledger.Balance(), next.registry.Reserved())
	if err != nil {
		return "", err
	}
	if e.transferMax > 0 && bet.Liability() > e.transferMax {
		return "", ErrBetTooLarge
	}
	if err := next.ledger.credit(amount); err != nil {
		return "", err
	}

	requestID, err := e.oracle.RequestRandomness(ctx)
	if err != nil {
		return "", fmt.Errorf("request randomness: %w", err)
	}

	bet.RequestID = requestID
	bet.Bettor = bettor
	bet.PlacedAt = e.now().UTC()
	bet.Status = StatusPending
	if err := next.registry.insert(bet); err != nil {
		return "", err
	}

	tr := Transition{Bet: bet, At: bet.PlacedAt}
	if err := e.commit(ctx, next, []Transition{tr}); err != nil {
		return "", err
	}
	e.st = next

	e.log.Info("bet accepted",
		zap.String("requestId", requestID),
		zap.String("bettor", bettor),
		zap.Uint64("amount", amount),
		zap.Uint64("payout", bet.Payout),
	)
	e.obs.BetAccepted(amount)
	e.emit(ctx, events.GameEvent{
		Type:      events.TypeBetAccepted,
		RequestID: requestID,
		Bettor:    bettor,
		Amount:    amount,
		Balance:   next.ledger.Balance(),
		Ts:        bet.PlacedAt,
	})
	return requestID, nil
}
