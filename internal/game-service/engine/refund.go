package engine

import (
	"context"

	"go.uber.org/zap"

	"github.com/radieske/gamble-game-poc/pkg/contracts/events"
)

// RefundAll estorna todas as apostas pendentes (apenas operador).
//
// É o caminho de recuperação quando o oráculo nunca responde: tudo ou nada
// sobre o conjunto pendente atual. Os estornos entram na fila de
// transferências no mesmo commit, com ref "refund:<requestId>", e só então
// são enviados ao Payer. Com o conjunto vazio não faz nada.
func (e *Engine) RefundAll(ctx context.Context, caller string) ([]Bet, error) {
	if err := e.access.RequireOwner(caller); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	pending := e.st.registry.list()
	if len(pending) == 0 {
		return nil, nil
	}

	next := e.st.clone()
	now := e.now().UTC()
	refunded := make([]Bet, 0, len(pending))
	transitions := make([]Transition, 0, len(pending))

	for _, bet := range pending {
		if err := next.ledger.debit(bet.Amount); err != nil {
			return nil, e.invariant("refund", err,
				zap.String("requestId", bet.RequestID),
				zap.Uint64("amount", bet.Amount),
				zap.Uint64("balance", next.ledger.Balance()),
			)
		}
		next.registry.remove(bet.RequestID)
		next.enqueue(PendingTransfer{Ref: "refund:" + bet.RequestID, To: bet.Bettor, Amount: bet.Amount, CreatedAt: now})

		bet.Status = StatusRefunded
		refunded = append(refunded, bet)
		transitions = append(transitions, Transition{Bet: bet, From: StatusPending, At: now})
	}

	if err := e.commit(ctx, next, transitions); err != nil {
		return nil, err
	}
	e.st = next

	e.log.Info("unsettled bets refunded",
		zap.Int("count", len(refunded)),
		zap.Uint64("balance", next.ledger.Balance()),
	)

	evs := make([]events.GameEvent, 0, len(refunded))
	for _, bet := range refunded {
		e.obs.BetRefunded(bet.Amount)
		evs = append(evs, events.GameEvent{
			Type:      events.TypeBetRefunded,
			RequestID: bet.RequestID,
			Bettor:    bet.Bettor,
			Amount:    bet.Amount,
			Balance:   next.ledger.Balance(),
			Ts:        now,
		})
	}
	e.emit(ctx, evs...)
	e.payQueued(ctx)

	return refunded, nil
}
