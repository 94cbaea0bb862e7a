package engine

import (
	"context"
	"math/big"

	"go.uber.org/zap"

	"github.com/radieske/gamble-game-poc/pkg/contracts/events"
)

// Settlement é o resultado da liquidação de uma aposta
type Settlement struct {
	RequestID string
	Bettor    string
	Won       bool
	Payout    uint64
}

// FulfillRandomness liquida a aposta do requestId com o valor entregue pelo oráculo.
//
// Um requestId fora do conjunto pendente (duplicado, atrasado após estorno,
// ou desconhecido) falha com ErrUnknownRequest sem alterar nada: a remoção do
// conjunto pendente é o que garante liquidação única.
//
// O prêmio vai para a fila de transferências no mesmo commit que remove a
// aposta. Uma falha do Payer não desfaz a liquidação: a transferência fica
// na fila com ref "payout:<requestId>".
func (e *Engine) FulfillRandomness(ctx context.Context, requestID string, randomValue *big.Int) (Settlement, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	bet, ok := e.st.registry.get(requestID)
	if !ok {
		e.log.Debug("fulfillment for unknown request", zap.String("requestId", requestID))
		return Settlement{}, ErrUnknownRequest
	}
	if randomValue == nil || randomValue.Sign() < 0 {
		return Settlement{}, ErrInvalidRandomness
	}

	next := e.st.clone()
	won := e.policy.Wins(randomValue)

	var payout uint64
	if won {
		payout = bet.Payout
		if err := next.ledger.debit(payout); err != nil {
			return Settlement{}, e.invariant("settle", err,
				zap.String("requestId", requestID),
				zap.Uint64("payout", payout),
				zap.Uint64("balance", e.st.ledger.Balance()),
			)
		}
	}
	next.registry.remove(requestID)

	now := e.now().UTC()
	if payout > 0 {
		next.enqueue(PendingTransfer{Ref: "payout:" + requestID, To: bet.Bettor, Amount: payout, CreatedAt: now})
	}

	outcome := events.OutcomeLose
	if won {
		outcome = events.OutcomeWin
	}
	settled := bet
	settled.Status = StatusSettled
	tr := Transition{Bet: settled, From: StatusPending, Outcome: outcome, At: now}
	if err := e.commit(ctx, next, []Transition{tr}); err != nil {
		return Settlement{}, err
	}
	e.st = next

	e.log.Info("bet settled",
		zap.String("requestId", requestID),
		zap.String("bettor", bet.Bettor),
		zap.String("outcome", outcome),
		zap.Uint64("payout", payout),
		zap.String("policy", e.policy.Name()),
	)
	e.obs.BetSettled(won, payout)
	e.emit(ctx, events.GameEvent{
		Type:      events.TypeBetSettled,
		RequestID: requestID,
		Bettor:    bet.Bettor,
		Amount:    bet.Amount,
		Outcome:   outcome,
		Payout:    payout,
		Balance:   next.ledger.Balance(),
		Ts:        now,
	})
	e.payQueued(ctx)

	return Settlement{RequestID: requestID, Bettor: bet.Bettor, Won: won, Payout: payout}, nil
}
