package engine

import (
	"context"
	"math"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/radieske/gamble-game-poc/pkg/contracts/events"
)

// Ledger guarda o saldo do pool, em unidades mínimas da moeda.
// O saldo nunca fica negativo: debit recusa qualquer valor acima dele.
type Ledger struct {
	balance uint64
}

// Balance retorna o saldo atual do pool
func (l Ledger) Balance() uint64 { return l.balance }

// credit soma amount ao saldo
func (l *Ledger) credit(amount uint64) error {
	if amount > math.MaxUint64-l.balance {
		return ErrBalanceOverflow
	}
	l.balance += amount
	return nil
}

// debit subtrai amount do saldo
func (l *Ledger) debit(amount uint64) error {
	if amount > l.balance {
		return ErrInsufficientFunds
	}
	l.balance -= amount
	return nil
}

// Fund deposita amount no pool (apenas operador). Os fundos já foram
// recolhidos pelo chamador antes desta chamada.
func (e *Engine) Fund(ctx context.Context, caller string, amount uint64) error {
	if err := e.access.RequireOwner(caller); err != nil {
		return err
	}
	if amount == 0 {
		return ErrInvalidAmount
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.st.clone()
	if err := next.ledger.credit(amount); err != nil {
		return err
	}
	if err := e.commit(ctx, next, nil); err != nil {
		return err
	}
	e.st = next

	e.log.Info("pool funded", zap.Uint64("amount", amount), zap.Uint64("balance", next.ledger.Balance()))
	e.emit(ctx, events.GameEvent{
		Type:    events.TypeFunded,
		Amount:  amount,
		Balance: next.ledger.Balance(),
		Ts:      e.now().UTC(),
	})
	return nil
}

// Withdraw retira amount do pool para a carteira do operador.
// Bloqueado enquanto houver qualquer aposta pendente, independente do valor.
// O saque é gravado na fila de transferências antes de chegar ao Payer.
func (e *Engine) Withdraw(ctx context.Context, caller string, amount uint64) error {
	if err := e.access.RequireOwner(caller); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.st.registry.Len() > 0 {
		return ErrSettlementInProgress
	}
	if amount == 0 {
		return ErrInvalidAmount
	}
	if e.transferMax > 0 && amount > e.transferMax {
		return ErrTransferTooLarge
	}

	next := e.st.clone()
	if err := next.ledger.debit(amount); err != nil {
		return err
	}
	next.enqueue(PendingTransfer{
		Ref:       "withdraw:" + uuid.NewString(),
		To:        e.access.Owner(),
		Amount:    amount,
		CreatedAt: e.now().UTC(),
	})

	if err := e.commit(ctx, next, nil); err != nil {
		return err
	}
	e.st = next

	e.log.Info("pool withdrawn", zap.Uint64("amount", amount), zap.Uint64("balance", next.ledger.Balance()))
	e.emit(ctx, events.GameEvent{
		Type:    events.TypeWithdrawn,
		Amount:  amount,
		Balance: next.ledger.Balance(),
		Ts:      e.now().UTC(),
	})
	e.payQueued(ctx)
	return nil
}
