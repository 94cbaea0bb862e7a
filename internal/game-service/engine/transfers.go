package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// PendingTransfer é um pagamento já debitado do pool e gravado no mesmo commit
// da transição que o originou. Só sai da fila quando o Payer confirma.
type PendingTransfer struct {
	Ref       string
	To        string
	Amount    uint64
	CreatedAt time.Time
}

func (s *state) enqueue(t PendingTransfer) {
	s.outbox = append(s.outbox, t)
}

// PendingTransfers retorna as transferências ainda não confirmadas pelo Payer
func (e *Engine) PendingTransfers() []PendingTransfer {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]PendingTransfer(nil), e.st.outbox...)
}

// DrainTransfers reenvia as transferências pendentes e retorna quantas
// continuam na fila.
func (e *Engine) DrainTransfers(ctx context.Context) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	err := e.flush(ctx)
	return len(e.st.outbox), err
}

// RunTransferRetry chama DrainTransfers a cada interval até o ctx ser cancelado
func (e *Engine) RunTransferRetry(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if left, err := e.DrainTransfers(ctx); err != nil {
				e.log.Warn("transfer retry", zap.Int("queued", left), zap.Error(err))
			}
		}
	}
}

// payQueued tenta pagar a fila logo após uma operação; deve ser chamado com o
// mutex travado e depois do commit. Falhas ficam para RunTransferRetry.
func (e *Engine) payQueued(ctx context.Context) {
	if err := e.flush(ctx); err != nil {
		e.log.Warn("transfers queued for retry", zap.Int("queued", len(e.st.outbox)), zap.Error(err))
	}
}

// flush envia cada transferência da fila e grava a fila sem as confirmadas.
// Se esse commit falhar as confirmadas continuam na fila e serão reenviadas
// com a mesma ref.
func (e *Engine) flush(ctx context.Context) error {
	if len(e.st.outbox) == 0 {
		return nil
	}

	next := e.st.clone()
	next.outbox = next.outbox[:0]
	var errs []error
	for _, t := range e.st.outbox {
		if err := e.payer.Transfer(ctx, t.To, t.Amount, t.Ref); err != nil {
			next.outbox = append(next.outbox, t)
			errs = append(errs, fmt.Errorf("transfer %s: %w", t.Ref, err))
			continue
		}
		e.log.Info("transfer confirmed", zap.String("ref", t.Ref), zap.String("to", t.To), zap.Uint64("amount", t.Amount))
	}

	if len(next.outbox) < len(e.st.outbox) {
		if err := e.commit(ctx, next, nil); err != nil {
			return errors.Join(append(errs, err)...)
		}
		e.st = next
	}
	return errors.Join(errs...)
}
