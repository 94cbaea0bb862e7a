package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/gamble-game-poc/pkg/contracts/events"
)

// Config são os parâmetros do jogo ajustáveis pelo operador
type Config struct {
	MinimumBet   uint64
	HouseEdgeBps uint64 // 0..10000
}

// Oracle pede aleatoriedade ao colaborador externo. A resposta chega depois,
// fora desta chamada, no máximo uma vez por requestId (ou nunca).
type Oracle interface {
	RequestRandomness(ctx context.Context) (requestID string, err error)
}

// Payer transfere fundos do pool para uma carteira. Implementações devem ser
// idempotentes por ref: uma transferência que falhou fica na fila e é reenviada
// com a mesma ref até ser confirmada.
type Payer interface {
	Transfer(ctx context.Context, to string, amount uint64, ref string) error
}

// Store persiste o estado do jogo e o histórico de transições de apostas
// numa única transação.
type Store interface {
	Commit(ctx context.Context, snap Snapshot, transitions []Transition) error
	Load(ctx context.Context) (snap Snapshot, found bool, err error)
}

// Publisher entrega eventos do jogo para observadores externos
type Publisher interface {
	Publish(ctx context.Context, e events.GameEvent) error
}

// Observer recebe notificações síncronas para métricas
type Observer interface {
	BetAccepted(amount uint64)
	BetSettled(won bool, payout uint64)
	BetRefunded(amount uint64)
	PoolChanged(balance uint64, pending int)
}

// Snapshot é o estado durável do jogo
type Snapshot struct {
	Balance   uint64
	Config    Config
	Pending   []Bet
	Transfers []PendingTransfer
}

// Transition registra a mudança de status de uma aposta (histórico)
type Transition struct {
	Bet     Bet // já com o status novo
	From    Status
	Outcome string
	At      time.Time
}

type state struct {
	ledger   Ledger
	cfg      Config
	registry Registry
	outbox   []PendingTransfer
}

func (s state) clone() state {
	return state{
		ledger:   s.ledger,
		cfg:      s.cfg,
		registry: s.registry.clone(),
		outbox:   append([]PendingTransfer(nil), s.outbox...),
	}
}

func (s state) snapshot() Snapshot {
	return Snapshot{
		Balance:   s.ledger.Balance(),
		Config:    s.cfg,
		Pending:   s.registry.list(),
		Transfers: append([]PendingTransfer(nil), s.outbox...),
	}
}

// Engine é o agregado único do jogo: ledger, config e apostas pendentes.
// Toda operação pública roda sob o mesmo mutex e é atômica: as mudanças são
// feitas numa cópia do estado, que só substitui o atual após o commit no Store.
type Engine struct {
	log    *zap.Logger
	access AccessControl
	oracle Oracle
	payer  Payer
	store  Store
	publ   Publisher
	obs    Observer
	policy OutcomePolicy
	now    func() time.Time

	transferMax uint64 // 0 = sem limite

	mu sync.Mutex
	st state
}

type Option func(*Engine)

func WithPayer(p Payer) Option              { return func(e *Engine) { e.payer = p } }
func WithStore(s Store) Option              { return func(e *Engine) { e.store = s } }
func WithPublisher(p Publisher) Option      { return func(e *Engine) { e.publ = p } }
func WithObserver(o Observer) Option        { return func(e *Engine) { e.obs = o } }
func WithPolicy(p OutcomePolicy) Option     { return func(e *Engine) { e.policy = p } }
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// WithTransferLimit limita o valor de uma única transferência do pool.
// Apostas cujo prêmio passa do limite e saques acima dele são recusados no aceite.
func WithTransferLimit(max uint64) Option { return func(e *Engine) { e.transferMax = max } }

// New cria o engine com saldo zero e nenhuma aposta pendente.
// Use Restore para recarregar o estado persistido.
func New(log *zap.Logger, owner string, cfg Config, oracle Oracle, opts ...Option) (*Engine, error) {
	if owner == "" {
		return nil, errors.New("operator identity required")
	}
	if oracle == nil {
		return nil, errors.New("randomness oracle required")
	}
	if cfg.HouseEdgeBps > bpsDenominator {
		return nil, ErrInvalidHouseEdge
	}
	if log == nil {
		log = zap.NewNop()
	}

	e := &Engine{
		log:    log,
		access: NewAccessControl(owner),
		oracle: oracle,
		payer:  nopPayer{},
		publ:   nopPublisher{},
		obs:    nopObserver{},
		policy: ParityPolicy{},
		now:    time.Now,
		st:     state{cfg: cfg, registry: newRegistry()},
	}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

// Restore recarrega o estado salvo no Store, se existir.
// A config persistida prevalece sobre a de ambiente.
func (e *Engine) Restore(ctx context.Context) error {
	if e.store == nil {
		return nil
	}
	snap, found, err := e.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load game state: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !found {
		// primeira execução: grava a config inicial
		return e.store.Commit(ctx, e.st.snapshot(), nil)
	}

	st := state{
		ledger:   Ledger{balance: snap.Balance},
		cfg:      snap.Config,
		registry: newRegistry(),
		outbox:   append([]PendingTransfer(nil), snap.Transfers...),
	}
	for _, b := range snap.Pending {
		if err := st.registry.insert(b); err != nil {
			return fmt.Errorf("restore pending bet: %w", err)
		}
	}
	if st.registry.Reserved() > st.ledger.Balance() {
		return fmt.Errorf("%w: restored exposure %d exceeds balance %d",
			ErrInvariantViolation, st.registry.Reserved(), st.ledger.Balance())
	}
	e.st = st
	e.obs.PoolChanged(st.ledger.Balance(), st.registry.Len())

	e.log.Info("game state restored",
		zap.Uint64("balance", snap.Balance),
		zap.Int("pending", len(snap.Pending)),
		zap.Int("queued_transfers", len(snap.Transfers)),
		zap.Uint64("minimum_bet", snap.Config.MinimumBet),
		zap.Uint64("house_edge_bps", snap.Config.HouseEdgeBps),
	)
	return nil
}

// Owner retorna a identidade do operador
func (e *Engine) Owner() string { return e.access.Owner() }

// Balance retorna o saldo atual do pool
func (e *Engine) Balance() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.st.ledger.Balance()
}

// UnsettledBets retorna as apostas pendentes em ordem de aceite
func (e *Engine) UnsettledBets() []Bet {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.st.registry.list()
}

// Config retorna a config atual do jogo
func (e *Engine) Config() Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.st.cfg
}

// UpdateMinimumBet altera a aposta mínima (apenas operador)
func (e *Engine) UpdateMinimumBet(ctx context.Context, caller string, value uint64) error {
	if err := e.access.RequireOwner(caller); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.st.clone()
	next.cfg.MinimumBet = value
	if err := e.commit(ctx, next, nil); err != nil {
		return err
	}
	e.st = next

	e.log.Info("minimum bet updated", zap.Uint64("minimum_bet", value))
	e.emit(ctx, e.configEvent())
	return nil
}

// UpdateHouseEdge altera a margem da casa em basis points (apenas operador).
// Vale só para apostas aceitas depois da mudança: o prêmio de cada aposta é
// congelado no aceite (Bet.Payout) e a liquidação paga esse valor, não recalcula
// com a margem vigente. Assim a exposição reservada no aceite nunca cresce
// enquanto a aposta está pendente.
func (e *Engine) UpdateHouseEdge(ctx context.Context, caller string, bps uint64) error {
	if err := e.access.RequireOwner(caller); err != nil {
		return err
	}
	if bps > bpsDenominator {
		return ErrInvalidHouseEdge
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.st.clone()
	next.cfg.HouseEdgeBps = bps
	if err := e.commit(ctx, next, nil); err != nil {
		return err
	}
	e.st = next

	e.log.Info("house edge updated", zap.Uint64("house_edge_bps", bps))
	e.emit(ctx, e.configEvent())
	return nil
}

// commit persiste o próximo estado; deve ser chamado com o mutex travado
func (e *Engine) commit(ctx context.Context, next state, transitions []Transition) error {
	if e.store == nil {
		return nil
	}
	if err := e.store.Commit(ctx, next.snapshot(), transitions); err != nil {
		return fmt.Errorf("commit game state: %w", err)
	}
	return nil
}

// emit publica eventos após o commit; falha de publicação não desfaz a operação
func (e *Engine) emit(ctx context.Context, evs ...events.GameEvent) {
	for _, ev := range evs {
		if err := e.publ.Publish(ctx, ev); err != nil {
			e.log.Warn("publish game event", zap.String("type", ev.Type), zap.String("requestId", ev.RequestID), zap.Error(err))
		}
	}
	e.obs.PoolChanged(e.st.ledger.Balance(), e.st.registry.Len())
}

func (e *Engine) configEvent() events.GameEvent {
	return events.GameEvent{
		Type:         events.TypeConfigUpdated,
		Balance:      e.st.ledger.Balance(),
		MinimumBet:   e.st.cfg.MinimumBet,
		HouseEdgeBps: e.st.cfg.HouseEdgeBps,
		Ts:           e.now().UTC(),
	}
}

// invariant registra uma violação de contabilidade. DPanic derruba o processo
// com o logger de desenvolvimento; em produção apenas loga e a operação aborta.
func (e *Engine) invariant(op string, err error, fields ...zap.Field) error {
	fields = append(fields, zap.String("op", op), zap.Error(err))
	e.log.DPanic("ledger invariant violated", fields...)
	return fmt.Errorf("%s: %w: %w", op, ErrInvariantViolation, err)
}

type nopPayer struct{}

func (nopPayer) Transfer(context.Context, string, uint64, string) error { return nil }

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, events.GameEvent) error { return nil }

type nopObserver struct{}

func (nopObserver) BetAccepted(uint64)      {}
func (nopObserver) BetSettled(bool, uint64) {}
func (nopObserver) BetRefunded(uint64)      {}
func (nopObserver) PoolChanged(uint64, int) {}
