package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Game agrupa as métricas Prometheus do game-service.
// Implementa engine.Observer e fornece os callbacks do consumer do oráculo.
type Game struct {
	BetsAccepted   prometheus.Counter
	AmountWagered  prometheus.Counter
	BetsSettled    *prometheus.CounterVec // label outcome: win | lose
	AmountPaid     prometheus.Counter
	BetsRefunded   prometheus.Counter
	AmountRefunded prometheus.Counter
	PoolBalance    prometheus.Gauge
	PendingBets    prometheus.Gauge

	FulfillmentsConsumed  prometheus.Counter
	FulfillmentsDuplicate prometheus.Counter
	ConsumerErrors        *prometheus.CounterVec // label stage
}

// New cria e registra as métricas em reg
func New(reg prometheus.Registerer) *Game {
	g := &Game{
		BetsAccepted:   prometheus.NewCounter(prometheus.CounterOpts{Name: "game_bets_accepted_total", Help: "apostas aceitas"}),
		AmountWagered:  prometheus.NewCounter(prometheus.CounterOpts{Name: "game_amount_wagered_total", Help: "valor apostado (unidades mínimas)"}),
		BetsSettled:    prometheus.NewCounterVec(prometheus.CounterOpts{Name: "game_bets_settled_total", Help: "apostas liquidadas por resultado"}, []string{"outcome"}),
		AmountPaid:     prometheus.NewCounter(prometheus.CounterOpts{Name: "game_amount_paid_total", Help: "prêmios pagos (unidades mínimas)"}),
		BetsRefunded:   prometheus.NewCounter(prometheus.CounterOpts{Name: "game_bets_refunded_total", Help: "apostas estornadas"}),
		AmountRefunded: prometheus.NewCounter(prometheus.CounterOpts{Name: "game_amount_refunded_total", Help: "valor estornado (unidades mínimas)"}),
		PoolBalance:    prometheus.NewGauge(prometheus.GaugeOpts{Name: "game_pool_balance", Help: "saldo atual do pool"}),
		PendingBets:    prometheus.NewGauge(prometheus.GaugeOpts{Name: "game_pending_bets", Help: "apostas aguardando o oráculo"}),

		FulfillmentsConsumed:  prometheus.NewCounter(prometheus.CounterOpts{Name: "game_fulfillments_consumed_total", Help: "respostas do oráculo consumidas"}),
		FulfillmentsDuplicate: prometheus.NewCounter(prometheus.CounterOpts{Name: "game_fulfillments_ignored_total", Help: "respostas para requestId não pendente"}),
		ConsumerErrors:        prometheus.NewCounterVec(prometheus.CounterOpts{Name: "game_consumer_errors_total", Help: "erros do consumer por estágio"}, []string{"stage"}),
	}
	reg.MustRegister(
		g.BetsAccepted, g.AmountWagered, g.BetsSettled, g.AmountPaid,
		g.BetsRefunded, g.AmountRefunded, g.PoolBalance, g.PendingBets,
		g.FulfillmentsConsumed, g.FulfillmentsDuplicate, g.ConsumerErrors,
	)
	return g
}

func (g *Game) BetAccepted(amount uint64) {
	g.BetsAccepted.Inc()
	g.AmountWagered.Add(float64(amount))
}

func (g *Game) BetSettled(won bool, payout uint64) {
	outcome := "lose"
	if won {
		outcome = "win"
	}
	g.BetsSettled.WithLabelValues(outcome).Inc()
	g.AmountPaid.Add(float64(payout))
}

func (g *Game) BetRefunded(amount uint64) {
	g.BetsRefunded.Inc()
	g.AmountRefunded.Add(float64(amount))
}

func (g *Game) PoolChanged(balance uint64, pending int) {
	g.PoolBalance.Set(float64(balance))
	g.PendingBets.Set(float64(pending))
}

// callbacks do consumer
func (g *Game) OnConsumed()          { g.FulfillmentsConsumed.Inc() }
func (g *Game) OnDuplicate()         { g.FulfillmentsDuplicate.Inc() }
func (g *Game) OnError(stage string) { g.ConsumerErrors.WithLabelValues(stage).Inc() }
