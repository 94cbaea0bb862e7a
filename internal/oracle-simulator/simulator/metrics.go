package simulator

import "github.com/prometheus/client_golang/prometheus"

// Metrics contabiliza o comportamento simulado do oráculo
type Metrics struct {
	Requests     prometheus.Counter
	Fulfillments prometheus.Counter
	Dropped      prometheus.Counter
	Duplicated   prometheus.Counter
	Errors       *prometheus.CounterVec // label stage
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests:     prometheus.NewCounter(prometheus.CounterOpts{Name: "oracle_requests_total", Help: "pedidos de aleatoriedade recebidos"}),
		Fulfillments: prometheus.NewCounter(prometheus.CounterOpts{Name: "oracle_fulfillments_total", Help: "respostas publicadas"}),
		Dropped:      prometheus.NewCounter(prometheus.CounterOpts{Name: "oracle_dropped_total", Help: "pedidos que nunca serão respondidos"}),
		Duplicated:   prometheus.NewCounter(prometheus.CounterOpts{Name: "oracle_duplicated_total", Help: "pedidos respondidos duas vezes"}),
		Errors:       prometheus.NewCounterVec(prometheus.CounterOpts{Name: "oracle_errors_total", Help: "erros por estágio"}, []string{"stage"}),
	}
	reg.MustRegister(m.Requests, m.Fulfillments, m.Dropped, m.Duplicated, m.Errors)
	return m
}
