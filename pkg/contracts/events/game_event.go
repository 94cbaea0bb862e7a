package events

import "time"

// Tipos de evento emitidos pelo engine do jogo
const (
	TypeBetAccepted   = "BET_ACCEPTED"
	TypeBetSettled    = "BET_SETTLED"
	TypeBetRefunded   = "BET_REFUNDED"
	TypeFunded        = "FUNDED"
	TypeWithdrawn     = "WITHDRAWN"
	TypeConfigUpdated = "CONFIG_UPDATED"
)

// Resultados possíveis de uma aposta liquidada
const (
	OutcomeWin  = "WIN"
	OutcomeLose = "LOSE"
)

// GameEvent é o envelope único publicado no tópico "game_events" e no canal
// Redis de broadcast. Campos não usados pelo tipo ficam zerados.
type GameEvent struct {
	Type         string    `json:"type"`
	RequestID    string    `json:"request_id,omitempty"`
	Bettor       string    `json:"bettor,omitempty"`
	Amount       uint64    `json:"amount,omitempty"`
	Outcome      string    `json:"outcome,omitempty"` // WIN | LOSE
	Payout       uint64    `json:"payout"`
	Balance      uint64    `json:"balance"` // saldo do pool após o evento
	MinimumBet   uint64    `json:"minimum_bet,omitempty"`
	HouseEdgeBps uint64    `json:"house_edge_bps,omitempty"`
	Ts           time.Time `json:"ts"`
}

// Key retorna a chave de particionamento Kafka do evento
func (e GameEvent) Key() string {
	if e.RequestID != "" {
		return e.RequestID
	}
	return e.Type
}
