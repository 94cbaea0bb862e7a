package ws

import "github.com/radieske/gamble-game-poc/pkg/contracts/events"

// All assina todos os eventos, inclusive os de tesouraria (sem apostador)
const All = "*"

// ClientMsg representa uma mensagem recebida do cliente WebSocket
type ClientMsg struct {
	Type   string `json:"type"`   // subscribe | unsubscribe | ping
	Bettor string `json:"bettor"` // id do apostador ou "*"
}

// ServerMsg é tudo que o hub escreve na conexão
type ServerMsg struct {
	Type   string            `json:"type"` // subscribed | unsubscribed | pong | event | error
	Bettor string            `json:"bettor,omitempty"`
	Event  *events.GameEvent `json:"event,omitempty"`
	Error  string            `json:"error,omitempty"`
}
