package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/radieske/gamble-game-poc/pkg/contracts/events"
)

const writeTimeout = 5 * time.Second

// conn serializa escritas: o gorilla/websocket aceita um único escritor por vez
type conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *conn) send(m ServerMsg) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.ws.WriteJSON(m)
}

// Hub gerencia conexões WebSocket e assinaturas por apostador
// subs: bettor (ou "*") -> conjunto de conexões inscritas
type Hub struct {
	log      *zap.Logger
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	subs     map[string]map[*conn]struct{}
}

// NewHub cria uma instância de Hub com política customizada de origem (CORS)
func NewHub(log *zap.Logger, allowOrigin func(r *http.Request) bool) *Hub {
	return &Hub{
		log:      log,
		upgrader: websocket.Upgrader{CheckOrigin: allowOrigin},
		subs:     make(map[string]map[*conn]struct{}),
	}
}

// HandleWS gerencia o ciclo de vida de uma conexão WebSocket.
// Cada cliente pode assinar vários apostadores; "*" recebe tudo.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	wsConn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	c := &conn{ws: wsConn}
	defer wsConn.Close()
	defer h.drop(c)

	for {
		var msg ClientMsg
		if err := wsConn.ReadJSON(&msg); err != nil {
			return
		}
		switch msg.Type {
		case "subscribe":
			if msg.Bettor == "" {
				_ = c.send(ServerMsg{Type: "error", Error: "bettor required"})
				continue
			}
			h.subscribe(c, msg.Bettor)
			_ = c.send(ServerMsg{Type: "subscribed", Bettor: msg.Bettor})
		case "unsubscribe":
			h.unsubscribe(c, msg.Bettor)
			_ = c.send(ServerMsg{Type: "unsubscribed", Bettor: msg.Bettor})
		case "ping":
			_ = c.send(ServerMsg{Type: "pong"})
		default:
			_ = c.send(ServerMsg{Type: "error", Error: "unknown message type"})
		}
	}
}

func (h *Hub) subscribe(c *conn, key string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[key]; !ok {
		h.subs[key] = make(map[*conn]struct{})
	}
	h.subs[key][c] = struct{}{}
}

func (h *Hub) unsubscribe(c *conn, key string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if m, ok := h.subs[key]; ok {
		delete(m, c)
		if len(m) == 0 {
			delete(h.subs, key)
		}
	}
}

// drop remove a conexão de todas as assinaturas ao desconectar
func (h *Hub) drop(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for key, set := range h.subs {
		delete(set, c)
		if len(set) == 0 {
			delete(h.subs, key)
		}
	}
}

// Subscribers retorna quantas conexões assinam a chave
func (h *Hub) Subscribers(key string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[key])
}

// Broadcast envia o evento aos inscritos no apostador e aos inscritos em "*".
// Uma conexão inscrita nos dois recebe uma única cópia.
func (h *Hub) Broadcast(e events.GameEvent) {
	h.mu.RLock()
	targets := make(map[*conn]struct{})
	for c := range h.subs[All] {
		targets[c] = struct{}{}
	}
	if e.Bettor != "" {
		for c := range h.subs[e.Bettor] {
			targets[c] = struct{}{}
		}
	}
	h.mu.RUnlock()

	msg := ServerMsg{Type: "event", Bettor: e.Bettor, Event: &e}
	for c := range targets {
		if err := c.send(msg); err != nil {
			h.log.Debug("ws write failed", zap.Error(err))
		}
	}
}
