package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"casino-bot/internal/services"
)

const (
	writeWait      = 10 * time.Second
	clientSendSize = 16
	broadcastSize  = 256
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Message struct {
	Type     string `json:"type"`
	PlayerID string `json:"player_id,omitempty"`
	Data     any    `json:"data"`

	// target restricts delivery to one connection.
	target *Client
}

type Client struct {
	PlayerID string
	Conn     *websocket.Conn
	send     chan *Message
}

// WebSocketHub fans ledger changes out to connected players. A player may
// hold several connections.
type WebSocketHub struct {
	clients    map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
	done       chan struct{}
	logger     *zap.Logger
}

func NewWebSocketHub(logger *zap.Logger) *WebSocketHub {
	return &WebSocketHub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, broadcastSize),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

var _ services.Broadcaster = (*WebSocketHub)(nil)

// Run processes hub events until ctx is done.
func (hub *WebSocketHub) Run(ctx context.Context) {
	defer close(hub.done)
	for {
		select {
		case client := <-hub.register:
			conns, ok := hub.clients[client.PlayerID]
			if !ok {
				conns = make(map[*Client]struct{})
				hub.clients[client.PlayerID] = conns
			}
			conns[client] = struct{}{}
			hub.logger.Debug("client registered", zap.String("player_id", client.PlayerID))

		case client := <-hub.unregister:
			hub.remove(client)

		case message := <-hub.broadcast:
			hub.broadcastMessage(message)

		case <-ctx.Done():
			for _, conns := range hub.clients {
				for client := range conns {
					hub.remove(client)
				}
			}
			return
		}
	}
}

// Done is closed once the hub has stopped.
func (hub *WebSocketHub) Done() <-chan struct{} {
	return hub.done
}

// send hands ch a value unless the hub has stopped.
func send[T any](hub *WebSocketHub, ch chan T, v T) bool {
	select {
	case ch <- v:
		return true
	case <-hub.done:
		return false
	}
}

func (hub *WebSocketHub) remove(client *Client) {
	conns, ok := hub.clients[client.PlayerID]
	if !ok {
		return
	}
	if _, ok := conns[client]; !ok {
		return
	}
	delete(conns, client)
	close(client.send)
	if len(conns) == 0 {
		delete(hub.clients, client.PlayerID)
	}
	hub.logger.Debug("client unregistered", zap.String("player_id", client.PlayerID))
}

func (hub *WebSocketHub) deliver(client *Client, message *Message) {
	select {
	case client.send <- message:
	default:
		// A client that cannot keep up is dropped rather than stalling the hub.
		hub.remove(client)
	}
}

func (hub *WebSocketHub) broadcastMessage(message *Message) {
	if message.target != nil {
		if _, ok := hub.clients[message.PlayerID][message.target]; ok {
			hub.deliver(message.target, message)
		}
		return
	}
	if message.PlayerID != "" {
		for client := range hub.clients[message.PlayerID] {
			hub.deliver(client, message)
		}
		return
	}
	for _, conns := range hub.clients {
		for client := range conns {
			hub.deliver(client, message)
		}
	}
}

func (hub *WebSocketHub) publish(message *Message) {
	select {
	case hub.broadcast <- message:
	default:
		hub.logger.Warn("websocket broadcast queue full, dropping message", zap.String("type", message.Type))
	}
}

func (hub *WebSocketHub) BroadcastBalance(playerID string, coins int64) {
	hub.publish(&Message{
		Type:     "BALANCE_UPDATE",
		PlayerID: playerID,
		Data: gin.H{
			"coins":     coins,
			"timestamp": time.Now().Unix(),
		},
	})
}

func (hub *WebSocketHub) BroadcastJackpot(amount int64) {
	hub.publish(&Message{
		Type: "JACKPOT_UPDATE",
		Data: gin.H{
			"amount":    amount,
			"timestamp": time.Now().Unix(),
		},
	})
}

type WebSocketHandler struct {
	gameEngine *services.GameEngine
	hub        *WebSocketHub
	logger     *zap.Logger
}

func NewWebSocketHandler(gameEngine *services.GameEngine, hub *WebSocketHub, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		gameEngine: gameEngine,
		hub:        hub,
		logger:     logger,
	}
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	playerID := c.GetString("player_id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("failed to upgrade to websocket", zap.Error(err))
		return
	}

	client := &Client{
		PlayerID: playerID,
		Conn:     conn,
		send:     make(chan *Message, clientSendSize),
	}

	if result, err := h.gameEngine.Stats(c.Request.Context(), playerID); err == nil {
		client.send <- &Message{
			Type:     "BALANCE_UPDATE",
			PlayerID: playerID,
			Data: gin.H{
				"coins":     result.Balance,
				"timestamp": time.Now().Unix(),
			},
		}
	} else {
		h.logger.Warn("failed to get balance for websocket", zap.String("player_id", playerID), zap.Error(err))
	}

	if !send(h.hub, h.hub.register, client) {
		conn.Close()
		return
	}
	go h.writePump(client)

	defer func() {
		send(h.hub, h.hub.unregister, client)
		conn.Close()
	}()

	for {
		var msg Message
		err := conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn("websocket error", zap.Error(err))
			}
			break
		}

		h.handleMessage(client, &msg)
	}
}

func (h *WebSocketHandler) handleMessage(client *Client, msg *Message) {
	switch msg.Type {
	case "PING":
		send(h.hub, h.hub.broadcast, &Message{
			Type:     "PONG",
			PlayerID: client.PlayerID,
			target:   client,
			Data: gin.H{
				"timestamp": time.Now().Unix(),
			},
		})
	}
}

// writePump owns all writes to the connection.
func (h *WebSocketHandler) writePump(client *Client) {
	for message := range client.send {
		client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := client.Conn.WriteJSON(message); err != nil {
			client.Conn.Close()
			return
		}
	}
	client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}
