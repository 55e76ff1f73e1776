package websocket

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/wricardo/aitown/internal/engine"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins in development.
		// TODO: restrict this once a deployment target is known.
		return true
	},
}

// Message is the wire envelope pushed to every client subscribed to a
// world. EngineStatus carries the engine document (§6 engineStatus);
// History carries one changed record's packed sample blob, base64
// encoded for JSON transport, keyed by its record id (§4.2).
type Message struct {
	WorldID      string          `json:"worldId"`
	Event        string          `json:"event"`
	EngineStatus *engine.Doc     `json:"engineStatus,omitempty"`
	RecordID     string          `json:"recordId,omitempty"`
	History      string          `json:"history,omitempty"`
	Data         interface{}     `json:"data,omitempty"`
}

// Client is one subscribed WebSocket connection.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	worldID string
}

// Hub fans out broadcasts to every client subscribed to a world.
type Hub struct {
	worlds     map[string]map[*Client]bool
	broadcast  chan *Message
	register   chan *Client
	unregister chan *Client
	log        *log.Logger
}

// NewHub creates a Hub. Call Run in its own goroutine before serving.
func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{
		worlds:     make(map[string]map[*Client]bool),
		broadcast:  make(chan *Message),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		log:        logger,
	}
}

// Run drives the hub's event loop until the process exits.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)
		case client := <-h.unregister:
			h.unregisterClient(client)
		case message := <-h.broadcast:
			h.broadcastMessage(message)
		}
	}
}

// ServeWS upgrades r into a WebSocket connection subscribed to worldID.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, worldID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("websocket upgrade failed", "err", err)
		return
	}

	client := &Client{hub: h, conn: conn, send: make(chan []byte, 256), worldID: worldID}
	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}

// BroadcastEngineStatus pushes a world's current engine document to
// every subscriber, the "client subscribes to the engine status
// record" feed of §2.
func (h *Hub) BroadcastEngineStatus(worldID string, status engine.Doc) {
	h.broadcast <- &Message{WorldID: worldID, Event: "engineStatus", EngineStatus: &status}
}

// BroadcastHistory pushes one historical record's packed sample blob,
// the "or any historical record" half of §2's client subscription.
func (h *Hub) BroadcastHistory(worldID, recordID string, blob []byte) {
	h.broadcast <- &Message{
		WorldID:  worldID,
		Event:    "history",
		RecordID: recordID,
		History:  base64.StdEncoding.EncodeToString(blob),
	}
}

func (h *Hub) registerClient(client *Client) {
	if h.worlds[client.worldID] == nil {
		h.worlds[client.worldID] = make(map[*Client]bool)
	}
	h.worlds[client.worldID][client] = true
	h.log.Debug("client registered", "world", client.worldID, "total", len(h.worlds[client.worldID]))
}

func (h *Hub) unregisterClient(client *Client) {
	clients, ok := h.worlds[client.worldID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.worlds, client.worldID)
	}
	h.log.Debug("client unregistered", "world", client.worldID, "remaining", len(clients))
}

func (h *Hub) broadcastMessage(message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		h.log.Error("failed to marshal broadcast message", "err", err)
		return
	}
	for client := range h.worlds[message.WorldID] {
		select {
		case client.send <- data:
		default:
			h.unregisterClient(client)
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		// Clients are read-only observers; we only drain the socket to
		// notice disconnects and keep the pong handler alive.
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}
			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
