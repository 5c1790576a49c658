package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"nhooyr.io/websocket"
)

// WebSocketHub fans extraction events out to connected operational clients
// (dashboards, debugging tools). Clients that stop reading are disconnected
// rather than allowed to stall the broadcast loop.
type WebSocketHub struct {
	originPatterns []string

	clients    map[wsClient]bool
	broadcast  chan interface{}
	register   chan wsClient
	unregister chan wsClient
	mu         sync.Mutex
	ctx        context.Context
	cancel     context.CancelFunc
}

// wsClient abstracts a connection so tests can register fakes.
type wsClient interface {
	sendChannel() chan []byte
	closeConn()
}

// NewWebSocketHub creates a hub that accepts upgrades from the given origin
// patterns (e.g. "localhost:7171").
func NewWebSocketHub(originPatterns []string) *WebSocketHub {
	ctx, cancel := context.WithCancel(context.Background())
	return &WebSocketHub{
		originPatterns: originPatterns,
		clients:        make(map[wsClient]bool),
		broadcast:      make(chan interface{}, 256),
		register:       make(chan wsClient),
		unregister:     make(chan wsClient),
		ctx:            ctx,
		cancel:         cancel,
	}
}

// Run is the hub's event loop. Start it on its own goroutine.
func (h *WebSocketHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			log.Printf("websocket client connected (total: %d)", count)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.sendChannel())
			}
			count := len(h.clients)
			h.mu.Unlock()
			log.Printf("websocket client disconnected (total: %d)", count)

		case message := <-h.broadcast:
			data, err := json.Marshal(message)
			if err != nil {
				log.Printf("ERROR: handlers: failed to marshal websocket message: %v", err)
				continue
			}
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.sendChannel() <- data:
				default:
					// Slow consumer; cut it loose.
					close(client.sendChannel())
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()

		case <-h.ctx.Done():
			return
		}
	}
}

// Stop shuts the hub down and disconnects all clients.
func (h *WebSocketHub) Stop() {
	h.cancel()

	h.mu.Lock()
	for client := range h.clients {
		close(client.sendChannel())
		client.closeConn()
	}
	h.clients = make(map[wsClient]bool)
	h.mu.Unlock()
}

// Broadcast queues a message for all connected clients, dropping it if the
// hub is saturated.
func (h *WebSocketHub) Broadcast(message interface{}) {
	select {
	case h.broadcast <- message:
	default:
		log.Printf("WARNING: handlers: websocket broadcast channel full, dropping message")
	}
}

// ServeHTTP upgrades the request and starts the client pumps.
func (h *WebSocketHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		log.Printf("ERROR: handlers: websocket upgrade failed: %v", err)
		return
	}

	client := &websocketClient{
		hub:  h,
		conn: conn,
		send: make(chan []byte, 256),
	}

	select {
	case h.register <- client:
	case <-h.ctx.Done():
		_ = conn.Close(websocket.StatusGoingAway, "hub stopped")
		return
	}

	go client.writePump()
	go client.readPump()
}

// registerClient is used by tests to attach a fake client.
func (h *WebSocketHub) registerClient(c wsClient) {
	h.register <- c
}

// websocketClient is one live connection.
type websocketClient struct {
	hub  *WebSocketHub
	conn *websocket.Conn
	send chan []byte
}

func (c *websocketClient) sendChannel() chan []byte { return c.send }

func (c *websocketClient) closeConn() {
	_ = c.conn.Close(websocket.StatusNormalClosure, "")
}

// writePump forwards broadcast messages to the connection.
func (c *websocketClient) writePump() {
	defer func() {
		c.unregister()
		_ = c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for message := range c.send {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := c.conn.Write(ctx, websocket.MessageText, message)
		cancel()
		if err != nil {
			return
		}
	}
}

// readPump drains client messages so disconnects are noticed promptly.
func (c *websocketClient) readPump() {
	defer func() {
		c.unregister()
		_ = c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		if _, _, err := c.conn.Read(context.Background()); err != nil {
			return
		}
	}
}

func (c *websocketClient) unregister() {
	select {
	case c.hub.unregister <- c:
	case <-c.hub.ctx.Done():
	}
}
