package api

import (
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"land-grab/internal/config"
	"land-grab/internal/metrics"
	"land-grab/internal/protocol"
	"land-grab/internal/room"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var (
	errConnClosed = errors.New("connection closed")
	errQueueFull  = errors.New("send queue full")
)

// Dispatcher receives decoded client messages. *room.Registry implements it.
type Dispatcher interface {
	Dispatch(playerID string, conn room.Conn, env protocol.Envelope)
	Disconnect(playerID string)
}

// WSConfig bounds websocket connections.
type WSConfig struct {
	MaxPerIP        int
	MaxTotal        int
	MessagesPerSec  float64
	MessageBurst    int
	MaxMessageBytes int64
	SendQueue       int
	AllowedOrigins  []string
}

// WSConfigFromConfig maps app configuration onto websocket limits.
func WSConfigFromConfig(cfg config.AppConfig) WSConfig {
	return WSConfig{
		MaxPerIP:        cfg.Server.MaxWSPerIP,
		MaxTotal:        cfg.Server.MaxWSConnections,
		MessagesPerSec:  cfg.Limits.MessagesPerSec,
		MessageBurst:    cfg.Limits.MessageBurst,
		MaxMessageBytes: cfg.Limits.MaxMessageBytes,
		SendQueue:       cfg.Limits.SendQueue,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
	}
}

// wsClient is one websocket peer. It implements room.Conn.
type wsClient struct {
	id   string
	ip   string
	conn *websocket.Conn

	send        chan []byte
	done        chan struct{}
	closeOnce   sync.Once
	closeReason string // set once, before done is closed
	limiter     *rate.Limiter
}

// Send queues data without blocking. A full queue drops the frame.
func (c *wsClient) Send(data []byte) error {
	select {
	case <-c.done:
		return errConnClosed
	default:
	}
	select {
	case c.send <- data:
		return nil
	default:
		return errQueueFull
	}
}

// Close asks the write pump to send a close frame carrying reason and drop
// the socket. Only the first reason is kept.
func (c *wsClient) Close(reason string) error {
	c.closeOnce.Do(func() {
		c.closeReason = reason
		close(c.done)
	})
	return nil
}

// WebSocketHub manages all WebSocket connections with DoS protection
type WebSocketHub struct {
	dispatcher Dispatcher
	cfg        WSConfig
	upgrader   websocket.Upgrader
	wsLimiter  *WebSocketRateLimiter

	mu      sync.RWMutex
	clients map[string]*wsClient
}

// NewWebSocketHub creates a new hub with connection limiting
func NewWebSocketHub(d Dispatcher, cfg WSConfig) *WebSocketHub {
	if cfg.SendQueue <= 0 {
		cfg.SendQueue = 128
	}
	origins := NewOriginChecker(cfg.AllowedOrigins)
	h := &WebSocketHub{
		dispatcher: d,
		cfg:        cfg,
		wsLimiter:  NewWebSocketRateLimiter(cfg.MaxPerIP, cfg.MaxTotal),
		clients:    make(map[string]*wsClient),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origins.Allowed(origin) {
				return true
			}
			log.Printf("⚠️ WebSocket connection rejected from origin: %s", origin)
			metrics.RecordConnectionRejected("origin")
			return false
		},
	}
	return h
}

// ClientCount returns the number of connected clients
func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleWebSocket handles incoming WebSocket connections with DoS protection
func (h *WebSocketHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ip := GetClientIP(r)

	if ok, reason := h.wsLimiter.Allow(ip); !ok {
		log.Printf("⚠️ WebSocket connection rejected from %s: %s", ip, reason)
		metrics.RecordConnectionRejected(reason)
		if reason == "ws_total_limit" {
			http.Error(w, "Too many connections", http.StatusServiceUnavailable)
		} else {
			http.Error(w, "Too many connections from your IP", http.StatusTooManyRequests)
		}
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		h.wsLimiter.Release(ip)
		return
	}

	c := &wsClient{
		id:      room.NewPlayerID(),
		ip:      ip,
		conn:    conn,
		send:    make(chan []byte, h.cfg.SendQueue),
		done:    make(chan struct{}),
		limiter: rate.NewLimiter(rate.Limit(h.cfg.MessagesPerSec), h.cfg.MessageBurst),
	}
	h.register(c)

	go h.writePump(c)
	go h.readPump(c)
}

func (h *WebSocketHub) register(c *wsClient) {
	h.mu.Lock()
	h.clients[c.id] = c
	count := len(h.clients)
	h.mu.Unlock()

	log.Printf("📱 Client %s connected from %s (%d total)", c.id, c.ip, count)
	metrics.UpdateWSConnections(count)
}

func (h *WebSocketHub) unregister(c *wsClient) {
	h.mu.Lock()
	_, ok := h.clients[c.id]
	delete(h.clients, c.id)
	count := len(h.clients)
	h.mu.Unlock()
	if !ok {
		return
	}

	c.Close("")
	h.wsLimiter.Release(c.ip)
	h.dispatcher.Disconnect(c.id)

	log.Printf("📱 Client %s disconnected (%d remaining)", c.id, count)
	metrics.UpdateWSConnections(count)
}

// readPump decodes frames and hands them to the dispatcher. Malformed or
// excess frames are dropped. A panic while dispatching ends the connection.
func (h *WebSocketHub) readPump(c *wsClient) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("❌ Panic handling client %s: %v", c.id, rec)
		}
		h.unregister(c)
		c.conn.Close()
	}()

	if h.cfg.MaxMessageBytes > 0 {
		c.conn.SetReadLimit(h.cfg.MaxMessageBytes)
	}
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("⚠️ Client %s read error: %v", c.id, err)
			}
			return
		}
		if !c.limiter.Allow() {
			metrics.RecordInbound("rate_limited")
			continue
		}
		env, err := protocol.DecodeEnvelope(data)
		if err != nil {
			metrics.RecordInbound("malformed")
			continue
		}
		metrics.RecordInbound("ok")
		h.dispatcher.Dispatch(c.id, c, env)
	}
}

func (h *WebSocketHub) writePump(c *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
			metrics.RecordOutbound()
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, c.closeReason),
				time.Now().Add(writeWait))
			return
		}
	}
}

// CloseAll disconnects every client.
func (h *WebSocketHub) CloseAll() {
	h.mu.RLock()
	clients := make([]*wsClient, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Close("Server shutting down")
	}
}
