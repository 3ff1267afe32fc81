package telemetry

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"linebot/follower"
)

// WebsocketConfig controls the live sample stream for browser clients.
type WebsocketConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr"`
	Path    string `json:"path"`
	Buffer  int    `json:"buffer"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub streams samples as JSON to every connected websocket client. Observe
// never blocks: samples are dropped while the broadcast buffer is full.
type Hub struct {
	logger    *log.Logger
	broadcast chan follower.Sample
	done      chan struct{}
	closing   sync.Once

	mu      sync.Mutex
	clients map[*websocket.Conn]bool
	dropped int
}

// NewHub creates a hub and starts its broadcast loop.
func NewHub(buffer int, logger *log.Logger) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	if logger == nil {
		logger = log.Default()
	}
	h := &Hub{
		logger:    logger,
		broadcast: make(chan follower.Sample, buffer),
		done:      make(chan struct{}),
		clients:   map[*websocket.Conn]bool{},
	}
	go h.run()
	return h
}

// StartHub serves the hub on cfg.Addr at cfg.Path.
func StartHub(cfg WebsocketConfig, logger *log.Logger) *Hub {
	if !cfg.Enabled {
		return nil
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:7071"
	}
	if cfg.Path == "" {
		cfg.Path = "/telemetry"
	}
	h := NewHub(cfg.Buffer, logger)

	mux := http.NewServeMux()
	mux.Handle(cfg.Path, h)
	server := &http.Server{Addr: cfg.Addr, Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Printf("websocket server error: %v", err)
		}
	}()
	return h
}

// ServeHTTP upgrades the request and keeps the client registered until it
// disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Println(err)
		return
	}
	defer ws.Close()

	h.mu.Lock()
	h.clients[ws] = true
	h.mu.Unlock()

	for {
		// Clients only listen; reading detects the disconnect.
		if _, _, err := ws.ReadMessage(); err != nil {
			h.mu.Lock()
			delete(h.clients, ws)
			h.mu.Unlock()
			return
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Dropped returns how many samples were discarded on a full buffer.
func (h *Hub) Dropped() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}

// Observe implements follower.Observer.
func (h *Hub) Observe(s follower.Sample) {
	if h == nil {
		return
	}
	select {
	case h.broadcast <- s:
	default:
		h.mu.Lock()
		h.dropped++
		h.mu.Unlock()
	}
}

// Close stops the broadcast loop and disconnects every client. It is safe to
// call more than once.
func (h *Hub) Close() {
	h.closing.Do(func() { close(h.done) })
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		_ = c.Close()
		delete(h.clients, c)
	}
}

func (h *Hub) run() {
	for {
		select {
		case <-h.done:
			return
		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if err := client.WriteJSON(msg); err != nil {
					h.logger.Printf("websocket write: %v", err)
					_ = client.Close()
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}
