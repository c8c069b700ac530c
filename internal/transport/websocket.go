package transport

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"chromatune/internal/analysis"
	applog "chromatune/internal/log"
)

// WebSocketTransport serves pitch readings as JSON over WebSocket. Every
// connected client receives every broadcast reading.
type WebSocketTransport struct {
	addr      string
	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]bool
	clientsMu sync.Mutex
	broadcast chan Reading
	server    *http.Server
	done      chan struct{}
}

// NewWebSocketTransport creates the transport and starts its HTTP server on
// addr (e.g. ":8080"). Readings are served on the /ws endpoint.
func NewWebSocketTransport(addr string) *WebSocketTransport {
	wst := &WebSocketTransport{
		addr: addr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan Reading, 256),
		done:      make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wst.handleWebSocket)
	wst.server = &http.Server{Addr: addr, Handler: mux}

	go func() {
		applog.Infof("Transport: WebSocket server listening on %s", addr)
		if err := wst.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			applog.Errorf("Transport: WebSocket server error: %v", err)
		}
	}()
	go wst.handleBroadcasts()

	return wst
}

// handleWebSocket upgrades the connection and registers the client.
func (wst *WebSocketTransport) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wst.upgrader.Upgrade(w, r, nil)
	if err != nil {
		applog.Warnf("Transport: WebSocket upgrade error: %v", err)
		return
	}

	wst.clientsMu.Lock()
	wst.clients[conn] = true
	total := len(wst.clients)
	wst.clientsMu.Unlock()
	applog.Infof("Transport: WebSocket client connected, total: %d", total)

	go func() {
		// Readers only disconnect; any read result means the client is gone.
		_, _, err := conn.ReadMessage()
		if err != nil {
			wst.clientsMu.Lock()
			delete(wst.clients, conn)
			total := len(wst.clients)
			wst.clientsMu.Unlock()
			conn.Close()
			applog.Infof("Transport: WebSocket client disconnected, total: %d", total)
		}
	}()
}

// handleBroadcasts fans each queued reading out to all connected clients.
func (wst *WebSocketTransport) handleBroadcasts() {
	for {
		select {
		case reading := <-wst.broadcast:
			wst.clientsMu.Lock()
			for client := range wst.clients {
				if err := client.WriteJSON(reading); err != nil {
					applog.Warnf("Transport: WebSocket write failed, dropping client: %v", err)
					client.Close()
					delete(wst.clients, client)
				}
			}
			wst.clientsMu.Unlock()
		case <-wst.done:
			return
		}
	}
}

// Send queues a reading for broadcast. When the queue is full the reading is
// dropped; a tuner display only cares about the latest value.
func (wst *WebSocketTransport) Send(reading analysis.StableReading) error {
	select {
	case wst.broadcast <- NewReading(reading):
	default:
	}
	return nil
}

// Close disconnects all clients and shuts down the server.
func (wst *WebSocketTransport) Close() error {
	close(wst.done)

	wst.clientsMu.Lock()
	for client := range wst.clients {
		client.Close()
	}
	wst.clients = make(map[*websocket.Conn]bool)
	wst.clientsMu.Unlock()

	if wst.server != nil {
		return wst.server.Close()
	}
	return nil
}

var _ Transport = (*WebSocketTransport)(nil)
