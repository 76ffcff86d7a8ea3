package web

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/mkrull/lanscout/internal/core/domain"
	"github.com/mkrull/lanscout/internal/core/ports"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Same-origin requests carry no Origin header.
		return r.Header.Get("Origin") == "" || r.Host == hostOf(r.Header.Get("Origin"))
	},
}

func hostOf(origin string) string {
	for _, prefix := range []string{"http://", "https://"} {
		if len(origin) > len(prefix) && origin[:len(prefix)] == prefix {
			return origin[len(prefix):]
		}
	}
	return origin
}

// WSMessage is the envelope for every event pushed to connected clients.
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Hub fans scan events out to every connected WebSocket client. It implements
// ports.EventSink, so the orchestrator and dispatcher publish through it
// without knowing about connections.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]struct{})}
}

// HandleWebSocket upgrades the connection and keeps it registered until the
// client goes away.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("WebSocket upgrade error:", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()
	log.Printf("WebSocket connected: %s", conn.RemoteAddr())

	go func() {
		defer func() {
			h.mu.Lock()
			delete(h.clients, conn)
			h.mu.Unlock()
			conn.Close()
			log.Printf("WebSocket disconnected: %s", conn.RemoteAddr())
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) broadcast(msg WSMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		if err := conn.WriteJSON(msg); err != nil {
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) PublishDevice(d domain.Device, kind domain.ChangeKind) {
	h.broadcast(WSMessage{Type: "device", Payload: map[string]interface{}{
		"change": kind.String(),
		"device": d,
	}})
}

func (h *Hub) PublishAlert(a domain.Alert) {
	h.broadcast(WSMessage{Type: "alert", Payload: a})
}

func (h *Hub) PublishProgress(p domain.ScanProgress) {
	h.broadcast(WSMessage{Type: "scan_progress", Payload: p})
}

func (h *Hub) PublishScanDone(r domain.ScanResult) {
	h.broadcast(WSMessage{Type: "scan_done", Payload: r})
}

var _ ports.EventSink = (*Hub)(nil)
