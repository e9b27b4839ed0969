package handler

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 5 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

// createUpgrader creates a WebSocket upgrader with the given allowed origins
func createUpgrader(allowedOrigins []string) websocket.Upgrader {
	allowedMap := make(map[string]bool)
	for _, origin := range allowedOrigins {
		allowedMap[origin] = true
	}

	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return allowedMap[r.Header.Get("Origin")]
		},
	}
}

func (h *Handler) register(conn *websocket.Conn) int {
	h.ClientMu.Lock()
	h.Clients[conn] = true
	n := len(h.Clients)
	h.ClientMu.Unlock()
	h.Metrics.WSClients.Set(float64(n))
	return n
}

func (h *Handler) unregister(conn *websocket.Conn) int {
	h.ClientMu.Lock()
	delete(h.Clients, conn)
	n := len(h.Clients)
	h.ClientMu.Unlock()
	h.Metrics.WSClients.Set(float64(n))
	return n
}

// HandleWebSocket handles GET /ws. Open archive views subscribe here and
// reload when a message is archived or removed elsewhere.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := createUpgrader(h.Config.AllowedOrigins)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WebSocket] ❌ Upgrade error: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("[WebSocket] New connection. Total clients: %d", h.register(conn))

	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	stop := make(chan struct{})
	defer close(stop)
	go h.keepAlive(conn, stop)

	// クライアントからの受信は読み捨てる（切断検知のみ）
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			log.Printf("[WebSocket] Client disconnected. Total clients: %d", h.unregister(conn))
			return
		}
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
	}
}

func (h *Handler) keepAlive(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			// WriteControl は他の書き込みと並行して呼べる
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}

// HandleBroadcast sends archive events to every connected client and drops
// clients that cannot be written to.
func (h *Handler) HandleBroadcast() {
	for event := range h.Broadcast {
		// clients マップをスナップショットしてからロックを外す
		h.ClientMu.RLock()
		clientsSnapshot := make([]*websocket.Conn, 0, len(h.Clients))
		for client := range h.Clients {
			clientsSnapshot = append(clientsSnapshot, client)
		}
		h.ClientMu.RUnlock()

		for _, client := range clientsSnapshot {
			client.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := client.WriteJSON(event); err != nil {
				log.Printf("[WebSocket] ❌ Dropping client: %v", err)
				client.Close()
				h.unregister(client)
			}
		}
	}
}
