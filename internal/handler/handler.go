package handler

import (
	"sync"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"fakearchive/internal/config"
	"fakearchive/internal/model"
	"fakearchive/internal/observability"
	"fakearchive/internal/service"
)

// Handler holds application dependencies
type Handler struct {
	Service   *service.Service
	Metrics   *observability.Metrics
	Config    config.Config
	Clients   map[*websocket.Conn]bool
	ClientMu  sync.RWMutex
	Broadcast chan model.ArchiveEvent
}

// New creates a new Handler with the given dependencies
func New(svc *service.Service, metrics *observability.Metrics, cfg config.Config) *Handler {
	return &Handler{
		Service:   svc,
		Metrics:   metrics,
		Config:    cfg,
		Clients:   make(map[*websocket.Conn]bool),
		Broadcast: make(chan model.ArchiveEvent, 100),
	}
}

// SetupRouter configures and returns the HTTP router
func (h *Handler) SetupRouter() *mux.Router {
	r := mux.NewRouter()

	// REST API
	r.HandleFunc("/messages", h.GetMessages).Methods("GET")
	r.HandleFunc("/messages", h.CreateMessage).Methods("POST")
	r.HandleFunc("/messages/{id}", h.DeleteMessage).Methods("DELETE")

	// ホストページから呼ばれるリンク
	r.HandleFunc("/page", h.ProcessPage).Methods("POST")
	r.HandleFunc("/save/{token}", h.SaveMessage).Methods("GET")
	r.HandleFunc("/messages/{id}/delete", h.DeleteAndReload).Methods("GET")

	// WebSocket
	r.HandleFunc("/ws", h.HandleWebSocket).Methods("GET")

	r.Handle("/metrics", h.Metrics.Handler()).Methods("GET")

	return r
}

// notify queues an archive event without blocking the request when the
// broadcaster is behind.
func (h *Handler) notify(event model.ArchiveEvent) {
	select {
	case h.Broadcast <- event:
	default:
	}
}
