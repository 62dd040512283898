package handler

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"signal-tracker/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	eventTypeSnapshot  = "snapshot"
	eventTypeCompleted = "completed"

	liveWriteTimeout = 5 * time.Second
	liveQueueSize    = 64
)

// LiveEvent is the envelope pushed to websocket subscribers.
type LiveEvent struct {
	Type      string                  `json:"type"`
	Category  domain.Category         `json:"category,omitempty"`
	Signals   []domain.Signal         `json:"signals,omitempty"`
	Completed *domain.CompletedRecord `json:"completed,omitempty"`
}

type liveClient struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *liveClient) write(ev LiveEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(liveWriteTimeout))
	return c.conn.WriteJSON(ev)
}

// LiveHub fans completion events out to connected websocket clients. Events
// pass through a buffered queue so publishers never block; under backpressure
// events are dropped and the completed history stays the source of truth.
type LiveHub struct {
	upgrader websocket.Upgrader
	events   chan LiveEvent

	mu      sync.Mutex
	clients map[*liveClient]struct{}
}

func NewLiveHub() *LiveHub {
	return &LiveHub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		events:  make(chan LiveEvent, liveQueueSize),
		clients: make(map[*liveClient]struct{}),
	}
}

// Run drains the event queue until ctx is cancelled, then closes every
// connection.
func (h *LiveHub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case ev := <-h.events:
			h.broadcast(ev)
		}
	}
}

// NotifyCompleted queues a completion event for broadcast.
func (h *LiveHub) NotifyCompleted(category domain.Category, record domain.CompletedRecord) {
	if h == nil {
		return
	}
	select {
	case h.events <- LiveEvent{Type: eventTypeCompleted, Category: category, Completed: &record}:
	default:
		log.Printf("live hub queue full, dropping completion event for %s", record.ID)
	}
}

func (h *LiveHub) add(client *liveClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = struct{}{}
}

func (h *LiveHub) drop(client *liveClient) {
	h.mu.Lock()
	_, known := h.clients[client]
	delete(h.clients, client)
	h.mu.Unlock()
	if known {
		_ = client.conn.Close()
	}
}

func (h *LiveHub) snapshotClients() []*liveClient {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients := make([]*liveClient, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	return clients
}

func (h *LiveHub) broadcast(ev LiveEvent) {
	for _, client := range h.snapshotClients() {
		if err := client.write(ev); err != nil {
			h.drop(client)
		}
	}
}

func (h *LiveHub) closeAll() {
	for _, client := range h.snapshotClients() {
		h.drop(client)
	}
}

// ServeWS godoc
// @Summary      Subscribe to live signal events
// @Description  Streams an initial snapshot per category followed by completion events
// @Tags         live
// @Router       /ws [get]
func (h *Handler) ServeWS(c *gin.Context) {
	if h.hub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "live feed unavailable"})
		return
	}

	conn, err := h.hub.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the handshake error.
		return
	}

	client := &liveClient{conn: conn}
	h.hub.add(client)

	if h.signalService != nil {
		for _, category := range domain.Categories {
			signals, err := h.signalService.ActiveSignals(c.Request.Context(), category)
			if err != nil {
				continue
			}
			if err := client.write(LiveEvent{Type: eventTypeSnapshot, Category: category, Signals: signals}); err != nil {
				h.hub.drop(client)
				return
			}
		}
	}

	// Inbound frames are discarded; the read loop only notices disconnects.
	go func() {
		defer h.hub.drop(client)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
