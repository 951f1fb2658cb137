package generation

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// Hub fans job progress out to WebSocket subscribers. Clients connect with a
// job id and receive ProgressMessage frames until the job reaches a terminal
// status or they disconnect.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[uuid.UUID]map[*subscriber]bool
	upgrader    websocket.Upgrader
	logger      *zap.Logger
}

type subscriber struct {
	jobID uuid.UUID
	conn  *websocket.Conn
	send  chan ProgressMessage
}

// NewHub creates a progress hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		subscribers: make(map[uuid.UUID]map[*subscriber]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: logger,
	}
}

// HandleConnection upgrades the request and streams progress for one job.
func (h *Hub) HandleConnection(w http.ResponseWriter, r *http.Request, jobID uuid.UUID) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	sub := &subscriber{
		jobID: jobID,
		conn:  conn,
		send:  make(chan ProgressMessage, 64),
	}

	h.mu.Lock()
	if h.subscribers[jobID] == nil {
		h.subscribers[jobID] = make(map[*subscriber]bool)
	}
	h.subscribers[jobID][sub] = true
	h.mu.Unlock()

	go h.readPump(sub)
	go h.writePump(sub)

	return nil
}

// Publish delivers a progress message to every subscriber of the job.
// Slow subscribers are dropped rather than blocking the generation run.
func (h *Hub) Publish(msg ProgressMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subscribers[msg.JobID] {
		select {
		case sub.send <- msg:
		default:
			h.logger.Warn("dropping slow progress subscriber",
				zap.String("job_id", msg.JobID.String()))
		}
	}
}

// SubscriberCount returns the number of active subscribers for a job.
func (h *Hub) SubscriberCount(jobID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[jobID])
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, subs := range h.subscribers {
		for sub := range subs {
			sub.conn.Close()
		}
	}
	h.subscribers = make(map[uuid.UUID]map[*subscriber]bool)
}

func (h *Hub) unsubscribe(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs := h.subscribers[sub.jobID]
	if subs == nil || !subs[sub] {
		return
	}
	delete(subs, sub)
	if len(subs) == 0 {
		delete(h.subscribers, sub.jobID)
	}
	close(sub.send)
}

// readPump drains client frames so pongs are processed, discarding payloads.
func (h *Hub) readPump(sub *subscriber) {
	defer func() {
		h.unsubscribe(sub)
		sub.conn.Close()
	}()

	sub.conn.SetReadLimit(512)
	sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	sub.conn.SetPongHandler(func(string) error {
		sub.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Debug("websocket read error", zap.Error(err))
			}
			return
		}
	}
}

func (h *Hub) writePump(sub *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		sub.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-sub.send:
			sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				sub.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := sub.conn.WriteJSON(msg); err != nil {
				return
			}
			// A terminal status is the last frame for this job.
			if msg.Status.Terminal() {
				sub.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(msg.Status)))
				return
			}

		case <-ticker.C:
			sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sub.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
