package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WebSocket timeout constants following Gorilla best practices.
const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Send pings to peer with this period.
	pingPeriod = 54 * time.Second

	// Buffered events per subscription. A subscriber that cannot drain this
	// many events is considered dead and dropped.
	sendBuffer = 16
)

// Event is the push message delivered to connected clients.
type Event struct {
	Type    string `json:"type"` // "applied" | "rejected" | "clarify"
	Message string `json:"message"`
	JobID   string `json:"job_id"`
}

const (
	EventApplied  = "applied"
	EventRejected = "rejected"
	EventClarify  = "clarify"
)

// Conn is the subset of *websocket.Conn the hub needs. Kept as an interface
// so tests can stub the transport.
type Conn interface {
	WriteJSON(v any) error
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Subscription is one live listener for one user.
type Subscription struct {
	ID     string
	UserID string

	conn      Conn
	send      chan Event
	closeOnce sync.Once
}

// Hub multiplexes push events to zero or more live listeners per user.
// Delivery is best-effort and at-most-once: a subscription whose connection
// breaks or whose buffer fills up is dropped silently.
type Hub struct {
	logger *zap.Logger

	mu   sync.RWMutex
	subs map[string]map[*Subscription]struct{}
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger: logger,
		subs:   make(map[string]map[*Subscription]struct{}),
	}
}

// Connect registers a listener for the user and starts its write pump.
func (h *Hub) Connect(userID string, conn Conn) *Subscription {
	sub := &Subscription{
		ID:     uuid.NewString(),
		UserID: userID,
		conn:   conn,
		send:   make(chan Event, sendBuffer),
	}

	h.mu.Lock()
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[*Subscription]struct{})
	}
	h.subs[userID][sub] = struct{}{}
	count := len(h.subs[userID])
	h.mu.Unlock()

	h.logger.Debug("push subscription connected",
		zap.String("user_id", userID),
		zap.String("subscription_id", sub.ID),
		zap.Int("active", count),
	)

	go h.writePump(sub)

	return sub
}

// Disconnect removes the subscription and closes its connection. Safe to call
// more than once.
func (h *Hub) Disconnect(sub *Subscription) {
	sub.closeOnce.Do(func() {
		h.mu.Lock()
		if set, ok := h.subs[sub.UserID]; ok {
			delete(set, sub)
			if len(set) == 0 {
				delete(h.subs, sub.UserID)
			}
		}
		close(sub.send)
		h.mu.Unlock()

		sub.conn.Close()

		h.logger.Debug("push subscription disconnected",
			zap.String("user_id", sub.UserID),
			zap.String("subscription_id", sub.ID),
		)
	})
}

// Publish delivers the event to every live listener of the user, preserving
// publish order per subscription. No listeners is a no-op.
func (h *Hub) Publish(userID string, ev Event) {
	h.mu.RLock()

	var slow []*Subscription
	for sub := range h.subs[userID] {
		select {
		case sub.send <- ev:
		default:
			// Buffer full - the listener is not draining.
			slow = append(slow, sub)
		}
	}
	h.mu.RUnlock()

	for _, sub := range slow {
		h.logger.Debug("dropping slow push subscription",
			zap.String("user_id", userID),
			zap.String("subscription_id", sub.ID),
		)
		h.Disconnect(sub)
	}
}

// Subscribers reports the number of live listeners for the user.
func (h *Hub) Subscribers(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}

func (h *Hub) writePump(sub *Subscription) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-sub.send:
			if !ok {
				sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
				sub.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sub.conn.WriteJSON(ev); err != nil {
				h.logger.Debug("push write failed",
					zap.String("user_id", sub.UserID),
					zap.String("subscription_id", sub.ID),
					zap.Error(err),
				)
				h.Disconnect(sub)
				return
			}

		case <-ticker.C:
			sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sub.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.Disconnect(sub)
				return
			}
		}
	}
}
