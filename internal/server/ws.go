package server

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/anirbandas/job-apply-agent/internal/queue"
	"github.com/anirbandas/job-apply-agent/internal/utils"
)

const (
	pongWait       = 60 * time.Second
	maxMessageSize = 1024
)

type snapshotMessage struct {
	Type     string         `json:"type"`
	Applied  []queue.Record `json:"applied"`
	Rejected []queue.Record `json:"rejected"`
	Clarify  []queue.Record `json:"clarify"`
}

// handleWebsocket upgrades the connection, sends a snapshot of the user's
// decided queues, and then hands the socket to the hub for live events.
// Browsers cannot set headers on websocket dials, so the token rides in the
// query string.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		respondError(w, http.StatusUnauthorized, "token query parameter required")
		return
	}

	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	userID := utils.SanitizeUserID(claims.UserID)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the response.
		s.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	snapshot := snapshotMessage{Type: "snapshot"}
	snapshot.Applied, _ = s.queues.ReadAll(r.Context(), userID, queue.StatusApplied)
	snapshot.Rejected, _ = s.queues.ReadAll(r.Context(), userID, queue.StatusRejected)
	snapshot.Clarify, _ = s.queues.ReadAll(r.Context(), userID, queue.StatusClarify)

	if err := conn.WriteJSON(snapshot); err != nil {
		s.logger.Debug("snapshot write failed", zap.String("user_id", userID), zap.Error(err))
		conn.Close()
		return
	}

	sub := s.hub.Connect(userID, conn)

	// Reader loop: clients never send payloads we care about, but reading is
	// what services pong frames and close handshakes.
	go func() {
		defer s.hub.Disconnect(sub)

		conn.SetReadLimit(maxMessageSize)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
