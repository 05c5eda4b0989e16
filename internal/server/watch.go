package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// watchInterval is how often queue snapshots are pushed to watchers.
const watchInterval = time.Second

// handleQueueWatch upgrades to a WebSocket and streams queue snapshots
// until the client disconnects.
func (s *Server) handleQueueWatch(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	// Reader goroutine: surfaces client disconnect while we only write.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(watchInterval)
	defer ticker.Stop()

	if err := conn.WriteJSON(s.queue.Snapshot()); err != nil {
		return
	}
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteJSON(s.queue.Snapshot()); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					s.logger.Debug("queue watch write failed", "error", err)
				}
				return
			}
		}
	}
}
