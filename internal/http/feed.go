/*
Copyright (c) Tobias Schäfer. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tschaefer/wren/internal/model"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// FeedEvent is one run history change pushed to feed subscribers.
type FeedEvent struct {
	Type string `json:"type"`
	Rid  string `json:"rid"`
}

// handleFeed upgrades the connection and streams run events until the
// client disconnects.
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade WebSocket", "error", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	s.log(r, slog.LevelDebug, "Run event feed subscribed")

	events := s.model.SubscribeRunEvents()
	defer s.model.UnsubscribeRunEvents(events)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					slog.Error("WebSocket read error", "error", err)
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case event := <-events:
			if err := s.sendFeedEvent(conn, event); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func (s *Server) sendFeedEvent(conn *websocket.Conn, event model.RunEvent) error {
	return conn.WriteJSON(FeedEvent{
		Type: event.Type,
		Rid:  event.ResourceId,
	})
}
