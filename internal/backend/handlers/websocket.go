package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"UpWatch/internal/backend/services"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // TODO: restrict origins once the dashboard domain is fixed
	},
}

// ResultsWebSocket streams recorded check results to the client as they
// are published on the event bus.
func (h *Handlers) ResultsWebSocket(c *gin.Context) {
	if h.events == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse("events_unavailable", "Event bus is not configured"))
		return
	}

	events, cancel, err := h.events.Subscribe(c.Request.Context(), services.ResultEventsChannel)
	if err != nil {
		h.logger.Error("failed to subscribe to result events", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse("subscribe_failed", "Failed to subscribe to result events"))
		return
	}
	defer cancel()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("failed to upgrade to websocket", "error", err)
		return
	}
	defer conn.Close()

	h.logger.Info("websocket connected for result stream")

	// Reader goroutine notices the peer going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case payload, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				h.logger.Debug("websocket write error", "error", err)
				return
			}
		case <-closed:
			h.logger.Debug("websocket disconnected")
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}
