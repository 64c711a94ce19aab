package api

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/camm-community/camm-server/internal/models"
)

// streamAlerts serves the SSE live delivery endpoint. Each subscriber gets a
// CONNECTED confirmation immediately, `data: <JSON>` blocks for every event
// published while it is attached, and `: keepalive` comment lines on the
// configured interval so intermediaries do not reclaim the connection. There
// is no replay: events published before the subscription are gone.
func (h *Handler) streamAlerts(c *gin.Context) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	id, ch := h.broadcaster.Subscribe()
	defer h.broadcaster.Unsubscribe(id)

	slog.Info("client subscribed to alert stream", "connection_id", id, "total", h.broadcaster.SubscriberCount())
	defer slog.Info("client disconnected from alert stream", "connection_id", id)

	if err := writeSSE(c.Writer, connectedEvent()); err != nil {
		return
	}
	c.Writer.Flush()

	keepAlive := time.NewTicker(h.cfg.Stream.KeepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case <-keepAlive.C:
			if _, err := fmt.Fprint(c.Writer, ": keepalive\n\n"); err != nil {
				return
			}
			c.Writer.Flush()
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if err := writeSSE(c.Writer, ev); err != nil {
				slog.Error("failed to send event to stream", "error", err, "connection_id", id)
				return
			}
			c.Writer.Flush()
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// streamAlertsWS is the WebSocket variant of the live delivery endpoint, for
// clients that prefer a bidirectional transport over EventSource.
func (h *Handler) streamAlertsWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the error response.
		return
	}
	defer conn.Close()

	id, ch := h.broadcaster.Subscribe()
	defer h.broadcaster.Unsubscribe(id)

	slog.Info("websocket client subscribed", "connection_id", id, "total", h.broadcaster.SubscriberCount())
	defer slog.Info("websocket client disconnected", "connection_id", id)

	if err := conn.WriteJSON(connectedEvent()); err != nil {
		return
	}

	// Reader pump: the client sends nothing meaningful, but reading is how
	// gorilla surfaces the close frame.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	keepAlive := time.NewTicker(h.cfg.Stream.KeepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		case <-keepAlive.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				slog.Error("failed to send event to websocket", "error", err, "connection_id", id)
				return
			}
		}
	}
}

func connectedEvent() *models.AlertEvent {
	return &models.AlertEvent{
		Type:      models.EventConnected,
		Message:   "Monitoring for fall detection",
		Timestamp: time.Now(),
	}
}

func writeSSE(w io.Writer, ev *models.AlertEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", b)
	return err
}
