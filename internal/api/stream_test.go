package api

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/camm-community/camm-server/internal/broadcast"
	"github.com/camm-community/camm-server/internal/models"
)

// readEvent consumes the stream until the next data block, skipping blank
// lines and comment lines (keep-alives).
func readEvent(t *testing.T, r *bufio.Reader) *models.AlertEvent {
	t.Helper()
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("stream read failed: %v", err)
		}
		line = strings.TrimRight(line, "\n")
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		payload, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			t.Fatalf("unexpected stream line: %q", line)
		}
		var ev models.AlertEvent
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			t.Fatalf("failed to parse event %q: %v", payload, err)
		}
		return &ev
	}
}

func waitForSubscribers(t *testing.T, b *broadcast.Broadcaster, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if b.SubscriberCount() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected %d subscribers, got %d", want, b.SubscriberCount())
}

func TestStreamAlerts_SSE(t *testing.T) {
	env := setupTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// Abort the stream read if the test wedges.
	guard := time.AfterFunc(5*time.Second, cancel)
	defer guard.Stop()

	req, err := http.NewRequestWithContext(ctx, "GET", srv.URL+"/api/alert", nil)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("failed to open stream: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Errorf("expected content-type text/event-stream, got %s", ct)
	}

	reader := bufio.NewReader(resp.Body)

	ev := readEvent(t, reader)
	if ev.Type != models.EventConnected {
		t.Fatalf("expected CONNECTED first, got %s", ev.Type)
	}

	// The CONNECTED block proves registration completed; a publish now must
	// reach this stream.
	env.broadcaster.Publish(&models.AlertEvent{
		ID:      9,
		Type:    models.EventFallDetected,
		Address: "221B",
		Message: "Emergency: Person has fallen",
	})

	ev = readEvent(t, reader)
	if ev.Type != models.EventFallDetected {
		t.Errorf("expected FALL_DETECTED, got %s", ev.Type)
	}
	if ev.Address != "221B" {
		t.Errorf("expected address '221B', got '%s'", ev.Address)
	}

	cancel()
	waitForSubscribers(t, env.broadcaster, 0)
}

func TestStreamAlerts_SSEKeepAlive(t *testing.T) {
	env := setupTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	guard := time.AfterFunc(5*time.Second, cancel)
	defer guard.Stop()

	req, _ := http.NewRequestWithContext(ctx, "GET", srv.URL+"/api/alert", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("failed to open stream: %v", err)
	}
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("stream read failed before keep-alive: %v", err)
		}
		if strings.HasPrefix(line, ": keepalive") {
			return
		}
	}
}

func TestStreamAlerts_WebSocket(t *testing.T) {
	env := setupTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/alert/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to dial websocket: %v", err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var ev models.AlertEvent
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("failed to read CONNECTED: %v", err)
	}
	if ev.Type != models.EventConnected {
		t.Fatalf("expected CONNECTED first, got %s", ev.Type)
	}

	env.broadcaster.Publish(&models.AlertEvent{
		ID:   11,
		Type: models.EventNewAlert,
		Kind: models.AlertKindMedical,
	})

	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("failed to read event: %v", err)
	}
	if ev.Type != models.EventNewAlert {
		t.Errorf("expected NEW_ALERT, got %s", ev.Type)
	}

	conn.Close()
	waitForSubscribers(t, env.broadcaster, 0)
}
