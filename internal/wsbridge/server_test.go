package wsbridge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"pkt.systems/tabherd/internal/bridge"
	"pkt.systems/tabherd/internal/eventbus"
	"pkt.systems/tabherd/schema"
)

func echoSession(ctx context.Context, conn bridge.Conn) error {
	for {
		payload, err := conn.Read()
		if err != nil {
			return nil
		}
		if err := conn.Write(payload); err != nil {
			return err
		}
	}
}

func wsURL(server *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(server.URL, "http") + path
}

func TestBridgeEndpointCarriesMessages(t *testing.T) {
	srv := NewServer(Config{}, echoSession, nil)
	server := httptest.NewServer(srv.Handler())
	defer server.Close()

	client, _, err := websocket.DefaultDialer.Dial(wsURL(server, "/bridge"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer func() { _ = client.Close() }()
	if err := client.WriteMessage(websocket.TextMessage, []byte(`{"event":"tabs.onActivated"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := client.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != `{"event":"tabs.onActivated"}` {
		t.Fatalf("unexpected echo %q", data)
	}
}

func TestBridgeRejectsUnknownOrigin(t *testing.T) {
	srv := NewServer(Config{AllowedOrigins: []string{"chrome-extension://abc"}}, echoSession, nil)
	server := httptest.NewServer(srv.Handler())
	defer server.Close()

	header := http.Header{}
	header.Set("Origin", "https://example.com")
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(server, "/bridge"), header)
	if err == nil {
		t.Fatalf("expected handshake failure")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %+v", resp)
	}

	header.Set("Origin", "chrome-extension://abc")
	client, _, err := websocket.DefaultDialer.Dial(wsURL(server, "/bridge"), header)
	if err != nil {
		t.Fatalf("expected allowed origin to connect: %v", err)
	}
	_ = client.Close()
}

func TestEventsEndpointStreamsActions(t *testing.T) {
	bus := eventbus.New(nil)
	srv := NewServer(Config{}, nil, bus)
	server := httptest.NewServer(srv.Handler())
	defer server.Close()

	client, _, err := websocket.DefaultDialer.Dial(wsURL(server, "/events?window=3"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer func() { _ = client.Close() }()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				bus.OnAction(schema.ActionEvent{Type: schema.ActionMoveTab, WindowID: 3, Index: 4})
			}
		}
	}()

	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := client.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var event eventbus.Event
	if err := json.Unmarshal(data, &event); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if event.Type != eventbus.EventAction || event.Action == nil || event.Action.Index != 4 {
		t.Fatalf("unexpected event %+v", event)
	}
}

func TestEventsEndpointRejectsBadWindow(t *testing.T) {
	srv := NewServer(Config{}, nil, eventbus.New(nil))
	server := httptest.NewServer(srv.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL + "/events?window=abc")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestBridgeUnavailableWithoutSession(t *testing.T) {
	srv := NewServer(Config{}, nil, nil)
	server := httptest.NewServer(srv.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL + "/bridge")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
}
