package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

func startEchoServer(ctx context.Context, t *testing.T, textCh chan<- map[string]any, binCh chan<- []byte) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Errorf("accept ws: %v", err)
			return
		}
		defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()
		for {
			typ, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			if typ == websocket.MessageBinary {
				if binCh != nil {
					select {
					case binCh <- data:
					default:
					}
				}
				continue
			}
			var msg map[string]any
			if err := json.Unmarshal(data, &msg); err != nil {
				continue
			}
			if textCh != nil {
				select {
				case textCh <- msg:
				default:
				}
			}
		}
	}))
}

func TestClientSendsPing(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	msgCh := make(chan map[string]any, 1)
	server := startEchoServer(ctx, t, msgCh, nil)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	client := New(wsURL, 10*time.Millisecond, 20*time.Millisecond, zap.NewNop())
	if err := client.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}

	runCtx, runCancel := context.WithCancel(ctx)
	defer runCancel()
	go func() {
		_ = client.Run(runCtx, nil)
	}()

	select {
	case msg := <-msgCh:
		if msg["method"] != "ping" {
			t.Fatalf("expected ping message, got %v", msg)
		}
	case <-ctx.Done():
		t.Fatalf("timed out waiting for ping")
	}
}

func TestClientSendBinary(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	binCh := make(chan []byte, 1)
	server := startEchoServer(ctx, t, nil, binCh)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	client := New(wsURL, 10*time.Millisecond, time.Second, zap.NewNop())
	if err := client.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}

	payload := []byte{0x82, 0xa1, 0x6d, 0x01}
	if err := client.Send(ctx, payload); err != nil {
		t.Fatalf("send: %v", err)
	}

	select {
	case got := <-binCh:
		if string(got) != string(payload) {
			t.Fatalf("binary payload mismatch: % x", got)
		}
	case <-ctx.Done():
		t.Fatalf("timed out waiting for binary frame")
	}
}

func TestSubscribeReplayedViaRun(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	msgCh := make(chan map[string]any, 4)
	server := startEchoServer(ctx, t, msgCh, nil)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	client := New(wsURL, 10*time.Millisecond, time.Hour, zap.NewNop())
	if err := client.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	sub := map[string]any{"method": "subscribe", "channel": "orders"}
	if err := client.Subscribe(ctx, sub); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	runCtx, runCancel := context.WithCancel(ctx)
	defer runCancel()
	go func() {
		_ = client.Run(runCtx, nil)
	}()

	// Run replays the registered subscription after ensuring the connection.
	deadline := time.After(400 * time.Millisecond)
	seen := 0
	for seen < 2 {
		select {
		case msg := <-msgCh:
			if msg["channel"] == "orders" {
				seen++
			}
		case <-deadline:
			t.Fatalf("subscription not replayed, saw %d", seen)
		}
	}
}

func TestConnectSendsLoginBeforeSubscriptions(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	msgCh := make(chan map[string]any, 4)
	server := startEchoServer(ctx, t, msgCh, nil)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	client := New(wsURL, 10*time.Millisecond, time.Hour, zap.NewNop())
	client.SetCredentials(Credentials{Account: "M042", Email: "bot@example.com", Password: "hunter2"})
	if err := client.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	sub := map[string]any{"method": "subscribe", "channel": "orders"}
	if err := client.Subscribe(ctx, sub); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	var first map[string]any
	select {
	case first = <-msgCh:
	case <-ctx.Done():
		t.Fatalf("timed out waiting for login frame")
	}
	if first["method"] != "login" {
		t.Fatalf("expected login before anything else, got %v", first)
	}
	if first["account"] != "M042" || first["email"] != "bot@example.com" || first["password"] != "hunter2" {
		t.Fatalf("login frame missing credentials: %v", first)
	}

	select {
	case msg := <-msgCh:
		if msg["method"] != "subscribe" {
			t.Fatalf("expected subscribe after login, got %v", msg)
		}
	case <-ctx.Done():
		t.Fatalf("timed out waiting for subscribe frame")
	}
}

func TestLoginRepeatedOnReconnect(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	loginCh := make(chan map[string]any, 4)
	// Drops each connection after the first frame so Run has to reconnect.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		_, data, err := conn.Read(ctx)
		if err == nil {
			var msg map[string]any
			if json.Unmarshal(data, &msg) == nil && msg["method"] == "login" {
				select {
				case loginCh <- msg:
				default:
				}
			}
		}
		_ = conn.Close(websocket.StatusNormalClosure, "")
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	client := New(wsURL, 10*time.Millisecond, time.Hour, zap.NewNop())
	client.SetCredentials(Credentials{Account: "M042", Email: "bot@example.com", Password: "hunter2"})
	if err := client.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}

	runCtx, runCancel := context.WithCancel(ctx)
	defer runCancel()
	go func() {
		_ = client.Run(runCtx, nil)
	}()

	for seen := 0; seen < 2; {
		select {
		case <-loginCh:
			seen++
		case <-ctx.Done():
			t.Fatalf("login not repeated on reconnect, saw %d", seen)
		}
	}
}

func TestSendBeforeConnect(t *testing.T) {
	client := New("ws://127.0.0.1:0", time.Second, time.Second, zap.NewNop())
	if err := client.Send(context.Background(), []byte{0x01}); err == nil {
		t.Fatalf("send without connection should fail")
	}
}
