package ws

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tapminer/internal/domain"
	"tapminer/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

func dial(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	if err := conn.ReadJSON(v); err != nil {
		t.Fatalf("read: %v", err)
	}
}

func TestHubDeliversOnlyToOwner(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service.InitJWT("ws-test-secret")

	hub := NewHub()
	r := gin.New()
	r.GET("/ws", HandleWS(hub, ""))
	srv := httptest.NewServer(r)
	defer srv.Close()

	tokenA, _ := service.GenerateJWT(1)
	tokenB, _ := service.GenerateJWT(2)
	a := dial(t, srv, tokenA)
	b := dial(t, srv, tokenB)

	var ready map[string]string
	readJSON(t, a, &ready)
	if ready["type"] != "ready" {
		t.Fatalf("expected ready handshake, got %v", ready)
	}
	readJSON(t, b, &ready)

	hub.Publish(1, domain.Event{Type: domain.EventMine, AccountID: 1, Payload: map[string]any{"earned": 2}})

	var ev domain.Event
	readJSON(t, a, &ev)
	if ev.Type != domain.EventMine || ev.AccountID != 1 {
		t.Fatalf("unexpected event %+v", ev)
	}

	_ = b.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, _, err := b.ReadMessage(); err == nil {
		t.Fatalf("account 2 must not receive account 1 events")
	}
}

func TestHubUnregisterOnClose(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service.InitJWT("ws-test-secret")

	hub := NewHub()
	r := gin.New()
	r.GET("/ws", HandleWS(hub, ""))
	srv := httptest.NewServer(r)
	defer srv.Close()

	token, _ := service.GenerateJWT(7)
	conn := dial(t, srv, token)
	var ready map[string]string
	readJSON(t, conn, &ready)
	if hub.Connections(7) != 1 {
		t.Fatalf("expected one connection, got %d", hub.Connections(7))
	}

	conn.Close()
	deadline := time.Now().Add(3 * time.Second)
	for hub.Connections(7) != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("client was not unregistered")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHandleWSRejectsBadToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service.InitJWT("ws-test-secret")

	r := gin.New()
	r.GET("/ws", HandleWS(NewHub(), ""))

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/ws?token=garbage", nil)
	r.ServeHTTP(w, req)
	if w.Code != 401 {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestPublishDropsWhenBufferFull(t *testing.T) {
	hub := NewHub()
	c := &Client{AccountID: 3, Send: make(chan []byte, 1), Hub: hub}
	hub.register(c)

	hub.Publish(3, domain.Event{Type: domain.EventMine})
	done := make(chan struct{})
	go func() {
		hub.Publish(3, domain.Event{Type: domain.EventMine})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("publish blocked on a full client buffer")
	}
	if len(c.Send) != 1 {
		t.Fatalf("expected one buffered message, got %d", len(c.Send))
	}
	if !json.Valid(<-c.Send) {
		t.Fatalf("expected a JSON event")
	}
}
