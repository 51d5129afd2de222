package cloudbridge

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var testUpgrader = websocket.Upgrader{}

func TestClient_AuthenticatesAndHandlesDeploy(t *testing.T) {
	gotAuth := make(chan Message, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var auth Message
		if err := conn.ReadJSON(&auth); err != nil {
			return
		}
		gotAuth <- auth

		conn.WriteJSON(Message{Type: TypeDeployAgent, SpecID: "spec-1", DownloadURL: "https://example.com/spec-1.tar"})
		time.Sleep(50 * time.Millisecond)
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	deployed := make(chan string, 1)
	client := NewClient(wsURL, "test-key", 20*time.Millisecond, 10*time.Millisecond, func(specID, url string) {
		deployed <- specID
	}, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	go client.Run(ctx)

	select {
	case auth := <-gotAuth:
		if auth.Type != TypeAuth || auth.APIKey != "test-key" {
			t.Fatalf("unexpected auth frame: %+v", auth)
		}
	case <-time.After(1 * time.Second):
		t.Fatal("timed out waiting for auth frame")
	}

	select {
	case specID := <-deployed:
		if specID != "spec-1" {
			t.Fatalf("unexpected spec id: %s", specID)
		}
	case <-time.After(1 * time.Second):
		t.Fatal("timed out waiting for deploy callback")
	}
}

func TestNewClient_DefaultsAppliedForZeroDurations(t *testing.T) {
	c := NewClient("ws://example.com", "k", 0, 0, nil, zap.NewNop())
	if c.heartbeatPeriod != defaultHeartbeatPeriod || c.reconnectBackoff != defaultReconnectBackoff {
		t.Fatalf("expected defaults, got %v/%v", c.heartbeatPeriod, c.reconnectBackoff)
	}
}
