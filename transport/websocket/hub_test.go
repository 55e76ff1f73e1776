package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wricardo/aitown/internal/engine"
)

func TestNewHub(t *testing.T) {
	hub := NewHub(nil)
	if hub.worlds == nil || hub.broadcast == nil || hub.register == nil || hub.unregister == nil {
		t.Fatal("NewHub did not initialize all channels/maps")
	}
}

func TestHubRegisterClient(t *testing.T) {
	hub := NewHub(nil)
	client := &Client{hub: hub, worldID: "world-1", send: make(chan []byte, 256)}

	hub.registerClient(client)

	if _, ok := hub.worlds["world-1"]; !ok {
		t.Fatal("world was not registered")
	}
	if !hub.worlds["world-1"][client] {
		t.Error("client was not registered under its world")
	}
}

func TestHubUnregisterClient(t *testing.T) {
	hub := NewHub(nil)
	client := &Client{hub: hub, worldID: "world-1", send: make(chan []byte, 256)}

	hub.registerClient(client)
	hub.unregisterClient(client)

	if _, exists := hub.worlds["world-1"]; exists {
		t.Error("world entry should be cleaned up after last client unregisters")
	}
}

func TestHubMultipleClientsInWorld(t *testing.T) {
	hub := NewHub(nil)
	c1 := &Client{hub: hub, worldID: "world-1", send: make(chan []byte, 256)}
	c2 := &Client{hub: hub, worldID: "world-1", send: make(chan []byte, 256)}

	hub.registerClient(c1)
	hub.registerClient(c2)
	if len(hub.worlds["world-1"]) != 2 {
		t.Fatalf("expected 2 clients, got %d", len(hub.worlds["world-1"]))
	}

	hub.unregisterClient(c1)
	if len(hub.worlds["world-1"]) != 1 || !hub.worlds["world-1"][c2] {
		t.Error("c2 should remain registered after c1 unregisters")
	}
}

func TestHubBroadcastEngineStatus(t *testing.T) {
	hub := NewHub(nil)
	client := &Client{hub: hub, worldID: "world-1", send: make(chan []byte, 256)}
	hub.registerClient(client)

	status := engine.Doc{ID: "engine-1", GenerationNumber: 3, State: engine.Running, CurrentTime: 1500}
	hub.broadcastMessage(&Message{WorldID: "world-1", Event: "engineStatus", EngineStatus: &status})

	select {
	case data := <-client.send:
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if msg.Event != "engineStatus" || msg.EngineStatus == nil || msg.EngineStatus.ID != "engine-1" {
			t.Errorf("unexpected message: %+v", msg)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("no message received")
	}
}

func TestHubBroadcastHistory(t *testing.T) {
	hub := NewHub(nil)
	client := &Client{hub: hub, worldID: "world-1", send: make(chan []byte, 256)}
	hub.registerClient(client)

	hub.broadcastMessage(&Message{WorldID: "world-1", Event: "history", RecordID: "loc-1", History: "AAE="})

	select {
	case data := <-client.send:
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if msg.RecordID != "loc-1" || msg.History != "AAE=" {
			t.Errorf("unexpected message: %+v", msg)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("no message received")
	}
}

func TestWebSocketUpgradeAndBroadcast(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		worldID := r.URL.Query().Get("world")
		if worldID == "" {
			worldID = "default"
		}
		hub.ServeWS(w, r, worldID)
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "?world=ws-test"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	time.Sleep(50 * time.Millisecond)

	hub.BroadcastEngineStatus("ws-test", engine.Doc{ID: "e1", State: engine.Running})

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.WorldID != "ws-test" || msg.EngineStatus == nil || msg.EngineStatus.ID != "e1" {
		t.Errorf("unexpected message: %+v", msg)
	}

	conn.Close()
	time.Sleep(20 * time.Millisecond)
	if _, exists := hub.worlds["ws-test"]; exists {
		t.Error("world entry should be cleaned up after socket close")
	}
}
