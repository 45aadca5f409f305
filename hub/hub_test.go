package hub

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"matsuri/globals"
	"matsuri/middleware"

	"github.com/golang-jwt/jwt/v5"
)

func TestHubRegisterBroadcastUnregister(t *testing.T) {
	h := NewHub()
	go h.Run()
	defer h.Stop()

	client := &Client{
		Send: make(chan []byte, 10),
		Room: "X1",
	}

	h.register <- client

	snap := Snapshot{Event: "update", ID: "X1"}
	data, _ := json.Marshal(snap)
	h.Broadcast("X1", data)

	select {
	case got := <-client.Send:
		if string(got) != string(data) {
			t.Fatalf("expected %s, got %s", data, got)
		}
	case <-time.After(1 * time.Second):
		t.Fatal("timeout waiting for snapshot")
	}

	h.unregister <- client
}

func TestHubRoomIsolation(t *testing.T) {
	h := NewHub()
	go h.Run()
	defer h.Stop()

	directory := &Client{Send: make(chan []byte, 10), Room: DirectoryRoom}
	other := &Client{Send: make(chan []byte, 10), Room: "Y1"}
	h.register <- directory
	h.register <- other

	h.Broadcast(DirectoryRoom, []byte(`{"event":"update"}`))

	select {
	case <-directory.Send:
	case <-time.After(1 * time.Second):
		t.Fatal("directory subscriber should receive the broadcast")
	}

	select {
	case msg := <-other.Send:
		t.Fatalf("room Y1 must not receive directory traffic, got %s", msg)
	case <-time.After(100 * time.Millisecond):
	}

	h.unregister <- directory
	h.unregister <- other
}

func TestSubscribeRequiresSessionToken(t *testing.T) {
	h := NewHub()

	req := httptest.NewRequest(http.MethodGet, "/ws/attractions", nil)
	rec := httptest.NewRecorder()
	SubscribeHandler(h)(rec, req, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("subscribe without a token must be rejected, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/ws/attractions?token=not-a-jwt", nil)
	rec = httptest.NewRecorder()
	SubscribeHandler(h)(rec, req, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("subscribe with a bad token must be rejected, got %d", rec.Code)
	}
}

func TestSubscribeTokenSources(t *testing.T) {
	claims := middleware.Claims{
		UserID:           "ABC123",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(globals.JwtSecret)
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/ws/attractions?token="+signed, nil)
	if _, err := middleware.ValidateJWT(subscribeToken(req)); err != nil {
		t.Fatalf("query token should validate: %v", err)
	}

	req = httptest.NewRequest(http.MethodGet, "/ws/attractions", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	if _, err := middleware.ValidateJWT(subscribeToken(req)); err != nil {
		t.Fatalf("header token should validate: %v", err)
	}
}
