package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/NissimBet/meetmylog-back/internal/auth"
)

func newTestClient(h *Hub, userID string) *Client {
	return &Client{
		hub:    h,
		send:   make(chan []byte, 256),
		claims: &auth.Claims{UserID: userID, Username: "user-" + userID, Email: userID + "@example.com"},
		rooms:  make(map[string]*Room),
	}
}

// allowGate admits everyone, denyGate rejects everyone.
type allowGate struct{}

func (allowGate) CanJoin(context.Context, string, string) error { return nil }

type denyGate struct{}

func (denyGate) CanJoin(context.Context, string, string) error { return errors.New("denied") }

// recorderStub collects recorded messages.
type recorderStub struct {
	mu       sync.Mutex
	messages []string
}

func (r *recorderStub) Record(_ context.Context, _, _, message string, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
	return nil
}

func recv(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case msg := <-c.send:
		return msg
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func assertSilent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case msg := <-c.send:
		t.Fatalf("unexpected message: %s", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestNewHub(t *testing.T) {
	hub := NewHub()
	if hub == nil {
		t.Fatal("NewHub() returned nil")
	}
	if hub.Online("meeting-1") != 0 {
		t.Errorf("Online() for unknown room = %d, want 0", hub.Online("meeting-1"))
	}
}

func TestHub_GetRoom_SameInstance(t *testing.T) {
	hub := NewHub()
	r1 := hub.GetRoom("meeting-1")
	r2 := hub.GetRoom("meeting-1")
	if r1 != r2 {
		t.Error("GetRoom() should return the same room for the same id")
	}
}

func TestRoom_RegisterUnregister(t *testing.T) {
	hub := NewHub()
	room := hub.GetRoom("meeting-1")
	c := newTestClient(hub, "u1")

	room.register <- c
	time.Sleep(10 * time.Millisecond)
	if room.Online() != 1 {
		t.Errorf("Online() after register = %d, want 1", room.Online())
	}

	room.unregister <- c
	time.Sleep(10 * time.Millisecond)
	if room.Online() != 0 {
		t.Errorf("Online() after unregister = %d, want 0", room.Online())
	}

	// unregistering twice must be harmless
	room.unregister <- c
	time.Sleep(10 * time.Millisecond)
	if room.Online() != 0 {
		t.Errorf("Online() after double unregister = %d, want 0", room.Online())
	}
}

func TestRoom_BroadcastScopedToRoom(t *testing.T) {
	hub := NewHub()
	roomA := hub.GetRoom("meeting-a")
	roomB := hub.GetRoom("meeting-b")

	a := newTestClient(hub, "a")
	b := newTestClient(hub, "b")
	c := newTestClient(hub, "c")

	roomA.register <- a
	roomA.register <- b
	roomB.register <- c
	time.Sleep(20 * time.Millisecond)

	payload := []byte(`{"event":"message","message":"hello"}`)
	roomA.broadcast <- frame{from: a, data: payload}

	if got := recv(t, b); string(got) != string(payload) {
		t.Errorf("room member received %s, want %s", got, payload)
	}
	// sender does not get its own broadcast back
	assertSilent(t, a)
	// a connection in another room never observes it
	assertSilent(t, c)
}

func TestRoom_LeaveStopsDelivery(t *testing.T) {
	hub := NewHub()
	room := hub.GetRoom("meeting-1")
	a := newTestClient(hub, "a")
	b := newTestClient(hub, "b")

	room.register <- a
	room.register <- b
	time.Sleep(10 * time.Millisecond)

	room.unregister <- a
	time.Sleep(10 * time.Millisecond)

	room.broadcast <- frame{from: b, data: []byte("after-leave")}
	assertSilent(t, a)
}

func TestRoom_EmptyBroadcastIsNoop(t *testing.T) {
	hub := NewHub()
	room := hub.GetRoom("meeting-1")

	// no members at all: must not block or panic
	room.broadcast <- frame{from: nil, data: []byte("into the void")}
	time.Sleep(10 * time.Millisecond)
	if room.Online() != 0 {
		t.Errorf("Online() = %d, want 0", room.Online())
	}
}

func TestRoom_FIFOPerSender(t *testing.T) {
	hub := NewHub()
	room := hub.GetRoom("meeting-1")
	sender := newTestClient(hub, "s")
	receiver := newTestClient(hub, "r")

	room.register <- sender
	room.register <- receiver
	time.Sleep(10 * time.Millisecond)

	for i := 0; i < 10; i++ {
		room.broadcast <- frame{from: sender, data: []byte{byte('0' + i)}}
	}
	for i := 0; i < 10; i++ {
		got := recv(t, receiver)
		if got[0] != byte('0'+i) {
			t.Fatalf("message %d out of order: got %q", i, got)
		}
	}
}

func TestClient_JoinRoomIdempotent(t *testing.T) {
	hub := NewHub()
	c := newTestClient(hub, "u1")

	c.joinRoom("meeting-1", allowGate{})
	c.joinRoom("meeting-1", allowGate{})
	time.Sleep(10 * time.Millisecond)

	if got := hub.Online("meeting-1"); got != 1 {
		t.Errorf("Online() after double join = %d, want 1", got)
	}
	if len(c.rooms) != 1 {
		t.Errorf("client tracks %d rooms, want 1", len(c.rooms))
	}
}

func TestClient_JoinMultipleRooms(t *testing.T) {
	hub := NewHub()
	c := newTestClient(hub, "u1")

	c.joinRoom("meeting-1", allowGate{})
	c.joinRoom("meeting-2", allowGate{})
	time.Sleep(10 * time.Millisecond)

	if hub.Online("meeting-1") != 1 || hub.Online("meeting-2") != 1 {
		t.Errorf("Online() = (%d, %d), want (1, 1)", hub.Online("meeting-1"), hub.Online("meeting-2"))
	}
}

func TestClient_JoinDenied(t *testing.T) {
	hub := NewHub()
	c := newTestClient(hub, "u1")

	c.joinRoom("meeting-1", denyGate{})
	time.Sleep(10 * time.Millisecond)

	if hub.Online("meeting-1") != 0 {
		t.Errorf("Online() after denied join = %d, want 0", hub.Online("meeting-1"))
	}
	var out map[string]string
	if err := json.Unmarshal(recv(t, c), &out); err != nil {
		t.Fatalf("error frame is not json: %v", err)
	}
	if out["event"] != "error" {
		t.Errorf("event = %q, want error", out["event"])
	}
}

func TestClient_SendMessage(t *testing.T) {
	hub := NewHub()
	sender := newTestClient(hub, "s")
	receiver := newTestClient(hub, "r")
	rec := &recorderStub{}

	sender.joinRoom("meeting-1", allowGate{})
	room := hub.GetRoom("meeting-1")
	room.register <- receiver
	time.Sleep(10 * time.Millisecond)

	sender.sendMessage(Inbound{Event: "message", Room: "meeting-1", Message: "first"}, rec)
	sender.sendMessage(Inbound{Event: "message", Room: "meeting-1", Message: "second"}, rec)

	var out Outbound
	if err := json.Unmarshal(recv(t, receiver), &out); err != nil {
		t.Fatalf("outbound frame is not json: %v", err)
	}
	if out.Event != "message" || out.Message != "first" || out.From != "s" {
		t.Errorf("first frame = %+v", out)
	}
	if err := json.Unmarshal(recv(t, receiver), &out); err != nil {
		t.Fatalf("outbound frame is not json: %v", err)
	}
	if out.Message != "second" {
		t.Errorf("second frame message = %q, want second", out.Message)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.messages) != 2 || rec.messages[0] != "first" || rec.messages[1] != "second" {
		t.Errorf("recorded messages = %v, want [first second]", rec.messages)
	}
}

func TestClient_SendMessage_NotJoined(t *testing.T) {
	hub := NewHub()
	sender := newTestClient(hub, "s")
	receiver := newTestClient(hub, "r")
	rec := &recorderStub{}

	room := hub.GetRoom("meeting-1")
	room.register <- receiver
	time.Sleep(10 * time.Millisecond)

	// sender never joined the room: nothing may be delivered or recorded
	sender.sendMessage(Inbound{Event: "message", Room: "meeting-1", Message: "smuggled"}, rec)
	assertSilent(t, receiver)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.messages) != 0 {
		t.Errorf("recorded messages = %v, want none", rec.messages)
	}
}
