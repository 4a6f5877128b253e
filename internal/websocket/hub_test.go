package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"relay-service/pkg/logger"
)

func newTestHub(t *testing.T, presence Presence) *Hub {
	t.Helper()
	hub := NewHub(presence, logger.NewNop())
	go hub.Run()
	t.Cleanup(hub.Stop)
	return hub
}

func newTestClient(hub *Hub, userID, username string) *Client {
	return NewClient(hub, nil, userID, username)
}

func registerClient(t *testing.T, hub *Hub, client *Client) {
	t.Helper()
	select {
	case hub.register <- client:
	case <-time.After(time.Second):
		t.Fatal("timeout registering client")
	}
}

func unregisterClient(t *testing.T, hub *Hub, client *Client) {
	t.Helper()
	select {
	case hub.unregister <- client:
	case <-time.After(time.Second):
		t.Fatal("timeout unregistering client")
	}
}

// syncHub waits until every previously submitted hub operation has been
// processed. The loop handles one operation at a time, so once it accepts
// a new one the earlier ones are done.
func syncHub(t *testing.T, hub *Hub) {
	t.Helper()
	probe := newTestClient(hub, "sync-probe", "probe")
	select {
	case hub.inbound <- &ClientMessage{Client: probe, Data: []byte("sync")}:
	case <-time.After(time.Second):
		t.Fatal("timeout syncing with hub")
	}
}

func sendEvent(t *testing.T, hub *Hub, client *Client, payload string) {
	t.Helper()
	select {
	case hub.inbound <- &ClientMessage{Client: client, Data: []byte(payload)}:
	case <-time.After(time.Second):
		t.Fatal("timeout sending event to hub")
	}
}

func receiveEnvelope(t *testing.T, client *Client) *Envelope {
	t.Helper()
	select {
	case data := <-client.send:
		var envelope Envelope
		if err := json.Unmarshal(data, &envelope); err != nil {
			t.Fatalf("failed to unmarshal envelope: %v", err)
		}
		return &envelope
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for envelope")
		return nil
	}
}

func expectNoEnvelope(t *testing.T, client *Client) {
	t.Helper()
	select {
	case data := <-client.send:
		t.Fatalf("expected no envelope, got %s", data)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRoomName(t *testing.T) {
	if got := RoomName("42"); got != "room:42" {
		t.Errorf("RoomName(42) = %q, want %q", got, "room:42")
	}
}

func TestRegisterJoinsIdentityRoom(t *testing.T) {
	hub := newTestHub(t, nil)
	client := newTestClient(hub, "42", "alice")

	registerClient(t, hub, client)
	syncHub(t, hub)

	if got := client.GetRoom(); got != "room:42" {
		t.Errorf("GetRoom() = %q, want %q", got, "room:42")
	}
	if got := hub.RoomSize("room:42"); got != 1 {
		t.Errorf("RoomSize(room:42) = %d, want 1", got)
	}
}

func TestJoinIsIdempotent(t *testing.T) {
	hub := newTestHub(t, nil)
	client := newTestClient(hub, "42", "alice")

	registerClient(t, hub, client)
	registerClient(t, hub, client)
	syncHub(t, hub)

	if got := hub.RoomSize("room:42"); got != 1 {
		t.Errorf("RoomSize(room:42) = %d after double join, want 1", got)
	}
}

func TestLeaveOfNonMemberIsNoOp(t *testing.T) {
	hub := newTestHub(t, nil)
	client := newTestClient(hub, "42", "alice")

	// Never registered; must not panic or disturb state.
	unregisterClient(t, hub, client)
	syncHub(t, hub)

	if got := hub.RoomSize("room:42"); got != 0 {
		t.Errorf("RoomSize(room:42) = %d, want 0", got)
	}
}

func TestEmptyRoomIsRemoved(t *testing.T) {
	hub := newTestHub(t, nil)
	client := newTestClient(hub, "42", "alice")

	registerClient(t, hub, client)
	unregisterClient(t, hub, client)
	syncHub(t, hub)

	if got := hub.RoomSize("room:42"); got != 0 {
		t.Errorf("RoomSize(room:42) = %d, want 0", got)
	}
	if got := client.GetRoom(); got != "" {
		t.Errorf("GetRoom() = %q after unregister, want empty", got)
	}
}

func TestRelayFansOutToRoomIncludingSender(t *testing.T) {
	hub := newTestHub(t, nil)
	alice1 := newTestClient(hub, "42", "alice")
	alice2 := newTestClient(hub, "42", "alice")
	bob := newTestClient(hub, "7", "bob")

	registerClient(t, hub, alice1)
	registerClient(t, hub, alice2)
	registerClient(t, hub, bob)

	sendEvent(t, hub, alice1, `{"text":"hi"}`)

	for _, client := range []*Client{alice1, alice2} {
		envelope := receiveEnvelope(t, client)
		if envelope.Text != "hi" {
			t.Errorf("Text = %q, want %q", envelope.Text, "hi")
		}
		if envelope.Username != "alice" {
			t.Errorf("Username = %q, want %q", envelope.Username, "alice")
		}
		if _, err := time.Parse(time.RFC3339, envelope.Timestamp); err != nil {
			t.Errorf("Timestamp %q is not RFC 3339: %v", envelope.Timestamp, err)
		}
	}

	expectNoEnvelope(t, bob)
}

func TestRelayPreservesSenderOrder(t *testing.T) {
	hub := newTestHub(t, nil)
	alice := newTestClient(hub, "42", "alice")

	registerClient(t, hub, alice)

	sendEvent(t, hub, alice, `{"text":"first"}`)
	sendEvent(t, hub, alice, `{"text":"second"}`)
	sendEvent(t, hub, alice, `{"text":"third"}`)

	for _, want := range []string{"first", "second", "third"} {
		if got := receiveEnvelope(t, alice).Text; got != want {
			t.Errorf("Text = %q, want %q", got, want)
		}
	}
}

func TestRelayDropsMalformedPayloads(t *testing.T) {
	hub := newTestHub(t, nil)
	alice := newTestClient(hub, "42", "alice")

	registerClient(t, hub, alice)

	for _, payload := range []string{
		`{"text":5}`,
		`{"other":"hi"}`,
		`{}`,
		`not json`,
		`{"text":null}`,
	} {
		sendEvent(t, hub, alice, payload)
		expectNoEnvelope(t, alice)
	}

	// The sender stays connected and can still relay.
	sendEvent(t, hub, alice, `{"text":"still here"}`)
	if got := receiveEnvelope(t, alice).Text; got != "still here" {
		t.Errorf("Text = %q, want %q", got, "still here")
	}
}

func TestRelayTextIsVerbatim(t *testing.T) {
	hub := newTestHub(t, nil)
	alice := newTestClient(hub, "42", "alice")

	registerClient(t, hub, alice)

	text := `  <b>hi</b> & "there"  `
	payload, _ := json.Marshal(map[string]string{"text": text})
	sendEvent(t, hub, alice, string(payload))

	if got := receiveEnvelope(t, alice).Text; got != text {
		t.Errorf("Text = %q, want %q", got, text)
	}
}

func TestDisconnectRemovesFromFanOut(t *testing.T) {
	hub := newTestHub(t, nil)
	alice1 := newTestClient(hub, "42", "alice")
	alice2 := newTestClient(hub, "42", "alice")

	registerClient(t, hub, alice1)
	registerClient(t, hub, alice2)
	unregisterClient(t, hub, alice2)

	sendEvent(t, hub, alice1, `{"text":"hi"}`)

	if got := receiveEnvelope(t, alice1).Text; got != "hi" {
		t.Errorf("Text = %q, want %q", got, "hi")
	}
	if got := hub.RoomSize("room:42"); got != 1 {
		t.Errorf("RoomSize(room:42) = %d, want 1", got)
	}
}

type fakePresence struct {
	online  chan string
	offline chan string
}

func newFakePresence() *fakePresence {
	return &fakePresence{
		online:  make(chan string, 8),
		offline: make(chan string, 8),
	}
}

func (p *fakePresence) SetUserOnline(_ context.Context, userID string) error {
	p.online <- userID
	return nil
}

func (p *fakePresence) SetUserOffline(_ context.Context, userID string) error {
	p.offline <- userID
	return nil
}

func waitForUser(t *testing.T, ch chan string, want string) {
	t.Helper()
	select {
	case got := <-ch:
		if got != want {
			t.Errorf("presence user = %q, want %q", got, want)
		}
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for presence update for %q", want)
	}
}

func TestPresenceFollowsLastConnection(t *testing.T) {
	presence := newFakePresence()
	hub := newTestHub(t, presence)
	alice1 := newTestClient(hub, "42", "alice")
	alice2 := newTestClient(hub, "42", "alice")

	registerClient(t, hub, alice1)
	waitForUser(t, presence.online, "42")
	registerClient(t, hub, alice2)
	waitForUser(t, presence.online, "42")

	unregisterClient(t, hub, alice1)
	select {
	case got := <-presence.offline:
		t.Fatalf("unexpected offline for %q while a connection remains", got)
	case <-time.After(100 * time.Millisecond):
	}

	unregisterClient(t, hub, alice2)
	waitForUser(t, presence.offline, "42")
}
