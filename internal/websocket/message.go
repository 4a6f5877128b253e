package websocket

import "time"

// MessageEvent is the inbound payload from a client. Text is a pointer so
// a missing field and a wrongly-typed field both surface as nil/unmarshal
// failure and the event can be dropped.
type MessageEvent struct {
	Text *string `json:"text"`
}

// Envelope is the outbound payload delivered to every member of a room.
type Envelope struct {
	Text      string `json:"text"`
	Username  string `json:"username"`
	Timestamp string `json:"timestamp"`
}

// NewEnvelope stamps a relayed message with the sender's display name and
// the current time in RFC 3339.
func NewEnvelope(text, username string) *Envelope {
	return &Envelope{
		Text:      text,
		Username:  username,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// RoomName computes the broadcast group for an authenticated identity.
// All connections of one user share one room and no one else's.
func RoomName(userID string) string {
	return "room:" + userID
}
