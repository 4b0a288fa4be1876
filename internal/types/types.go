package types

import (
	"time"
)

// User is a registered, currently-connected identity. Id is the opaque
// connection handle assigned at upgrade time.
type User struct {
	Id       string    `json:"id"`
	Username string    `json:"username"`
	Avatar   string    `json:"avatar,omitempty"`
	JoinedAt time.Time `json:"joined_at"`
}

// Message is a room message. Sender is a snapshot of the user at send
// time, not a live reference. ReadBy holds connection ids and only grows.
type Message struct {
	Id        string    `json:"id"`
	Room      string    `json:"room"`
	Text      string    `json:"text"`
	Sender    User      `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
	ReadBy    []string  `json:"read_by"`
}

// PrivateMessage is delivered to exactly two parties. The Read flag is
// carried on the wire but no operation currently flips it.
type PrivateMessage struct {
	Id        string    `json:"id"`
	Text      string    `json:"text"`
	From      User      `json:"from"`
	To        User      `json:"to"`
	Timestamp time.Time `json:"timestamp"`
	Read      bool      `json:"read"`
}
