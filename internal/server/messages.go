package server

import (
	"net/http"
	"time"

	"github.com/tdehaas/chatwire/internal/types"
)

type BaseMessage struct {
	// Id correlates a client request with its synchronous response.
	Id        int       `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ClientMessage is the tagged union of inbound events. Exactly one of the
// event pointers is expected to be set; anything else is rejected before
// reaching the handlers.
type ClientMessage struct {
	BaseMessage
	Register *Register `json:"register_user,omitempty"`
	Join     *Join     `json:"join_room,omitempty"`
	Publish  *Publish  `json:"send_message,omitempty"`
	Private  *Private  `json:"private_message,omitempty"`
	Typing   *Typing   `json:"typing,omitempty"`
	Read     *Read     `json:"mark_read,omitempty"`

	client *Client
}

type Register struct {
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
}

type Join struct {
	Room string `json:"room"`
}

type Publish struct {
	Room string `json:"room"`
	Text string `json:"text"`
}

type Private struct {
	To   string `json:"to"`
	Text string `json:"text"`
}

type Typing struct {
	Room     string `json:"room"`
	IsTyping bool   `json:"is_typing"`
}

type Read struct {
	Room      string `json:"room"`
	MessageId string `json:"message_id"`
}

// ServerMessage is the tagged union of outbound events. Response answers a
// client request; the remaining fields are server-initiated pushes.
type ServerMessage struct {
	BaseMessage
	Response       *Response             `json:"response,omitempty"`
	ActiveUsers    *ActiveUsers          `json:"active_users,omitempty"`
	RoomUsers      *RoomUsers            `json:"room_users,omitempty"`
	Message        *types.Message        `json:"receive_message,omitempty"`
	TypingUsers    *TypingUsers          `json:"typing_users,omitempty"`
	MessageRead    *MessageRead          `json:"message_read,omitempty"`
	PrivateMessage *types.PrivateMessage `json:"private_message,omitempty"`
}

type Response struct {
	ResponseCode int            `json:"response_code"`
	Error        string         `json:"error,omitempty"`
	Data         map[string]any `json:"data,omitempty"`
}

type ActiveUsers struct {
	Users []types.User `json:"users"`
}

type RoomUsers struct {
	Room  string       `json:"room"`
	Users []types.User `json:"users"`
}

type TypingUsers struct {
	Room  string   `json:"room"`
	Users []string `json:"users"`
}

type MessageRead struct {
	MessageId string   `json:"message_id"`
	ReadBy    []string `json:"read_by"`
}

func NoErrOK(id int, data map[string]any) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusOK,
			Data:         data,
		},
	}
}

func ErrUnauthorized(id int) *ServerMessage {
	return errResponse(id, http.StatusUnauthorized, "unauthorized")
}

func ErrUsernameTaken(id int) *ServerMessage {
	return errResponse(id, http.StatusConflict, "username already taken")
}

func ErrInvalidMessage(id int) *ServerMessage {
	return errResponse(id, http.StatusBadRequest, "invalid message data")
}

func ErrUserNotFound(id int) *ServerMessage {
	return errResponse(id, http.StatusNotFound, "user not found")
}

func ErrServiceUnavailable(id int) *ServerMessage {
	return errResponse(id, http.StatusServiceUnavailable, "service unavailable")
}

func errResponse(id, code int, reason string) *ServerMessage {
	msg := &ServerMessage{
		BaseMessage: BaseMessage{
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: code,
			Error:        reason,
		},
	}

	if id > 0 {
		msg.Id = id
	}
	return msg
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
