package server

import (
	"slices"
	"strings"

	"github.com/tdehaas/chatwire/internal/types"
)

const (
	// historyLimit caps the per-room message log; the oldest entry is
	// evicted once the cap is exceeded.
	historyLimit = 100
	// joinBacklog is how many recent messages a client receives on join.
	joinBacklog = 50
)

// Room holds membership, the bounded message log and the typing set for a
// single named channel. Rooms are created lazily on first join and retained
// for the process lifetime, even when empty. All fields are owned by the
// ChatServer loop.
type Room struct {
	name     string
	members  map[string]*Client
	messages []*types.Message
	typing   map[string]string
}

func newRoom(name string) *Room {
	return &Room{
		name:    name,
		members: make(map[string]*Client),
		typing:  make(map[string]string),
	}
}

func (r *Room) addMember(c *Client) {
	r.members[c.id] = c
}

// removeMember drops the connection from the room. Returns false if it was
// not a member, which callers treat as a benign no-op.
func (r *Room) removeMember(connId string) bool {
	if _, ok := r.members[connId]; !ok {
		return false
	}

	delete(r.members, connId)
	return true
}

func (r *Room) hasMember(connId string) bool {
	_, ok := r.members[connId]
	return ok
}

// memberSnapshot returns the current membership as user snapshots, sorted
// by username. Never nil.
func (r *Room) memberSnapshot() []types.User {
	users := make([]types.User, 0, len(r.members))
	for _, c := range r.members {
		if c.user != nil {
			users = append(users, *c.user)
		}
	}

	slices.SortFunc(users, func(a, b types.User) int {
		return strings.Compare(a.Username, b.Username)
	})

	return users
}

// appendMessage appends to the log and evicts the oldest entry once the
// log exceeds historyLimit.
func (r *Room) appendMessage(m *types.Message) {
	r.messages = append(r.messages, m)
	if len(r.messages) > historyLimit {
		r.messages = r.messages[1:]
	}
}

// recentMessages returns a copy of up to the last joinBacklog messages.
func (r *Room) recentMessages() []*types.Message {
	start := 0
	if len(r.messages) > joinBacklog {
		start = len(r.messages) - joinBacklog
	}

	msgs := make([]*types.Message, len(r.messages)-start)
	copy(msgs, r.messages[start:])
	return msgs
}

// markRead records that connId has seen the message. The ReadBy set only
// grows. Returns the message and whether the set actually changed; an
// unknown message id (evicted or foreign) yields (nil, false).
func (r *Room) markRead(messageId, connId string) (*types.Message, bool) {
	for _, m := range r.messages {
		if m.Id != messageId {
			continue
		}

		if slices.Contains(m.ReadBy, connId) {
			return m, false
		}

		m.ReadBy = append(m.ReadBy, connId)
		return m, true
	}

	return nil, false
}

// setTyping adds or removes the connection from the typing set. Returns
// whether the set changed.
func (r *Room) setTyping(connId, username string, isTyping bool) bool {
	if isTyping {
		if _, ok := r.typing[connId]; ok {
			return false
		}
		r.typing[connId] = username
		return true
	}

	if _, ok := r.typing[connId]; !ok {
		return false
	}
	delete(r.typing, connId)
	return true
}

// typingSnapshot returns the usernames currently typing, sorted. Never nil.
func (r *Room) typingSnapshot() []string {
	users := make([]string, 0, len(r.typing))
	for _, username := range r.typing {
		users = append(users, username)
	}

	slices.Sort(users)
	return users
}

// broadcast queues the message for every current member. Delivery is
// best-effort per client; a full send queue drops the message for that
// client only.
func (r *Room) broadcast(msg *ServerMessage) {
	for _, c := range r.members {
		c.queueMessage(msg)
	}
}
