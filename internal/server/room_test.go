package server

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tdehaas/chatwire/internal/types"
)

func Test_addMember_removeMember(t *testing.T) {
	room := newRoom("test-room")

	c := &Client{id: "conn-1", user: &types.User{Id: "conn-1", Username: "testuser"}}
	room.addMember(c)
	assert.True(t, room.hasMember("conn-1"), "expected room to contain member after add")

	assert.True(t, room.removeMember("conn-1"), "expected removal of existing member to report true")
	assert.False(t, room.hasMember("conn-1"), "expected member to be gone after removal")

	assert.False(t, room.removeMember("conn-1"), "expected removal of absent member to be a no-op")
}

func Test_memberSnapshot(t *testing.T) {
	room := newRoom("test-room")

	assert.NotNil(t, room.memberSnapshot(), "expected an empty slice, not nil")

	room.addMember(&Client{id: "c1", user: &types.User{Id: "c1", Username: "carol"}})
	room.addMember(&Client{id: "c2", user: &types.User{Id: "c2", Username: "alice"}})
	// unauthenticated connections never appear in snapshots
	room.addMember(&Client{id: "c3"})

	users := room.memberSnapshot()
	assert.Len(t, users, 2, "expected only registered members in snapshot")
	assert.Equal(t, "alice", users[0].Username, "expected snapshot sorted by username")
	assert.Equal(t, "carol", users[1].Username, "expected snapshot sorted by username")
}

func Test_appendMessage_evictsOldest(t *testing.T) {
	room := newRoom("test-room")

	for i := 1; i <= historyLimit+1; i++ {
		room.appendMessage(&types.Message{
			Id:   fmt.Sprintf("m%d", i),
			Text: fmt.Sprintf("message %d", i),
		})
	}

	assert.Len(t, room.messages, historyLimit, "expected log to stay at the cap")
	assert.Equal(t, "m2", room.messages[0].Id, "expected oldest message to be evicted first")
	assert.Equal(t, fmt.Sprintf("m%d", historyLimit+1), room.messages[historyLimit-1].Id,
		"expected newest message to be retained")
}

func Test_recentMessages(t *testing.T) {
	t.Run("short log returned whole", func(t *testing.T) {
		room := newRoom("test-room")
		room.appendMessage(&types.Message{Id: "m1"})
		room.appendMessage(&types.Message{Id: "m2"})

		msgs := room.recentMessages()
		assert.Len(t, msgs, 2, "expected entire log")
		assert.Equal(t, "m1", msgs[0].Id)
		assert.Equal(t, "m2", msgs[1].Id)
	})

	t.Run("long log truncated to backlog", func(t *testing.T) {
		room := newRoom("test-room")
		for i := 1; i <= joinBacklog+10; i++ {
			room.appendMessage(&types.Message{Id: fmt.Sprintf("m%d", i)})
		}

		msgs := room.recentMessages()
		assert.Len(t, msgs, joinBacklog, "expected backlog-sized slice")
		assert.Equal(t, "m11", msgs[0].Id, "expected the most recent messages")
		assert.Equal(t, fmt.Sprintf("m%d", joinBacklog+10), msgs[len(msgs)-1].Id)
	})

	t.Run("empty log", func(t *testing.T) {
		room := newRoom("test-room")
		assert.NotNil(t, room.recentMessages(), "expected an empty slice, not nil")
	})
}

func Test_markRead(t *testing.T) {
	room := newRoom("test-room")
	room.appendMessage(&types.Message{Id: "m1", ReadBy: []string{"sender"}})

	m, changed := room.markRead("m1", "conn-2")
	assert.True(t, changed, "expected first receipt to change the set")
	assert.Equal(t, []string{"sender", "conn-2"}, m.ReadBy, "expected readBy to grow")

	m, changed = room.markRead("m1", "conn-2")
	assert.False(t, changed, "expected duplicate receipt to be a no-op")
	assert.Equal(t, []string{"sender", "conn-2"}, m.ReadBy, "expected readBy unchanged")

	m, changed = room.markRead("no-such-message", "conn-2")
	assert.False(t, changed, "expected receipt for unknown message to be a no-op")
	assert.Nil(t, m, "expected no message for unknown id")
}

func Test_setTyping_typingSnapshot(t *testing.T) {
	room := newRoom("test-room")

	assert.NotNil(t, room.typingSnapshot(), "expected an empty slice, not nil")

	assert.True(t, room.setTyping("c1", "bob", true), "expected new typing entry to change the set")
	assert.False(t, room.setTyping("c1", "bob", true), "expected repeated typing signal to be a no-op")
	assert.True(t, room.setTyping("c2", "alice", true))

	assert.Equal(t, []string{"alice", "bob"}, room.typingSnapshot(), "expected sorted usernames")

	assert.True(t, room.setTyping("c1", "", false), "expected stop-typing to change the set")
	assert.False(t, room.setTyping("c1", "", false), "expected repeated stop-typing to be a no-op")
	assert.Equal(t, []string{"alice"}, room.typingSnapshot())
}

func Test_roomBroadcast(t *testing.T) {
	room := newRoom("test-room")

	c1 := newTestClient(t, nil)
	c2 := newTestClient(t, nil)
	room.addMember(c1)
	room.addMember(c2)

	room.broadcast(&ServerMessage{Message: &types.Message{Id: "m1"}})

	for _, c := range []*Client{c1, c2} {
		select {
		case msg := <-c.send:
			assert.NotNil(t, msg.Message, "expected message push for client %q", c.id)
			assert.Equal(t, "m1", msg.Message.Id)
		default:
			t.Errorf("expected client %q to receive the broadcast", c.id)
		}
	}
}
