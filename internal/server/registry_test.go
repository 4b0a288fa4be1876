package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_register(t *testing.T) {
	t.Run("successful registration", func(t *testing.T) {
		sr := newSessionRegistry()

		user, err := sr.register("conn-1", "alice", "cat.png")
		assert.NoError(t, err, "expected registration to succeed")
		assert.Equal(t, "conn-1", user.Id, "expected identity keyed by connection id")
		assert.Equal(t, "alice", user.Username, "expected username to match")
		assert.Equal(t, "cat.png", user.Avatar, "expected avatar to match")
		assert.False(t, user.JoinedAt.IsZero(), "expected joinedAt to be set")

		got, ok := sr.get("conn-1")
		assert.True(t, ok, "expected identity to be retrievable")
		assert.Equal(t, user, got, "expected stored identity to match")
	})

	t.Run("duplicate username fails without mutating state", func(t *testing.T) {
		sr := newSessionRegistry()

		_, err := sr.register("conn-1", "alice", "")
		assert.NoError(t, err, "expected first registration to succeed")

		_, err = sr.register("conn-2", "alice", "")
		assert.ErrorIs(t, err, errUsernameTaken, "expected duplicate username to fail")
		assert.Equal(t, 1, sr.count(), "expected registry to be unchanged after failed registration")

		_, ok := sr.get("conn-2")
		assert.False(t, ok, "expected no identity for the failed registration")
	})

	t.Run("username comparison is case sensitive", func(t *testing.T) {
		sr := newSessionRegistry()

		_, err := sr.register("conn-1", "alice", "")
		assert.NoError(t, err)

		_, err = sr.register("conn-2", "Alice", "")
		assert.NoError(t, err, "expected differently-cased username to be accepted")
	})

	t.Run("username freed after remove", func(t *testing.T) {
		sr := newSessionRegistry()

		_, err := sr.register("conn-1", "alice", "")
		assert.NoError(t, err)

		sr.remove("conn-1")

		_, err = sr.register("conn-2", "alice", "")
		assert.NoError(t, err, "expected username to be reusable after removal")
	})
}

func Test_remove(t *testing.T) {
	sr := newSessionRegistry()

	_, err := sr.register("conn-1", "alice", "")
	assert.NoError(t, err)

	sr.remove("conn-1")
	_, ok := sr.get("conn-1")
	assert.False(t, ok, "expected identity to be gone after removal")

	// removing again is a no-op
	sr.remove("conn-1")
	assert.Equal(t, 0, sr.count(), "expected registry to stay empty")
}

func Test_lookupByUsername(t *testing.T) {
	sr := newSessionRegistry()

	_, err := sr.register("conn-1", "alice", "")
	assert.NoError(t, err)

	user, ok := sr.lookupByUsername("alice")
	assert.True(t, ok, "expected to resolve username to identity")
	assert.Equal(t, "conn-1", user.Id, "expected resolved identity to carry connection id")

	_, ok = sr.lookupByUsername("bob")
	assert.False(t, ok, "expected unknown username to not resolve")
}

func Test_listActive(t *testing.T) {
	sr := newSessionRegistry()

	assert.Empty(t, sr.listActive(), "expected no active identities initially")
	assert.NotNil(t, sr.listActive(), "expected an empty slice, not nil")

	for i, name := range []string{"carol", "alice", "bob"} {
		_, err := sr.register(string(rune('a'+i)), name, "")
		assert.NoError(t, err)
	}

	users := sr.listActive()
	assert.Len(t, users, 3, "expected 3 active identities")
	assert.Equal(t, "alice", users[0].Username, "expected usernames sorted")
	assert.Equal(t, "bob", users[1].Username, "expected usernames sorted")
	assert.Equal(t, "carol", users[2].Username, "expected usernames sorted")
}
