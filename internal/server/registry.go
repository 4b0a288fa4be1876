package server

import (
	"errors"
	"slices"
	"strings"

	"github.com/tdehaas/chatwire/internal/types"
)

var errUsernameTaken = errors.New("username already taken")

// sessionRegistry is the source of truth for who is online. It is owned by
// the ChatServer loop and must only be touched from there.
type sessionRegistry struct {
	sessions map[string]types.User
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{
		sessions: make(map[string]types.User),
	}
}

// register creates an identity for the given connection. It fails with
// errUsernameTaken if any currently active identity has the same username
// (exact, case-sensitive match) and leaves the registry untouched.
func (sr *sessionRegistry) register(connId, username, avatar string) (types.User, error) {
	for _, u := range sr.sessions {
		if u.Username == username {
			return types.User{}, errUsernameTaken
		}
	}

	user := types.User{
		Id:       connId,
		Username: username,
		Avatar:   avatar,
		JoinedAt: Now(),
	}
	sr.sessions[connId] = user

	return user, nil
}

func (sr *sessionRegistry) get(connId string) (types.User, bool) {
	u, ok := sr.sessions[connId]
	return u, ok
}

func (sr *sessionRegistry) lookupByUsername(username string) (types.User, bool) {
	for _, u := range sr.sessions {
		if u.Username == username {
			return u, true
		}
	}

	return types.User{}, false
}

// remove deletes the identity for the connection; idempotent.
func (sr *sessionRegistry) remove(connId string) {
	delete(sr.sessions, connId)
}

// listActive returns a snapshot of all registered identities, sorted by
// username for stable output. Never nil.
func (sr *sessionRegistry) listActive() []types.User {
	users := make([]types.User, 0, len(sr.sessions))
	for _, u := range sr.sessions {
		users = append(users, u)
	}

	slices.SortFunc(users, func(a, b types.User) int {
		return strings.Compare(a.Username, b.Username)
	})

	return users
}

func (sr *sessionRegistry) count() int {
	return len(sr.sessions)
}
