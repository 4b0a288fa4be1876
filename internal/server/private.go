package server

import (
	"github.com/tdehaas/chatwire/internal/types"
)

// conversationStore holds private conversations keyed by the canonical
// (order-independent) pair of connection ids. Owned by the ChatServer loop.
type conversationStore struct {
	conversations map[string][]*types.PrivateMessage
}

func newConversationStore() *conversationStore {
	return &conversationStore{
		conversations: make(map[string][]*types.PrivateMessage),
	}
}

// conversationKey canonicalizes a pair of connection ids so both parties
// address the same conversation.
func conversationKey(a, b string) string {
	if a > b {
		a, b = b, a
	}

	return a + ":" + b
}

func (cs *conversationStore) append(a, b string, msg *types.PrivateMessage) {
	key := conversationKey(a, b)
	cs.conversations[key] = append(cs.conversations[key], msg)
}

func (cs *conversationStore) messages(a, b string) []*types.PrivateMessage {
	return cs.conversations[conversationKey(a, b)]
}
