package server

import (
	"context"
	"log"
	"slices"

	"github.com/google/uuid"
	"github.com/tdehaas/chatwire/internal/stats"
	"github.com/tdehaas/chatwire/internal/types"
	"github.com/teris-io/shortid"
)

const (
	statActiveConnections   = "ActiveConnections"
	statActiveUsers         = "ActiveUsers"
	statRooms               = "Rooms"
	statMessagesSent        = "MessagesSent"
	statPrivateMessagesSent = "PrivateMessagesSent"
)

// ChatServer owns all shared chat state: the session registry, the room
// store and the private conversation store. Every mutation is funneled
// through its run loop, which makes cross-room operations atomic to
// observers without per-resource locks.
type ChatServer struct {
	log   *log.Logger
	stats stats.StatsProvider

	registry      *sessionRegistry
	rooms         map[string]*Room
	conversations *conversationStore
	clients       map[string]*Client
	homeRoom      string

	RegisterChan   chan *Client
	deRegisterChan chan *Client
	eventChan      chan *ClientMessage
	stateChan      chan *stateRequest
	stop           chan struct{}
	done           chan struct{}

	genMessageId func() (string, error)
}

func NewChatServer(logger *log.Logger, su stats.StatsProvider, defaultRooms []string) (*ChatServer, error) {
	if len(defaultRooms) == 0 {
		defaultRooms = []string{"general", "random"}
	}

	cs := &ChatServer{
		log:            logger,
		stats:          su,
		registry:       newSessionRegistry(),
		rooms:          make(map[string]*Room),
		conversations:  newConversationStore(),
		clients:        make(map[string]*Client),
		homeRoom:       defaultRooms[0],
		RegisterChan:   make(chan *Client, 64),
		deRegisterChan: make(chan *Client, 64),
		eventChan:      make(chan *ClientMessage, 256),
		stateChan:      make(chan *stateRequest, 64),
		stop:           make(chan struct{}, 1),
		done:           make(chan struct{}),
		genMessageId:   shortid.Generate,
	}

	for _, name := range []string{
		statActiveConnections,
		statActiveUsers,
		statRooms,
		statMessagesSent,
		statPrivateMessagesSent,
	} {
		cs.stats.RegisterMetric(name)
	}

	for _, name := range defaultRooms {
		cs.ensureRoom(name)
	}

	return cs, nil
}

// Run drives the server loop. All handlers execute on this goroutine; the
// only thing they do with the network is enqueue into per-client buffered
// send channels.
func (cs *ChatServer) Run() {
	for {
		select {
		case c := <-cs.RegisterChan:
			cs.addClient(c)
		case c := <-cs.deRegisterChan:
			cs.handleDisconnect(c)
		case msg := <-cs.eventChan:
			cs.dispatch(msg)
		case req := <-cs.stateChan:
			cs.handleStateRequest(req)
		case <-cs.stop:
			cs.log.Println("stopping chat server")
			for _, c := range cs.clients {
				c.stopClient()
			}
			close(cs.done)
			return
		}
	}
}

// Shutdown stops the run loop and disconnects all clients. It returns once
// the loop has exited or the context is done.
func (cs *ChatServer) Shutdown(ctx context.Context) error {
	select {
	case cs.stop <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-cs.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RegisterClient hands a freshly upgraded connection to the server loop.
func (cs *ChatServer) RegisterClient(c *Client) {
	cs.RegisterChan <- c
}

func (cs *ChatServer) addClient(c *Client) {
	cs.log.Printf("adding connection %q", c.id)
	cs.clients[c.id] = c
	cs.stats.Incr(statActiveConnections)
}

// dispatch validates the gateway state machine: register_user is the only
// event accepted before a successful registration.
func (cs *ChatServer) dispatch(msg *ClientMessage) {
	c := msg.client
	if _, ok := cs.clients[c.id]; !ok {
		// connection already cleaned up; drop late events
		return
	}

	if msg.Register != nil {
		cs.handleRegister(msg)
		return
	}

	if c.user == nil {
		c.queueMessage(ErrUnauthorized(msg.Id))
		return
	}

	switch {
	case msg.Join != nil:
		cs.handleJoin(msg)
	case msg.Publish != nil:
		cs.handlePublish(msg)
	case msg.Private != nil:
		cs.handlePrivate(msg)
	case msg.Typing != nil:
		cs.handleTyping(msg)
	case msg.Read != nil:
		cs.handleRead(msg)
	default:
		c.queueMessage(ErrInvalidMessage(msg.Id))
	}
}

func (cs *ChatServer) handleRegister(msg *ClientMessage) {
	c := msg.client
	if c.user != nil || msg.Register.Username == "" {
		c.queueMessage(ErrInvalidMessage(msg.Id))
		return
	}

	user, err := cs.registry.register(c.id, msg.Register.Username, msg.Register.Avatar)
	if err != nil {
		cs.log.Printf("register %q: %v", msg.Register.Username, err)
		c.queueMessage(ErrUsernameTaken(msg.Id))
		return
	}

	c.user = &user
	cs.stats.Incr(statActiveUsers)
	cs.log.Printf("registered %q as %q", c.id, user.Username)

	home := cs.ensureRoom(cs.homeRoom)
	cs.joinRoom(c, home)
	cs.broadcastActiveUsers()

	c.queueMessage(NoErrOK(msg.Id, map[string]any{
		"success":  true,
		"user":     user,
		"rooms":    cs.roomNames(),
		"messages": home.recentMessages(),
	}))
}

func (cs *ChatServer) handleJoin(msg *ClientMessage) {
	c := msg.client
	if msg.Join.Room == "" {
		c.queueMessage(ErrInvalidMessage(msg.Id))
		return
	}

	room := cs.ensureRoom(msg.Join.Room)
	cs.joinRoom(c, room)

	c.queueMessage(NoErrOK(msg.Id, map[string]any{
		"messages": room.recentMessages(),
		"users":    room.memberSnapshot(),
	}))
}

// joinRoom moves the client into room, vacating its current room first so
// a connection is never observable in two rooms at once.
func (cs *ChatServer) joinRoom(c *Client, room *Room) {
	if c.room != nil && c.room != room {
		cs.leaveRoom(c, c.room)
	}

	if !room.hasMember(c.id) {
		room.addMember(c)
		room.broadcast(cs.roomUsersMessage(room))
	}
	c.room = room
}

// leaveRoom removes the client's membership and typing entry, then pushes
// updated snapshots to the remaining members.
func (cs *ChatServer) leaveRoom(c *Client, room *Room) {
	if !room.removeMember(c.id) {
		return
	}

	typingChanged := room.setTyping(c.id, "", false)
	c.room = nil

	room.broadcast(cs.roomUsersMessage(room))
	if typingChanged {
		room.broadcast(cs.typingUsersMessage(room))
	}
}

func (cs *ChatServer) handlePublish(msg *ClientMessage) {
	c := msg.client
	if msg.Publish.Room == "" || msg.Publish.Text == "" {
		c.queueMessage(ErrInvalidMessage(msg.Id))
		return
	}

	room, ok := cs.rooms[msg.Publish.Room]
	if !ok || !room.hasMember(c.id) {
		c.queueMessage(ErrInvalidMessage(msg.Id))
		return
	}

	m := &types.Message{
		Id:        cs.nextMessageId(),
		Room:      room.name,
		Text:      msg.Publish.Text,
		Sender:    *c.user,
		Timestamp: Now(),
		ReadBy:    []string{c.id},
	}

	room.appendMessage(m)
	cs.stats.Incr(statMessagesSent)

	room.broadcast(&ServerMessage{
		BaseMessage: BaseMessage{Timestamp: m.Timestamp},
		Message:     m,
	})

	// sending implies the client stopped typing
	if room.setTyping(c.id, "", false) {
		room.broadcast(cs.typingUsersMessage(room))
	}

	c.queueMessage(NoErrOK(msg.Id, map[string]any{
		"success": true,
		"message": m,
	}))
}

func (cs *ChatServer) handlePrivate(msg *ClientMessage) {
	c := msg.client
	if msg.Private.To == "" || msg.Private.Text == "" {
		c.queueMessage(ErrInvalidMessage(msg.Id))
		return
	}

	recipient, ok := cs.registry.lookupByUsername(msg.Private.To)
	if !ok {
		c.queueMessage(ErrUserNotFound(msg.Id))
		return
	}

	pm := &types.PrivateMessage{
		Id:        cs.nextMessageId(),
		Text:      msg.Private.Text,
		From:      *c.user,
		To:        recipient,
		Timestamp: Now(),
	}

	cs.conversations.append(c.id, recipient.Id, pm)
	cs.stats.Incr(statPrivateMessagesSent)

	out := &ServerMessage{
		BaseMessage:    BaseMessage{Timestamp: pm.Timestamp},
		PrivateMessage: pm,
	}

	c.queueMessage(out)
	if rc, ok := cs.clients[recipient.Id]; ok && rc != c {
		rc.queueMessage(out)
	}

	c.queueMessage(NoErrOK(msg.Id, map[string]any{"success": true}))
}

func (cs *ChatServer) handleTyping(msg *ClientMessage) {
	c := msg.client
	room, ok := cs.rooms[msg.Typing.Room]
	if !ok {
		// stale signal for an unknown room
		return
	}

	room.setTyping(c.id, c.user.Username, msg.Typing.IsTyping)
	room.broadcast(cs.typingUsersMessage(room))
}

func (cs *ChatServer) handleRead(msg *ClientMessage) {
	c := msg.client
	room, ok := cs.rooms[msg.Read.Room]
	if !ok {
		return
	}

	m, changed := room.markRead(msg.Read.MessageId, c.id)
	if !changed {
		// duplicate receipt or evicted message
		return
	}

	room.broadcast(&ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		MessageRead: &MessageRead{
			MessageId: m.Id,
			ReadBy:    slices.Clone(m.ReadBy),
		},
	})
}

// handleDisconnect runs the terminal cleanup sequence exactly once per
// connection: room membership and typing first, then the registry, so
// observers never see a ghost member.
func (cs *ChatServer) handleDisconnect(c *Client) {
	if _, ok := cs.clients[c.id]; !ok {
		return
	}

	cs.log.Printf("removing connection %q", c.id)
	delete(cs.clients, c.id)
	cs.stats.Decr(statActiveConnections)

	if c.room != nil {
		cs.leaveRoom(c, c.room)
	}

	if c.user != nil {
		cs.registry.remove(c.id)
		cs.stats.Decr(statActiveUsers)
		cs.broadcastActiveUsers()
	}

	c.stopClient()
}

func (cs *ChatServer) ensureRoom(name string) *Room {
	if room, ok := cs.rooms[name]; ok {
		return room
	}

	cs.log.Printf("creating room %q", name)
	room := newRoom(name)
	cs.rooms[name] = room
	cs.stats.Incr(statRooms)

	return room
}

func (cs *ChatServer) roomNames() []string {
	names := make([]string, 0, len(cs.rooms))
	for name := range cs.rooms {
		names = append(names, name)
	}

	slices.Sort(names)
	return names
}

func (cs *ChatServer) broadcastActiveUsers() {
	msg := &ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		ActiveUsers: &ActiveUsers{Users: cs.registry.listActive()},
	}

	for _, c := range cs.clients {
		c.queueMessage(msg)
	}
}

func (cs *ChatServer) roomUsersMessage(room *Room) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		RoomUsers: &RoomUsers{
			Room:  room.name,
			Users: room.memberSnapshot(),
		},
	}
}

func (cs *ChatServer) typingUsersMessage(room *Room) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		TypingUsers: &TypingUsers{
			Room:  room.name,
			Users: room.typingSnapshot(),
		},
	}
}

func (cs *ChatServer) nextMessageId() string {
	id, err := cs.genMessageId()
	if err != nil {
		cs.log.Println("shortid:", err)
		return uuid.NewString()
	}

	return id
}
