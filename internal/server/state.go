package server

import (
	"context"

	"github.com/tdehaas/chatwire/internal/types"
)

// StateSnapshot is a read-only view of the server's global state, taken on
// the run loop so it is never partially updated.
type StateSnapshot struct {
	Rooms       []string
	ActiveUsers []types.User
}

// RoomSnapshot is a read-only view of a single room.
type RoomSnapshot struct {
	Name     string
	Users    []types.User
	Messages []*types.Message
}

type stateRequest struct {
	room     string
	wantRoom bool
	reply    chan stateReply
}

type stateReply struct {
	state StateSnapshot
	room  *RoomSnapshot
}

func (cs *ChatServer) handleStateRequest(req *stateRequest) {
	var rep stateReply
	if req.wantRoom {
		if room, ok := cs.rooms[req.room]; ok {
			rep.room = &RoomSnapshot{
				Name:     room.name,
				Users:    room.memberSnapshot(),
				Messages: room.recentMessages(),
			}
		}
	} else {
		rep.state = StateSnapshot{
			Rooms:       cs.roomNames(),
			ActiveUsers: cs.registry.listActive(),
		}
	}

	req.reply <- rep
}

// State returns the room list and the active-user snapshot.
func (cs *ChatServer) State(ctx context.Context) (StateSnapshot, error) {
	rep, err := cs.requestState(ctx, &stateRequest{reply: make(chan stateReply, 1)})
	if err != nil {
		return StateSnapshot{}, err
	}

	return rep.state, nil
}

// RoomState returns a snapshot of the named room, or nil if it does not
// exist.
func (cs *ChatServer) RoomState(ctx context.Context, name string) (*RoomSnapshot, error) {
	rep, err := cs.requestState(ctx, &stateRequest{
		room:     name,
		wantRoom: true,
		reply:    make(chan stateReply, 1),
	})
	if err != nil {
		return nil, err
	}

	return rep.room, nil
}

func (cs *ChatServer) requestState(ctx context.Context, req *stateRequest) (stateReply, error) {
	select {
	case cs.stateChan <- req:
	case <-cs.done:
		return stateReply{}, context.Canceled
	case <-ctx.Done():
		return stateReply{}, ctx.Err()
	}

	select {
	case rep := <-req.reply:
		return rep, nil
	case <-cs.done:
		return stateReply{}, context.Canceled
	case <-ctx.Done():
		return stateReply{}, ctx.Err()
	}
}
