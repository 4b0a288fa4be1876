package api

import (
	"encoding/json"
	"net/http"
	"slices"

	"github.com/gorilla/websocket"
	"github.com/tdehaas/chatwire/internal/server"
	"github.com/tdehaas/chatwire/internal/types"
)

type RoomsResponse struct {
	Rooms       []string     `json:"rooms"`
	ActiveUsers []types.User `json:"active_users"`
}

type RoomResponse struct {
	Users    []types.User     `json:"users"`
	Messages []*types.Message `json:"messages"`
}

type HealthResponse struct {
	Status string `json:"status"`
	Users  int    `json:"users"`
	Rooms  int    `json:"rooms"`
}

func (s *ChatApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

func (s *ChatApp) listRooms(w http.ResponseWriter, r *http.Request) {
	snap, err := s.cs.State(r.Context())
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, RoomsResponse{
		Rooms:       snap.Rooms,
		ActiveUsers: snap.ActiveUsers,
	})
}

func (s *ChatApp) getRoom(w http.ResponseWriter, r *http.Request) {
	room, err := s.cs.RoomState(r.Context(), r.PathValue("name"))
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if room == nil {
		errResp := NewNotFoundError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, RoomResponse{
		Users:    room.Users,
		Messages: room.Messages,
	})
}

func (s *ChatApp) health(w http.ResponseWriter, r *http.Request) {
	snap, err := s.cs.State(r.Context())
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Users:  len(snap.ActiveUsers),
		Rooms:  len(snap.Rooms),
	})
}

func (s *ChatApp) serveWs(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			// only allow connections from allowed origins
			origin := r.Header.Get("Origin")
			if origin == "" {
				// if no origin header, allow the request
				return true
			}

			return slices.Contains(s.allowedOrigins, origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("error upgrading connection:", err)
		return
	}

	client := server.NewClient(conn, s.cs, s.log)

	s.cs.RegisterClient(client)
	go client.Write()
	go client.Read()
}
