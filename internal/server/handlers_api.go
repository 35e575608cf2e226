package server

import (
	"log"
	"net/http"
	"strings"
	"time"
)

type createRoomRequest struct {
	Nickname   string `json:"nickname"`
	GameMode   string `json:"game_mode"`
	Theme      string `json:"theme"`
	MaxPlayers int    `json:"max_players"`
}

type joinRoomRequest struct {
	Nickname string `json:"nickname"`
}

// handleCreateRoom bootstraps a session: the room, its creator as the
// first player, and the story they will write into.
func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	nickname, err := validateNickname(req.Nickname)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	gameMode, err := validateGameMode(req.GameMode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	theme := ""
	if gameMode == gameModeThemed {
		theme, err = validateTheme(req.Theme)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	maxPlayers := validateMaxPlayers(req.MaxPlayers, s.cfg.DefaultMaxPlayers)

	ttl := time.Duration(s.cfg.RoomTTLHours) * time.Hour
	room := s.store.CreateRoom(gameMode, theme, maxPlayers, ttl)
	player, err := s.store.AddPlayer(room.ID, nickname)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create room")
		return
	}
	story := s.store.CreateStory(room.ID)

	if err := s.persistRoomBootstrap(room, player, story); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create room")
		return
	}

	log.Printf("room created room_id=%s mode=%s max_players=%d by=%s", room.ID, gameMode, maxPlayers, player.Nickname)
	writeJSON(w, http.StatusCreated, map[string]any{
		"room_id":      room.ID,
		"player_id":    player.ID,
		"player_color": player.Color,
	})
}

func (s *Server) handleRoomSubroutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/rooms/")
	rest = strings.Trim(rest, "/")
	parts := strings.Split(rest, "/")

	switch {
	case r.Method == http.MethodGet && len(parts) == 1 && parts[0] != "":
		s.handleRoomStatus(w, r, parts[0])
	case r.Method == http.MethodPost && len(parts) == 2 && parts[1] == "join":
		s.handleJoinRoom(w, r, parts[0])
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleJoinRoom(w http.ResponseWriter, r *http.Request, roomID string) {
	var req joinRoomRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	nickname, err := validateNickname(req.Nickname)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	room, ok := s.store.GetRoom(roomID)
	if !ok || !room.Active {
		writeError(w, http.StatusNotFound, errRoomNotFound.Error())
		return
	}

	player, err := s.store.AddPlayer(roomID, nickname)
	if err != nil {
		status := http.StatusBadRequest
		if err == errRoomNotFound {
			status = http.StatusNotFound
		}
		writeError(w, status, err.Error())
		return
	}

	if err := s.persistPlayer(roomID, player); err != nil {
		log.Printf("failed to persist player room_id=%s error=%v", roomID, err)
	}

	log.Printf("player joined via api room_id=%s player_id=%s nickname=%s", roomID, player.ID, player.Nickname)
	writeJSON(w, http.StatusOK, map[string]any{
		"player_id":    player.ID,
		"player_color": player.Color,
		"room": map[string]any{
			"id":          room.ID,
			"game_mode":   room.GameMode,
			"theme":       room.Theme,
			"max_players": room.MaxPlayers,
		},
	})
}

// handleRoomStatus assembles the resync snapshot: room, roster, story and
// full ordered timeline. Clients call it after connecting to catch up.
func (s *Server) handleRoomStatus(w http.ResponseWriter, r *http.Request, roomID string) {
	room, ok := s.store.GetRoom(roomID)
	if !ok || !room.Active {
		writeError(w, http.StatusNotFound, errRoomNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.roomSnapshot(room))
}
