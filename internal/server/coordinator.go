package server

import (
	"context"
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

func (s *Server) dispatch(conn *websocket.Conn, msg clientMessage) {
	switch msg.Type {
	case msgJoin:
		s.handleJoin(conn, msg)
	case msgLeave:
		s.handleLeave(conn, msg.RoomID, msg.PlayerID)
	case msgSubmit:
		s.handleSubmit(conn, msg)
	case msgTypingStart:
		s.handleTyping(conn, msg, true)
	case msgTypingStop:
		s.handleTyping(conn, msg, false)
	case msgStartGame:
		s.handleStartGame(conn, msg)
	case msgRequestAITwist:
		s.handleRequestAITwist(conn, msg)
	case msgEndStory:
		s.handleEndStory(conn, msg)
	default:
		s.ws.Send(conn, errorFact{Type: factError, Message: "unknown message type", Code: "bad_request"})
	}
}

// roomLock returns the per-room ordering mutex. Contribution appends and
// their broadcasts happen under it so every member observes contributions
// in order-number order. Rooms never contend with each other.
func (s *Server) roomLock(roomID string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	lock, ok := s.roomLocks[roomID]
	if !ok {
		lock = &sync.Mutex{}
		s.roomLocks[roomID] = lock
	}
	return lock
}

func (s *Server) handleJoin(conn *websocket.Conn, msg clientMessage) {
	room, ok := s.store.GetRoom(msg.RoomID)
	if !ok || !room.Active {
		s.ws.Send(conn, ackFact{Type: factAck, Op: msgJoin, Error: errRoomNotFound.Error()})
		return
	}

	// Capacity counts the other active players: a player already on the
	// roster reconnecting to a full room must not lock themselves out.
	others := 0
	for _, active := range s.store.ActivePlayers(msg.RoomID) {
		if active.ID != msg.PlayerID {
			others++
		}
	}
	if others >= room.MaxPlayers {
		s.ws.Send(conn, ackFact{Type: factAck, Op: msgJoin, Error: errRoomFull.Error()})
		return
	}

	player, ok := s.store.GetPlayer(msg.PlayerID)
	if !ok || player.RoomID != msg.RoomID {
		s.ws.Send(conn, ackFact{Type: factAck, Op: msgJoin, Error: errPlayerNotFound.Error()})
		return
	}

	// A player who left or dropped comes back active; their original join
	// time still decides host derivation.
	if s.store.ReactivatePlayer(player.ID) {
		if err := s.persistPlayerRejoin(room.ID, player.ID); err != nil {
			log.Printf("failed to persist rejoin room_id=%s player_id=%s error=%v", room.ID, player.ID, err)
		}
	}

	s.ws.Bind(conn, connBinding{
		playerID: player.ID,
		roomID:   room.ID,
		nickname: player.Nickname,
	})
	s.ws.Add(room.ID, conn)

	s.ws.BroadcastExcept(room.ID, conn, playerJoinedFact{
		Type:     factPlayerJoined,
		PlayerID: player.ID,
		Nickname: player.Nickname,
		Color:    player.Color,
	})
	s.broadcastRoomUpdated(room.ID)
	s.ws.Send(conn, ackFact{Type: factAck, Op: msgJoin, Success: true})
	log.Printf("player joined room_id=%s player_id=%s nickname=%s", room.ID, player.ID, player.Nickname)
}

// handleLeave is best-effort and never reports failure to the caller. The
// connection loses room membership first so the leave broadcasts skip it.
func (s *Server) handleLeave(conn *websocket.Conn, roomID, playerID string) {
	s.store.DeactivatePlayer(playerID)
	s.ws.Drop(roomID, conn)

	if err := s.persistPlayerLeft(roomID, playerID); err != nil {
		log.Printf("failed to persist leave room_id=%s player_id=%s error=%v", roomID, playerID, err)
	}

	s.ws.Broadcast(roomID, playerLeftFact{Type: factPlayerLeft, PlayerID: playerID})
	s.broadcastRoomUpdated(roomID)
	log.Printf("player left room_id=%s player_id=%s", roomID, playerID)
}

// handleDisconnect is the implicit leave for a connection that joined and
// then dropped without saying goodbye.
func (s *Server) handleDisconnect(conn *websocket.Conn) {
	binding, ok := s.ws.Binding(conn)
	if !ok {
		return
	}
	s.handleLeave(conn, binding.roomID, binding.playerID)
}

func (s *Server) handleStartGame(conn *websocket.Conn, msg clientMessage) {
	room, ok := s.store.GetRoom(msg.RoomID)
	if !ok || !room.Active {
		s.ws.Send(conn, ackFact{Type: factAck, Op: msgStartGame, Error: errRoomNotFound.Error()})
		return
	}

	active := s.store.ActivePlayers(room.ID)
	if len(active) < minRoomPlayers {
		s.ws.Send(conn, ackFact{Type: factAck, Op: msgStartGame, Error: errNotEnoughOthers.Error()})
		return
	}
	host, ok := s.store.HostPlayer(room.ID)
	if !ok || host.ID != msg.PlayerID {
		s.ws.Send(conn, ackFact{Type: factAck, Op: msgStartGame, Error: errNotHost.Error()})
		return
	}

	startedAt := timeNowUTC()
	if err := s.persistGameStarted(room); err != nil {
		log.Printf("failed to persist game start room_id=%s error=%v", room.ID, err)
	}
	s.ws.Broadcast(room.ID, gameStartedFact{
		Type:      factGameStarted,
		RoomID:    room.ID,
		StartedAt: startedAt.UnixMilli(),
	})
	s.ws.Send(conn, ackFact{Type: factAck, Op: msgStartGame, Success: true})
	log.Printf("game started room_id=%s players=%d", room.ID, len(active))
}

func (s *Server) handleSubmit(conn *websocket.Conn, msg clientMessage) {
	player, ok := s.store.GetPlayer(msg.PlayerID)
	if !ok || player.RoomID != msg.RoomID {
		s.ws.Send(conn, ackFact{Type: factAck, Op: msgSubmit, Error: errInvalidSubmit.Error()})
		return
	}
	story, ok := s.store.StoryByRoom(msg.RoomID)
	if !ok {
		s.ws.Send(conn, ackFact{Type: factAck, Op: msgSubmit, Error: errNoActiveStory.Error()})
		return
	}
	content, err := validateContribution(msg.Content)
	if err != nil {
		s.ws.Send(conn, ackFact{Type: factAck, Op: msgSubmit, Error: err.Error()})
		return
	}

	lock := s.roomLock(msg.RoomID)
	lock.Lock()
	contribution, err := s.store.AppendContribution(story.ID, content, contributionTypePlayer, player.ID, "")
	if err != nil {
		lock.Unlock()
		s.ws.Send(conn, ackFact{Type: factAck, Op: msgSubmit, Error: err.Error()})
		return
	}
	s.ws.Broadcast(msg.RoomID, newContributionFact{
		Type:             factNewContribution,
		ContributionID:   contribution.ID,
		Content:          contribution.Content,
		ContributionType: contributionTypePlayer,
		AuthorNickname:   player.Nickname,
		AuthorColor:      player.Color,
		OrderNum:         contribution.OrderNum,
	})
	lock.Unlock()

	s.ws.Send(conn, ackFact{Type: factAck, Op: msgSubmit, Success: true, ContributionID: contribution.ID})

	if err := s.persistContribution(msg.RoomID, story, contribution, nil); err != nil {
		log.Printf("failed to persist contribution room_id=%s error=%v", msg.RoomID, err)
	}

	counts, err := s.store.ContributionCounts(story.ID)
	if err != nil {
		return
	}
	if shouldTriggerTwist(counts.Player, counts.AI, s.twistRoll) {
		log.Printf("twist triggered room_id=%s player_count=%d ai_count=%d", msg.RoomID, counts.Player, counts.AI)
		// Background task: the submitter has already been acknowledged.
		go s.runTwistIntervention(msg.RoomID, nil)
	}
}

func (s *Server) handleTyping(conn *websocket.Conn, msg clientMessage, isTyping bool) {
	player, ok := s.store.GetPlayer(msg.PlayerID)
	if !ok {
		return
	}
	s.ws.BroadcastExcept(msg.RoomID, conn, typingFact{
		Type:     factTyping,
		PlayerID: player.ID,
		Nickname: player.Nickname,
		IsTyping: isTyping,
	})
}

func (s *Server) handleRequestAITwist(conn *websocket.Conn, msg clientMessage) {
	if _, ok := s.store.GetRoom(msg.RoomID); !ok {
		s.ws.Send(conn, errorFact{Type: factError, Message: "room not found", Code: "not_found"})
		return
	}
	if _, ok := s.store.StoryByRoom(msg.RoomID); !ok {
		s.ws.Send(conn, errorFact{Type: factError, Message: errNoActiveStory.Error(), Code: "not_found"})
		return
	}
	s.runTwistIntervention(msg.RoomID, conn)
}

// runTwistIntervention is the shared ai sequence: announce thinking,
// gather context, generate, append, announce done, broadcast the twist.
// Whatever happens, the room must not be left in a thinking state.
func (s *Server) runTwistIntervention(roomID string, requester *websocket.Conn) {
	room, ok := s.store.GetRoom(roomID)
	if !ok {
		return
	}
	story, ok := s.store.StoryByRoom(roomID)
	if !ok {
		return
	}

	s.ws.Broadcast(roomID, aiThinkingFact{Type: factAIThinking, IsThinking: true})

	contributions, err := s.store.Contributions(story.ID)
	if err != nil {
		s.failTwistIntervention(roomID, requester)
		return
	}

	result := s.twists.GenerateTwist(context.Background(), TwistRequest{
		Contributions: contributions,
		Theme:         room.Theme,
	})

	lock := s.roomLock(roomID)
	lock.Lock()
	contribution, err := s.store.AppendContribution(story.ID, result.Twist, contributionTypeAI, "", twistKindTwist)
	if err != nil {
		lock.Unlock()
		s.failTwistIntervention(roomID, requester)
		return
	}
	s.ws.Broadcast(roomID, aiThinkingFact{Type: factAIThinking, IsThinking: false})
	s.ws.Broadcast(roomID, newContributionFact{
		Type:             factNewContribution,
		ContributionID:   contribution.ID,
		Content:          contribution.Content,
		ContributionType: contributionTypeAI,
		OrderNum:         contribution.OrderNum,
	})
	lock.Unlock()

	if err := s.persistContribution(roomID, story, contribution, &result); err != nil {
		log.Printf("failed to persist twist room_id=%s error=%v", roomID, err)
	}
	log.Printf("twist generated room_id=%s order_num=%d fallback=%t retries=%d duration=%s",
		roomID, contribution.OrderNum, result.UsedFallback, result.RetryCount, result.ResponseTime)
}

func (s *Server) failTwistIntervention(roomID string, requester *websocket.Conn) {
	s.ws.Broadcast(roomID, aiThinkingFact{Type: factAIThinking, IsThinking: false})
	if requester != nil {
		s.ws.Send(requester, errorFact{Type: factError, Message: "failed to generate twist", Code: "ai_failed"})
	}
	log.Printf("twist intervention failed room_id=%s", roomID)
}

func (s *Server) handleEndStory(conn *websocket.Conn, msg clientMessage) {
	if _, ok := s.store.GetRoom(msg.RoomID); !ok {
		s.ws.Send(conn, errorFact{Type: factError, Message: "room not found", Code: "not_found"})
		return
	}
	story, ok := s.store.StoryByRoom(msg.RoomID)
	if !ok || story.ID != msg.StoryID {
		s.ws.Send(conn, errorFact{Type: factError, Message: errStoryNotFound.Error(), Code: "not_found"})
		return
	}

	completed, changed, err := s.store.CompleteStory(msg.StoryID)
	if err != nil {
		s.ws.Send(conn, errorFact{Type: factError, Message: err.Error(), Code: "not_found"})
		return
	}
	if !changed {
		return
	}

	if err := s.persistStoryComplete(msg.RoomID, completed); err != nil {
		log.Printf("failed to persist story completion story_id=%s error=%v", msg.StoryID, err)
	}
	s.ws.Broadcast(msg.RoomID, storyCompletedFact{
		Type:        factStoryCompleted,
		StoryID:     completed.ID,
		CompletedAt: completed.CompletedAt.UnixMilli(),
	})
	log.Printf("story completed room_id=%s story_id=%s", msg.RoomID, completed.ID)
}

func (s *Server) broadcastRoomUpdated(roomID string) {
	s.ws.Broadcast(roomID, roomUpdatedFact{
		Type:        factRoomUpdated,
		RoomID:      roomID,
		PlayerCount: len(s.store.ActivePlayers(roomID)),
	})
}
