package server

import (
	"encoding/json"
	"errors"
	"time"

	"plot-twist/internal/db"

	"github.com/jackc/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm/clause"
)

// The in-memory store stays authoritative; these mirrors journal state into
// Postgres when a connection is configured and no-op otherwise.

func (s *Server) persistRoomBootstrap(room *Room, player *Player, story *Story) error {
	if s.db == nil {
		return nil
	}
	record := db.Room{
		Code:       room.ID,
		GameMode:   room.GameMode,
		Theme:      room.Theme,
		MaxPlayers: room.MaxPlayers,
		IsActive:   true,
		ExpiresAt:  room.ExpiresAt,
	}
	if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&record).Error; err != nil {
		return err
	}
	room.DBID = record.ID
	if err := s.persistEvent(room.DBID, nil, nil, "room_created", EventPayload{
		RoomID:     room.ID,
		GameMode:   room.GameMode,
		Theme:      room.Theme,
		MaxPlayers: room.MaxPlayers,
	}); err != nil {
		return err
	}
	if err := s.persistPlayer(room.ID, player); err != nil {
		return err
	}
	return s.persistStory(room, story)
}

func (s *Server) persistPlayer(roomID string, player *Player) error {
	if s.db == nil {
		return nil
	}
	if player.DBID != 0 {
		return nil
	}
	roomDBID, err := s.ensureRoomDBID(roomID)
	if err != nil {
		return err
	}
	record := db.Player{
		RoomID:   roomDBID,
		Token:    player.ID,
		Nickname: player.Nickname,
		Color:    player.Color,
		IsActive: true,
		JoinedAt: player.JoinedAt,
	}
	if err := s.db.Create(&record).Error; err != nil {
		if isUniqueViolation(err) {
			existing, lookupErr := s.findPlayerDBID(player.ID)
			if lookupErr == nil && existing != 0 {
				player.DBID = existing
				return nil
			}
		}
		return err
	}
	player.DBID = record.ID
	playerDBID := record.ID
	return s.persistEvent(roomDBID, nil, &playerDBID, "player_joined", EventPayload{
		RoomID:   roomID,
		PlayerID: player.ID,
		Nickname: player.Nickname,
	})
}

func (s *Server) persistPlayerRejoin(roomID, playerID string) error {
	if s.db == nil {
		return nil
	}
	roomDBID, err := s.ensureRoomDBID(roomID)
	if err != nil {
		return err
	}
	playerDBID, err := s.findPlayerDBID(playerID)
	if err != nil {
		return err
	}
	if err := s.db.Model(&db.Player{}).
		Where("id = ?", playerDBID).
		Update("is_active", true).Error; err != nil {
		return err
	}
	return s.persistEvent(roomDBID, nil, &playerDBID, "player_rejoined", EventPayload{
		RoomID:   roomID,
		PlayerID: playerID,
	})
}

func (s *Server) persistPlayerLeft(roomID, playerID string) error {
	if s.db == nil {
		return nil
	}
	roomDBID, err := s.ensureRoomDBID(roomID)
	if err != nil {
		return err
	}
	playerDBID, err := s.findPlayerDBID(playerID)
	if err != nil {
		return err
	}
	if playerDBID == 0 {
		return errors.New("player not found")
	}
	if err := s.db.Model(&db.Player{}).
		Where("id = ?", playerDBID).
		Update("is_active", false).Error; err != nil {
		return err
	}
	return s.persistEvent(roomDBID, nil, &playerDBID, "player_left", EventPayload{
		RoomID:   roomID,
		PlayerID: playerID,
	})
}

func (s *Server) persistStory(room *Room, story *Story) error {
	if s.db == nil {
		return nil
	}
	if story.DBID != 0 {
		return nil
	}
	record := db.Story{
		RoomID:    room.DBID,
		Token:     story.ID,
		StartedAt: story.StartedAt,
	}
	if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&record).Error; err != nil {
		return err
	}
	story.DBID = record.ID
	storyDBID := record.ID
	return s.persistEvent(room.DBID, &storyDBID, nil, "story_created", EventPayload{
		RoomID:  room.ID,
		StoryID: story.ID,
	})
}

func (s *Server) persistGameStarted(room *Room) error {
	if s.db == nil {
		return nil
	}
	roomDBID, err := s.ensureRoomDBID(room.ID)
	if err != nil {
		return err
	}
	return s.persistEvent(roomDBID, nil, nil, "game_started", EventPayload{
		RoomID:      room.ID,
		PlayerCount: len(s.store.ActivePlayers(room.ID)),
	})
}

func (s *Server) persistContribution(roomID string, story *Story, contribution Contribution, twist *TwistResult) error {
	if s.db == nil {
		return nil
	}
	roomDBID, err := s.ensureRoomDBID(roomID)
	if err != nil {
		return err
	}
	storyDBID, err := s.ensureStoryDBID(story)
	if err != nil {
		return err
	}

	record := db.Contribution{
		StoryID:   storyDBID,
		Token:     contribution.ID,
		Content:   contribution.Content,
		Type:      contribution.Type,
		OrderNum:  contribution.OrderNum,
		TwistKind: contribution.TwistKind,
	}
	var playerDBID *uint
	if contribution.PlayerID != "" {
		dbid, err := s.findPlayerDBID(contribution.PlayerID)
		if err == nil && dbid != 0 {
			record.PlayerID = &dbid
			playerDBID = &dbid
		}
	}
	if err := s.db.Create(&record).Error; err != nil {
		return err
	}

	orderNum := contribution.OrderNum
	payload := EventPayload{
		RoomID:           roomID,
		StoryID:          story.ID,
		ContributionID:   contribution.ID,
		PlayerID:         contribution.PlayerID,
		ContributionType: contribution.Type,
		OrderNum:         &orderNum,
	}
	eventType := "contribution_added"
	if twist != nil {
		eventType = "twist_added"
		payload.TwistKind = contribution.TwistKind
		payload.UsedFallback = twist.UsedFallback
		payload.RetryCount = twist.RetryCount
		payload.ResponseTimeMillis = twist.ResponseTime.Milliseconds()
		payload.InputTokens = twist.InputTokens
		payload.OutputTokens = twist.OutputTokens
	}
	return s.persistEvent(roomDBID, &storyDBID, playerDBID, eventType, payload)
}

func (s *Server) persistStoryComplete(roomID string, story *Story) error {
	if s.db == nil {
		return nil
	}
	roomDBID, err := s.ensureRoomDBID(roomID)
	if err != nil {
		return err
	}
	storyDBID, err := s.ensureStoryDBID(story)
	if err != nil {
		return err
	}
	completedAt := story.CompletedAt
	if err := s.db.Model(&db.Story{}).
		Where("id = ?", storyDBID).
		Updates(map[string]any{"is_complete": true, "completed_at": completedAt}).Error; err != nil {
		return err
	}
	return s.persistEvent(roomDBID, &storyDBID, nil, "story_completed", EventPayload{
		RoomID:  roomID,
		StoryID: story.ID,
	})
}

func (s *Server) persistExpiredRooms(now time.Time) error {
	if s.db == nil {
		return nil
	}
	return s.db.Model(&db.Room{}).
		Where("is_active = ? AND expires_at < ?", true, now).
		Update("is_active", false).Error
}

func (s *Server) persistEvent(roomDBID uint, storyDBID, playerDBID *uint, eventType string, payload EventPayload) error {
	if s.db == nil {
		return nil
	}
	if roomDBID == 0 {
		return errors.New("room not found")
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	record := db.Event{
		RoomID:   roomDBID,
		StoryID:  storyDBID,
		PlayerID: playerDBID,
		Type:     eventType,
		Payload:  datatypes.JSON(raw),
	}
	return s.db.Create(&record).Error
}

func (s *Server) ensureRoomDBID(roomID string) (uint, error) {
	room, ok := s.store.GetRoom(roomID)
	if !ok {
		return 0, errors.New("room not found")
	}
	if room.DBID != 0 {
		return room.DBID, nil
	}
	var record db.Room
	if err := s.db.Where("code = ?", roomID).First(&record).Error; err != nil {
		return 0, err
	}
	room.DBID = record.ID
	return record.ID, nil
}

func (s *Server) ensureStoryDBID(story *Story) (uint, error) {
	if story.DBID != 0 {
		return story.DBID, nil
	}
	var record db.Story
	if err := s.db.Where("token = ?", story.ID).First(&record).Error; err != nil {
		return 0, err
	}
	story.DBID = record.ID
	return record.ID, nil
}

func (s *Server) findPlayerDBID(playerID string) (uint, error) {
	var record db.Player
	if err := s.db.Where("token = ?", playerID).First(&record).Error; err != nil {
		return 0, err
	}
	return record.ID, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
