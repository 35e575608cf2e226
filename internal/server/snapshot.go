package server

import "time"

// status reads the story's completion state under its lock.
func (st *Story) status() (complete bool, completedAt time.Time, count int) {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.Complete, st.CompletedAt, len(st.contributions)
}

func (s *Server) roomSnapshot(room *Room) map[string]any {
	players := s.store.ActivePlayers(room.ID)
	playerPayloads := make([]map[string]any, 0, len(players))
	for _, player := range players {
		playerPayloads = append(playerPayloads, map[string]any{
			"id":        player.ID,
			"nickname":  player.Nickname,
			"color":     player.Color,
			"joined_at": player.JoinedAt.UnixMilli(),
			"is_active": player.Active,
		})
	}

	var storyPayload map[string]any
	contributionPayloads := make([]map[string]any, 0)
	contributionCount := 0
	storyComplete := false
	if story, ok := s.store.StoryByRoom(room.ID); ok {
		complete, completedAt, count := story.status()
		storyComplete = complete
		contributionCount = count
		storyPayload = map[string]any{
			"id":                 story.ID,
			"started_at":         story.StartedAt.UnixMilli(),
			"is_complete":        complete,
			"contribution_count": count,
		}
		if complete {
			storyPayload["completed_at"] = completedAt.UnixMilli()
		}
		if views, err := s.store.Contributions(story.ID); err == nil {
			for _, view := range views {
				payload := map[string]any{
					"id":         view.ID,
					"content":    view.Content,
					"type":       view.Type,
					"order_num":  view.OrderNum,
					"created_at": view.CreatedAt.UnixMilli(),
				}
				if view.AuthorNickname != "" {
					payload["author_nickname"] = view.AuthorNickname
					payload["author_color"] = view.AuthorColor
				}
				contributionPayloads = append(contributionPayloads, payload)
			}
		}
	}

	return map[string]any{
		"room": map[string]any{
			"id":          room.ID,
			"game_mode":   room.GameMode,
			"theme":       room.Theme,
			"max_players": room.MaxPlayers,
			"created_at":  room.CreatedAt.UnixMilli(),
			"expires_at":  room.ExpiresAt.UnixMilli(),
			"is_active":   room.Active,
		},
		"players":       playerPayloads,
		"story":         storyPayload,
		"contributions": contributionPayloads,
		"stats": map[string]any{
			"player_count":       len(players),
			"contribution_count": contributionCount,
			"is_game_started":    storyPayload != nil && contributionCount > 0,
			"is_game_complete":   storyComplete,
		},
	}
}
