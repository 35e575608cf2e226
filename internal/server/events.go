package server

type EventPayload struct {
	RoomID             string `json:"room_id,omitempty"`
	PlayerID           string `json:"player_id,omitempty"`
	StoryID            string `json:"story_id,omitempty"`
	ContributionID     string `json:"contribution_id,omitempty"`
	Nickname           string `json:"nickname,omitempty"`
	GameMode           string `json:"game_mode,omitempty"`
	Theme              string `json:"theme,omitempty"`
	MaxPlayers         int    `json:"max_players,omitempty"`
	OrderNum           *int   `json:"order_num,omitempty"`
	ContributionType   string `json:"contribution_type,omitempty"`
	TwistKind          string `json:"twist_kind,omitempty"`
	UsedFallback       bool   `json:"used_fallback,omitempty"`
	RetryCount         int    `json:"retry_count,omitempty"`
	ResponseTimeMillis int64  `json:"response_time_ms,omitempty"`
	InputTokens        int    `json:"input_tokens,omitempty"`
	OutputTokens       int    `json:"output_tokens,omitempty"`
	PlayerCount        int    `json:"player_count,omitempty"`
	Count              int    `json:"count,omitempty"`
}
