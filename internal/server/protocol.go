package server

// Inbound message types accepted on a room websocket.
const (
	msgJoin           = "join"
	msgLeave          = "leave"
	msgSubmit         = "submit_contribution"
	msgTypingStart    = "typing_start"
	msgTypingStop     = "typing_stop"
	msgStartGame      = "start_game"
	msgRequestAITwist = "request_ai_twist"
	msgEndStory       = "end_story"
)

// Outbound fact types broadcast to room members.
const (
	factRoomUpdated     = "room_updated"
	factPlayerJoined    = "player_joined"
	factPlayerLeft      = "player_left"
	factNewContribution = "new_contribution"
	factGameStarted     = "game_started"
	factAIThinking      = "ai_thinking"
	factStoryCompleted  = "story_completed"
	factTyping          = "typing"
	factError           = "error"
	factAck             = "ack"
)

type clientMessage struct {
	Type     string `json:"type"`
	RoomID   string `json:"room_id,omitempty"`
	PlayerID string `json:"player_id,omitempty"`
	StoryID  string `json:"story_id,omitempty"`
	Content  string `json:"content,omitempty"`
}

type ackFact struct {
	Type           string `json:"type"`
	Op             string `json:"op"`
	Success        bool   `json:"success"`
	Error          string `json:"error,omitempty"`
	ContributionID string `json:"contribution_id,omitempty"`
}

type roomUpdatedFact struct {
	Type        string `json:"type"`
	RoomID      string `json:"room_id"`
	PlayerCount int    `json:"player_count"`
}

type playerJoinedFact struct {
	Type     string `json:"type"`
	PlayerID string `json:"player_id"`
	Nickname string `json:"nickname"`
	Color    string `json:"color"`
}

type playerLeftFact struct {
	Type     string `json:"type"`
	PlayerID string `json:"player_id"`
}

type newContributionFact struct {
	Type             string `json:"type"`
	ContributionID   string `json:"contribution_id"`
	Content          string `json:"content"`
	ContributionType string `json:"contribution_type"`
	AuthorNickname   string `json:"author_nickname,omitempty"`
	AuthorColor      string `json:"author_color,omitempty"`
	OrderNum         int    `json:"order_num"`
}

type gameStartedFact struct {
	Type      string `json:"type"`
	RoomID    string `json:"room_id"`
	StartedAt int64  `json:"started_at"`
}

type aiThinkingFact struct {
	Type       string `json:"type"`
	IsThinking bool   `json:"is_thinking"`
}

type storyCompletedFact struct {
	Type        string `json:"type"`
	StoryID     string `json:"story_id"`
	CompletedAt int64  `json:"completed_at"`
}

type typingFact struct {
	Type     string `json:"type"`
	PlayerID string `json:"player_id"`
	Nickname string `json:"nickname"`
	IsTyping bool   `json:"is_typing"`
}

type errorFact struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}
