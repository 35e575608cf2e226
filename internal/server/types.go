package server

import (
	"sync"
	"time"
)

const (
	gameModeFreeform = "freeform"
	gameModeThemed   = "themed"
)

const (
	contributionTypePlayer = "player"
	contributionTypeAI     = "ai"
)

const twistKindTwist = "twist"

const (
	minRoomPlayers = 2
	maxRoomPlayers = 8
)

type Room struct {
	ID         string
	DBID       uint
	GameMode   string
	Theme      string
	MaxPlayers int
	Active     bool
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

type Player struct {
	ID       string
	DBID     uint
	RoomID   string
	Nickname string
	Color    string
	JoinedAt time.Time
	Active   bool
}

type Story struct {
	ID          string
	DBID        uint
	RoomID      string
	StartedAt   time.Time
	CompletedAt time.Time
	Complete    bool

	// mu guards contributions, the order counter they imply, and the
	// completion flags. Appends to different stories never contend.
	mu            sync.Mutex
	contributions []Contribution
}

type Contribution struct {
	ID        string
	DBID      uint
	StoryID   string
	PlayerID  string
	Content   string
	Type      string
	OrderNum  int
	TwistKind string
	CreatedAt time.Time
}

// ContributionView is a contribution joined with its author's nickname and
// color, when the author is a player.
type ContributionView struct {
	Contribution
	AuthorNickname string
	AuthorColor    string
}

type RoomCounts struct {
	Total  int
	Player int
	AI     int
}
