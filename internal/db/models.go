package db

import (
	"time"

	"gorm.io/datatypes"
)

type Room struct {
	ID         uint      `gorm:"primaryKey"`
	Code       string    `gorm:"size:12;uniqueIndex;not null"`
	GameMode   string    `gorm:"size:16;not null"`
	Theme      string    `gorm:"size:64"`
	MaxPlayers int       `gorm:"not null;default:6"`
	IsActive   bool      `gorm:"not null;default:true"`
	ExpiresAt  time.Time `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`
	Players    []Player
	Stories    []Story
	Events     []Event
}

type Player struct {
	ID        uint      `gorm:"primaryKey"`
	RoomID    uint      `gorm:"index;not null;uniqueIndex:idx_players_room_nickname"`
	Token     string    `gorm:"size:12;uniqueIndex;not null"`
	Nickname  string    `gorm:"size:20;not null;uniqueIndex:idx_players_room_nickname"`
	Color     string    `gorm:"size:7;not null"`
	IsActive  bool      `gorm:"not null;default:true"`
	JoinedAt  time.Time `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

type Story struct {
	ID            uint       `gorm:"primaryKey"`
	RoomID        uint       `gorm:"index;not null"`
	Token         string     `gorm:"size:12;uniqueIndex;not null"`
	IsComplete    bool       `gorm:"not null;default:false"`
	StartedAt     time.Time  `gorm:"not null"`
	CompletedAt   *time.Time `gorm:""`
	CreatedAt     time.Time  `gorm:"not null"`
	UpdatedAt     time.Time  `gorm:"not null"`
	Contributions []Contribution
}

type Contribution struct {
	ID        uint      `gorm:"primaryKey"`
	StoryID   uint      `gorm:"index;not null;uniqueIndex:idx_contributions_story_order"`
	PlayerID  *uint     `gorm:"index"`
	Token     string    `gorm:"size:12;uniqueIndex;not null"`
	Content   string    `gorm:"size:2000;not null"`
	Type      string    `gorm:"size:8;not null"`
	OrderNum  int       `gorm:"not null;uniqueIndex:idx_contributions_story_order"`
	TwistKind string    `gorm:"size:16"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

type Event struct {
	ID        uint           `gorm:"primaryKey"`
	RoomID    uint           `gorm:"index;not null"`
	StoryID   *uint          `gorm:"index"`
	PlayerID  *uint          `gorm:"index"`
	Type      string         `gorm:"size:64;not null"`
	Payload   datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt time.Time      `gorm:"not null"`
}
