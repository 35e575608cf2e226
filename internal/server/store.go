package server

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	errRoomNotFound    = errors.New("room not found or inactive")
	errRoomFull        = errors.New("room is full")
	errNicknameTaken   = errors.New("nickname already taken in this room")
	errStoryNotFound   = errors.New("story not found")
	errStoryCompleted  = errors.New("story already completed")
	errPlayerNotFound  = errors.New("player not found or not in this room")
	errNoActiveStory   = errors.New("no active story in this room")
	errInvalidSubmit   = errors.New("invalid player or room")
	errNotEnoughOthers = errors.New("need at least 2 players to start")
	errNotHost         = errors.New("only the host can start the game")
)

// Store holds the authoritative room, player and story state. Registry
// lookups serialize on the store mutex; contribution appends serialize on
// each story's own lock so stories do not contend with each other.
type Store struct {
	mu            sync.Mutex
	rooms         map[string]*Room
	players       map[string]*Player
	playersByRoom map[string][]*Player
	stories       map[string]*Story
	storyByRoom   map[string]*Story
}

func NewStore() *Store {
	return &Store{
		rooms:         make(map[string]*Room),
		players:       make(map[string]*Player),
		playersByRoom: make(map[string][]*Player),
		stories:       make(map[string]*Story),
		storyByRoom:   make(map[string]*Story),
	}
}

func (s *Store) CreateRoom(gameMode, theme string, maxPlayers int, ttl time.Duration) *Room {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := timeNowUTC()
	room := &Room{
		ID:         newRoomID(),
		GameMode:   gameMode,
		Theme:      theme,
		MaxPlayers: maxPlayers,
		Active:     true,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}
	s.rooms[room.ID] = room
	return room
}

func (s *Store) GetRoom(id string) (*Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	return room, ok
}

// AddPlayer validates the join against the room's current state and inserts
// the player. The checks and the insert happen under one lock so concurrent
// joins cannot overfill a room or duplicate a nickname.
func (s *Store) AddPlayer(roomID, nickname string) (*Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[roomID]
	if !ok || !room.Active || timeNowUTC().After(room.ExpiresAt) {
		return nil, errRoomNotFound
	}

	active := s.activePlayersLocked(roomID)
	if len(active) >= room.MaxPlayers {
		return nil, errRoomFull
	}
	for _, existing := range active {
		if strings.EqualFold(existing.Nickname, nickname) {
			return nil, errNicknameTaken
		}
	}

	player := &Player{
		ID:       newPlayerID(),
		RoomID:   roomID,
		Nickname: nickname,
		Color:    pickPlayerColor(active),
		JoinedAt: timeNowUTC(),
		Active:   true,
	}
	s.players[player.ID] = player
	s.playersByRoom[roomID] = append(s.playersByRoom[roomID], player)
	return player, nil
}

func (s *Store) GetPlayer(id string) (*Player, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	player, ok := s.players[id]
	return player, ok
}

// ActivePlayers returns the room's active players ordered by join time.
func (s *Store) ActivePlayers(roomID string) []*Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activePlayersLocked(roomID)
}

func (s *Store) activePlayersLocked(roomID string) []*Player {
	active := make([]*Player, 0, len(s.playersByRoom[roomID]))
	for _, player := range s.playersByRoom[roomID] {
		if player.Active {
			active = append(active, player)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].JoinedAt.Before(active[j].JoinedAt)
	})
	return active
}

// HostPlayer derives the host: the active player with the earliest join
// time. There is no stored host field, so the host changes automatically
// when the earliest-joined player goes inactive.
func (s *Store) HostPlayer(roomID string) (*Player, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	active := s.activePlayersLocked(roomID)
	if len(active) == 0 {
		return nil, false
	}
	return active[0], true
}

func (s *Store) DeactivatePlayer(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if player, ok := s.players[id]; ok {
		player.Active = false
	}
}

// ReactivatePlayer puts a player who left or dropped back on the active
// roster, keeping their original join time. Reports whether the call
// changed anything.
func (s *Store) ReactivatePlayer(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	player, ok := s.players[id]
	if !ok || player.Active {
		return false
	}
	player.Active = true
	return true
}

func (s *Store) DeactivateRoom(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if room, ok := s.rooms[id]; ok {
		room.Active = false
	}
}

// CleanupExpiredRooms deactivates rooms past their expiry and reports how
// many were swept.
func (s *Store) CleanupExpiredRooms(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	swept := 0
	for _, room := range s.rooms {
		if room.Active && now.After(room.ExpiresAt) {
			room.Active = false
			swept++
		}
	}
	return swept
}

func (s *Store) CreateStory(roomID string) *Story {
	s.mu.Lock()
	defer s.mu.Unlock()

	story := &Story{
		ID:        newStoryID(),
		RoomID:    roomID,
		StartedAt: timeNowUTC(),
	}
	s.stories[story.ID] = story
	s.storyByRoom[roomID] = story
	return story
}

func (s *Store) GetStory(id string) (*Story, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	story, ok := s.stories[id]
	return story, ok
}

func (s *Store) StoryByRoom(roomID string) (*Story, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	story, ok := s.storyByRoom[roomID]
	return story, ok
}

// AppendContribution assigns the next order number and appends in one
// critical section per story. Concurrent appends to the same story are
// serialized here; the resulting order numbers are gapless from zero.
func (s *Store) AppendContribution(storyID, content, contributionType, playerID, twistKind string) (Contribution, error) {
	s.mu.Lock()
	story, ok := s.stories[storyID]
	s.mu.Unlock()
	if !ok {
		return Contribution{}, errStoryNotFound
	}

	story.mu.Lock()
	defer story.mu.Unlock()
	if story.Complete {
		return Contribution{}, errStoryCompleted
	}
	contribution := Contribution{
		ID:        newContributionID(),
		StoryID:   storyID,
		PlayerID:  playerID,
		Content:   content,
		Type:      contributionType,
		OrderNum:  len(story.contributions),
		TwistKind: twistKind,
		CreatedAt: timeNowUTC(),
	}
	story.contributions = append(story.contributions, contribution)
	return contribution, nil
}

// Contributions returns the story's timeline in order-number order, joined
// with author nickname and color where the author is a player.
func (s *Store) Contributions(storyID string) ([]ContributionView, error) {
	s.mu.Lock()
	story, ok := s.stories[storyID]
	s.mu.Unlock()
	if !ok {
		return nil, errStoryNotFound
	}

	story.mu.Lock()
	entries := make([]Contribution, len(story.contributions))
	copy(entries, story.contributions)
	story.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	views := make([]ContributionView, 0, len(entries))
	for _, entry := range entries {
		view := ContributionView{Contribution: entry}
		if entry.PlayerID != "" {
			if player, ok := s.players[entry.PlayerID]; ok {
				view.AuthorNickname = player.Nickname
				view.AuthorColor = player.Color
			}
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *Store) ContributionCounts(storyID string) (RoomCounts, error) {
	s.mu.Lock()
	story, ok := s.stories[storyID]
	s.mu.Unlock()
	if !ok {
		return RoomCounts{}, errStoryNotFound
	}

	story.mu.Lock()
	defer story.mu.Unlock()
	counts := RoomCounts{Total: len(story.contributions)}
	for _, entry := range story.contributions {
		switch entry.Type {
		case contributionTypePlayer:
			counts.Player++
		case contributionTypeAI:
			counts.AI++
		}
	}
	return counts, nil
}

// CompleteStory marks the story complete. The first call wins: repeats keep
// the original completion time and report changed=false.
func (s *Store) CompleteStory(storyID string) (*Story, bool, error) {
	s.mu.Lock()
	story, ok := s.stories[storyID]
	s.mu.Unlock()
	if !ok {
		return nil, false, errStoryNotFound
	}

	story.mu.Lock()
	defer story.mu.Unlock()
	if story.Complete {
		return story, false, nil
	}
	story.Complete = true
	story.CompletedAt = timeNowUTC()
	return story, true, nil
}

func timeNowUTC() time.Time {
	return time.Now().UTC()
}
