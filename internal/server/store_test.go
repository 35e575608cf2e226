package server

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func newTestRoom(t *testing.T, store *Store, maxPlayers int) *Room {
	t.Helper()
	return store.CreateRoom(gameModeFreeform, "", maxPlayers, 24*time.Hour)
}

func TestAddPlayerAssignsDistinctColors(t *testing.T) {
	store := NewStore()
	room := newTestRoom(t, store, 8)

	seen := make(map[string]struct{})
	for i := 0; i < 8; i++ {
		player, err := store.AddPlayer(room.ID, fmt.Sprintf("player%d", i))
		if err != nil {
			t.Fatalf("add player %d: %v", i, err)
		}
		if _, dup := seen[player.Color]; dup {
			t.Fatalf("color %s assigned twice before palette exhausted", player.Color)
		}
		seen[player.Color] = struct{}{}
	}
	if len(seen) != len(playerPalette) {
		t.Fatalf("expected %d distinct colors, got %d", len(playerPalette), len(seen))
	}
}

func TestPickPlayerColorReusesPaletteWhenExhausted(t *testing.T) {
	players := make([]*Player, 0, len(playerPalette))
	for _, color := range playerPalette {
		players = append(players, &Player{Color: color})
	}
	color := pickPlayerColor(players)
	found := false
	for _, candidate := range playerPalette {
		if candidate == color {
			found = true
		}
	}
	if !found {
		t.Fatalf("exhausted palette returned non-palette color %s", color)
	}
}

func TestAddPlayerRoomFull(t *testing.T) {
	store := NewStore()
	room := newTestRoom(t, store, 2)

	if _, err := store.AddPlayer(room.ID, "Alice"); err != nil {
		t.Fatalf("first join failed: %v", err)
	}
	if _, err := store.AddPlayer(room.ID, "Bob"); err != nil {
		t.Fatalf("second join failed: %v", err)
	}
	if _, err := store.AddPlayer(room.ID, "Carol"); err != errRoomFull {
		t.Fatalf("expected %q, got %v", errRoomFull, err)
	}
}

func TestAddPlayerRoomFullUnderConcurrency(t *testing.T) {
	store := NewStore()
	room := newTestRoom(t, store, 4)

	const attempts = 16
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = store.AddPlayer(room.ID, fmt.Sprintf("player%d", i))
		}(i)
	}
	wg.Wait()

	joined := 0
	for _, err := range errs {
		if err == nil {
			joined++
		} else if err != errRoomFull {
			t.Fatalf("unexpected join error: %v", err)
		}
	}
	if joined != 4 {
		t.Fatalf("expected exactly 4 successful joins, got %d", joined)
	}
}

func TestAddPlayerNicknameConflictIsCaseInsensitive(t *testing.T) {
	store := NewStore()
	room := newTestRoom(t, store, 4)

	if _, err := store.AddPlayer(room.ID, "Josh"); err != nil {
		t.Fatalf("first join failed: %v", err)
	}
	if _, err := store.AddPlayer(room.ID, "josh"); err != errNicknameTaken {
		t.Fatalf("expected %q, got %v", errNicknameTaken, err)
	}
}

func TestAddPlayerInactiveRoom(t *testing.T) {
	store := NewStore()
	room := newTestRoom(t, store, 4)
	store.DeactivateRoom(room.ID)

	if _, err := store.AddPlayer(room.ID, "Alice"); err != errRoomNotFound {
		t.Fatalf("expected %q, got %v", errRoomNotFound, err)
	}
}

func TestHostIsEarliestJoinedActivePlayer(t *testing.T) {
	store := NewStore()
	room := newTestRoom(t, store, 4)

	alice, err := store.AddPlayer(room.ID, "Alice")
	if err != nil {
		t.Fatalf("add Alice: %v", err)
	}
	bob, err := store.AddPlayer(room.ID, "Bob")
	if err != nil {
		t.Fatalf("add Bob: %v", err)
	}

	host, ok := store.HostPlayer(room.ID)
	if !ok || host.ID != alice.ID {
		t.Fatalf("expected Alice as host, got %+v", host)
	}

	store.DeactivatePlayer(alice.ID)
	host, ok = store.HostPlayer(room.ID)
	if !ok || host.ID != bob.ID {
		t.Fatalf("expected Bob as host after Alice left, got %+v", host)
	}

	store.DeactivatePlayer(bob.ID)
	if _, ok := store.HostPlayer(room.ID); ok {
		t.Fatal("expected no host in an empty room")
	}
}

func TestReactivatePlayer(t *testing.T) {
	store := NewStore()
	room := newTestRoom(t, store, 4)
	alice, err := store.AddPlayer(room.ID, "Alice")
	if err != nil {
		t.Fatalf("add Alice: %v", err)
	}
	if _, err := store.AddPlayer(room.ID, "Bob"); err != nil {
		t.Fatalf("add Bob: %v", err)
	}

	store.DeactivatePlayer(alice.ID)
	if got := len(store.ActivePlayers(room.ID)); got != 1 {
		t.Fatalf("expected 1 active player after leave, got %d", got)
	}

	if !store.ReactivatePlayer(alice.ID) {
		t.Fatal("reactivation reported no change for an inactive player")
	}
	if got := len(store.ActivePlayers(room.ID)); got != 2 {
		t.Fatalf("expected 2 active players after rejoin, got %d", got)
	}
	host, ok := store.HostPlayer(room.ID)
	if !ok || host.ID != alice.ID {
		t.Fatalf("expected Alice as host after rejoin, got %+v", host)
	}

	if store.ReactivatePlayer(alice.ID) {
		t.Fatal("reactivating an active player reported a change")
	}
	if store.ReactivatePlayer("missing") {
		t.Fatal("reactivating an unknown player reported a change")
	}
}

func TestAppendContributionConcurrentOrderNumbers(t *testing.T) {
	store := NewStore()
	room := newTestRoom(t, store, 4)
	player, err := store.AddPlayer(room.ID, "Alice")
	if err != nil {
		t.Fatalf("add player: %v", err)
	}
	story := store.CreateStory(room.ID)

	const writers = 32
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.AppendContribution(story.ID, fmt.Sprintf("line %d", i), contributionTypePlayer, player.ID, "")
			if err != nil {
				t.Errorf("append %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	views, err := store.Contributions(story.ID)
	if err != nil {
		t.Fatalf("list contributions: %v", err)
	}
	if len(views) != writers {
		t.Fatalf("expected %d contributions, got %d", writers, len(views))
	}
	for i, view := range views {
		if view.OrderNum != i {
			t.Fatalf("expected order %d at position %d, got %d", i, i, view.OrderNum)
		}
	}
}

func TestContributionsJoinAuthorDetails(t *testing.T) {
	store := NewStore()
	room := newTestRoom(t, store, 4)
	player, err := store.AddPlayer(room.ID, "Alice")
	if err != nil {
		t.Fatalf("add player: %v", err)
	}
	story := store.CreateStory(room.ID)

	if _, err := store.AppendContribution(story.ID, "Once upon a time", contributionTypePlayer, player.ID, ""); err != nil {
		t.Fatalf("append player contribution: %v", err)
	}
	if _, err := store.AppendContribution(story.ID, "Then a twist happened in the middle", contributionTypeAI, "", twistKindTwist); err != nil {
		t.Fatalf("append ai contribution: %v", err)
	}

	views, err := store.Contributions(story.ID)
	if err != nil {
		t.Fatalf("list contributions: %v", err)
	}
	if views[0].AuthorNickname != "Alice" || views[0].AuthorColor != player.Color {
		t.Fatalf("expected joined author details, got %+v", views[0])
	}
	if views[1].AuthorNickname != "" || views[1].AuthorColor != "" {
		t.Fatalf("expected no author details on ai contribution, got %+v", views[1])
	}

	counts, err := store.ContributionCounts(story.ID)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if counts.Total != 2 || counts.Player != 1 || counts.AI != 1 {
		t.Fatalf("unexpected counts: %+v", counts)
	}
}

func TestAppendContributionAfterCompletionRejected(t *testing.T) {
	store := NewStore()
	room := newTestRoom(t, store, 4)
	player, err := store.AddPlayer(room.ID, "Alice")
	if err != nil {
		t.Fatalf("add player: %v", err)
	}
	story := store.CreateStory(room.ID)

	if _, _, err := store.CompleteStory(story.ID); err != nil {
		t.Fatalf("complete story: %v", err)
	}
	if _, err := store.AppendContribution(story.ID, "one more line", contributionTypePlayer, player.ID, ""); err != errStoryCompleted {
		t.Fatalf("expected %q, got %v", errStoryCompleted, err)
	}
}

func TestCompleteStoryFirstCallerWins(t *testing.T) {
	store := NewStore()
	room := newTestRoom(t, store, 4)
	story := store.CreateStory(room.ID)

	first, changed, err := store.CompleteStory(story.ID)
	if err != nil || !changed {
		t.Fatalf("first completion: changed=%t err=%v", changed, err)
	}
	completedAt := first.CompletedAt

	second, changed, err := store.CompleteStory(story.ID)
	if err != nil {
		t.Fatalf("second completion: %v", err)
	}
	if changed {
		t.Fatal("second completion reported a state change")
	}
	if !second.CompletedAt.Equal(completedAt) {
		t.Fatal("second completion rewrote the completion time")
	}
}

func TestCleanupExpiredRooms(t *testing.T) {
	store := NewStore()
	fresh := store.CreateRoom(gameModeFreeform, "", 4, 24*time.Hour)
	stale := store.CreateRoom(gameModeFreeform, "", 4, time.Millisecond)

	swept := store.CleanupExpiredRooms(timeNowUTC().Add(time.Second))
	if swept != 1 {
		t.Fatalf("expected 1 swept room, got %d", swept)
	}
	if room, _ := store.GetRoom(stale.ID); room.Active {
		t.Fatal("expired room still active")
	}
	if room, _ := store.GetRoom(fresh.ID); !room.Active {
		t.Fatal("fresh room was deactivated")
	}
}
