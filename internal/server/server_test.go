package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"plot-twist/internal/config"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	cfg := config.Default()
	cfg.AIMockDelayMillis = 0
	cfg.AIRetryBaseMillis = 0
	srv := New(nil, cfg)
	// Pin the twist roll high so probabilistic triggers stay quiet unless a
	// test stubs it.
	srv.twistRoll = func() float64 { return 0.99 }
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func postJSON(t *testing.T, url string, payload any) (*http.Response, map[string]any) {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	defer resp.Body.Close()
	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, decoded
}

func getJSON(t *testing.T, url string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer resp.Body.Close()
	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, decoded
}

func createTestRoom(t *testing.T, base string, payload map[string]any) map[string]any {
	t.Helper()
	resp, body := postJSON(t, base+"/api/rooms", payload)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create room returned %d: %v", resp.StatusCode, body)
	}
	return body
}

func TestCreateRoom(t *testing.T) {
	_, ts := newTestServer(t)

	body := createTestRoom(t, ts.URL, map[string]any{
		"nickname":  "Alice",
		"game_mode": "freeform",
	})
	for _, key := range []string{"room_id", "player_id", "player_color"} {
		if value, _ := body[key].(string); value == "" {
			t.Fatalf("missing %s in create response: %v", key, body)
		}
	}
	color := body["player_color"].(string)
	found := false
	for _, candidate := range playerPalette {
		if candidate == color {
			found = true
		}
	}
	if !found {
		t.Fatalf("player color %s not in palette", color)
	}
}

func TestCreateRoomValidation(t *testing.T) {
	_, ts := newTestServer(t)

	cases := []struct {
		name    string
		payload map[string]any
		wantErr string
	}{
		{"missing nickname", map[string]any{"game_mode": "freeform"}, "nickname is required"},
		{"nickname too long", map[string]any{"nickname": "abcdefghijklmnopqrstu", "game_mode": "freeform"}, "nickname must be 20 characters or fewer"},
		{"bad game mode", map[string]any{"nickname": "Alice", "game_mode": "battle"}, "invalid game mode"},
		{"themed without theme", map[string]any{"nickname": "Alice", "game_mode": "themed"}, "theme is required for themed mode"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := postJSON(t, ts.URL+"/api/rooms", tc.payload)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %v", resp.StatusCode, body)
			}
			if body["error"] != tc.wantErr {
				t.Fatalf("expected error %q, got %v", tc.wantErr, body["error"])
			}
		})
	}
}

func TestCreateRoomThemed(t *testing.T) {
	srv, ts := newTestServer(t)

	body := createTestRoom(t, ts.URL, map[string]any{
		"nickname":  "Alice",
		"game_mode": "themed",
		"theme":     "haunted bakery",
	})
	room, ok := srv.store.GetRoom(body["room_id"].(string))
	if !ok || room.Theme != "haunted bakery" {
		t.Fatalf("theme not stored on room: %+v", room)
	}
}

func TestJoinRoom(t *testing.T) {
	_, ts := newTestServer(t)

	created := createTestRoom(t, ts.URL, map[string]any{
		"nickname":  "Alice",
		"game_mode": "freeform",
	})
	roomID := created["room_id"].(string)

	resp, body := postJSON(t, ts.URL+"/api/rooms/"+roomID+"/join", map[string]any{"nickname": "Bob"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("join returned %d: %v", resp.StatusCode, body)
	}
	if value, _ := body["player_id"].(string); value == "" {
		t.Fatalf("missing player_id in join response: %v", body)
	}
	if body["player_color"] == created["player_color"] {
		t.Fatal("second player received the first player's color")
	}
}

func TestJoinRoomNotFound(t *testing.T) {
	_, ts := newTestServer(t)

	resp, body := postJSON(t, ts.URL+"/api/rooms/nope/join", map[string]any{"nickname": "Bob"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %v", resp.StatusCode, body)
	}
}

func TestJoinRoomFull(t *testing.T) {
	_, ts := newTestServer(t)

	created := createTestRoom(t, ts.URL, map[string]any{
		"nickname":    "Alice",
		"game_mode":   "freeform",
		"max_players": 2,
	})
	roomID := created["room_id"].(string)

	resp, _ := postJSON(t, ts.URL+"/api/rooms/"+roomID+"/join", map[string]any{"nickname": "Bob"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("second join should succeed, got %d", resp.StatusCode)
	}
	resp, body := postJSON(t, ts.URL+"/api/rooms/"+roomID+"/join", map[string]any{"nickname": "Carol"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for full room, got %d", resp.StatusCode)
	}
	if body["error"] != errRoomFull.Error() {
		t.Fatalf("expected %q, got %v", errRoomFull, body["error"])
	}
}

func TestJoinRoomDuplicateNickname(t *testing.T) {
	_, ts := newTestServer(t)

	created := createTestRoom(t, ts.URL, map[string]any{
		"nickname":  "Alice",
		"game_mode": "freeform",
	})
	roomID := created["room_id"].(string)

	resp, body := postJSON(t, ts.URL+"/api/rooms/"+roomID+"/join", map[string]any{"nickname": "alice"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if body["error"] != errNicknameTaken.Error() {
		t.Fatalf("expected %q, got %v", errNicknameTaken, body["error"])
	}
}

func TestRoomStatusSnapshot(t *testing.T) {
	srv, ts := newTestServer(t)

	created := createTestRoom(t, ts.URL, map[string]any{
		"nickname":  "Alice",
		"game_mode": "freeform",
	})
	roomID := created["room_id"].(string)
	playerID := created["player_id"].(string)

	story, ok := srv.store.StoryByRoom(roomID)
	if !ok {
		t.Fatal("room bootstrap did not create a story")
	}
	if _, err := srv.store.AppendContribution(story.ID, "Once upon a time", contributionTypePlayer, playerID, ""); err != nil {
		t.Fatalf("append: %v", err)
	}

	resp, body := getJSON(t, ts.URL+"/api/rooms/"+roomID)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status returned %d: %v", resp.StatusCode, body)
	}

	players, _ := body["players"].([]any)
	if len(players) != 1 {
		t.Fatalf("expected 1 player in snapshot, got %v", body["players"])
	}
	contributions, _ := body["contributions"].([]any)
	if len(contributions) != 1 {
		t.Fatalf("expected 1 contribution in snapshot, got %v", body["contributions"])
	}
	entry := contributions[0].(map[string]any)
	if entry["author_nickname"] != "Alice" {
		t.Fatalf("contribution missing author join: %v", entry)
	}
	stats, _ := body["stats"].(map[string]any)
	if stats["is_game_started"] != true {
		t.Fatalf("expected game started in stats, got %v", stats)
	}
	if stats["is_game_complete"] != false {
		t.Fatalf("expected game not complete, got %v", stats)
	}
}

func TestRoomStatusNotFound(t *testing.T) {
	_, ts := newTestServer(t)

	resp, _ := getJSON(t, ts.URL+"/api/rooms/missing")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}
