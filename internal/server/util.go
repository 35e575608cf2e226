package server

import "crypto/rand"

func newToken(length int) string {
	const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghjkmnpqrstuvwxyz23456789"
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		for i := range buf {
			buf[i] = 'a'
		}
		return string(buf)
	}
	for i := range buf {
		buf[i] = alphabet[int(buf[i])%len(alphabet)]
	}
	return string(buf)
}

func newRoomID() string {
	return newToken(10)
}

func newPlayerID() string {
	return newToken(10)
}

func newStoryID() string {
	return newToken(10)
}

func newContributionID() string {
	return newToken(10)
}

var playerPalette = []string{
	"#EF4444",
	"#3B82F6",
	"#10B981",
	"#F59E0B",
	"#8B5CF6",
	"#EC4899",
	"#14B8A6",
	"#F97316",
}

// pickPlayerColor returns a palette color not used by any of the given
// players. Once the palette is exhausted, colors repeat round-robin.
func pickPlayerColor(players []*Player) string {
	used := make(map[string]struct{}, len(players))
	for _, player := range players {
		used[player.Color] = struct{}{}
	}
	for _, color := range playerPalette {
		if _, taken := used[color]; !taken {
			return color
		}
	}
	return playerPalette[len(players)%len(playerPalette)]
}
