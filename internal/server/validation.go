package server

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	maxNicknameLength     = 20
	maxThemeLength        = 64
	maxContributionLength = 2000
)

func validateNickname(nickname string) (string, error) {
	trimmed := normalizeText(nickname)
	if trimmed == "" {
		return "", errors.New("nickname is required")
	}
	if utf8.RuneCountInString(trimmed) > maxNicknameLength {
		return "", fmt.Errorf("nickname must be %d characters or fewer", maxNicknameLength)
	}
	return trimmed, nil
}

func validateTheme(theme string) (string, error) {
	trimmed := normalizeText(theme)
	if trimmed == "" {
		return "", errors.New("theme is required for themed mode")
	}
	if utf8.RuneCountInString(trimmed) > maxThemeLength {
		return "", fmt.Errorf("theme must be %d characters or fewer", maxThemeLength)
	}
	return trimmed, nil
}

func validateContribution(content string) (string, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "", errors.New("contribution is required")
	}
	if utf8.RuneCountInString(trimmed) > maxContributionLength {
		return "", fmt.Errorf("contribution must be %d characters or fewer", maxContributionLength)
	}
	return trimmed, nil
}

func validateGameMode(mode string) (string, error) {
	switch mode {
	case gameModeFreeform, gameModeThemed:
		return mode, nil
	default:
		return "", errors.New("invalid game mode")
	}
}

func validateMaxPlayers(value, fallback int) int {
	if value >= minRoomPlayers && value <= maxRoomPlayers {
		return value
	}
	return fallback
}

func normalizeText(text string) string {
	fields := strings.Fields(strings.TrimSpace(text))
	return strings.Join(fields, " ")
}
