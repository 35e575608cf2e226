package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads environment variables from a .env file if present.
// Existing environment variables are not overwritten.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

type Config struct {
	DefaultMaxPlayers        int
	RoomTTLHours             int
	RoomCleanupMinutes       int
	DBMaxOpenConns           int
	DBMaxIdleConns           int
	DBConnMaxLifetimeSeconds int
	DBConnMaxIdleTimeSeconds int
	AnthropicAPIKey          string
	AnthropicModel           string
	AIMaxRetries             int
	AIRetryBaseMillis        int
	AIMockDelayMillis        int
}

func Default() Config {
	return Config{
		DefaultMaxPlayers:        6,
		RoomTTLHours:             24,
		RoomCleanupMinutes:       15,
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           10,
		DBConnMaxLifetimeSeconds: 300,
		DBConnMaxIdleTimeSeconds: 60,
		AnthropicModel:           "claude-3-5-sonnet-20241022",
		AIMaxRetries:             3,
		AIRetryBaseMillis:        1000,
		AIMockDelayMillis:        750,
	}
}

func Load() Config {
	cfg := Default()
	if raw := os.Getenv("DEFAULT_MAX_PLAYERS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value >= 2 && value <= 8 {
			cfg.DefaultMaxPlayers = value
		}
	}
	if raw := os.Getenv("ROOM_TTL_HOURS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.RoomTTLHours = value
		}
	}
	if raw := os.Getenv("ROOM_CLEANUP_MINUTES"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.RoomCleanupMinutes = value
		}
	}
	if raw := os.Getenv("DB_MAX_OPEN_CONNS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DBMaxOpenConns = value
		}
	}
	if raw := os.Getenv("DB_MAX_IDLE_CONNS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DBMaxIdleConns = value
		}
	}
	if raw := os.Getenv("DB_CONN_MAX_LIFETIME_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DBConnMaxLifetimeSeconds = value
		}
	}
	if raw := os.Getenv("DB_CONN_MAX_IDLE_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DBConnMaxIdleTimeSeconds = value
		}
	}
	if raw := os.Getenv("ANTHROPIC_API_KEY"); raw != "" {
		cfg.AnthropicAPIKey = raw
	}
	if raw := os.Getenv("ANTHROPIC_MODEL"); raw != "" {
		cfg.AnthropicModel = raw
	}
	if raw := os.Getenv("AI_MAX_RETRIES"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.AIMaxRetries = value
		}
	}
	if raw := os.Getenv("AI_RETRY_BASE_MS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value >= 0 {
			cfg.AIRetryBaseMillis = value
		}
	}
	if raw := os.Getenv("AI_MOCK_DELAY_MS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value >= 0 {
			cfg.AIMockDelayMillis = value
		}
	}
	return cfg
}
