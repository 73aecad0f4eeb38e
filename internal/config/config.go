package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

const (
	MinPollInterval = 1 * time.Second
	MaxPollInterval = 60 * time.Second

	DefaultStatusGID = "373003429"
)

type Config struct {
	// Sheet & form endpoints
	SheetsURL          string
	StatusGID          string
	StatusResponsesGID string
	SheetTimezone      string
	SheetDateOrder     string
	FormURL            string
	FormEntryName      string
	FormEntrySpice     string
	FormEntryPortion   string
	StatusFormURL      string
	StatusFormEntry    string

	// Polling & matching
	FeedPollInterval    time.Duration
	ServingPollInterval time.Duration
	FetchTimeout        time.Duration
	MatchTimeout        time.Duration
	MatchLookback       time.Duration
	MatchSlack          time.Duration
	RebaseGrace         time.Duration

	// Stores & broker
	DatabaseURL string
	RedisURL    string
	SessionID   string
	SessionTTL  time.Duration
	RabbitMQURL string

	// Process
	HTTPPort  string
	LogLevel  string
	LogFormat string
	LogFile   string
}

func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		SheetsURL:          getEnv("SHEETS_URL", ""),
		StatusGID:          getEnv("STATUS_GID", DefaultStatusGID),
		StatusResponsesGID: getEnv("STATUS_RESPONSES_GID", ""),
		SheetTimezone:      getEnv("SHEET_TIMEZONE", "Local"),
		SheetDateOrder:     getEnv("SHEET_DATE_ORDER", "MDY"),
		FormURL:            getEnv("FORM_URL", ""),
		FormEntryName:      getEnv("FORM_ENTRY_NAME", "entry.310430013"),
		FormEntrySpice:     getEnv("FORM_ENTRY_SPICE", "entry.1825114017"),
		FormEntryPortion:   getEnv("FORM_ENTRY_PORTION", "entry.682541457"),
		StatusFormURL:      getEnv("STATUS_FORM_URL", ""),
		StatusFormEntry:    getEnv("STATUS_FORM_ENTRY", ""),

		FeedPollInterval:    clampInterval("FEED_POLL_INTERVAL", getEnvDuration("FEED_POLL_INTERVAL", 3*time.Second)),
		ServingPollInterval: clampInterval("SERVING_POLL_INTERVAL", getEnvDuration("SERVING_POLL_INTERVAL", 2*time.Second)),
		FetchTimeout:        getEnvDuration("FETCH_TIMEOUT", 10*time.Second),
		MatchTimeout:        getEnvDuration("MATCH_TIMEOUT", 30*time.Second),
		MatchLookback:       getEnvDuration("MATCH_LOOKBACK", 5*time.Minute),
		MatchSlack:          getEnvDuration("MATCH_SLACK", 2*time.Minute),
		RebaseGrace:         getEnvDuration("REBASE_GRACE", 60*time.Second),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),
		SessionID:   getEnv("SESSION_ID", uuid.NewString()),
		SessionTTL:  getEnvDuration("SESSION_TTL", 12*time.Hour),
		RabbitMQURL: getEnv("RABBITMQ_URL", ""),

		HTTPPort:  getEnv("HTTP_PORT", "8080"),
		LogLevel:  getEnv("LOG_LEVEL", "INFO"),
		LogFormat: getEnv("LOG_FORMAT", "TEXT"),
		LogFile:   getEnv("LOG_FILE", ""),
	}
}

// Location resolves SHEET_TIMEZONE, falling back to the process zone
func (c *Config) Location() *time.Location {
	if c.SheetTimezone == "" || c.SheetTimezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.SheetTimezone)
	if err != nil {
		slog.Warn("Unknown SHEET_TIMEZONE, using local time", "value", c.SheetTimezone, "error", err)
		return time.Local
	}
	return loc
}

func clampInterval(key string, d time.Duration) time.Duration {
	if d > MaxPollInterval {
		slog.Warn("Poll interval exceeds safety limit. Clamping to maximum", "key", key, "requested", d, "limit", MaxPollInterval)
		return MaxPollInterval
	} else if d < MinPollInterval {
		return MinPollInterval
	}
	return d
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

// getEnvDuration accepts Go durations ("3s") or bare seconds ("3")
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs := getEnvInt(key, -1); secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
