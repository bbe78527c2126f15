package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Storage backends accepted by STORAGE.
const (
	StorageDatabase = "database"
	StorageMemory   = "memory"
)

// Config stores runtime configuration loaded from environment variables.
type Config struct {
	Port                 string
	Storage              string
	DatabaseURL          string
	SQLitePath           string
	LocalTimezone        *time.Location
	PollSchedule         string
	TwilioAccountSID     string
	TwilioAuthToken      string
	TwilioWhatsAppNumber string
	NotifyWhatsAppTo     string
	OpenAIAPIKey         string
	LogLevel             string
	LogFormat            string
	SubscriberBuffer     int
}

// Load reads configuration values and prepares defaults where applicable.
func Load() *Config {
	_ = godotenv.Load()

	timezoneName := getenvDefault("LOCAL_TIMEZONE", "Local")
	location, err := time.LoadLocation(timezoneName)
	if err != nil {
		logrus.Warnf("config: invalid LOCAL_TIMEZONE %q, defaulting to system local: %v", timezoneName, err)
		location = time.Local
	}

	storage := strings.ToLower(getenvDefault("STORAGE", StorageDatabase))
	if storage != StorageDatabase && storage != StorageMemory {
		logrus.Warnf("config: unknown STORAGE %q, using %s", storage, StorageDatabase)
		storage = StorageDatabase
	}

	return &Config{
		Port:                 getenvDefault("PORT", "8080"),
		Storage:              storage,
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		SQLitePath:           getenvDefault("SQLITE_PATH", "forgetmenot.db"),
		LocalTimezone:        location,
		PollSchedule:         getenvDefault("POLL_SCHEDULE", "* * * * *"),
		TwilioAccountSID:     os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:      os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioWhatsAppNumber: os.Getenv("TWILIO_WHATSAPP_NUMBER"),
		NotifyWhatsAppTo:     os.Getenv("NOTIFY_WHATSAPP_TO"),
		OpenAIAPIKey:         os.Getenv("OPENAI_API_KEY"),
		LogLevel:             getenvDefault("LOG_LEVEL", "info"),
		LogFormat:            strings.ToLower(getenvDefault("LOG_FORMAT", "text")),
		SubscriberBuffer:     ParseIntEnv("SUBSCRIBER_BUFFER", 16),
	}
}

// TwilioEnabled reports whether enough Twilio settings are present to send messages.
func (c *Config) TwilioEnabled() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != "" && c.TwilioWhatsAppNumber != ""
}

func getenvDefault(key, def string) string {
	value := os.Getenv(key)
	if value == "" {
		return def
	}
	return value
}

// ParseIntEnv returns the integer value for an environment variable or the provided default.
func ParseIntEnv(key string, def int) int {
	value := os.Getenv(key)
	if value == "" {
		return def
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		logrus.Warnf("config: unable to parse %s=%q as int: %v", key, value, err)
		return def
	}
	return parsed
}
