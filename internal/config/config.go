package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config keeps runtime settings for the planner.
type Config struct {
	TelegramToken       string
	DatabaseURL         string
	FirebaseCredentials string
	FirebaseProjectID   string
	ReminderInterval    time.Duration
	ReportTime          string
	Location            *time.Location
	AdminIDs            map[int64]bool
}

// Load reads configuration from a .env file, when present, and environment
// variables with sane defaults.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[warn] load .env: %v", err)
	}
	return fromEnv(os.Getenv)
}

func fromEnv(getenv func(string) string) (Config, error) {
	get := func(key string) string { return strings.TrimSpace(getenv(key)) }

	cfg := Config{
		TelegramToken:       get("TELEGRAM_TOKEN"),
		DatabaseURL:         get("DATABASE_URL"),
		FirebaseCredentials: get("FIREBASE_CREDENTIALS"),
		FirebaseProjectID:   get("FIREBASE_PROJECT_ID"),
		ReminderInterval:    parseMinutes(get("REMINDER_INTERVAL_MINUTES")),
		ReportTime:          get("REPORT_TIME"),
		Location:            parseLocation(get("TIMEZONE")),
		AdminIDs:            parseIDs(get("ADMIN_IDS")),
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "study_planner.db"
	}

	if cfg.ReminderInterval == 0 {
		cfg.ReminderInterval = 5 * time.Minute
	}

	if !validClock(cfg.ReportTime) {
		cfg.ReportTime = "08:00"
	}

	if cfg.TelegramToken == "" {
		return cfg, fmt.Errorf("TELEGRAM_TOKEN is required")
	}

	return cfg, nil
}

func parseMinutes(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	minutes, err := strconv.Atoi(raw)
	if err != nil || minutes <= 0 {
		return 0
	}
	return time.Duration(minutes) * time.Minute
}

func parseLocation(raw string) *time.Location {
	if raw == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(raw)
	if err != nil {
		log.Printf("[warn] unknown TIMEZONE %q, using local time", raw)
		return time.Local
	}
	return loc
}

func parseIDs(raw string) map[int64]bool {
	ids := make(map[int64]bool)
	for _, part := range strings.Split(raw, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err == nil {
			ids[id] = true
		}
	}
	return ids
}

func validClock(raw string) bool {
	_, err := time.Parse("15:04", raw)
	return err == nil
}
