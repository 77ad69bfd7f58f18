package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envFrom(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := fromEnv(envFrom(map[string]string{"TELEGRAM_TOKEN": " token "}))
	require.NoError(t, err)

	assert.Equal(t, "token", cfg.TelegramToken)
	assert.Equal(t, "study_planner.db", cfg.DatabaseURL)
	assert.Equal(t, 5*time.Minute, cfg.ReminderInterval)
	assert.Equal(t, "08:00", cfg.ReportTime)
	assert.Equal(t, time.Local, cfg.Location)
	assert.Empty(t, cfg.FirebaseCredentials)
	assert.Empty(t, cfg.AdminIDs)
}

func TestFromEnvOverrides(t *testing.T) {
	cfg, err := fromEnv(envFrom(map[string]string{
		"TELEGRAM_TOKEN":            "token",
		"DATABASE_URL":              "data/planner.db",
		"FIREBASE_CREDENTIALS":      "/secrets/sa.json",
		"FIREBASE_PROJECT_ID":       "planner-prod",
		"REMINDER_INTERVAL_MINUTES": "15",
		"REPORT_TIME":               "07:45",
		"TIMEZONE":                  "UTC",
		"ADMIN_IDS":                 "42, 7,notanumber",
	}))
	require.NoError(t, err)

	assert.Equal(t, "data/planner.db", cfg.DatabaseURL)
	assert.Equal(t, "/secrets/sa.json", cfg.FirebaseCredentials)
	assert.Equal(t, "planner-prod", cfg.FirebaseProjectID)
	assert.Equal(t, 15*time.Minute, cfg.ReminderInterval)
	assert.Equal(t, "07:45", cfg.ReportTime)
	assert.Equal(t, "UTC", cfg.Location.String())
	assert.Equal(t, map[int64]bool{42: true, 7: true}, cfg.AdminIDs)
}

func TestFromEnvInvalidValuesFallBack(t *testing.T) {
	cfg, err := fromEnv(envFrom(map[string]string{
		"TELEGRAM_TOKEN":            "token",
		"REMINDER_INTERVAL_MINUTES": "-3",
		"REPORT_TIME":               "late",
		"TIMEZONE":                  "Mars/Olympus",
	}))
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, cfg.ReminderInterval)
	assert.Equal(t, "08:00", cfg.ReportTime)
	assert.Equal(t, time.Local, cfg.Location)
}

func TestFromEnvRequiresToken(t *testing.T) {
	_, err := fromEnv(envFrom(map[string]string{}))
	assert.Error(t, err)
}
