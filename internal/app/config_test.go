package app

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Maneldor/la-publica-new-sub022/internal/database"
	"github.com/Maneldor/la-publica-new-sub022/pkg/mail"
)

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join("testdata")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "debug", cfg.Server.LogLevel)

	require.Equal(t, "postgres", cfg.Database.Driver)
	require.True(t, cfg.Database.Postgres.Enabled)
	require.Equal(t, "db.example.com", cfg.Database.Postgres.Host)
	require.Equal(t, 5433, cfg.Database.Postgres.Port)

	require.Equal(t, 35, cfg.Assignment.DefaultCapacity)

	require.Equal(t, 96*time.Hour, cfg.Requests.TTL)
	require.Equal(t, "@every 30m", cfg.Requests.SweepSchedule)
	require.Equal(t, 30, cfg.Requests.AuditRetentionDays)

	require.False(t, cfg.Features.Notifications.Enabled)
	require.True(t, cfg.Features.Metrics.Enabled)
	require.Equal(t, "/internal/metrics", cfg.Features.Metrics.Endpoint)

	require.True(t, cfg.Email.SMTP.Enabled)
	require.Equal(t, "smtp.example.com", cfg.Email.SMTP.Host)
	require.Equal(t, 2525, cfg.Email.SMTP.Port)
	require.Equal(t, "smtp-user", cfg.Email.SMTP.Username)
	require.Equal(t, "smtp-pass", cfg.Email.SMTP.Password)
	require.Equal(t, "no-reply@example.com", cfg.Email.SMTP.From)
	require.True(t, cfg.Email.SMTP.UseTLS)
	require.Equal(t, 15*time.Second, cfg.Email.SMTP.Timeout)
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 8000, cfg.Server.Port)
	require.Equal(t, "info", cfg.Server.LogLevel)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, "./data/lapublica.sqlite", cfg.Database.Path)
	require.Equal(t, 20, cfg.Assignment.DefaultCapacity)
	require.Equal(t, 720*time.Hour, cfg.Requests.TTL)
	require.Equal(t, "@hourly", cfg.Requests.SweepSchedule)
	require.Equal(t, 90, cfg.Requests.AuditRetentionDays)
	require.True(t, cfg.Features.Notifications.Enabled)
	require.True(t, cfg.Features.Metrics.Enabled)
	require.Equal(t, "/metrics", cfg.Features.Metrics.Endpoint)
	require.False(t, cfg.Email.SMTP.Enabled)
	require.Equal(t, 10*time.Second, cfg.Email.SMTP.Timeout)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("LA_PUBLICA_SERVER_PORT", "7070")
	t.Setenv("LA_PUBLICA_ASSIGNMENT_DEFAULT_CAPACITY", "12")
	t.Setenv("LA_PUBLICA_REQUESTS_TTL", "48h")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 7070, cfg.Server.Port)
	require.Equal(t, 12, cfg.Assignment.DefaultCapacity)
	require.Equal(t, 48*time.Hour, cfg.Requests.TTL)
}

func TestDatabaseSettingsAdapter(t *testing.T) {
	cfg := Config{
		Database: DatabaseConfig{
			Driver: "Postgres",
			Postgres: DBAuthConfig{
				Host:     "db.internal",
				Port:     5432,
				Database: "lapublica",
				Username: "engine",
				Password: "pass",
			},
		},
	}

	require.Equal(t, database.Config{
		Driver:   "postgres",
		Host:     "db.internal",
		Port:     5432,
		User:     "engine",
		Password: "pass",
		Name:     "lapublica",
	}, cfg.DatabaseSettings())
}

func TestSMTPSettingsAdapter(t *testing.T) {
	cfg := Config{
		Email: EmailConfig{
			SMTP: SMTPConfig{
				Enabled:  true,
				Host:     "smtp.example.com",
				Port:     2525,
				Username: "user",
				Password: "pass",
				From:     "no-reply@example.com",
				UseTLS:   true,
				Timeout:  5 * time.Second,
			},
		},
	}

	require.Equal(t, mail.SMTPSettings{
		Enabled:  true,
		Host:     "smtp.example.com",
		Port:     2525,
		Username: "user",
		Password: "pass",
		From:     "no-reply@example.com",
		UseTLS:   true,
		Timeout:  5 * time.Second,
	}, cfg.SMTPSettings())
}
