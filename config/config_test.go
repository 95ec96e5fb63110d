package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setRequired(t *testing.T) {
	t.Setenv("SAZKA_EMAIL", "player@example.com")
	t.Setenv("SAZKA_PASSWORD", "hunter2")
	t.Setenv("PUSHOVER_API_TOKEN", "azGDORePK8gMaC0QOYAMyEEuzJnyUi")
	t.Setenv("PUSHOVER_USER_KEY", "uQiRzpo4DXghDmr9QzzfQu27cmVRsG")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "https://www.sazka.cz", cfg.Sazka.BaseURL)
	assert.Equal(t, "https://api.pushover.net/1/", cfg.Pushover.BaseURL)
	assert.Equal(t, "file", cfg.History.Backend)
	assert.Equal(t, "metadata.txt", cfg.History.FilePath)
	assert.Equal(t, []string{"pushover"}, cfg.Watch.Channels)
	assert.Equal(t, uint(3), cfg.Watch.RetryAttempts)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 0, cfg.ServerPort)
	assert.True(t, cfg.RunOnce())
	assert.True(t, cfg.HasChannel(ChannelPushover))
	assert.False(t, cfg.HasChannel(ChannelEmail))
	assert.NotNil(t, cfg.Location())
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("WATCH_INTERVAL", "15m")
	t.Setenv("NOTIFY_CHANNELS", " Pushover , email")
	t.Setenv("MAILGUN_DOMAIN", "mg.example.com")
	t.Setenv("MAILGUN_API_KEY", "key")
	t.Setenv("MAILGUN_SENDER_FROM", "bonuswatch@example.com")
	t.Setenv("MAILGUN_RECIPIENT", "me@example.com")
	t.Setenv("HISTORY_BACKEND", "sqlite")
	t.Setenv("HISTORY_DB_PATH", "/tmp/history.sqlite")
	t.Setenv("SAZKA_TIMEZONE", "UTC")
	t.Setenv("PUSHOVER_SOUND", "cashregister")
	t.Setenv("PUSHOVER_PRIORITY", "1")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 15*time.Minute, cfg.Watch.Interval)
	assert.False(t, cfg.RunOnce())
	assert.Equal(t, []string{"pushover", "email"}, cfg.Watch.Channels)
	assert.True(t, cfg.HasChannel(ChannelEmail))
	assert.Equal(t, time.UTC, cfg.Location())
	assert.Equal(t, 1, cfg.Pushover.Priority)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"missing sazka email", map[string]string{"SAZKA_EMAIL": ""}, "SAZKA_EMAIL"},
		{"missing pushover token", map[string]string{"PUSHOVER_API_TOKEN": ""}, "PUSHOVER_API_TOKEN"},
		{"unknown channel", map[string]string{"NOTIFY_CHANNELS": "sms"}, "unknown channel"},
		{"email without mailgun", map[string]string{"NOTIFY_CHANNELS": "email"}, "MAILGUN_DOMAIN"},
		{"bad backend", map[string]string{"HISTORY_BACKEND": "redis"}, "HISTORY_BACKEND"},
		{"bad sound", map[string]string{"PUSHOVER_SOUND": "kazoo"}, "PUSHOVER_SOUND"},
		{"emergency priority", map[string]string{"PUSHOVER_PRIORITY": "2"}, "PUSHOVER_PRIORITY"},
		{"bad timezone", map[string]string{"SAZKA_TIMEZONE": "Mars/Olympus"}, "SAZKA_TIMEZONE"},
		{"negative interval", map[string]string{"WATCH_INTERVAL": "-1m"}, "WATCH_INTERVAL"},
		{"no attempts", map[string]string{"SEND_RETRY_ATTEMPTS": "0"}, "SEND_RETRY_ATTEMPTS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateReportsAllProblems(t *testing.T) {
	cfg := &Config{}
	cfg.Sazka.Timezone = "UTC"
	cfg.Watch.Channels = []string{ChannelPushover}
	cfg.Watch.RetryAttempts = 1
	cfg.History.Backend = "file"
	cfg.History.FilePath = "metadata.txt"
	cfg.HTTPTimeout = time.Second

	err := cfg.Validate()
	require.Error(t, err)
	for _, name := range []string{"SAZKA_EMAIL", "SAZKA_PASSWORD", "PUSHOVER_API_TOKEN", "PUSHOVER_USER_KEY"} {
		assert.Contains(t, err.Error(), name)
	}
}

func TestParseCreds(t *testing.T) {
	cfg := &Config{BasicAuthCreds: "admin:secret, viewer : pass"}
	creds, err := cfg.parseCreds()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"admin": "secret", "viewer": "pass"}, creds)

	for _, bad := range []string{"", "admin", "a:b:c"} {
		cfg := &Config{BasicAuthCreds: bad}
		_, err := cfg.parseCreds()
		assert.Error(t, err, bad)
	}
}

func TestNewConfigServerCreds(t *testing.T) {
	setRequired(t)
	t.Setenv("SERVER_PORT", "8080")

	t.Setenv("ENVIRONMENT", "development")
	cfg, err := NewConfig(zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"admin": "password"}, cfg.GetCreds())

	t.Setenv("ENVIRONMENT", "production")
	_, err = NewConfig(zap.NewNop())
	assert.Error(t, err)

	t.Setenv("BASIC_AUTH_CREDS", "ops:s3cret")
	cfg, err = NewConfig(zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"ops": "s3cret"}, cfg.GetCreds())
}
