package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/fiffu/bonuswatch/lib/history"
	"github.com/fiffu/bonuswatch/lib/pushover"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const (
	ChannelPushover = "pushover"
	ChannelEmail    = "email"
)

type Config struct {
	Env            string        `env:"ENVIRONMENT" envDefault:"development"`
	BasicAuthCreds string        `env:"BASIC_AUTH_CREDS"`
	ServerPort     int           `env:"SERVER_PORT" envDefault:"0"`
	HTTPTimeout    time.Duration `env:"HTTP_TIMEOUT" envDefault:"30s"`

	Sazka struct {
		Email    string `env:"SAZKA_EMAIL"`
		Password string `env:"SAZKA_PASSWORD"`
		BaseURL  string `env:"SAZKA_BASE_URL" envDefault:"https://www.sazka.cz"`
		Timezone string `env:"SAZKA_TIMEZONE" envDefault:"Europe/Prague"`
	}
	Pushover struct {
		APIToken string `env:"PUSHOVER_API_TOKEN"`
		UserKey  string `env:"PUSHOVER_USER_KEY"`
		BaseURL  string `env:"PUSHOVER_BASE_URL" envDefault:"https://api.pushover.net/1/"`
		Sound    string `env:"PUSHOVER_SOUND"`
		Priority int    `env:"PUSHOVER_PRIORITY" envDefault:"0"`
		Device   string `env:"PUSHOVER_DEVICE"`
	}
	History struct {
		Backend  string `env:"HISTORY_BACKEND" envDefault:"file"`
		FilePath string `env:"METADATA_FILEPATH" envDefault:"metadata.txt"`
		DBPath   string `env:"HISTORY_DB_PATH" envDefault:"bonuswatch.sqlite"`
	}
	Watch struct {
		// Zero runs a single check and exits.
		Interval      time.Duration `env:"WATCH_INTERVAL" envDefault:"0"`
		Channels      []string      `env:"NOTIFY_CHANNELS" envDefault:"pushover" envSeparator:","`
		RetryAttempts uint          `env:"SEND_RETRY_ATTEMPTS" envDefault:"3"`
		RetryDelay    time.Duration `env:"SEND_RETRY_DELAY" envDefault:"2s"`
	}
	Mailgun struct {
		Domain      string `env:"MAILGUN_DOMAIN"`
		APIKey      string `env:"MAILGUN_API_KEY"`
		APIBase     string `env:"MAILGUN_API_BASE"`
		SenderFrom  string `env:"MAILGUN_SENDER_FROM"`
		Recipient   string `env:"MAILGUN_RECIPIENT"`
		TimeoutSecs int    `env:"MAILGUN_TIMEOUT_SECS" envDefault:"10"`
	}

	log      *zap.Logger
	creds    map[string]string
	location *time.Location
}

func NewConfig(log *zap.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	cfg.log = log

	if cfg.ServerPort > 0 {
		creds, err := cfg.parseCreds()
		if err != nil {
			if cfg.Env != "development" {
				return nil, err
			}
			cfg.log.Sugar().Infof("%s (credentials will be set to default in development env)", err)
			creds = map[string]string{"admin": "password"}
		}
		cfg.creds = creds
	}

	return cfg, nil
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	for i, ch := range cfg.Watch.Channels {
		cfg.Watch.Channels[i] = strings.ToLower(strings.TrimSpace(ch))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every missing or inconsistent setting at once.
func (cfg *Config) Validate() error {
	var errs []error
	require := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			errs = append(errs, fmt.Errorf("%s envvar must be populated", name))
		}
	}

	require("SAZKA_EMAIL", cfg.Sazka.Email)
	require("SAZKA_PASSWORD", cfg.Sazka.Password)

	loc, err := time.LoadLocation(cfg.Sazka.Timezone)
	if err != nil {
		errs = append(errs, fmt.Errorf("SAZKA_TIMEZONE: %w", err))
	}
	cfg.location = loc

	if len(cfg.Watch.Channels) == 0 {
		errs = append(errs, errors.New("NOTIFY_CHANNELS must name at least one channel"))
	}
	for _, ch := range cfg.Watch.Channels {
		switch ch {
		case ChannelPushover:
			require("PUSHOVER_API_TOKEN", cfg.Pushover.APIToken)
			require("PUSHOVER_USER_KEY", cfg.Pushover.UserKey)
		case ChannelEmail:
			require("MAILGUN_DOMAIN", cfg.Mailgun.Domain)
			require("MAILGUN_API_KEY", cfg.Mailgun.APIKey)
			require("MAILGUN_SENDER_FROM", cfg.Mailgun.SenderFrom)
			require("MAILGUN_RECIPIENT", cfg.Mailgun.Recipient)
		default:
			errs = append(errs, fmt.Errorf("NOTIFY_CHANNELS: unknown channel %q", ch))
		}
	}

	if cfg.Pushover.Sound != "" {
		if _, ok := pushover.ParseSound(cfg.Pushover.Sound); !ok {
			errs = append(errs, fmt.Errorf("PUSHOVER_SOUND: unsupported sound %q", cfg.Pushover.Sound))
		}
	}
	if p := pushover.Priority(cfg.Pushover.Priority); p < pushover.PriorityLowest || p >= pushover.PriorityEmergency {
		errs = append(errs, fmt.Errorf("PUSHOVER_PRIORITY must be between -2 and 1, got %d", cfg.Pushover.Priority))
	}

	switch cfg.History.Backend {
	case history.BackendFile:
		require("METADATA_FILEPATH", cfg.History.FilePath)
	case history.BackendSQLite:
		require("HISTORY_DB_PATH", cfg.History.DBPath)
	default:
		errs = append(errs, fmt.Errorf("HISTORY_BACKEND must be %q or %q, got %q", history.BackendFile, history.BackendSQLite, cfg.History.Backend))
	}

	if cfg.Watch.Interval < 0 {
		errs = append(errs, errors.New("WATCH_INTERVAL must not be negative"))
	}
	if cfg.Watch.RetryAttempts == 0 {
		errs = append(errs, errors.New("SEND_RETRY_ATTEMPTS must be at least 1"))
	}
	if cfg.HTTPTimeout <= 0 {
		errs = append(errs, errors.New("HTTP_TIMEOUT must be positive"))
	}
	if cfg.ServerPort < 0 || cfg.ServerPort > 65535 {
		errs = append(errs, fmt.Errorf("SERVER_PORT out of range: %d", cfg.ServerPort))
	}

	return errors.Join(errs...)
}

// Location is the zone for site timestamps without an offset.
func (cfg *Config) Location() *time.Location {
	if cfg.location == nil {
		return time.UTC
	}
	return cfg.location
}

// RunOnce reports whether the process should exit after a single check.
func (cfg *Config) RunOnce() bool {
	return cfg.Watch.Interval == 0
}

func (cfg *Config) HasChannel(name string) bool {
	for _, ch := range cfg.Watch.Channels {
		if ch == name {
			return true
		}
	}
	return false
}

// GetCreds returns the basic auth users for the API, parsing BASIC_AUTH_CREDS if needed.
func (cfg *Config) GetCreds() map[string]string {
	if cfg.creds == nil && cfg.BasicAuthCreds != "" {
		cfg.creds, _ = cfg.parseCreds()
	}
	return cfg.creds
}

func (cfg *Config) parseCreds() (map[string]string, error) {
	if cfg.BasicAuthCreds == "" {
		return nil, errors.New("BASIC_AUTH_CREDS envvar must be populated")
	}

	creds := strings.Split(cfg.BasicAuthCreds, ",")
	if len(creds) == 0 {
		return nil, errors.New("BASIC_AUTH_CREDS envvar should be filled with comma-separated values -- user1:pass1,user2:pass2")
	}

	result := make(map[string]string)
	for _, cred := range creds {
		userPass := strings.Split(cred, ":")
		if len(userPass) != 2 {
			return nil, fmt.Errorf("failed to parse '%s', each credential should be delimited by a colon -- user1:pass1,user2:pass2", cred)
		}

		user, pass := userPass[0], userPass[1]
		result[strings.Trim(user, " ")] = strings.Trim(pass, " ")
	}

	return result, nil
}
