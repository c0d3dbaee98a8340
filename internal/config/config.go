package config

import (
	"errors"
	"fmt"
	"io/fs"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/eliseohh/reviewbot/internal/failure"
	"github.com/eliseohh/reviewbot/internal/logger"
)

const (
	DefaultEndpoint       = "https://practicum.yandex.ru/api/user_api/homework_statuses/"
	DefaultPollInterval   = 600 * time.Second
	DefaultRequestTimeout = 10 * time.Second
)

// Config is built once at startup and passed by value to every component.
type Config struct {
	PracticumToken  string        `mapstructure:"practicum_token"`
	TelegramToken   string        `mapstructure:"telegram_token"`
	ChatID          string        `mapstructure:"chat_id"`
	Endpoint        string        `mapstructure:"endpoint"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	LogLevel        string        `mapstructure:"log_level"`
	JournalPath     string        `mapstructure:"journal_path"`
	CommandsEnabled bool          `mapstructure:"commands_enabled"`
}

// env names per key; the first name is the canonical one.
var envBindings = map[string][]string{
	"practicum_token":  {"PRACTICUM_TOKEN", "PRAKTICUM_TOKEN"},
	"telegram_token":   {"TELEGRAM_TOKEN"},
	"chat_id":          {"TELEGRAM_CHAT_ID", "CHAT_ID"},
	"endpoint":         {"ENDPOINT"},
	"poll_interval":    {"POLL_INTERVAL"},
	"request_timeout":  {"REQUEST_TIMEOUT"},
	"log_level":        {"LOG_LEVEL"},
	"journal_path":     {"JOURNAL_PATH"},
	"commands_enabled": {"COMMANDS_ENABLED"},
}

// Load reads envFile (when non-empty and present) into the process
// environment and decodes the environment into a Config. Missing
// secrets are not an error here; see CheckTokens.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("reading %s failed: %w", envFile, err)
		}
	}

	v := viper.New()
	v.SetDefault("endpoint", DefaultEndpoint)
	v.SetDefault("poll_interval", DefaultPollInterval)
	v.SetDefault("request_timeout", DefaultRequestTimeout)
	v.SetDefault("log_level", "info")
	v.SetDefault("journal_path", "")
	v.SetDefault("commands_enabled", false)
	for key, names := range envBindings {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return Config{}, fmt.Errorf("binding %s failed: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		secondsToDurationHook,
		mapstructure.StringToTimeDurationHookFunc(),
	))); err != nil {
		return Config{}, fmt.Errorf("parsing config failed: %w", err)
	}
	cfg.PracticumToken = strings.TrimSpace(cfg.PracticumToken)
	cfg.TelegramToken = strings.TrimSpace(cfg.TelegramToken)
	cfg.ChatID = strings.TrimSpace(cfg.ChatID)

	if cfg.PollInterval <= 0 {
		return Config{}, fmt.Errorf("poll interval must be positive, got %s", cfg.PollInterval)
	}
	if cfg.RequestTimeout <= 0 {
		return Config{}, fmt.Errorf("request timeout must be positive, got %s", cfg.RequestTimeout)
	}
	return cfg, nil
}

// secondsToDurationHook accepts bare integers as seconds, so
// POLL_INTERVAL=600 and POLL_INTERVAL=10m mean the same thing.
func secondsToDurationHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf(time.Duration(0)) {
		return data, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(fmt.Sprint(data)))
	if err != nil {
		return data, nil
	}
	return time.Duration(n) * time.Second, nil
}

// Missing lists the environment names of the required secrets that are
// empty.
func (c Config) Missing() []string {
	var missing []string
	if c.PracticumToken == "" {
		missing = append(missing, envBindings["practicum_token"][0])
	}
	if c.TelegramToken == "" {
		missing = append(missing, envBindings["telegram_token"][0])
	}
	if c.ChatID == "" {
		missing = append(missing, envBindings["chat_id"][0])
	}
	return missing
}

// Validate returns a ConfigurationMissing failure naming every absent
// secret.
func (c Config) Validate() error {
	if missing := c.Missing(); len(missing) > 0 {
		return failure.New(failure.ConfigurationMissing, "check tokens",
			"required environment variables are not set: %s", strings.Join(missing, ", "))
	}
	return nil
}

// CheckTokens reports whether all required secrets are present, logging
// a critical line when they are not.
func CheckTokens(c Config) bool {
	if err := c.Validate(); err != nil {
		logger.Criticalf("startup aborted: %v", err)
		return false
	}
	return true
}
