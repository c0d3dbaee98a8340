package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eliseohh/reviewbot/internal/failure"
	"github.com/eliseohh/reviewbot/internal/logger"
)

// clearEnv blanks every variable Load reads so the host environment
// cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, names := range envBindings {
		for _, name := range names {
			t.Setenv(name, "")
			os.Unsetenv(name)
		}
	}
}

func setSecrets(t *testing.T) {
	t.Helper()
	t.Setenv("PRACTICUM_TOKEN", "practicum")
	t.Setenv("TELEGRAM_TOKEN", "telegram")
	t.Setenv("TELEGRAM_CHAT_ID", "12345")
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	setSecrets(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "practicum", cfg.PracticumToken)
	assert.Equal(t, "telegram", cfg.TelegramToken)
	assert.Equal(t, "12345", cfg.ChatID)
	assert.Equal(t, DefaultEndpoint, cfg.Endpoint)
	assert.Equal(t, DefaultPollInterval, cfg.PollInterval)
	assert.Equal(t, DefaultRequestTimeout, cfg.RequestTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.JournalPath)
	assert.False(t, cfg.CommandsEnabled)
	assert.True(t, CheckTokens(cfg))
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	setSecrets(t)
	t.Setenv("POLL_INTERVAL", "30")
	t.Setenv("REQUEST_TIMEOUT", "1m30s")
	t.Setenv("ENDPOINT", "http://localhost:8080/api")
	t.Setenv("COMMANDS_ENABLED", "true")
	t.Setenv("JOURNAL_PATH", "/tmp/journal.db")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.PollInterval)
	assert.Equal(t, 90*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "http://localhost:8080/api", cfg.Endpoint)
	assert.True(t, cfg.CommandsEnabled)
	assert.Equal(t, "/tmp/journal.db", cfg.JournalPath)
}

func TestLoadLegacyNames(t *testing.T) {
	clearEnv(t)
	t.Setenv("PRAKTICUM_TOKEN", "legacy")
	t.Setenv("TELEGRAM_TOKEN", "telegram")
	t.Setenv("CHAT_ID", "@channel")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "legacy", cfg.PracticumToken)
	assert.Equal(t, "@channel", cfg.ChatID)
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	content := "PRACTICUM_TOKEN=from-file\nTELEGRAM_TOKEN=tg\nTELEGRAM_CHAT_ID=42\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("PRACTICUM_TOKEN")
		os.Unsetenv("TELEGRAM_TOKEN")
		os.Unsetenv("TELEGRAM_CHAT_ID")
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.PracticumToken)
	assert.Equal(t, "42", cfg.ChatID)
}

func TestLoadMissingEnvFileIsIgnored(t *testing.T) {
	clearEnv(t)
	setSecrets(t)

	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	assert.NoError(t, err)
}

func TestLoadRejectsBadInterval(t *testing.T) {
	clearEnv(t)
	setSecrets(t)
	t.Setenv("POLL_INTERVAL", "0")

	_, err := Load("")
	assert.ErrorContains(t, err, "poll interval must be positive")
}

func TestCheckTokens(t *testing.T) {
	full := Config{PracticumToken: "p", TelegramToken: "t", ChatID: "1"}

	testCases := []struct {
		name    string
		mutate  func(*Config)
		missing string
	}{
		{name: "NoPracticumToken", mutate: func(c *Config) { c.PracticumToken = "" }, missing: "PRACTICUM_TOKEN"},
		{name: "NoTelegramToken", mutate: func(c *Config) { c.TelegramToken = "" }, missing: "TELEGRAM_TOKEN"},
		{name: "NoChatID", mutate: func(c *Config) { c.ChatID = "" }, missing: "TELEGRAM_CHAT_ID"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger.SetOutput(&buf)
			t.Cleanup(func() { logger.SetOutput(os.Stdout) })

			cfg := full
			tc.mutate(&cfg)

			assert.False(t, CheckTokens(cfg))
			assert.Equal(t, []string{tc.missing}, cfg.Missing())
			assert.True(t, failure.Is(cfg.Validate(), failure.ConfigurationMissing))
			assert.Contains(t, buf.String(), "level=CRITICAL")
			assert.Contains(t, buf.String(), tc.missing)
		})
	}

	assert.True(t, CheckTokens(full))
	assert.NoError(t, full.Validate())
}
