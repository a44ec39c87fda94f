package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Validate ---

func TestValidate_Defaults(t *testing.T) {
	require.NoError(t, Validate(Defaults()))
}

func TestValidate_UnknownDriver(t *testing.T) {
	cfg := Defaults()
	cfg.Store.Driver = "postgres"
	assert.Error(t, Validate(cfg))
}

func TestValidate_SQLiteNeedsPath(t *testing.T) {
	cfg := Defaults()
	cfg.Store.Driver = "sqlite"
	cfg.Store.Path = ""
	assert.Error(t, Validate(cfg))

	cfg.Store.Path = "/tmp/x.db"
	assert.NoError(t, Validate(cfg))
}

func TestValidate_QueueSize(t *testing.T) {
	cfg := Defaults()
	cfg.SDK.QueueSize = 0
	assert.Error(t, Validate(cfg))
}

func TestValidate_LookupTimeout(t *testing.T) {
	cfg := Defaults()
	cfg.SDK.LookupTimeout = 0
	assert.Error(t, Validate(cfg))
}

func TestValidate_TelegramNeedsToken(t *testing.T) {
	cfg := Defaults()
	cfg.Telegram.Enabled = true
	assert.Error(t, Validate(cfg))

	cfg.Telegram.Token = "123:abc"
	assert.NoError(t, Validate(cfg))
}

func TestValidate_TransportCredentials(t *testing.T) {
	cfg := Defaults()
	cfg.Discord.Enabled = true
	cfg.Slack.Enabled = true
	cfg.Slack.BotToken = "xoxb-1"
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "discord.token")
	assert.Contains(t, err.Error(), "slack.appToken")

	cfg.Discord.Token = "d"
	cfg.Slack.AppToken = "xapp-1"
	assert.NoError(t, Validate(cfg))

	cfg.WebSocket.Enabled = true
	cfg.WebSocket.Addr = ""
	assert.ErrorContains(t, Validate(cfg), "websocket.addr")
}

func TestValidate_LogFormat(t *testing.T) {
	cfg := Defaults()
	cfg.Logging.Format = "xml"
	assert.Error(t, Validate(cfg))
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Store.Driver = ""
	cfg.SDK.QueueSize = -1
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver")
	assert.Contains(t, err.Error(), "sdk.queueSize")
}

// --- Load ---

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, 256, cfg.SDK.QueueSize)
	assert.Equal(t, 2*time.Second, cfg.SDK.LookupTimeout)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
store:
  driver: sqlite
  path: /tmp/imkit-test.db
sdk:
  token: abc
  queueSize: 8
  lookupTimeout: 500ms
telegram:
  allowFrom: ["42", "43"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "/tmp/imkit-test.db", cfg.Store.Path)
	assert.Equal(t, "abc", cfg.SDK.Token)
	assert.Equal(t, 8, cfg.SDK.QueueSize)
	assert.Equal(t, 500*time.Millisecond, cfg.SDK.LookupTimeout)
	assert.Equal(t, []string{"42", "43"}, cfg.Telegram.AllowFrom)
	// untouched sections keep defaults
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("IMKIT_SDK_TOKEN", "from-env")
	t.Setenv("IMKIT_LOGGING_LEVEL", "debug")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.SDK.Token)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_InvalidRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  driver: nope\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Defaults()
	cfg.SDK.Token = "tok"
	cfg.Store.Fixture = "/tmp/fixture.yaml"
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "tok", loaded.SDK.Token)
	assert.Equal(t, "/tmp/fixture.yaml", loaded.Store.Fixture)
}

func TestLookup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("app:\n  name: demo\n"), 0o644))

	v, err := Lookup(path, "app.name")
	require.NoError(t, err)
	assert.Equal(t, "demo", v)

	v, err = Lookup(path, "metrics.path")
	require.NoError(t, err)
	assert.Equal(t, "/metrics", v)

	_, err = Lookup(path, "nope.nothing")
	assert.Error(t, err)
}

func TestSanitize(t *testing.T) {
	cfg := Defaults()
	cfg.SDK.Token = "secret-token"
	cfg.Telegram.Token = "abc"
	cfg.Slack.AppToken = "xapp-1-secret"

	s := Sanitize(cfg)
	assert.Equal(t, "secr****", s.SDK.Token)
	assert.Equal(t, "****", s.Telegram.Token)
	assert.Equal(t, "xapp****", s.Slack.AppToken)
	assert.Empty(t, s.Discord.Token)
	assert.Equal(t, "secret-token", cfg.SDK.Token, "original must be untouched")
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "x.db"), ExpandPath("~/x.db"))
	assert.Equal(t, "/abs/x.db", ExpandPath("/abs/x.db"))
}
