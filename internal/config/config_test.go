package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"obot/internal"
	"obot/internal/errs"
)

const sampleTOML = `
command_prefix = "."
autoload = ["urltitle.so"]

[[bot]]
irc_host = "irc.example.net"
irc_ssl = true
irc_nick = "obot"
irc_nspass = "secret"
irc_channels = "#one,#two"
irc_admin = ["alice!*@example.org", "bob"]

[[bot]]
irc_host = "irc.other.net"
irc_port = 7000
irc_nick = "obot2"
irc_user = "o2"
irc_name = "Second"
`

const sampleYAML = `
reconnect_delay: 5
bot:
  - irc_host: irc.example.net
    irc_nick: yamlbot
    irc_channels: "#yaml"
    irc_admin:
      - carol
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadConfigTOML(t *testing.T) {
	cfg, err := LoadConfig(writeFile(t, "obot.toml", sampleTOML))
	require.NoError(t, err)

	assert.Equal(t, ".", cfg.CommandPrefix)
	assert.Equal(t, internal.DEFAULT_RECONNECT_DELAY, cfg.ReconnectDelay)
	assert.Equal(t, internal.DEFAULT_PLUGINS_PATH, cfg.PluginDir)
	assert.Equal(t, []string{"urltitle.so"}, cfg.Autoload)
	require.Len(t, cfg.Bots, 2)

	first := cfg.Bots[0]
	assert.Equal(t, internal.DEFAULT_SSL_PORT, first.Port)
	assert.Equal(t, "obot", first.User)
	assert.Equal(t, internal.BOT_VERSION, first.Name)
	assert.Equal(t, internal.DEFAULT_USER_MODES, first.Modes)
	assert.Equal(t, "#one,#two", first.Channels)
	assert.ElementsMatch(t, []string{"alice!*@example.org", "bob"}, first.Admins)

	second := cfg.Bots[1]
	assert.Equal(t, 7000, second.Port)
	assert.Equal(t, "o2", second.User)
	assert.Equal(t, "Second", second.Name)
}

func TestLoadConfigYAML(t *testing.T) {
	cfg, err := LoadConfig(writeFile(t, "obot.yaml", sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.ReconnectDelay)
	require.Len(t, cfg.Bots, 1)
	assert.Equal(t, "yamlbot", cfg.Bots[0].Nick)
	assert.Equal(t, internal.DEFAULT_PORT, cfg.Bots[0].Port)
	assert.Equal(t, []string{"carol"}, cfg.Bots[0].Admins)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	assert.ErrorIs(t, err, errs.ErrConfigMissing)
}

func TestValidateConfigCollectsFields(t *testing.T) {
	path := writeFile(t, "bad.toml", "[[bot]]\nirc_port = 6667\n")
	_, err := LoadConfig(path)
	require.ErrorIs(t, err, errs.ErrConfigMissing)
	assert.Contains(t, err.Error(), "irc_host")
	assert.Contains(t, err.Error(), "irc_nick")
}

func TestValidateConfigNoBots(t *testing.T) {
	_, err := LoadConfig(writeFile(t, "empty.toml", "command_prefix = \"!\"\n"))
	assert.ErrorIs(t, err, errs.ErrConfigMissing)
}

func TestResolve(t *testing.T) {
	explicit := writeFile(t, "explicit.toml", sampleTOML)
	got, err := Resolve(explicit)
	require.NoError(t, err)
	assert.Equal(t, explicit, got)

	_, err = Resolve(filepath.Join(t.TempDir(), "nope.toml"))
	assert.ErrorIs(t, err, errs.ErrConfigMissing)

	fromEnv := writeFile(t, "env.toml", sampleTOML)
	t.Setenv("OBOT_CONFIG", fromEnv)
	got, err = Resolve("")
	require.NoError(t, err)
	assert.Equal(t, fromEnv, got)
}
