package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"obot/internal"
	"obot/internal/errs"
)

// Config is the whole configuration file: process-wide settings plus one
// Bot table per IRC identity.
type Config struct {
	CommandPrefix  string   `toml:"command_prefix" yaml:"command_prefix"`
	ReconnectDelay int      `toml:"reconnect_delay" yaml:"reconnect_delay"`
	ConnectTimeout int      `toml:"connect_timeout" yaml:"connect_timeout"`
	MaxSessions    int      `toml:"max_sessions" yaml:"max_sessions"`
	PluginDir      string   `toml:"plugin_dir" yaml:"plugin_dir"`
	Autoload       []string `toml:"autoload" yaml:"autoload"`
	BuiltinPlugins []string `toml:"builtin_plugins" yaml:"builtin_plugins"`
	WatchPlugins   bool     `toml:"watch_plugins" yaml:"watch_plugins"`
	ErrorLog       string   `toml:"error_log" yaml:"error_log"`
	FloodRate      float64  `toml:"flood_rate" yaml:"flood_rate"`
	FloodBurst     int      `toml:"flood_burst" yaml:"flood_burst"`

	Bots []Bot `toml:"bot" yaml:"bot"`
}

// Bot is one [[bot]] table.
type Bot struct {
	Host            string   `toml:"irc_host" yaml:"irc_host"`
	Port            int      `toml:"irc_port" yaml:"irc_port"`
	SSL             bool     `toml:"irc_ssl" yaml:"irc_ssl"`
	TLSSkipVerify   bool     `toml:"tls_skip_verify" yaml:"tls_skip_verify"`
	Pass            string   `toml:"irc_pass" yaml:"irc_pass"`
	Nick            string   `toml:"irc_nick" yaml:"irc_nick"`
	NickServPass    string   `toml:"irc_nspass" yaml:"irc_nspass"`
	User            string   `toml:"irc_user" yaml:"irc_user"`
	Name            string   `toml:"irc_name" yaml:"irc_name"`
	Channels        string   `toml:"irc_channels" yaml:"irc_channels"`
	Admins          []string `toml:"irc_admin" yaml:"irc_admin"`
	AdminHash       string   `toml:"irc_admin_hash" yaml:"irc_admin_hash"`
	Modes           string   `toml:"irc_modes" yaml:"irc_modes"`
	ReconnectOnDrop bool     `toml:"reconnect_on_drop" yaml:"reconnect_on_drop"`
}

// ApplyDefaults fills every unset optional field.
func (c *Config) ApplyDefaults() {
	if c.CommandPrefix == "" {
		c.CommandPrefix = internal.DEFAULT_COMMAND_PREFIX
	}
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = internal.DEFAULT_RECONNECT_DELAY
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = internal.DEFAULT_CONNECT_TIMEOUT
	}
	if c.MaxSessions <= 0 {
		c.MaxSessions = internal.DEFAULT_MAX_SESSIONS
	}
	if c.PluginDir == "" {
		c.PluginDir = internal.DEFAULT_PLUGINS_PATH
	}
	if c.FloodBurst <= 0 {
		c.FloodBurst = 5
	}
	for i := range c.Bots {
		c.Bots[i].applyDefaults()
	}
}

func (b *Bot) applyDefaults() {
	if b.Port == 0 {
		b.Port = internal.DEFAULT_PORT
		if b.SSL {
			b.Port = internal.DEFAULT_SSL_PORT
		}
	}
	if b.User == "" {
		b.User = b.Nick
	}
	if b.Name == "" {
		b.Name = internal.BOT_VERSION
	}
	if b.Modes == "" {
		b.Modes = internal.DEFAULT_USER_MODES
	}
}

// ValidateConfig checks every bot table and reports all missing fields at once.
func ValidateConfig(cfg *Config) error {
	if len(cfg.Bots) == 0 {
		return fmt.Errorf("%w: no [[bot]] sections defined", errs.ErrConfigMissing)
	}

	var problems []string
	for i, b := range cfg.Bots {
		var missingFields []string
		if b.Host == "" {
			missingFields = append(missingFields, "irc_host")
		}
		if b.Nick == "" {
			missingFields = append(missingFields, "irc_nick")
		}
		if len(missingFields) > 0 {
			problems = append(problems, fmt.Sprintf("bot #%d: %s", i+1, strings.Join(missingFields, ", ")))
		}
		if b.Port < 0 || b.Port > 65535 {
			return fmt.Errorf("bot #%d: irc_port %d out of range", i+1, b.Port)
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: missing required configuration fields: %s",
			errs.ErrConfigMissing, strings.Join(problems, "; "))
	}
	return nil
}

// LoadConfig decodes path as TOML, or YAML when the extension says so.
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errs.ErrConfigMissing, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config file %s: %w", path, err)
		}
	default:
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("%w: %v", errs.ErrConfigMissing, err)
		}
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config file %s: %w", path, err)
		}
	}

	cfg.ApplyDefaults()
	if err := ValidateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Resolve picks the configuration file: the explicit path, then
// $OBOT_CONFIG, then ~/.obot.toml, then the default data path.
func Resolve(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("%w: %v", errs.ErrConfigMissing, err)
		}
		return explicit, nil
	}

	candidates := []string{os.Getenv("OBOT_CONFIG")}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, internal.DEFAULT_CONFIG_NAME))
	}
	candidates = append(candidates, internal.DEFAULT_CONFIG_PATH)

	for _, p := range candidates {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: no configuration file found (tried %s)",
		errs.ErrConfigMissing, strings.Join(nonEmpty(candidates), ", "))
}

func nonEmpty(in []string) []string {
	out := in[:0:0]
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
