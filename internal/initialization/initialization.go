// Package initialization wires configuration, the bot registry, the
// plugin chain and the session runner into a runnable App.
package initialization

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"obot/internal"
	"obot/internal/bot"
	"obot/internal/commands"
	"obot/internal/config"
	"obot/internal/connection"
	"obot/internal/logger"
	"obot/internal/plugin"
	"obot/internal/session"
	"obot/internal/supervisor"
	"obot/pkg/api"
	"obot/plugins/chatlog"
	"obot/plugins/urltitle"
)

// builtins are the in-process plugins builtin_plugins may name.
var builtins = map[string]func() api.Plugin{
	"urltitle": func() api.Plugin { return urltitle.New() },
	"chatlog":  func() api.Plugin { return chatlog.New(internal.DEFAULT_CHATLOG_PATH) },
}

type Options struct {
	ConfigPath string
	EnvFile    string
	Verbosity  int
	Logger     *logger.Logger
	// Dialer replaces the TCP dialer, mainly for tests.
	Dialer connection.Dialer
}

type App struct {
	Config   *config.Config
	Registry *bot.Registry
	Chain    *plugin.Chain
	Commands *commands.Registry
	Runner   *session.Runner
	Watcher  *plugin.Watcher
	Log      *logger.Logger
}

func Initialize(opts Options) (*App, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Default()
	}
	log.SetVerbosity(opts.Verbosity)

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	configPath, err := config.Resolve(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	log.Infof("Loading configuration from %s", configPath)
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if dir := os.Getenv("OBOT_PLUGINS"); dir != "" {
		cfg.PluginDir = dir
	}

	if cfg.ErrorLog != "" {
		if err := log.SetErrorLog(cfg.ErrorLog); err != nil {
			log.Warnf("Error log disabled: %v", err)
		}
	}

	reg := bot.NewRegistry()
	for _, bc := range cfg.Bots {
		if _, err := bot.FromConfig(reg, bc); err != nil {
			return nil, err
		}
	}

	chain := plugin.NewChain(log)
	initializePlugins(cfg, chain, log)

	cmds := commands.NewRegistry()
	runner := session.NewRunner(session.Config{
		Options: session.Options{
			CommandPrefix:  cfg.CommandPrefix,
			ConnectTimeout: time.Duration(cfg.ConnectTimeout) * time.Second,
			FloodRate:      cfg.FloodRate,
			FloodBurst:     cfg.FloodBurst,
			MaxSessions:    cfg.MaxSessions,
			PluginDir:      cfg.PluginDir,
		},
		Registry: reg,
		Chain:    chain,
		Commands: cmds,
		Dialer:   opts.Dialer,
		Logger:   log,
	})

	app := &App{
		Config:   cfg,
		Registry: reg,
		Chain:    chain,
		Commands: cmds,
		Runner:   runner,
		Log:      log,
	}

	if cfg.WatchPlugins {
		w, err := plugin.NewWatcher(cfg.PluginDir, chain)
		if err != nil {
			log.Warnf("Plugin watcher disabled: %v", err)
		} else {
			app.Watcher = w
		}
	}
	return app, nil
}

// initializePlugins links the configured built-ins, then the autoload
// list, or every plugin file in plugin_dir when the list is empty. Load
// failures are logged and skipped.
func initializePlugins(cfg *config.Config, chain *plugin.Chain, log *logger.Logger) {
	for _, name := range cfg.BuiltinPlugins {
		newPlugin, ok := builtins[name]
		if !ok {
			log.Warnf("Unknown builtin plugin %q", name)
			continue
		}
		if err := chain.Register(name, newPlugin()); err != nil {
			log.Errorf("Error registering builtin %s: %v", name, err)
		}
	}

	if len(cfg.Autoload) > 0 {
		for _, name := range cfg.Autoload {
			path := name
			if !filepath.IsAbs(path) && filepath.Dir(path) == "." {
				path = filepath.Join(cfg.PluginDir, name)
			}
			if err := chain.Load(path); err != nil {
				log.Errorf("Error loading plugin %s: %v", name, err)
			}
		}
		return
	}

	if _, err := os.Stat(cfg.PluginDir); err != nil {
		log.Debugf("No plugin directory at %s", cfg.PluginDir)
		return
	}
	log.Infof("Loading plugins from %s", cfg.PluginDir)
	n, err := chain.LoadDir(cfg.PluginDir)
	if err != nil {
		log.Warnf("Error loading plugins: %v", err)
		return
	}
	log.Successf("Successfully loaded %d plugins from %s", n, cfg.PluginDir)
}

// Run starts one supervised session per configured bot and blocks until
// every session has ended. Cancelling ctx quits them all.
func (a *App) Run(ctx context.Context) error {
	delay := time.Duration(a.Config.ReconnectDelay) * time.Second
	sup := supervisor.New(ctx, a.Registry, a.Runner, delay, a.Log)
	a.Runner.SetSpawner(sup)

	if a.Watcher != nil {
		if err := a.Watcher.Start(ctx); err != nil {
			a.Log.Warnf("Plugin watcher disabled: %v", err)
		}
		defer a.Watcher.Stop()
	}

	for _, b := range a.Registry.Bots() {
		a.Log.Infof("Starting session %d (%s) on %s:%d", b.ID(), b.Nick(), b.Host, b.Port)
		sup.Spawn(b)
	}
	sup.Wait()

	for _, name := range a.Chain.Names() {
		if err := a.Chain.Unload(name); err != nil {
			a.Log.Warnf("Error unloading plugin %s: %v", name, err)
		}
	}
	a.Log.Infof("All sessions ended")
	return nil
}

// Close releases the plugin watcher and the error log.
func (a *App) Close() error {
	if a.Watcher != nil {
		a.Watcher.Stop()
	}
	return a.Log.Close()
}
