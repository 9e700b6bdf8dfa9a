package commands

import (
	"fmt"
	"path/filepath"
	"strings"

	"obot/pkg/api"
)

func listPlugins(env Env, req *Request) {
	names := env.Plugins().Names()
	if len(names) == 0 {
		env.Notice(req.Nick, "No plugins currently loaded")
		return
	}
	for _, part := range api.SplitMessageForIRC("Loaded plugins: "+strings.Join(names, ", "), 400) {
		env.Notice(req.Nick, part)
	}
}

// pluginPath resolves a bare file name against the plugin directory.
func pluginPath(env Env, arg string) string {
	if filepath.IsAbs(arg) || strings.ContainsRune(arg, filepath.Separator) || env.PluginDir() == "" {
		return arg
	}
	return filepath.Join(env.PluginDir(), arg)
}

func loadPluginCmd(env Env, req *Request) {
	if len(req.Args) < 1 {
		return
	}
	path := pluginPath(env, req.Args[0])

	if err := env.Plugins().Load(path); err != nil {
		env.Logger().Errorf("Error loading plugin %s: %v", path, err)
		env.Notice(req.Nick, fmt.Sprintf("Error loading plugin %s: %v", filepath.Base(path), err))
		return
	}
	env.Notice(req.Nick, fmt.Sprintf("Plugin %s loaded successfully", filepath.Base(path)))
}

func unloadPluginCmd(env Env, req *Request) {
	if len(req.Args) < 1 {
		return
	}
	name := req.Args[0]

	if err := env.Plugins().Unload(name); err != nil {
		env.Logger().Errorf("Error unloading plugin %s: %v", name, err)
		env.Notice(req.Nick, fmt.Sprintf("Error unloading plugin %s: %v", name, err))
		return
	}
	env.Notice(req.Nick, fmt.Sprintf("Plugin %s unloaded successfully", name))
}
