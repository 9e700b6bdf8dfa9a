package commands

func registerBuiltins(r *Registry) {
	// Public
	r.RegisterCommand("conf", "Show session configuration. Usage: conf list", true, confCmd)
	r.RegisterCommand("auth", "Authenticate as admin by private message. Usage: auth <passphrase>", true, authCmd)
	r.RegisterCommand("help", "Show available commands", true, helpCmd)

	// Channel commands
	r.RegisterCommand("join", "Join channels. Usage: join <#a,#b>", false, joinCmd)
	r.RegisterCommand("part", "Leave channels. Usage: part <#a,#b>", false, partCmd)

	// Message commands
	r.RegisterCommand("say", "Say something. Usage: say [#chan] <text>", false, sayCmd)
	r.RegisterCommand("me", "Perform an action. Usage: me [#chan] <text>", false, meCmd)
	r.RegisterCommand("raw", "Send a raw IRC line. Usage: raw <line>", false, rawCmd)

	// Bot control
	r.RegisterCommand("nick", "Change nick. Usage: nick <new>", false, nickCmd)
	r.RegisterCommand("quit", "Disconnect this session. Usage: quit [reason]", false, quitCmd)
	r.RegisterCommand("reconnect", "Reconnect this session. Usage: reconnect [reason]", false, reconnectCmd)
	r.RegisterCommand("spawn", "Start a copy of this session under a new nick. Usage: spawn <nick>", false, spawnCmd)

	// Plugins
	r.RegisterCommand("load", "Load a plugin. Usage: load <path>", false, loadPluginCmd)
	r.RegisterCommand("unload", "Unload a plugin. Usage: unload <name>", false, unloadPluginCmd)
	r.RegisterCommand("plugins", "List loaded plugins", false, listPlugins)
}
