// Package api is the contract between the bot and its plugins. Plugins
// import only this package.
package api

// Eat is a callback's claim on an event.
type Eat int

const (
	// EatNone passes the event to the next plugin and the built-in commands.
	EatNone Eat = iota
	// EatPlugin stops the plugin chain but still lets built-in commands run.
	EatPlugin
	// EatAll stops the plugin chain and the built-in commands.
	EatAll
)

func (e Eat) String() string {
	switch e {
	case EatNone:
		return "none"
	case EatPlugin:
		return "plugin"
	case EatAll:
		return "all"
	}
	return "unknown"
}

// Sender writes to the session that delivered the event. It is safe to
// keep and use from other goroutines while the session is alive.
type Sender interface {
	Nick() string
	Privmsg(target, text string) error
	Action(target, text string) error
	Notice(target, text string) error
	Raw(line string) error
}

// Callback receives every chat event: from is the full source
// (nick!user@host), to the target, command the IRC verb or numeric.
type Callback func(s Sender, from, to, command, text string) Eat

// Handle is given to a plugin's initializer.
type Handle interface {
	Name() string
	RegisterCallback(cb Callback) error
}

// Plugin is what a native plugin exports as its "Plugin" symbol. Its
// OnEvent is registered as the callback.
type Plugin interface {
	OnEvent(s Sender, from, to, command, text string) Eat
}

// Initializer is optional; Init runs once after the plugin is linked.
type Initializer interface {
	Init(h Handle) error
}

// Unloader is an optional interface for plugins that need a cleanup hook.
type Unloader interface {
	OnUnload() error
}
