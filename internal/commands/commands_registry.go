// Package commands implements the prefixed admin commands a session
// answers in chat.
package commands

import (
	"sort"
	"strings"

	"gopkg.in/irc.v4"

	"obot/internal/bot"
	"obot/internal/logger"
	"obot/pkg/api"
)

// Plugins is the part of the plugin chain commands can drive.
type Plugins interface {
	Load(path string) error
	Unload(name string) error
	Names() []string
}

// Env is the session a command runs in.
type Env interface {
	api.Sender
	Bot() *bot.Bot
	Registry() *bot.Registry
	Plugins() Plugins
	PluginDir() string
	Logger() *logger.Logger

	Join(channels string) error
	Part(channels string) error
	ChangeNick(nick string) error
	Quit(reason string) error
	Reconnect(reason string) error
	Spawn(nick string) (*bot.Bot, error)
}

// Request is one parsed command line.
type Request struct {
	From    string // nick!user@host
	Nick    string
	To      string
	ReplyTo string
	Private bool

	Name string
	Args []string
	// Rest is the raw text after the command word.
	Rest string

	registry *Registry
}

type CommandFunc func(env Env, req *Request)

type Command struct {
	Name        string
	Description string
	Handler     CommandFunc
	Public      bool
}

type Registry struct {
	commands map[string]Command
}

// NewRegistry returns a registry holding the built-in commands.
func NewRegistry() *Registry {
	r := &Registry{commands: make(map[string]Command)}
	registerBuiltins(r)
	return r
}

func (r *Registry) RegisterCommand(name, description string, public bool, handler CommandFunc) {
	r.commands[strings.ToLower(name)] = Command{
		Name:        name,
		Description: description,
		Handler:     handler,
		Public:      public,
	}
}

func (r *Registry) GetCommand(name string) (Command, bool) {
	cmd, exists := r.commands[strings.ToLower(name)]
	return cmd, exists
}

// Names lists registered command names in order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.commands))
	for _, cmd := range r.commands {
		names = append(names, cmd.Name)
	}
	sort.Strings(names)
	return names
}

// Handle runs the command in text if it starts with prefix. It reports
// whether text named a known command; unknown, denied and malformed
// commands produce no reply.
func (r *Registry) Handle(env Env, prefix, from, to, text string) bool {
	if prefix == "" || !strings.HasPrefix(text, prefix) {
		return false
	}
	body := strings.TrimSpace(text[len(prefix):])
	word, rest, _ := strings.Cut(body, " ")
	if word == "" {
		return false
	}

	cmd, exists := r.GetCommand(word)
	if !exists {
		return false
	}

	req := &Request{
		From: from,
		Nick: irc.ParsePrefix(from).Name,
		To:   to,
		Name: cmd.Name,
		Rest: strings.TrimSpace(rest),

		registry: r,
	}
	req.Args = strings.Fields(req.Rest)
	req.Private = strings.EqualFold(to, env.Nick())
	req.ReplyTo = to
	if req.Private {
		req.ReplyTo = req.Nick
	}

	if !cmd.Public && !IsAdmin(env.Bot(), from) {
		env.Logger().Debugf("Ignored %s from non-admin %s", cmd.Name, from)
		return true
	}

	env.Logger().Infof("Command %s from %s", cmd.Name, from)
	cmd.Handler(env, req)
	return true
}
