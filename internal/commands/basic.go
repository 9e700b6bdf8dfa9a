package commands

import (
	"strings"

	"obot/pkg/api"
)

// Channel Join/Part Commands
func joinCmd(env Env, req *Request) {
	if len(req.Args) < 1 {
		return
	}
	if err := env.Join(req.Args[0]); err != nil {
		env.Notice(req.Nick, "join failed: "+err.Error())
	}
}

func partCmd(env Env, req *Request) {
	if len(req.Args) < 1 {
		return
	}
	if err := env.Part(req.Args[0]); err != nil {
		env.Notice(req.Nick, "part failed: "+err.Error())
	}
}

// Message Commands

// splitTarget takes a leading channel argument off text. Without one the
// target is the channel the command came from; a private request without
// a channel has no target.
func splitTarget(req *Request) (target, text string) {
	if len(req.Args) > 1 && api.IsChannelName(req.Args[0]) {
		_, text, _ = strings.Cut(req.Rest, " ")
		return req.Args[0], strings.TrimSpace(text)
	}
	if api.IsChannelName(req.To) {
		return req.To, req.Rest
	}
	return "", ""
}

func sayCmd(env Env, req *Request) {
	target, text := splitTarget(req)
	if target == "" || text == "" {
		return
	}
	env.Privmsg(target, text)
}

func meCmd(env Env, req *Request) {
	target, text := splitTarget(req)
	if target == "" || text == "" {
		return
	}
	env.Action(target, text)
}

func rawCmd(env Env, req *Request) {
	if req.Rest == "" {
		return
	}
	env.Raw(req.Rest)
}

// Bot Control Commands
func nickCmd(env Env, req *Request) {
	if len(req.Args) < 1 {
		return
	}
	env.ChangeNick(req.Args[0])
}

func quitCmd(env Env, req *Request) {
	env.Quit(req.Rest)
}

func reconnectCmd(env Env, req *Request) {
	env.Reconnect(req.Rest)
}
