// Build with: go build -buildmode=plugin -o plugins/echo.so ./plugins_src/echo
package main

import (
	"strings"

	"obot/pkg/api"
)

type EchoPlugin struct{}

func (p *EchoPlugin) Init(h api.Handle) error {
	api.LogSuccess("%s loaded!", h.Name())
	return nil
}

// OnEvent repeats "!echo <text>" back to where it came from and keeps the
// line from the rest of the chain.
func (p *EchoPlugin) OnEvent(s api.Sender, from, to, command, text string) api.Eat {
	if command != api.CMD_PRIVMSG || !strings.HasPrefix(text, "!echo ") {
		return api.EatNone
	}
	s.Privmsg(api.ReplyTarget(s, from, to), strings.TrimPrefix(text, "!echo "))
	return api.EatPlugin
}

func (p *EchoPlugin) OnUnload() error {
	api.LogSuccess("EchoPlugin unloaded!")
	return nil
}

var Plugin api.Plugin = &EchoPlugin{}
