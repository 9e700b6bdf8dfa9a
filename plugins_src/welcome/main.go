// Build with: go build -buildmode=plugin -o plugins/welcome.so ./plugins_src/welcome
package main

import (
	"fmt"
	"strings"

	"obot/pkg/api"
)

// Init registers the callback directly instead of exporting a Plugin.
func Init(h api.Handle) error {
	api.LogSuccess("%s loaded!", h.Name())
	return h.RegisterCallback(onJoin)
}

func onJoin(s api.Sender, from, to, command, text string) api.Eat {
	if command != api.CMD_JOIN {
		return api.EatNone
	}
	nick, _, _ := api.ParseHostmask(from)
	if strings.EqualFold(nick, s.Nick()) {
		return api.EatNone
	}
	s.Privmsg(to, fmt.Sprintf("Welcome %s to %s!", nick, to))
	return api.EatNone
}
