package commands

import (
	"strings"
)

func helpCmd(env Env, req *Request) {
	// help is public; admin-only commands are listed to admins
	admin := IsAdmin(env.Bot(), req.From)

	var available []string
	for _, name := range req.registry.Names() {
		cmd, _ := req.registry.GetCommand(name)
		if cmd.Public || admin {
			available = append(available, name)
		}
	}

	const maxCmdsPerMsg = 8
	for i := 0; i < len(available); i += maxCmdsPerMsg {
		end := min(i+maxCmdsPerMsg, len(available))
		env.Notice(req.Nick, strings.Join(available[i:end], " | "))
	}
}
