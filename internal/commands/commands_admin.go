package commands

import (
	"fmt"
	"strings"

	"obot/internal/bot"
	"obot/internal/security"
)

// IsAdmin reports whether the source hostmask may run admin commands on
// b. Entries with mask characters are matched against the full
// nick!user@host, bare entries against the nick only.
func IsAdmin(b *bot.Bot, from string) bool {
	if b == nil || from == "" {
		return false
	}
	nick, _, _ := strings.Cut(from, "!")

	for _, entry := range b.Admins() {
		if strings.ContainsAny(entry, "!@*?") {
			if MatchMask(entry, from) {
				return true
			}
			continue
		}
		if strings.EqualFold(entry, nick) {
			return true
		}
	}
	for _, mask := range b.Authed() {
		if strings.EqualFold(mask, from) {
			return true
		}
	}
	return false
}

// MatchMask matches s against an IRC glob where * is any run of bytes and
// ? any single byte. The comparison ignores ASCII case.
func MatchMask(pattern, s string) bool {
	p, t := strings.ToLower(pattern), strings.ToLower(s)
	pi, ti := 0, 0
	star, mark := -1, 0

	for ti < len(t) {
		switch {
		case pi < len(p) && (p[pi] == '?' || p[pi] == t[ti]):
			pi++
			ti++
		case pi < len(p) && p[pi] == '*':
			star, mark = pi, ti
			pi++
		case star >= 0:
			pi = star + 1
			mark++
			ti = mark
		default:
			return false
		}
	}
	for pi < len(p) && p[pi] == '*' {
		pi++
	}
	return pi == len(p)
}

func authCmd(env Env, req *Request) {
	if !req.Private || len(req.Args) < 1 {
		return
	}
	b := env.Bot()
	if b.AdminHash == "" {
		return
	}

	ok, err := security.VerifyPassphrase(req.Rest, b.AdminHash)
	if err != nil {
		env.Logger().Errorf("Admin hash for %s is unusable: %v", b.Nick(), err)
		return
	}
	if !ok {
		env.Logger().Warnf("Failed auth attempt from %s", req.From)
		env.Notice(req.Nick, "Authentication failed.")
		return
	}

	b.AddAuthed(req.From)
	env.Logger().Successf("%s authenticated as admin", req.From)
	env.Notice(req.Nick, fmt.Sprintf("Authenticated as %s.", req.From))
}

func confCmd(env Env, req *Request) {
	if len(req.Args) < 1 || !strings.EqualFold(req.Args[0], "list") {
		return
	}
	for _, b := range env.Registry().Bots() {
		info := b.Info()
		channels := strings.Join(info.Channels, ",")
		if channels == "" {
			channels = "-"
		}
		env.Privmsg(req.ReplyTo, fmt.Sprintf("[%d] %s %s:%d %s %s",
			info.ID, info.Nick, info.Host, info.Port, info.Status, channels))
	}
}

func spawnCmd(env Env, req *Request) {
	if len(req.Args) < 1 {
		return
	}
	clone, err := env.Spawn(req.Args[0])
	if err != nil {
		env.Notice(req.Nick, "spawn failed: "+err.Error())
		return
	}
	env.Notice(req.Nick, fmt.Sprintf("Spawned session %d as %s.", clone.ID(), req.Args[0]))
}
