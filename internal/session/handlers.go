package session

import (
	"fmt"
	"math/rand"
	"strings"

	"gopkg.in/irc.v4"

	"obot/internal"
	"obot/internal/bot"
	"obot/internal/commands"
	"obot/internal/errs"
	"obot/internal/logger"
	"obot/pkg/api"
)

const (
	closingLink = "Closing Link"
	throttled   = "(Throttled: Reconnecting too fast)"
	ctcpVersion = "\x01VERSION\x01"
)

// process interprets one inbound line.
func (s *Session) process(line string) Outcome {
	s.log.Trafficf(logger.Inbound, s.bot.Nick(), line)

	m, err := irc.ParseMessage(line)
	if err != nil {
		s.log.Debugf(">> [%d] %v: %q", s.bot.ID(), errs.ErrProtocolMismatch, line)
		return OutcomeContinue
	}

	switch m.Command {
	case internal.CMD_PING:
		if err := s.Pong(m.Trailing()); err != nil {
			s.log.Errorf(">> Error sending PONG: %v", err)
		}
		return OutcomeContinue
	case internal.CMD_ERROR:
		if strings.HasPrefix(m.Trailing(), closingLink) {
			return s.handleClosingLink(m.Trailing())
		}
		s.log.Warnf(">> [%d] Server error: %s", s.bot.ID(), m.Trailing())
		return OutcomeContinue
	}

	from, to, text := "", "", ""
	if m.Prefix != nil {
		from = m.Prefix.String()
	}
	if len(m.Params) > 0 {
		to = m.Params[0]
	}
	if len(m.Params) > 1 {
		text = m.Trailing()
	}

	if s.cfg.Chain != nil {
		if eat := s.cfg.Chain.Dispatch(s, from, to, m.Command, text); eat == api.EatAll {
			return OutcomeContinue
		}
	}

	switch m.Command {
	case internal.CMD_PRIVMSG:
		s.handlePrivmsg(m, from, to, text)
	case internal.CMD_NOTICE:
		s.handleNotice(m, to, text)
	case internal.CMD_NICK:
		s.handleNickChange(m)
	case internal.ERR_NICKNAMEINUSE:
		s.handleNickInUse()
	case internal.RPL_ENDOFMOTD, internal.ERR_NOMOTD:
		s.handleEndOfMotd()
	}
	return OutcomeContinue
}

func (s *Session) handleClosingLink(text string) Outcome {
	st := s.bot.Status()
	switch {
	case st.Has(bot.StatusRestarting):
		s.bot.SetStatus(bot.StatusStarting)
		s.log.Infof(">> [%d] Link closed, reconnecting", s.bot.ID())
		return OutcomeReconnect
	case strings.Contains(text, throttled):
		s.bot.SetStatus(bot.StatusStarting)
		s.log.Warnf(">> [%d] Throttled by server, reconnecting later", s.bot.ID())
		return OutcomeReconnectDelay
	case st.Has(bot.StatusQuitting):
		s.log.Infof(">> [%d] Link closed after QUIT", s.bot.ID())
		return OutcomeNone
	}
	s.log.Warnf(">> [%d] Link closed by server: %s", s.bot.ID(), text)
	return s.dropped()
}

func (s *Session) handlePrivmsg(m *irc.Message, from, to, text string) {
	if text == ctcpVersion && m.Prefix != nil {
		s.Notice(m.Prefix.Name, "\x01VERSION "+internal.BOT_VERSION+"\x01")
		return
	}
	s.cfg.Commands.Handle(s, s.cfg.CommandPrefix, from, to, text)
}

func (s *Session) handleNotice(m *irc.Message, to, text string) {
	if m.Prefix != nil && strings.EqualFold(m.Prefix.Name, internal.NICKSERV) {
		s.handleNickServ(text)
		return
	}
	if to == "AUTH" || to == "*" {
		s.handleAuthNotice(text)
	}
}

func (s *Session) handleNickServ(text string) {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "nickname is registered"):
		if s.bot.NickServPass != "" {
			s.nickServ("IDENTIFY", s.bot.NickServPass)
		}
	case strings.Contains(lower, "ghost") && (strings.Contains(lower, "killed") || strings.Contains(lower, "ghosted")):
		if !s.ghostPending {
			s.log.Debugf(">> [%d] Ghost notice without a pending GHOST", s.bot.ID())
		}
		s.ghostPending = false
		s.bot.SetTempNick("")
		s.sendNick(s.bot.DesiredNick())
	}
}

// handleAuthNotice registers once the server has finished its hostname
// lookup.
func (s *Session) handleAuthNotice(text string) {
	if s.registered {
		return
	}
	if !strings.Contains(text, "Found your hostname") &&
		!strings.Contains(text, "Couldn't resolve your hostname") &&
		!strings.Contains(text, "Could not resolve your hostname") {
		return
	}
	s.registered = true

	if s.bot.Pass != "" {
		s.sendf("%s %s", internal.CMD_PASS, s.bot.Pass)
	}
	s.user(s.bot.User, s.bot.RealName)
	s.sendNick(s.bot.Nick())
}

func (s *Session) handleNickChange(m *irc.Message) {
	if m.Prefix == nil || len(m.Params) == 0 {
		return
	}
	if strings.EqualFold(m.Prefix.Name, s.bot.Nick()) {
		s.bot.SetNick(m.Trailing())
		s.log.Infof(">> [%d] Now known as %s", s.bot.ID(), m.Trailing())
	}
}

// handleNickInUse picks a temporary nick: the desired nick plus four
// random hex digits.
func (s *Session) handleNickInUse() {
	if s.state == StateRunning {
		s.log.Warnf(">> [%d] Nick change refused: nick in use", s.bot.ID())
		return
	}
	temp := fmt.Sprintf("%s%04x", s.bot.DesiredNick(), rand.Intn(0x10000))
	s.bot.SetTempNick(temp)
	s.log.Warnf(">> [%d] Nick %s in use, trying %s", s.bot.ID(), s.bot.DesiredNick(), temp)
	s.sendNick(temp)
}

func (s *Session) handleEndOfMotd() {
	if s.state == StateRunning {
		return
	}
	pass := s.bot.NickServPass

	if temp := s.bot.TempNick(); temp != "" {
		if pass != "" {
			s.ghostPending = true
			s.nickServ("GHOST", s.bot.DesiredNick()+" "+pass)
		}
		s.bot.SetNick(temp)
		s.bot.SetTempNick("")
	}
	if pass != "" {
		s.nickServ("IDENTIFY", pass)
	}
	if s.bot.Modes != "" {
		s.mode(s.bot.Nick(), s.bot.Modes)
	}
	for _, ch := range s.bot.Channels() {
		s.sendf("%s %s", internal.CMD_JOIN, ch)
	}

	s.bot.UpdateStatus(bot.StatusRunning, bot.StatusStarting)
	s.state = StateRunning
	s.log.Successf(">> [%d] Registered as %s", s.bot.ID(), s.bot.Nick())
}

// Environment for admin commands.

func (s *Session) Bot() *bot.Bot             { return s.bot }
func (s *Session) Registry() *bot.Registry   { return s.cfg.Registry }
func (s *Session) Plugins() commands.Plugins { return s.cfg.Chain }
func (s *Session) PluginDir() string         { return s.cfg.PluginDir }
func (s *Session) Logger() *logger.Logger    { return s.log }

// Spawn clones this bot under nick and starts it.
func (s *Session) Spawn(nick string) (*bot.Bot, error) {
	if nick == "" {
		return nil, fmt.Errorf("spawn: %w", errs.ErrInvalidArgument)
	}
	if s.cfg.MaxSessions > 0 && s.cfg.Registry.Len() >= s.cfg.MaxSessions {
		return nil, fmt.Errorf("spawn: %w (%d)", errs.ErrSessionLimit, s.cfg.MaxSessions)
	}
	clone, err := s.cfg.Registry.Clone(s.bot)
	if err != nil {
		return nil, fmt.Errorf("spawn: %w", err)
	}
	clone.SetNick(nick)
	clone.SetDesiredNick(nick)
	clone.SetTempNick("")
	clone.SetStatus(bot.StatusStarting)

	if s.cfg.Spawner != nil {
		s.cfg.Spawner.Spawn(clone)
	}
	return clone, nil
}
