package session

import (
	"fmt"
	"strings"

	"github.com/ergochat/irc-go/ircutils"

	"obot/internal"
	"obot/internal/bot"
	"obot/internal/errs"
	"obot/internal/logger"
)

// maxPayload is the longest line body that fits the protocol limit once
// CRLF is appended.
const maxPayload = internal.MAX_LINE_LENGTH - len(internal.LINE_DELIMITER)

var lineBreaks = strings.NewReplacer("\r", "", "\n", " ")

// send paces, sanitizes, truncates and writes one line.
func (s *Session) send(line string) error {
	if err := s.limiter.Wait(s.ctx); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	return s.write(line)
}

func (s *Session) write(line string) error {
	line = ircutils.TruncateUTF8Safe(lineBreaks.Replace(line), maxPayload)

	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if s.closed || s.conn == nil {
		return fmt.Errorf("send: %w", errs.ErrNotConnected)
	}
	if _, err := s.conn.Send([]byte(line + internal.LINE_DELIMITER)); err != nil {
		return err
	}
	s.log.Trafficf(logger.Outbound, s.bot.Nick(), line)
	return nil
}

func (s *Session) sendf(format string, args ...any) error {
	return s.send(fmt.Sprintf(format, args...))
}

// Nick is the nick the session currently holds.
func (s *Session) Nick() string { return s.bot.Nick() }

func (s *Session) Pong(token string) error {
	return s.sendf("%s :%s", internal.CMD_PONG, token)
}

func (s *Session) Privmsg(target, text string) error {
	return s.sendf("%s %s :%s", internal.CMD_PRIVMSG, target, text)
}

func (s *Session) Action(target, text string) error {
	return s.sendf("%s %s :\x01ACTION %s\x01", internal.CMD_PRIVMSG, target, text)
}

func (s *Session) Notice(target, text string) error {
	return s.sendf("%s %s :%s", internal.CMD_NOTICE, target, text)
}

func (s *Session) Raw(line string) error {
	return s.send(line)
}

// Join adds channels to the bot's set and joins them.
func (s *Session) Join(channels string) error {
	if err := s.cfg.Registry.AddChannel(s.bot, channels); err != nil {
		return err
	}
	return s.sendf("%s %s", internal.CMD_JOIN, strings.Join(bot.SplitChannels(channels), ","))
}

// Part leaves each listed channel the bot is in and drops it from the set.
func (s *Session) Part(channels string) error {
	var failed error
	for _, name := range bot.SplitChannels(channels) {
		if err := s.cfg.Registry.RemoveChannel(s.bot, name); err != nil {
			failed = err
			continue
		}
		if err := s.sendf("%s %s", internal.CMD_PART, name); err != nil {
			return err
		}
	}
	return failed
}

func (s *Session) sendNick(nick string) error {
	return s.sendf("%s %s", internal.CMD_NICK, nick)
}

// ChangeNick asks the server for nick and makes it the nick to hold.
func (s *Session) ChangeNick(nick string) error {
	s.bot.SetDesiredNick(nick)
	return s.sendNick(nick)
}

func (s *Session) mode(target, modes string) error {
	return s.sendf("%s %s :%s", internal.CMD_MODE, target, modes)
}

func (s *Session) nickServ(sub, arg string) error {
	return s.sendf("%s %s :%s %s", internal.CMD_PRIVMSG, internal.NICKSERV, sub, arg)
}

func (s *Session) user(user, realName string) error {
	if realName == "" {
		realName = internal.BOT_VERSION
	}
	return s.sendf("%s %s * 8 :%s", internal.CMD_USER, user, realName)
}

// Quit marks the bot as quitting and sends QUIT. The session ends when
// the server closes the link.
func (s *Session) Quit(reason string) error {
	if reason == "" {
		reason = internal.BOT_VERSION
	}
	s.bot.UpdateStatus(bot.StatusQuitting, 0)
	s.state = StateQuitting
	return s.sendf("%s :%s", internal.CMD_QUIT, reason)
}

// Reconnect quits and asks for an immediate reconnect once the link
// closes.
func (s *Session) Reconnect(reason string) error {
	err := s.Quit(reason)
	s.bot.UpdateStatus(bot.StatusRestarting, 0)
	s.state = StateRestarting
	return err
}
