package api

import (
	"fmt"
	"strings"

	"gopkg.in/irc.v4"

	"obot/internal/logger"
)

// Log functions that plugins can use
func LogInfo(format string, args ...interface{}) {
	logger.Infof(format, args...)
}

func LogError(format string, args ...interface{}) {
	logger.Errorf(format, args...)
}

func LogSuccess(format string, args ...interface{}) {
	logger.Successf(format, args...)
}

func LogWarn(format string, args ...interface{}) {
	logger.Warnf(format, args...)
}

func LogDebug(format string, args ...interface{}) {
	logger.Debugf(format, args...)
}

// IRC Command constants
const (
	CMD_PRIVMSG = "PRIVMSG"
	CMD_NOTICE  = "NOTICE"
	CMD_JOIN    = "JOIN"
	CMD_PART    = "PART"
	CMD_QUIT    = "QUIT"
	CMD_KICK    = "KICK"
	CMD_NICK    = "NICK"
	CMD_TOPIC   = "TOPIC"
	CMD_MODE    = "MODE"
)

// IRC Colors
const (
	ColorWhite      = "\x0300"
	ColorBlack      = "\x0301"
	ColorBlue       = "\x0302"
	ColorGreen      = "\x0303"
	ColorRed        = "\x0304"
	ColorOrange     = "\x0307"
	ColorYellow     = "\x0308"
	ColorLightGreen = "\x0309"
	ColorCyan       = "\x0310"
	ColorGray       = "\x0314"
	Bold            = "\x02"
	Italic          = "\x1D"
	Underline       = "\x1F"
	Reset           = "\x0F"
)

// ColorText returns colored text for IRC
func ColorText(text string, color string) string {
	return color + text + Reset
}

// BoldText returns bold text for IRC
func BoldText(text string) string {
	return Bold + text + Reset
}

// IsChannelName returns true if the string appears to be a valid IRC channel name
func IsChannelName(name string) bool {
	if len(name) == 0 {
		return false
	}
	return name[0] == '#' || name[0] == '&'
}

// ParseHostmask splits nick!user@host into its parts.
func ParseHostmask(hostmask string) (nick, user, host string) {
	p := irc.ParsePrefix(hostmask)
	return p.Name, p.User, p.Host
}

// ReplyTarget is where an answer to an event should go: the channel for
// channel messages, the sender for private ones.
func ReplyTarget(s Sender, from, to string) string {
	if IsChannelName(to) || !strings.EqualFold(to, s.Nick()) {
		return to
	}
	nick, _, _ := ParseHostmask(from)
	return nick
}

// FormatCommandHelp formats help text for a command
func FormatCommandHelp(command, syntax, description string) string {
	return fmt.Sprintf("%s: %s - %s", BoldText(command), syntax, description)
}

// SplitMessageForIRC splits a long message into multiple IRC-friendly parts
// to avoid hitting message length limits
func SplitMessageForIRC(message string, maxLength int) []string {
	if maxLength <= 0 {
		maxLength = 400
	}

	var parts []string
	for len(message) > maxLength {
		// Find the last space before the limit
		cutPoint := maxLength
		for cutPoint > 0 && message[cutPoint] != ' ' {
			cutPoint--
		}
		if cutPoint == 0 {
			cutPoint = maxLength
		}

		parts = append(parts, message[:cutPoint])
		message = strings.TrimPrefix(message[cutPoint:], " ")
	}

	if len(message) > 0 {
		parts = append(parts, message)
	}
	return parts
}
