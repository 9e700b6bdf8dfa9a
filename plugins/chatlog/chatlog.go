// Package chatlog writes channel and private conversations to daily log
// files under a base directory: <base>/CHANNEL/<name>/<date>.log and
// <base>/PRIVATE/<nick>/<date>.log.
package chatlog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"obot/pkg/api"
)

type LogType string

const (
	ChannelLog LogType = "CHANNEL"
	PrivateLog LogType = "PRIVATE"
)

const ctcpAction = "\x01ACTION "

var unsafeChars = strings.NewReplacer(
	"/", "-", "\\", "-", ":", "-", "*", "-", "?", "-",
	`"`, "'", "<", "(", ">", ")", "|", "-",
)

type Plugin struct {
	baseDir string
	now     func() time.Time

	mu    sync.Mutex
	date  string
	files map[string]*os.File
}

func New(baseDir string) *Plugin {
	return &Plugin{baseDir: baseDir, now: time.Now, files: make(map[string]*os.File)}
}

// OnEvent records the event and always passes it on.
func (p *Plugin) OnEvent(s api.Sender, from, to, command, text string) api.Eat {
	nick, _, _ := api.ParseHostmask(from)

	switch command {
	case api.CMD_PRIVMSG:
		kind, name := ChannelLog, to
		if !api.IsChannelName(to) {
			kind, name = PrivateLog, nick
		}
		if strings.HasPrefix(text, ctcpAction) {
			p.write(kind, name, "* %s %s", nick, strings.TrimSuffix(strings.TrimPrefix(text, ctcpAction), "\x01"))
			return api.EatNone
		}
		p.write(kind, name, "<%s> %s", nick, text)
	case api.CMD_JOIN:
		p.write(ChannelLog, to, "*** %s has joined %s", nick, to)
	case api.CMD_PART:
		p.write(ChannelLog, to, "*** %s has left %s (%s)", nick, to, text)
	case api.CMD_TOPIC:
		p.write(ChannelLog, to, "*** %s changes topic to '%s'", nick, text)
	}
	return api.EatNone
}

// OnUnload closes every open log file.
func (p *Plugin) OnUnload() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeLocked()
	return nil
}

func (p *Plugin) write(kind LogType, name, format string, args ...interface{}) {
	if name == "" {
		return
	}
	now := p.now()

	p.mu.Lock()
	defer p.mu.Unlock()

	f, err := p.fileLocked(kind, name, now.Format("2006-01-02"))
	if err != nil {
		api.LogError("Failed to open chat log: %v", err)
		return
	}
	line := fmt.Sprintf("[%s] ", now.Format("15:04:05")) + fmt.Sprintf(format, args...) + "\n"
	if _, err := f.WriteString(line); err != nil {
		api.LogError("Failed to write chat log: %v", err)
	}
}

// fileLocked returns the open file for kind/name, rotating every file
// when the date changes.
func (p *Plugin) fileLocked(kind LogType, name, date string) (*os.File, error) {
	if date != p.date {
		p.closeLocked()
		p.date = date
	}

	key := string(kind) + ":" + strings.ToLower(name)
	if f, ok := p.files[key]; ok {
		return f, nil
	}

	dir := filepath.Join(p.baseDir, string(kind), sanitize(name))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory for logs: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, date+".log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	p.files[key] = f
	return f, nil
}

func (p *Plugin) closeLocked() {
	for key, f := range p.files {
		f.Close()
		delete(p.files, key)
	}
}

func sanitize(name string) string {
	name = unsafeChars.Replace(strings.ToLower(name))
	if name == "." || name == ".." {
		name = "_"
	}
	return name
}
