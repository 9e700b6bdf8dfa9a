package bot

import (
	"strings"
)

// Status is a bitmask; Restarting and Quitting may be set together.
type Status uint8

const (
	StatusStarting Status = 1 << iota
	StatusRunning
	StatusRestarting
	StatusQuitting
)

func (s Status) Has(flag Status) bool { return s&flag != 0 }

func (s Status) String() string {
	var names []string
	for _, f := range []struct {
		flag Status
		name string
	}{
		{StatusStarting, "starting"},
		{StatusRunning, "running"},
		{StatusRestarting, "restarting"},
		{StatusQuitting, "quitting"},
	} {
		if s.Has(f.flag) {
			names = append(names, f.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// Bot is one configured IRC identity. The connection settings are fixed
// once the bot is spawned; everything mutable is reached through methods
// that take the owning registry's lock.
type Bot struct {
	id  uint64
	reg *Registry

	Host       string
	Port       int
	Secure     bool
	SkipVerify bool

	User         string
	RealName     string
	Pass         string
	NickServPass string
	Modes        string
	AdminHash    string

	ReconnectOnDrop bool

	// guarded by reg.mu
	status      Status
	nick        string
	desiredNick string
	tempNick    string
	admins      []string
	authed      []string
	channels    []string
	destroyed   bool
}

// Info is a point-in-time copy of a bot's public state.
type Info struct {
	ID       uint64
	Nick     string
	Host     string
	Port     int
	Status   Status
	Channels []string
}

func (b *Bot) ID() uint64 { return b.id }

func (b *Bot) Status() Status {
	b.reg.mu.Lock()
	defer b.reg.mu.Unlock()
	return b.status
}

func (b *Bot) SetStatus(s Status) {
	b.reg.mu.Lock()
	b.status = s
	b.reg.mu.Unlock()
}

// UpdateStatus sets the flags in set, then clears the flags in clear.
func (b *Bot) UpdateStatus(set, clear Status) Status {
	b.reg.mu.Lock()
	defer b.reg.mu.Unlock()
	b.status = (b.status | set) &^ clear
	return b.status
}

// Nick is the nick the session currently goes by.
func (b *Bot) Nick() string {
	b.reg.mu.Lock()
	defer b.reg.mu.Unlock()
	return b.nick
}

func (b *Bot) SetNick(nick string) {
	b.reg.mu.Lock()
	b.nick = nick
	b.reg.mu.Unlock()
}

// DesiredNick is the configured nick the session tries to hold.
func (b *Bot) DesiredNick() string {
	b.reg.mu.Lock()
	defer b.reg.mu.Unlock()
	return b.desiredNick
}

func (b *Bot) SetDesiredNick(nick string) {
	b.reg.mu.Lock()
	b.desiredNick = nick
	b.reg.mu.Unlock()
}

// TempNick is non-empty only while a collision is being recovered.
func (b *Bot) TempNick() string {
	b.reg.mu.Lock()
	defer b.reg.mu.Unlock()
	return b.tempNick
}

func (b *Bot) SetTempNick(nick string) {
	b.reg.mu.Lock()
	b.tempNick = nick
	b.reg.mu.Unlock()
}

func (b *Bot) Admins() []string {
	b.reg.mu.Lock()
	defer b.reg.mu.Unlock()
	return append([]string(nil), b.admins...)
}

// AddAdmins merges masks into the admin set.
func (b *Bot) AddAdmins(masks ...string) {
	b.reg.mu.Lock()
	defer b.reg.mu.Unlock()
	b.admins = mergeUnique(b.admins, masks)
}

// Authed lists hostmasks that authenticated at runtime.
func (b *Bot) Authed() []string {
	b.reg.mu.Lock()
	defer b.reg.mu.Unlock()
	return append([]string(nil), b.authed...)
}

func (b *Bot) AddAuthed(hostmask string) {
	b.reg.mu.Lock()
	defer b.reg.mu.Unlock()
	b.authed = mergeUnique(b.authed, []string{hostmask})
}

// Channels returns the channel set in insertion order.
func (b *Bot) Channels() []string {
	b.reg.mu.Lock()
	defer b.reg.mu.Unlock()
	return append([]string(nil), b.channels...)
}

func (b *Bot) HasChannel(name string) bool {
	b.reg.mu.Lock()
	defer b.reg.mu.Unlock()
	return indexOf(b.channels, name) >= 0
}

func (b *Bot) Info() Info {
	b.reg.mu.Lock()
	defer b.reg.mu.Unlock()
	return Info{
		ID:       b.id,
		Nick:     b.nick,
		Host:     b.Host,
		Port:     b.Port,
		Status:   b.status,
		Channels: append([]string(nil), b.channels...),
	}
}

func mergeUnique(set, add []string) []string {
	for _, s := range add {
		if s != "" && indexOf(set, s) < 0 {
			set = append(set, s)
		}
	}
	return set
}

func indexOf(set []string, s string) int {
	for i, v := range set {
		if v == s {
			return i
		}
	}
	return -1
}
