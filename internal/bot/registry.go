package bot

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"obot/internal/errs"
)

// Registry is the process-wide set of bots. Its lock also guards every
// bot's mutable state, including channel sets.
type Registry struct {
	mu     sync.Mutex
	bots   []*Bot
	nextID uint64
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Create appends a new bot with status Starting and the next id.
func (r *Registry) Create() *Bot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.createLocked()
}

func (r *Registry) createLocked() *Bot {
	r.nextID++
	b := &Bot{id: r.nextID, reg: r, status: StatusStarting}
	r.bots = append(r.bots, b)
	return b
}

// Clone registers a copy of src. The channel set is rebuilt through the
// same add path as AddChannel, so duplicates merge.
func (r *Registry) Clone(src *Bot) (*Bot, error) {
	if src == nil {
		return nil, fmt.Errorf("clone: %w", errs.ErrInvalidArgument)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if src.reg != r || src.destroyed {
		return nil, fmt.Errorf("clone bot %d: %w", src.id, errs.ErrNotRegistered)
	}

	b := r.createLocked()
	b.Host, b.Port, b.Secure, b.SkipVerify = src.Host, src.Port, src.Secure, src.SkipVerify
	b.User, b.RealName, b.Pass = src.User, src.RealName, src.Pass
	b.NickServPass, b.Modes, b.AdminHash = src.NickServPass, src.Modes, src.AdminHash
	b.ReconnectOnDrop = src.ReconnectOnDrop
	b.nick, b.desiredNick = src.nick, src.desiredNick
	b.admins = slices.Clone(src.admins)
	b.authed = slices.Clone(src.authed)
	for _, ch := range src.channels {
		r.addChannelsLocked(b, []string{ch})
	}
	return b, nil
}

// Destroy unlinks b and drops everything it owns.
func (r *Registry) Destroy(b *Bot) error {
	if b == nil {
		return fmt.Errorf("destroy: %w", errs.ErrInvalidArgument)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	i := slices.Index(r.bots, b)
	if i < 0 {
		return fmt.Errorf("destroy bot %d: %w", b.id, errs.ErrNotRegistered)
	}
	r.bots = slices.Delete(r.bots, i, i+1)

	b.destroyed = true
	b.channels, b.admins, b.authed = nil, nil, nil
	b.nick, b.desiredNick, b.tempNick = "", "", ""
	return nil
}

// AddChannel merges one channel name or a comma-separated list into b's
// channel set. Names already present are skipped; when nothing is left to
// add the call still succeeds.
func (r *Registry) AddChannel(b *Bot, names string) error {
	if b == nil {
		return fmt.Errorf("add channel: %w", errs.ErrInvalidArgument)
	}
	add := SplitChannels(names)
	if len(add) == 0 {
		return fmt.Errorf("add channel %q: %w", names, errs.ErrNoChannels)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b.reg != r || b.destroyed {
		return fmt.Errorf("add channel: %w", errs.ErrNotRegistered)
	}
	r.addChannelsLocked(b, add)
	return nil
}

func (r *Registry) addChannelsLocked(b *Bot, add []string) {
	b.channels = mergeUnique(b.channels, add)
}

// RemoveChannel drops the channel whose name matches exactly after
// trimming surrounding whitespace.
func (r *Registry) RemoveChannel(b *Bot, name string) error {
	if b == nil {
		return fmt.Errorf("remove channel: %w", errs.ErrInvalidArgument)
	}
	name = strings.TrimSpace(name)

	r.mu.Lock()
	defer r.mu.Unlock()
	i := indexOf(b.channels, name)
	if i < 0 {
		return fmt.Errorf("remove channel %q: %w", name, errs.ErrChannelNotFound)
	}
	b.channels = slices.Delete(b.channels, i, i+1)
	return nil
}

// Bots returns the registered bots in creation order.
func (r *Registry) Bots() []*Bot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.bots)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bots)
}

// Lookup finds a registered bot by id.
func (r *Registry) Lookup(id uint64) *Bot {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.bots {
		if b.id == id {
			return b
		}
	}
	return nil
}

// SplitChannels splits a comma-separated list, trims each name and drops
// empty and repeated entries.
func SplitChannels(names string) []string {
	var out []string
	for _, n := range strings.Split(names, ",") {
		out = mergeUnique(out, []string{strings.TrimSpace(n)})
	}
	return out
}
