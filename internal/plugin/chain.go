package plugin

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"obot/internal/errs"
	"obot/internal/logger"
	"obot/pkg/api"
)

// Unit is a plugin object that has been opened but not yet bound.
type Unit interface {
	// Init binds the unit to its handle, normally by registering a callback.
	Init(h *Handle) error
	// Close releases the unit after it has been unlinked.
	Close() error
}

// Opener opens plugin files of one kind.
type Opener interface {
	Open(path string) (Unit, error)
}

// Handle is one linked plugin.
type Handle struct {
	chain    *Chain
	name     string
	path     string
	unit     Unit
	loadedAt time.Time

	// guarded by chain.mu
	callback api.Callback
}

func (h *Handle) Name() string { return h.name }
func (h *Handle) Path() string { return h.path }

// RegisterCallback implements api.Handle.
func (h *Handle) RegisterCallback(cb api.Callback) error {
	return h.chain.RegisterCallback(h, cb)
}

// Info describes a loaded plugin.
type Info struct {
	Name     string
	Path     string
	LoadedAt time.Time
	Callback bool
}

// Chain is the ordered list of loaded plugins. One lock guards the list
// and every handle's callback; it is never held while plugin code runs.
type Chain struct {
	mu      sync.Mutex
	handles []*Handle
	openers map[string]Opener
	log     *logger.Logger
}

// NewChain returns an empty chain that opens native ".so" plugins and
// interpreted ".go" scripts.
func NewChain(log *logger.Logger) *Chain {
	if log == nil {
		log = logger.Default()
	}
	return &Chain{
		log: log,
		openers: map[string]Opener{
			".so": NativeOpener{},
			".go": ScriptOpener{},
		},
	}
}

// SetOpener routes files with extension ext (".so") to o.
func (c *Chain) SetOpener(ext string, o Opener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.openers[strings.ToLower(ext)] = o
}

func (c *Chain) opener(path string) (Opener, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	o, ok := c.openers[strings.ToLower(filepath.Ext(path))]
	return o, ok
}

// Load opens the plugin at path and links it at the tail of the chain
// under its file name.
func (c *Chain) Load(path string) error {
	name := filepath.Base(path)
	o, ok := c.opener(path)
	if !ok {
		return fmt.Errorf("%w: %s: unsupported plugin type", errs.ErrPluginLoad, name)
	}
	if c.Loaded(name) {
		return fmt.Errorf("%w: %s", errs.ErrDuplicatePlugin, name)
	}

	unit, err := o.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrPluginLoad, err)
	}
	return c.link(name, path, unit)
}

// Register links an in-process plugin under name.
func (c *Chain) Register(name string, p api.Plugin) error {
	if name == "" || p == nil {
		return fmt.Errorf("register: %w", errs.ErrInvalidArgument)
	}
	return c.link(name, "builtin:"+name, Static(p))
}

// Attach links an already opened unit under name.
func (c *Chain) Attach(name string, u Unit) error {
	if name == "" || u == nil {
		return fmt.Errorf("attach: %w", errs.ErrInvalidArgument)
	}
	return c.link(name, name, u)
}

func (c *Chain) link(name, path string, unit Unit) error {
	h := &Handle{chain: c, name: name, path: path, unit: unit, loadedAt: time.Now()}

	c.mu.Lock()
	if c.indexLocked(name) >= 0 {
		c.mu.Unlock()
		unit.Close()
		return fmt.Errorf("%w: %s", errs.ErrDuplicatePlugin, name)
	}
	c.handles = append(c.handles, h)
	c.mu.Unlock()

	if err := unit.Init(h); err != nil {
		c.unlink(h)
		unit.Close()
		return fmt.Errorf("%w: %s init: %v", errs.ErrPluginLoad, name, err)
	}

	c.log.Successf("Plugin %s loaded from %s", name, path)
	return nil
}

// Unload unlinks the named plugin and releases it. A release failure is
// returned after the plugin has already left the chain.
func (c *Chain) Unload(name string) error {
	c.mu.Lock()
	i := c.indexLocked(name)
	if i < 0 {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", errs.ErrPluginNotLoaded, name)
	}
	h := c.handles[i]
	c.handles = slices.Delete(c.handles, i, i+1)
	c.mu.Unlock()

	if err := h.unit.Close(); err != nil {
		return fmt.Errorf("plugin %s unloaded but release failed: %w", name, err)
	}
	c.log.Infof("Plugin %s unloaded", name)
	return nil
}

// RegisterCallback stores cb on h. h must still be linked.
func (c *Chain) RegisterCallback(h *Handle, cb api.Callback) error {
	if h == nil || cb == nil {
		return fmt.Errorf("register callback: %w", errs.ErrInvalidArgument)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !slices.Contains(c.handles, h) {
		return fmt.Errorf("%w: %s", errs.ErrPluginNotLoaded, h.name)
	}
	h.callback = cb
	return nil
}

type boundCallback struct {
	name string
	cb   api.Callback
}

// Dispatch offers an event to each plugin in chain order and returns the
// first claim other than EatNone. The chain is snapshotted first, so a
// callback may load or unload plugins; a plugin unloaded during dispatch
// can still see the event in flight.
func (c *Chain) Dispatch(s api.Sender, from, to, command, text string) api.Eat {
	c.mu.Lock()
	bound := make([]boundCallback, 0, len(c.handles))
	for _, h := range c.handles {
		if h.callback != nil {
			bound = append(bound, boundCallback{h.name, h.callback})
		}
	}
	c.mu.Unlock()

	for _, b := range bound {
		if eat := c.invoke(b, s, from, to, command, text); eat != api.EatNone {
			return eat
		}
	}
	return api.EatNone
}

func (c *Chain) invoke(b boundCallback, s api.Sender, from, to, command, text string) (eat api.Eat) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Errorf("Plugin %s panicked on %s: %v", b.name, command, r)
			eat = api.EatNone
		}
	}()
	return b.cb(s, from, to, command, text)
}

// Loaded reports whether a plugin with this name is linked.
func (c *Chain) Loaded(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.indexLocked(name) >= 0
}

// Plugins lists linked plugins in chain order.
func (c *Chain) Plugins() []Info {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Info, 0, len(c.handles))
	for _, h := range c.handles {
		out = append(out, Info{Name: h.name, Path: h.path, LoadedAt: h.loadedAt, Callback: h.callback != nil})
	}
	return out
}

// Names lists linked plugin names in chain order.
func (c *Chain) Names() []string {
	var names []string
	for _, p := range c.Plugins() {
		names = append(names, p.Name)
	}
	return names
}

func (c *Chain) indexLocked(name string) int {
	for i, h := range c.handles {
		if h.name == name {
			return i
		}
	}
	return -1
}

func (c *Chain) unlink(h *Handle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := slices.Index(c.handles, h); i >= 0 {
		c.handles = slices.Delete(c.handles, i, i+1)
	}
}

// Supported reports whether path has an extension the chain can open.
func (c *Chain) Supported(path string) bool {
	_, ok := c.opener(path)
	return ok
}

// LoadDir loads every supported file in dir in name order.
// Returns the number of successfully loaded plugins and any error encountered during directory reading.
func (c *Chain) LoadDir(dir string) (int, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read plugin directory %s: %w", dir, err)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name() < files[j].Name() })

	loadedCount := 0
	for _, file := range files {
		if file.IsDir() || !c.Supported(file.Name()) {
			continue
		}
		if err := c.Load(filepath.Join(dir, file.Name())); err != nil {
			c.log.Errorf("Error loading plugin %s: %v", file.Name(), err)
			continue
		}
		loadedCount++
	}
	return loadedCount, nil
}
