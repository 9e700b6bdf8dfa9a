package plugin

import (
	"fmt"
	goPlugin "plugin"

	"obot/pkg/api"
)

// NativeOpener opens Go plugins built with -buildmode=plugin. The object
// must export a "Plugin" symbol implementing api.Plugin, or an "Init"
// function of type func(api.Handle) error.
type NativeOpener struct{}

func (NativeOpener) Open(path string) (Unit, error) {
	p, err := goPlugin.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open plugin %s: %w", path, err)
	}

	if sym, err := p.Lookup("Plugin"); err == nil {
		switch v := sym.(type) {
		case api.Plugin:
			return Static(v), nil
		case *api.Plugin:
			if *v != nil {
				return Static(*v), nil
			}
		}
		return nil, fmt.Errorf("invalid plugin type in %s", path)
	}

	sym, err := p.Lookup("Init")
	if err != nil {
		return nil, fmt.Errorf("failed to lookup Plugin or Init symbol in %s: %w", path, err)
	}
	init, ok := sym.(func(api.Handle) error)
	if !ok {
		return nil, fmt.Errorf("invalid Init signature in %s", path)
	}
	return initUnit(init), nil
}

// Static wraps an in-process plugin as a Unit. Its OnEvent becomes the
// callback, then the optional Init and OnUnload hooks run.
func Static(p api.Plugin) Unit {
	return objectUnit{p}
}

type objectUnit struct {
	p api.Plugin
}

func (u objectUnit) Init(h *Handle) error {
	if err := h.RegisterCallback(u.p.OnEvent); err != nil {
		return err
	}
	if in, ok := u.p.(api.Initializer); ok {
		return in.Init(h)
	}
	return nil
}

func (u objectUnit) Close() error {
	if un, ok := u.p.(api.Unloader); ok {
		return un.OnUnload()
	}
	return nil
}

// initUnit is a plugin that only exports an initializer.
type initUnit func(api.Handle) error

func (f initUnit) Init(h *Handle) error { return f(h) }
func (initUnit) Close() error           { return nil }
