package plugin

import (
	"fmt"
	"os"
	"sync"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"obot/pkg/api"
)

// ScriptOpener runs plugin sources in package main through the yaegi
// interpreter. A script defines
//
//	func OnEvent(from, to, command, text string) (int, []string)
//
// returning an api.Eat value and raw IRC lines to send back through the
// session that delivered the event. The lines may be omitted from the
// result. Init() and Unload() are optional.
type ScriptOpener struct{}

func (ScriptOpener) Open(path string) (Unit, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script %s: %w", path, err)
	}
	return compileScript(path, string(src))
}

type scriptEvent func(from, to, command, text string) (int, []string)

type scriptUnit struct {
	// the interpreter is not safe for concurrent calls
	mu      sync.Mutex
	name    string
	onEvent scriptEvent
	init    func()
	unload  func()
}

func compileScript(name, src string) (*scriptUnit, error) {
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("failed to load stdlib: %w", err)
	}
	if _, err := i.Eval(src); err != nil {
		return nil, fmt.Errorf("script %s evaluation failed: %w", name, err)
	}

	v, err := i.Eval("main.OnEvent")
	if err != nil {
		return nil, fmt.Errorf("script %s: OnEvent not found: %w", name, err)
	}
	var fn scriptEvent
	switch f := v.Interface().(type) {
	case func(string, string, string, string) (int, []string):
		fn = f
	case func(string, string, string, string) int:
		fn = func(from, to, command, text string) (int, []string) {
			return f(from, to, command, text), nil
		}
	default:
		return nil, fmt.Errorf("script %s: OnEvent has incorrect signature (expected: func(from, to, command, text string) int or (int, []string))", name)
	}

	u := &scriptUnit{name: name, onEvent: fn}
	if v, err := i.Eval("main.Init"); err == nil {
		if f, ok := v.Interface().(func()); ok {
			u.init = f
		}
	}
	if v, err := i.Eval("main.Unload"); err == nil {
		if f, ok := v.Interface().(func()); ok {
			u.unload = f
		}
	}
	return u, nil
}

func (u *scriptUnit) Init(h *Handle) error {
	if u.init != nil {
		u.mu.Lock()
		u.init()
		u.mu.Unlock()
	}
	return h.RegisterCallback(u.callback)
}

func (u *scriptUnit) callback(s api.Sender, from, to, command, text string) api.Eat {
	u.mu.Lock()
	eat, lines := u.onEvent(from, to, command, text)
	u.mu.Unlock()

	for _, line := range lines {
		if err := s.Raw(line); err != nil {
			break
		}
	}
	if eat < int(api.EatNone) || eat > int(api.EatAll) {
		return api.EatNone
	}
	return api.Eat(eat)
}

func (u *scriptUnit) Close() error {
	if u.unload != nil {
		u.mu.Lock()
		defer u.mu.Unlock()
		u.unload()
	}
	return nil
}
