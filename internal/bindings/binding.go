// Package bindings compiles the configured modifier+key table and resolves
// native input events against it.
package bindings

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/swtk/swt/internal/config"
	"github.com/swtk/swt/internal/display"
)

// Action is what a binding does when it fires.
type Action int

const (
	ActionQuit Action = iota
	ActionCloseWindow
	ActionSelect
)

var actionNames = map[string]Action{
	"quit":        ActionQuit,
	"closewindow": ActionCloseWindow,
	"killclient":  ActionCloseWindow,
	"select":      ActionSelect,
}

func (a Action) String() string {
	switch a {
	case ActionQuit:
		return "quit"
	case ActionCloseWindow:
		return "closewindow"
	case ActionSelect:
		return "select"
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// Binding is one compiled table entry. Exactly one of Key or Button is set.
type Binding struct {
	Mods   display.Modifier
	Key    string
	Button int
	Action Action
	// Dir is the selection step for ActionSelect.
	Dir int
}

var modifierNames = map[string]display.Modifier{
	"shift":   display.ModShift,
	"ctrl":    display.ModCtrl,
	"control": display.ModCtrl,
	"alt":     display.ModAlt,
	"mod1":    display.ModAlt,
	"super":   display.ModSuper,
	"mod4":    display.ModSuper,
	"win":     display.ModSuper,
}

// ParseChord splits "ctrl+shift+q" or "button4" into modifiers and a key or button.
func ParseChord(chord string) (mods display.Modifier, key string, button int, err error) {
	parts := strings.Split(chord, "+")
	last := strings.TrimSpace(parts[len(parts)-1])
	if last == "" {
		return 0, "", 0, fmt.Errorf("chord %q has no key", chord)
	}
	for _, p := range parts[:len(parts)-1] {
		m, ok := modifierNames[strings.ToLower(strings.TrimSpace(p))]
		if !ok {
			return 0, "", 0, fmt.Errorf("chord %q: unknown modifier %q", chord, p)
		}
		mods |= m
	}
	lower := strings.ToLower(last)
	if rest, ok := strings.CutPrefix(lower, "button"); ok && rest != "" {
		n, convErr := strconv.Atoi(rest)
		if convErr != nil || n < 1 || n > 5 {
			return 0, "", 0, fmt.Errorf("chord %q: button must be 1-5", chord)
		}
		return mods, "", n, nil
	}
	return mods, last, 0, nil
}

// Table is an ordered binding list; the first matching entry wins.
type Table struct {
	bindings []Binding
}

// Build compiles key configuration into a table.
func Build(keys []config.KeyConfig) (*Table, error) {
	t := &Table{bindings: make([]Binding, 0, len(keys))}
	for i, k := range keys {
		b, err := compile(k)
		if err != nil {
			return nil, fmt.Errorf("keys[%d]: %w", i, err)
		}
		t.bindings = append(t.bindings, b)
	}
	return t, nil
}

func compile(k config.KeyConfig) (Binding, error) {
	mods, key, button, err := ParseChord(k.Key)
	if err != nil {
		return Binding{}, err
	}
	action, ok := actionNames[strings.ToLower(k.Action)]
	if !ok {
		return Binding{}, fmt.Errorf("unknown action %q", k.Action)
	}
	b := Binding{Mods: mods, Key: key, Button: button, Action: action}
	if action == ActionSelect {
		dir, err := parseDir(k.Arg)
		if err != nil {
			return Binding{}, err
		}
		b.Dir = dir
	}
	return b, nil
}

func parseDir(arg string) (int, error) {
	switch strings.TrimSpace(arg) {
	case "", "+1", "1", "next":
		return 1, nil
	case "-1", "prev":
		return -1, nil
	}
	return 0, fmt.Errorf("select: argument must be +1 or -1, got %q", arg)
}

// Len returns the number of bindings.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.bindings)
}

// Match returns the first binding triggered by ev. Only key and button events
// can match.
func (t *Table) Match(ev display.Event) (Binding, bool) {
	if t == nil {
		return Binding{}, false
	}
	switch e := ev.(type) {
	case display.KeyEvent:
		for _, b := range t.bindings {
			if b.Button == 0 && b.Mods == e.Mods && strings.EqualFold(b.Key, e.Key) {
				return b, true
			}
		}
	case display.ButtonEvent:
		for _, b := range t.bindings {
			if b.Button != 0 && b.Mods == e.Mods && b.Button == e.Button {
				return b, true
			}
		}
	}
	return Binding{}, false
}
