package x11

import (
	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/swtk/swt/internal/display"
)

type keyLookup func(state uint16, code xproto.Keycode) string

// translate maps the X events the toolkit selects for onto display events.
func translate(ev xgb.Event, lookup keyLookup) (display.Event, bool) {
	switch e := ev.(type) {
	case xproto.FocusInEvent:
		return display.FocusEvent{Window: display.Handle(e.Event)}, true
	case xproto.DestroyNotifyEvent:
		return display.DestroyEvent{Window: display.Handle(e.Window)}, true
	case xproto.ConfigureNotifyEvent:
		return display.ConfigureEvent{Window: display.Handle(e.Window), Width: int(e.Width), Height: int(e.Height)}, true
	case xproto.ExposeEvent:
		return display.ExposeEvent{Window: display.Handle(e.Window), Last: e.Count == 0}, true
	case xproto.KeyPressEvent:
		key := lookup(e.State, e.Detail)
		if key == "" {
			return nil, false
		}
		return display.KeyEvent{Window: display.Handle(e.Event), Mods: modifiers(e.State), Key: key}, true
	case xproto.ButtonPressEvent:
		return display.ButtonEvent{Window: display.Handle(e.Event), Mods: modifiers(e.State), Button: int(e.Detail)}, true
	}
	return nil, false
}

// modifiers keeps shift, control, mod1 and mod4; lock masks are dropped.
func modifiers(state uint16) display.Modifier {
	var mods display.Modifier
	if state&xproto.ModMaskShift != 0 {
		mods |= display.ModShift
	}
	if state&xproto.ModMaskControl != 0 {
		mods |= display.ModCtrl
	}
	if state&xproto.ModMask1 != 0 {
		mods |= display.ModAlt
	}
	if state&xproto.ModMask4 != 0 {
		mods |= display.ModSuper
	}
	return mods
}
