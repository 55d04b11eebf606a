package term

import (
	"github.com/gdamore/tcell/v2"

	"github.com/swtk/swt/internal/display"
)

var namedKeys = map[tcell.Key]string{
	tcell.KeyTab:        "Tab",
	tcell.KeyEnter:      "Return",
	tcell.KeyEscape:     "Escape",
	tcell.KeyBackspace:  "BackSpace",
	tcell.KeyBackspace2: "BackSpace",
	tcell.KeyUp:         "Up",
	tcell.KeyDown:       "Down",
	tcell.KeyLeft:       "Left",
	tcell.KeyRight:      "Right",
	tcell.KeyHome:       "Home",
	tcell.KeyEnd:        "End",
	tcell.KeyPgUp:       "Prior",
	tcell.KeyPgDn:       "Next",
	tcell.KeyDelete:     "Delete",
}

// translateKey names a key the way X keysyms do, folding control
// characters into ctrl+letter.
func translateKey(ev *tcell.EventKey) (string, display.Modifier, bool) {
	mods := modifiers(ev.Modifiers())
	k := ev.Key()
	if name, ok := namedKeys[k]; ok {
		return name, mods, true
	}
	switch {
	case k == tcell.KeyRune:
		return string(ev.Rune()), mods, true
	case k >= tcell.KeyCtrlA && k <= tcell.KeyCtrlZ:
		return string(rune('a' + (k - tcell.KeyCtrlA))), mods | display.ModCtrl, true
	}
	return "", 0, false
}

func modifiers(m tcell.ModMask) display.Modifier {
	var mods display.Modifier
	if m&tcell.ModShift != 0 {
		mods |= display.ModShift
	}
	if m&tcell.ModCtrl != 0 {
		mods |= display.ModCtrl
	}
	if m&tcell.ModAlt != 0 {
		mods |= display.ModAlt
	}
	if m&tcell.ModMeta != 0 {
		mods |= display.ModSuper
	}
	return mods
}

// buttonOrder maps tcell buttons onto X numbering: left, middle, right,
// wheel up, wheel down.
var buttonOrder = []struct {
	mask   tcell.ButtonMask
	number int
}{
	{tcell.Button1, 1},
	{tcell.Button3, 2},
	{tcell.Button2, 3},
	{tcell.WheelUp, 4},
	{tcell.WheelDown, 5},
}
