package control

const (
	// Protocol verbs. Matching is case-insensitive.
	VerbNoop    = "noop"
	VerbQuit    = "quit"
	VerbDump    = "dump"
	VerbWindow  = "window"
	VerbHWindow = "hwindow"
	VerbVWindow = "vwindow"
	VerbAdd     = "add"
	VerbShow    = "show"
	VerbRemove  = "remove"

	// WidgetText is the only widget type implemented.
	WidgetText = "text"

	// DefaultWindowName names windows created without attributes.
	DefaultWindowName = "swt"

	// DoneLine is written once when the loop exits.
	DoneLine = "done"
)

// Command is one parsed protocol command.
type Command struct {
	// Name is the verb as sent, before case folding.
	Name string
	// Attrs is everything after the first space.
	Attrs    string
	HasAttrs bool
}

// String renders the command the way error lines echo it.
func (c Command) String() string {
	if !c.HasAttrs {
		return c.Name
	}
	return c.Name + "(" + c.Attrs + ")"
}
