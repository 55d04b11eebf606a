package control

import (
	"strings"
	"time"

	"github.com/swtk/swt/internal/ipc"
	"github.com/swtk/swt/internal/layout"
	"github.com/swtk/swt/internal/metrics"
	"github.com/swtk/swt/internal/state"
	"github.com/swtk/swt/internal/util"
)

// Dispatcher executes parsed commands against the registry and writes one
// response per command to the output log.
type Dispatcher struct {
	registry *state.Registry
	out      *ipc.Output
	logger   *util.Logger
	metrics  *metrics.Collector
	now      func() time.Time
}

// NewDispatcher wires a dispatcher. metrics may be nil.
func NewDispatcher(registry *state.Registry, out *ipc.Output, logger *util.Logger, m *metrics.Collector) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		out:      out,
		logger:   logger,
		metrics:  m,
		now:      time.Now,
	}
}

// SetClock overrides the time source used for NOOP timestamps.
func (d *Dispatcher) SetClock(now func() time.Time) {
	d.now = now
}

// Dispatch runs every command in chunk in order. It stops early and reports
// quit when a quit command is seen. A non-nil error is fatal.
func (d *Dispatcher) Dispatch(chunk []byte) (bool, error) {
	for cmd := range Parse(chunk) {
		quit, err := d.Execute(cmd)
		if err != nil || quit {
			return quit, err
		}
	}
	return false, nil
}

// Execute runs a single command.
func (d *Dispatcher) Execute(cmd Command) (bool, error) {
	verb := strings.ToLower(cmd.Name)
	d.logger.Debugf("command %s", cmd)
	switch verb {
	case VerbNoop:
		d.metrics.RecordCommand(verb)
		d.respond("NOOP %d", d.now().Unix())
	case VerbQuit:
		d.metrics.RecordCommand(verb)
		return true, nil
	case VerbDump:
		d.metrics.RecordCommand(verb)
		d.dump()
	case VerbWindow, VerbHWindow:
		d.metrics.RecordCommand(verb)
		return false, d.createWindow(cmd, layout.Horizontal)
	case VerbVWindow:
		d.metrics.RecordCommand(verb)
		return false, d.createWindow(cmd, layout.Vertical)
	case VerbAdd:
		d.metrics.RecordCommand(verb)
		d.add(cmd)
	case VerbShow, VerbRemove:
		d.metrics.RecordCommand(verb)
	default:
		d.metrics.RecordCommandError("unknown")
		d.respond("ERROR unknown command: %s", cmd)
	}
	return false, nil
}

func (d *Dispatcher) createWindow(cmd Command, mode layout.Mode) error {
	name, title := DefaultWindowName, ""
	if cmd.HasAttrs {
		var hasTitle bool
		name, title, hasTitle = strings.Cut(cmd.Attrs, " ")
		title = strings.TrimSpace(title)
		if !hasTitle {
			title = ""
		}
	}
	if title == "" {
		title = name + " window"
	}
	w, err := d.registry.CreateWindow(name, title, mode)
	if err != nil {
		return err
	}
	d.respond("window %s %d", w.Name, w.Handle)
	return nil
}

func (d *Dispatcher) add(cmd Command) {
	parts := strings.SplitN(cmd.Attrs, " ", 3)
	if len(parts) < 3 || parts[0] == "" || parts[1] == "" || strings.TrimSpace(parts[2]) == "" {
		d.metrics.RecordCommandError(VerbAdd)
		d.respond("ERROR malformed attributes: %s", cmd)
		return
	}
	parent, widget, attrs := parts[0], parts[1], strings.TrimSpace(parts[2])
	w, ok := d.registry.FindByName(parent)
	if !ok {
		d.metrics.RecordCommandError(VerbAdd)
		d.respond("ERROR window/widget %q not found", parent)
		return
	}
	if !strings.EqualFold(widget, WidgetText) {
		d.metrics.RecordCommandError(VerbAdd)
		d.respond("ERROR unknown widget type: %s", widget)
		return
	}
	d.registry.AddRegion(w, attrs)
}

func (d *Dispatcher) dump() {
	for _, w := range d.registry.Windows() {
		d.respond("dump window xid=%d name=%s title=%s", w.Handle, w.Name, w.Title)
		for _, r := range w.Regions {
			d.respond("dump %s name=%s x=%d y=%d width=%d height=%d",
				WidgetText, r.Label, r.Rect.X, r.Rect.Y, r.Rect.Width, r.Rect.Height)
		}
	}
}

func (d *Dispatcher) respond(format string, args ...any) {
	if err := d.out.Printf(format, args...); err != nil {
		d.logger.Errorf("%v", err)
	}
}
