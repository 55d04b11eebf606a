// Package engine runs the single loop that owns the window registry. It
// multiplexes the control channel, the windowing connection, configuration
// reloads, and the liveness ping.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/swtk/swt/internal/bindings"
	"github.com/swtk/swt/internal/config"
	"github.com/swtk/swt/internal/control"
	"github.com/swtk/swt/internal/display"
	"github.com/swtk/swt/internal/ipc"
	"github.com/swtk/swt/internal/layout"
	"github.com/swtk/swt/internal/metrics"
	"github.com/swtk/swt/internal/state"
	"github.com/swtk/swt/internal/util"
)

type ticker interface {
	C() <-chan time.Time
	Stop()
}

type realTicker struct {
	*time.Ticker
}

func (t realTicker) C() <-chan time.Time {
	return t.Ticker.C
}

// idleTicker never fires; it stands in when pinging is disabled.
type idleTicker struct{}

func (idleTicker) C() <-chan time.Time { return nil }
func (idleTicker) Stop()               {}

// ChunkSource feeds control channel reads to the loop.
type ChunkSource interface {
	Stream(ctx context.Context) <-chan ipc.Chunk
	Close() error
}

// ErrDisplayClosed is returned when the windowing connection stops delivering events.
var ErrDisplayClosed = errors.New("display event stream closed")

// Engine owns the registry and every handler that mutates it.
type Engine struct {
	conn       display.Conn
	source     ChunkSource
	out        *ipc.Output
	logger     *util.Logger
	metrics    *metrics.Collector
	registry   *state.Registry
	dispatcher *control.Dispatcher
	bindings   *bindings.Table
	handlers   map[display.Kind]func(display.Event)

	pingInterval time.Duration
	lastActivity time.Time
	lastPing     time.Time
	quit         bool

	reloads       chan *config.Config
	now           func() time.Time
	tickerFactory func(time.Duration) ticker
}

// New builds an engine around an open connection and control source. m may be nil.
func New(conn display.Conn, source ChunkSource, out *ipc.Output, logger *util.Logger, m *metrics.Collector, cfg *config.Config) (*Engine, error) {
	schemes, err := cfg.LayoutSchemes()
	if err != nil {
		return nil, err
	}
	table, err := bindings.Build(cfg.Keys)
	if err != nil {
		return nil, fmt.Errorf("build key bindings: %w", err)
	}
	registry := state.NewRegistry(conn, logger, state.Options{
		Border:  cfg.BorderPx,
		Size:    layout.Rect{Width: cfg.WindowSize.Width, Height: cfg.WindowSize.Height},
		Schemes: schemes,
	})
	e := &Engine{
		conn:         conn,
		source:       source,
		out:          out,
		logger:       logger,
		metrics:      m,
		registry:     registry,
		dispatcher:   control.NewDispatcher(registry, out, logger, m),
		bindings:     table,
		pingInterval: cfg.PingInterval(),
		reloads:      make(chan *config.Config, 1),
		now:          time.Now,
		tickerFactory: func(d time.Duration) ticker {
			return realTicker{time.NewTicker(d)}
		},
	}
	e.handlers = map[display.Kind]func(display.Event){
		display.KindFocus:     e.onFocus,
		display.KindDestroy:   e.onDestroy,
		display.KindConfigure: e.onConfigure,
		display.KindExpose:    e.onExpose,
		display.KindKey:       e.onInput,
		display.KindButton:    e.onInput,
	}
	return e, nil
}

// Registry exposes the window registry. It must only be touched from the
// goroutine running Run, or before Run starts.
func (e *Engine) Registry() *state.Registry {
	return e.registry
}

// SetClock overrides the time source for activity tracking and NOOP replies.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
	e.dispatcher.SetClock(now)
}

// Reload queues cfg to be applied by the loop. A pending reload that has not
// been picked up yet is replaced.
func (e *Engine) Reload(ctx context.Context, cfg *config.Config) error {
	for {
		select {
		case e.reloads <- cfg:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		select {
		case stale := <-e.reloads:
			e.logger.Debugf("dropping superseded reload (border=%d)", stale.BorderPx)
		default:
		}
	}
}

// Run services the control channel and the windowing connection until a quit
// command or binding fires, ctx is cancelled, or a pump fails. On a clean exit
// every window is released, the control channel closed and "done" written.
func (e *Engine) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events, err := e.conn.Events(ctx)
	if err != nil {
		return fmt.Errorf("subscribe to display events: %w", err)
	}
	chunks := e.source.Stream(ctx)
	tick := e.newTicker()
	defer func() { tick.Stop() }()

	e.lastActivity = e.now()
	e.logger.Infof("engine running (ping every %s)", e.pingInterval)
	for !e.quit {
		select {
		case <-ctx.Done():
			e.shutdown(cancel)
			return ctx.Err()
		case now := <-tick.C():
			e.onTick(now)
		case chunk, ok := <-chunks:
			if !ok {
				return e.fail(cancel, errors.New("control channel closed"))
			}
			if err := e.handleChunk(chunk); err != nil {
				return e.fail(cancel, err)
			}
		case batch, ok := <-events:
			if !ok {
				return e.fail(cancel, ErrDisplayClosed)
			}
			e.handleBatch(batch)
		case cfg := <-e.reloads:
			if e.applyConfig(cfg) {
				tick.Stop()
				tick = e.newTicker()
			}
		}
	}
	e.shutdown(cancel)
	return nil
}

func (e *Engine) newTicker() ticker {
	if e.pingInterval <= 0 {
		return idleTicker{}
	}
	return e.tickerFactory(e.pingInterval / 3)
}

// onTick emits at most one NOOP per ping interval, and only while idle.
func (e *Engine) onTick(now time.Time) {
	if now.Sub(e.lastActivity) < e.pingInterval || now.Sub(e.lastPing) < e.pingInterval {
		return
	}
	e.lastPing = now
	e.metrics.RecordPing()
	if err := e.out.Printf("NOOP %d", now.Unix()); err != nil {
		e.logger.Errorf("ping: %v", err)
	}
}

func (e *Engine) handleChunk(chunk ipc.Chunk) error {
	if chunk.Err != nil {
		return fmt.Errorf("read control channel: %w", chunk.Err)
	}
	e.lastActivity = e.now()
	if chunk.EOF {
		e.logger.Debugf("control channel writer detached, reopened")
		return nil
	}
	quit, err := e.dispatcher.Dispatch(chunk.Data)
	if err != nil {
		return err
	}
	if quit {
		e.quit = true
	}
	return nil
}

// handleBatch runs one drained batch in order. Only the final expose for a
// window within the batch reaches the expose handler.
func (e *Engine) handleBatch(batch []display.Event) {
	if len(batch) == 0 {
		return
	}
	e.lastActivity = e.now()
	lastExpose := make(map[display.Handle]int)
	for i, ev := range batch {
		if ev.Kind() == display.KindExpose {
			lastExpose[ev.Target()] = i
		}
	}
	for i, ev := range batch {
		if e.quit {
			return
		}
		if ev.Kind() == display.KindExpose && lastExpose[ev.Target()] != i {
			continue
		}
		e.metrics.RecordEvent(ev.Kind().String())
		handler, ok := e.handlers[ev.Kind()]
		if !ok {
			e.logger.Tracef("no handler for %s event", ev.Kind())
			continue
		}
		handler(ev)
	}
}

func (e *Engine) onFocus(ev display.Event) {
	e.registry.Focus(ev.Target())
}

func (e *Engine) onDestroy(ev display.Event) {
	if !e.registry.DestroyWindow(ev.Target()) {
		e.logger.Tracef("destroy for unknown window %d", ev.Target())
	}
}

func (e *Engine) onConfigure(ev display.Event) {
	cfg := ev.(display.ConfigureEvent)
	w, ok := e.registry.FindByHandle(cfg.Window)
	if !ok {
		return
	}
	if w.Bounds.Width == cfg.Width && w.Bounds.Height == cfg.Height {
		return
	}
	e.registry.Resize(w, cfg.Width, cfg.Height)
}

func (e *Engine) onExpose(ev display.Event) {
	if !ev.(display.ExposeEvent).Last {
		return
	}
	if w, ok := e.registry.FindByHandle(ev.Target()); ok {
		e.registry.Redraw(w)
	}
}

func (e *Engine) onInput(ev display.Event) {
	b, ok := e.bindings.Match(ev)
	if !ok {
		return
	}
	e.logger.Debugf("binding %s fired on window %d", b.Action, ev.Target())
	switch b.Action {
	case bindings.ActionQuit:
		e.quit = true
	case bindings.ActionCloseWindow:
		w, ok := e.registry.Focused()
		if !ok {
			return
		}
		if err := e.conn.DestroyWindow(w.Handle); err != nil {
			e.logger.Warnf("close window %q: %v", w.Name, err)
		}
	case bindings.ActionSelect:
		e.registry.ToggleSelection(b.Dir)
	}
}

// applyConfig swaps schemes, bindings, and the ping interval. It reports
// whether the ticker has to be rebuilt.
func (e *Engine) applyConfig(cfg *config.Config) bool {
	schemes, err := cfg.LayoutSchemes()
	if err != nil {
		e.logger.Errorf("reload rejected: %v", err)
		return false
	}
	table, err := bindings.Build(cfg.Keys)
	if err != nil {
		e.logger.Errorf("reload rejected: %v", err)
		return false
	}
	e.bindings = table
	e.registry.SetSchemes(schemes)
	e.metrics.SetEnabled(cfg.Telemetry.Enabled)
	interval := cfg.PingInterval()
	changed := interval != e.pingInterval
	e.pingInterval = interval
	e.logger.Infof("configuration reloaded (%d bindings, ping every %s)", table.Len(), interval)
	return changed
}

func (e *Engine) shutdown(cancel context.CancelFunc) {
	e.registry.Close()
	cancel()
	if err := e.source.Close(); err != nil {
		e.logger.Warnf("close control channel: %v", err)
	}
	if err := e.out.Printf(control.DoneLine); err != nil {
		e.logger.Errorf("write done: %v", err)
	}
	if e.metrics.Enabled() {
		e.logger.Infof("metrics: %s", e.metrics.Snapshot().Summary())
	}
}

// fail releases resources after an unrecoverable pump or dispatch error.
func (e *Engine) fail(cancel context.CancelFunc, err error) error {
	e.registry.Close()
	cancel()
	if closeErr := e.source.Close(); closeErr != nil {
		e.logger.Warnf("close control channel: %v", closeErr)
	}
	return err
}
