package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Category groups counters.
type Category string

const (
	CategoryCommand Category = "command"
	CategoryEvent   Category = "event"
	CategoryPing    Category = "ping"
)

// Collector counts protocol commands, native events, and liveness pings.
type Collector struct {
	mu       sync.RWMutex
	enabled  bool
	started  time.Time
	counters map[string]*Counter
}

// Counter tracks one named activity.
type Counter struct {
	Category Category  `json:"category"`
	Name     string    `json:"name"`
	Handled  uint64    `json:"handled"`
	Errors   uint64    `json:"errors"`
	LastSeen time.Time `json:"lastSeen,omitempty"`
	LastErr  time.Time `json:"lastErr,omitempty"`
}

// Totals aggregates counters across a snapshot.
type Totals struct {
	Handled uint64 `json:"handled"`
	Errors  uint64 `json:"errors"`
}

// Snapshot is the serializable view of the current metrics state.
type Snapshot struct {
	Enabled  bool      `json:"enabled"`
	Started  time.Time `json:"started,omitempty"`
	Totals   Totals    `json:"totals"`
	Counters []Counter `json:"counters,omitempty"`
}

// NewCollector returns a collector with the provided opt-in state.
func NewCollector(enabled bool) *Collector {
	c := &Collector{}
	c.SetEnabled(enabled)
	return c
}

// Enabled reports whether collection is currently active.
func (c *Collector) Enabled() bool {
	if c == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.enabled
}

// SetEnabled toggles collection, resetting counters when enabling.
func (c *Collector) SetEnabled(enabled bool) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.enabled == enabled {
		return
	}
	c.enabled = enabled
	if !enabled {
		c.counters = nil
		c.started = time.Time{}
		return
	}
	c.started = time.Now()
	c.counters = make(map[string]*Counter)
}

// RecordCommand counts a dispatched protocol command.
func (c *Collector) RecordCommand(name string) {
	c.update(CategoryCommand, name, func(ct *Counter, now time.Time) {
		ct.Handled++
		ct.LastSeen = now
	})
}

// RecordCommandError counts a command answered with an ERROR line.
func (c *Collector) RecordCommandError(name string) {
	c.update(CategoryCommand, name, func(ct *Counter, now time.Time) {
		ct.Errors++
		ct.LastErr = now
	})
}

// RecordEvent counts a handled native event.
func (c *Collector) RecordEvent(kind string) {
	c.update(CategoryEvent, kind, func(ct *Counter, now time.Time) {
		ct.Handled++
		ct.LastSeen = now
	})
}

// RecordPing counts an emitted liveness ping.
func (c *Collector) RecordPing() {
	c.update(CategoryPing, "noop", func(ct *Counter, now time.Time) {
		ct.Handled++
		ct.LastSeen = now
	})
}

func (c *Collector) update(category Category, name string, mutate func(*Counter, time.Time)) {
	if c == nil || mutate == nil {
		return
	}
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled {
		return
	}
	if c.counters == nil {
		c.counters = make(map[string]*Counter)
	}
	key := string(category) + ":" + name
	ct, exists := c.counters[key]
	if !exists {
		ct = &Counter{Category: category, Name: name}
		c.counters[key] = ct
	}
	mutate(ct, now)
}

// Snapshot returns the current counters sorted by category and name.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap := Snapshot{Enabled: c.enabled}
	if !c.enabled {
		return snap
	}
	snap.Started = c.started
	if len(c.counters) == 0 {
		return snap
	}
	snap.Counters = make([]Counter, 0, len(c.counters))
	for _, ct := range c.counters {
		if ct == nil {
			continue
		}
		clone := *ct
		snap.Counters = append(snap.Counters, clone)
		snap.Totals.Handled += clone.Handled
		snap.Totals.Errors += clone.Errors
	}
	sort.Slice(snap.Counters, func(i, j int) bool {
		if snap.Counters[i].Category == snap.Counters[j].Category {
			return snap.Counters[i].Name < snap.Counters[j].Name
		}
		return snap.Counters[i].Category < snap.Counters[j].Category
	})
	return snap
}

// Summary renders a snapshot as a single log-friendly line.
func (s Snapshot) Summary() string {
	if !s.Enabled {
		return "metrics disabled"
	}
	parts := make([]string, 0, len(s.Counters))
	for _, ct := range s.Counters {
		part := fmt.Sprintf("%s.%s=%d", ct.Category, ct.Name, ct.Handled)
		if ct.Errors > 0 {
			part += fmt.Sprintf("/%derr", ct.Errors)
		}
		parts = append(parts, part)
	}
	return fmt.Sprintf("handled=%d errors=%d %s", s.Totals.Handled, s.Totals.Errors, strings.Join(parts, " "))
}
