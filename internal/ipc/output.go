package ipc

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"
)

// Output is the append-only response log. Every line is flushed before the
// call returns.
type Output struct {
	mu     sync.Mutex
	w      *bufio.Writer
	closer io.Closer
}

// OpenOutput opens path for appending, creating it if needed.
func OpenOutput(path string) (*Output, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open output %s: %w", path, err)
	}
	out := NewOutput(f)
	out.closer = f
	return out, nil
}

// NewOutput wraps w. Close will not close w.
func NewOutput(w io.Writer) *Output {
	return &Output{w: bufio.NewWriter(w)}
}

// Printf writes one formatted line and flushes it.
func (o *Output) Printf(format string, args ...any) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, err := fmt.Fprintf(o.w, format, args...); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if err := o.w.WriteByte('\n'); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if err := o.w.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying file, if Output owns one.
func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.w.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	if o.closer != nil {
		return o.closer.Close()
	}
	return nil
}
