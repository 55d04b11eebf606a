// Package client drives a running toolkit from outside: it writes commands
// into the control FIFO and follows the output log.
package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sys/unix"

	"github.com/swtk/swt/internal/ipc"
)

const (
	// defaultTimeout is used when the caller does not provide a context deadline.
	defaultTimeout = 3 * time.Second
	// defaultQuiet is how long Exchange waits for further response lines.
	defaultQuiet = 200 * time.Millisecond
)

// ErrNotRunning is returned when nothing is reading the control FIFO.
var ErrNotRunning = errors.New("no toolkit is reading the control channel")

// Client talks to a toolkit through its FIFO and output log.
type Client struct {
	fifoPath string
	logPath  string
}

// New creates a client. logPath may be empty when only Send is used.
func New(fifoPath, logPath string) (*Client, error) {
	if fifoPath == "" {
		return nil, errors.New("control fifo path cannot be empty")
	}
	return &Client{fifoPath: fifoPath, logPath: logPath}, nil
}

// Send writes commands to the FIFO. Commands are packed into writes no
// larger than the toolkit's read size so none is split across reads.
func (c *Client) Send(ctx context.Context, commands ...string) error {
	batches, err := pack(commands, ipc.ChunkSize)
	if err != nil {
		return err
	}
	if len(batches) == 0 {
		return nil
	}
	fd, err := unix.Open(c.fifoPath, unix.O_WRONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		if errors.Is(err, unix.ENXIO) {
			return ErrNotRunning
		}
		return fmt.Errorf("open control fifo: %w", err)
	}
	f := os.NewFile(uintptr(fd), c.fifoPath)
	defer f.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = f.SetWriteDeadline(deadline)
	}
	for _, batch := range batches {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := f.WriteString(batch); err != nil {
			return fmt.Errorf("write control fifo: %w", err)
		}
	}
	return nil
}

// pack joins commands with newlines into batches of at most limit bytes.
func pack(commands []string, limit int) ([]string, error) {
	var (
		batches []string
		current strings.Builder
	)
	for _, cmd := range commands {
		cmd = strings.TrimSpace(cmd)
		if cmd == "" {
			continue
		}
		if len(cmd)+1 > limit {
			return nil, fmt.Errorf("command longer than %d bytes: %.32q", limit-1, cmd)
		}
		if current.Len()+len(cmd)+1 > limit {
			batches = append(batches, current.String())
			current.Reset()
		}
		current.WriteString(cmd)
		current.WriteByte('\n')
	}
	if current.Len() > 0 {
		batches = append(batches, current.String())
	}
	return batches, nil
}

// Exchange sends commands and returns the log lines that follow, stopping
// once the log has been quiet for the quiet period (200ms when zero).
func (c *Client) Exchange(ctx context.Context, quiet time.Duration, commands ...string) ([]string, error) {
	if quiet <= 0 {
		quiet = defaultQuiet
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultTimeout)
		defer cancel()
	}
	offset, err := c.logSize()
	if err != nil {
		return nil, err
	}
	if err := c.Send(ctx, commands...); err != nil {
		return nil, err
	}
	var lines []string
	err = c.follow(ctx, offset, quiet, func(line string) error {
		lines = append(lines, line)
		return nil
	})
	if errors.Is(err, context.DeadlineExceeded) && len(lines) > 0 {
		err = nil
	}
	return lines, err
}

// Follow calls fn with every line appended to the log from now on until ctx
// is done or fn returns an error. With fromStart the existing contents are
// replayed first.
func (c *Client) Follow(ctx context.Context, fromStart bool, fn func(line string) error) error {
	var offset int64
	if !fromStart {
		var err error
		if offset, err = c.logSize(); err != nil {
			return err
		}
	}
	return c.follow(ctx, offset, 0, fn)
}

func (c *Client) logSize() (int64, error) {
	if c.logPath == "" {
		return 0, errors.New("output log path not configured")
	}
	info, err := os.Stat(c.logPath)
	if err != nil {
		return 0, fmt.Errorf("stat output log: %w", err)
	}
	return info.Size(), nil
}

// follow tails the log from offset. A positive quiet ends the follow once no
// line arrived for that long.
func (c *Client) follow(ctx context.Context, offset int64, quiet time.Duration, fn func(string) error) error {
	f, err := os.Open(c.logPath)
	if err != nil {
		return fmt.Errorf("open output log: %w", err)
	}
	defer f.Close()
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("seek output log: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch output log: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(c.logPath); err != nil {
		return fmt.Errorf("watch output log: %w", err)
	}

	reader := bufio.NewReader(f)
	var partial strings.Builder
	drain := func() (int, error) {
		n := 0
		for {
			chunk, err := reader.ReadString('\n')
			partial.WriteString(chunk)
			if err != nil {
				if errors.Is(err, io.EOF) {
					return n, nil
				}
				return n, fmt.Errorf("read output log: %w", err)
			}
			line := strings.TrimSuffix(partial.String(), "\n")
			partial.Reset()
			n++
			if err := fn(line); err != nil {
				return n, err
			}
		}
	}

	var quietCh <-chan time.Time
	var timer *time.Timer
	if quiet > 0 {
		timer = time.NewTimer(quiet)
		defer timer.Stop()
		quietCh = timer.C
	}
	for {
		n, err := drain()
		if err != nil {
			return err
		}
		if n > 0 && timer != nil {
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(quiet)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-quietCh:
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return errors.New("output log watcher closed")
			}
			if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				return fmt.Errorf("output log %s was moved away", c.logPath)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return errors.New("output log watcher closed")
			}
			return fmt.Errorf("output log watcher: %w", err)
		}
	}
}
