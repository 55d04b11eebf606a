package ipc

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/swtk/swt/internal/util"
)

// ChunkSize caps a single control channel read, matching PIPE_BUF.
const ChunkSize = 4096

// pollInterval bounds how long the reader waits before rechecking its context.
const pollInterval = 100 * time.Millisecond

// Chunk is one read's worth of control channel data. EOF is set when the
// writer side went away and the channel was reset; Err is set when the reader
// stopped on an unrecoverable error.
type Chunk struct {
	Data []byte
	EOF  bool
	Err  error
}

// Channel is the named pipe commands arrive on. The toolkit holds its own
// write descriptor so that readers never observe end-of-file while no
// external writer is attached.
type Channel struct {
	path   string
	logger *util.Logger

	mu   sync.Mutex
	rfd  int
	wfd  int
	done chan struct{}
}

// OpenChannel creates the FIFO at path if needed and opens it.
func OpenChannel(path string, logger *util.Logger) (*Channel, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := unix.Mkfifo(path, 0o700); err != nil && !errors.Is(err, unix.EEXIST) {
			return nil, fmt.Errorf("create fifo %s: %w", path, err)
		}
	}
	c := &Channel{path: path, logger: logger, rfd: -1, wfd: -1}
	if err := c.open(); err != nil {
		return nil, err
	}
	return c, nil
}

// Path returns the FIFO location.
func (c *Channel) Path() string {
	return c.path
}

func (c *Channel) open() error {
	rfd, err := unix.Open(c.path, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return fmt.Errorf("open fifo %s for reading: %w", c.path, err)
	}
	wfd, err := unix.Open(c.path, unix.O_WRONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		unix.Close(rfd)
		return fmt.Errorf("open fifo %s for writing: %w", c.path, err)
	}
	c.mu.Lock()
	c.rfd, c.wfd = rfd, wfd
	c.mu.Unlock()
	return nil
}

func (c *Channel) closeFDs() error {
	c.mu.Lock()
	rfd, wfd := c.rfd, c.wfd
	c.rfd, c.wfd = -1, -1
	c.mu.Unlock()
	var errs []error
	if rfd >= 0 {
		if err := unix.Close(rfd); err != nil {
			errs = append(errs, fmt.Errorf("close fifo reader: %w", err))
		}
	}
	if wfd >= 0 {
		if err := unix.Close(wfd); err != nil {
			errs = append(errs, fmt.Errorf("close fifo writer: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Reset closes the channel and opens fresh descriptors.
func (c *Channel) Reset() error {
	if err := c.closeFDs(); err != nil {
		return err
	}
	return c.open()
}

// Read waits up to timeout for data and performs one read. It returns
// (nil, nil) on timeout and an empty non-nil slice on end-of-file.
// Interrupted waits and spurious wakeups are retried.
func (c *Channel) Read(timeout time.Duration) ([]byte, error) {
	c.mu.Lock()
	fd := c.rfd
	c.mu.Unlock()
	if fd < 0 {
		return nil, fmt.Errorf("fifo %s is closed", c.path)
	}
	deadline := time.Now().Add(timeout)
	for {
		wait := time.Until(deadline)
		if wait < 0 {
			wait = 0
		}
		fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		n, err := unix.Poll(fds, int(wait/time.Millisecond))
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return nil, fmt.Errorf("poll fifo: %w", err)
		}
		if n == 0 {
			return nil, nil
		}
		buf := make([]byte, ChunkSize)
		rn, err := unix.Read(fd, buf)
		if err != nil {
			if err == unix.EINTR || err == unix.EAGAIN {
				if time.Now().After(deadline) {
					return nil, nil
				}
				continue
			}
			c.logger.Warnf("failed to read from fifo: %v", err)
			return nil, nil
		}
		return buf[:rn], nil
	}
}

// Stream reads the channel in a goroutine until ctx is done, resetting it on
// end-of-file. The returned channel is closed when the reader exits.
func (c *Channel) Stream(ctx context.Context) <-chan Chunk {
	chunks := make(chan Chunk)
	done := make(chan struct{})
	c.mu.Lock()
	c.done = done
	c.mu.Unlock()
	go func() {
		defer close(done)
		defer close(chunks)
		for ctx.Err() == nil {
			data, err := c.Read(pollInterval)
			var chunk Chunk
			switch {
			case err != nil:
				chunk = Chunk{Err: err}
			case data == nil:
				continue
			case len(data) == 0:
				if err := c.Reset(); err != nil {
					chunk = Chunk{Err: fmt.Errorf("reset fifo: %w", err)}
				} else {
					chunk = Chunk{EOF: true}
				}
			default:
				chunk = Chunk{Data: data}
			}
			select {
			case chunks <- chunk:
			case <-ctx.Done():
				return
			}
			if chunk.Err != nil {
				return
			}
		}
	}()
	return chunks
}

// Close releases the descriptors. When Stream was used its context must be
// cancelled first; Close waits for the reader to exit.
func (c *Channel) Close() error {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done != nil {
		<-done
	}
	return c.closeFDs()
}
