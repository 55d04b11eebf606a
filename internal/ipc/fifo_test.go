package ipc

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/swtk/swt/internal/util"
)

func openTestChannel(t *testing.T) *Channel {
	t.Helper()
	path := filepath.Join(t.TempDir(), "in")
	ch, err := OpenChannel(path, util.Discard())
	if err != nil {
		t.Fatalf("OpenChannel: %v", err)
	}
	return ch
}

func writeFIFO(t *testing.T, path, data string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		t.Fatalf("open fifo for writing: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString(data); err != nil {
		t.Fatalf("write fifo: %v", err)
	}
}

func TestOpenChannelCreatesFIFO(t *testing.T) {
	ch := openTestChannel(t)
	defer ch.Close()

	info, err := os.Stat(ch.Path())
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode()&os.ModeNamedPipe == 0 {
		t.Fatalf("expected a named pipe, got mode %v", info.Mode())
	}
}

func TestReadTimesOutWithoutData(t *testing.T) {
	ch := openTestChannel(t)
	defer ch.Close()

	data, err := ch.Read(20 * time.Millisecond)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if data != nil {
		t.Fatalf("expected timeout, got %q", data)
	}
}

func TestHeldWriterPreventsEOF(t *testing.T) {
	ch := openTestChannel(t)
	defer ch.Close()

	writeFIFO(t, ch.Path(), "noop\n")
	data, err := ch.Read(time.Second)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(data) != "noop\n" {
		t.Fatalf("unexpected chunk %q", data)
	}

	// The external writer is gone; the held descriptor keeps the pipe open.
	data, err = ch.Read(20 * time.Millisecond)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if data != nil {
		t.Fatalf("expected no end-of-file while the writer is held, got %q", data)
	}
}

func TestResetKeepsChannelUsable(t *testing.T) {
	ch := openTestChannel(t)
	defer ch.Close()

	if err := ch.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	writeFIFO(t, ch.Path(), "dump")
	data, err := ch.Read(time.Second)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(data) != "dump" {
		t.Fatalf("unexpected chunk after reset %q", data)
	}
}

func TestStreamDeliversChunks(t *testing.T) {
	ch := openTestChannel(t)
	ctx, cancel := context.WithCancel(context.Background())
	chunks := ch.Stream(ctx)

	writeFIFO(t, ch.Path(), "window foo bar")
	select {
	case chunk := <-chunks:
		if chunk.Err != nil || chunk.EOF {
			t.Fatalf("unexpected chunk %+v", chunk)
		}
		if string(chunk.Data) != "window foo bar" {
			t.Fatalf("unexpected data %q", chunk.Data)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for chunk")
	}

	cancel()
	if err := ch.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, ok := <-chunks; ok {
		t.Fatalf("expected stream to be closed after cancel")
	}
}
