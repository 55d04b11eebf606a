package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/swtk/swt/internal/config"
	"github.com/swtk/swt/internal/display"
	"github.com/swtk/swt/internal/display/term"
	"github.com/swtk/swt/internal/display/x11"
	"github.com/swtk/swt/internal/engine"
	"github.com/swtk/swt/internal/ipc"
	"github.com/swtk/swt/internal/metrics"
	"github.com/swtk/swt/internal/util"
)

var version = "0.1.0"

const (
	backendX11  = "x11"
	backendTerm = "term"
)

type options struct {
	input       string
	output      string
	configPath  string
	backend     string
	logLevel    string
	showVersion bool
}

func parseFlags(argv []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("swt", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.input, "i", "", "control `fifo` to read commands from (created if missing)")
	fs.StringVar(&opts.output, "o", "", "output `log` to append responses to")
	fs.BoolVar(&opts.showVersion, "v", false, "print version and exit")
	fs.StringVar(&opts.configPath, "c", "", "path to YAML `config`")
	fs.StringVar(&opts.backend, "backend", backendX11, "windowing backend (x11|term)")
	fs.StringVar(&opts.logLevel, "log-level", "info", "log level (trace|debug|info|warn|error)")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: swt [-v] -i <fifo> -o <log> [-c config.yaml] [-backend x11|term] [-log-level level]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(argv); err != nil {
		return opts, err
	}
	if opts.showVersion {
		return opts, nil
	}
	if fs.NArg() > 0 {
		fs.Usage()
		return opts, fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}
	if opts.input == "" || opts.output == "" {
		fs.Usage()
		return opts, errors.New("both -i and -o are required")
	}
	opts.backend = strings.ToLower(opts.backend)
	if opts.backend != backendX11 && opts.backend != backendTerm {
		fs.Usage()
		return opts, fmt.Errorf("unsupported backend %q", opts.backend)
	}
	return opts, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
	if opts.showVersion {
		fmt.Printf("swt-%s\n", version)
		return
	}

	logger := util.NewLogger(util.ParseLogLevel(opts.logLevel))

	cfg, serialized, err := loadConfig(opts.configPath)
	if err != nil {
		exitErr(err)
	}

	conn, err := openDisplay(opts.backend, cfg, logger)
	if err != nil {
		exitErr(err)
	}
	defer conn.Close()

	channel, err := ipc.OpenChannel(opts.input, logger)
	if err != nil {
		conn.Close()
		exitErr(err)
	}
	out, err := ipc.OpenOutput(opts.output)
	if err != nil {
		channel.Close()
		conn.Close()
		exitErr(err)
	}
	defer out.Close()

	collector := metrics.NewCollector(cfg.Telemetry.Enabled)
	eng, err := engine.New(conn, channel, out, logger, collector, cfg)
	if err != nil {
		channel.Close()
		out.Close()
		conn.Close()
		exitErr(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloadRequests := make(chan string, 1)
	var reloader *configReloader
	if opts.configPath != "" {
		reloader = newConfigReloader(opts.configPath, logger, eng, cfg, serialized)
		watcher, err := newConfigWatcher(opts.configPath, logger)
		if err != nil {
			logger.Warnf("config hot reload disabled: %v", err)
		} else {
			defer watcher.Close()
			target, _ := filepath.Abs(opts.configPath)
			go watchConfig(logger, watcher, filepath.Clean(target), reloadRequests)
		}
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	errs := make(chan error, 1)
	go func() {
		errs <- eng.Run(ctx)
	}()

	for {
		select {
		case err := <-errs:
			if err != nil && !errors.Is(err, context.Canceled) {
				out.Close()
				conn.Close()
				exitErr(err)
			}
			logger.Infof("engine stopped")
			return
		case reason := <-reloadRequests:
			if err := reloader.Reload(ctx, reason); err != nil {
				logger.Errorf("reload failed: %v", err)
			}
		case sig := <-sigs:
			switch sig {
			case syscall.SIGHUP:
				if reloader == nil {
					logger.Infof("received SIGHUP without -c, nothing to reload")
					continue
				}
				if err := reloader.Reload(ctx, "received SIGHUP"); err != nil {
					logger.Errorf("reload failed: %v", err)
				}
			case os.Interrupt, syscall.SIGTERM:
				logger.Infof("received %s, shutting down", sig)
				cancel()
			}
		}
	}
}

// loadConfig reads path, or returns the built-in defaults when path is empty.
func loadConfig(path string) (*config.Config, []byte, error) {
	if path == "" {
		return config.Default(), nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	cfg, err := config.Parse(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, raw, nil
}

func openDisplay(backend string, cfg *config.Config, logger *util.Logger) (display.Conn, error) {
	switch backend {
	case backendTerm:
		conn, err := term.Open(logger)
		if err != nil {
			return nil, fmt.Errorf("open terminal: %w", err)
		}
		return conn, nil
	default:
		conn, err := x11.Open(cfg.Font, logger)
		if err != nil {
			return nil, fmt.Errorf("open display: %w", err)
		}
		return conn, nil
	}
}

func newConfigWatcher(path string, logger *util.Logger) (*fsnotify.Watcher, error) {
	full, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	full = filepath.Clean(full)
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch config: %w", err)
	}
	if err := watcher.Add(filepath.Dir(full)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch config dir: %w", err)
	}
	if err := watcher.Add(full); err != nil {
		logger.Debugf("unable to watch config file directly: %v", err)
	}
	return watcher, nil
}

func watchConfig(logger *util.Logger, watcher *fsnotify.Watcher, target string, reloadRequests chan<- string) {
	const debounceWindow = 250 * time.Millisecond
	var (
		timer   *time.Timer
		timerCh <-chan time.Time
	)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounceWindow)
				timerCh = timer.C
			} else {
				if !timer.Stop() {
					<-timerCh
				}
				timer.Reset(debounceWindow)
			}
		case <-timerCh:
			timer = nil
			timerCh = nil
			select {
			case reloadRequests <- "config file updated":
			default:
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warnf("config watcher error: %v", err)
		}
	}
}

func exitErr(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
