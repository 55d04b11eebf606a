package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/swtk/swt/internal/config"
	"github.com/swtk/swt/internal/display/displaytest"
	"github.com/swtk/swt/internal/engine"
	"github.com/swtk/swt/internal/ipc"
	"github.com/swtk/swt/internal/metrics"
	"github.com/swtk/swt/internal/util"
)

// scriptSource feeds one chunk per script line, then a quit.
type scriptSource struct {
	lines []string
}

func (s *scriptSource) Stream(ctx context.Context) <-chan ipc.Chunk {
	out := make(chan ipc.Chunk)
	go func() {
		defer close(out)
		for _, line := range append(s.lines, "quit") {
			select {
			case out <- ipc.Chunk{Data: []byte(line)}:
			case <-ctx.Done():
				return
			}
		}
		<-ctx.Done()
	}()
	return out
}

func (s *scriptSource) Close() error { return nil }

func main() {
	cfgPath := flag.String("c", "", "path to YAML config (defaults when empty)")
	script := flag.String("script", "", "file with one command chunk per line ('-' for stdin)")
	logLevel := flag.String("log-level", "warn", "log level (trace|debug|info|warn|error)")
	showConfig := flag.Bool("show-config", true, "print the effective configuration")
	flag.Parse()

	logger := util.NewLogger(util.ParseLogLevel(*logLevel))

	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		if cfg, err = config.Load(*cfgPath); err != nil {
			exitErr(fmt.Errorf("load config: %w", err))
		}
	}
	cfg.Telemetry.Enabled = true

	lines, err := readScript(*script, flag.Args())
	if err != nil {
		exitErr(err)
	}

	if *showConfig {
		fmt.Println("=== Configuration ===")
		if err := marshalYAML(cfg); err != nil {
			logger.Warnf("failed to print config: %v", err)
		}
	}

	conn := displaytest.New()
	collector := metrics.NewCollector(true)
	out := ipc.NewOutput(os.Stdout)
	eng, err := engine.New(conn, &scriptSource{lines: lines}, out, logger, collector, cfg)
	if err != nil {
		exitErr(fmt.Errorf("build engine: %w", err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	fmt.Println("\n=== Output ===")
	if err := eng.Run(ctx); err != nil {
		exitErr(fmt.Errorf("run: %w", err))
	}

	fmt.Println("\n=== Windows Created ===")
	for i, spec := range conn.Created() {
		fmt.Printf("%d: name=%s title=%s size=%dx%d\n", conn.Handles()[i], spec.Name, spec.Title, spec.Size.Width, spec.Size.Height)
	}
	fmt.Println("\n=== Counters ===")
	fmt.Println(collector.Snapshot().Summary())
}

func readScript(path string, args []string) ([]string, error) {
	var r io.Reader
	switch path {
	case "":
		return args, nil
	case "-":
		r = os.Stdin
	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open script: %w", err)
		}
		defer f.Close()
		r = f
	}
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	return append(lines, args...), nil
}

func exitErr(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

func marshalYAML(v any) error {
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(v)
}
