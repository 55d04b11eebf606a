package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/swtk/swt/internal/config"
	"github.com/swtk/swt/internal/control/client"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(argv []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("swtctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fifo := fs.String("i", "", "path to the toolkit's control fifo")
	logPath := fs.String("o", "", "path to the toolkit's output log")
	timeout := fs.Duration("timeout", 3*time.Second, "how long to wait for responses")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: %s [flags] <command> [args]\n", fs.Name())
		fmt.Fprintln(fs.Output())
		fmt.Fprintln(fs.Output(), "Commands:")
		fmt.Fprintln(fs.Output(), "  send [--wait] <cmd>...\twrite commands, optionally printing the responses")
		fmt.Fprintln(fs.Output(), "  tail [--from-start]\tfollow the output log")
		fmt.Fprintln(fs.Output(), "  check --config <path>\tvalidate a configuration file")
		fmt.Fprintln(fs.Output())
		fmt.Fprintln(fs.Output(), "Flags:")
		fs.PrintDefaults()
	}
	if err := fs.Parse(argv); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	args := fs.Args()
	if len(args) == 0 {
		fs.Usage()
		return fmt.Errorf("missing subcommand")
	}

	if args[0] == "check" {
		return runCheck(args[1:], stdout, stderr)
	}

	cli, err := client.New(*fifo, *logPath)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}

	switch args[0] {
	case "send":
		ctx := context.Background()
		if *timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, *timeout)
			defer cancel()
		}
		return runSend(ctx, cli, args[1:], stdout, stderr)
	case "tail":
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		return runTail(ctx, cli, args[1:], stdout, stderr)
	default:
		fs.Usage()
		return fmt.Errorf("unknown subcommand %q", args[0])
	}
}

func runCheck(args []string, stdout io.Writer, stderr io.Writer) error {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to configuration file")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	if *configPath == "" {
		fs.Usage()
		return fmt.Errorf("check requires --config <path>")
	}

	if _, err := config.Load(*configPath); err != nil {
		fmt.Fprintln(stderr, "Configuration has issues:")
		for _, line := range strings.Split(err.Error(), "\n") {
			fmt.Fprintf(stderr, "- %s\n", line)
		}
		return fmt.Errorf("configuration validation failed")
	}
	fmt.Fprintln(stdout, "Configuration OK")
	return nil
}

func runSend(ctx context.Context, cli *client.Client, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	fs.SetOutput(stderr)
	wait := fs.Bool("wait", false, "print the log lines written in response")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	commands := fs.Args()
	if len(commands) == 0 {
		return fmt.Errorf("send requires at least one command")
	}
	if !*wait {
		return cli.Send(ctx, commands...)
	}
	lines, err := cli.Exchange(ctx, 0, commands...)
	for _, line := range lines {
		fmt.Fprintln(stdout, line)
	}
	return err
}

func runTail(ctx context.Context, cli *client.Client, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("tail", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fromStart := fs.Bool("from-start", false, "replay the whole log before following")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	err := cli.Follow(ctx, *fromStart, func(line string) error {
		_, err := fmt.Fprintln(stdout, line)
		return err
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
