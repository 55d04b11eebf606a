package control

import (
	"iter"
	"strings"
)

// Parse splits one control channel chunk into commands, lazily. Commands are
// separated by ';' or newlines; empty commands are skipped. The verb and its
// attributes are split at the first space.
func Parse(chunk []byte) iter.Seq[Command] {
	text := strings.TrimRight(string(chunk), "\r\n")
	return func(yield func(Command) bool) {
		rest := text
		for rest != "" {
			var segment string
			if i := strings.IndexAny(rest, ";\n"); i >= 0 {
				segment, rest = rest[:i], rest[i+1:]
			} else {
				segment, rest = rest, ""
			}
			cmd, ok := parseCommand(segment)
			if !ok {
				continue
			}
			if !yield(cmd) {
				return
			}
		}
	}
}

func parseCommand(segment string) (Command, bool) {
	segment = strings.TrimSpace(segment)
	if segment == "" {
		return Command{}, false
	}
	name, attrs, found := strings.Cut(segment, " ")
	attrs = strings.TrimLeft(attrs, " \t")
	return Command{Name: name, Attrs: attrs, HasAttrs: found && attrs != ""}, true
}
