package checkpoint

import (
	"fmt"
	"strings"
)

// CommandError means git ran but reported a non-zero exit. It carries the
// captured stderr so callers can show the user what git actually said.
type CommandError struct {
	Args   []string
	Stderr string
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("git %s failed", strings.Join(e.Args, " "))
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

// DecodeError means command output that must be parsed was not valid UTF-8.
type DecodeError struct {
	What string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("invalid UTF-8 in %s", e.What)
}

// ParseError means command output decoded fine but could not be interpreted
// as the expected shape (e.g. a non-numeric commit count).
type ParseError struct {
	What   string
	Output string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s from %q: %v", e.What, e.Output, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// stderrText renders captured stderr for diagnostics. Display text tolerates
// invalid UTF-8 (lossy replacement); only parse paths are strict.
func stderrText(stderr []byte) string {
	return strings.TrimSpace(strings.ToValidUTF8(string(stderr), "�"))
}
