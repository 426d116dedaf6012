// Package environment converts between the two shapes the kernel's Config
// and the CLI's --dotenv/--config flags need: a map[string]string for
// programmatic merging, and a "KEY=value" line-oriented text form for
// files and for printing.
package environment

import (
	"fmt"
	"strings"
)

// ToMap parses a slice of "KEY=value" entries into a map, skipping any
// entry that has no "=". Later entries win on key collision, so callers
// can layer overrides by appending them after a base set.
func ToMap(entries []string) map[string]string {
	result := make(map[string]string, len(entries))
	for _, entry := range entries {
		key, value, ok := splitAssignment(entry)
		if !ok {
			continue
		}
		result[key] = value
	}
	return result
}

// FromMap renders a map as a slice of "KEY=value" entries in unspecified
// order; pair it with Format when a stable, printable order is wanted.
func FromMap(vars map[string]string) []string {
	result := make([]string, 0, len(vars))
	for key, value := range vars {
		result = append(result, key+"="+value)
	}
	return result
}

// Format is FromMap with explicit fmt-based assembly, kept separate so
// CLI callers building human-facing output (one assignment per line) have
// a name that says so at the call site.
func Format(vars map[string]string) []string {
	lines := make([]string, 0, len(vars))
	for key, value := range vars {
		lines = append(lines, fmt.Sprintf("%s=%s", key, value))
	}
	return lines
}

// ParseBlock splits a multi-line "KEY=value" block (as found in a pasted
// .env blob, CRLF or LF terminated) into individual assignment lines,
// trimming surrounding blank lines. It does not validate that each line
// is a well-formed assignment; use ToMap for that.
func ParseBlock(block string) []string {
	block = strings.ReplaceAll(block, "\r\n", "\n")
	block = strings.TrimSpace(block)
	if block == "" {
		return nil
	}
	return strings.Split(block, "\n")
}

// splitAssignment splits "KEY=value" into its two halves. The value may
// itself contain "=" characters; only the first separator counts.
func splitAssignment(entry string) (key, value string, ok bool) {
	idx := strings.IndexByte(entry, '=')
	if idx < 0 {
		return "", "", false
	}
	return entry[:idx], entry[idx+1:], true
}
