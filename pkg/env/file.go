package env

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

var keyPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// fileEntry is one assignment read from an env file.
type fileEntry struct {
	Key     string
	Value   string
	Literal bool // single-quoted: not subject to expansion
	Line    int
}

// lineError carries the 1-based line of a malformed entry.
type lineError struct {
	Line int
	Err  error
}

func (e *lineError) Error() string { return fmt.Sprintf("line %d: %v", e.Line, e.Err) }
func (e *lineError) Unwrap() error { return e.Err }

// parseEnvFile reads KEY=VALUE lines. Blank lines and # comments are skipped,
// an optional "export " prefix is accepted, and one layer of matching quotes
// is removed from the value.
func parseEnvFile(r io.Reader) ([]fileEntry, error) {
	var entries []fileEntry
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())
		if n == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))

		key, raw, ok := strings.Cut(line, "=")
		if !ok {
			return nil, &lineError{Line: n, Err: errors.New("expected KEY=VALUE")}
		}
		key = strings.TrimSpace(key)
		if !keyPattern.MatchString(key) {
			return nil, &lineError{Line: n, Err: fmt.Errorf("invalid variable name %q", key)}
		}

		value, literal, err := parseValue(strings.TrimSpace(raw))
		if err != nil {
			return nil, &lineError{Line: n, Err: fmt.Errorf("%s: %w", key, err)}
		}
		entries = append(entries, fileEntry{Key: key, Value: value, Literal: literal, Line: n})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func parseValue(v string) (value string, literal bool, err error) {
	if v == "" {
		return "", false, nil
	}
	switch q := v[0]; q {
	case '"', '\'':
		end := strings.LastIndexByte(v, q)
		if end == 0 {
			return "", false, errors.New("unterminated quoted value")
		}
		rest := strings.TrimSpace(v[end+1:])
		if rest != "" && !strings.HasPrefix(rest, "#") {
			return "", false, fmt.Errorf("unexpected text after quoted value: %q", rest)
		}
		return v[1:end], q == '\'', nil
	}
	// unquoted: a " #" starts a trailing comment
	if i := strings.Index(v, " #"); i >= 0 {
		v = strings.TrimSpace(v[:i])
	}
	return v, false, nil
}
