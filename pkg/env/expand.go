package env

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
)

// MaxPasses bounds chained expansion. Templates still holding references
// after this many passes are treated as cyclic.
const MaxPasses = 10

// ErrCyclicOrUnresolved is matched by both UnresolvedVariableError and
// CyclicVariableError.
var ErrCyclicOrUnresolved = errors.New("cyclic or unresolved variable")

var refPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// LookupFunc resolves a single variable name.
type LookupFunc func(name string) (string, bool)

// MapLookup adapts a plain map to a LookupFunc.
func MapLookup(m map[string]string) LookupFunc {
	return func(name string) (string, bool) {
		v, ok := m[name]
		return v, ok
	}
}

// UnresolvedVariableError reports a reference to a name the lookup does not define.
type UnresolvedVariableError struct {
	Name     string
	Template string
}

func (e *UnresolvedVariableError) Error() string {
	return fmt.Sprintf("unresolved variable ${%s} in %q", e.Name, e.Template)
}

func (e *UnresolvedVariableError) Is(target error) bool { return target == ErrCyclicOrUnresolved }

// CyclicVariableError reports references that survive MaxPasses expansion passes.
type CyclicVariableError struct {
	Template  string
	Remaining []string
}

func (e *CyclicVariableError) Error() string {
	return fmt.Sprintf("variable cycle in %q: %v still referenced after %d passes", e.Template, e.Remaining, MaxPasses)
}

func (e *CyclicVariableError) Is(target error) bool { return target == ErrCyclicOrUnresolved }

// References lists the distinct variable names referenced by template, sorted.
func References(template string) []string {
	seen := map[string]bool{}
	for _, m := range refPattern.FindAllStringSubmatch(template, -1) {
		seen[m[1]] = true
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// HasReferences reports whether template contains any ${NAME} reference.
func HasReferences(template string) bool {
	return refPattern.MatchString(template)
}

// Substitute replaces every ${NAME} in template with lookup(NAME) in a single
// pass. Substituted values are inserted verbatim and never scanned again, so a
// literal value holding "${...}" text stays literal when referenced.
func Substitute(template string, lookup LookupFunc) (string, error) {
	if !refPattern.MatchString(template) {
		return template, nil
	}
	var missing string
	out := refPattern.ReplaceAllStringFunc(template, func(ref string) string {
		name := ref[2 : len(ref)-1]
		v, ok := lookup(name)
		if !ok {
			if missing == "" {
				missing = name
			}
			return ref
		}
		return v
	})
	if missing != "" {
		return "", &UnresolvedVariableError{Name: missing, Template: template}
	}
	return out, nil
}

// Expand replaces every ${NAME} in template with lookup(NAME). Substituted
// values may introduce further references, which are expanded in subsequent
// passes up to MaxPasses. It never returns partially expanded text with a nil
// error.
func Expand(template string, lookup LookupFunc) (string, error) {
	out := template
	for pass := 0; pass < MaxPasses; pass++ {
		if !refPattern.MatchString(out) {
			return out, nil
		}
		var missing string
		out = refPattern.ReplaceAllStringFunc(out, func(ref string) string {
			name := ref[2 : len(ref)-1]
			v, ok := lookup(name)
			if !ok {
				if missing == "" {
					missing = name
				}
				return ref
			}
			return v
		})
		if missing != "" {
			return "", &UnresolvedVariableError{Name: missing, Template: template}
		}
	}
	if refPattern.MatchString(out) {
		return "", &CyclicVariableError{Template: template, Remaining: References(out)}
	}
	return out, nil
}
