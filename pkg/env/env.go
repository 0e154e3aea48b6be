package env

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
)

// Layer names where a resolved variable came from.
type Layer string

const (
	LayerProcess Layer = "process"
	LayerFile    Layer = "file"
	LayerInline  Layer = "inline"
	LayerNetwork Layer = "network"
)

// Source records the layer (and file, for LayerFile) that last wrote a key.
type Source struct {
	Layer Layer
	Path  string
}

func (s Source) String() string {
	if s.Path != "" {
		return fmt.Sprintf("%s:%s", s.Layer, s.Path)
	}
	return string(s.Layer)
}

// Env is the resolved variable set. It is populated during resolution and
// sealed before it is handed to anything else; a sealed Env rejects Set.
// The zero value is usable.
type Env struct {
	mu      sync.RWMutex
	vars    map[string]string
	sources map[string]Source
	sealed  bool
}

// New returns an empty, unsealed Env.
func New() *Env {
	return &Env{vars: map[string]string{}, sources: map[string]Source{}}
}

// FromMap builds a sealed Env from m, attributing every key to src.
func FromMap(m map[string]string, src Source) *Env {
	e := New()
	for k, v := range m {
		e.vars[k] = v
		e.sources[k] = src
	}
	e.Seal()
	return e
}

// Set inserts or overwrites key. Returns error if sealed.
func (e *Env) Set(key, val string, src Source) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sealed {
		return fmt.Errorf("env: sealed (immutable)")
	}
	if e.vars == nil {
		e.vars = map[string]string{}
		e.sources = map[string]Source{}
	}
	e.vars[key] = val
	e.sources[key] = src
	return nil
}

// Seal marks the Env as immutable for Set operations.
func (e *Env) Seal() {
	if e != nil {
		e.mu.Lock()
		e.sealed = true
		e.mu.Unlock()
	}
}

// Sealed reports whether Seal has been called.
func (e *Env) Sealed() bool {
	if e == nil {
		return false
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.sealed
}

// Lookup returns the value of key and whether it is defined.
func (e *Env) Lookup(key string) (string, bool) {
	if e == nil {
		return "", false
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.vars[key]
	return v, ok
}

// Get returns the value of key or "" when undefined.
func (e *Env) Get(key string) string {
	v, _ := e.Lookup(key)
	return v
}

// Has reports whether key is defined and non-empty after trimming.
func (e *Env) Has(key string) bool {
	v, ok := e.Lookup(key)
	return ok && strings.TrimSpace(v) != ""
}

// Source returns the layer that produced key.
func (e *Env) Source(key string) (Source, bool) {
	if e == nil {
		return Source{}, false
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.sources[key]
	return s, ok
}

// Len returns the number of defined keys.
func (e *Env) Len() int {
	if e == nil {
		return 0
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.vars)
}

// Vars returns a copy of the mapping.
func (e *Env) Vars() map[string]string {
	out := map[string]string{}
	if e == nil {
		return out
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	for k, v := range e.vars {
		out[k] = v
	}
	return out
}

// Keys returns the defined keys in sorted order.
func (e *Env) Keys() []string {
	vars := e.Vars()
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Environ renders the mapping as sorted KEY=VALUE pairs for exec.Cmd.Env.
func (e *Env) Environ() []string {
	keys := e.Keys()
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		v, _ := e.Lookup(k)
		out = append(out, k+"="+v)
	}
	return out
}

// Overlay returns a new sealed Env holding e's variables overwritten by vars.
// e itself is left untouched.
func (e *Env) Overlay(vars map[string]string, src Source) *Env {
	out := New()
	if e != nil {
		e.mu.RLock()
		for k, v := range e.vars {
			out.vars[k] = v
			out.sources[k] = e.sources[k]
		}
		e.mu.RUnlock()
	}
	for k, v := range vars {
		out.vars[k] = v
		out.sources[k] = src
	}
	out.Seal()
	return out
}

// Expand resolves ${NAME} references in template against this Env. Values in
// the Env are already resolved and are substituted as-is.
func (e *Env) Expand(template string) (string, error) {
	return Substitute(template, e.Lookup)
}

// ProcessEnv snapshots the current process environment.
func ProcessEnv() map[string]string {
	out := map[string]string{}
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		out[k] = v
	}
	return out
}
