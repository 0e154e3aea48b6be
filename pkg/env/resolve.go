package env

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/loykin/contract-deployer/internal/common"
)

// Spec describes the layers to resolve on top of the process environment.
type Spec struct {
	// LoadFiles are read in order; later files overwrite earlier ones.
	LoadFiles []string
	// AdditionalVars are applied last and win over every file.
	AdditionalVars map[string]string
	// BaseDir anchors relative LoadFiles paths, usually the config file's directory.
	BaseDir string
}

// Resolve builds the sealed variable set: process environment, then each env
// file in order, then the inline variables. Every file value is expanded
// against what was accumulated before it.
func Resolve(spec Spec, processEnv map[string]string) (*Env, error) {
	logger := common.GetLogger().WithComponent("env")
	e := New()
	for k, v := range processEnv {
		_ = e.Set(k, v, Source{Layer: LayerProcess})
	}

	for _, p := range spec.LoadFiles {
		path, err := e.Expand(p)
		if err != nil {
			return nil, &EnvResolutionError{Kind: Expansion, Path: p, Err: err}
		}
		if !filepath.IsAbs(path) && spec.BaseDir != "" {
			path = filepath.Join(spec.BaseDir, path)
		}
		n, err := loadFile(e, path)
		if err != nil {
			return nil, err
		}
		logger.Debug("loaded env file", "path", path, "vars", n)
	}

	if err := applyInline(e, spec.AdditionalVars); err != nil {
		return nil, err
	}

	e.Seal()
	return e, nil
}

func loadFile(e *Env, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, &EnvResolutionError{Kind: FileNotFound, Path: path, Err: err}
		}
		return 0, &EnvResolutionError{Kind: FileUnreadable, Path: path, Err: err}
	}
	defer func() { _ = f.Close() }()

	entries, err := parseEnvFile(f)
	if err != nil {
		var le *lineError
		if errors.As(err, &le) {
			return 0, &EnvResolutionError{Kind: Malformed, Path: path, Line: le.Line, Err: le.Err}
		}
		return 0, &EnvResolutionError{Kind: FileUnreadable, Path: path, Err: err}
	}

	src := Source{Layer: LayerFile, Path: path}
	for _, ent := range entries {
		val := ent.Value
		if !ent.Literal {
			val, err = e.Expand(ent.Value)
			if err != nil {
				return 0, &EnvResolutionError{Kind: Expansion, Path: path, Line: ent.Line, Variable: ent.Key, Err: err}
			}
		}
		_ = e.Set(ent.Key, val, src)
	}
	return len(entries), nil
}

// applyInline resolves inline variables against the accumulated mapping and
// each other. A variable referencing its own name sees the lower layer's
// value; any longer cycle is an error.
func applyInline(e *Env, raw map[string]string) error {
	if len(raw) == 0 {
		return nil
	}
	resolved := make(map[string]string, len(raw))
	visiting := map[string]bool{}

	var resolve func(name string) error
	resolve = func(name string) error {
		if _, ok := resolved[name]; ok {
			return nil
		}
		visiting[name] = true
		defer delete(visiting, name)

		var cycle error
		val, err := Substitute(raw[name], func(ref string) (string, bool) {
			if ref == name {
				return e.Lookup(ref)
			}
			if _, inline := raw[ref]; !inline {
				return e.Lookup(ref)
			}
			if visiting[ref] {
				if cycle == nil {
					cycle = &CyclicVariableError{Template: raw[name], Remaining: []string{ref}}
				}
				return "", false
			}
			if err := resolve(ref); err != nil {
				if cycle == nil {
					cycle = err
				}
				return "", false
			}
			return resolved[ref], true
		})
		if cycle != nil {
			return cycle
		}
		if err != nil {
			return err
		}
		resolved[name] = val
		return nil
	}

	names := make([]string, 0, len(raw))
	for k := range raw {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, name := range names {
		if !keyPattern.MatchString(name) {
			return &EnvResolutionError{Kind: Malformed, Variable: name, Err: fmt.Errorf("invalid variable name %q", name)}
		}
		if err := resolve(name); err != nil {
			var ere *EnvResolutionError
			if errors.As(err, &ere) {
				return err
			}
			return &EnvResolutionError{Kind: Expansion, Variable: name, Err: err}
		}
	}

	src := Source{Layer: LayerInline}
	for _, name := range names {
		_ = e.Set(name, resolved[name], src)
	}
	return nil
}
