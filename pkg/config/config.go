package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/loykin/contract-deployer/internal/common"
	"github.com/loykin/contract-deployer/internal/util"
)

// Project is the [project] table.
type Project struct {
	Name         string `mapstructure:"name" yaml:"name"`
	Script       string `mapstructure:"script" yaml:"script"`
	Network      string `mapstructure:"network" yaml:"network"`
	SetupCommand string `mapstructure:"setup_command" yaml:"setup_command,omitempty"`
	Repo         string `mapstructure:"repo" yaml:"repo,omitempty"`
	// Path is the base directory for temporary clones.
	Path string `mapstructure:"path" yaml:"path,omitempty"`
	// Ref is an optional branch or tag to check out.
	Ref string `mapstructure:"ref" yaml:"ref,omitempty"`
}

// Network is one [networks.<name>] table. Keys other than chain_id, rpc_url
// and verify are collected in Extra and become variables for that network.
type Network struct {
	Name    string         `mapstructure:"-" yaml:"-"`
	ChainID int64          `mapstructure:"chain_id" yaml:"chain_id"`
	RPCURL  string         `mapstructure:"rpc_url" yaml:"rpc_url"`
	Verify  bool           `mapstructure:"verify" yaml:"verify"`
	Extra   map[string]any `mapstructure:",remain" yaml:",inline"`
}

// EnvSection is the [env] table.
type EnvSection struct {
	LoadFiles      []string          `mapstructure:"load_files" yaml:"load_files"`
	AdditionalVars map[string]string `mapstructure:"additional_vars" yaml:"additional_vars"`
	// Vars is accepted as an alias of AdditionalVars.
	Vars map[string]string `mapstructure:"vars" yaml:"vars,omitempty"`
}

// LoggingConfig is the optional [logging] table.
type LoggingConfig struct {
	Level         string `mapstructure:"level" yaml:"level"`                   // error, warn, info, debug
	Format        string `mapstructure:"format" yaml:"format"`                 // text, json, color
	MaskSensitive *bool  `mapstructure:"mask_sensitive" yaml:"mask_sensitive"` // enable/disable sensitive data masking
	Color         *bool  `mapstructure:"color" yaml:"color"`                   // enable/disable colorized output
}

// Document is a decoded deployment configuration file.
type Document struct {
	Project   Project            `mapstructure:"project" yaml:"project"`
	Networks  map[string]Network `mapstructure:"networks" yaml:"networks"`
	Env       EnvSection         `mapstructure:"env" yaml:"env"`
	ExtraArgs map[string]string  `mapstructure:"extra_args" yaml:"extra_args,omitempty"`
	Logging   LoggingConfig      `mapstructure:"logging" yaml:"logging,omitempty"`

	// Path is the file the document was loaded from; BaseDir its directory.
	Path    string `mapstructure:"-" yaml:"-"`
	BaseDir string `mapstructure:"-" yaml:"-"`
}

// Load reads a TOML or YAML deployment file. The format is chosen by
// extension; anything other than .yaml/.yml is parsed as TOML.
func Load(path string) (*Document, error) {
	clean := filepath.Clean(path)
	info, err := os.Stat(clean)
	if err != nil {
		return nil, &ConfigError{Path: clean, Err: err}
	}
	if !info.Mode().IsRegular() {
		return nil, &ConfigError{Path: clean, Problems: []string{"not a regular file"}}
	}
	// #nosec G304 -- config path is provided intentionally by the operator
	data, err := os.ReadFile(clean)
	if err != nil {
		return nil, &ConfigError{Path: clean, Err: err}
	}

	doc, err := Parse(data, util.TrimAndLower(filepath.Ext(clean)))
	if err != nil {
		var ce *ConfigError
		if errors.As(err, &ce) {
			ce.Path = clean
			return nil, ce
		}
		return nil, &ConfigError{Path: clean, Err: err}
	}

	abs, err := filepath.Abs(clean)
	if err != nil {
		abs = clean
	}
	doc.Path = abs
	doc.BaseDir = filepath.Dir(abs)
	return doc, nil
}

// Parse decodes raw configuration bytes. ext selects the syntax (".toml",
// ".yaml", ".yml"); an empty ext means TOML.
func Parse(data []byte, ext string) (*Document, error) {
	raw := map[string]any{}
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	default:
		if err := toml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse toml: %w", err)
		}
	}
	return decode(raw)
}

func decode(raw map[string]any) (*Document, error) {
	var doc Document
	var md mapstructure.Metadata
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &doc,
		Metadata:         &md,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, &ConfigError{Err: err}
	}
	if len(md.Unused) > 0 {
		common.GetLogger().WithComponent("config").Warn("ignoring unknown configuration keys", "keys", strings.Join(md.Unused, ","))
	}

	for name, n := range doc.Networks {
		n.Name = name
		doc.Networks[name] = n
	}
	if len(doc.Env.Vars) > 0 {
		merged := make(map[string]string, len(doc.Env.Vars)+len(doc.Env.AdditionalVars))
		for k, v := range doc.Env.Vars {
			merged[k] = v
		}
		for k, v := range doc.Env.AdditionalVars {
			merged[k] = v
		}
		doc.Env.AdditionalVars = merged
		doc.Env.Vars = nil
	}
	doc.Project.Path = util.TrimQuotes(doc.Project.Path)
	return &doc, nil
}

// NetworkNames returns the configured network names, sorted.
func (d *Document) NetworkNames() []string {
	return util.SortedKeys(d.Networks)
}
