package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/loykin/contract-deployer/internal/common"
	"github.com/loykin/contract-deployer/internal/util"
	"github.com/loykin/contract-deployer/pkg/env"
)

// PlanOptions carries the command-line overrides applied on top of a Document.
type PlanOptions struct {
	// Network overrides project.network.
	Network string
	// Repo overrides project.repo.
	Repo string
	// ExtraArgs are appended verbatim to the deploy invocation.
	ExtraArgs []string
	// ProcessEnv is the lowest-precedence variable layer.
	ProcessEnv map[string]string
}

// Plan is everything needed to run one network's deployment. It is built
// once and not modified afterwards.
type Plan struct {
	Project Project
	// Network has RPCURL and Extra fully expanded.
	Network Network
	// Env is the resolved environment overlaid with the network variables.
	Env *env.Env
	// NetworkVars are the expanded scalar extras exported to subprocesses.
	NetworkVars map[string]string
	RepoURL     string
	ScriptPath  string
	// ConfigArgs come from [extra_args]; CLIArgs from --args, in order.
	ConfigArgs      []string
	CLIArgs         []string
	Credentials     Credentials
	EtherscanAPIKey string
	// CloneBase is where temporary checkouts are created.
	CloneBase  string
	ConfigPath string

	rawRPCURL    string
	rawRepo      string
	rawExtraArgs map[string]string
}

// ExtraArgs returns config extra args followed by CLI args.
func (p *Plan) ExtraArgs() []string {
	out := make([]string, 0, len(p.ConfigArgs)+len(p.CLIArgs))
	out = append(out, p.ConfigArgs...)
	return append(out, p.CLIArgs...)
}

// Secrets lists every value that must be masked when the plan is displayed.
func (p *Plan) Secrets() []string {
	out := p.Credentials.Secrets()
	if p.EtherscanAPIKey != "" {
		out = append(out, p.EtherscanAPIKey)
	}
	for k, v := range p.Env.Vars() {
		if common.IsSensitiveName(k) {
			out = append(out, v)
		}
	}
	return out
}

// BuildPlan validates doc, selects a network, resolves the environment and
// expands every templated field. The returned error is a *ConfigError,
// *UnknownNetworkError or *env.EnvResolutionError.
func BuildPlan(doc *Document, opts PlanOptions) (*Plan, error) {
	if err := Validate(doc); err != nil {
		return nil, err
	}

	requested := strings.TrimSpace(opts.Network)
	if requested == "" {
		requested = strings.TrimSpace(doc.Project.Network)
	}
	if requested == "" {
		return nil, &ConfigError{Path: doc.Path, Problems: []string{"no network selected: set project.network or pass --network"}}
	}
	network, ok := doc.Networks[requested]
	if !ok {
		return nil, &UnknownNetworkError{Requested: requested, Known: doc.NetworkNames()}
	}

	resolved, err := env.Resolve(env.Spec{
		LoadFiles:      doc.Env.LoadFiles,
		AdditionalVars: doc.Env.AdditionalVars,
		BaseDir:        doc.BaseDir,
	}, opts.ProcessEnv)
	if err != nil {
		return nil, err
	}

	p := &Plan{
		Project:      doc.Project,
		ScriptPath:   ScriptPath(doc.Project.Script),
		CLIArgs:      append([]string(nil), opts.ExtraArgs...),
		ConfigPath:   doc.Path,
		rawRPCURL:    network.RPCURL,
		rawExtraArgs: doc.ExtraArgs,
	}

	if err := p.bindNetwork(network, resolved); err != nil {
		return nil, err
	}

	var problems []string

	p.rawRepo = doc.Project.Repo
	if strings.TrimSpace(opts.Repo) != "" {
		p.rawRepo = opts.Repo
	}
	if repo := strings.TrimSpace(p.rawRepo); repo != "" {
		expanded, err := p.expand("project.repo", repo)
		if err != nil {
			return nil, err
		}
		if !PlausibleRepoURL(expanded) {
			problems = append(problems, fmt.Sprintf("repository URL %q is not a valid repository URL", util.RedactURL(expanded)))
		}
		p.RepoURL = expanded
	}

	for _, k := range util.SortedKeys(doc.ExtraArgs) {
		flag := "--" + strings.TrimLeft(strings.TrimSpace(k), "-")
		value, err := p.expand("extra_args."+k, doc.ExtraArgs[k])
		if err != nil {
			return nil, err
		}
		p.ConfigArgs = append(p.ConfigArgs, flag)
		if value != "" {
			p.ConfigArgs = append(p.ConfigArgs, value)
		}
	}

	creds, credProblems := ResolveCredentials(p.Env)
	problems = append(problems, credProblems...)
	p.Credentials = creds
	p.EtherscanAPIKey = strings.TrimSpace(p.Env.Get(EnvEtherscanAPIKey))

	base := util.TrimQuotes(doc.Project.Path)
	if base != "" {
		expanded, err := p.expand("project.path", base)
		if err != nil {
			return nil, err
		}
		base = expanded
	}
	p.CloneBase = util.TrimWithDefault(base, os.TempDir())

	if len(problems) > 0 {
		return nil, &ConfigError{Path: doc.Path, Problems: problems}
	}
	return p, nil
}

// bindNetwork expands the network's extras against the resolved environment,
// overlays them, and expands rpc_url against the result.
func (p *Plan) bindNetwork(n Network, resolved *env.Env) error {
	field := func(k string) string { return fmt.Sprintf("networks.%s.%s", n.Name, k) }

	expandedAny, err := util.ExpandAny(n.Extra, resolved.Expand)
	if err != nil {
		return expansionError(field("extra"), err)
	}
	extra, _ := expandedAny.(map[string]any)

	vars := map[string]string{}
	for k, v := range extra {
		if s, ok := util.ScalarString(v); ok {
			vars[k] = s
		}
	}
	p.NetworkVars = vars
	p.Env = resolved.Overlay(vars, env.Source{Layer: env.LayerNetwork, Path: n.Name})

	rpc, err := p.expand(field("rpc_url"), n.RPCURL)
	if err != nil {
		return err
	}
	rpc = strings.TrimSpace(rpc)
	if rpc == "" {
		return &ConfigError{Path: p.ConfigPath, Problems: []string{field("rpc_url") + " is empty after expansion"}}
	}

	p.Network = Network{
		Name:    n.Name,
		ChainID: n.ChainID,
		RPCURL:  rpc,
		Verify:  n.Verify,
		Extra:   extra,
	}
	return nil
}

func (p *Plan) expand(field, template string) (string, error) {
	out, err := p.Env.Expand(template)
	if err != nil {
		return "", expansionError(field, err)
	}
	return out, nil
}

func expansionError(field string, err error) error {
	var ere *env.EnvResolutionError
	if errors.As(err, &ere) {
		return err
	}
	return &env.EnvResolutionError{Kind: env.Expansion, Variable: field, Err: err}
}

// BuildPlans builds one plan per requested network, in the given order. An
// empty list selects the default network.
func BuildPlans(doc *Document, networks []string, opts PlanOptions) ([]*Plan, error) {
	if len(networks) == 0 {
		p, err := BuildPlan(doc, opts)
		if err != nil {
			return nil, err
		}
		return []*Plan{p}, nil
	}

	seen := map[string]bool{}
	plans := make([]*Plan, 0, len(networks))
	for _, n := range networks {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		o := opts
		o.Network = n
		p, err := BuildPlan(doc, o)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, nil
}
