package config

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/loykin/contract-deployer/internal/util"
)

var (
	urlPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.-]*://[^/\s]+(/\S*)?$`)
	scpPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+@[A-Za-z0-9.-]+:\S+$`)
)

// PlausibleRepoURL reports whether url looks like a clonable remote:
// scheme://host/... , git@host:path, or a file:// URL.
func PlausibleRepoURL(url string) bool {
	url = strings.TrimSpace(url)
	if strings.HasPrefix(url, "file://") && len(url) > len("file://") {
		return true
	}
	return urlPattern.MatchString(url) || scpPattern.MatchString(url)
}

// Validate checks the document schema and returns a *ConfigError listing every
// problem, or nil. Network selection is checked later by BuildPlan.
func Validate(doc *Document) error {
	if doc == nil {
		return &ConfigError{Problems: []string{"empty configuration"}}
	}
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if _, ok := util.TrimEmptyCheck(doc.Project.Name); !ok {
		add("project.name is required")
	}
	if _, ok := util.TrimEmptyCheck(doc.Project.Script); !ok {
		add("project.script is required")
	}
	if repo := strings.TrimSpace(doc.Project.Repo); repo != "" && !strings.Contains(repo, "${") && !PlausibleRepoURL(repo) {
		add("project.repo %q is not a valid repository URL", repo)
	}

	if len(doc.Networks) == 0 {
		add("at least one [networks.<name>] table is required")
	}
	for _, name := range doc.NetworkNames() {
		n := doc.Networks[name]
		if strings.TrimSpace(name) == "" {
			add("network names must not be empty")
			continue
		}
		if n.ChainID <= 0 {
			add("networks.%s.chain_id must be a positive integer", name)
		}
		if strings.TrimSpace(n.RPCURL) == "" {
			add("networks.%s.rpc_url is required", name)
		}
		for k, v := range n.Extra {
			if _, ok := util.ScalarString(v); !ok {
				if _, isMap := v.(map[string]any); !isMap {
					add("networks.%s.%s must be a scalar value", name, k)
				}
			}
		}
	}

	for i, f := range doc.Env.LoadFiles {
		if strings.TrimSpace(f) == "" {
			add("env.load_files[%d] is empty", i)
		}
	}
	for _, k := range util.SortedKeys(doc.ExtraArgs) {
		if strings.TrimLeft(strings.TrimSpace(k), "-") == "" {
			add("extra_args contains an empty flag name")
		}
	}

	if len(problems) > 0 {
		return &ConfigError{Path: doc.Path, Problems: problems}
	}
	return nil
}
