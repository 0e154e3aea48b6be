package config

import (
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/loykin/contract-deployer/internal/util"
)

// Fingerprint identifies the deployment inputs of a plan: project, script,
// network, unexpanded rpc_url and repo templates, and arguments. Resolved
// secrets never enter the hash, so equal fingerprints can be compared across
// machines. It is recorded in history only; nothing is deduplicated on it.
func (p *Plan) Fingerprint() string {
	var b strings.Builder
	field := func(k, v string) {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(strconv.Quote(v))
		b.WriteByte('\n')
	}

	field("project", p.Project.Name)
	field("script", p.ScriptPath)
	field("setup", p.Project.SetupCommand)
	field("network", p.Network.Name)
	field("chain_id", strconv.FormatInt(p.Network.ChainID, 10))
	field("rpc_url", p.rawRPCURL)
	field("verify", strconv.FormatBool(p.Network.Verify))
	field("repo", p.rawRepo)
	field("ref", p.Project.Ref)
	for _, k := range util.SortedKeys(p.rawExtraArgs) {
		field("extra_arg."+k, p.rawExtraArgs[k])
	}
	field("cli_args", strings.Join(p.CLIArgs, "\x00"))

	sum := blake3.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:16])
}
