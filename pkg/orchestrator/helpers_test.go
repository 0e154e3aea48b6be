package orchestrator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/loykin/contract-deployer/pkg/config"
)

const devPrivateKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

const unitTOML = `
[project]
name = "token"
script = "DeployToken"
network = "anvil"
setup_command = "forge install"

[networks.anvil]
chain_id = 31337
rpc_url = "http://127.0.0.1:8545"
verify = true

[networks.local]
chain_id = 1337
rpc_url = "http://127.0.0.1:9545"
verify = false

[extra_args]
slow = ""
`

// unitPlan builds a plan from unitTOML for the given network.
func unitPlan(t *testing.T, network string) *config.Plan {
	t.Helper()
	doc, err := config.Parse([]byte(unitTOML), ".toml")
	require.NoError(t, err)
	plan, err := config.BuildPlan(doc, config.PlanOptions{
		Network:    network,
		ProcessEnv: map[string]string{"PRIVATE_KEY": devPrivateKey, "ETHERSCAN_API_KEY": "etherscan-key-1"},
	})
	require.NoError(t, err)
	return plan
}

// ownedDir creates a directory that an owned checkout may remove.
func ownedDir(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "checkout")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	return dir
}
