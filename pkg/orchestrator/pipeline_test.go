//go:build !windows

package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loykin/contract-deployer/internal/gitrepo"
	"github.com/loykin/contract-deployer/internal/runner"
	"github.com/loykin/contract-deployer/pkg/config"
)

// fakeForge records its arguments per mode and exits with DEPLOY_EXIT or
// VERIFY_EXIT. A successful deploy writes a broadcast artifact.
const fakeForge = `#!/bin/sh
mode=deploy
for a in "$@"; do
  [ "$a" = "--verify" ] && mode=verify
done
printf '%s\n' "$@" > "$ARGS_DIR/$mode.args"
echo "forge $mode on chain $4"
echo "warning from $mode" >&2
if [ "$mode" = deploy ]; then
  [ "${DEPLOY_EXIT:-0}" = 0 ] || exit "$DEPLOY_EXIT"
  mkdir -p broadcast/DeployToken.s.sol/11155111
  cat > broadcast/DeployToken.s.sol/11155111/run-latest.json <<'JSON'
{"transactions":[{"hash":"0xdead","transactionType":"CREATE","contractName":"Token","contractAddress":"0x5fbdb2315678afecb367f032d93f642f64180aa3"}]}
JSON
  exit 0
fi
exit "${VERIFY_EXIT:-0}"
`

// tempAcquirer hands out owned directories below base, like a real clone.
type tempAcquirer struct {
	base string
	mu   sync.Mutex
	dirs []string
}

func (a *tempAcquirer) Acquire(_ context.Context, req gitrepo.Request) (*gitrepo.Checkout, error) {
	dir, err := os.MkdirTemp(a.base, req.Name+"-*")
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	a.dirs = append(a.dirs, dir)
	a.mu.Unlock()
	return &gitrepo.Checkout{Dir: dir, Owned: true}, nil
}

type pipeline struct {
	plan     *config.Plan
	forge    string
	argsDir  string
	acquirer *tempAcquirer
}

func newPipeline(t *testing.T, deployExit, verifyExit int) *pipeline {
	t.Helper()
	root := t.TempDir()
	argsDir := filepath.Join(root, "args")
	require.NoError(t, os.MkdirAll(argsDir, 0o755))
	forge := filepath.Join(root, "forge")
	require.NoError(t, os.WriteFile(forge, []byte(fakeForge), 0o755))

	cfg := fmt.Sprintf(`
[project]
name = "token"
script = "DeployToken"
network = "sepolia_dev"

[networks.sepolia_dev]
chain_id = 11155111
rpc_url = "https://x/${ALCHEMY_API_KEY}"
verify = true

[env]
load_files = [".env"]

[env.additional_vars]
ARGS_DIR = %q
DEPLOY_EXIT = "%d"
VERIFY_EXIT = "%d"
`, argsDir, deployExit, verifyExit)
	require.NoError(t, os.WriteFile(filepath.Join(root, "deploy.toml"), []byte(cfg), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".env"),
		[]byte("ALCHEMY_API_KEY=abc123\nPRIVATE_KEY="+devPrivateKey+"\nETHERSCAN_API_KEY=etherscan-key-1\n"), 0o600))

	doc, err := config.Load(filepath.Join(root, "deploy.toml"))
	require.NoError(t, err)
	plan, err := config.BuildPlan(doc, config.PlanOptions{ProcessEnv: map[string]string{}})
	require.NoError(t, err)

	clones := filepath.Join(root, "clones")
	require.NoError(t, os.MkdirAll(clones, 0o755))
	return &pipeline{plan: plan, forge: forge, argsDir: argsDir, acquirer: &tempAcquirer{base: clones}}
}

func (p *pipeline) run(t *testing.T, out runner.Sink) (*Run, error) {
	t.Helper()
	r := runner.New()
	r.GracePeriod = time.Second
	o := New(p.acquirer, r, nil, Options{ForgeBin: p.forge, Output: out})
	return o.Run(context.Background(), p.plan)
}

func (p *pipeline) args(t *testing.T, mode string) []string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(p.argsDir, mode+".args"))
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

func TestPipeline_SepoliaDevPassesResolvedRPCURL(t *testing.T) {
	p := newPipeline(t, 0, 0)
	rec := &runner.Recorder{}

	r, err := p.run(t, rec)
	require.NoError(t, err)
	assert.Equal(t, StateDone, r.State)

	deploy := p.args(t, "deploy")
	assert.Equal(t, []string{
		"script", "script/DeployToken.s.sol",
		"--chain-id", "11155111",
		"--rpc-url", "https://x/abc123",
		"--broadcast",
		"--private-key", devPrivateKey,
	}, deploy)

	verify := p.args(t, "verify")
	assert.Contains(t, verify, "--resume")
	assert.Contains(t, verify, "etherscan-key-1")

	assert.Contains(t, rec.Texts(runner.Stdout), "forge deploy on chain 11155111")
	assert.Contains(t, rec.Texts(runner.Stderr), "warning from deploy")

	require.Len(t, r.Contracts, 1)
	assert.Equal(t, "Token", r.Contracts[0].Name)
	assert.Equal(t, "0x5FbDB2315678afecb367f032d93F642f64180aa3", r.Contracts[0].Address)

	for _, dir := range p.acquirer.dirs {
		assert.NoDirExists(t, dir)
	}
}

func TestPipeline_DeployExitOneFailsAndRemovesClone(t *testing.T) {
	p := newPipeline(t, 1, 0)

	r, err := p.run(t, nil)
	var cfe *runner.CommandFailedError
	require.ErrorAs(t, err, &cfe)
	assert.Equal(t, 1, cfe.ExitCode)
	assert.Equal(t, "deploy", cfe.Name)
	assert.Contains(t, cfe.Tail, "warning from deploy")
	assert.Equal(t, StateFailed, r.State)

	require.Len(t, p.acquirer.dirs, 1)
	assert.NoDirExists(t, p.acquirer.dirs[0], "temporary clone must be removed")
	_, statErr := os.Stat(filepath.Join(p.argsDir, "verify.args"))
	assert.True(t, os.IsNotExist(statErr), "verify must not run after a failed deploy")
}

func TestPipeline_VerifyFailureStillSucceeds(t *testing.T) {
	p := newPipeline(t, 0, 3)

	r, err := p.run(t, nil)
	require.NoError(t, err)
	assert.True(t, r.Succeeded())
	require.Len(t, r.Warnings, 1)

	var vfe *VerificationFailedError
	require.ErrorAs(t, r.Warnings[0], &vfe)
	var cfe *runner.CommandFailedError
	require.ErrorAs(t, vfe, &cfe)
	assert.Equal(t, 3, cfe.ExitCode)
}
