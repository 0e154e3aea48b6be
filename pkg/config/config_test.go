package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTOML = `
[project]
name = "token"
script = "DeployToken"
network = "sepolia_dev"
setup_command = "forge install"
repo = "https://github.com/acme/token.git"
path = "'/tmp/deployments'"
ref = "v1.2.0"

[networks.sepolia_dev]
chain_id = 11155111
rpc_url = "https://x/${ALCHEMY_API_KEY}"
verify = true
ALCHEMY_NETWORK = "eth-sepolia"

[networks.mainnet]
chain_id = 1
rpc_url = "https://${ALCHEMY_NETWORK}.g.alchemy.com/v2/${ALCHEMY_API_KEY}"
verify = false
ALCHEMY_NETWORK = "eth-mainnet"

[env]
load_files = [".env", ".env.local"]

[env.vars]
DEPLOY_SALT = "0x01"

[extra_args]
slow = ""
gas-price = "1000000000"

[logging]
level = "debug"
format = "json"
`

const sampleYAML = `
project:
  name: token
  script: DeployToken
  network: sepolia_dev
networks:
  sepolia_dev:
    chain_id: 11155111
    rpc_url: https://x/${ALCHEMY_API_KEY}
    verify: true
    ALCHEMY_NETWORK: eth-sepolia
env:
  load_files: []
  additional_vars:
    DEPLOY_SALT: "0x01"
`

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestLoad_TOML(t *testing.T) {
	path := writeConfig(t, "deploy.toml", sampleTOML)

	doc, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "token", doc.Project.Name)
	assert.Equal(t, "DeployToken", doc.Project.Script)
	assert.Equal(t, "/tmp/deployments", doc.Project.Path)
	assert.Equal(t, "v1.2.0", doc.Project.Ref)
	assert.Equal(t, filepath.Dir(path), doc.BaseDir)
	assert.Equal(t, []string{"mainnet", "sepolia_dev"}, doc.NetworkNames())

	sep := doc.Networks["sepolia_dev"]
	assert.Equal(t, "sepolia_dev", sep.Name)
	assert.Equal(t, int64(11155111), sep.ChainID)
	assert.True(t, sep.Verify)
	assert.Equal(t, "eth-sepolia", sep.Extra["ALCHEMY_NETWORK"])
	_, leaked := sep.Extra["chain_id"]
	assert.False(t, leaked)

	assert.Equal(t, []string{".env", ".env.local"}, doc.Env.LoadFiles)
	assert.Equal(t, map[string]string{"DEPLOY_SALT": "0x01"}, doc.Env.AdditionalVars, "vars is an alias of additional_vars")
	assert.Equal(t, "", doc.ExtraArgs["slow"])
	assert.Equal(t, "json", doc.Logging.Format)
}

func TestLoad_YAMLMatchesTOML(t *testing.T) {
	doc, err := Load(writeConfig(t, "deploy.yaml", sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "token", doc.Project.Name)
	sep := doc.Networks["sepolia_dev"]
	assert.Equal(t, int64(11155111), sep.ChainID)
	assert.Equal(t, "https://x/${ALCHEMY_API_KEY}", sep.RPCURL)
	assert.Equal(t, "eth-sepolia", sep.Extra["ALCHEMY_NETWORK"])
	assert.Equal(t, "0x01", doc.Env.AdditionalVars["DEPLOY_SALT"])
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	var ce *ConfigError
	require.True(t, errors.As(err, &ce))
	assert.True(t, errors.Is(err, os.ErrNotExist))

	_, err = Load(writeConfig(t, "broken.toml", "[project\nname="))
	require.True(t, errors.As(err, &ce))
	assert.Contains(t, ce.Path, "broken.toml")

	_, err = Load(t.TempDir())
	require.True(t, errors.As(err, &ce))
}

func TestLoad_AdditionalVarsWinOverAlias(t *testing.T) {
	doc, err := Parse([]byte(`
[env.vars]
A = "alias"
B = "alias"
[env.additional_vars]
A = "primary"
`), ".toml")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"A": "primary", "B": "alias"}, doc.Env.AdditionalVars)
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	doc, err := Parse([]byte(`
[project]
repo = "not a url"
[networks.broken]
chain_id = 0
[extra_args]
"--" = "x"
[env]
load_files = [""]
`), ".toml")
	require.NoError(t, err)

	err = Validate(doc)
	var ce *ConfigError
	require.True(t, errors.As(err, &ce))

	joined := strings.Join(ce.Problems, "\n")
	for _, want := range []string{
		"project.name is required",
		"project.script is required",
		"project.repo",
		"networks.broken.chain_id",
		"networks.broken.rpc_url is required",
		"env.load_files[0] is empty",
		"extra_args contains an empty flag name",
	} {
		assert.Contains(t, joined, want)
	}
}

func TestValidate_NoNetworks(t *testing.T) {
	doc := &Document{Project: Project{Name: "x", Script: "Deploy"}}
	err := Validate(doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one")
}

func TestPlausibleRepoURL(t *testing.T) {
	tests := map[string]bool{
		"https://github.com/acme/token.git": true,
		"ssh://git@github.com/acme/token":   true,
		"git@github.com:acme/token.git":     true,
		"file:///srv/git/token":             true,
		"github.com/acme/token":             false,
		"https://":                          false,
		"":                                  false,
	}
	for in, want := range tests {
		assert.Equal(t, want, PlausibleRepoURL(in), in)
	}
}

func TestScriptPath(t *testing.T) {
	tests := map[string]string{
		"DeployToken":                   "script/DeployToken.s.sol",
		"script/Deploy.s.sol":           "script/Deploy.s.sol",
		"script/Deploy.s.sol:DeployAll": "script/Deploy.s.sol:DeployAll",
		"Custom.sol":                    "Custom.sol",
	}
	for in, want := range tests {
		assert.Equal(t, want, ScriptPath(in), in)
	}
	assert.Equal(t, "Deploy.s.sol", ScriptFile("script/Deploy.s.sol:DeployAll"))
	assert.Equal(t, "DeployToken.s.sol", ScriptFile(ScriptPath("DeployToken")))
}
