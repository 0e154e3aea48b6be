package orchestrator

import (
	"strconv"

	"github.com/loykin/contract-deployer/pkg/config"
)

// DefaultForgeBin is the deploy tool looked up on PATH.
const DefaultForgeBin = "forge"

// DeployArgs builds the argument list of the deploy invocation.
func DeployArgs(p *config.Plan) []string {
	args := networkArgs(p)
	args = append(args, "--broadcast")
	args = append(args, p.Credentials.Args()...)
	return append(args, p.ExtraArgs()...)
}

// VerifyArgs builds the argument list of the verification invocation. It
// resumes the broadcast just made instead of sending transactions again.
func VerifyArgs(p *config.Plan) []string {
	args := networkArgs(p)
	args = append(args, "--resume", "--verify")
	if p.EtherscanAPIKey != "" {
		args = append(args, "--etherscan-api-key", p.EtherscanAPIKey)
	}
	args = append(args, p.Credentials.Args()...)
	return append(args, p.ExtraArgs()...)
}

func networkArgs(p *config.Plan) []string {
	return []string{
		"script", p.ScriptPath,
		"--chain-id", strconv.FormatInt(p.Network.ChainID, 10),
		"--rpc-url", p.Network.RPCURL,
	}
}
