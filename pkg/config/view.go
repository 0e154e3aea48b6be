package config

import (
	"github.com/loykin/contract-deployer/internal/common"
	"github.com/loykin/contract-deployer/internal/util"
)

// PlanView is the display form of a Plan with every secret masked.
type PlanView struct {
	Project     string            `yaml:"project" json:"project"`
	Network     string            `yaml:"network" json:"network"`
	ChainID     int64             `yaml:"chain_id" json:"chain_id"`
	RPCURL      string            `yaml:"rpc_url" json:"rpc_url"`
	Verify      bool              `yaml:"verify" json:"verify"`
	Script      string            `yaml:"script" json:"script"`
	Setup       string            `yaml:"setup_command,omitempty" json:"setup_command,omitempty"`
	Repo        string            `yaml:"repo,omitempty" json:"repo,omitempty"`
	Ref         string            `yaml:"ref,omitempty" json:"ref,omitempty"`
	Signer      string            `yaml:"signer" json:"signer"`
	Sender      string            `yaml:"sender,omitempty" json:"sender,omitempty"`
	ExtraArgs   []string          `yaml:"extra_args,omitempty" json:"extra_args,omitempty"`
	NetworkVars map[string]string `yaml:"network_vars,omitempty" json:"network_vars,omitempty"`
	Fingerprint string            `yaml:"fingerprint" json:"fingerprint"`
}

// View renders the plan for display. Secret values are replaced using a
// masker seeded with the plan's own secrets.
func (p *Plan) View() PlanView {
	m := common.NewMasker()
	m.AddSecrets(p.Secrets()...)

	args := make([]string, 0, len(p.ExtraArgs()))
	for _, a := range p.ExtraArgs() {
		args = append(args, m.MaskString(a))
	}
	vars := make(map[string]string, len(p.NetworkVars))
	for k, v := range p.NetworkVars {
		if common.IsSensitiveName(k) {
			vars[k] = common.MaskedValue
			continue
		}
		vars[k] = m.MaskString(v)
	}

	return PlanView{
		Project:     p.Project.Name,
		Network:     p.Network.Name,
		ChainID:     p.Network.ChainID,
		RPCURL:      m.MaskString(p.Network.RPCURL),
		Verify:      p.Network.Verify,
		Script:      p.ScriptPath,
		Setup:       m.MaskString(p.Project.SetupCommand),
		Repo:        util.RedactURL(m.MaskString(p.RepoURL)),
		Ref:         p.Project.Ref,
		Signer:      p.Credentials.Identity(),
		Sender:      p.Credentials.Sender,
		ExtraArgs:   args,
		NetworkVars: vars,
		Fingerprint: p.Fingerprint(),
	}
}
