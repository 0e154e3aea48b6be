package config

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/loykin/contract-deployer/pkg/env"
)

// Environment variables read for signing and verification.
const (
	EnvKeystoreAccount  = "KEYSTORE_ACCOUNT"
	EnvKeystorePassword = "KEYSTORE_PASSWORD"
	EnvPrivateKey       = "PRIVATE_KEY"
	EnvBroadcastAccount = "BROADCAST_ACCOUNT"
	EnvEtherscanAPIKey  = "ETHERSCAN_API_KEY"
)

// AuthMode is the signing method passed to forge.
type AuthMode string

const (
	AuthKeystore   AuthMode = "keystore"
	AuthPrivateKey AuthMode = "private-key"
)

// Credentials are the signing parameters taken from the resolved environment.
// A complete keystore (account and password) wins over a raw private key.
type Credentials struct {
	Mode       AuthMode
	Account    string
	Password   string
	PrivateKey string
	// Sender is BROADCAST_ACCOUNT in checksum form, if set.
	Sender string
	// Signer is the address derived from PrivateKey; empty for keystores.
	Signer string
}

// Args renders the forge authentication flags.
func (c Credentials) Args() []string {
	var args []string
	switch c.Mode {
	case AuthKeystore:
		args = append(args, "--account", c.Account, "--password", c.Password)
	case AuthPrivateKey:
		args = append(args, "--private-key", c.PrivateKey)
	}
	if c.Sender != "" {
		args = append(args, "--sender", c.Sender)
	}
	return args
}

// Identity is a display-safe description of who signs.
func (c Credentials) Identity() string {
	switch c.Mode {
	case AuthKeystore:
		return "keystore:" + c.Account
	case AuthPrivateKey:
		if c.Signer != "" {
			return "private-key:" + c.Signer
		}
		return "private-key"
	default:
		return "none"
	}
}

// Secrets returns the values that must never be displayed.
func (c Credentials) Secrets() []string {
	var out []string
	if c.Password != "" {
		out = append(out, c.Password)
	}
	if c.PrivateKey != "" {
		out = append(out, c.PrivateKey, strings.TrimPrefix(c.PrivateKey, "0x"))
	}
	return out
}

// ResolveCredentials picks the signing method from e. The returned problems
// are schema-level issues; callers wrap them in a ConfigError.
func ResolveCredentials(e *env.Env) (Credentials, []string) {
	var c Credentials
	var problems []string

	account := strings.TrimSpace(e.Get(EnvKeystoreAccount))
	password := e.Get(EnvKeystorePassword)
	privateKey := strings.TrimSpace(e.Get(EnvPrivateKey))

	switch {
	case account != "" && password != "":
		c.Mode = AuthKeystore
		c.Account = account
		c.Password = password
	case privateKey != "":
		key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKey, "0x"))
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s is not a valid secp256k1 private key", EnvPrivateKey))
			break
		}
		c.Mode = AuthPrivateKey
		c.PrivateKey = privateKey
		c.Signer = crypto.PubkeyToAddress(key.PublicKey).Hex()
	case account != "":
		problems = append(problems, fmt.Sprintf("%s is set but %s is missing", EnvKeystoreAccount, EnvKeystorePassword))
	default:
		problems = append(problems, fmt.Sprintf("no signing credentials: set %s and %s, or %s", EnvKeystoreAccount, EnvKeystorePassword, EnvPrivateKey))
	}

	if sender := strings.TrimSpace(e.Get(EnvBroadcastAccount)); sender != "" {
		if !common.IsHexAddress(sender) {
			problems = append(problems, fmt.Sprintf("%s %q is not a valid address", EnvBroadcastAccount, sender))
		} else {
			c.Sender = common.HexToAddress(sender).Hex()
		}
	}
	return c, problems
}
