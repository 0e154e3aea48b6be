package gitrepo

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	gitssh "github.com/go-git/go-git/v5/plumbing/transport/ssh"
	"golang.org/x/crypto/ssh"
)

// Environment variables consulted for clone credentials.
const (
	EnvToken              = "GIT_TOKEN"
	EnvUsername           = "GIT_USERNAME"
	EnvSSHKey             = "GIT_SSH_KEY"
	EnvSSHKeyPath         = "GIT_SSH_KEY_PATH"
	EnvSSHKeyPassphrase   = "GIT_SSH_KEY_PASSPHRASE"
	EnvSSHInsecureHostKey = "GIT_SSH_INSECURE_IGNORE_HOST_KEY"

	defaultTokenUser = "x-access-token"
)

var scpLike = regexp.MustCompile(`^(?:([A-Za-z0-9._-]+)@)?[A-Za-z0-9.-]+:[^/]`)

// Lookup resolves a credential variable.
type Lookup func(name string) (string, bool)

// IsSSH reports whether url uses the SSH transport.
func IsSSH(url string) bool {
	if strings.HasPrefix(url, "ssh://") || strings.HasPrefix(url, "git+ssh://") {
		return true
	}
	return !strings.Contains(url, "://") && scpLike.MatchString(url)
}

func sshUser(url string) string {
	if m := scpLike.FindStringSubmatch(url); m != nil && m[1] != "" {
		return m[1]
	}
	if ep, err := transport.NewEndpoint(url); err == nil && ep.User != "" {
		return ep.User
	}
	return "git"
}

// authFor picks clone credentials from vars. A nil method with a nil error
// means anonymous access (or, for SSH, go-git's default agent lookup).
func authFor(url string, vars Lookup) (transport.AuthMethod, error) {
	get := func(k string) string {
		if vars == nil {
			return ""
		}
		v, _ := vars(k)
		return strings.TrimSpace(v)
	}

	if IsSSH(url) {
		user := sshUser(url)
		passphrase := get(EnvSSHKeyPassphrase)
		var keys *gitssh.PublicKeys

		switch {
		case get(EnvSSHKey) != "":
			pem := []byte(strings.ReplaceAll(get(EnvSSHKey), `\n`, "\n"))
			var signer ssh.Signer
			var err error
			if passphrase != "" {
				signer, err = ssh.ParsePrivateKeyWithPassphrase(pem, []byte(passphrase))
			} else {
				signer, err = ssh.ParsePrivateKey(pem)
			}
			if err != nil {
				return nil, fmt.Errorf("parse %s: %w", EnvSSHKey, err)
			}
			keys = &gitssh.PublicKeys{User: user, Signer: signer}
		case get(EnvSSHKeyPath) != "":
			k, err := gitssh.NewPublicKeysFromFile(user, get(EnvSSHKeyPath), passphrase)
			if err != nil {
				return nil, fmt.Errorf("load %s: %w", EnvSSHKeyPath, err)
			}
			keys = k
		default:
			return nil, nil
		}

		switch strings.ToLower(get(EnvSSHInsecureHostKey)) {
		case "1", "true", "yes":
			keys.HostKeyCallback = ssh.InsecureIgnoreHostKey()
		}
		return keys, nil
	}

	if token := get(EnvToken); token != "" && (strings.HasPrefix(url, "https://") || strings.HasPrefix(url, "http://")) {
		user := get(EnvUsername)
		if user == "" {
			user = defaultTokenUser
		}
		return &githttp.BasicAuth{Username: user, Password: token}, nil
	}
	return nil, nil
}
