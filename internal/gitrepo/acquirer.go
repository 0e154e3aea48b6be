package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"

	"github.com/loykin/contract-deployer/internal/common"
	"github.com/loykin/contract-deployer/internal/util"
)

// AcquisitionError wraps every clone failure. URL has credentials redacted.
type AcquisitionError struct {
	URL string
	Err error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("acquire repository %s: %v", e.URL, e.Err)
}

func (e *AcquisitionError) Unwrap() error { return e.Err }

// Request describes the source tree one run needs.
type Request struct {
	// URL is the remote to clone; empty means use the local working directory.
	URL string
	// Ref optionally selects a branch, tag or commit after cloning.
	Ref string
	// Name prefixes the temporary directory.
	Name string
	// BaseDir is where the temporary directory is created; "" means os.TempDir().
	BaseDir string
	// Vars supplies clone credentials. Values are never logged.
	Vars Lookup
}

// Acquirer produces checkouts. Clones are never retried.
type Acquirer struct {
	// WorkDir is returned, unowned, when Request.URL is empty. Defaults to the
	// process working directory.
	WorkDir string
	// Progress receives git's progress messages when set.
	Progress io.Writer
	logger   *common.Logger
}

// NewAcquirer returns an Acquirer reporting clone progress to progress.
func NewAcquirer(progress io.Writer) *Acquirer {
	return &Acquirer{Progress: progress, logger: common.GetLogger().WithComponent("gitrepo")}
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Acquire clones req.URL into a fresh temporary directory owned by the
// returned Checkout. On failure the directory is removed before the
// *AcquisitionError is returned.
func (a *Acquirer) Acquire(ctx context.Context, req Request) (*Checkout, error) {
	logger := a.log()
	url := strings.TrimSpace(req.URL)
	if url == "" {
		dir := a.WorkDir
		if dir == "" {
			wd, err := os.Getwd()
			if err != nil {
				return nil, &AcquisitionError{URL: "(working directory)", Err: err}
			}
			dir = wd
		}
		logger.Debug("no repository configured, using working directory", "dir", dir)
		return LocalCheckout(dir), nil
	}

	redacted := util.RedactURL(url)
	fail := func(dir string, err error) (*Checkout, error) {
		if dir != "" {
			if rmErr := os.RemoveAll(dir); rmErr != nil {
				logger.Warn("failed to remove partial clone", "dir", dir, "error", rmErr)
			}
		}
		return nil, &AcquisitionError{URL: redacted, Err: err}
	}

	auth, err := authFor(url, req.Vars)
	if err != nil {
		return fail("", err)
	}

	base := util.TrimWithDefault(req.BaseDir, os.TempDir())
	if err := os.MkdirAll(base, 0o755); err != nil {
		return fail("", fmt.Errorf("create clone base %s: %w", base, err))
	}
	prefix := unsafeName.ReplaceAllString(util.TrimWithDefault(req.Name, "checkout"), "-")
	dir, err := os.MkdirTemp(base, prefix+"-*")
	if err != nil {
		return fail("", fmt.Errorf("create temp dir: %w", err))
	}

	logger.Info("cloning repository", "url", redacted, "dir", dir, "ref", req.Ref)
	repo, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:               url,
		Auth:              auth,
		Progress:          a.Progress,
		RecurseSubmodules: git.DefaultSubmoduleRecursionDepth,
	})
	if err != nil {
		if errors.Is(err, transport.ErrAuthenticationRequired) || errors.Is(err, transport.ErrAuthorizationFailed) {
			err = fmt.Errorf("%w (check %s or SSH key settings)", err, EnvToken)
		}
		return fail(dir, err)
	}

	if ref := strings.TrimSpace(req.Ref); ref != "" {
		if err := checkoutRef(ctx, repo, ref, auth); err != nil {
			return fail(dir, err)
		}
	}

	co := &Checkout{Dir: dir, Owned: true}
	if head, err := repo.Head(); err == nil {
		co.Commit = head.Hash().String()
	}
	logger.Info("repository ready", "dir", dir, "commit", co.Commit)
	return co, nil
}

// checkoutRef moves the worktree to ref (tag, local or remote branch, or
// commit) and brings submodules in line with it.
func checkoutRef(ctx context.Context, repo *git.Repository, ref string, auth transport.AuthMethod) error {
	var hash *plumbing.Hash
	var err error
	for _, rev := range []string{ref, "origin/" + ref} {
		hash, err = repo.ResolveRevision(plumbing.Revision(rev))
		if err == nil {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("resolve ref %q: %w", ref, err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return err
	}
	if err := wt.Checkout(&git.CheckoutOptions{Hash: *hash, Force: true}); err != nil {
		return fmt.Errorf("checkout %q: %w", ref, err)
	}

	subs, err := wt.Submodules()
	if err != nil {
		return fmt.Errorf("list submodules: %w", err)
	}
	if len(subs) == 0 {
		return nil
	}
	return subs.UpdateContext(ctx, &git.SubmoduleUpdateOptions{
		Init:              true,
		Auth:              auth,
		RecurseSubmodules: git.DefaultSubmoduleRecursionDepth,
	})
}

func (a *Acquirer) log() *common.Logger {
	if a.logger == nil {
		return common.GetLogger().WithComponent("gitrepo")
	}
	return a.logger
}
