package gitrepo

import (
	"os"
	"sync"
)

// Checkout is a working tree used by one pipeline run. An owned checkout is a
// temporary clone that Release removes; a local checkout is the operator's
// directory and is never touched.
type Checkout struct {
	Dir    string
	Owned  bool
	Commit string

	mu       sync.Mutex
	kept     bool
	released bool
}

// LocalCheckout wraps an existing directory without taking ownership.
func LocalCheckout(dir string) *Checkout {
	return &Checkout{Dir: dir}
}

// Keep makes Release leave the directory on disk.
func (c *Checkout) Keep() {
	c.mu.Lock()
	c.kept = true
	c.mu.Unlock()
}

// Kept reports whether Keep was called on an owned checkout.
func (c *Checkout) Kept() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Owned && c.kept
}

// Release removes an owned, not-kept directory. Only the first call acts.
func (c *Checkout) Release() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return nil
	}
	c.released = true
	if !c.Owned || c.kept {
		return nil
	}
	return os.RemoveAll(c.Dir)
}

// Released reports whether Release has run.
func (c *Checkout) Released() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.released
}
