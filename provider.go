package whidl

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// HDLProvider resolves a chip's relative name to its source text and to an
// absolute path usable in diagnostics. Implementations are shared
// read-only collaborators with unspecified lifetime >= the simulator that
// consumes them.
type HDLProvider interface {
	GetHDL(relativeName string) (string, error)
	GetPath(relativeName string) string
}

// FSProvider resolves chip names to files under a base directory, appending
// ".hdl" if the name does not already carry an extension.
type FSProvider struct {
	Base string
}

// NewFSProvider returns a provider rooted at base.
func NewFSProvider(base string) *FSProvider {
	return &FSProvider{Base: base}
}

func (f *FSProvider) fileName(relativeName string) string {
	if filepath.Ext(relativeName) == "" {
		return relativeName + ".hdl"
	}
	return relativeName
}

// GetPath returns the path the provider would read relativeName from: Base
// joined with the file name (relative when Base is relative).
func (f *FSProvider) GetPath(relativeName string) string {
	return filepath.Join(f.Base, f.fileName(relativeName))
}

// GetHDL reads relativeName's source text from disk.
func (f *FSProvider) GetHDL(relativeName string) (string, error) {
	path := f.GetPath(relativeName)
	data, err := os.ReadFile(path)
	if err != nil {
		return "", &Error{Kind: KindIO, Path: path, Message: errors.Wrapf(err, "reading %s", path).Error(), cause: err}
	}
	return string(data), nil
}

// ChainProvider tries each of a list of providers in order, returning the
// first successful GetHDL result. This lets a caller shadow the bundled
// builtins.Provider with chips of the same name read from disk.
type ChainProvider struct {
	Providers []HDLProvider
}

// NewChainProvider returns a provider that tries each of providers in
// order.
func NewChainProvider(providers ...HDLProvider) *ChainProvider {
	return &ChainProvider{Providers: providers}
}

// GetHDL returns the first provider's successful result, or the last
// error if every provider failed.
func (c *ChainProvider) GetHDL(relativeName string) (string, error) {
	var lastErr error
	for _, p := range c.Providers {
		text, err := p.GetHDL(relativeName)
		if err == nil {
			return text, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = errors.Errorf("no providers configured")
	}
	return "", lastErr
}

// GetPath returns the first provider's path for relativeName.
func (c *ChainProvider) GetPath(relativeName string) string {
	for _, p := range c.Providers {
		if path := p.GetPath(relativeName); path != "" {
			return path
		}
	}
	return relativeName
}
