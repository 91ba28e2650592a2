// Package builtins bundles a small standard-cell HDL library — the usual
// Not/And/Or/Xor/Mux/DMux gate family, their 16-bit and N-way variants, and
// a DFF-backed Bit/Register/RAM8 sequence of chips — as real `.hdl` source
// text run through the ordinary scanner/parser/elaborator/simulator
// pipeline, not as hand-written Go closures. Callers chain a
// builtins.Provider behind their own filesystem provider so project chips
// can shadow (or simply build upon) these by name.
package builtins

import (
	"embed"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

//go:embed hdl/*.hdl
var library embed.FS

// Provider serves the bundled standard-cell library, implementing
// whidl.HDLProvider without importing the whidl package (the interface is
// duck-typed, keeping builtins free of a dependency on the core module).
type Provider struct{}

// NewProvider returns a Provider over the embedded standard-cell library.
func NewProvider() *Provider { return &Provider{} }

func (p *Provider) fileName(relativeName string) string {
	if filepath.Ext(relativeName) == "" {
		return relativeName + ".hdl"
	}
	return relativeName
}

// GetPath returns a synthetic "embed://" path for relativeName, used only
// for diagnostics (the library is not stored on any real filesystem).
func (p *Provider) GetPath(relativeName string) string {
	return "embed://builtins/hdl/" + p.fileName(relativeName)
}

// GetHDL returns the bundled source text for relativeName, matched
// case-insensitively against the library's chip names (HDL chip names are
// PascalCase by convention; the filesystem is case-sensitive on some
// platforms, so this avoids surprising shadowing failures).
func (p *Provider) GetHDL(relativeName string) (string, error) {
	want := strings.ToLower(p.fileName(relativeName))
	entries, err := fs.ReadDir(library, "hdl")
	if err != nil {
		return "", errors.Wrap(err, "reading embedded builtin library")
	}
	for _, e := range entries {
		if strings.ToLower(e.Name()) == want {
			data, err := library.ReadFile("hdl/" + e.Name())
			if err != nil {
				return "", errors.Wrapf(err, "reading builtin %s", e.Name())
			}
			return string(data), nil
		}
	}
	return "", errors.Errorf("no builtin chip named %q", relativeName)
}

// Names returns the chip names the library provides, without the .hdl
// extension, for listing/introspection (e.g. a `whidl builtins` CLI
// subcommand).
func Names() []string {
	entries, err := fs.ReadDir(library, "hdl")
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".hdl"))
	}
	return names
}
