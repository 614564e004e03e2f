// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/devblok/tilesweep/utility/kar"
	"github.com/gobuffalo/packr"
	"github.com/pkg/errors"
	"golang.org/x/exp/mmap"
)

//go:generate glslc ../assets/shaders/quad.vert -o ../assets/shaders/vertex.spv
//go:generate glslc ../assets/shaders/quad.frag -o ../assets/shaders/fragment.spv

// OpenAssets opens the asset source at path. Paths ending in .kar
// are opened as memory mapped archives, anything else is treated as
// a directory. An empty path falls back to the assets bundled with
// the binary.
func OpenAssets(path string) (Assets, error) {
	switch {
	case path == "":
		return BundledAssets(), nil
	case strings.HasSuffix(path, ".kar"):
		return OpenArchiveAssets(path)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(err, "core.OpenAssets()")
	}
	if !info.IsDir() {
		return nil, errors.Errorf("core.OpenAssets(): %s is neither a directory nor a kar archive", path)
	}
	return DirAssets(path), nil
}

// DirAssets reads assets from a directory on disk.
type DirAssets string

// ReadFile implements Assets
func (d DirAssets) ReadFile(name string) ([]byte, error) {
	return ioutil.ReadFile(filepath.Join(string(d), filepath.FromSlash(name)))
}

// Close implements Assets
func (d DirAssets) Close() error {
	return nil
}

// OpenArchiveAssets memory maps a kar archive and serves assets from it.
func OpenArchiveAssets(path string) (*ArchiveAssets, error) {
	r, err := mmap.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "mmap.Open()")
	}
	archive, err := kar.Open(r)
	if err != nil {
		r.Close()
		return nil, errors.Wrapf(err, "kar.Open(%s)", path)
	}
	return &ArchiveAssets{
		mapped:  r,
		archive: archive,
	}, nil
}

// ArchiveAssets serves assets out of a memory mapped kar archive.
type ArchiveAssets struct {
	mapped  *mmap.ReaderAt
	archive *kar.Archive
}

// ReadFile implements Assets
func (a *ArchiveAssets) ReadFile(name string) ([]byte, error) {
	return a.archive.ReadAll(name)
}

// Names lists the archived files.
func (a *ArchiveAssets) Names() []string {
	return a.archive.Names()
}

// Close unmaps the archive.
func (a *ArchiveAssets) Close() error {
	return a.mapped.Close()
}

// BundledAssets returns the assets that were packed into the
// binary with packr, or read from the source tree during development.
func BundledAssets() BoxAssets {
	return BoxAssets{box: packr.NewBox("../assets")}
}

// BoxAssets serves assets from a packr box.
type BoxAssets struct {
	box packr.Box
}

// NewBoxAssets wraps an existing box.
func NewBoxAssets(box packr.Box) BoxAssets {
	return BoxAssets{box: box}
}

// ReadFile implements Assets
func (b BoxAssets) ReadFile(name string) ([]byte, error) {
	if !b.box.Has(name) {
		return nil, errors.Errorf("asset %s: %s", name, os.ErrNotExist)
	}
	return b.box.Find(name)
}

// Close implements Assets
func (b BoxAssets) Close() error {
	return nil
}
