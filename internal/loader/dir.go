package loader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Root is one search location of a DirLoader.
type Root struct {
	// Label prefixes locations returned from this root.
	Label string
	FS    fs.FS
}

// DirLoader resolves modules over an ordered list of file system roots.
//
// Module "a.b.c" resolves to "a/b/c.lua" or "a/b/c/init.lua" in the first
// root that has either. Resource names are slash-separated paths.
// Names are normalized to NFC so that composed and decomposed spellings of
// the same name resolve to the same file.
type DirLoader struct {
	roots []Root
}

// NewDirLoader creates a loader over host directories.
func NewDirLoader(dirs ...string) *DirLoader {
	roots := make([]Root, 0, len(dirs))
	for _, dir := range dirs {
		roots = append(roots, Root{Label: dir, FS: os.DirFS(dir)})
	}
	return &DirLoader{roots: roots}
}

// NewFSLoader creates a loader over arbitrary file systems (embed.FS, fstest.MapFS).
func NewFSLoader(roots ...Root) *DirLoader {
	return &DirLoader{roots: roots}
}

// LoadUnit implements Loader.
func (d *DirLoader) LoadUnit(name string) (Source, error) {
	rel, err := modulePath(name)
	if err != nil {
		return Source{}, err
	}

	candidates := []string{rel + ".lua", path.Join(rel, "init.lua")}
	for _, root := range d.roots {
		for _, candidate := range candidates {
			data, err := fs.ReadFile(root.FS, candidate)
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if err != nil {
				return Source{}, fmt.Errorf("load module %q: %w", name, err)
			}
			return Source{
				Name:     name,
				Text:     string(data),
				Location: location(root, candidate),
			}, nil
		}
	}
	return Source{}, moduleNotFound(name)
}

// FindResource implements Loader.
func (d *DirLoader) FindResource(name string) (string, error) {
	locs, err := d.find(name, true)
	if err != nil {
		return "", err
	}
	if len(locs) == 0 {
		return "", resourceNotFound(name)
	}
	return locs[0], nil
}

// FindResources implements Loader.
func (d *DirLoader) FindResources(name string) ([]string, error) {
	return d.find(name, false)
}

func (d *DirLoader) find(name string, first bool) ([]string, error) {
	rel, err := resourcePath(name)
	if err != nil {
		return nil, err
	}

	var locs []string
	for _, root := range d.roots {
		info, err := fs.Stat(root.FS, rel)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("find resource %q: %w", name, err)
		}
		if info.IsDir() {
			continue
		}
		locs = append(locs, location(root, rel))
		if first {
			break
		}
	}
	return locs, nil
}

// modulePath maps "a.b.c" to "a/b/c".
func modulePath(name string) (string, error) {
	n := norm.NFC.String(name)
	if n == "" {
		return "", fmt.Errorf("invalid module name %q", name)
	}
	parts := strings.Split(n, ".")
	for _, p := range parts {
		if p == "" || strings.ContainsAny(p, `/\`) {
			return "", fmt.Errorf("invalid module name %q", name)
		}
	}
	return strings.Join(parts, "/"), nil
}

// resourcePath validates a slash-separated resource name.
func resourcePath(name string) (string, error) {
	n := strings.TrimPrefix(norm.NFC.String(name), "/")
	if !fs.ValidPath(n) || n == "." {
		return "", fmt.Errorf("invalid resource name %q", name)
	}
	return n, nil
}

func location(root Root, rel string) string {
	if root.Label == "" {
		return rel
	}
	return filepath.Join(root.Label, filepath.FromSlash(rel))
}
