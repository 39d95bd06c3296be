package vfs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Dir serves assets from a directory on disk, matching names case
// insensitively like the Windows players charts are authored for.
type Dir struct {
	root string
}

func NewDir(root string) *Dir {
	return &Dir{root: root}
}

func (d *Dir) Root() string {
	return d.root
}

type fileEntry struct {
	name string
	path string
}

func (e *fileEntry) Name() string     { return e.name }
func (e *fileEntry) IsReal() bool     { return true }
func (e *fileEntry) FullPath() string { return e.path }

func (e *fileEntry) ReadAllBytes(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); nil != err {
		return nil, err
	}
	return os.ReadFile(e.path)
}

func (d *Dir) Open(ctx context.Context, name string) (Entry, error) {
	if err := checkName(name); nil != err {
		return nil, err
	}
	for _, c := range Candidates(name) {
		if err := ctx.Err(); nil != err {
			return nil, err
		}
		if p, ok := d.lookup(c); ok {
			return &fileEntry{name: name, path: p}, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", name, ErrNotExist)
}

func (d *Dir) lookup(name string) (string, bool) {
	p := filepath.Join(d.root, filepath.FromSlash(name))
	if info, err := os.Stat(p); nil == err && !info.IsDir() {
		return p, true
	}
	dir, base := filepath.Split(p)
	entries, err := os.ReadDir(dir)
	if nil != err {
		return "", false
	}
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(e.Name(), base) {
			return filepath.Join(dir, e.Name()), true
		}
	}
	return "", false
}

func (d *Dir) Close() error {
	return nil
}
