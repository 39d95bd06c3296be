// Package vfs resolves chart-relative asset names to readable entries.
package vfs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"
)

var ErrNotExist = fmt.Errorf("asset %w", fs.ErrNotExist)

// ErrOutsideRoot is returned for names that climb out of the chart
// directory. It counts as a missing asset.
var ErrOutsideRoot = fmt.Errorf("asset outside the chart directory: %w", fs.ErrNotExist)

// Entry is one resolved asset.
type Entry interface {
	Name() string
	// IsReal reports whether FullPath can be opened directly on the local
	// filesystem, letting decoders stream instead of buffering.
	IsReal() bool
	FullPath() string
	ReadAllBytes(ctx context.Context) ([]byte, error)
}

// FileSystem resolves names declared by a chart.
type FileSystem interface {
	Open(ctx context.Context, name string) (Entry, error)
	Close() error
}

// Alternatives are tried in order when a declared file is missing. Charts
// often declare .wav while shipping .ogg.
var Alternatives = map[string][]string{
	".wav":  {".ogg", ".mp3", ".flac"},
	".ogg":  {".wav", ".mp3", ".flac"},
	".mp3":  {".wav", ".ogg", ".flac"},
	".flac": {".wav", ".ogg", ".mp3"},
	".bmp":  {".png", ".jpg", ".jpeg"},
	".png":  {".bmp", ".jpg", ".jpeg"},
	".jpg":  {".png", ".bmp", ".jpeg"},
	".jpeg": {".png", ".bmp", ".jpg"},
}

func cleanName(name string) string {
	return path.Clean(strings.ReplaceAll(name, "\\", "/"))
}

// checkName rejects absolute names and names with .. leading out of the
// root.
func checkName(name string) error {
	if !fs.ValidPath(cleanName(name)) {
		return fmt.Errorf("%s: %w", name, ErrOutsideRoot)
	}
	return nil
}

// Candidates lists the names to try for a declared asset, the declared name
// first. Backslashes are treated as separators.
func Candidates(name string) []string {
	name = cleanName(name)
	ext := path.Ext(name)
	out := []string{name}
	base := strings.TrimSuffix(name, ext)
	for _, alt := range Alternatives[strings.ToLower(ext)] {
		out = append(out, base+alt)
	}
	return out
}

// IsNotExist reports whether err means the asset is missing.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
