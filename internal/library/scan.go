package library

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/remeh/sizedwaitgroup"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"git.lost.host/meutraa/bmsplay/internal/game"
	"git.lost.host/meutraa/bmsplay/internal/parser"
)

// Describe parses chart content into a library entry.
func Describe(content []byte, path string, opts parser.Options, hg *parser.HashGenerator) (Entry, error) {
	t, ok := game.FileTypeFromPath(path)
	if !ok {
		return Entry{}, &parser.FormatError{Path: path, Err: fmt.Errorf("%w: unknown extension", parser.ErrFormat)}
	}
	src, err := parser.Normalize(content, path, t, opts)
	if nil != err {
		return Entry{}, err
	}
	p, err := parser.For(t)
	if nil != err {
		return Entry{}, err
	}
	header, err := p.Header(src)
	if nil != err {
		return Entry{}, err
	}
	res, err := p.Resources(src)
	if nil != err {
		return Entry{}, err
	}
	body, err := p.Body(src, header, res)
	if nil != err {
		return Entry{}, err
	}
	sum, err := hg.GetHash(src.Lines)
	if nil != err {
		return Entry{}, err
	}
	return Entry{
		Hash:      sum,
		Path:      path,
		Type:      t,
		Title:     header.Title,
		Artist:    header.Artist,
		Genre:     header.Genre,
		PlayLevel: header.PlayLevel,
		Notes:     body.NoteCount,
		Duration:  body.Duration,
	}, nil
}

// Scanner indexes every chart below a directory.
type Scanner struct {
	lib     *Library
	log     *zap.Logger
	opts    parser.Options
	hash    *parser.HashGenerator
	workers int
}

func NewScanner(lib *Library, log *zap.Logger, opts parser.Options, hg *parser.HashGenerator, workers int) *Scanner {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Scanner{lib: lib, log: log, opts: opts, hash: hg, workers: workers}
}

// Scan parses charts in parallel and returns how many were indexed. Charts
// that fail to parse are skipped and their errors returned combined.
func (s *Scanner) Scan(ctx context.Context, root string) (int, error) {
	var paths []string
	if err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if nil != err {
			return err
		}
		if err := ctx.Err(); nil != err {
			return err
		}
		if _, ok := game.FileTypeFromPath(p); ok && !d.IsDir() {
			paths = append(paths, p)
		}
		return nil
	}); nil != err {
		return 0, fmt.Errorf("unable to walk %s: %w", root, err)
	}

	var mu sync.Mutex
	var errs error
	indexed := 0
	wg := sizedwaitgroup.New(s.workers)
	for _, p := range paths {
		if err := wg.AddWithContext(ctx); nil != err {
			break
		}
		go func(p string) {
			defer wg.Done()
			e, err := s.describe(p)
			mu.Lock()
			defer mu.Unlock()
			if nil == err {
				err = s.lib.Put(e)
			}
			if nil != err {
				s.log.Warn("unable to index chart", zap.String("path", p), zap.Error(err))
				errs = multierr.Append(errs, err)
				return
			}
			indexed++
			s.log.Debug("indexed chart", zap.String("path", p), zap.String("hash", e.Hash), zap.String("title", e.Title))
		}(p)
	}
	wg.Wait()
	return indexed, multierr.Append(errs, ctx.Err())
}

func (s *Scanner) describe(p string) (Entry, error) {
	content, err := os.ReadFile(p)
	if nil != err {
		return Entry{}, err
	}
	return Describe(content, p, s.opts, s.hash)
}
