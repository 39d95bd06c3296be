package parser

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"strings"

	"git.lost.host/meutraa/bmsplay/internal/game"
	"golang.org/x/text/encoding"
)

// Source is a normalized chart. It is immutable once built.
type Source struct {
	Type game.FileType
	Path string

	// Lines holds the directive lines in file order, or the non-blank lines
	// of a bmson document. It is the input to GetHash.
	Lines []string

	// Document is the parsed bmson document, nil for line dialects.
	Document *Document

	// directives are Lines with #RANDOM blocks resolved.
	directives []string
}

// Directives returns the lines the line dialect parsers read, with
// conditional blocks already resolved.
func (s *Source) Directives() []string {
	return s.directives
}

type Options struct {
	// Charset of the raw content, nil for auto detection.
	Charset encoding.Encoding
	// Seed for #RANDOM resolution. Equal seeds give equal charts.
	Seed uint64
}

// SplitLines splits text on any line terminator.
func SplitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(text, "\n")
}

// FilterDirectives keeps the lines that start with '#'. Blank lines and
// anything else are dropped without error.
func FilterDirectives(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if len(l) == 0 || l[0] != '#' {
			continue
		}
		out = append(out, l)
	}
	return out
}

// Normalize strips raw chart content down to what the parsers need.
func Normalize(content []byte, path string, t game.FileType, opts Options) (*Source, error) {
	src := &Source{Type: t, Path: path}
	switch {
	case t.LineOriented():
		text, err := Decode(content, opts.Charset)
		if nil != err {
			return nil, &FormatError{Path: path, Err: fmt.Errorf("unable to decode chart: %w", err)}
		}
		src.Lines = FilterDirectives(SplitLines(text))
		rnd := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
		src.directives = resolveControlFlow(src.Lines, rnd)
	case t == game.Bmson:
		var doc Document
		if err := json.Unmarshal(content, &doc); nil != err {
			return nil, &FormatError{Path: path, Err: fmt.Errorf("unable to parse bmson: %w", err)}
		}
		src.Document = &doc
		for _, l := range SplitLines(string(content)) {
			if strings.TrimSpace(l) != "" {
				src.Lines = append(src.Lines, strings.TrimRight(l, " \t"))
			}
		}
	default:
		return nil, &FormatError{Path: path, Err: fmt.Errorf("%w: %d", ErrFormat, t)}
	}
	return src, nil
}
