package parser

import (
	"errors"
	"fmt"
	"time"

	"git.lost.host/meutraa/bmsplay/internal/game"
)

var ErrFormat = errors.New("unsupported chart format")

// FormatError is returned when a chart cannot be normalized or its document
// cannot be parsed.
type FormatError struct {
	Path string
	Err  error
}

func (e *FormatError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("chart format: %v", e.Err)
	}
	return fmt.Sprintf("chart format %s: %v", e.Path, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

func (e *FormatError) Is(target error) bool { return target == ErrFormat }

// Body is the derived timeline of a chart.
type Body struct {
	Events    []game.Event
	Measures  []game.Measure
	NoteCount int64
	LongCount int64
	MineCount int64
	Duration  time.Duration
}

// Parser derives the sections of a chart from a normalized source. Each
// section is derived independently so reloads can refresh only what they need.
type Parser interface {
	Header(src *Source) (game.Header, error)
	Resources(src *Source) (game.ResourceTable, error)
	Body(src *Source, header game.Header, res game.ResourceTable) (Body, error)
}

// For returns the parser for a format tag.
func For(t game.FileType) (Parser, error) {
	switch {
	case t.LineOriented():
		return &DefaultParser{}, nil
	case t == game.Bmson:
		return &BmsonParser{}, nil
	}
	return nil, &FormatError{Err: fmt.Errorf("%w: %d", ErrFormat, t)}
}
