package player

import (
	"fmt"
	"image/color"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"git.lost.host/meutraa/bmsplay/internal/game"
)

// Screen buffers cursor addressed writes and flushes them once per frame.
type Screen struct {
	out          io.Writer
	buffer       strings.Builder
	restoreState *term.State
	theme        Theme
	notices      map[uint16]*notice
}

// notice is a line of text shown for a number of frames.
type notice struct {
	text   string
	frames int
}

// Cell is one lane of the strip. Unlit cells draw idle.
type Cell struct {
	Kind game.EventKind
	Lit  bool
}

func NewScreen(out io.Writer) *Screen {
	return &Screen{out: out, theme: &DefaultTheme{}, notices: map[uint16]*notice{}}
}

// Init switches a terminal to raw mode on the alternate buffer. It does
// nothing else for writers that are not terminals.
func (s *Screen) Init() error {
	if f, ok := s.out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		state, err := term.MakeRaw(int(f.Fd()))
		if nil != err {
			return err
		}
		s.restoreState = state
	}
	s.buffer.WriteString("\033[?1049h\033[?25l\033[J")
	return s.Flush()
}

func (s *Screen) Deinit() error {
	s.buffer.WriteString("\033[?1049l\033[?25h")
	if err := s.Flush(); nil != err {
		return err
	}
	if nil == s.restoreState {
		return nil
	}
	return term.Restore(int(s.out.(*os.File).Fd()), s.restoreState)
}

func (s *Screen) moveTo(row, col uint16) {
	fmt.Fprintf(&s.buffer, "\033[%d;%dH", row, col)
}

// Line replaces a whole row with text.
func (s *Screen) Line(row uint16, text string) {
	s.moveTo(row, 1)
	s.buffer.WriteString(text)
	s.buffer.WriteString("\033[K")
}

// Notice shows text on row for the given number of frames. A newer notice on
// the same row replaces the older one.
func (s *Screen) Notice(row uint16, text string, frames int) {
	s.notices[row] = &notice{text: text, frames: frames}
}

// Strip draws one cell every other column of row, lit cells in the color of
// their event kind.
func (s *Screen) Strip(row uint16, cells []Cell) {
	s.moveTo(row, 1)
	s.buffer.WriteString("\033[K")
	for _, c := range cells {
		s.buffer.WriteByte(' ')
		if !c.Lit {
			s.buffer.WriteString(idleSym)
			continue
		}
		s.colored(s.theme.Color(c.Kind), s.theme.Symbol(c.Kind))
	}
}

func (s *Screen) colored(c color.RGBA, text string) {
	fmt.Fprintf(&s.buffer, "\033[38;2;%d;%d;%dm%s\033[0m", c.R, c.G, c.B, text)
}

// Flush draws live notices, clears expired ones and writes the frame.
func (s *Screen) Flush() error {
	for row, n := range s.notices {
		if n.frames <= 0 {
			s.Line(row, "")
			delete(s.notices, row)
			continue
		}
		s.Line(row, n.text)
		n.frames--
	}
	_, err := io.WriteString(s.out, s.buffer.String())
	s.buffer.Reset()
	return err
}
