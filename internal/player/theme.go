package player

import (
	"image/color"

	"git.lost.host/meutraa/bmsplay/internal/game"
)

// Theme decides how fired events look on the lane strip.
type Theme interface {
	Symbol(kind game.EventKind) string
	Color(kind game.EventKind) color.RGBA
}

type DefaultTheme struct{}

const (
	noteSym = "⬤"
	longSym = "█"
	mineSym = "⨯"
	idleSym = "·"
)

var kindColors = map[game.EventKind]color.RGBA{
	game.EventNote:      {236, 30, 0, 255},    // red
	game.EventLongStart: {0, 118, 236, 255},   // blue
	game.EventLongEnd:   {0, 118, 236, 255},   // blue
	game.EventInvisible: {106, 106, 106, 255}, // grey
	game.EventMine:      {236, 195, 0, 255},   // yellow
	game.EventBGM:       {0, 236, 128, 255},   // green
}

var white = color.RGBA{255, 255, 255, 255}

func (t *DefaultTheme) Symbol(kind game.EventKind) string {
	switch kind {
	case game.EventLongStart, game.EventLongEnd:
		return longSym
	case game.EventMine:
		return mineSym
	}
	return noteSym
}

func (t *DefaultTheme) Color(kind game.EventKind) color.RGBA {
	if c, ok := kindColors[kind]; ok {
		return c
	}
	return white
}
