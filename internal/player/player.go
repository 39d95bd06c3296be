// Package player drives a loaded chart: once per tick it applies finished
// chart operations, fires the events that came due and advances every
// playable resource.
package player

import (
	"context"
	"fmt"
	"path"
	"sort"
	"time"

	"go.uber.org/zap"

	"git.lost.host/meutraa/bmsplay/internal/chart"
	"git.lost.host/meutraa/bmsplay/internal/game"
	"git.lost.host/meutraa/bmsplay/internal/session"
)

type Command uint8

const (
	CommandPause Command = iota + 1
	CommandReloadResources
	CommandReload
	CommandQuit
)

type Options struct {
	// Delay before the first event of a freshly loaded chart.
	Delay time.Duration
	// FramePeriod is the tick length of Run.
	FramePeriod time.Duration
	// Hold keeps Run going after the chart finished, waiting for a reload.
	Hold bool
}

const (
	stripRow     = 6
	noticeRow    = 8
	noticeFrames = 120
)

// litFrames is how long a lane stays lit after an event.
const litFrames = 40

type Player struct {
	m      *chart.Manager
	s      *session.Session
	log    *zap.Logger
	screen *Screen
	opts   Options

	chart  *game.Chart
	pos    time.Duration
	next   int
	paused bool
	lanes  []int
	lit    map[int]game.EventKind
	litFor map[int]int

	bpm    float64
	bga    string
	fired  int
	ended  int
	failed int
}

// New wires a player to the manager and registry of a session. screen may be
// nil for headless playback.
func New(m *chart.Manager, s *session.Session, screen *Screen, opts Options) *Player {
	p := &Player{
		m:      m,
		s:      s,
		log:    s.Log.Named("player"),
		screen: screen,
		opts:   opts,
		lit:    map[int]game.EventKind{},
		litFor: map[int]int{},
	}
	m.OnLoaded(p.start)
	m.OnReloaded(p.reloaded)
	s.Registry.OnEnd(func(game.ResourceKey) { p.ended++ })
	return p
}

func (p *Player) Position() time.Duration { return p.pos }
func (p *Player) Paused() bool            { return p.paused }
func (p *Player) Fired() int              { return p.fired }
func (p *Player) Ended() int              { return p.ended }

func (p *Player) start(c *game.Chart) {
	p.chart = c
	p.pos = -p.opts.Delay
	p.next = 0
	p.bpm = c.Header.BPM
	p.bga = ""
	p.fired, p.ended, p.failed = 0, 0, 0
	p.indexLanes()
	if nil != p.screen {
		p.screen.Notice(noticeRow, "loaded "+path.Base(c.Path), noticeFrames)
	}
}

// reloaded keeps the playback position. Events at or before it are not
// fired again.
func (p *Player) reloaded(c *game.Chart, op chart.ReloadOperation) {
	p.chart = c
	if op&(chart.Header|chart.Body) != 0 {
		p.next = sort.Search(len(c.Events), func(i int) bool {
			return c.Events[i].Time > p.pos
		})
		p.indexLanes()
	}
	if nil != p.screen {
		p.screen.Notice(noticeRow, "reloaded "+op.String(), noticeFrames)
	}
}

func (p *Player) indexLanes() {
	seen := map[int]bool{}
	p.lanes = p.lanes[:0]
	for _, ev := range p.chart.Events {
		if ev.Lane != 0 && !seen[ev.Lane] {
			seen[ev.Lane] = true
			p.lanes = append(p.lanes, ev.Lane)
		}
	}
	sort.Ints(p.lanes)
}

// Handle applies a command and reports whether playback should go on.
func (p *Player) Handle(cmd Command) bool {
	switch cmd {
	case CommandPause:
		p.TogglePause()
	case CommandReloadResources:
		p.m.ReloadBMS(chart.Resources, false)
	case CommandReload:
		p.m.ReloadBMS(chart.Full, false)
	case CommandQuit:
		return false
	}
	return true
}

func (p *Player) TogglePause() {
	var err error
	if p.paused {
		err = p.s.Registry.Resume()
	} else {
		err = p.s.Registry.Pause()
	}
	if nil != err {
		p.log.Warn("unable to toggle pause", zap.Error(err))
	}
	p.paused = !p.paused
}

// Tick advances playback by dt and reports whether there is more to play.
func (p *Player) Tick(dt time.Duration) bool {
	p.s.Queue.Drain()
	if nil == p.chart {
		p.render()
		return true
	}

	if !p.paused {
		p.pos += dt
		var due []game.Event
		due, p.next = p.chart.Due(p.next, p.pos)
		for _, ev := range due {
			p.fire(ev)
		}
		// paused streams would report completion, they are left alone
		if err := p.s.Registry.Update(dt); nil != err {
			p.log.Warn("unable to update resources", zap.Error(err))
		}
	}
	p.render()
	return !p.finished()
}

func (p *Player) fire(ev game.Event) {
	p.fired++
	switch {
	case ev.Kind == game.EventBPM:
		p.bpm = ev.Value
	case ev.Kind == game.EventBGA:
		if r, ok := p.chart.Resources.Lookup(game.ResourceKey{Kind: game.ResourceImage, Index: ev.Resource}); ok {
			p.bga = r.Path
		}
	}
	if ev.Lane != 0 {
		p.lit[ev.Lane] = ev.Kind
		p.litFor[ev.Lane] = litFrames
	}
	if err := p.s.Registry.Play(ev); nil != err {
		p.failed++
		p.log.Warn("unable to play event",
			zap.Stringer("kind", ev.Kind),
			zap.Int("resource", ev.Resource),
			zap.Duration("time", ev.Time),
			zap.Error(err),
		)
	}
}

func (p *Player) finished() bool {
	if p.opts.Hold || p.paused {
		return false
	}
	return p.next >= len(p.chart.Events) && p.pos >= p.chart.Duration && p.s.Registry.Playing() == 0
}

func (p *Player) render() {
	if nil == p.screen {
		return
	}
	r := p.screen
	if nil == p.chart {
		r.Line(1, "loading...")
		if err := r.Flush(); nil != err {
			p.log.Debug("unable to draw", zap.Error(err))
		}
		return
	}

	c := p.chart
	state := "playing"
	if p.paused {
		state = "paused"
	}
	r.Line(1, fmt.Sprintf("%s - %s", c.Header.Title, c.Header.Artist))
	r.Line(2, fmt.Sprintf("%8s / %-8s  %6.2f bpm  %s",
		p.pos.Truncate(10*time.Millisecond), c.Duration.Truncate(10*time.Millisecond), p.bpm, state))
	r.Line(3, fmt.Sprintf("events %d/%d  notes %d  sounding %d  ended %d  failed %d",
		p.next, len(c.Events), c.NoteCount, p.s.Registry.Playing(), p.ended, p.failed))
	r.Line(4, "bga "+p.bga)
	cells := make([]Cell, len(p.lanes))
	for i, lane := range p.lanes {
		if p.litFor[lane] > 0 {
			cells[i] = Cell{Kind: p.lit[lane], Lit: true}
			p.litFor[lane]--
		}
	}
	r.Strip(stripRow, cells)
	if err := r.Flush(); nil != err {
		p.log.Debug("unable to draw", zap.Error(err))
	}
}

// Run ticks every frame period until the chart finished, ctx is done or a
// quit command arrives.
func (p *Player) Run(ctx context.Context, commands <-chan Command) error {
	last := time.Now()
	for {
		now := time.Now()
		deadline := now.Add(p.opts.FramePeriod)

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		for i := len(commands); i > 0; i-- {
			if !p.Handle(<-commands) {
				return nil
			}
		}

		if !p.Tick(now.Sub(last)) {
			return nil
		}
		last = now
		time.Sleep(time.Until(deadline))
	}
}
