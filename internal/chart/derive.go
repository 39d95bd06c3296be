package chart

import (
	"git.lost.host/meutraa/bmsplay/internal/game"
	"git.lost.host/meutraa/bmsplay/internal/parser"
)

type result struct {
	chart *game.Chart
	// clear disposes every resource before the registry is synced again.
	clear bool
	// timeline is set when the header or body changed.
	timeline bool
}

// derive builds the next chart model for a job. It only reads the job's
// source and base chart, so it may run on any goroutine.
func derive(j *job) (result, error) {
	p, err := parser.For(j.src.Type)
	if nil != err {
		return result{}, err
	}

	header, body := j.op.Has(Header), j.op.Has(Body)
	res, resHeader := j.op.Has(Resources), j.op.Has(ResourceHeader)

	r := result{timeline: header || body}
	var next *game.Chart
	if j.fresh || nil == j.base {
		next = &game.Chart{}
		r.clear = j.fresh
	} else {
		next = j.base.Clone()
	}
	next.Type, next.Path = j.src.Type, j.src.Path

	switch {
	case r.timeline:
		// A body reparse that reloads resources without their header starts
		// from nothing, so no slot is rebuilt against a stale table.
		if res && !resHeader && !r.clear {
			next = &game.Chart{Type: j.src.Type, Path: j.src.Path}
			r.clear = true
		}
		if err := reloadTimeline(p, j.src, next, header, body, resHeader); nil != err {
			return result{}, err
		}
	case res:
		next.Invalidate(game.SectionResourceHeader | game.SectionResources)
	case resHeader:
		if err := deriveResources(p, j.src, next); nil != err {
			return result{}, err
		}
		next.Valid &^= game.SectionResources
	}

	if res {
		if !next.Has(game.SectionResourceHeader) {
			if err := deriveResources(p, j.src, next); nil != err {
				return result{}, err
			}
		}
		next.Valid |= game.SectionResources
	}
	r.chart = next
	return r, nil
}

// reloadTimeline derives the requested sections. The body reads the header
// and the resource header, which are derived first when not valid.
func reloadTimeline(p parser.Parser, src *parser.Source, c *game.Chart, header, body, resHeader bool) error {
	if header || (body && !c.Has(game.SectionHeader)) {
		h, err := p.Header(src)
		if nil != err {
			return err
		}
		c.Header = h
		c.Valid |= game.SectionHeader
	}
	if resHeader || (body && !c.Has(game.SectionResourceHeader)) {
		if err := deriveResources(p, src, c); nil != err {
			return err
		}
	}
	if body {
		b, err := p.Body(src, c.Header, c.Resources)
		if nil != err {
			return err
		}
		c.Events = b.Events
		c.Measures = b.Measures
		c.NoteCount = b.NoteCount
		c.LongCount = b.LongCount
		c.MineCount = b.MineCount
		c.Duration = b.Duration
		c.Valid |= game.SectionBody
	}
	return nil
}

func deriveResources(p parser.Parser, src *parser.Source, c *game.Chart) error {
	t, err := p.Resources(src)
	if nil != err {
		return err
	}
	c.Resources = t
	c.Valid |= game.SectionResourceHeader
	return nil
}
