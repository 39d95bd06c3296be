// Package chart runs the load and reload pipeline of the current chart.
//
// Derivation happens off the scheduler goroutine. Results are applied to the
// shared model only through the session queue, so the tick loop never sees a
// chart that is still being parsed. A newer operation supersedes every older
// one: its context is cancelled and its results are dropped without
// callbacks.
package chart

import (
	"context"
	"errors"
	"hash"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"

	"git.lost.host/meutraa/bmsplay/internal/game"
	"git.lost.host/meutraa/bmsplay/internal/parser"
	"git.lost.host/meutraa/bmsplay/internal/session"
	"git.lost.host/meutraa/bmsplay/internal/task"
)

var ErrNotLoaded = errors.New("no chart loaded")

type job struct {
	op    ReloadOperation
	fresh bool
	src   *parser.Source
	base  *game.Chart
	gen   uint64
	ctx   context.Context
}

type Manager struct {
	s   *session.Session
	log *zap.Logger

	// opMu makes reading the source and superseding the previous operation
	// one step. It is not held while an operation runs, so callbacks may
	// start new ones.
	opMu sync.Mutex

	mu sync.Mutex
	// src is the latest source, committed the one chart was derived from.
	// They differ while a load is in flight.
	src        *parser.Source
	committed  *parser.Source
	chart      *game.Chart
	gen        uint64
	cancel     context.CancelFunc
	onLoaded   []func(*game.Chart)
	onReloaded []func(*game.Chart, ReloadOperation)
}

func NewManager(s *session.Session) *Manager {
	return &Manager{s: s, log: s.Log.Named("chart")}
}

// OnLoaded registers f to run on the scheduler once the header and body of a
// freshly loaded chart are committed.
func (m *Manager) OnLoaded(f func(*game.Chart)) {
	m.mu.Lock()
	m.onLoaded = append(m.onLoaded, f)
	m.mu.Unlock()
}

// OnReloaded registers f to run on the scheduler after a ReloadBMS commit.
func (m *Manager) OnReloaded(f func(*game.Chart, ReloadOperation)) {
	m.mu.Lock()
	m.onReloaded = append(m.onReloaded, f)
	m.mu.Unlock()
}

// Chart returns the committed model, nil before the first load. The model is
// read only.
func (m *Manager) Chart() *game.Chart {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.chart
}

// Source returns the latest normalized source, which may still be loading.
func (m *Manager) Source() *parser.Source {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.src
}

// GetHash fingerprints the source of the committed chart. nil arguments
// select UTF-8 and MD5.
func (m *Manager) GetHash(enc encoding.Encoding, h func() hash.Hash) (string, error) {
	m.mu.Lock()
	src := m.committed
	m.mu.Unlock()
	if nil == src {
		return "", ErrNotLoaded
	}
	return parser.NewHashGenerator(enc, h).GetHash(src.Lines)
}

// LoadChart replaces the source and derives every section. A content that
// cannot be normalized fails with a parser.FormatError and leaves the current
// chart untouched.
func (m *Manager) LoadChart(content []byte, path string, ft game.FileType, direct bool) *task.Task {
	opts := parser.Options{Charset: m.s.Options.Charset, Seed: m.s.Options.Seed}
	src, err := parser.Normalize(content, path, ft, opts)
	if nil != err {
		m.log.Warn("unable to load chart", zap.String("path", path), zap.Error(err))
		return task.Completed(err)
	}

	m.opMu.Lock()
	ctx, gen := m.begin()
	m.mu.Lock()
	m.src = src
	m.mu.Unlock()
	m.opMu.Unlock()

	m.log.Info("loading chart", zap.String("path", path), zap.Stringer("type", ft), zap.Bool("direct", direct))
	return m.run(&job{op: Full, fresh: true, src: src, gen: gen, ctx: ctx}, direct)
}

// ReloadBMS derives the sections selected by op again from the current
// source. An empty op does nothing.
func (m *Manager) ReloadBMS(op ReloadOperation, direct bool) *task.Task {
	if op == 0 {
		return task.Completed(nil)
	}

	m.opMu.Lock()
	m.mu.Lock()
	src, base, committed := m.src, m.chart, m.committed
	m.mu.Unlock()
	if nil == src {
		m.opMu.Unlock()
		return task.Completed(ErrNotLoaded)
	}
	ctx, gen := m.begin()
	m.opMu.Unlock()

	j := &job{op: op, src: src, base: base, gen: gen, ctx: ctx}
	if nil == base || src != committed {
		// the load of this source never committed, base belongs to another
		j.op, j.fresh, j.base = Full, true, nil
	}
	m.log.Info("reloading chart", zap.Stringer("op", j.op), zap.Bool("direct", direct))
	return m.run(j, direct)
}

// Close cancels the operation in flight.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if nil != m.cancel {
		m.cancel()
		m.cancel = nil
	}
	m.gen++
}

func (m *Manager) begin() (context.Context, uint64) {
	ctx, cancel := context.WithCancel(context.Background())
	m.mu.Lock()
	defer m.mu.Unlock()
	if nil != m.cancel {
		m.cancel()
	}
	m.cancel = cancel
	m.gen++
	return ctx, m.gen
}

func (m *Manager) run(j *job, direct bool) *task.Task {
	t := task.New()
	if direct {
		m.execute(j, t, func(f func()) { f() })
		return t
	}
	go m.execute(j, t, m.s.Queue.Post)
	return t
}

// execute derives, hands the commit to apply and then loads resources.
func (m *Manager) execute(j *job, t *task.Task, apply func(func())) {
	r, err := derive(j)
	if nil != j.ctx.Err() {
		t.Supersede()
		return
	}
	if nil != err {
		m.log.Warn("unable to derive chart", zap.String("path", j.src.Path), zap.Stringer("op", j.op), zap.Error(err))
		t.Finish(err)
		return
	}

	applied := make(chan bool, 1)
	apply(func() { applied <- m.commit(j, r) })
	select {
	case ok := <-applied:
		if !ok {
			t.Supersede()
			return
		}
	case <-j.ctx.Done():
		t.Supersede()
		return
	}

	if !j.op.Has(Resources) {
		t.Finish(nil)
		return
	}
	err = m.loadResources(j, r.chart)
	if nil != j.ctx.Err() {
		t.Supersede()
		return
	}
	t.Finish(err)
}

// commit runs on the scheduler. It reports false when a newer operation
// started since j.
func (m *Manager) commit(j *job, r result) bool {
	m.mu.Lock()
	if j.gen != m.gen {
		m.mu.Unlock()
		return false
	}
	m.chart = r.chart
	m.committed = j.src
	loaded := append([]func(*game.Chart){}, m.onLoaded...)
	reloaded := append([]func(*game.Chart, ReloadOperation){}, m.onReloaded...)
	m.mu.Unlock()

	reg := m.s.Registry
	if r.timeline {
		if err := reg.Reset(); nil != err {
			m.log.Warn("unable to stop resources", zap.Error(err))
		}
	}
	if r.clear {
		if err := reg.Clear(); nil != err {
			m.log.Warn("unable to dispose resources", zap.Error(err))
		}
	}

	c := r.chart
	m.log.Info("chart committed",
		zap.String("title", c.Header.Title),
		zap.Stringer("op", j.op),
		zap.Int("events", len(c.Events)),
		zap.Int64("notes", c.NoteCount),
		zap.Duration("duration", c.Duration),
	)
	if j.fresh {
		for _, f := range loaded {
			f(c)
		}
	} else {
		for _, f := range reloaded {
			f(c, j.op)
		}
	}
	return true
}

func (m *Manager) loadResources(j *job, c *game.Chart) error {
	reg := m.s.Registry
	created, syncErr := reg.Sync(j.ctx, c.Resources)
	loadErr := reg.LoadAll(j.ctx, created)
	m.log.Info("resources synced", zap.Int("created", len(created)), zap.Int("live", reg.Len()))
	return multierr.Append(syncErr, loadErr)
}
