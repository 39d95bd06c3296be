package resource

import (
	"context"
	"errors"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/remeh/sizedwaitgroup"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"git.lost.host/meutraa/bmsplay/internal/audio"
	"git.lost.host/meutraa/bmsplay/internal/game"
	"git.lost.host/meutraa/bmsplay/internal/vfs"
)

type item struct {
	p     Playable
	muted bool
}

// Registry maps resource keys to playables. Lookups happen on the scheduler
// goroutine while loads complete on workers, so every access is locked.
type Registry struct {
	mu      sync.RWMutex
	log     *zap.Logger
	backend audio.Backend
	fs      vfs.FileSystem
	items   map[game.ResourceKey]*item
	workers int
	onEnd   func(game.ResourceKey)
}

// NewRegistry loads at most workers assets at once, one per CPU if workers
// is not positive.
func NewRegistry(backend audio.Backend, fs vfs.FileSystem, log *zap.Logger, workers int) *Registry {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Registry{
		log:     log,
		backend: backend,
		fs:      fs,
		items:   map[game.ResourceKey]*item{},
		workers: workers,
	}
}

// SetFileSystem changes where new assets are opened from. Existing
// playables keep their entries.
func (r *Registry) SetFileSystem(fs vfs.FileSystem) {
	r.mu.Lock()
	r.fs = fs
	r.mu.Unlock()
}

// OnEnd sets the callback fired when any audio resource completes a slice.
func (r *Registry) OnEnd(f func(game.ResourceKey)) {
	r.mu.Lock()
	r.onEnd = f
	r.mu.Unlock()
}

func (r *Registry) ended(p Playable) {
	r.mu.RLock()
	f := r.onEnd
	r.mu.RUnlock()
	if nil != f {
		f(p.Key())
	}
}

// Sync makes the registry match the table. Entries whose key disappeared or
// whose path changed are disposed, missing ones are created unloaded. The
// returned playables need loading: the new ones and those a previous load
// left unloaded.
func (r *Registry) Sync(ctx context.Context, table game.ResourceTable) ([]Playable, error) {
	want := map[game.ResourceKey]game.Resource{}
	for _, res := range table.Entries {
		if res.Kind == game.ResourceVideo {
			r.log.Debug("skipping video resource", zap.String("path", res.Path), zap.Int("index", res.Index))
			continue
		}
		want[res.Key()] = res
	}

	r.mu.Lock()
	fs := r.fs
	var stale, retry []Playable
	for key, it := range r.items {
		if res, ok := want[key]; ok && res.Path == it.p.Resource().Path {
			delete(want, key)
			if it.p.State() == Unloaded {
				retry = append(retry, it.p)
			}
			continue
		}
		stale = append(stale, it.p)
		delete(r.items, key)
	}
	r.mu.Unlock()

	var errs error
	for _, p := range stale {
		errs = multierr.Append(errs, p.Dispose())
	}

	keys := make([]game.ResourceKey, 0, len(want))
	for key := range want {
		keys = append(keys, key)
	}
	sortKeys(keys)

	created := make([]Playable, 0, len(keys))
	for _, key := range keys {
		res := want[key]
		entry, err := fs.Open(ctx, res.Path)
		if nil != err {
			if vfs.IsNotExist(err) {
				r.log.Warn("resource missing", zap.String("path", res.Path), zap.Stringer("kind", res.Kind))
				continue
			}
			errs = multierr.Append(errs, err)
			continue
		}
		var p Playable
		if key.Kind == game.ResourceAudio {
			p = NewAudioResource(res, entry, r.backend)
		} else {
			p = NewImageResource(res, entry)
		}
		p.OnEnd(r.ended)
		created = append(created, p)
	}

	r.mu.Lock()
	for _, p := range created {
		r.items[p.Key()] = &item{p: p}
	}
	r.mu.Unlock()
	return append(created, retry...), errs
}

// LoadAll loads the playables on a bounded worker pool. Failed loads leave
// their resource unloaded and are returned combined.
func (r *Registry) LoadAll(ctx context.Context, ps []Playable) error {
	var mu sync.Mutex
	var errs error
	wg := sizedwaitgroup.New(r.workers)
	for _, p := range ps {
		if err := wg.AddWithContext(ctx); nil != err {
			break
		}
		go func(p Playable) {
			defer wg.Done()
			err := p.Load(ctx)
			if nil == err || errors.Is(err, ErrDisposed) {
				return
			}
			r.log.Warn("unable to load resource", zap.String("path", p.Resource().Path), zap.Error(err))
			mu.Lock()
			errs = multierr.Append(errs, err)
			mu.Unlock()
		}(p)
	}
	wg.Wait()
	if err := ctx.Err(); nil != err {
		return multierr.Append(errs, err)
	}
	return errs
}

func (r *Registry) Get(key game.ResourceKey) (Playable, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	it, ok := r.items[key]
	if !ok {
		return nil, false
	}
	return it.p, true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// Play dispatches an event to the resource it references. Events without a
// resource and references to missing assets are skipped. A resource whose
// backend rejects a transport call is muted for the rest of its life.
func (r *Registry) Play(ev game.Event) error {
	var kind game.ResourceKind
	switch {
	case ev.Kind.Sounds():
		kind = game.ResourceAudio
	case ev.Kind.Image():
		kind = game.ResourceImage
	default:
		return nil
	}
	if ev.Resource == game.NoResource {
		return nil
	}

	key := game.ResourceKey{Kind: kind, Index: ev.Resource}
	r.mu.RLock()
	it, ok := r.items[key]
	muted := ok && it.muted
	r.mu.RUnlock()
	if !ok {
		r.log.Debug("no resource for event", zap.Stringer("kind", ev.Kind), zap.Int("index", ev.Resource))
		return nil
	}
	if muted {
		return nil
	}

	err := it.p.Play(ev)
	if errors.Is(err, audio.ErrBackend) {
		r.mu.Lock()
		it.muted = true
		r.mu.Unlock()
		r.log.Warn("muting resource", zap.String("path", it.p.Resource().Path), zap.Error(err))
	}
	return err
}

// snapshot returns the playables ordered by key so per-tick work is
// deterministic.
func (r *Registry) snapshot() []Playable {
	r.mu.RLock()
	keys := make([]game.ResourceKey, 0, len(r.items))
	for key := range r.items {
		keys = append(keys, key)
	}
	sortKeys(keys)
	ps := make([]Playable, len(keys))
	for i, key := range keys {
		ps[i] = r.items[key].p
	}
	r.mu.RUnlock()
	return ps
}

// Update ticks every resource. Completion callbacks fire from here.
func (r *Registry) Update(dt time.Duration) error {
	var errs error
	for _, p := range r.snapshot() {
		errs = multierr.Append(errs, p.Update(dt))
	}
	return errs
}

func (r *Registry) Pause() error {
	var errs error
	for _, p := range r.snapshot() {
		errs = multierr.Append(errs, p.Pause())
	}
	return errs
}

// Resume restarts what Pause paused. Finished resources stay stopped.
func (r *Registry) Resume() error {
	var errs error
	for _, p := range r.snapshot() {
		if p.State() != Paused {
			continue
		}
		errs = multierr.Append(errs, p.Resume())
	}
	return errs
}

// Reset stops everything without completion callbacks.
func (r *Registry) Reset() error {
	var errs error
	for _, p := range r.snapshot() {
		errs = multierr.Append(errs, p.Reset())
	}
	return errs
}

// Playing counts resources currently playing.
func (r *Registry) Playing() int {
	n := 0
	for _, p := range r.snapshot() {
		if p.State() == Playing {
			n++
		}
	}
	return n
}

// Clear disposes and forgets every resource.
func (r *Registry) Clear() error {
	r.mu.Lock()
	items := r.items
	r.items = map[game.ResourceKey]*item{}
	r.mu.Unlock()

	var errs error
	for _, it := range items {
		errs = multierr.Append(errs, it.p.Dispose())
	}
	return errs
}

func sortKeys(keys []game.ResourceKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Kind != keys[j].Kind {
			return keys[i].Kind < keys[j].Kind
		}
		return keys[i].Index < keys[j].Index
	})
}
