// Package resource owns the playable assets of a chart: per-asset transport
// state machines and the registry that keeps them in step with the chart's
// resource table.
package resource

import (
	"context"
	"errors"
	"sync"
	"time"

	"git.lost.host/meutraa/bmsplay/internal/game"
	"git.lost.host/meutraa/bmsplay/internal/vfs"
)

var (
	ErrResourceMissing = errors.New("resource missing")
	ErrDisposed        = errors.New("resource disposed")
)

type State uint8

const (
	Unloaded State = iota
	Loaded
	Playing
	Paused
	Stopped
	Disposed
)

func (s State) String() string {
	return [...]string{"unloaded", "loaded", "playing", "paused", "stopped", "disposed"}[s]
}

// Playable is a loaded asset driven by chart events. Every transport method
// is a no-op on a resource that is not loaded.
type Playable interface {
	Key() game.ResourceKey
	Resource() game.Resource
	State() State

	// Load acquires the backend handle. It may block on I/O and must not run
	// on the scheduler goroutine. Loading twice is a no-op.
	Load(ctx context.Context) error
	// Play starts the slice of the asset the event refers to.
	Play(ev game.Event) error
	Pause() error
	Resume() error
	// Reset stops playback whatever the current state.
	Reset() error
	// Update runs once per tick and detects the end of the current slice.
	Update(dt time.Duration) error
	// Dispose releases the backend handle. It is safe to call repeatedly.
	Dispose() error

	// OnEnd registers the completion callback fired from Update.
	OnEnd(f func(Playable))
}

// base holds what every playable shares. mu guards all fields; the loadMu of
// the concrete types serializes Load calls.
type base struct {
	mu         sync.Mutex
	loadMu     sync.Mutex
	data       game.Resource
	entry      vfs.Entry
	state      State
	wasPlaying bool
	onEnd      func(Playable)
}

func (b *base) Key() game.ResourceKey {
	return b.data.Key()
}

func (b *base) Resource() game.Resource {
	return b.data
}

func (b *base) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *base) OnEnd(f func(Playable)) {
	b.mu.Lock()
	b.onEnd = f
	b.mu.Unlock()
}

// endHandler is read under the lock and invoked after releasing it, so
// callbacks may call back into the resource.
func (b *base) endHandler() func(Playable) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.onEnd
}
