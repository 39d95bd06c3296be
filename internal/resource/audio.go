package resource

import (
	"context"
	"fmt"
	"math"
	"time"

	"git.lost.host/meutraa/bmsplay/internal/audio"
	"git.lost.host/meutraa/bmsplay/internal/game"
	"git.lost.host/meutraa/bmsplay/internal/vfs"
)

// AudioResource plays slices of one decoded sound. Positions are kept in the
// backend's native units.
type AudioResource struct {
	base
	backend  audio.Backend
	handle   audio.Handle
	sliceEnd int64
}

func NewAudioResource(data game.Resource, entry vfs.Entry, backend audio.Backend) *AudioResource {
	return &AudioResource{
		base:    base{data: data, entry: entry},
		backend: backend,
	}
}

func (r *AudioResource) Handle() audio.Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.handle
}

func (r *AudioResource) Load(ctx context.Context) error {
	r.loadMu.Lock()
	defer r.loadMu.Unlock()

	r.mu.Lock()
	if r.handle != audio.NoHandle {
		r.mu.Unlock()
		return nil
	}
	if r.state == Disposed {
		r.mu.Unlock()
		return ErrDisposed
	}
	r.mu.Unlock()

	var h audio.Handle
	var err error
	if r.entry.IsReal() {
		h, err = r.backend.CreateStreamFile(r.entry.FullPath())
	} else {
		var data []byte
		data, err = r.entry.ReadAllBytes(ctx)
		if nil == err {
			h, err = r.backend.CreateStreamBytes(data, r.entry.Name())
		}
	}
	if nil != err {
		return fmt.Errorf("unable to load %s: %w", r.data.Path, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == Disposed {
		// disposed while decoding
		_ = r.backend.Free(h)
		return ErrDisposed
	}
	r.handle = h
	r.state = Loaded
	return nil
}

func (r *AudioResource) Play(ev game.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.handle == audio.NoHandle {
		return nil
	}

	start, err := r.backend.Seconds2Position(r.handle, ev.SliceStart)
	if nil != err {
		return err
	}
	end := int64(math.MaxInt64)
	if ev.SliceEnd < game.Unbounded {
		if end, err = r.backend.Seconds2Position(r.handle, ev.SliceEnd); nil != err {
			return err
		}
	}
	if err := r.backend.SetPosition(r.handle, start); nil != err {
		return err
	}
	switch r.backend.State(r.handle) {
	case audio.Stopped, audio.Paused:
		if err := r.backend.Play(r.handle); nil != err {
			return err
		}
	}
	r.sliceEnd = end
	r.wasPlaying = true
	r.state = Playing
	return nil
}

func (r *AudioResource) Pause() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.handle == audio.NoHandle {
		return nil
	}
	if err := r.backend.Pause(r.handle); nil != err {
		return err
	}
	if r.backend.State(r.handle) == audio.Paused {
		r.state = Paused
	}
	return nil
}

func (r *AudioResource) Resume() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.handle == audio.NoHandle {
		return nil
	}
	switch r.backend.State(r.handle) {
	case audio.Stopped, audio.Paused:
		if err := r.backend.Play(r.handle); nil != err {
			return err
		}
		r.state = Playing
	}
	return nil
}

// Reset stops without reporting completion.
func (r *AudioResource) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.handle == audio.NoHandle {
		return nil
	}
	if err := r.backend.Stop(r.handle); nil != err {
		return err
	}
	r.wasPlaying = false
	r.state = Stopped
	return nil
}

// Update stops the stream once it passes the slice end and reports
// completion in the same tick. A natural stop of the stream is reported the
// same way, and so is any other stream that left Playing after a Play,
// paused ones included.
func (r *AudioResource) Update(time.Duration) error {
	ended, err := r.update()
	if nil != err {
		return err
	}
	if ended {
		if f := r.endHandler(); nil != f {
			f(r)
		}
	}
	return nil
}

func (r *AudioResource) update() (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.handle == audio.NoHandle {
		return false, nil
	}

	st := r.backend.State(r.handle)
	if st == audio.Playing {
		pos, err := r.backend.Position(r.handle)
		if nil != err {
			return false, err
		}
		if pos >= r.sliceEnd {
			if err := r.backend.Stop(r.handle); nil != err {
				return false, err
			}
			st = audio.Stopped
		}
	}
	if st == audio.Stopped && r.state == Playing {
		r.state = Stopped
	}
	if st != audio.Playing && r.wasPlaying {
		r.wasPlaying = false
		return true, nil
	}
	return false, nil
}

func (r *AudioResource) Dispose() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == Disposed {
		return nil
	}
	h := r.handle
	r.handle = audio.NoHandle
	r.wasPlaying = false
	r.state = Disposed
	if h == audio.NoHandle {
		return nil
	}
	return r.backend.Free(h)
}
