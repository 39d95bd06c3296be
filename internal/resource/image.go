package resource

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"time"

	_ "golang.org/x/image/bmp"

	"git.lost.host/meutraa/bmsplay/internal/game"
	"git.lost.host/meutraa/bmsplay/internal/vfs"
)

// ImageResource is a decoded BGA image. Showing it has no duration, so it
// never reports completion.
type ImageResource struct {
	base
	img    image.Image
	format string
	last   game.Event
}

func NewImageResource(data game.Resource, entry vfs.Entry) *ImageResource {
	return &ImageResource{base: base{data: data, entry: entry}}
}

func (r *ImageResource) Load(ctx context.Context) error {
	r.loadMu.Lock()
	defer r.loadMu.Unlock()

	r.mu.Lock()
	if nil != r.img {
		r.mu.Unlock()
		return nil
	}
	if r.state == Disposed {
		r.mu.Unlock()
		return ErrDisposed
	}
	r.mu.Unlock()

	data, err := r.entry.ReadAllBytes(ctx)
	if nil != err {
		return fmt.Errorf("unable to load %s: %w", r.data.Path, err)
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if nil != err {
		return fmt.Errorf("unable to decode %s: %w", r.data.Path, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == Disposed {
		return ErrDisposed
	}
	r.img = img
	r.format = format
	r.state = Loaded
	return nil
}

// Image returns the decoded image, nil until loaded.
func (r *ImageResource) Image() image.Image {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.img
}

func (r *ImageResource) Format() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.format
}

// Last returns the event that most recently showed this image.
func (r *ImageResource) Last() game.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

func (r *ImageResource) Play(ev game.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if nil == r.img {
		return nil
	}
	r.last = ev
	r.state = Playing
	return nil
}

func (r *ImageResource) Pause() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == Playing {
		r.state = Paused
	}
	return nil
}

func (r *ImageResource) Resume() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == Paused {
		r.state = Playing
	}
	return nil
}

func (r *ImageResource) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if nil != r.img {
		r.state = Stopped
	}
	return nil
}

func (r *ImageResource) Update(time.Duration) error {
	return nil
}

func (r *ImageResource) Dispose() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.img = nil
	r.state = Disposed
	return nil
}
