package fixture

import (
	"fmt"
	"math"
	"sync"
	"time"

	"git.lost.host/meutraa/bmsplay/internal/audio"
)

// Stream is one stream of the fake backend. Positions are in frames.
type Stream struct {
	Name   string
	Length int64
	Pos    int64
	State  audio.PlaybackState
}

// Backend is an audio.Backend driven by Advance instead of a sound card.
type Backend struct {
	mu      sync.Mutex
	Rate    int
	Lengths map[string]time.Duration // per asset name, DefaultLength otherwise
	streams map[audio.Handle]*Stream
	next    audio.Handle

	Creates, Frees, Plays, Stops, Seeks int

	FailCreate error
	FailPlay   error
	FailSeek   error
	FailFree   error
}

const DefaultLength = 10 * time.Second

func NewBackend(rate int) *Backend {
	return &Backend{
		Rate:    rate,
		Lengths: map[string]time.Duration{},
		streams: map[audio.Handle]*Stream{},
	}
}

func (b *Backend) create(name string) (audio.Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if nil != b.FailCreate {
		return audio.NoHandle, &audio.BackendError{Op: "create", Err: b.FailCreate}
	}
	length, ok := b.Lengths[name]
	if !ok {
		length = DefaultLength
	}
	b.next++
	b.Creates++
	b.streams[b.next] = &Stream{Name: name, Length: int64(length.Seconds() * float64(b.Rate))}
	return b.next, nil
}

func (b *Backend) CreateStreamFile(path string) (audio.Handle, error) {
	return b.create(path)
}

func (b *Backend) CreateStreamBytes(data []byte, name string) (audio.Handle, error) {
	return b.create(name)
}

func (b *Backend) stream(op string, h audio.Handle) (*Stream, error) {
	s, ok := b.streams[h]
	if !ok {
		return nil, &audio.BackendError{Op: op, Handle: h, Err: audio.ErrInvalidHandle}
	}
	return s, nil
}

func (b *Backend) Seconds2Position(h audio.Handle, d time.Duration) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := b.stream("seconds2position", h); nil != err {
		return 0, err
	}
	f := d.Seconds() * float64(b.Rate)
	if f >= math.MaxInt64 {
		return math.MaxInt64, nil
	}
	return int64(f), nil
}

func (b *Backend) SetPosition(h audio.Handle, pos int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, err := b.stream("seek", h)
	if nil != err {
		return err
	}
	if nil != b.FailSeek {
		return &audio.BackendError{Op: "seek", Handle: h, Err: b.FailSeek}
	}
	if pos < 0 || pos > s.Length {
		return &audio.BackendError{Op: "seek", Handle: h, Err: fmt.Errorf("position %d out of range", pos)}
	}
	b.Seeks++
	s.Pos = pos
	return nil
}

func (b *Backend) Position(h audio.Handle) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, err := b.stream("position", h)
	if nil != err {
		return 0, err
	}
	return s.Pos, nil
}

func (b *Backend) State(h audio.Handle) audio.PlaybackState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.streams[h]; ok {
		return s.State
	}
	return audio.Stopped
}

func (b *Backend) Play(h audio.Handle) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, err := b.stream("play", h)
	if nil != err {
		return err
	}
	if nil != b.FailPlay {
		return &audio.BackendError{Op: "play", Handle: h, Err: b.FailPlay}
	}
	b.Plays++
	s.State = audio.Playing
	return nil
}

func (b *Backend) Pause(h audio.Handle) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, err := b.stream("pause", h)
	if nil != err {
		return err
	}
	if s.State == audio.Playing {
		s.State = audio.Paused
	}
	return nil
}

func (b *Backend) Stop(h audio.Handle) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, err := b.stream("stop", h)
	if nil != err {
		return err
	}
	b.Stops++
	s.State = audio.Stopped
	return nil
}

func (b *Backend) Free(h audio.Handle) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := b.stream("free", h); nil != err {
		return err
	}
	if nil != b.FailFree {
		return &audio.BackendError{Op: "free", Handle: h, Err: b.FailFree}
	}
	b.Frees++
	delete(b.streams, h)
	return nil
}

// Advance moves every playing stream forward, stopping those that reach
// their end.
func (b *Backend) Advance(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	frames := int64(d.Seconds() * float64(b.Rate))
	for _, s := range b.streams {
		if s.State != audio.Playing {
			continue
		}
		s.Pos += frames
		if s.Pos >= s.Length {
			s.Pos = s.Length
			s.State = audio.Stopped
		}
	}
}

// Stream returns a copy of a stream's state.
func (b *Backend) Stream(h audio.Handle) (Stream, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.streams[h]
	if !ok {
		return Stream{}, false
	}
	return *s, true
}

func (b *Backend) Live() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.streams)
}

// Counters returns creates and frees under the lock.
func (b *Backend) Counters() (creates, frees int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.Creates, b.Frees
}
