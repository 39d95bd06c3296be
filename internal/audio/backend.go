// Package audio is the transport layer under playable resources: streams are
// created from asset bytes, addressed by handle, and positioned in
// backend-native sample frames.
package audio

import (
	"errors"
	"fmt"
	"time"
)

// Handle identifies one decoded stream. NoHandle means unloaded.
type Handle uint32

const NoHandle Handle = 0

type PlaybackState uint8

const (
	Stopped PlaybackState = iota
	Playing
	Paused
)

func (s PlaybackState) String() string {
	switch s {
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	}
	return "stopped"
}

var (
	ErrBackend       = errors.New("audio backend")
	ErrInvalidHandle = errors.New("invalid handle")
	ErrUnknownFormat = errors.New("unknown audio format")
)

// BackendError is a rejected transport operation.
type BackendError struct {
	Op     string
	Handle Handle
	Err    error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("audio %s (handle %d): %v", e.Op, e.Handle, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

func (e *BackendError) Is(target error) bool { return target == ErrBackend }

// Backend is a mixer owning decoded streams.
type Backend interface {
	// CreateStreamFile decodes the file at path, streaming from disk.
	CreateStreamFile(path string) (Handle, error)
	// CreateStreamBytes decodes an in-memory asset. name is used to guess the
	// format when the bytes are not self describing.
	CreateStreamBytes(data []byte, name string) (Handle, error)

	// Seconds2Position converts a stream offset to native units, clamping
	// offsets past the representable range to the maximum value.
	Seconds2Position(h Handle, d time.Duration) (int64, error)
	SetPosition(h Handle, pos int64) error
	Position(h Handle) (int64, error)

	// State reports Stopped for unknown handles.
	State(h Handle) PlaybackState
	Play(h Handle) error
	Pause(h Handle) error
	Stop(h Handle) error
	Free(h Handle) error
}
