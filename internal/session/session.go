// Package session bundles what one loaded chart needs: where its assets come
// from, the audio backend, the scheduler queue and the resource registry.
package session

import (
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"

	"git.lost.host/meutraa/bmsplay/internal/audio"
	"git.lost.host/meutraa/bmsplay/internal/resource"
	"git.lost.host/meutraa/bmsplay/internal/task"
	"git.lost.host/meutraa/bmsplay/internal/vfs"
)

type Options struct {
	// Charset of chart files, nil to detect.
	Charset encoding.Encoding
	// Seed for #RANDOM resolution.
	Seed uint64
	// Workers bounds parallel asset loading.
	Workers int
}

type Session struct {
	ID       uuid.UUID
	Log      *zap.Logger
	Backend  audio.Backend
	FS       vfs.FileSystem
	Queue    *task.Queue
	Registry *resource.Registry
	Options  Options
}

func New(log *zap.Logger, backend audio.Backend, fs vfs.FileSystem, opts Options) *Session {
	id := uuid.New()
	log = log.With(zap.String("session", id.String()))
	return &Session{
		ID:       id,
		Log:      log,
		Backend:  backend,
		FS:       fs,
		Queue:    task.NewQueue(),
		Registry: resource.NewRegistry(backend, fs, log.Named("resource"), opts.Workers),
		Options:  opts,
	}
}

// Close releases every resource and the asset provider.
func (s *Session) Close() error {
	return multierr.Combine(s.Registry.Clear(), s.FS.Close())
}
