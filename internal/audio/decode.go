package audio

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/vorbis"
	"github.com/faiface/beep/wav"
)

// Decoder turns an asset into a seekable stream.
type Decoder func(rc io.ReadSeekCloser) (beep.StreamSeekCloser, beep.Format, error)

// Registry maps format keys ("wav", "ogg", "mp3") to decoders.
type Registry struct {
	mu     sync.Mutex
	codecs map[string]Decoder
}

func NewRegistry() *Registry {
	return &Registry{codecs: map[string]Decoder{}}
}

// DefaultRegistry knows every format beep decodes.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("wav", func(rc io.ReadSeekCloser) (beep.StreamSeekCloser, beep.Format, error) {
		return wav.Decode(rc)
	})
	r.Register("ogg", func(rc io.ReadSeekCloser) (beep.StreamSeekCloser, beep.Format, error) {
		return vorbis.Decode(rc)
	})
	r.Register("mp3", func(rc io.ReadSeekCloser) (beep.StreamSeekCloser, beep.Format, error) {
		return mp3.Decode(rc)
	})
	return r
}

func (r *Registry) Register(format string, d Decoder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codecs[format] = d
}

func (r *Registry) Get(format string) (Decoder, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.codecs[format]
	return d, ok
}

// Sniff guesses the format key from magic bytes, falling back to the file
// extension of name.
func Sniff(header []byte, name string) string {
	switch {
	case bytes.HasPrefix(header, []byte("RIFF")):
		return "wav"
	case bytes.HasPrefix(header, []byte("OggS")):
		return "ogg"
	case bytes.HasPrefix(header, []byte("ID3")),
		len(header) > 1 && header[0] == 0xff && header[1]&0xe0 == 0xe0:
		return "mp3"
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	if ext == "oga" {
		ext = "ogg"
	}
	return ext
}

func (r *Registry) Decode(rc io.ReadSeekCloser, name string) (beep.StreamSeekCloser, beep.Format, error) {
	header := make([]byte, 4)
	n, _ := io.ReadFull(rc, header)
	if _, err := rc.Seek(0, io.SeekStart); nil != err {
		return nil, beep.Format{}, err
	}
	format := Sniff(header[:n], name)
	decode, ok := r.Get(format)
	if !ok {
		return nil, beep.Format{}, fmt.Errorf("%w: %s", ErrUnknownFormat, name)
	}
	return decode(rc)
}

type bytesReadCloser struct {
	*bytes.Reader
}

func (bytesReadCloser) Close() error { return nil }
