package audio

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
	"go.uber.org/zap"
)

const resampleQuality = 4

type channel struct {
	name     string
	streamer beep.StreamSeekCloser
	format   beep.Format
	output   beep.Streamer
	state    PlaybackState
}

// Mixer is the beep Backend. It is itself a beep.Streamer summing every
// playing channel, so it can be handed to the speaker or pulled directly.
type Mixer struct {
	mu       sync.Mutex
	rate     beep.SampleRate
	codecs   *Registry
	log      *zap.Logger
	next     Handle
	channels map[Handle]*channel
	buf      [][2]float64
	started  bool
}

func NewMixer(rate beep.SampleRate, codecs *Registry, log *zap.Logger) *Mixer {
	if nil == codecs {
		codecs = DefaultRegistry()
	}
	if nil == log {
		log = zap.NewNop()
	}
	return &Mixer{
		rate:     rate,
		codecs:   codecs,
		log:      log,
		channels: map[Handle]*channel{},
	}
}

// Start opens the speaker and begins pulling from the mixer.
func (m *Mixer) Start(buffer time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return nil
	}
	if err := speaker.Init(m.rate, m.rate.N(buffer)); nil != err {
		return &BackendError{Op: "init", Err: err}
	}
	speaker.Play(m)
	m.started = true
	m.log.Info("audio output started", zap.Int("rate", int(m.rate)), zap.Duration("buffer", buffer))
	return nil
}

func (m *Mixer) SampleRate() beep.SampleRate {
	return m.rate
}

func (m *Mixer) add(name string, s beep.StreamSeekCloser, format beep.Format) Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	h := m.next
	ch := &channel{name: name, streamer: s, format: format}
	m.resetOutput(ch)
	m.channels[h] = ch
	m.log.Debug("stream created",
		zap.String("name", name),
		zap.Uint32("handle", uint32(h)),
		zap.Int("rate", int(format.SampleRate)),
		zap.Int("length", s.Len()))
	return h
}

// resetOutput drops anything a resampler buffered before a seek.
func (m *Mixer) resetOutput(ch *channel) {
	if ch.format.SampleRate == m.rate {
		ch.output = ch.streamer
		return
	}
	ch.output = beep.Resample(resampleQuality, ch.format.SampleRate, m.rate, ch.streamer)
}

func (m *Mixer) CreateStreamFile(path string) (Handle, error) {
	f, err := os.Open(path)
	if nil != err {
		return NoHandle, &BackendError{Op: "create", Err: err}
	}
	s, format, err := m.codecs.Decode(f, path)
	if nil != err {
		f.Close()
		return NoHandle, &BackendError{Op: "create", Err: fmt.Errorf("%s: %w", path, err)}
	}
	return m.add(path, s, format), nil
}

func (m *Mixer) CreateStreamBytes(data []byte, name string) (Handle, error) {
	s, format, err := m.codecs.Decode(bytesReadCloser{bytes.NewReader(data)}, name)
	if nil != err {
		return NoHandle, &BackendError{Op: "create", Err: fmt.Errorf("%s: %w", name, err)}
	}
	return m.add(name, s, format), nil
}

func (m *Mixer) channel(op string, h Handle) (*channel, error) {
	ch, ok := m.channels[h]
	if !ok {
		return nil, &BackendError{Op: op, Handle: h, Err: ErrInvalidHandle}
	}
	return ch, nil
}

func (m *Mixer) Seconds2Position(h Handle, d time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, err := m.channel("seconds2position", h)
	if nil != err {
		return 0, err
	}
	if d <= 0 {
		return 0, nil
	}
	if d.Seconds()*float64(ch.format.SampleRate) >= math.MaxInt64 {
		return math.MaxInt64, nil
	}
	return int64(ch.format.SampleRate.N(d)), nil
}

func (m *Mixer) SetPosition(h Handle, pos int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, err := m.channel("seek", h)
	if nil != err {
		return err
	}
	if pos < 0 || pos > int64(ch.streamer.Len()) {
		return &BackendError{Op: "seek", Handle: h, Err: fmt.Errorf("position %d out of range [0, %d]", pos, ch.streamer.Len())}
	}
	if err := ch.streamer.Seek(int(pos)); nil != err {
		return &BackendError{Op: "seek", Handle: h, Err: err}
	}
	m.resetOutput(ch)
	return nil
}

func (m *Mixer) Position(h Handle) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, err := m.channel("position", h)
	if nil != err {
		return 0, err
	}
	return int64(ch.streamer.Position()), nil
}

func (m *Mixer) State(h Handle) PlaybackState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ch, ok := m.channels[h]; ok {
		return ch.state
	}
	return Stopped
}

func (m *Mixer) setState(op string, h Handle, state PlaybackState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, err := m.channel(op, h)
	if nil != err {
		return err
	}
	if op == "play" && ch.streamer.Position() >= ch.streamer.Len() {
		// play at the end of the stream finishes immediately
		ch.state = Stopped
		return nil
	}
	if op == "pause" && ch.state != Playing {
		return nil
	}
	ch.state = state
	return nil
}

func (m *Mixer) Play(h Handle) error  { return m.setState("play", h, Playing) }
func (m *Mixer) Pause(h Handle) error { return m.setState("pause", h, Paused) }
func (m *Mixer) Stop(h Handle) error  { return m.setState("stop", h, Stopped) }

func (m *Mixer) Free(h Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, err := m.channel("free", h)
	if nil != err {
		return err
	}
	delete(m.channels, h)
	if err := ch.streamer.Close(); nil != err {
		return &BackendError{Op: "free", Handle: h, Err: err}
	}
	return nil
}

// Active returns the handles currently playing, in handle order.
func (m *Mixer) Active() []Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	hs := []Handle{}
	for h, ch := range m.channels {
		if ch.state == Playing {
			hs = append(hs, h)
		}
	}
	sort.Slice(hs, func(i, j int) bool { return hs[i] < hs[j] })
	return hs
}

// Stream mixes the playing channels. It never runs dry, silence is produced
// when nothing plays. A channel whose decoder is exhausted stops.
func (m *Mixer) Stream(samples [][2]float64) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range samples {
		samples[i] = [2]float64{}
	}
	if cap(m.buf) < len(samples) {
		m.buf = make([][2]float64, len(samples))
	}
	buf := m.buf[:len(samples)]
	for h, ch := range m.channels {
		if ch.state != Playing {
			continue
		}
		filled := 0
		for filled < len(buf) {
			n, ok := ch.output.Stream(buf[filled:])
			for i := filled; i < filled+n; i++ {
				samples[i][0] += buf[i][0]
				samples[i][1] += buf[i][1]
			}
			filled += n
			if !ok || n == 0 {
				ch.state = Stopped
				if err := ch.streamer.Err(); nil != err {
					m.log.Warn("stream error", zap.Uint32("handle", uint32(h)), zap.Error(err))
				}
				break
			}
		}
	}
	return len(samples), true
}

func (m *Mixer) Err() error {
	return nil
}
