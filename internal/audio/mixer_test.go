package audio_test

import (
	"math"
	"testing"
	"time"

	"git.lost.host/meutraa/bmsplay/internal/audio"
	"git.lost.host/meutraa/bmsplay/internal/fixture"
	"github.com/faiface/beep"
	"github.com/stretchr/testify/require"
)

const rate = 44100

func newMixer(t *testing.T) (*audio.Mixer, audio.Handle) {
	t.Helper()
	m := audio.NewMixer(beep.SampleRate(rate), nil, nil)
	h, err := m.CreateStreamBytes(fixture.WAV(rate, time.Second), "tone.wav")
	require.NoError(t, err)
	require.NotEqual(t, audio.NoHandle, h)
	return m, h
}

func TestMixerPositions(t *testing.T) {
	m, h := newMixer(t)

	pos, err := m.Seconds2Position(h, 500*time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, int64(rate/2), pos)

	pos, err = m.Seconds2Position(h, time.Duration(math.MaxInt64))
	require.NoError(t, err)
	require.Equal(t, int64(math.MaxInt64), pos)

	require.NoError(t, m.SetPosition(h, rate/2))
	pos, err = m.Position(h)
	require.NoError(t, err)
	require.Equal(t, int64(rate/2), pos)

	err = m.SetPosition(h, 2*rate)
	require.ErrorIs(t, err, audio.ErrBackend)
}

func TestMixerPlaysToNaturalEnd(t *testing.T) {
	m, h := newMixer(t)
	require.Equal(t, audio.Stopped, m.State(h))

	require.NoError(t, m.SetPosition(h, rate/2))
	require.NoError(t, m.Play(h))
	require.Equal(t, audio.Playing, m.State(h))
	require.Equal(t, []audio.Handle{h}, m.Active())

	buf := make([][2]float64, rate/4)
	n, ok := m.Stream(buf)
	require.True(t, ok)
	require.Equal(t, len(buf), n)
	require.Equal(t, audio.Playing, m.State(h))

	nonZero := false
	for _, s := range buf {
		if s[0] != 0 {
			nonZero = true
			break
		}
	}
	require.True(t, nonZero, "a playing channel must be mixed in")

	buf = make([][2]float64, rate/2)
	m.Stream(buf)
	require.Equal(t, audio.Stopped, m.State(h))
	require.Empty(t, m.Active())
}

func TestMixerPauseAndStop(t *testing.T) {
	m, h := newMixer(t)

	// pausing a stopped stream keeps it stopped
	require.NoError(t, m.Pause(h))
	require.Equal(t, audio.Stopped, m.State(h))

	require.NoError(t, m.Play(h))
	require.NoError(t, m.Pause(h))
	require.Equal(t, audio.Paused, m.State(h))

	before, _ := m.Position(h)
	m.Stream(make([][2]float64, 512))
	after, _ := m.Position(h)
	require.Equal(t, before, after, "paused channels do not advance")

	require.NoError(t, m.Stop(h))
	require.Equal(t, audio.Stopped, m.State(h))
}

func TestMixerInvalidHandle(t *testing.T) {
	m, h := newMixer(t)
	require.NoError(t, m.Free(h))

	require.Equal(t, audio.Stopped, m.State(h))
	require.ErrorIs(t, m.Play(h), audio.ErrInvalidHandle)
	require.ErrorIs(t, m.Free(h), audio.ErrBackend)
	_, err := m.Position(h)
	require.ErrorIs(t, err, audio.ErrInvalidHandle)
}

func TestMixerUnknownFormat(t *testing.T) {
	m := audio.NewMixer(beep.SampleRate(rate), nil, nil)
	_, err := m.CreateStreamBytes([]byte("not audio at all"), "x.xyz")
	require.ErrorIs(t, err, audio.ErrBackend)
	require.ErrorIs(t, err, audio.ErrUnknownFormat)
}

func TestMixerResamples(t *testing.T) {
	m := audio.NewMixer(beep.SampleRate(rate), nil, nil)
	h, err := m.CreateStreamBytes(fixture.WAV(22050, time.Second), "low.wav")
	require.NoError(t, err)

	// positions stay in the stream's own rate
	pos, err := m.Seconds2Position(h, time.Second)
	require.NoError(t, err)
	require.Equal(t, int64(22050), pos)

	require.NoError(t, m.Play(h))
	m.Stream(make([][2]float64, rate/2))
	pos, _ = m.Position(h)
	require.InDelta(t, 22050/2, pos, 512)
}

func TestSniff(t *testing.T) {
	require.Equal(t, "wav", audio.Sniff([]byte("RIFF"), "x.ogg"))
	require.Equal(t, "ogg", audio.Sniff([]byte("OggS"), "x.wav"))
	require.Equal(t, "mp3", audio.Sniff([]byte("ID3\x03"), ""))
	require.Equal(t, "mp3", audio.Sniff([]byte{0xff, 0xfb, 0x90, 0x00}, ""))
	require.Equal(t, "ogg", audio.Sniff(nil, "sound.OGA"))
	require.Equal(t, "flac", audio.Sniff([]byte("fLaC"), "a.flac"))
}
