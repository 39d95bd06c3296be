package resource

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"git.lost.host/meutraa/bmsplay/internal/audio"
	"git.lost.host/meutraa/bmsplay/internal/fixture"
	"git.lost.host/meutraa/bmsplay/internal/game"
	"git.lost.host/meutraa/bmsplay/internal/vfs"
)

const rate = 1000

func pngBytes(t *testing.T) []byte {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func loadedAudio(t *testing.T, b *fixture.Backend, name string) *AudioResource {
	fs := vfs.NewMemory(map[string][]byte{name: []byte("data")})
	entry, err := fs.Open(context.Background(), name)
	require.NoError(t, err)
	r := NewAudioResource(game.Resource{Kind: game.ResourceAudio, Index: 1, Path: name}, entry, b)
	require.NoError(t, r.Load(context.Background()))
	return r
}

func slice(start, end time.Duration) game.Event {
	return game.Event{Kind: game.EventNote, Resource: 1, SliceStart: start, SliceEnd: end}
}

func TestAudioLoadOnce(t *testing.T) {
	b := fixture.NewBackend(rate)
	fs := vfs.NewMemory(map[string][]byte{"a.wav": []byte("data")})
	entry, err := fs.Open(context.Background(), "a.wav")
	require.NoError(t, err)

	r := NewAudioResource(game.Resource{Kind: game.ResourceAudio, Index: 1, Path: "a.wav"}, entry, b)
	require.Equal(t, Unloaded, r.State())
	require.NoError(t, r.Load(context.Background()))
	require.NoError(t, r.Load(context.Background()))

	creates, _ := b.Counters()
	require.Equal(t, 1, creates)
	require.Equal(t, 1, fs.Reads)
	require.Equal(t, Loaded, r.State())
	require.NotEqual(t, audio.NoHandle, r.Handle())
}

func TestAudioLoadRealFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "kick.wav"), []byte("data"), 0o644))
	entry, err := vfs.NewDir(dir).Open(context.Background(), "kick.wav")
	require.NoError(t, err)

	b := fixture.NewBackend(rate)
	r := NewAudioResource(game.Resource{Kind: game.ResourceAudio, Index: 1, Path: "kick.wav"}, entry, b)
	require.NoError(t, r.Load(context.Background()))

	s, ok := b.Stream(r.Handle())
	require.True(t, ok)
	require.Equal(t, filepath.Join(dir, "kick.wav"), s.Name)
}

func TestAudioUnloadedIsInert(t *testing.T) {
	b := fixture.NewBackend(rate)
	b.FailCreate = errors.New("corrupt")
	fs := vfs.NewMemory(map[string][]byte{"a.wav": []byte("data")})
	entry, err := fs.Open(context.Background(), "a.wav")
	require.NoError(t, err)

	r := NewAudioResource(game.Resource{Kind: game.ResourceAudio, Index: 1, Path: "a.wav"}, entry, b)
	err = r.Load(context.Background())
	require.ErrorIs(t, err, audio.ErrBackend)
	require.Equal(t, Unloaded, r.State())

	ended := 0
	r.OnEnd(func(Playable) { ended++ })
	require.NoError(t, r.Play(slice(0, game.Unbounded)))
	require.NoError(t, r.Pause())
	require.NoError(t, r.Resume())
	require.NoError(t, r.Reset())
	require.NoError(t, r.Update(time.Second))
	require.Zero(t, ended)
	require.Zero(t, b.Plays+b.Stops+b.Seeks)
}

func TestAudioSliceBoundary(t *testing.T) {
	b := fixture.NewBackend(rate)
	r := loadedAudio(t, b, "a.wav")
	ended := 0
	r.OnEnd(func(Playable) { ended++ })

	require.NoError(t, r.Play(slice(time.Second, 2*time.Second)))
	s, _ := b.Stream(r.Handle())
	require.Equal(t, int64(1000), s.Pos)
	require.Equal(t, audio.Playing, s.State)

	b.Advance(500 * time.Millisecond)
	require.NoError(t, r.Update(0))
	require.Zero(t, ended)
	require.Equal(t, Playing, r.State())

	// the tick that crosses the boundary both stops and reports
	b.Advance(600 * time.Millisecond)
	require.NoError(t, r.Update(0))
	require.Equal(t, 1, ended)
	require.Equal(t, 1, b.Stops)
	require.Equal(t, Stopped, r.State())

	require.NoError(t, r.Update(0))
	require.Equal(t, 1, ended)
}

func TestAudioNaturalEnd(t *testing.T) {
	b := fixture.NewBackend(rate)
	b.Lengths["a.wav"] = time.Second
	r := loadedAudio(t, b, "a.wav")
	ended := 0
	r.OnEnd(func(Playable) { ended++ })

	require.NoError(t, r.Play(slice(0, game.Unbounded)))
	b.Advance(2 * time.Second)
	require.NoError(t, r.Update(0))
	require.Equal(t, 1, ended)
	require.Zero(t, b.Stops)
}

func TestAudioRetrigger(t *testing.T) {
	b := fixture.NewBackend(rate)
	r := loadedAudio(t, b, "a.wav")

	require.NoError(t, r.Play(slice(0, game.Unbounded)))
	b.Advance(300 * time.Millisecond)
	require.NoError(t, r.Play(slice(0, game.Unbounded)))

	s, _ := b.Stream(r.Handle())
	require.Zero(t, s.Pos)
	require.Equal(t, 1, b.Plays)
	require.Equal(t, 2, b.Seeks)
}

func TestAudioPauseCompletesOnUpdate(t *testing.T) {
	b := fixture.NewBackend(rate)
	r := loadedAudio(t, b, "a.wav")
	ended := 0
	r.OnEnd(func(Playable) { ended++ })

	require.NoError(t, r.Play(slice(0, time.Second)))
	require.NoError(t, r.Pause())
	require.Equal(t, Paused, r.State())
	require.NoError(t, r.Update(0))
	require.Equal(t, 1, ended)
	require.Equal(t, Paused, r.State())

	s, _ := b.Stream(r.Handle())
	require.Zero(t, s.Pos)

	// reported once, finishing the slice later is silent
	require.NoError(t, r.Resume())
	require.Equal(t, Playing, r.State())
	b.Advance(time.Second)
	require.NoError(t, r.Update(0))
	require.Equal(t, 1, ended)
	require.Equal(t, Stopped, r.State())

	require.NoError(t, r.Reset())
	require.NoError(t, r.Update(0))
	require.Equal(t, 1, ended)
}

func TestAudioPauseWhenNotPlaying(t *testing.T) {
	b := fixture.NewBackend(rate)
	r := loadedAudio(t, b, "a.wav")

	require.NoError(t, r.Pause())
	require.Equal(t, Loaded, r.State())

	require.NoError(t, r.Play(slice(0, game.Unbounded)))
	require.NoError(t, r.Reset())
	require.NoError(t, r.Pause())
	require.Equal(t, Stopped, r.State())
}

func TestAudioResumeAfterReset(t *testing.T) {
	b := fixture.NewBackend(rate)
	r := loadedAudio(t, b, "a.wav")

	require.NoError(t, r.Play(slice(0, game.Unbounded)))
	require.NoError(t, r.Reset())
	require.Equal(t, 1, b.Plays)

	require.NoError(t, r.Resume())
	require.Equal(t, 2, b.Plays)
	require.Equal(t, Playing, r.State())
	s, _ := b.Stream(r.Handle())
	require.Equal(t, audio.Playing, s.State)
}

func TestAudioSeekFailureKeepsState(t *testing.T) {
	b := fixture.NewBackend(rate)
	r := loadedAudio(t, b, "a.wav")
	ended := 0
	r.OnEnd(func(Playable) { ended++ })

	err := r.Play(slice(time.Minute, game.Unbounded))
	require.ErrorIs(t, err, audio.ErrBackend)
	require.Equal(t, Loaded, r.State())
	require.NoError(t, r.Update(0))
	require.Zero(t, ended)
}

func TestAudioDispose(t *testing.T) {
	b := fixture.NewBackend(rate)
	r := loadedAudio(t, b, "a.wav")

	require.NoError(t, r.Dispose())
	require.NoError(t, r.Dispose())
	_, frees := b.Counters()
	require.Equal(t, 1, frees)
	require.Zero(t, b.Live())
	require.Equal(t, Disposed, r.State())

	require.NoError(t, r.Play(slice(0, game.Unbounded)))
	require.Zero(t, b.Plays)
	require.ErrorIs(t, r.Load(context.Background()), ErrDisposed)
}

func TestImageResource(t *testing.T) {
	fs := vfs.NewMemory(map[string][]byte{"back.png": pngBytes(t), "bad.bmp": []byte("nope")})
	ctx := context.Background()

	entry, err := fs.Open(ctx, "back.png")
	require.NoError(t, err)
	r := NewImageResource(game.Resource{Kind: game.ResourceImage, Index: 1, Path: "back.png"}, entry)
	require.NoError(t, r.Play(game.Event{Kind: game.EventBGA, Resource: 1}))
	require.Equal(t, Unloaded, r.State())

	require.NoError(t, r.Load(ctx))
	require.Equal(t, "png", r.Format())
	require.Equal(t, image.Rect(0, 0, 4, 4), r.Image().Bounds())

	ev := game.Event{Kind: game.EventBGA, Resource: 1, Time: time.Second}
	require.NoError(t, r.Play(ev))
	require.Equal(t, ev, r.Last())
	require.Equal(t, Playing, r.State())
	require.NoError(t, r.Dispose())
	require.Nil(t, r.Image())

	entry, err = fs.Open(ctx, "bad.bmp")
	require.NoError(t, err)
	bad := NewImageResource(game.Resource{Kind: game.ResourceImage, Index: 2, Path: "bad.bmp"}, entry)
	require.Error(t, bad.Load(ctx))
	require.Equal(t, Unloaded, bad.State())
}

func table(entries ...game.Resource) game.ResourceTable {
	t := game.NewResourceTable()
	t.Entries = entries
	t.Sort()
	return t
}

func audioKey(i int) game.ResourceKey {
	return game.ResourceKey{Kind: game.ResourceAudio, Index: i}
}

func TestRegistrySync(t *testing.T) {
	b := fixture.NewBackend(rate)
	fs := vfs.NewMemory(map[string][]byte{
		"a.wav":    []byte("a"),
		"b.ogg":    []byte("b"),
		"back.png": pngBytes(t),
	})
	reg := NewRegistry(b, fs, zaptest.NewLogger(t), 2)
	ctx := context.Background()

	created, err := reg.Sync(ctx, table(
		game.Resource{Kind: game.ResourceAudio, Index: 1, Path: "a.wav"},
		game.Resource{Kind: game.ResourceAudio, Index: 2, Path: "missing.wav"},
		game.Resource{Kind: game.ResourceImage, Index: 1, Path: "back.png"},
		game.Resource{Kind: game.ResourceVideo, Index: 2, Path: "movie.mpg"},
	))
	require.NoError(t, err)
	require.Len(t, created, 2)
	require.Equal(t, 2, reg.Len())
	require.NoError(t, reg.LoadAll(ctx, created))

	p, ok := reg.Get(audioKey(1))
	require.True(t, ok)
	require.Equal(t, Loaded, p.State())
	_, ok = reg.Get(audioKey(2))
	require.False(t, ok)

	// unchanged entries survive, a changed path replaces the playable
	created, err = reg.Sync(ctx, table(
		game.Resource{Kind: game.ResourceAudio, Index: 1, Path: "b.wav"},
		game.Resource{Kind: game.ResourceImage, Index: 1, Path: "back.png"},
	))
	require.NoError(t, err)
	require.Len(t, created, 1)
	require.Equal(t, audioKey(1), created[0].Key())
	require.Equal(t, Disposed, p.State())
	require.NoError(t, reg.LoadAll(ctx, created))

	creates, frees := b.Counters()
	require.Equal(t, 2, creates)
	require.Equal(t, 1, frees)

	// an empty table disposes everything
	created, err = reg.Sync(ctx, game.NewResourceTable())
	require.NoError(t, err)
	require.Empty(t, created)
	require.Zero(t, reg.Len())
	require.Zero(t, b.Live())
}

func TestRegistryLoadAllFailures(t *testing.T) {
	b := fixture.NewBackend(rate)
	fs := vfs.NewMemory(map[string][]byte{"a.wav": []byte("a"), "b.wav": []byte("b")})
	reg := NewRegistry(b, fs, zaptest.NewLogger(t), 1)
	ctx := context.Background()

	created, err := reg.Sync(ctx, table(
		game.Resource{Kind: game.ResourceAudio, Index: 1, Path: "a.wav"},
		game.Resource{Kind: game.ResourceAudio, Index: 2, Path: "b.wav"},
	))
	require.NoError(t, err)

	b.FailCreate = errors.New("corrupt")
	err = reg.LoadAll(ctx, created)
	require.ErrorIs(t, err, audio.ErrBackend)
	for _, p := range created {
		require.Equal(t, Unloaded, p.State())
	}

	// unloaded resources are silently skipped
	require.NoError(t, reg.Play(game.Event{Kind: game.EventNote, Resource: 1, SliceEnd: game.Unbounded}))
	require.Zero(t, b.Plays)
}

func TestRegistryPlay(t *testing.T) {
	b := fixture.NewBackend(rate)
	fs := vfs.NewMemory(map[string][]byte{"a.wav": []byte("a"), "b.wav": []byte("b")})
	reg := NewRegistry(b, fs, zaptest.NewLogger(t), 0)
	ctx := context.Background()

	created, err := reg.Sync(ctx, table(
		game.Resource{Kind: game.ResourceAudio, Index: 1, Path: "a.wav"},
		game.Resource{Kind: game.ResourceAudio, Index: 2, Path: "b.wav"},
	))
	require.NoError(t, err)
	require.NoError(t, reg.LoadAll(ctx, created))

	// missing references and events without sound are skipped
	require.NoError(t, reg.Play(game.Event{Kind: game.EventNote, Resource: 9, SliceEnd: game.Unbounded}))
	require.NoError(t, reg.Play(game.Event{Kind: game.EventBPM, Resource: game.NoResource, Value: 150}))
	require.NoError(t, reg.Play(game.Event{Kind: game.EventMine, Resource: 1}))
	require.Zero(t, b.Plays)

	b.FailPlay = errors.New("device lost")
	err = reg.Play(game.Event{Kind: game.EventNote, Resource: 1, SliceEnd: game.Unbounded})
	require.ErrorIs(t, err, audio.ErrBackend)
	b.FailPlay = nil

	// muted for good, its neighbour unaffected
	require.NoError(t, reg.Play(game.Event{Kind: game.EventNote, Resource: 1, SliceEnd: game.Unbounded}))
	require.Zero(t, b.Plays)
	require.NoError(t, reg.Play(game.Event{Kind: game.EventBGM, Resource: 2, SliceEnd: game.Unbounded}))
	require.Equal(t, 1, b.Plays)
	require.Equal(t, 1, reg.Playing())
}

func TestRegistryUpdateAndEnd(t *testing.T) {
	b := fixture.NewBackend(rate)
	b.Lengths["a.wav"] = time.Second
	b.Lengths["b.wav"] = time.Second
	fs := vfs.NewMemory(map[string][]byte{"a.wav": []byte("a"), "b.wav": []byte("b")})
	reg := NewRegistry(b, fs, zaptest.NewLogger(t), 0)
	ctx := context.Background()

	created, err := reg.Sync(ctx, table(
		game.Resource{Kind: game.ResourceAudio, Index: 2, Path: "b.wav"},
		game.Resource{Kind: game.ResourceAudio, Index: 1, Path: "a.wav"},
	))
	require.NoError(t, err)
	require.NoError(t, reg.LoadAll(ctx, created))

	var ended []game.ResourceKey
	reg.OnEnd(func(key game.ResourceKey) { ended = append(ended, key) })

	require.NoError(t, reg.Play(game.Event{Kind: game.EventBGM, Resource: 2, SliceEnd: game.Unbounded}))
	require.NoError(t, reg.Play(game.Event{Kind: game.EventBGM, Resource: 1, SliceEnd: game.Unbounded}))

	require.NoError(t, reg.Pause())
	b.Advance(2 * time.Second)
	require.NoError(t, reg.Resume())
	require.Empty(t, ended)
	b.Advance(2 * time.Second)
	require.NoError(t, reg.Update(0))
	require.Equal(t, []game.ResourceKey{audioKey(1), audioKey(2)}, ended)

	// finished resources are not restarted by a resume
	plays := b.Plays
	require.NoError(t, reg.Pause())
	require.NoError(t, reg.Resume())
	require.Equal(t, plays, b.Plays)
	require.Zero(t, reg.Playing())

	require.NoError(t, reg.Clear())
	require.Zero(t, reg.Len())
	require.Zero(t, b.Live())
}
