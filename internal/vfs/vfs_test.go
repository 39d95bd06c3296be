package vfs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCandidates(t *testing.T) {
	require.Equal(t, []string{"sub/a.wav", "sub/a.ogg", "sub/a.mp3", "sub/a.flac"}, Candidates(`sub\a.wav`))
	require.Equal(t, []string{"movie.mpg"}, Candidates("movie.mpg"))
}

func TestDirOpen(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "snd"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "snd", "Kick.OGG"), []byte("ogg"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "back.bmp"), []byte("bmp"), 0o644))

	d := NewDir(root)
	ctx := context.Background()

	e, err := d.Open(ctx, "back.bmp")
	require.NoError(t, err)
	require.True(t, e.IsReal())
	require.Equal(t, filepath.Join(root, "back.bmp"), e.FullPath())

	// declared as wav, shipped as ogg with another case
	e, err = d.Open(ctx, `snd\kick.wav`)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "snd", "Kick.OGG"), e.FullPath())
	data, err := e.ReadAllBytes(ctx)
	require.NoError(t, err)
	require.Equal(t, []byte("ogg"), data)

	_, err = d.Open(ctx, "missing.wav")
	require.True(t, IsNotExist(err))
}

func TestOpenOutsideRoot(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "song")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "snd"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(parent, "secret.wav"), []byte("no"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "kick.wav"), []byte("kick"), 0o644))

	ctx := context.Background()
	for _, fs := range []FileSystem{NewDir(root), NewMemory(map[string][]byte{"kick.wav": []byte("kick")})} {
		for _, name := range []string{"../secret.wav", `..\secret.wav`, `snd\..\..\secret.wav`, "/secret.wav"} {
			_, err := fs.Open(ctx, name)
			require.ErrorIs(t, err, ErrOutsideRoot, name)
			require.True(t, IsNotExist(err), name)
		}
		// .. that stays inside is fine
		_, err := fs.Open(ctx, `snd\..\kick.wav`)
		require.NoError(t, err)
	}
}

func TestMemoryOpen(t *testing.T) {
	m := NewMemory(map[string][]byte{"A.ogg": []byte("a")})
	ctx := context.Background()

	e, err := m.Open(ctx, "a.wav")
	require.NoError(t, err)
	require.False(t, e.IsReal())
	data, err := e.ReadAllBytes(ctx)
	require.NoError(t, err)
	require.Equal(t, []byte("a"), data)
	require.Equal(t, 1, m.Reads)

	_, err = m.Open(ctx, "b.wav")
	require.ErrorIs(t, err, ErrNotExist)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = e.ReadAllBytes(canceled)
	require.ErrorIs(t, err, context.Canceled)
}

func TestParseObjectURL(t *testing.T) {
	bucket, dir, name, err := ParseObjectURL("s3://charts/pack/song/chart.bms")
	require.NoError(t, err)
	require.Equal(t, "charts", bucket)
	require.Equal(t, "pack/song", dir)
	require.Equal(t, "chart.bms", name)

	_, _, _, err = ParseObjectURL("/tmp/chart.bms")
	require.Error(t, err)
}
