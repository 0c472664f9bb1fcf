// Package soundlib_test tests the filesystem sound library.
package soundlib_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/book-expert/audiobook-service/internal/soundlib"
	"github.com/book-expert/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLibrary(t *testing.T) (*soundlib.Library, string, string) {
	t.Helper()

	sfxDir := t.TempDir()
	backgroundDir := t.TempDir()

	log, err := logger.New(t.TempDir(), "soundlib-test.log")
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = log.Close()
	})

	library, err := soundlib.New(sfxDir, backgroundDir, log)
	require.NoError(t, err)

	return library, sfxDir, backgroundDir
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()

	err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600)
	require.NoError(t, err)
}

func TestResolveSoundEffect_WithMetadata(t *testing.T) {
	t.Parallel()

	library, sfxDir, _ := newTestLibrary(t)
	writeFile(t, sfxDir, "door.wav", "fake audio")
	writeFile(t, sfxDir, "door.json",
		`{"filename":"door.wav","volume":0.8,"fade_in_ms":50,"fade_out_ms":100,"duration_ms":1500}`)

	info, err := library.ResolveSoundEffect("door")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(sfxDir, "door.wav"), info.Path)
	assert.InEpsilon(t, 0.8, info.DefaultVolume, 1e-9)
	assert.InEpsilon(t, 50.0, info.DefaultFadeInMS, 1e-9)
	assert.InEpsilon(t, 100.0, info.DefaultFadeOutMS, 1e-9)
	assert.InEpsilon(t, 1500.0, info.DefaultDurationMS, 1e-9)
}

func TestResolveSoundEffect_WithoutMetadataUsesDefaults(t *testing.T) {
	t.Parallel()

	library, sfxDir, _ := newTestLibrary(t)
	writeFile(t, sfxDir, "chime.wav", "fake audio")

	info, err := library.ResolveSoundEffect("chime")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(sfxDir, "chime.wav"), info.Path)
	assert.InEpsilon(t, 1.0, info.DefaultVolume, 1e-9)
	assert.Zero(t, info.DefaultFadeInMS)
	assert.Zero(t, info.DefaultDurationMS)
}

func TestResolveSoundEffect_NotFound(t *testing.T) {
	t.Parallel()

	library, _, _ := newTestLibrary(t)

	_, err := library.ResolveSoundEffect("missing")
	require.ErrorIs(t, err, soundlib.ErrAssetNotFound)
}

func TestResolveBackground_LoopDefaultsTrue(t *testing.T) {
	t.Parallel()

	library, _, backgroundDir := newTestLibrary(t)
	writeFile(t, backgroundDir, "rain.wav", "fake audio")

	info, err := library.ResolveBackground("rain")
	require.NoError(t, err)
	assert.True(t, info.DefaultLoop)
}

func TestResolveBackground_LoopOverride(t *testing.T) {
	t.Parallel()

	library, _, backgroundDir := newTestLibrary(t)
	writeFile(t, backgroundDir, "intro.wav", "fake audio")
	writeFile(t, backgroundDir, "intro.json", `{"filename":"intro.wav","volume":0.4,"loop":false}`)

	info, err := library.ResolveBackground("intro")
	require.NoError(t, err)
	assert.False(t, info.DefaultLoop)
	assert.InEpsilon(t, 0.4, info.DefaultVolume, 1e-9)
}

func TestResolve_CorruptMetadata(t *testing.T) {
	t.Parallel()

	library, sfxDir, _ := newTestLibrary(t)
	writeFile(t, sfxDir, "bad.wav", "fake audio")
	writeFile(t, sfxDir, "bad.json", "{not json")

	_, err := library.ResolveSoundEffect("bad")
	require.Error(t, err)
}

func TestResolve_SanitizesIdentifiers(t *testing.T) {
	t.Parallel()

	library, _, _ := newTestLibrary(t)

	// Path separators are replaced, so traversal attempts just miss.
	_, err := library.ResolveSoundEffect("../../etc/passwd")
	require.ErrorIs(t, err, soundlib.ErrAssetNotFound)
}
