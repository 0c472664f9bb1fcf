// Package soundlib resolves sound effect and background track assets from a
// filesystem library.
//
// The library layout matches the upload convention of the web UI: each asset
// is an audio file stored next to an optional JSON metadata sidecar named
// after the asset id (e.g. door.wav + door.json). The sidecar carries the
// playback defaults a directive may override.
package soundlib

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/book-expert/audiobook-service/internal/core"
	"github.com/book-expert/audiobook-service/internal/fsutil"
	"github.com/book-expert/logger"
)

const (
	metadataExt     = ".json"
	defaultAssetExt = ".wav"

	defaultVolume = 1.0
)

// ErrAssetNotFound is returned when neither a metadata sidecar nor an audio
// file exists for the requested identifier.
var ErrAssetNotFound = errors.New("sound asset not found")

// soundMetadata is the JSON sidecar written by the upload endpoints. All
// fields are optional; absent values fall back to library defaults.
type soundMetadata struct {
	Filename   string   `json:"filename"`
	Volume     *float64 `json:"volume,omitempty"`
	FadeInMS   float64  `json:"fade_in_ms"`
	FadeOutMS  float64  `json:"fade_out_ms"`
	DurationMS float64  `json:"duration_ms"`
	Loop       *bool    `json:"loop,omitempty"`
}

// Library implements core.SoundLibrary over two asset directories.
type Library struct {
	sfxDir        string
	backgroundDir string
	log           *logger.Logger
}

// New creates a library rooted at the given directories, creating them if
// needed.
func New(sfxDir, backgroundDir string, log *logger.Logger) (*Library, error) {
	for _, dir := range []string{sfxDir, backgroundDir} {
		err := fsutil.EnsureDir(dir)
		if err != nil {
			return nil, fmt.Errorf("sound library directory: %w", err)
		}
	}

	log.Info("Sound library ready (sfx: %s, background: %s)", sfxDir, backgroundDir)

	return &Library{sfxDir: sfxDir, backgroundDir: backgroundDir, log: log}, nil
}

// ResolveSoundEffect looks up a sound effect by id and returns its path and
// playback defaults.
func (l *Library) ResolveSoundEffect(id string) (core.SoundEffectInfo, error) {
	path, meta, err := l.resolve(l.sfxDir, id)
	if err != nil {
		return core.SoundEffectInfo{}, err
	}

	return core.SoundEffectInfo{
		Path:              path,
		DefaultVolume:     volumeOrDefault(meta.Volume),
		DefaultFadeInMS:   meta.FadeInMS,
		DefaultFadeOutMS:  meta.FadeOutMS,
		DefaultDurationMS: meta.DurationMS,
	}, nil
}

// ResolveBackground looks up a background track by name. Background tracks
// loop by default.
func (l *Library) ResolveBackground(name string) (core.BackgroundInfo, error) {
	path, meta, err := l.resolve(l.backgroundDir, name)
	if err != nil {
		return core.BackgroundInfo{}, err
	}

	loop := true
	if meta.Loop != nil {
		loop = *meta.Loop
	}

	return core.BackgroundInfo{
		Path:             path,
		DefaultVolume:    volumeOrDefault(meta.Volume),
		DefaultFadeInMS:  meta.FadeInMS,
		DefaultFadeOutMS: meta.FadeOutMS,
		DefaultLoop:      loop,
	}, nil
}

// resolve finds the audio file and metadata for one asset id. Identifiers are
// sanitized so they cannot escape the library directory.
func (l *Library) resolve(dir, id string) (string, soundMetadata, error) {
	safeID := fsutil.SanitizeFilename(id)

	var meta soundMetadata

	metaPath := filepath.Join(dir, safeID+metadataExt)

	metaData, readErr := os.ReadFile(metaPath)
	if readErr == nil {
		parseErr := parseJSON(metaData, &meta)
		if parseErr != nil {
			return "", soundMetadata{}, fmt.Errorf("metadata for %q: %w", id, parseErr)
		}
	}

	filename := meta.Filename
	if filename == "" {
		filename = safeID + defaultAssetExt
	}

	path := filepath.Join(dir, filename)

	_, statErr := os.Stat(path)
	if statErr != nil {
		return "", soundMetadata{}, fmt.Errorf("%w: %q (looked for %s)", ErrAssetNotFound, id, path)
	}

	if !fsutil.IsValidAudioFile(path) {
		return "", soundMetadata{}, fmt.Errorf("%w: %q has no audio extension", ErrAssetNotFound, id)
	}

	return path, meta, nil
}

func volumeOrDefault(volume *float64) float64 {
	if volume == nil {
		return defaultVolume
	}

	return *volume
}

// parseJSON parses JSON data into the target interface.
func parseJSON(data []byte, target any) error {
	err := json.Unmarshal(data, target)
	if err != nil {
		return fmt.Errorf("failed to unmarshal JSON: %w", err)
	}

	return nil
}
