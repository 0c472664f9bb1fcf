// Package core defines the core business logic and interfaces for the
// audiobook service.
package core

import "context"

// ObjectStore defines the interface for interacting with a key-value blob store.
type ObjectStore interface {
	Download(ctx context.Context, key string) ([]byte, error)
	Upload(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// SynthesisParams holds the per-request tuning knobs passed through to the
// text-to-speech backend.
type SynthesisParams struct {
	Language    string
	Temperature float64
}

// Synthesizer defines the interface for a text-to-speech backend. The returned
// bytes are a complete WAV (PCM) rendering of the given text in the given
// voice.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice string, params SynthesisParams) ([]byte, error)
}

// SoundEffectInfo describes a sound effect asset and the defaults applied when
// a directive does not override them.
type SoundEffectInfo struct {
	Path              string
	DefaultVolume     float64
	DefaultFadeInMS   float64
	DefaultFadeOutMS  float64
	DefaultDurationMS float64
}

// BackgroundInfo describes a background track asset and its playback defaults.
type BackgroundInfo struct {
	Path             string
	DefaultVolume    float64
	DefaultFadeInMS  float64
	DefaultFadeOutMS float64
	DefaultLoop      bool
}

// SoundLibrary defines the interface for resolving sound effect and background
// track assets by their library identifiers.
type SoundLibrary interface {
	ResolveSoundEffect(id string) (SoundEffectInfo, error)
	ResolveBackground(name string) (BackgroundInfo, error)
}
