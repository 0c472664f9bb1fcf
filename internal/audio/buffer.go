// Package audio provides the in-memory PCM buffer model and the mixing
// primitives used by the audiobook renderer: decibel gain, fades, truncation,
// looping, and additive overlay.
package audio

import (
	"errors"
	"fmt"
	"math"
)

// PCM format constants.
const (
	// DefaultSampleRate is the sample rate of TTS output in Hz.
	DefaultSampleRate = 22050
	// DefaultChannels is the channel count of TTS output (1 = mono).
	DefaultChannels = 1
	// BitDepth is the bit depth per sample.
	BitDepth = 16
	// BytesPerSample is the number of bytes per sample.
	BytesPerSample = BitDepth / 8
)

const msPerSecond = 1000.0

// int16 quantization bounds.
const (
	sampleScale = 32767.0
	sampleMin   = -1.0
	sampleMax   = 1.0
)

// Common errors for the audio package.
var (
	// ErrNonPositiveVolume is returned when a linear volume of zero or less
	// reaches the decibel conversion. 20*log10(0) is undefined; the value
	// is rejected rather than clamped.
	ErrNonPositiveVolume = errors.New("volume must be greater than zero")
	// ErrFormatMismatch is returned when two buffers with different sample
	// rates or channel counts are combined.
	ErrFormatMismatch = errors.New("audio format mismatch")
)

// Buffer holds interleaved PCM samples in the linear [-1, 1] range.
type Buffer struct {
	SampleRate int
	Channels   int
	samples    []float64
}

// Silence allocates a buffer of the given duration filled with silence.
func Silence(durationMS float64, sampleRate, channels int) *Buffer {
	frames := framesForDuration(durationMS, sampleRate)

	return &Buffer{
		SampleRate: sampleRate,
		Channels:   channels,
		samples:    make([]float64, frames*channels),
	}
}

// FromSamples builds a buffer from interleaved samples in the [-1, 1] range.
func FromSamples(sampleRate, channels int, samples []float64) *Buffer {
	owned := make([]float64, len(samples))
	copy(owned, samples)

	return &Buffer{SampleRate: sampleRate, Channels: channels, samples: owned}
}

// Samples returns a copy of the interleaved samples.
func (b *Buffer) Samples() []float64 {
	out := make([]float64, len(b.samples))
	copy(out, b.samples)

	return out
}

// Frames returns the number of sample frames in the buffer.
func (b *Buffer) Frames() int {
	if b.Channels == 0 {
		return 0
	}

	return len(b.samples) / b.Channels
}

// DurationMS returns the buffer duration in floating-point milliseconds.
func (b *Buffer) DurationMS() float64 {
	if b.SampleRate == 0 {
		return 0
	}

	return float64(b.Frames()) / float64(b.SampleRate) * msPerSecond
}

// Clone returns an independent copy of the buffer.
func (b *Buffer) Clone() *Buffer {
	samples := make([]float64, len(b.samples))
	copy(samples, b.samples)

	return &Buffer{SampleRate: b.SampleRate, Channels: b.Channels, samples: samples}
}

// LinearGainDB converts a linear volume factor to a decibel level shift.
func LinearGainDB(linear float64) (float64, error) {
	if linear <= 0 {
		return 0, fmt.Errorf("%w: got %g", ErrNonPositiveVolume, linear)
	}

	return 20 * math.Log10(linear), nil
}

// ApplyGainDB applies a decibel level shift to every sample in place.
func (b *Buffer) ApplyGainDB(gainDB float64) {
	scale := math.Pow(10, gainDB/20)

	for i := range b.samples {
		b.samples[i] *= scale
	}
}

// FadeIn applies a linear fade from silence over the leading durationMS
// milliseconds. Durations of zero or less are a no-op.
func (b *Buffer) FadeIn(durationMS float64) {
	fadeFrames := b.clampedFadeFrames(durationMS)

	for frame := 0; frame < fadeFrames; frame++ {
		gain := float64(frame) / float64(fadeFrames)
		b.scaleFrame(frame, gain)
	}
}

// FadeOut applies a linear fade to silence over the trailing durationMS
// milliseconds. Durations of zero or less are a no-op.
func (b *Buffer) FadeOut(durationMS float64) {
	fadeFrames := b.clampedFadeFrames(durationMS)
	totalFrames := b.Frames()

	for i := 0; i < fadeFrames; i++ {
		gain := float64(i) / float64(fadeFrames)
		b.scaleFrame(totalFrames-1-i, gain)
	}
}

// Truncate shortens the buffer to at most durationMS milliseconds.
func (b *Buffer) Truncate(durationMS float64) {
	frames := framesForDuration(durationMS, b.SampleRate)
	if frames < b.Frames() {
		b.samples = b.samples[:frames*b.Channels]
	}
}

// LoopTo extends the buffer by concatenating copies of itself until the target
// duration is reached, truncating the final repetition's remainder. A target
// shorter than the source truncates instead.
func (b *Buffer) LoopTo(durationMS float64) {
	if len(b.samples) == 0 {
		return
	}

	targetSamples := framesForDuration(durationMS, b.SampleRate) * b.Channels
	if targetSamples <= len(b.samples) {
		b.samples = b.samples[:targetSamples]

		return
	}

	source := b.samples
	extended := make([]float64, targetSamples)

	for i := range extended {
		extended[i] = source[i%len(source)]
	}

	b.samples = extended
}

// Overlay mixes src additively into the buffer starting at the given offset.
// Samples of src that would fall past the end of the buffer are discarded.
// Both buffers must share sample rate and channel count.
func (b *Buffer) Overlay(src *Buffer, atMS float64) error {
	if src.SampleRate != b.SampleRate || src.Channels != b.Channels {
		return fmt.Errorf("%w: %d Hz/%d ch onto %d Hz/%d ch",
			ErrFormatMismatch, src.SampleRate, src.Channels, b.SampleRate, b.Channels)
	}

	offset := framesForDuration(atMS, b.SampleRate) * b.Channels

	for i, sample := range src.samples {
		position := offset + i
		if position >= len(b.samples) {
			break
		}

		b.samples[position] += sample
	}

	return nil
}

// clampedFadeFrames converts a fade duration to a frame count bounded by the
// buffer length.
func (b *Buffer) clampedFadeFrames(durationMS float64) int {
	if durationMS <= 0 {
		return 0
	}

	frames := framesForDuration(durationMS, b.SampleRate)
	if total := b.Frames(); frames > total {
		frames = total
	}

	return frames
}

func (b *Buffer) scaleFrame(frame int, gain float64) {
	base := frame * b.Channels
	for channel := 0; channel < b.Channels; channel++ {
		b.samples[base+channel] *= gain
	}
}

func framesForDuration(durationMS float64, sampleRate int) int {
	if durationMS <= 0 {
		return 0
	}

	return int(math.Round(durationMS / msPerSecond * float64(sampleRate)))
}
