// Package timeline turns ordered narration sections into a time-aligned list
// of audio events: one voice event per narrated section, one event per sound
// effect, and one event per background span.
package timeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/book-expert/audiobook-service/internal/audio"
	"github.com/book-expert/audiobook-service/internal/core"
	"github.com/book-expert/audiobook-service/internal/markup"
	"github.com/book-expert/logger"
)

// EventKind identifies what an event renders.
type EventKind string

// Event kinds.
const (
	EventVoice       EventKind = "voice"
	EventSoundEffect EventKind = "sfx"
	EventBackground  EventKind = "background"
)

// Option keys the scheduler interprets. Everything else is passed through to
// the mixer untouched.
const (
	optionStartAt = "start_at"
	optionVolume  = "volume"
)

const sectionPreviewLen = 50

// Static errors.
var (
	// ErrMissingVoice is returned when a section with narration text has no
	// voice in effect. Raised before any synthesis call is made for that
	// section.
	ErrMissingVoice = errors.New("no voice specified for section")
	// ErrInvalidVolume is returned for a numeric volume option of zero or
	// less; such values have no decibel representation.
	ErrInvalidVolume = errors.New("volume option must be greater than zero")
)

// Event is one scheduled audio asset placement. Events are created once per
// compile job, owned by that job, and read exactly once by the mixer.
type Event struct {
	StartMS float64
	Kind    EventKind
	Options markup.Options

	// Voice events carry the synthesized WAV bytes.
	Voice string
	Text  string
	Audio []byte

	// Sound effect events carry the library identifier.
	EffectID string

	// Background events carry the track name and the span length.
	Name   string
	SpanMS float64
}

// Scheduler walks sections in order and materializes events. Voice synthesis
// happens here because narration duration drives the running cursor.
type Scheduler struct {
	synth  core.Synthesizer
	params core.SynthesisParams
	log    *logger.Logger
}

// NewScheduler creates a scheduler around the given synthesis backend.
func NewScheduler(synth core.Synthesizer, params core.SynthesisParams, log *logger.Logger) *Scheduler {
	return &Scheduler{synth: synth, params: params, log: log}
}

// Schedule produces the ordered event list for the given sections.
//
// The cursor starts at 0 ms and advances by the duration of each synthesized
// narration buffer. Background spans are buffered rather than emitted
// immediately: their duration is only known once narration has advanced to
// the boundary that closes them.
func (s *Scheduler) Schedule(ctx context.Context, sections []markup.Section) ([]Event, error) {
	var (
		events    []Event
		openBG    *markup.Background
		openStart float64
	)

	cursor := 0.0

	for i, section := range sections {
		// Background boundaries resolve before anything else in the
		// section is scheduled.
		if !markup.BackgroundEqual(section.Background, openBG) {
			closed, err := closeBackgroundSpan(openBG, openStart, cursor)
			if err != nil {
				return nil, err
			}

			events = append(events, closed...)
			openBG = section.Background
			openStart = cursor
		}

		for _, effect := range section.SoundEffects {
			err := validateVolumeOption(effect.Options)
			if err != nil {
				return nil, fmt.Errorf("sound effect %q: %w", effect.ID, err)
			}

			events = append(events, Event{
				StartMS:  cursor + startOffsetMS(effect.Options),
				Kind:     EventSoundEffect,
				EffectID: effect.ID,
				Options:  effect.Options,
			})
		}

		if section.Text == "" {
			continue
		}

		if section.Voice == "" {
			return nil, fmt.Errorf("%w: %q", ErrMissingVoice, preview(section.Text))
		}

		wavData, err := s.synth.Synthesize(ctx, section.Text, section.Voice, s.params)
		if err != nil {
			return nil, fmt.Errorf("synthesis failed for section %d: %w", i, err)
		}

		buffer, err := audio.DecodeWAV(wavData)
		if err != nil {
			return nil, fmt.Errorf("undecodable synthesized audio for section %d: %w", i, err)
		}

		events = append(events, Event{
			StartMS: cursor,
			Kind:    EventVoice,
			Voice:   section.Voice,
			Text:    section.Text,
			Audio:   wavData,
		})

		cursor += buffer.DurationMS()
	}

	closed, err := closeBackgroundSpan(openBG, openStart, cursor)
	if err != nil {
		return nil, err
	}

	events = append(events, closed...)

	s.log.Info("Scheduled %d events across %d sections (%.0f ms)",
		len(events), len(sections), cursor)

	return events, nil
}

// closeBackgroundSpan materializes the open background span, if any. Spans
// that never covered narration have zero length and produce no event.
func closeBackgroundSpan(background *markup.Background, startMS, endMS float64) ([]Event, error) {
	if background == nil || endMS <= startMS {
		return nil, nil
	}

	err := validateVolumeOption(background.Options)
	if err != nil {
		return nil, fmt.Errorf("background %q: %w", background.Name, err)
	}

	return []Event{{
		StartMS: startMS,
		Kind:    EventBackground,
		Name:    background.Name,
		Options: background.Options,
		SpanMS:  endMS - startMS,
	}}, nil
}

func validateVolumeOption(options markup.Options) error {
	value, ok := options[optionVolume]
	if ok && value.Kind == markup.OptionNumber && value.Number <= 0 {
		return fmt.Errorf("%w: got %g", ErrInvalidVolume, value.Number)
	}

	return nil
}

func startOffsetMS(options markup.Options) float64 {
	value, ok := options[optionStartAt]
	if ok && value.Kind == markup.OptionNumber {
		return value.Number
	}

	return 0
}

func preview(text string) string {
	if len(text) > sectionPreviewLen {
		return text[:sectionPreviewLen] + "..."
	}

	return text
}
