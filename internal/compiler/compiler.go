// Package compiler runs the full audiobook pipeline: markup parsing, timeline
// scheduling, asset resolution, and the final mix into one WAV render.
package compiler

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/book-expert/audiobook-service/internal/audio"
	"github.com/book-expert/audiobook-service/internal/core"
	"github.com/book-expert/audiobook-service/internal/markup"
	"github.com/book-expert/audiobook-service/internal/text"
	"github.com/book-expert/audiobook-service/internal/timeline"
	"github.com/book-expert/logger"
)

// Option keys the mixer recognizes on sfx and background directives. Unknown
// keys are carried through the pipeline and ignored here.
const (
	optionVolume   = "volume"
	optionFadeIn   = "fade_in"
	optionFadeOut  = "fade_out"
	optionDuration = "duration"
	optionLoop     = "loop"
)

// Loop option literals. The option value is a string by design (no boolean
// coercion in the markup layer); anything other than these two literals leaves
// the library default in force.
const (
	loopEnabled  = "true"
	loopDisabled = "false"
)

// Static errors.
var (
	// ErrNoSections is returned when the markup contains no narration at
	// all.
	ErrNoSections = errors.New("no valid sections found in markup")
	// ErrEmptyRender is returned when every event resolved to nothing.
	ErrEmptyRender = errors.New("render produced no audio")
	// ErrUnknownEventKind indicates a scheduler/mixer contract violation.
	ErrUnknownEventKind = errors.New("unknown event kind")
)

// Result carries the rendered audio and the job's bookkeeping. SkippedAssets
// counts sfx/background events dropped by the partial-failure policy; it is an
// annotation, not an error.
type Result struct {
	Audio         []byte
	Sections      int
	Events        int
	SkippedAssets int
	DurationMS    float64
}

// Compiler compiles triple-brace markup into a single WAV render. One
// Compiler serves any number of sequential jobs; each Compile call owns its
// sections and events exclusively.
type Compiler struct {
	parser       *markup.Parser
	preprocessor *text.Preprocessor
	scheduler    *timeline.Scheduler
	library      core.SoundLibrary
	log          *logger.Logger
}

// New creates a compiler around the given synthesis backend and sound library.
func New(
	synth core.Synthesizer,
	library core.SoundLibrary,
	params core.SynthesisParams,
	log *logger.Logger,
) *Compiler {
	return &Compiler{
		parser:       markup.NewParser(log),
		preprocessor: text.NewPreprocessor(),
		scheduler:    timeline.NewScheduler(synth, params, log),
		library:      library,
		log:          log,
	}
}

// Validate syntax-checks markup without compiling it.
func (c *Compiler) Validate(markupText string) []string {
	return c.parser.Validate(markupText)
}

// Compile parses, schedules, and renders the markup into one encoded WAV.
//
// Markup, missing-voice, and synthesis errors abort the job with no partial
// output. A sound effect or background track that fails to resolve is logged
// and skipped; the render completes with the remaining events and the timeline
// does not shift.
func (c *Compiler) Compile(ctx context.Context, markupText string) (*Result, error) {
	sections, err := c.parser.Parse(markupText)
	if err != nil {
		return nil, fmt.Errorf("markup parsing failed: %w", err)
	}

	if len(sections) == 0 {
		return nil, ErrNoSections
	}

	for i := range sections {
		sections[i].Text = c.preprocessor.PreprocessText(sections[i].Text)
	}

	events, err := c.scheduler.Schedule(ctx, sections)
	if err != nil {
		return nil, err
	}

	result, err := c.render(events)
	if err != nil {
		return nil, err
	}

	result.Sections = len(sections)
	result.Events = len(events)

	c.log.Info("Audiobook compile completed: %d sections, %d events, %d skipped, %.0f ms",
		result.Sections, result.Events, result.SkippedAssets, result.DurationMS)

	return result, nil
}

// placement is one processed buffer pinned to its start offset.
type placement struct {
	buffer  *audio.Buffer
	startMS float64
}

// render resolves every event into a processed buffer, sizes the output to the
// maximum end time, and overlays everything additively.
func (c *Compiler) render(events []timeline.Event) (*Result, error) {
	placements := make([]placement, 0, len(events))
	skipped := 0

	for _, event := range events {
		buffer, err := c.resolveEvent(event)
		if err != nil {
			if event.Kind == timeline.EventVoice {
				return nil, fmt.Errorf("voice event at %.0f ms: %w", event.StartMS, err)
			}

			// Losing a sound effect or background track degrades the
			// render; losing narration would abort it above.
			c.log.Warn("Skipping %s event at %.0f ms: %v", event.Kind, event.StartMS, err)

			skipped++

			continue
		}

		placements = append(placements, placement{buffer: buffer, startMS: event.StartMS})
	}

	if len(placements) == 0 {
		return nil, ErrEmptyRender
	}

	reference := placements[0].buffer
	maxEndMS := 0.0

	for _, p := range placements {
		if end := p.startMS + p.buffer.DurationMS(); end > maxEndMS {
			maxEndMS = end
		}
	}

	output := audio.Silence(maxEndMS, reference.SampleRate, reference.Channels)

	for _, p := range placements {
		err := output.Overlay(p.buffer, p.startMS)
		if err != nil {
			c.log.Warn("Skipping buffer at %.0f ms: %v", p.startMS, err)

			skipped++
		}
	}

	return &Result{
		Audio:         output.EncodeWAV(),
		Sections:      0,
		Events:        0,
		SkippedAssets: skipped,
		DurationMS:    output.DurationMS(),
	}, nil
}

// resolveEvent turns one event into its processed buffer: decode, decibel
// gain, fade-in, fade-out, then the per-kind truncation or looping.
func (c *Compiler) resolveEvent(event timeline.Event) (*audio.Buffer, error) {
	switch event.Kind {
	case timeline.EventVoice:
		buffer, err := audio.DecodeWAV(event.Audio)
		if err != nil {
			return nil, fmt.Errorf("decode synthesized audio: %w", err)
		}

		return buffer, nil
	case timeline.EventSoundEffect:
		return c.resolveSoundEffect(event)
	case timeline.EventBackground:
		return c.resolveBackground(event)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventKind, event.Kind)
	}
}

func (c *Compiler) resolveSoundEffect(event timeline.Event) (*audio.Buffer, error) {
	info, err := c.library.ResolveSoundEffect(event.EffectID)
	if err != nil {
		return nil, fmt.Errorf("resolve sound effect %q: %w", event.EffectID, err)
	}

	buffer, err := loadAsset(info.Path)
	if err != nil {
		return nil, fmt.Errorf("load sound effect %q: %w", event.EffectID, err)
	}

	err = applyLevels(buffer, event.Options, info.DefaultVolume,
		info.DefaultFadeInMS, info.DefaultFadeOutMS)
	if err != nil {
		return nil, fmt.Errorf("sound effect %q: %w", event.EffectID, err)
	}

	durationMS := numberOption(event.Options, optionDuration, info.DefaultDurationMS)
	if durationMS > 0 {
		buffer.Truncate(durationMS)
	}

	return buffer, nil
}

func (c *Compiler) resolveBackground(event timeline.Event) (*audio.Buffer, error) {
	info, err := c.library.ResolveBackground(event.Name)
	if err != nil {
		return nil, fmt.Errorf("resolve background %q: %w", event.Name, err)
	}

	buffer, err := loadAsset(info.Path)
	if err != nil {
		return nil, fmt.Errorf("load background %q: %w", event.Name, err)
	}

	err = applyLevels(buffer, event.Options, info.DefaultVolume,
		info.DefaultFadeInMS, info.DefaultFadeOutMS)
	if err != nil {
		return nil, fmt.Errorf("background %q: %w", event.Name, err)
	}

	if backgroundLoop(event.Options, info.DefaultLoop) {
		buffer.LoopTo(event.SpanMS)
	} else {
		buffer.Truncate(event.SpanMS)
	}

	return buffer, nil
}

func loadAsset(path string) (*audio.Buffer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read asset file: %w", err)
	}

	buffer, err := audio.DecodeWAV(data)
	if err != nil {
		return nil, fmt.Errorf("decode asset file %s: %w", path, err)
	}

	return buffer, nil
}

// applyLevels applies volume and fades, markup options overriding library
// defaults.
func applyLevels(
	buffer *audio.Buffer,
	options markup.Options,
	defaultVolume, defaultFadeInMS, defaultFadeOutMS float64,
) error {
	volume := numberOption(options, optionVolume, defaultVolume)

	gainDB, err := audio.LinearGainDB(volume)
	if err != nil {
		return err
	}

	buffer.ApplyGainDB(gainDB)
	buffer.FadeIn(numberOption(options, optionFadeIn, defaultFadeInMS))
	buffer.FadeOut(numberOption(options, optionFadeOut, defaultFadeOutMS))

	return nil
}

func numberOption(options markup.Options, key string, fallback float64) float64 {
	value, ok := options[key]
	if ok && value.Kind == markup.OptionNumber {
		return value.Number
	}

	return fallback
}

func backgroundLoop(options markup.Options, fallback bool) bool {
	value, ok := options[optionLoop]
	if !ok || value.Kind != markup.OptionText {
		return fallback
	}

	switch value.Text {
	case loopEnabled:
		return true
	case loopDisabled:
		return false
	default:
		return fallback
	}
}
