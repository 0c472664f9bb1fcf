// Package markup parses the triple-brace audiobook markup syntax into ordered
// narration sections.
//
// Syntax:
//
//	{{{voice:narrator}}}
//	{{{sfx:door_slam,start_at:250}}}
//	{{{bg:rain,volume:0.4,loop:true}}}
//	{{{bg:stop}}}
//
// Voice and background state are carried forward across sections until
// overridden (or, for background, explicitly stopped). Sound effects
// accumulate until the next non-empty text span closes a section.
package markup

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/book-expert/logger"
)

// markupPattern extracts one directive body. Nested or empty braces do not
// match and are treated as literal text.
var markupPattern = regexp.MustCompile(`\{\{\{([^}]+)\}\}\}`)

// Brace tokens used for the advisory balance check.
const (
	openBraces  = "{{{"
	closeBraces = "}}}"
)

// SoundEffect is one effect attached to a section.
type SoundEffect struct {
	ID      string
	Options Options
}

// Background is the background track state in effect at a section's start.
type Background struct {
	Name    string
	Options Options
}

// BackgroundEqual compares two background states by value, treating nil as a
// distinct state. Consecutive identical directives therefore do not split a
// span.
func BackgroundEqual(a, b *Background) bool {
	if a == nil || b == nil {
		return a == b
	}

	return a.Name == b.Name && a.Options.Equal(b.Options)
}

// Section is one contiguous span of narration text together with the directive
// state active at its start. Voice is empty when no voice directive has been
// seen; scheduling rejects such sections if they carry text.
type Section struct {
	Text         string
	Voice        string
	SoundEffects []SoundEffect
	Background   *Background
}

// Parser turns markup text into sections. The scan state lives entirely inside
// each Parse call, so one Parser may serve any number of independent jobs.
type Parser struct {
	log *logger.Logger
}

// NewParser creates a markup parser.
func NewParser(log *logger.Logger) *Parser {
	return &Parser{log: log}
}

// parseState is the fold state threaded through one scan.
type parseState struct {
	voice      string
	background *Background
	pendingSFX []SoundEffect
}

// Parse splits the text on triple-brace directives and folds the alternating
// text and directive spans into sections. Empty or whitespace-only input
// yields an empty section list. Directive errors carry the byte offset of the
// offending fragment.
func (p *Parser) Parse(text string) ([]Section, error) {
	if strings.TrimSpace(text) == "" {
		return []Section{}, nil
	}

	var (
		sections []Section
		pending  strings.Builder
		state    parseState
	)

	last := 0

	for _, match := range markupPattern.FindAllStringSubmatchIndex(text, -1) {
		pending.WriteString(text[last:match[0]])
		last = match[1]

		if trimmed := strings.TrimSpace(pending.String()); trimmed != "" {
			sections = append(sections, newSection(trimmed, &state))
			pending.Reset()
		}

		applyErr := p.applyDirective(text[match[2]:match[3]], match[0], &state)
		if applyErr != nil {
			return nil, applyErr
		}
	}

	pending.WriteString(text[last:])

	if trimmed := strings.TrimSpace(pending.String()); trimmed != "" {
		sections = append(sections, newSection(trimmed, &state))
	} else if len(state.pendingSFX) > 0 {
		// A trailing sfx directive with no narration after it never
		// materializes. Kept for compatibility with existing content;
		// surfaced as a warning so authors can spot it.
		p.log.Warn("Dropping %d sound effect(s) with no following text: %s",
			len(state.pendingSFX), effectIDs(state.pendingSFX))
	}

	return sections, nil
}

// newSection closes out the accumulated text span, copying the effect
// accumulator and resetting it.
func newSection(text string, state *parseState) Section {
	effects := make([]SoundEffect, len(state.pendingSFX))
	copy(effects, state.pendingSFX)
	state.pendingSFX = nil

	return Section{
		Text:         text,
		Voice:        state.voice,
		SoundEffects: effects,
		Background:   state.background,
	}
}

// applyDirective interprets one directive body and folds its effect into the
// scan state.
func (p *Parser) applyDirective(body string, position int, state *parseState) error {
	directive, err := ParseDirective(body)
	if err != nil {
		return fmt.Errorf("at byte %d: %w", position, err)
	}

	switch directive.Command {
	case CommandVoice:
		state.voice = directive.Value
	case CommandSoundEffect:
		state.pendingSFX = append(state.pendingSFX, SoundEffect{
			ID:      directive.Value,
			Options: directive.Options,
		})
	case CommandBackground:
		if strings.EqualFold(directive.Value, backgroundStopValue) {
			state.background = nil
		} else {
			state.background = &Background{
				Name:    directive.Value,
				Options: directive.Options,
			}
		}
	}

	return nil
}

// Validate syntax-checks the markup without executing directive semantics and
// returns advisory issue messages. Callers use it before committing to a
// compile.
func (p *Parser) Validate(text string) []string {
	var issues []string

	openCount := strings.Count(text, openBraces)
	closeCount := strings.Count(text, closeBraces)

	if openCount != closeCount {
		issues = append(issues, fmt.Sprintf(
			"unmatched braces: %d opening, %d closing", openCount, closeCount))
	}

	for _, match := range markupPattern.FindAllStringSubmatchIndex(text, -1) {
		_, err := ParseDirective(text[match[2]:match[3]])
		if err != nil {
			issues = append(issues, fmt.Sprintf(
				"invalid markup at position %d: %v", match[0], err))
		}
	}

	return issues
}

func effectIDs(effects []SoundEffect) string {
	ids := make([]string, len(effects))
	for i, effect := range effects {
		ids[i] = effect.ID
	}

	return strings.Join(ids, ", ")
}
