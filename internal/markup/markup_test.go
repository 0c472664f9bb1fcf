// Package markup_test tests the triple-brace markup parser.
package markup_test

import (
	"testing"

	"github.com/book-expert/audiobook-service/internal/markup"
	"github.com/book-expert/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestParser(t *testing.T) *markup.Parser {
	t.Helper()

	log, err := logger.New(t.TempDir(), "markup-test.log")
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = log.Close()
	})

	return markup.NewParser(log)
}

func TestParse_EmptyInput(t *testing.T) {
	t.Parallel()

	parser := newTestParser(t)

	for _, input := range []string{"", "   ", "\n\t  \n"} {
		sections, err := parser.Parse(input)
		require.NoError(t, err)
		assert.Empty(t, sections)
	}
}

func TestParse_PlainTextWithoutVoice(t *testing.T) {
	t.Parallel()

	parser := newTestParser(t)

	sections, err := parser.Parse("plain text")
	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Equal(t, "plain text", sections[0].Text)
	assert.Empty(t, sections[0].Voice)
	assert.Nil(t, sections[0].Background)
}

func TestParse_VoiceCarryForward(t *testing.T) {
	t.Parallel()

	parser := newTestParser(t)

	sections, err := parser.Parse("{{{voice:a}}}X{{{voice:b}}}Y")
	require.NoError(t, err)
	require.Len(t, sections, 2)

	assert.Equal(t, "X", sections[0].Text)
	assert.Equal(t, "a", sections[0].Voice)
	assert.Equal(t, "Y", sections[1].Text)
	assert.Equal(t, "b", sections[1].Voice)
}

func TestParse_VoicePersistsAcrossSections(t *testing.T) {
	t.Parallel()

	parser := newTestParser(t)

	sections, err := parser.Parse("{{{voice:narrator}}}First.{{{sfx:door}}}Second.")
	require.NoError(t, err)
	require.Len(t, sections, 2)
	assert.Equal(t, "narrator", sections[0].Voice)
	assert.Equal(t, "narrator", sections[1].Voice)
}

func TestParse_BackgroundSpanClosing(t *testing.T) {
	t.Parallel()

	parser := newTestParser(t)

	sections, err := parser.Parse("{{{bg:music}}}P{{{bg:stop}}}Q")
	require.NoError(t, err)
	require.Len(t, sections, 2)

	require.NotNil(t, sections[0].Background)
	assert.Equal(t, "music", sections[0].Background.Name)
	assert.Nil(t, sections[1].Background)
}

func TestParse_UnknownCommandIsFatal(t *testing.T) {
	t.Parallel()

	parser := newTestParser(t)

	_, err := parser.Parse("{{{nope:x}}}text")
	require.Error(t, err)
	require.ErrorIs(t, err, markup.ErrMarkupSyntax)
	assert.Contains(t, err.Error(), "nope")
}

func TestParse_DirectiveWithoutColonIsFatal(t *testing.T) {
	t.Parallel()

	parser := newTestParser(t)

	_, err := parser.Parse("{{{justaword}}}text")
	require.ErrorIs(t, err, markup.ErrMarkupSyntax)
}

func TestParse_EmptyBracesAreLiteralText(t *testing.T) {
	t.Parallel()

	parser := newTestParser(t)

	sections, err := parser.Parse("{{{}}}")
	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Equal(t, "{{{}}}", sections[0].Text)
}

func TestParse_OptionCoercion(t *testing.T) {
	t.Parallel()

	parser := newTestParser(t)

	sections, err := parser.Parse("{{{bg:music,volume:0.5,loop:true}}}T")
	require.NoError(t, err)
	require.Len(t, sections, 1)
	require.NotNil(t, sections[0].Background)

	options := sections[0].Background.Options

	volume, ok := options["volume"]
	require.True(t, ok)
	assert.Equal(t, markup.OptionNumber, volume.Kind)
	assert.InEpsilon(t, 0.5, volume.Number, 1e-9)

	// "true" stays a string; there is no boolean coercion.
	loop, ok := options["loop"]
	require.True(t, ok)
	assert.Equal(t, markup.OptionText, loop.Kind)
	assert.Equal(t, "true", loop.Text)
}

func TestParse_SoundEffectsAccumulate(t *testing.T) {
	t.Parallel()

	parser := newTestParser(t)

	sections, err := parser.Parse("{{{voice:v}}}{{{sfx:door}}}{{{sfx:wind,start_at:250}}}Text here")
	require.NoError(t, err)
	require.Len(t, sections, 1)
	require.Len(t, sections[0].SoundEffects, 2)
	assert.Equal(t, "door", sections[0].SoundEffects[0].ID)
	assert.Equal(t, "wind", sections[0].SoundEffects[1].ID)

	startAt, ok := sections[0].SoundEffects[1].Options["start_at"]
	require.True(t, ok)
	assert.Equal(t, markup.OptionNumber, startAt.Kind)
	assert.InEpsilon(t, 250.0, startAt.Number, 1e-9)
}

func TestParse_TrailingEffectIsDropped(t *testing.T) {
	t.Parallel()

	parser := newTestParser(t)

	sections, err := parser.Parse("{{{voice:v}}}Hello{{{sfx:door}}}")
	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Empty(t, sections[0].SoundEffects)
}

func TestParse_Idempotent(t *testing.T) {
	t.Parallel()

	parser := newTestParser(t)
	input := "{{{voice:a}}}One.{{{bg:rain,volume:0.4}}}{{{sfx:door}}}Two.{{{bg:stop}}}Three."

	first, err := parser.Parse(input)
	require.NoError(t, err)

	second, err := parser.Parse(input)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestValidate_CleanMarkup(t *testing.T) {
	t.Parallel()

	parser := newTestParser(t)

	issues := parser.Validate("{{{voice:a}}}Hello{{{bg:stop}}}")
	assert.Empty(t, issues)
}

func TestValidate_UnmatchedBraces(t *testing.T) {
	t.Parallel()

	parser := newTestParser(t)

	issues := parser.Validate("{{{voice:a}}}Hello{{{bg:rain")
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0], "unmatched braces")
}

func TestValidate_ReportsBadDirectivesWithPosition(t *testing.T) {
	t.Parallel()

	parser := newTestParser(t)

	issues := parser.Validate("ok {{{bogus:x}}} more")
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0], "position 3")
	assert.Contains(t, issues[0], "bogus")
}

func TestParseDirective_Structure(t *testing.T) {
	t.Parallel()

	directive, err := markup.ParseDirective("bg:rain, volume:0.25 ,fade_in:500")
	require.NoError(t, err)
	assert.Equal(t, markup.CommandBackground, directive.Command)
	assert.Equal(t, "rain", directive.Value)

	volume := directive.Options["volume"]
	assert.Equal(t, markup.OptionNumber, volume.Kind)
	assert.InEpsilon(t, 0.25, volume.Number, 1e-9)

	fadeIn := directive.Options["fade_in"]
	assert.Equal(t, markup.OptionNumber, fadeIn.Kind)
	assert.InEpsilon(t, 500.0, fadeIn.Number, 1e-9)
}

func TestParseDirective_CommandIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	directive, err := markup.ParseDirective("VOICE: narrator ")
	require.NoError(t, err)
	assert.Equal(t, markup.CommandVoice, directive.Command)
	assert.Equal(t, "narrator", directive.Value)
}
