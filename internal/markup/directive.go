package markup

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Command identifies the kind of a parsed directive.
type Command string

// Directive commands recognized inside triple braces.
const (
	CommandVoice       Command = "voice"
	CommandSoundEffect Command = "sfx"
	CommandBackground  Command = "bg"
)

// The background directive value that closes the active span.
const backgroundStopValue = "stop"

// ErrMarkupSyntax is returned for any malformed or unknown directive. It is
// fatal to the whole compile job.
var ErrMarkupSyntax = errors.New("invalid audiobook markup")

// Error message formats.
const (
	errFmtDirectiveFormat = "%w: directive %q has no command:value structure"
	errFmtUnknownCommand  = "%w: unknown markup command %q"
)

// optionPattern matches one key:value pair inside a directive's option list.
var optionPattern = regexp.MustCompile(`(\w+):([^,]+)`)

// OptionKind discriminates the two representations an option value can take.
type OptionKind int

// Option value kinds.
const (
	OptionNumber OptionKind = iota
	OptionText
)

// OptionValue is a tagged union for directive option values. Values that parse
// as a floating point number are stored as numbers; everything else stays a
// trimmed string. There is deliberately no boolean coercion: "true" remains
// text.
type OptionValue struct {
	Kind   OptionKind
	Number float64
	Text   string
}

// NumberOption builds a numeric option value.
func NumberOption(v float64) OptionValue {
	return OptionValue{Kind: OptionNumber, Number: v, Text: ""}
}

// TextOption builds a textual option value.
func TextOption(s string) OptionValue {
	return OptionValue{Kind: OptionText, Number: 0, Text: s}
}

// Equal reports whether two option values have the same kind and payload.
func (v OptionValue) Equal(other OptionValue) bool {
	if v.Kind != other.Kind {
		return false
	}

	if v.Kind == OptionNumber {
		return v.Number == other.Number
	}

	return v.Text == other.Text
}

// Options holds the key-agnostic option pairs of a directive.
type Options map[string]OptionValue

// Equal reports whether two option maps hold the same keys and values.
func (o Options) Equal(other Options) bool {
	if len(o) != len(other) {
		return false
	}

	for key, value := range o {
		otherValue, ok := other[key]
		if !ok || !value.Equal(otherValue) {
			return false
		}
	}

	return true
}

// Directive is the transient result of interpreting one triple-brace body. It
// is never persisted.
type Directive struct {
	Command Command
	Value   string
	Options Options
}

// ParseDirective interprets a single directive body (the text between the
// triple braces) into a typed Directive.
//
// The body is split on the first colon into command and value; if the value
// part contains a comma, everything after the first comma is parsed as
// key:value option pairs. Unknown commands are rejected rather than ignored so
// content errors surface early.
func ParseDirective(body string) (Directive, error) {
	commandPart, rest, found := strings.Cut(body, ":")
	if !found {
		return Directive{}, fmt.Errorf(errFmtDirectiveFormat, ErrMarkupSyntax, body)
	}

	command := Command(strings.ToLower(strings.TrimSpace(commandPart)))

	switch command {
	case CommandVoice, CommandSoundEffect, CommandBackground:
	default:
		return Directive{}, fmt.Errorf(errFmtUnknownCommand, ErrMarkupSyntax, string(command))
	}

	value := strings.TrimSpace(rest)
	options := Options{}

	if before, optionPart, hasOptions := strings.Cut(value, ","); hasOptions {
		value = strings.TrimSpace(before)

		for _, match := range optionPattern.FindAllStringSubmatch(optionPart, -1) {
			key := strings.TrimSpace(match[1])
			options[key] = coerceOptionValue(match[2])
		}
	}

	return Directive{Command: command, Value: value, Options: options}, nil
}

// coerceOptionValue attempts a numeric parse and falls back to the trimmed
// string.
func coerceOptionValue(raw string) OptionValue {
	trimmed := strings.TrimSpace(raw)

	number, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return TextOption(trimmed)
	}

	return NumberOption(number)
}
