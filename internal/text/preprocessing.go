// Package text provides narration text preprocessing for the audiobook
// pipeline. Markup section text is normalized here before it reaches the
// speech backend.
package text

import (
	"regexp"
	"strings"
)

// Regex patterns for text preprocessing.
const (
	whitespaceRegexPattern = `\s+`
)

// Punctuation and formatting constants.
const (
	emDash         = "—"
	enDash         = "–"
	figureDash     = "‒"
	ellipsis       = "..."
	ellipsisChar   = "…"
	carriageReturn = "\r\n"
	lineFeed       = "\n"
	tabChar        = "\t"
	space          = " "
	commaSpace     = ", "
)

// Preprocessor normalizes narration text for speech synthesis.
type Preprocessor struct {
	whitespacePattern    *regexp.Regexp
	abbreviationReplacer *strings.Replacer
	punctuationReplacer  *strings.Replacer
}

// NewPreprocessor creates a preprocessor with compiled patterns and replacers.
func NewPreprocessor() *Preprocessor {
	abbreviations := []string{
		"Mr.", "Mister",
		"Mrs.", "Misses",
		"Ms.", "Miss",
		"Dr.", "Doctor",
		"St.", "Saint",
		"Co.", "Company",
		"Ltd.", "Limited",
		"Corp.", "Corporation",
		"Inc.", "Incorporated",
	}

	punctuation := []string{
		carriageReturn, space,
		lineFeed, space,
		tabChar, space,
		ellipsisChar, ellipsis,
		emDash, commaSpace,
		enDash, commaSpace,
		figureDash, commaSpace,
	}

	return &Preprocessor{
		whitespacePattern:    regexp.MustCompile(whitespaceRegexPattern),
		abbreviationReplacer: strings.NewReplacer(abbreviations...),
		punctuationReplacer:  strings.NewReplacer(punctuation...),
	}
}

// PreprocessText expands abbreviations, normalizes dashes, ellipses, and line
// breaks, and collapses runs of whitespace. Cheaper transformations run first.
func (p *Preprocessor) PreprocessText(input string) string {
	if input == "" {
		return input
	}

	normalized := p.abbreviationReplacer.Replace(input)
	normalized = p.punctuationReplacer.Replace(normalized)
	normalized = p.whitespacePattern.ReplaceAllString(normalized, space)

	return strings.TrimSpace(normalized)
}
