// Package text_test tests narration text preprocessing.
package text_test

import (
	"testing"

	"github.com/book-expert/audiobook-service/internal/text"
	"github.com/stretchr/testify/assert"
)

func TestPreprocessText(t *testing.T) {
	t.Parallel()

	preprocessor := text.NewPreprocessor()

	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
		{
			name:     "plain text unchanged",
			input:    "A quiet evening.",
			expected: "A quiet evening.",
		},
		{
			name:     "abbreviations expanded",
			input:    "Mr. Smith met Dr. Jones at St. Mary's.",
			expected: "Mister Smith met Doctor Jones at Saint Mary's.",
		},
		{
			name:     "line breaks collapse to spaces",
			input:    "First line.\r\nSecond line.\nThird\tline.",
			expected: "First line. Second line. Third line.",
		},
		{
			name:     "ellipsis character normalized",
			input:    "He paused… then spoke.",
			expected: "He paused... then spoke.",
		},
		{
			name:     "em dash becomes comma pause",
			input:    "The door—old and heavy—creaked.",
			expected: "The door, old and heavy, creaked.",
		},
		{
			name:     "whitespace runs collapse",
			input:    "  too   many    spaces  ",
			expected: "too many spaces",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, testCase.expected, preprocessor.PreprocessText(testCase.input))
		})
	}
}
