package moderation

import (
	"log/slog"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

const replacementChar = '*'

// TestModerator_Censor
// The dictionary uses specific words to avoid partial collisions (e.g., "he" inside "The")
func TestModerator_Censor(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	dictionary := []string{"badger", "snake", "mushroom"}
	mod, err := New(dictionary, replacementChar, log)
	req.NoError(err)

	tests := []struct {
		name     string
		input    string
		expected string
		matches  int
	}{
		{
			name:     "Simple word and space preservation",
			input:    "The badger is here",
			expected: "The ****** is here",
			matches:  1,
		},
		{
			name:     "Multiple occurrences and preserved spacing",
			input:    "badger badger badger",
			expected: "****** ****** ******",
			matches:  3,
		},
		{
			name: "Leet speak and internal punctuation",
			// B (index 9) . 4 . d . g . € r (index 20) -> 10 characters
			input:    "Look at B.4.d.g.€r !",
			expected: "Look at ********** !",
			matches:  1,
		},
		{
			name:     "Uppercase and extreme noise",
			input:    "S-N-A-K-E is a B.A.D.G.E.R",
			expected: "********* is a ***********",
			matches:  2,
		},
		{
			name:     "Accents and special characters (UTF-8)",
			input:    "Un été avec un badger",
			expected: "Un été avec un ******",
			matches:  1,
		},
		{
			name:     "Clean message stays untouched",
			input:    "A perfectly polite sentence.",
			expected: "A perfectly polite sentence.",
			matches:  0,
		},
		{
			name:     "Empty input",
			input:    "",
			expected: "",
			matches:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			censored, matches := mod.Censor(tt.input)
			require.Equal(t, tt.expected, censored)
			require.Equal(t, tt.matches, matches)
		})
	}
}

func TestLoadWords_EmbeddedListsAreUsable(t *testing.T) {
	req := require.New(t)

	words, err := LoadWords()
	req.NoError(err)
	req.NotEmpty(words)
	// Comment lines never leak into the dictionary
	for _, w := range words {
		req.NotContains(w, "#")
	}

	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	mod, err := New(words, replacementChar, log)
	req.NoError(err)

	censored, matches := mod.Censor("that dicebot ruined the table")
	req.Equal(1, matches)
	req.Equal("that ******* ruined the table", censored)
}
