// Package moderation censors banned words in chat messages before
// they reach the room's chat log or any subscriber.
package moderation

import (
	"log/slog"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

type Moderator struct {
	log         *slog.Logger
	matcher     *goahocorasick.Machine
	replacement rune
}

// New builds the Aho-Corasick automaton over a normalized copy of the
// banned-word list.
func New(words []string, replacement rune, log *slog.Logger) (*Moderator, error) {
	patterns := make([][]rune, len(words))
	for i, w := range words {
		patterns[i] = normalize([]rune(w), nil)
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, err
	}
	return &Moderator{log: log, matcher: m, replacement: replacement}, nil
}

// Censor replaces every banned pattern with the replacement rune,
// preserving spacing and punctuation of the original text. Returns the
// censored text and the number of matches.
func (m *Moderator) Censor(original string) (string, int) {
	orig := []rune(original)
	var origIdx []int
	norm := normalize(orig, &origIdx)
	if len(norm) == 0 {
		return original, 0
	}

	spans := m.matcher.MultiPatternSearch(norm, false)
	if len(spans) == 0 {
		return original, 0
	}

	for _, span := range spans {
		start := span.Pos
		end := start + len(span.Word)
		if start < 0 || end > len(origIdx) {
			continue
		}
		// Blank out every original rune the normalized span covers,
		// including the noise characters in between.
		for i := origIdx[start]; i <= origIdx[end-1]; i++ {
			orig[i] = m.replacement
		}
	}
	return string(orig), len(spans)
}

// normalize lowercases, undoes common leet substitutions and strips
// punctuation/whitespace. When idx is non-nil it records, for each
// normalized rune, the index of the original rune it came from.
func normalize(in []rune, idx *[]int) []rune {
	out := make([]rune, 0, len(in))
	for i, r := range in {
		r = unleet(r)
		if unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r) {
			continue
		}
		out = append(out, unicode.ToLower(r))
		if idx != nil {
			*idx = append(*idx, i)
		}
	}
	return out
}

func unleet(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3', '€':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	default:
		return r
	}
}
