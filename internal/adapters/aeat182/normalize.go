package aeat182

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripAccents removes combining diacritics after NFD decomposition, except
// the tilde and cedilla so Ñ and Ç survive (both are valid form characters).
// Transformers carry state, so each call builds its own chain.
func stripAccents() transform.Transformer {
	return transform.Chain(
		norm.NFD,
		runes.Remove(runes.Predicate(func(r rune) bool {
			if r == '̃' || r == '̧' { // combining tilde, combining cedilla
				return false
			}
			return unicode.Is(unicode.Mn, r)
		})),
		norm.NFC,
	)
}

// Normalize strips diacritics from s for the single-byte form charset.
func Normalize(s string) string {
	out, _, err := transform.String(stripAccents(), s)
	if err != nil {
		// NFD/NFC cannot fail on valid UTF-8; fall back to the input.
		return s
	}
	return out
}

// latinize prepares a field value for the flat file: strip accents,
// uppercase, then encode to ISO-8859-1. A character that survives
// normalization but has no Latin-1 representation is a hard error, never a
// silent substitution.
func latinize(s string) ([]byte, error) {
	upper := strings.ToUpper(Normalize(s))
	out, _, err := transform.Bytes(charmap.ISO8859_1.NewEncoder(), []byte(upper))
	if err != nil {
		return nil, fmt.Errorf("aeat182: text not representable in ISO-8859-1: %w", err)
	}
	return out, nil
}
