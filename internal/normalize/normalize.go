// Package normalize maps raw field values to the canonical form used for
// every comparison between input and master data.
package normalize

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ppiankov/bufilter/internal/model"
)

// String lowercases s, trims it and collapses internal whitespace runs to
// a single space. String(String(s)) == String(s).
//
// No Unicode composition: NFC can map a caseless letter plus a combining
// mark to an uppercase letter, which a second pass lowercases again.
func String(s string) string {
	// cases.Caser keeps state and is not safe for concurrent use
	lower := cases.Lower(language.Und).String(s)
	return strings.Join(strings.Fields(lower), " ")
}

// Value normalizes a present value and passes the absent marker through unchanged
func Value(v model.Value) model.Value {
	s, ok := v.Get()
	if !ok {
		return v
	}
	return model.Of(String(s))
}

// Key returns the comparison key for v: "" for absent or blank values,
// the normalized string otherwise
func Key(v model.Value) string {
	return Value(v).String()
}

// IsBlank reports whether v is absent or empty after normalization
func IsBlank(v model.Value) bool {
	return Value(v).IsBlank()
}
