package contact

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Store suffixes marketplace nicknames carry that do not belong to the
// business name. Longer variants come first.
var storeSuffixes = []string{
	"_tienda_oficial", "_tiendaoficial", "_oficial", "_official",
	"_argentina", "_tienda", "_store", "_shop", "_ml",
}

// CleanSellerName turns a marketplace nickname into a business-name query:
// store suffixes removed, punctuation mapped to spaces, whitespace collapsed.
// Letters with diacritics are kept.
func CleanSellerName(name string) string {
	name = strings.TrimSpace(name)
	for {
		trimmed := false
		for _, s := range storeSuffixes {
			if len(name) > len(s) && strings.EqualFold(name[len(name)-len(s):], s) {
				name = name[:len(name)-len(s)]
				trimmed = true
				break
			}
		}
		if !trimmed {
			break
		}
	}

	t := transform.Chain(norm.NFC, runes.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}))
	out, _, err := transform.String(t, name)
	if err != nil {
		out = name
	}
	return strings.Join(strings.Fields(out), " ")
}

// memoKey folds case so "Tienda" and "TIENDA" share one lookup.
func memoKey(name string) string {
	return cases.Fold().String(strings.Join(strings.Fields(name), " "))
}
