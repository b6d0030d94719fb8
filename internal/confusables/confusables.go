// Package confusables implements UTS#39-style skeletonization: characters
// from non-Latin scripts that are visually indistinguishable from Latin
// letters are folded to their Latin equivalent after NFKC normalization, so
// that two strings which render identically also compare equal. This is a
// curated subset of the Unicode confusables table (Cyrillic, Greek,
// Armenian, Cherokee, Latin Extended small-caps, and emoji/regional-indicator
// lookalikes) — not the full confusables.txt, since those scripts cover the
// overwhelming majority of homoglyph attacks seen in prompt text.
package confusables

import (
	"strings"
	"sync"

	"golang.org/x/text/unicode/norm"
)

// table maps a single code point to its skeleton replacement. Lookup is by
// rune, not by longest matching sequence, since none of the entries below
// are multi-rune in the source script.
var table = map[rune]rune{
	// Cyrillic uppercase
	'А': 'A', 'В': 'B', 'С': 'C', 'Е': 'E', 'Н': 'H',
	'І': 'I', 'Ј': 'J', 'К': 'K', 'М': 'M', 'О': 'O',
	'Р': 'P', 'Ѕ': 'S', 'Т': 'T', 'Х': 'X',
	// Cyrillic lowercase
	'а': 'a', 'в': 'v', 'е': 'e', 'н': 'h', 'і': 'i',
	'к': 'k', 'м': 'm', 'о': 'o', 'р': 'p', 'с': 'c',
	'т': 't', 'у': 'y', 'х': 'x', 'ј': 'j', 'ѕ': 's',
	// Greek uppercase
	'Α': 'A', 'Β': 'B', 'Ε': 'E', 'Ζ': 'Z', 'Η': 'H',
	'Ι': 'I', 'Κ': 'K', 'Μ': 'M', 'Ν': 'N', 'Ο': 'O',
	'Ρ': 'P', 'Τ': 'T', 'Υ': 'Y', 'Χ': 'X',
	// Greek lowercase
	'α': 'a', 'ε': 'e', 'ι': 'i', 'κ': 'k', 'ν': 'v',
	'ο': 'o',
	// Armenian
	'Օ': 'O', 'օ': 'o', 'Ս': 'S', 'ս': 's', 'Ռ': 'L',
	'հ': 'h', 'ո': 'n', 'ռ': 'n', 'ա': 'a',
	// Cherokee
	'Ꭺ': 'A', 'Ꭲ': 'I', 'Ꮢ': 'P', 'Ꮪ': 'S', 'Ꭱ': 'E',
	'Ꮃ': 'W', 'Ꮤ': 'T',
	// Latin Extended small-caps / IPA (survive NFKC)
	'ᴀ': 'A', 'ʙ': 'B', 'ᴄ': 'C', 'ᴅ': 'D', 'ᴇ': 'E',
	'ꜰ': 'F', 'ɢ': 'G', 'ʜ': 'H', 'ɪ': 'I', 'ᴊ': 'J',
	'ᴋ': 'K', 'ʟ': 'L', 'ᴍ': 'M', 'ɴ': 'N', 'ᴏ': 'O',
	'ᴘ': 'P', 'ʀ': 'R', 'ꜱ': 'S', 'ᴛ': 'T', 'ᴜ': 'U',
	'ᴠ': 'V', 'ᴡ': 'W', 'ʏ': 'Y', 'ᴢ': 'Z',
}

func init() {
	// Negative squared Latin letters (🅰-🆉) and regional indicators (🇦-🇿)
	// read as Latin by most LLM tokenizers; NFKC does not decompose them.
	for i := rune(0); i < 26; i++ {
		table[0x1F170+i] = 'A' + i
	}
	for i := rune(0); i < 26; i++ {
		table[0x1F1E6+i] = 'A' + i
	}
}

var skeletonCache sync.Map // string -> string

// Skeletonize returns the UTS#39-style skeleton of s: NFKC-normalized, then
// every code point present in table is folded to its Latin equivalent.
// Results are cached per distinct input string for the lifetime of the
// process, since the same prompt text is frequently re-skeletonized across
// scanners within one audit.
func Skeletonize(s string) string {
	if v, ok := skeletonCache.Load(s); ok {
		return v.(string)
	}
	normalized := norm.NFKC.String(s)
	out := strings.Map(func(r rune) rune {
		if mapped, ok := table[r]; ok {
			return mapped
		}
		return r
	}, normalized)
	skeletonCache.Store(s, out)
	return out
}

// Equal reports whether a and b share the same skeleton — i.e. they would
// render identically to a reader even though their code points differ.
func Equal(a, b string) bool {
	return Skeletonize(a) == Skeletonize(b)
}
