package lookalike

import (
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// bases are the lowercase letters that have marked forms. Capital bases are
// derived from them. The association is one way: no marked form is a base.
var bases = []rune("acdegilnorstuyz" + "еиіуь" + "αεηιουω")

// marked are the blocks searched for forms that decompose to a base plus
// combining marks.
var marked = []struct{ lo, hi rune }{
	{0x00c0, 0x024f}, // Latin-1 Supplement, Latin Extended-A and B
	{0x1e00, 0x1eff}, // Latin Extended Additional
	{0x0370, 0x03ff}, // Greek
	{0x1f00, 0x1fff}, // Greek Extended
	{0x0400, 0x04ff}, // Cyrillic
}

// undecomposed lists the forms of a base that have no canonical
// decomposition to it. They follow the decomposed forms.
var undecomposed = map[rune]string{
	'a': "æ",
	'd': "đ",
	'i': "ı",
	'l': "ł",
	'o': "øœ",
	's': "ß",
	'е': "єэ",
	'и': "ії",
	'і': "ий",
	'у': "ү",
	'ь': "ъы",
}

// smallKana maps a small hiragana to its full size sibling. Voiced and
// semi-voiced kana are found by decomposition instead.
var smallKana = map[rune]rune{
	'ぁ': 'あ', 'ぃ': 'い', 'ぅ': 'う', 'ぇ': 'え', 'ぉ': 'お',
	'っ': 'つ', 'ゃ': 'や', 'ゅ': 'ゆ', 'ょ': 'よ', 'ゎ': 'わ',
	'ゕ': 'か', 'ゖ': 'け',
}

const (
	firstHiragana = 'ぁ'
	lastHiragana  = 'ゖ'
	katakanaShift = 'ァ' - 'ぁ'

	voicedMark     = '\u3099'
	semiVoicedMark = '\u309a'
)

var variants = buildVariants()

// Variants returns the script and diacritic variants of r, or nil.
func Variants(r rune) []rune {
	return variants[r]
}

// decompose returns the base of r when r canonically decomposes to a single
// rune followed only by nonspacing marks.
func decompose(r rune) (rune, bool) {
	d := []rune(norm.NFD.String(string(r)))
	if len(d) < 2 {
		return 0, false
	}
	for _, m := range d[1:] {
		if !unicode.Is(unicode.Mn, m) {
			return 0, false
		}
	}
	return d[0], true
}

func buildVariants() map[rune][]rune {
	res := make(map[rune][]rune)

	byBase := make(map[rune][]rune)
	for _, block := range marked {
		for r := block.lo; r <= block.hi; r++ {
			if base, ok := decompose(r); ok {
				byBase[base] = append(byBase[base], r)
			}
		}
	}

	for _, base := range bases {
		baseUpper := unicode.ToUpper(base)
		lower := append([]rune(nil), byBase[base]...)
		upper := append([]rune(nil), byBase[baseUpper]...)
		for _, f := range undecomposed[base] {
			lower = append(lower, f)
			if u := unicode.ToUpper(f); u != f && u != baseUpper {
				upper = append(upper, u)
			}
		}
		res[base] = concat(lower, upper)
		res[baseUpper] = concat(upper, lower)
	}

	// Group every hiragana with its small and voiced siblings, in code
	// point order after the full size base.
	siblings := make(map[rune][]rune)
	for h := rune(firstHiragana); h <= lastHiragana; h++ {
		base, ok := smallKana[h]
		if !ok {
			d := []rune(norm.NFD.String(string(h)))
			if len(d) != 2 || (d[1] != voicedMark && d[1] != semiVoicedMark) {
				continue
			}
			base = d[0]
		}
		if siblings[base] == nil {
			siblings[base] = []rune{base}
		}
		siblings[base] = append(siblings[base], h)
	}
	groupOf := make(map[rune][]rune)
	for _, group := range siblings {
		for _, h := range group {
			groupOf[h] = group
		}
	}

	// Hiragana and katakana are one fixed offset apart.
	for h := rune(firstHiragana); h <= lastHiragana; h++ {
		k := h + katakanaShift
		hs := []rune{k}
		ks := []rune{h}
		for _, o := range groupOf[h] {
			if o == h {
				continue
			}
			hs = append(hs, o, o+katakanaShift)
			ks = append(ks, o+katakanaShift, o)
		}
		res[h] = hs
		res[k] = ks
	}
	return res
}

func concat(a, b []rune) []rune {
	out := make([]rune, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}
