/*
Package lookalike holds the static tables of characters that can stand in for
a typed character during a permissive search.

Two independent tables exist. Keyboard covers misclicks on a QWERTY layout:
the physically neighbouring keys of a key, on both shift layers. Variants
covers diacritic and cross-script forms of a small set of base letters (Latin,
Cyrillic, Greek, Hiragana and Katakana). All concatenates both.

Every table is computed once when the package is initialised. The slices
returned by the lookup functions are shared and must not be modified.
*/
package lookalike

// Func maps a typed character to the characters that may have been meant
// instead. The result is finite, ordered and may be empty.
type Func func(r rune) []rune

var all = buildAll()

// All returns Keyboard(r) followed by Variants(r). Entries are neither
// deduplicated nor sorted.
func All(r rune) []rune {
	return all[r]
}

// None never reports a lookalike, which turns a search into exact prefix
// matching.
func None(rune) []rune {
	return nil
}

// Combine concatenates the results of fs in order.
func Combine(fs ...Func) Func {
	return func(r rune) []rune {
		var out []rune
		for _, f := range fs {
			out = append(out, f(r)...)
		}
		return out
	}
}

// Policy picks the lookup function matching the enabled tables.
func Policy(keyboard, variants bool) Func {
	switch {
	case keyboard && variants:
		return All
	case keyboard:
		return Keyboard
	case variants:
		return Variants
	default:
		return None
	}
}

func buildAll() map[rune][]rune {
	res := make(map[rune][]rune, len(variants)+int(lastTypeable-firstTypeable))
	add := func(r rune) {
		if _, ok := res[r]; ok {
			return
		}
		k, v := Keyboard(r), Variants(r)
		if len(k)+len(v) == 0 {
			return
		}
		set := make([]rune, 0, len(k)+len(v))
		set = append(set, k...)
		res[r] = append(set, v...)
	}
	for r := firstTypeable; r <= lastTypeable; r++ {
		add(r)
	}
	for r := range variants {
		add(r)
	}
	return res
}
