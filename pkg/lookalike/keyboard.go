package lookalike

// layer is one shift state of the physical keyboard.
type layer [4][10]rune

var (
	plain = layer{
		{'1', '2', '3', '4', '5', '6', '7', '8', '9', '0'},
		{'q', 'w', 'e', 'r', 't', 'y', 'u', 'i', 'o', 'p'},
		{'a', 's', 'd', 'f', 'g', 'h', 'j', 'k', 'l', ';'},
		{'z', 'x', 'c', 'v', 'b', 'n', 'm', ',', '.', '/'},
	}
	shifted = layer{
		{'!', '@', '#', '$', '%', '^', '&', '*', '(', ')'},
		{'Q', 'W', 'E', 'R', 'T', 'Y', 'U', 'I', 'O', 'P'},
		{'A', 'S', 'D', 'F', 'G', 'H', 'J', 'K', 'L', ':'},
		{'Z', 'X', 'C', 'V', 'B', 'N', 'M', '<', '>', '?'},
	}
)

// neighbourhood lists the row/column offsets of the up to 8 surrounding keys,
// in emission order.
var neighbourhood = [8][2]int{
	{-1, -1}, {-1, 0}, {-1, 1},
	{0, -1}, {0, 1},
	{1, -1}, {1, 0}, {1, 1},
}

const (
	firstTypeable rune = ' '
	lastTypeable  rune = '~'
)

// maxMisclicks is the opposite-shift key itself plus 8 neighbours per layer.
const maxMisclicks = 1 + 2*len(neighbourhood)

var keyboard = buildKeyboard()

// Keyboard returns the keys that `r` could have been a misclick of.
//
// The first entry is r on the opposite shift layer. Then come the surrounding
// keys on r's own layer, then the same keys on the other layer, so `a` yields
// `A q w s z x Q W S Z X` and `A` yields `a Q W S Z X q w s z x`.
// Characters that are not on the layout yield nil.
func Keyboard(r rune) []rune {
	if r < firstTypeable || r > lastTypeable {
		return nil
	}
	return keyboard[r-firstTypeable]
}

func buildKeyboard() [lastTypeable - firstTypeable + 1][]rune {
	var res [lastTypeable - firstTypeable + 1][]rune
	for r := firstTypeable; r <= lastTypeable; r++ {
		res[r-firstTypeable] = misclicks(r)
	}
	return res
}

func misclicks(r rune) []rune {
	same, other := &plain, &shifted
	row, col, ok := same.find(r)
	if !ok {
		same, other = other, same
		if row, col, ok = same.find(r); !ok {
			return nil
		}
	}

	set := make([]rune, 0, maxMisclicks)
	set = append(set, other[row][col])
	for _, l := range [2]*layer{same, other} {
		for _, d := range neighbourhood {
			if ch, ok := l.at(row+d[0], col+d[1]); ok {
				set = append(set, ch)
			}
		}
	}
	return set
}

func (l *layer) find(r rune) (row, col int, ok bool) {
	for i := range l {
		for j, ch := range l[i] {
			if ch == r {
				return i, j, true
			}
		}
	}
	return 0, 0, false
}

func (l *layer) at(row, col int) (rune, bool) {
	if row < 0 || row >= len(l) || col < 0 || col >= len(l[row]) {
		return 0, false
	}
	return l[row][col], true
}
