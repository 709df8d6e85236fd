package phonetic

// maxLetters bounds how much of a word Metaphone looks at.
const maxLetters = 29

// Letter property flags.
const (
	fVowel  = 1 << iota // AEIOU
	fSame               // FJLMNR: encoded as themselves
	fVarson             // CGPST: may change sound with a following H
	fFrontv             // EIY: soften C and G
	fNoGHF              // BDH: block GH from sounding as F
)

var letterFlags = [26]byte{
	fVowel, fNoGHF, fVarson, fNoGHF, fVowel | fFrontv, fSame, fVarson, fNoGHF, fVowel | fFrontv,
	fSame, 0, fSame, fSame, fSame, fVowel, fVarson, 0, fSame, fVarson, fVarson, fVowel,
	0, 0, 0, fFrontv, 0,
	// A B C D E F G H I J K L M N O P Q R S T U V W X Y Z
}

func has(c byte, flag byte) bool {
	if c < 'A' || c > 'Z' {
		return false
	}
	return letterFlags[c-'A']&flag != 0
}

// Metaphone returns the Metaphone code of word, at most max symbols long.
// Non-letters are ignored. It reports false when word has no letters.
func Metaphone(word string, max int) (string, bool) {
	w := make([]byte, 0, maxLetters)
	for i := 0; i < len(word) && len(w) < maxLetters; i++ {
		c := word[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
			w = append(w, upper(c))
		}
	}
	if len(w) == 0 {
		return "", false
	}

	at := func(i int) byte {
		if i < 0 || i >= len(w) {
			return 0
		}
		return w[i]
	}

	start := 0
	switch w[0] {
	case 'P', 'K', 'G':
		if at(1) == 'N' {
			w[0] = 0
			start = 1
		}
	case 'A':
		if at(1) == 'E' {
			w[0] = 0
			start = 1
		}
	case 'W':
		if at(1) == 'R' {
			w[0] = 0
			start = 1
		} else if at(1) == 'H' {
			w[1] = 'W'
			w[0] = 0
			start = 1
		}
	case 'X':
		w[0] = 'S'
	}

	out := make([]byte, 0, len(w)+1)
	emit := func(c byte) {
		if max <= 0 || len(out) < max {
			out = append(out, c)
		}
	}

	end := len(w)
	for n := start; n < end && (max <= 0 || len(out) < max); n++ {
		c, prev, next, after := w[n], at(n-1), at(n+1), at(n+2)

		// drop duplicates except for CC
		if prev == c && c != 'C' {
			continue
		}

		if has(c, fSame) || (n == start && has(c, fVowel)) {
			emit(c)
			continue
		}

		switch c {
		case 'B':
			// silent in a trailing MB
			if n+1 < end || prev != 'M' {
				emit('B')
			}

		case 'C':
			if prev != 'S' || !has(next, fFrontv) {
				switch {
				case next == 'I' && after == 'A':
					emit('X')
				case has(next, fFrontv):
					emit('S')
				case next == 'H':
					if (n == start && !has(after, fVowel)) || prev == 'S' {
						emit('K')
					} else {
						emit('X')
					}
				default:
					emit('K')
				}
			}

		case 'D':
			if next == 'G' && has(after, fFrontv) {
				emit('J')
			} else {
				emit('T')
			}

		case 'G':
			if (next != 'H' || has(after, fVowel)) &&
				(next != 'N' || (n+1 < end && (after != 'E' || at(n+3) != 'D'))) &&
				(prev != 'D' || !has(next, fFrontv)) {
				if has(next, fFrontv) && after != 'G' {
					emit('J')
				} else {
					emit('K')
				}
			} else if next == 'H' && !has(prev, fNoGHF) && at(n-4) != 'H' {
				emit('F')
			}

		case 'H':
			if !has(prev, fVarson) && (!has(prev, fVowel) || has(next, fVowel)) {
				emit('H')
			}

		case 'K':
			if prev != 'C' {
				emit('K')
			}

		case 'P':
			if next == 'H' {
				emit('F')
			} else {
				emit('P')
			}

		case 'Q':
			emit('K')

		case 'S':
			if next == 'H' || (next == 'I' && (after == 'O' || after == 'A')) {
				emit('X')
			} else {
				emit('S')
			}

		case 'T':
			switch {
			case next == 'I' && (after == 'O' || after == 'A'):
				emit('X')
			case next == 'H':
				emit('O')
			case next != 'C' || after != 'H':
				emit('T')
			}

		case 'V':
			emit('F')

		case 'W', 'Y':
			if has(next, fVowel) {
				emit(c)
			}

		case 'X':
			if n == start {
				emit('S')
			} else {
				emit('K')
				emit('S')
			}

		case 'Z':
			emit('S')
		}
	}

	return string(out), true
}
