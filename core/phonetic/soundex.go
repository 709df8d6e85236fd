// Package phonetic implements the Soundex and Metaphone codes used for
// fuzzy book-name matching.
package phonetic

import "encoding/binary"

// Code is a four-symbol Soundex code.
type Code [4]byte

// soundexClass maps an uppercase letter to its consonant class digit.
// Zero means the letter carries no class and is skipped.
var soundexClass = [26]byte{
	'B' - 'A': '1', 'F' - 'A': '1', 'P' - 'A': '1', 'V' - 'A': '1',
	'C' - 'A': '2', 'G' - 'A': '2', 'J' - 'A': '2', 'K' - 'A': '2',
	'Q' - 'A': '2', 'S' - 'A': '2', 'X' - 'A': '2', 'Z' - 'A': '2',
	'D' - 'A': '3', 'T' - 'A': '3',
	'L' - 'A': '4',
	'M' - 'A': '5', 'N' - 'A': '5',
	'R' - 'A': '6',
}

func classOf(c byte) byte {
	c = upper(c)
	if c < 'A' || c > 'Z' {
		return 0
	}
	return soundexClass[c-'A']
}

func upper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - ('a' - 'A')
	}
	return c
}

// Soundex returns the Soundex code of word. The first symbol is the
// uppercased first byte of word; the remaining three are class digits,
// padded with '0'. A digit is only emitted when the class differs from
// the last classed letter, so vowels between two letters of the same
// class do not split them.
func Soundex(word string) Code {
	code := Code{'0', '0', '0', '0'}
	if word == "" {
		return code
	}

	code[0] = upper(word[0])
	last := classOf(word[0])
	idx := 1
	for i := 1; i < len(word) && idx < len(code); i++ {
		class := classOf(word[i])
		if class == 0 || class == last {
			continue
		}
		last = class
		code[idx] = class
		idx++
	}
	return code
}

// Value packs the code into an integer. Codes compare and sort by Value.
func (c Code) Value() uint32 {
	return binary.BigEndian.Uint32(c[:])
}

// Compare returns -1, 0 or +1 depending on whether c sorts before, equal
// to or after o.
func (c Code) Compare(o Code) int {
	a, b := c.Value(), o.Value()
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Equal reports whether two codes are identical.
func (c Code) Equal(o Code) bool {
	return c.Value() == o.Value()
}

func (c Code) String() string {
	return string(c[:])
}
