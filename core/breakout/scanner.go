// Package breakout turns a tagged corpus into an offset-indexed verse
// store. The corpus is a stream of records separated by blank lines:
//
//	Book 01 Genesis
//
//	001:001 In the beginning God created the heaven and the earth.
//
//	001:002 And the earth was without form, and void; and darkness was
//	upon the face of the deep.
//
// Lines of one record are joined with single spaces.
package breakout

import (
	"bufio"
	"io"
	"strings"
	"unicode"
)

// maxLine bounds a single physical line.
const maxLine = 1 << 20

// Scanner reads logical lines: runs of physical lines ended by a blank
// line or the end of input. Each physical line is trimmed and stripped of
// control characters before joining.
type Scanner struct {
	sc    *bufio.Scanner
	text  string
	line  int
	start int
}

// NewScanner returns a scanner reading from r.
func NewScanner(r io.Reader) *Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)
	return &Scanner{sc: sc}
}

// Scan advances to the next non-empty logical line.
func (s *Scanner) Scan() bool {
	var parts []string
	for s.sc.Scan() {
		s.line++
		part := clean(s.sc.Text())
		if part == "" {
			if len(parts) > 0 {
				break
			}
			continue
		}
		if len(parts) == 0 {
			s.start = s.line
		}
		parts = append(parts, part)
	}
	if len(parts) == 0 {
		s.text = ""
		return false
	}
	s.text = strings.Join(parts, " ")
	return true
}

// Text returns the current logical line.
func (s *Scanner) Text() string {
	return s.text
}

// Line returns the physical line number on which the current logical
// line began.
func (s *Scanner) Line() int {
	return s.start
}

// Err returns the first read error.
func (s *Scanner) Err() error {
	return s.sc.Err()
}

// clean trims surrounding space and drops control characters.
func clean(line string) string {
	line = strings.TrimSpace(line)
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, line)
}
