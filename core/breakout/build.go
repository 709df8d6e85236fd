package breakout

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	apperrors "github.com/FocuswithJustin/litbook/core/errors"
	"github.com/FocuswithJustin/litbook/internal/validation"
)

// Bible is the root of a parsed corpus.
type Bible struct {
	Books []*Book
}

// Book is one book with its chapters in input order.
type Book struct {
	Number   int
	Name     string
	Chapters []*Chapter
}

// Chapter is one chapter with its verses in input order.
type Chapter struct {
	Number int
	Verses []Verse
}

// Verse is one verse of raw text.
type Verse struct {
	Number int
	Text   string
}

// Size is the verse's length in bytes.
func (v Verse) Size() int {
	return len(v.Text)
}

// Texts returns the chapter's verse texts in order.
func (c *Chapter) Texts() []string {
	out := make([]string, len(c.Verses))
	for i, v := range c.Verses {
		out[i] = v.Text
	}
	return out
}

// Verses returns the number of verses in the book.
func (b *Book) Verses() int {
	n := 0
	for _, c := range b.Chapters {
		n += len(c.Verses)
	}
	return n
}

// Build reads a tagged corpus from r. name identifies the source in
// errors. A "Book N name" record opens a book; every other record is
// "chapter verse text" and is appended to the current book, opening a new
// chapter whenever the chapter number changes.
func Build(r io.Reader, name string) (*Bible, error) {
	bible := &Bible{}
	sc := NewScanner(r)

	var (
		book    *Book
		chapter *Chapter
	)
	for sc.Scan() {
		text := sc.Text()

		if rest, ok := strings.CutPrefix(text, "Book "); ok {
			b, err := parseBook(rest)
			if err != nil {
				return nil, apperrors.NewCorrupt(name, sc.Line(), err.Error())
			}
			book, chapter = b, nil
			bible.Books = append(bible.Books, book)
			continue
		}

		c, v, body, err := parseVerse(text)
		if err != nil {
			return nil, apperrors.NewCorrupt(name, sc.Line(), err.Error())
		}
		if book == nil {
			return nil, apperrors.NewCorrupt(name, sc.Line(), "verse before any book")
		}
		if chapter == nil || chapter.Number != c {
			chapter = &Chapter{Number: c}
			book.Chapters = append(book.Chapters, chapter)
		}
		chapter.Verses = append(chapter.Verses, Verse{Number: v, Text: body})
	}
	if err := sc.Err(); err != nil {
		return nil, apperrors.NewIO("read", name, err)
	}
	return bible, nil
}

// parseBook parses "N name". Whitespace inside the name is removed since
// the name becomes a directory.
func parseBook(rest string) (*Book, error) {
	num, name, _ := strings.Cut(strings.TrimSpace(rest), " ")
	n, err := strconv.Atoi(num)
	if err != nil || n < 1 {
		return nil, fmt.Errorf("bad book number %q", num)
	}
	name = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, name)
	if name == "" {
		return nil, fmt.Errorf("book %d has no name", n)
	}
	if err := validation.BookDir(name); err != nil {
		return nil, fmt.Errorf("book %d: %w", n, err)
	}
	return &Book{Number: n, Name: name}, nil
}

// parseVerse parses "C:V text" or "C V text".
func parseVerse(text string) (chapter, verse int, body string, err error) {
	chapter, rest, ok := leadingNumber(text)
	if !ok || rest == "" {
		return 0, 0, "", fmt.Errorf("expected chapter number in %q", abbreviate(text))
	}
	verse, rest, ok = leadingNumber(rest[1:])
	if !ok {
		return 0, 0, "", fmt.Errorf("expected verse number in %q", abbreviate(text))
	}
	if chapter < 1 || verse < 1 {
		return 0, 0, "", fmt.Errorf("zero chapter or verse in %q", abbreviate(text))
	}
	return chapter, verse, strings.TrimLeft(rest, " "), nil
}

func leadingNumber(s string) (int, string, bool) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0, s, false
	}
	n, err := strconv.Atoi(s[:i])
	if err != nil {
		return 0, s, false
	}
	return n, s[i:], true
}

func abbreviate(s string) string {
	if len(s) > 24 {
		return s[:24] + "..."
	}
	return s
}
