// Package ref parses short, hand-typed references such as "jn3",
// "Gen.1:1-2:5" or "1kgs.4-6" into a resolved book and chapter/verse range,
// and renders ranges back to their canonical form.
//
// The canonical form is the book's full name, a '.', and the chapter and
// verse numbers separated by ':':
//
//	Genesis             whole book
//	Genesis.3           whole chapter
//	Genesis.3-          chapter 3 to the end of the book
//	Genesis.3:4         single verse
//	Genesis.3:4-        verse 3:4 to the end of the book
//	Genesis.3-5         chapters 3 through 5
//	Genesis.3-5:2       chapter 3 through verse 5:2
//	Genesis.3:4-5:2     verse span
//
// A span starting at verse 1 may also be written "Genesis.3:1-5:2"
// without a redirect, but renders as "Genesis.3-5:2".
//
// Any input that resolves but is not written exactly this way is flagged
// with Result.Mismatch so a caller can redirect to the canonical spelling.
package ref

import (
	"math"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"

	"github.com/FocuswithJustin/litbook/core/books"
	apperrors "github.com/FocuswithJustin/litbook/core/errors"
)

// Open marks an unspecified (open-ended) chapter or verse end.
const Open = math.MaxInt32

// Range is a resolved book plus a chapter/verse span. All numbers are
// 1-based; ChapterEnd and VerseEnd may be Open.
type Range struct {
	Book         string `json:"book"`
	ChapterStart int    `json:"chapter_start"`
	VerseStart   int    `json:"verse_start"`
	ChapterEnd   int    `json:"chapter_end"`
	VerseEnd     int    `json:"verse_end"`
}

// Result is the outcome of a successful parse.
type Result struct {
	Range

	// Mismatch is true when the input was not already in canonical form.
	Mismatch bool `json:"mismatch"`

	// Tier records which lookup tier identified the book.
	Tier books.Tier `json:"-"`
}

// WholeBook returns the range covering every chapter of book.
func WholeBook(book string) Range {
	return Range{Book: book, ChapterStart: 1, VerseStart: 1, ChapterEnd: Open, VerseEnd: Open}
}

// refLexer splits a reference into numbers, words and single separator
// characters. Anything that is not a letter or digit is a separator.
var refLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Word", Pattern: `[A-Za-z]+`},
	{Name: "Sep", Pattern: `[^0-9A-Za-z]`},
})

var (
	tokInt  = refLexer.Symbols()["Int"]
	tokWord = refLexer.Symbols()["Word"]
)

// Parser resolves references against a book registry. It holds no
// mutable state and is safe for concurrent use.
type Parser struct {
	reg *books.Registry
}

// NewParser returns a parser bound to reg.
func NewParser(reg *books.Registry) *Parser {
	return &Parser{reg: reg}
}

// cursor walks the token stream of one parse.
type cursor struct {
	raw  string
	toks []lexer.Token
	pos  int
}

func (c *cursor) peek() lexer.Token {
	return c.toks[c.pos]
}

func (c *cursor) next() lexer.Token {
	t := c.toks[c.pos]
	if !t.EOF() {
		c.pos++
	}
	return t
}

func (c *cursor) atEOF() bool {
	return c.peek().EOF()
}

func (c *cursor) isSep(values ...string) bool {
	t := c.peek()
	if t.EOF() || t.Type == tokInt || t.Type == tokWord {
		return false
	}
	for _, v := range values {
		if t.Value == v {
			return true
		}
	}
	return false
}

func (c *cursor) fail(msg string) error {
	return apperrors.NewParse(c.raw, c.peek().Pos.Offset, msg)
}

// number consumes a chapter or verse number. Zero, a missing number and
// an out of range number are all parse failures.
func (c *cursor) number(what string) (int, error) {
	t := c.peek()
	if t.Type != tokInt {
		return 0, c.fail("expected " + what + " number")
	}
	n, err := strconv.Atoi(t.Value)
	if err != nil || n >= Open {
		return 0, c.fail(what + " number out of range")
	}
	if n == 0 {
		return 0, c.fail(what + " number is zero")
	}
	c.next()
	return n, nil
}

// Parse resolves raw into a Result. Failures unwrap to
// errors.ErrNotFound: a *errors.ParseError for malformed references and
// a *errors.NotFoundError for unknown books.
func (p *Parser) Parse(raw string) (Result, error) {
	lex, err := refLexer.LexString("", raw)
	if err != nil {
		return Result{}, apperrors.NewParse(raw, 0, err.Error())
	}
	toks, err := lexer.ConsumeAll(lex)
	if err != nil {
		return Result{}, apperrors.NewParse(raw, 0, err.Error())
	}
	c := &cursor{raw: raw, toks: toks}

	// A zero numeral anywhere makes the whole reference malformed.
	for _, t := range toks {
		if t.Type == tokInt && strings.Trim(t.Value, "0") == "" {
			return Result{}, apperrors.NewParse(raw, t.Pos.Offset, "zero is not a chapter or verse")
		}
	}

	res, err := p.parse(c)
	if err != nil {
		return Result{}, err
	}
	res.Mismatch = res.Mismatch || !res.spelled(raw)
	return res, nil
}

// spelled reports whether raw is an accepted canonical spelling of r. A
// chapter span ending mid-chapter may also be written with its ":1".
func (r Range) spelled(raw string) bool {
	if raw == r.Canonical() {
		return true
	}
	if r.VerseStart != 1 || r.VerseEnd == Open || r.ChapterStart == r.ChapterEnd {
		return false
	}
	return raw == r.Book+"."+strconv.Itoa(r.ChapterStart)+":1-"+
		strconv.Itoa(r.ChapterEnd)+":"+strconv.Itoa(r.VerseEnd)
}

func (p *Parser) parse(c *cursor) (Result, error) {
	// Book: optional leading digits followed by letters.
	var name strings.Builder
	if c.peek().Type == tokInt {
		name.WriteString(c.next().Value)
	}
	if c.peek().Type == tokWord {
		name.WriteString(c.next().Value)
	}
	candidate := name.String()
	if len(candidate) < 2 {
		return Result{}, c.fail("book name too short")
	}

	match, err := p.reg.Lookup(candidate)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Range:    WholeBook(match.Entry.FullName),
		Mismatch: candidate != match.Entry.FullName,
		Tier:     match.Tier,
	}

	// 1. G and G-
	if c.atEOF() {
		return res, nil
	}
	if c.isSep("-") {
		res.Mismatch = true
		return res, nil
	}

	switch {
	case c.peek().Type == tokInt:
		res.Mismatch = true
	case c.isSep("."):
		c.next()
	default:
		res.Mismatch = true
		c.next()
	}

	// 2. G.a
	if res.ChapterStart, err = c.number("chapter"); err != nil {
		return Result{}, err
	}
	if c.atEOF() {
		res.ChapterEnd = res.ChapterStart
		return res, nil
	}

	if c.isSep(".", ":") {
		if err := p.verseTail(c, &res); err != nil {
			return Result{}, err
		}
		return res, nil
	}

	if !c.isSep("-") {
		res.ChapterEnd = res.ChapterStart
		res.Mismatch = true
		return res, nil
	}
	c.next()

	// 7. G.a-
	if c.peek().Type != tokInt {
		res.Mismatch = res.Mismatch || !c.atEOF()
		return res, nil
	}

	// 8. G.a-x
	if res.ChapterEnd, err = c.number("chapter"); err != nil {
		return Result{}, err
	}
	if c.isSep(".", ":") {
		// 9. G.a-x:y
		if c.next().Value == "." {
			res.Mismatch = true
		}
		if res.VerseEnd, err = c.number("verse"); err != nil {
			return Result{}, err
		}
	}
	res.Mismatch = res.Mismatch || !c.atEOF()
	return res, nil
}

// verseTail parses everything after "G.a" when a verse separator follows.
func (p *Parser) verseTail(c *cursor, res *Result) error {
	var err error
	if c.next().Value == "." {
		res.Mismatch = true
	}

	// 3. G.a:b
	if res.VerseStart, err = c.number("verse"); err != nil {
		return err
	}
	if !c.isSep("-") {
		res.ChapterEnd = res.ChapterStart
		res.VerseEnd = res.VerseStart
		res.Mismatch = res.Mismatch || !c.atEOF()
		return nil
	}
	c.next()

	// 4. G.a:b-
	if c.peek().Type != tokInt {
		res.Mismatch = res.Mismatch || !c.atEOF()
		return nil
	}

	// 5. G.a:b-x
	n, err := c.number("verse")
	if err != nil {
		return err
	}
	if !c.isSep(".", ":") {
		res.ChapterEnd = res.ChapterStart
		res.VerseEnd = n
		res.Mismatch = res.Mismatch || !c.atEOF()
		return nil
	}

	// 6. G.a:b-x:y
	res.ChapterEnd = n
	if c.next().Value == "." {
		res.Mismatch = true
	}
	if res.VerseEnd, err = c.number("verse"); err != nil {
		return err
	}
	res.Mismatch = res.Mismatch || !c.atEOF()
	return nil
}

// Canonical renders r in canonical form. A canonical string parses back
// to the same Range with Mismatch false.
func (r Range) Canonical() string {
	var sb strings.Builder
	sb.WriteString(r.Book)

	num := func(sep string, n int) {
		sb.WriteString(sep)
		sb.WriteString(strconv.Itoa(n))
	}

	switch {
	case r.ChapterEnd == Open && r.VerseEnd == Open:
		if r.ChapterStart == 1 && r.VerseStart == 1 {
			break
		}
		num(".", r.ChapterStart)
		if r.VerseStart != 1 {
			num(":", r.VerseStart)
		}
		sb.WriteString("-")

	case r.ChapterStart == r.ChapterEnd:
		num(".", r.ChapterStart)
		switch {
		case r.VerseStart == 1 && r.VerseEnd == Open:
		case r.VerseStart == r.VerseEnd:
			num(":", r.VerseStart)
		case r.VerseEnd == Open:
			num(":", r.VerseStart)
			sb.WriteString("-")
		default:
			num(":", r.VerseStart)
			num("-", r.ChapterEnd)
			num(":", r.VerseEnd)
		}

	case r.VerseStart == 1:
		num(".", r.ChapterStart)
		num("-", r.ChapterEnd)
		if r.VerseEnd != Open {
			num(":", r.VerseEnd)
		}

	default:
		num(".", r.ChapterStart)
		num(":", r.VerseStart)
		num("-", r.ChapterEnd)
		if r.VerseEnd != Open {
			num(":", r.VerseEnd)
		}
	}

	return sb.String()
}

func (r Range) String() string {
	return r.Canonical()
}

// SingleChapter reports whether the range stays within one chapter.
func (r Range) SingleChapter() bool {
	return r.ChapterStart == r.ChapterEnd
}
