package verse

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	apperrors "github.com/FocuswithJustin/litbook/core/errors"
	"github.com/FocuswithJustin/litbook/core/ref"
)

// ErrChapterNotFound is returned when a chapter cannot be shown: its index
// is missing, it has no verses, the requested first verse is past the
// end, or its files are damaged. Damaged files additionally match
// errors.ErrCorrupt.
var ErrChapterNotFound = errors.New("chapter not found")

// Verse is one verse read from the store.
type Verse struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
}

// Chapter is a run of consecutive verses from one chapter.
type Chapter struct {
	Book   string  `json:"book"`
	Number int     `json:"number"`
	Count  int     `json:"count"`
	Verses []Verse `json:"verses"`
}

// Elided reports whether verses before the first one shown were skipped.
func (c *Chapter) Elided() bool {
	return len(c.Verses) > 0 && c.Verses[0].Number > 1
}

// Store reads chapters laid out as <Root>/<book>/<chapter> and
// <Root>/<book>/<chapter>.index. It keeps no open files and is safe for
// concurrent use.
type Store struct {
	Root string

	// Workers bounds the goroutines Verify uses. Zero means one per CPU.
	Workers int
}

// NewStore returns a store rooted at root.
func NewStore(root string) *Store {
	return &Store{Root: root}
}

// BlobPath returns the path of a chapter's verse blob.
func (s *Store) BlobPath(book string, chapter int) string {
	return filepath.Join(s.Root, book, strconv.Itoa(chapter))
}

// IndexPath returns the path of a chapter's offset index.
func (s *Store) IndexPath(book string, chapter int) string {
	return s.BlobPath(book, chapter) + ".index"
}

// ShowChapterRange reads verses lo through hi of a chapter. hi is clamped
// to the chapter's verse count; lo past the end is ErrChapterNotFound.
func (s *Store) ShowChapterRange(book string, chapter, lo, hi int) (*Chapter, error) {
	if chapter < 1 || lo < 1 {
		return nil, ErrChapterNotFound
	}

	idxPath := s.IndexPath(book, chapter)
	f, err := os.Open(idxPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrChapterNotFound
		}
		return nil, damaged(idxPath, err.Error())
	}
	defer f.Close()

	count, err := ReadCount(f)
	if err != nil {
		return nil, damaged(idxPath, "index shorter than its count field")
	}
	if count < 1 || int64(lo) > count {
		return nil, ErrChapterNotFound
	}
	if int64(hi) > count {
		hi = int(count)
	}

	ix, err := readOffsets(f, count)
	if err != nil {
		return nil, damaged(idxPath, err.Error())
	}

	blobPath := s.BlobPath(book, chapter)
	blob, err := os.Open(blobPath)
	if err != nil {
		return nil, damaged(blobPath, err.Error())
	}
	defer blob.Close()

	out := &Chapter{
		Book:   book,
		Number: chapter,
		Count:  int(count),
		Verses: make([]Verse, 0, max(hi-lo+1, 0)),
	}
	var buf []byte
	for i := lo; i <= hi; i++ {
		start, end := ix.Span(i)
		if n := int(end - start); n > cap(buf) {
			buf = make([]byte, n)
		}
		buf = buf[:end-start]
		if _, err := blob.ReadAt(buf, start); err != nil {
			return nil, damaged(blobPath, fmt.Sprintf("verse %d: %v", i, err))
		}
		out.Verses = append(out.Verses, Verse{Number: i, Text: string(buf)})
	}
	return out, nil
}

// damaged reports a chapter that exists but cannot be read. The error
// matches both ErrChapterNotFound and errors.ErrCorrupt.
func damaged(path, detail string) error {
	return fmt.Errorf("%w: %w", ErrChapterNotFound, apperrors.NewCorrupt(path, 0, detail))
}

// Passage is the text of a resolved range.
type Passage struct {
	Range    ref.Range  `json:"range"`
	Chapters []*Chapter `json:"chapters"`

	// Stopped is the error that ended chapter iteration early, or nil
	// when every chapter in the range was read.
	Stopped error `json:"-"`
}

// Passage reads every chapter of r. A single-chapter range reads verses
// VerseStart..VerseEnd. A multi-chapter range reads the first chapter from
// VerseStart, the last up to VerseEnd and every chapter between in full,
// stopping at the first chapter that cannot be shown. The returned error
// is non-nil only when ctx is cancelled.
func (s *Store) Passage(ctx context.Context, r ref.Range) (*Passage, error) {
	p := &Passage{Range: r}

	if r.SingleChapter() {
		ch, err := s.ShowChapterRange(r.Book, r.ChapterStart, r.VerseStart, r.VerseEnd)
		if err != nil {
			p.Stopped = err
			return p, nil
		}
		p.Chapters = append(p.Chapters, ch)
		return p, nil
	}

	for c := r.ChapterStart; c <= r.ChapterEnd; c++ {
		if err := ctx.Err(); err != nil {
			return p, err
		}

		lo, hi := 1, ref.Open
		switch c {
		case r.ChapterStart:
			lo = r.VerseStart
		case r.ChapterEnd:
			hi = r.VerseEnd
		}

		ch, err := s.ShowChapterRange(r.Book, c, lo, hi)
		if err != nil {
			p.Stopped = err
			break
		}
		p.Chapters = append(p.Chapters, ch)
	}
	return p, nil
}

// Empty reports whether no verse was read.
func (p *Passage) Empty() bool {
	return len(p.Chapters) == 0
}

// Corrupt reports whether iteration stopped on a damaged chapter rather
// than on the end of the book.
func (p *Passage) Corrupt() bool {
	return p.Stopped != nil && errors.Is(p.Stopped, apperrors.ErrCorrupt)
}
