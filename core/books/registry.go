// Package books holds the registry of known book names and the ordered
// lookup cascade used to resolve a typed name to a canonical book.
//
// A Registry is built once from an "abbreviation, full name" list and is
// read-only afterwards, so it may be shared by any number of goroutines.
package books

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	apperrors "github.com/FocuswithJustin/litbook/core/errors"
	"github.com/FocuswithJustin/litbook/core/phonetic"
)

// DefaultMetaphoneLength bounds the metaphone codes stored per entry.
const DefaultMetaphoneLength = 32

// BookEntry is one known book.
type BookEntry struct {
	Abbrev    string        `json:"abbrev"`
	FullName  string        `json:"full_name"`
	Soundex   phonetic.Code `json:"-"`
	Metaphone string        `json:"metaphone"`
}

// Tier identifies which view of the cascade produced a match.
type Tier int

const (
	// TierFullName is an exact match on the canonical name.
	TierFullName Tier = iota
	// TierAbbrev is an exact match on the abbreviation.
	TierAbbrev
	// TierSoundex is a match on the Soundex code.
	TierSoundex
	// TierMetaphone is a match on the Metaphone code.
	TierMetaphone
)

func (t Tier) String() string {
	switch t {
	case TierFullName:
		return "fullname"
	case TierAbbrev:
		return "abbrev"
	case TierSoundex:
		return "soundex"
	case TierMetaphone:
		return "metaphone"
	}
	return fmt.Sprintf("tier(%d)", int(t))
}

// Match is the result of a successful lookup.
type Match struct {
	Entry *BookEntry
	Tier  Tier
}

// Config controls registry construction.
type Config struct {
	// MetaphoneLength is the maximum metaphone code length (0 = default).
	MetaphoneLength int
}

// Registry owns the book entries and four sorted views over them.
type Registry struct {
	entries     []BookEntry
	byFullName  []*BookEntry
	byAbbrev    []*BookEntry
	bySoundex   []*BookEntry
	byMetaphone []*BookEntry
	mpLen       int
}

// LoadFile reads a registry from a translation list on disk.
func LoadFile(path string, cfg Config) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewIO("open", path, err)
	}
	defer f.Close()
	return Load(f, path, cfg)
}

// Load parses "abbreviation, full name" records from r. name identifies
// the source in errors. A single whitespace-only line may terminate the
// list; any other malformed line stops parsing and the registry is
// reported corrupt at that line.
func Load(r io.Reader, name string, cfg Config) (*Registry, error) {
	var (
		pairs      [][2]string
		line       int
		terminated int
	)

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line++
		text := sc.Text()
		if strings.TrimSpace(text) == "" {
			if terminated == 0 {
				terminated = line
			}
			continue
		}
		if terminated != 0 {
			return nil, corrupt(name, terminated, len(pairs), "blank line inside book list")
		}

		abbrev, full, ok := strings.Cut(text, ",")
		if !ok {
			return nil, corrupt(name, line, len(pairs), "missing delimiter")
		}
		abbrev = strings.TrimSpace(abbrev)
		// anything after a second comma is ignored
		full, _, _ = strings.Cut(full, ",")
		full = strings.TrimSpace(full)
		if abbrev == "" || full == "" {
			return nil, corrupt(name, line, len(pairs), "empty field")
		}
		pairs = append(pairs, [2]string{abbrev, full})
	}
	if err := sc.Err(); err != nil {
		return nil, apperrors.NewIO("read", name, err)
	}
	if len(pairs) == 0 {
		return nil, corrupt(name, line+1, 0, "no records")
	}

	return New(pairs, cfg), nil
}

func corrupt(name string, line, records int, detail string) error {
	return fmt.Errorf("book list truncated after %d records: %w",
		records, apperrors.NewCorrupt(name, line, detail))
}

// New builds a registry from abbreviation/full name pairs.
func New(pairs [][2]string, cfg Config) *Registry {
	mpLen := cfg.MetaphoneLength
	if mpLen <= 0 {
		mpLen = DefaultMetaphoneLength
	}

	reg := &Registry{
		entries: make([]BookEntry, len(pairs)),
		mpLen:   mpLen,
	}
	for i, p := range pairs {
		mp, _ := phonetic.Metaphone(p[1], mpLen)
		reg.entries[i] = BookEntry{
			Abbrev:    p[0],
			FullName:  p[1],
			Soundex:   phonetic.Soundex(skipPrefix(p[1])),
			Metaphone: mp,
		}
	}

	n := len(reg.entries)
	reg.byFullName = make([]*BookEntry, n)
	reg.byAbbrev = make([]*BookEntry, n)
	reg.bySoundex = make([]*BookEntry, n)
	reg.byMetaphone = make([]*BookEntry, n)
	for i := range reg.entries {
		e := &reg.entries[i]
		reg.byFullName[i], reg.byAbbrev[i], reg.bySoundex[i], reg.byMetaphone[i] = e, e, e, e
	}

	sort.SliceStable(reg.byFullName, func(i, j int) bool {
		return reg.byFullName[i].FullName < reg.byFullName[j].FullName
	})
	sort.SliceStable(reg.byAbbrev, func(i, j int) bool {
		return reg.byAbbrev[i].Abbrev < reg.byAbbrev[j].Abbrev
	})
	sort.SliceStable(reg.bySoundex, func(i, j int) bool {
		return reg.bySoundex[i].Soundex.Compare(reg.bySoundex[j].Soundex) < 0
	})
	sort.SliceStable(reg.byMetaphone, func(i, j int) bool {
		return reg.byMetaphone[i].Metaphone < reg.byMetaphone[j].Metaphone
	})

	return reg
}

// skipPrefix drops a single leading non-letter such as the "1" of "1Kings".
func skipPrefix(name string) string {
	if name != "" && !isLetter(name[0]) {
		return name[1:]
	}
	return name
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// Len returns the number of books.
func (r *Registry) Len() int {
	return len(r.entries)
}

// Entries returns the books in load order.
func (r *Registry) Entries() []BookEntry {
	out := make([]BookEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

// View returns a copy of the entries in the order used by tier t.
func (r *Registry) View(t Tier) []*BookEntry {
	var src []*BookEntry
	switch t {
	case TierFullName:
		src = r.byFullName
	case TierAbbrev:
		src = r.byAbbrev
	case TierSoundex:
		src = r.bySoundex
	case TierMetaphone:
		src = r.byMetaphone
	}
	out := make([]*BookEntry, len(src))
	copy(out, src)
	return out
}

// Normalize lowercases candidate and capitalises its first letter, so
// "GENESIS" becomes "Genesis" and "1kings" becomes "1Kings".
func Normalize(candidate string) string {
	b := []byte(strings.ToLower(candidate))
	for i, c := range b {
		if isLetter(c) {
			b[i] = c - ('a' - 'A')
			break
		}
	}
	return string(b)
}

// Lookup resolves candidate through the cascade: full name, abbreviation,
// Soundex, then Metaphone. The first tier with a hit wins.
func (r *Registry) Lookup(candidate string) (Match, error) {
	key := Normalize(candidate)

	if e := r.search(r.byFullName, func(e *BookEntry) int {
		return strings.Compare(e.FullName, key)
	}); e != nil {
		return Match{Entry: e, Tier: TierFullName}, nil
	}

	if e := r.search(r.byAbbrev, func(e *BookEntry) int {
		return strings.Compare(e.Abbrev, key)
	}); e != nil {
		return Match{Entry: e, Tier: TierAbbrev}, nil
	}

	sdx := phonetic.Soundex(key)
	if e := r.search(r.bySoundex, func(e *BookEntry) int {
		return e.Soundex.Compare(sdx)
	}); e != nil {
		return Match{Entry: e, Tier: TierSoundex}, nil
	}

	if mp, ok := phonetic.Metaphone(key, r.mpLen); ok {
		if e := r.search(r.byMetaphone, func(e *BookEntry) int {
			return strings.Compare(e.Metaphone, mp)
		}); e != nil {
			return Match{Entry: e, Tier: TierMetaphone}, nil
		}
	}

	return Match{}, apperrors.NewNotFound("book", candidate)
}

// Resolve is Lookup without the tier.
func (r *Registry) Resolve(candidate string) (*BookEntry, bool) {
	m, err := r.Lookup(candidate)
	if err != nil {
		return nil, false
	}
	return m.Entry, true
}

// search binary-searches a sorted view. cmp reports how an entry
// compares to the key.
func (r *Registry) search(view []*BookEntry, cmp func(*BookEntry) int) *BookEntry {
	i := sort.Search(len(view), func(i int) bool { return cmp(view[i]) >= 0 })
	if i < len(view) && cmp(view[i]) == 0 {
		return view[i]
	}
	return nil
}
