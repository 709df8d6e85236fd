package breakout

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	apperrors "github.com/FocuswithJustin/litbook/core/errors"
	"github.com/FocuswithJustin/litbook/core/ref"
	"github.com/FocuswithJustin/litbook/core/verse"
)

const corpus = `Book 01 Genesis

001:001 In the beginning God created the heaven and the earth.

001:002 And the earth was without form, and void;
and darkness was upon the face of the deep.

002:001 Thus the heavens and the earth were finished.


Book 08 Ruth

1 1 Now it came to pass in the days when the judges ruled.
`

func TestScanner(t *testing.T) {
	in := "  first \x07line\n\tsecond  \n\n\n\nthird\r\n\nfourth"
	sc := NewScanner(strings.NewReader(in))

	want := []struct {
		text string
		line int
	}{
		{"first line second", 1},
		{"third", 6},
		{"fourth", 8},
	}
	for _, w := range want {
		if !sc.Scan() {
			t.Fatalf("Scan() stopped early, want %q", w.text)
		}
		if sc.Text() != w.text {
			t.Errorf("Text() = %q, want %q", sc.Text(), w.text)
		}
		if sc.Line() != w.line {
			t.Errorf("Line() = %d, want %d", sc.Line(), w.line)
		}
	}
	if sc.Scan() {
		t.Errorf("unexpected extra line %q", sc.Text())
	}
	if sc.Err() != nil {
		t.Errorf("Err() = %v", sc.Err())
	}
}

func TestBuild(t *testing.T) {
	bible, err := Build(strings.NewReader(corpus), "kjv.txt")
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(bible.Books) != 2 {
		t.Fatalf("got %d books, want 2", len(bible.Books))
	}

	gen := bible.Books[0]
	if gen.Number != 1 || gen.Name != "Genesis" {
		t.Errorf("book 0 = %d %q", gen.Number, gen.Name)
	}
	if len(gen.Chapters) != 2 {
		t.Fatalf("Genesis has %d chapters, want 2", len(gen.Chapters))
	}
	if n := len(gen.Chapters[0].Verses); n != 2 {
		t.Errorf("Genesis 1 has %d verses, want 2", n)
	}
	v := gen.Chapters[0].Verses[1]
	want := "And the earth was without form, and void; and darkness was upon the face of the deep."
	if v.Number != 2 || v.Text != want {
		t.Errorf("Genesis 1:2 = %d %q", v.Number, v.Text)
	}
	if v.Size() != len(want) {
		t.Errorf("Size() = %d, want %d", v.Size(), len(want))
	}
	if gen.Verses() != 3 {
		t.Errorf("Genesis Verses() = %d, want 3", gen.Verses())
	}

	ruth := bible.Books[1]
	if ruth.Number != 8 || ruth.Chapters[0].Verses[0].Text != "Now it came to pass in the days when the judges ruled." {
		t.Errorf("Ruth = %+v", ruth.Chapters[0].Verses[0])
	}
}

func TestBuildStripsSpacesFromBookNames(t *testing.T) {
	bible, err := Build(strings.NewReader("Book 22 Song of Solomon\n\n1:1 The song of songs.\n"), "in")
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if name := bible.Books[0].Name; name != "SongofSolomon" {
		t.Errorf("Name = %q, want SongofSolomon", name)
	}
	if text := bible.Books[0].Chapters[0].Verses[0].Text; text != "The song of songs." {
		t.Errorf("verse text = %q, spaces must be kept in verses", text)
	}
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		line int
	}{
		{"verse before book", "1:1 orphan\n", 1},
		{"no chapter number", "Book 1 Genesis\n\nIn the beginning\n", 3},
		{"no verse number", "Book 1 Genesis\n\n1:x text\n", 3},
		{"zero verse", "Book 1 Genesis\n\n1:0 text\n", 3},
		{"bad book number", "Book one Genesis\n", 1},
		{"missing book name", "Book 1\n", 1},
		{"path in book name", "Book 1 ../etc\n", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(strings.NewReader(tt.in), "in.txt")
			var ce *apperrors.CorruptError
			if !errors.As(err, &ce) {
				t.Fatalf("error = %v, want CorruptError", err)
			}
			if ce.Line != tt.line {
				t.Errorf("Line = %d, want %d", ce.Line, tt.line)
			}
		})
	}
}

func TestWrite(t *testing.T) {
	bible, err := Build(strings.NewReader(corpus), "kjv.txt")
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	root := filepath.Join(t.TempDir(), "store")

	m, err := Write(context.Background(), bible, root)
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if len(m.Books) != 2 || m.Verses() != 4 {
		t.Errorf("manifest has %d books, %d verses", len(m.Books), m.Verses())
	}

	for _, name := range []string{"Genesis/1", "Genesis/1.index", "Genesis/2", "Genesis/2.index", "Ruth/1", "Ruth/1.index", verse.ManifestName} {
		if _, err := os.Stat(filepath.Join(root, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}

	// Index of Genesis 1: two verses, the blob is their concatenation.
	f, err := os.Open(filepath.Join(root, "Genesis", "1.index"))
	if err != nil {
		t.Fatal(err)
	}
	ix, err := verse.ReadIndex(f)
	f.Close()
	if err != nil {
		t.Fatalf("ReadIndex failed: %v", err)
	}
	v1 := bible.Books[0].Chapters[0].Verses[0].Text
	v2 := bible.Books[0].Chapters[0].Verses[1].Text
	if ix.Count() != 2 || ix.Len(1) != int64(len(v1)) || ix.BlobSize() != int64(len(v1)+len(v2)) {
		t.Errorf("index count=%d len1=%d blob=%d", ix.Count(), ix.Len(1), ix.BlobSize())
	}
	blob, err := os.ReadFile(filepath.Join(root, "Genesis", "1"))
	if err != nil {
		t.Fatal(err)
	}
	if string(blob) != v1+v2 {
		t.Errorf("blob = %q", blob)
	}

	// The written store reads back and verifies clean.
	s := verse.NewStore(root)
	p, err := s.Passage(context.Background(), ref.WholeBook("Genesis"))
	if err != nil {
		t.Fatalf("Passage failed: %v", err)
	}
	if len(p.Chapters) != 2 || p.Chapters[1].Verses[0].Text != "Thus the heavens and the earth were finished." {
		t.Errorf("read back %d chapters", len(p.Chapters))
	}
	rep, err := s.Verify(context.Background())
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if !rep.OK() {
		t.Errorf("fresh store has problems: %v", rep.Problems)
	}
}

func TestWriteFailsOnBlockedDirectory(t *testing.T) {
	bible, err := Build(strings.NewReader(corpus), "kjv.txt")
	if err != nil {
		t.Fatal(err)
	}
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "Genesis"), []byte("not a directory"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err = Write(context.Background(), bible, root)
	var ioe *apperrors.IOError
	if !errors.As(err, &ioe) {
		t.Fatalf("error = %v, want IOError", err)
	}
	if _, err := os.Stat(filepath.Join(root, verse.ManifestName)); err == nil {
		t.Error("manifest written despite failure")
	}
}

func TestSummary(t *testing.T) {
	bible, err := Build(strings.NewReader(corpus), "kjv.txt")
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := Summary(&buf, bible); err != nil {
		t.Fatal(err)
	}
	want := "Genesis: 2 chapters\n" +
		"\tChapter 1\t    2 Verses\n" +
		"\tChapter 2\t    1 Verses\n" +
		"Ruth: 1 chapters\n" +
		"\tChapter 1\t    1 Verses\n"
	if buf.String() != want {
		t.Errorf("Summary =\n%s\nwant\n%s", buf.String(), want)
	}
}
