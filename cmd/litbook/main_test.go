package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/FocuswithJustin/litbook/core/books"
	"github.com/FocuswithJustin/litbook/core/sqlite"
)

const testCorpus = `Book 01 Genesis

1:1 In the beginning.

1:2 And the earth.

1:3 Let there be light.

2:1 Thus the heavens.


Book 08 Ruth

1 1 In the days.
`

const testBookList = `Gen, Genesis
Ruth, Ruth
Exod, Exodus
`

// Test helper functions

func createTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}
	return path
}

func newTestEnv(stdin string) (*Env, *bytes.Buffer) {
	var out bytes.Buffer
	return &Env{Stdin: strings.NewReader(stdin), Stdout: &out}, &out
}

// buildTestStore runs breakout into a temp store and returns its globals.
func buildTestStore(t *testing.T) *Globals {
	t.Helper()
	dir := t.TempDir()
	g := &Globals{
		Dir:   filepath.Join(dir, "store"),
		Books: createTestFile(t, dir, "booklist.txt", testBookList),
	}
	env, _ := newTestEnv("")
	cmd := &BreakoutCmd{Input: createTestFile(t, dir, "kjv.txt", testCorpus)}
	if err := cmd.Run(g, env); err != nil {
		t.Fatalf("BreakoutCmd.Run() error = %v", err)
	}
	return g
}

// Tests for BreakoutCmd

func TestBreakoutCmd_Run(t *testing.T) {
	dir := t.TempDir()
	g := &Globals{Dir: filepath.Join(dir, "store")}
	env, out := newTestEnv("")

	cmd := &BreakoutCmd{Input: createTestFile(t, dir, "kjv.txt", testCorpus), Summary: true}
	if err := cmd.Run(g, env); err != nil {
		t.Fatalf("BreakoutCmd.Run() error = %v", err)
	}

	for _, want := range []string{"Genesis: 2 chapters", "\tChapter 1\t    3 Verses", "Ruth: 1 chapters", "wrote 2 books, 5 verses"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
	for _, name := range []string{"Genesis/1", "Genesis/2.index", "Ruth/1", "manifest.json"} {
		if _, err := os.Stat(filepath.Join(g.Dir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
}

func TestBreakoutCmd_Run_Stdin(t *testing.T) {
	g := &Globals{Dir: filepath.Join(t.TempDir(), "store")}
	env, out := newTestEnv("")

	// "-" reads os.Stdin, so swap it for a pipe.
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	oldStdin := os.Stdin
	os.Stdin = r
	defer func() { os.Stdin = oldStdin }()
	go func() {
		w.WriteString(testCorpus)
		w.Close()
	}()

	if err := (&BreakoutCmd{Input: "-"}).Run(g, env); err != nil {
		t.Fatalf("BreakoutCmd.Run() error = %v", err)
	}
	if !strings.Contains(out.String(), "wrote 2 books") {
		t.Errorf("output = %q", out.String())
	}
}

func TestBreakoutCmd_Run_InvalidInput(t *testing.T) {
	dir := t.TempDir()
	g := &Globals{Dir: filepath.Join(dir, "store")}
	env, _ := newTestEnv("")

	tests := []struct {
		name  string
		input string
	}{
		{"nonexistent file", filepath.Join(dir, "missing.txt")},
		{"verse before book", createTestFile(t, dir, "bad.txt", "1:1 orphan\n")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := (&BreakoutCmd{Input: tt.input}).Run(g, env); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
	if _, err := os.Stat(filepath.Join(g.Dir, "manifest.json")); err == nil {
		t.Error("store written despite errors")
	}
}

// Tests for LookupCmd

func TestLookupCmd_Run(t *testing.T) {
	g := buildTestStore(t)
	env, out := newTestEnv("Genesis.1:2\nxyzzy\ngen 1:2-2:1\nExodus\n")

	if err := (&LookupCmd{}).Run(g, env); err != nil {
		t.Fatalf("LookupCmd.Run() error = %v", err)
	}

	want := "\nGenesis\nChapter 1\n\n\t.\n\t.\n\t.\n2. And the earth.\n\n" +
		"error in request\n" +
		"\nGenesis\nChapter 1\n\n\t.\n\t.\n\t.\n2. And the earth.\n\n3. Let there be light.\n\n" +
		"Chapter 2\n\n1. Thus the heavens.\n\n" +
		"error\n"
	if out.String() != want {
		t.Errorf("output =\n%q\nwant\n%q", out.String(), want)
	}
}

func TestLookupCmd_Run_Resolve(t *testing.T) {
	g := buildTestStore(t)
	env, out := newTestEnv("Genesis.2\nruth1\n")

	if err := (&LookupCmd{Resolve: true}).Run(g, env); err != nil {
		t.Fatalf("LookupCmd.Run() error = %v", err)
	}
	want := "Genesis.2 found\nruth1->Ruth.1 found\n"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}

func TestLookupCmd_Run_Dump(t *testing.T) {
	g := buildTestStore(t)
	env, out := newTestEnv("")

	if err := (&LookupCmd{Dump: true}).Run(g, env); err != nil {
		t.Fatalf("LookupCmd.Run() error = %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	if len(lines) != 4 || lines[0] != "Dump list" {
		t.Fatalf("dump = %q", lines)
	}
	if !strings.HasPrefix(lines[1], "\tExod\t, Exodus(") {
		t.Errorf("abbreviation order not used: %q", lines[1])
	}
}

func TestLookupCmd_Run_MissingBookList(t *testing.T) {
	g := &Globals{Dir: t.TempDir(), Books: filepath.Join(t.TempDir(), "missing.txt")}
	env, _ := newTestEnv("Genesis\n")
	if err := (&LookupCmd{}).Run(g, env); err == nil {
		t.Error("expected error for missing book list")
	}
}

// Tests for BooksCmd

func TestBooksCmd_Run(t *testing.T) {
	g := buildTestStore(t)

	tests := []struct {
		view  string
		first string
	}{
		{"fullname", "\tExod\t, Exodus("},
		{"abbrev", "\tExod\t, Exodus("},
		{"metaphone", "\tExod\t, Exodus("},
	}
	for _, tt := range tests {
		t.Run(tt.view, func(t *testing.T) {
			env, out := newTestEnv("")
			if err := (&BooksCmd{View: tt.view}).Run(g, env); err != nil {
				t.Fatalf("BooksCmd.Run() error = %v", err)
			}
			lines := strings.Split(out.String(), "\n")
			if len(lines) < 2 || !strings.HasPrefix(lines[1], tt.first) {
				t.Errorf("first entry = %q, want prefix %q", lines[1], tt.first)
			}
		})
	}
}

func TestParseTier(t *testing.T) {
	tests := map[string]books.Tier{
		"fullname":  books.TierFullName,
		"abbrev":    books.TierAbbrev,
		"soundex":   books.TierSoundex,
		"metaphone": books.TierMetaphone,
		"bogus":     books.TierAbbrev,
	}
	for in, want := range tests {
		if got := parseTier(in); got != want {
			t.Errorf("parseTier(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestServeCmd_Run_BadCacheSize(t *testing.T) {
	g := buildTestStore(t)
	err := (&ServeCmd{Addr: "127.0.0.1:0", Cache: "lots"}).Run(g)
	if err == nil || !strings.Contains(err.Error(), "cache-size") {
		t.Errorf("error = %v, want invalid cache size", err)
	}
}

// Tests for VerifyCmd

func TestVerifyCmd_Run(t *testing.T) {
	g := buildTestStore(t)

	env, out := newTestEnv("")
	if err := (&VerifyCmd{Workers: 2}).Run(g, env); err != nil {
		t.Fatalf("VerifyCmd.Run() error = %v", err)
	}
	if out.String() != "2 books, 3 chapters, 5 verses\nOK\n" {
		t.Errorf("output = %q", out.String())
	}

	if err := os.WriteFile(filepath.Join(g.Dir, "Genesis", "2"), []byte("Thus the HEAVENS."), 0644); err != nil {
		t.Fatal(err)
	}
	env, out = newTestEnv("")
	if err := (&VerifyCmd{}).Run(g, env); err == nil {
		t.Error("expected error for damaged store")
	}
	if !strings.Contains(out.String(), filepath.Join("Genesis", "2")) {
		t.Errorf("problem not reported:\n%s", out.String())
	}
}

// Tests for ExportCmd

func TestExportCmd_Run(t *testing.T) {
	g := buildTestStore(t)
	env, out := newTestEnv("")

	dbPath := filepath.Join(t.TempDir(), "kjv.db")
	if err := (&ExportCmd{Out: dbPath}).Run(g, env); err != nil {
		t.Fatalf("ExportCmd.Run() error = %v", err)
	}
	if got := out.String(); !strings.HasPrefix(got, "exported 5 verses") || !strings.Contains(got, "(sqlite 3.") {
		t.Errorf("output = %q", got)
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("database not created: %v", err)
	}
}

// Tests for PackCmd and UnpackCmd

func TestPackUnpackCmd_Run(t *testing.T) {
	for _, ext := range []string{".tar.gz", ".tar.xz"} {
		t.Run(ext, func(t *testing.T) {
			g := buildTestStore(t)
			archivePath := filepath.Join(t.TempDir(), "kjv"+ext)

			env, out := newTestEnv("")
			if err := (&PackCmd{Out: archivePath}).Run(g, env); err != nil {
				t.Fatalf("PackCmd.Run() error = %v", err)
			}
			if got := out.String(); !strings.HasPrefix(got, "packed 7 files into kjv"+ext+" (") || !strings.HasSuffix(got, "B)\n") {
				t.Errorf("pack output = %q", out.String())
			}

			restored := &Globals{Dir: filepath.Join(t.TempDir(), "restored"), Books: g.Books}
			env, out = newTestEnv("")
			if err := (&UnpackCmd{Archive: archivePath, Verify: true}).Run(restored, env); err != nil {
				t.Fatalf("UnpackCmd.Run() error = %v", err)
			}
			if !strings.Contains(out.String(), "unpacked 7 files") || !strings.HasSuffix(out.String(), "OK\n") {
				t.Errorf("unpack output = %q", out.String())
			}
		})
	}
}

func TestPackCmd_Run_UnsupportedFormat(t *testing.T) {
	g := buildTestStore(t)
	env, _ := newTestEnv("")
	if err := (&PackCmd{Out: filepath.Join(t.TempDir(), "kjv.zip")}).Run(g, env); err == nil {
		t.Error("expected error for .zip archive")
	}
}

func TestVersionCmd_Run(t *testing.T) {
	env, out := newTestEnv("")
	if err := (&VersionCmd{}).Run(env); err != nil {
		t.Fatal(err)
	}
	info := sqlite.GetInfo(nil)
	want := "litbook version " + version + "\nsqlite driver " + info.DriverName + " (" + info.Package + ", "
	if got := out.String(); !strings.HasPrefix(got, want) || !strings.HasSuffix(got, ")\n") {
		t.Errorf("output = %q", got)
	}
	if sqlite.IsCGO() != strings.Contains(out.String(), ", cgo)") {
		t.Errorf("output %q does not match the compiled driver", out.String())
	}
}

func TestResolveFormat(t *testing.T) {
	tests := []struct {
		format string
		tty    bool
		want   string
	}{
		{"auto", true, "text"},
		{"auto", false, "json"},
		{"text", false, "text"},
		{"json", true, "json"},
	}
	for _, tt := range tests {
		if got := resolveFormat(tt.format, tt.tty); got != tt.want {
			t.Errorf("resolveFormat(%q, %v) = %q, want %q", tt.format, tt.tty, got, tt.want)
		}
	}
}

func TestConfigureLogging(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		format  string
		wantErr bool
	}{
		{"defaults", "info", "text", false},
		{"json debug", "debug", "json", false},
		{"auto", "warn", "auto", false},
		{"bad level", "loud", "text", true},
		{"bad format", "info", "xml", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := configureLogging(&Globals{LogLevel: tt.level, LogFormat: tt.format})
			if (err != nil) != tt.wantErr {
				t.Errorf("configureLogging() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
	configureLogging(&Globals{LogLevel: "error", LogFormat: "text"})
}
