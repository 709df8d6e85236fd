package archive

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ulikunitz/xz"
)

const corpusText = "Book 01 Genesis\n\n001:001 In the beginning.\n"

func writeXZ(t *testing.T, path string, data []byte) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create file: %v", err)
	}
	defer f.Close()
	xw, err := xz.NewWriter(f)
	if err != nil {
		t.Fatalf("xz writer: %v", err)
	}
	if _, err := xw.Write(data); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := xw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func writeGzip(t *testing.T, path string, data []byte) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create file: %v", err)
	}
	defer f.Close()
	gw := gzip.NewWriter(f)
	if _, err := gw.Write(data); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := gw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestOpenSource(t *testing.T) {
	dir := t.TempDir()

	plain := filepath.Join(dir, "kjv.txt")
	if err := os.WriteFile(plain, []byte(corpusText), 0644); err != nil {
		t.Fatal(err)
	}
	xzPath := filepath.Join(dir, "kjv.txt.xz")
	writeXZ(t, xzPath, []byte(corpusText))
	gzPath := filepath.Join(dir, "kjv.txt.gz")
	writeGzip(t, gzPath, []byte(corpusText))

	for _, path := range []string{plain, xzPath, gzPath} {
		t.Run(filepath.Base(path), func(t *testing.T) {
			rc, err := OpenSource(path)
			if err != nil {
				t.Fatalf("OpenSource failed: %v", err)
			}
			data, err := io.ReadAll(rc)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if string(data) != corpusText {
				t.Errorf("content = %q", data)
			}
			if err := rc.Close(); err != nil {
				t.Errorf("Close: %v", err)
			}
		})
	}
}

func TestOpenSource_Errors(t *testing.T) {
	dir := t.TempDir()

	if _, err := OpenSource(filepath.Join(dir, "missing.txt")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file error = %v, want ErrNotExist", err)
	}

	bad := filepath.Join(dir, "bad.xz")
	if err := os.WriteFile(bad, []byte("not xz"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenSource(bad); err == nil {
		t.Error("expected error for corrupted xz")
	}

	badGz := filepath.Join(dir, "bad.gz")
	if err := os.WriteFile(badGz, []byte("not gzip"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenSource(badGz); err == nil {
		t.Error("expected error for corrupted gzip")
	}
}

func TestNewReader_Unsupported(t *testing.T) {
	if _, err := NewReader("store.zip"); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func writeTar(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	gw := gzip.NewWriter(f)
	tw := tar.NewWriter(gw)
	for name, body := range entries {
		if err := tw.WriteHeader(&tar.Header{Name: name, Mode: 0644, Size: int64(len(body)), Typeflag: tar.TypeReg}); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	tw.Close()
	gw.Close()
}

func TestReaderIterate_StopEarly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.tar.gz")
	writeTar(t, path, map[string]string{"store/a": "1", "store/b": "2", "store/c": "3"})

	r, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer r.Close()

	count := 0
	err = r.Iterate(func(header *tar.Header, _ io.Reader) (bool, error) {
		count++
		return true, nil
	})
	if err != nil {
		t.Fatalf("Iterate failed: %v", err)
	}
	if count != 1 {
		t.Errorf("visited %d entries, want 1", count)
	}
}

func TestUnpackRejectsEscapingEntries(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "evil.tar.gz")
	writeTar(t, path, map[string]string{"store/../../escape": "x"})

	_, err := Unpack(context.Background(), path, filepath.Join(dir, "out"))
	if err == nil || !strings.Contains(err.Error(), "escapes") {
		t.Errorf("Unpack error = %v, want escape rejection", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "escape")); err == nil {
		t.Error("entry was written outside the destination")
	}
}

func TestDetectFormat(t *testing.T) {
	tests := map[string]Format{
		"kjv.txt":        FormatPlain,
		"kjv.txt.gz":     FormatGzip,
		"kjv.txt.xz":     FormatXZ,
		"store.tar":      FormatTar,
		"store.tar.gz":   FormatTarGz,
		"store.tgz":      FormatTarGz,
		"store.tar.xz":   FormatTarXZ,
		"/a/b/store.txz": FormatTarXZ,
	}
	for in, want := range tests {
		if got := DetectFormat(in); got != want {
			t.Errorf("DetectFormat(%q) = %s, want %s", in, got, want)
		}
	}
	if !FormatTarXZ.IsTar() || FormatXZ.IsTar() {
		t.Error("IsTar misclassifies formats")
	}
}

func TestStoreName(t *testing.T) {
	tests := map[string]string{
		"kjv.tar.xz":          "kjv",
		"/tmp/out/kjv.tar.gz": "kjv",
		"kjv.tgz":             "kjv",
		"kjv":                 "kjv",
	}
	for in, want := range tests {
		if got := StoreName(in); got != want {
			t.Errorf("StoreName(%q) = %q, want %q", in, got, want)
		}
	}
}
