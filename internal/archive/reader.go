// Package archive opens compressed corpora and packs built verse stores
// into tar.gz or tar.xz archives for distribution.
package archive

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"

	"github.com/FocuswithJustin/litbook/internal/validation"
)

// source closes the decompressor and the underlying file together.
type source struct {
	io.Reader
	file         *os.File
	decompressor io.Closer
}

func (s *source) Close() error {
	var errs []error
	if s.decompressor != nil {
		if err := s.decompressor.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.file != nil && s.file != os.Stdin {
		if err := s.file.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// OpenSource opens a corpus for reading. Paths ending in .xz or .gz are
// decompressed; "-" reads standard input.
func OpenSource(path string) (io.ReadCloser, error) {
	if path == "-" || path == "" {
		return &source{Reader: os.Stdin, file: os.Stdin}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}

	r, closer, err := decompress(f, DetectFormat(path))
	if err != nil {
		f.Close()
		return nil, err
	}
	return &source{Reader: r, file: f, decompressor: closer}, nil
}

func decompress(f *os.File, format Format) (io.Reader, io.Closer, error) {
	switch format {
	case FormatXZ, FormatTarXZ:
		xzr, err := xz.NewReader(f)
		if err != nil {
			return nil, nil, fmt.Errorf("xz reader: %w", err)
		}
		return xzr, nil, nil // xz reader doesn't need closing
	case FormatGzip, FormatTarGz:
		gzr, err := gzip.NewReader(f)
		if err != nil {
			return nil, nil, fmt.Errorf("gzip reader: %w", err)
		}
		return gzr, gzr, nil
	default:
		return f, nil, nil
	}
}

// Reader wraps a tar.Reader with automatic decompression handling.
type Reader struct {
	*tar.Reader
	src *source
}

// NewReader opens a .tar, .tar.gz or .tar.xz archive.
func NewReader(path string) (*Reader, error) {
	format := DetectFormat(path)
	if !format.IsTar() {
		return nil, fmt.Errorf("unsupported archive format: %s", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	r, closer, err := decompress(f, format)
	if err != nil {
		f.Close()
		return nil, err
	}

	return &Reader{
		Reader: tar.NewReader(r),
		src:    &source{Reader: r, file: f, decompressor: closer},
	}, nil
}

// Close closes the archive reader and any underlying decompressors.
func (r *Reader) Close() error {
	return r.src.Close()
}

// Visitor is a callback function for iterating archive entries.
// Return true to stop iteration, false to continue.
type Visitor func(header *tar.Header, content io.Reader) (stop bool, err error)

// Iterate walks through all entries in the archive, calling the visitor for each.
func (r *Reader) Iterate(visitor Visitor) error {
	for {
		header, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read header: %w", err)
		}

		stop, err := visitor(header, r)
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
	}
}

// Unpack extracts a packed store into dstDir, dropping the archive's top
// level directory. Entries that would land outside dstDir are rejected.
func Unpack(ctx context.Context, archivePath, dstDir string) (int, error) {
	r, err := NewReader(archivePath)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	if err := os.MkdirAll(dstDir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", dstDir, err)
	}

	files := 0
	err = r.Iterate(func(header *tar.Header, content io.Reader) (bool, error) {
		if err := ctx.Err(); err != nil {
			return true, err
		}

		name := header.Name
		if idx := strings.Index(name, "/"); idx >= 0 {
			name = name[idx+1:]
		}
		if name == "" {
			return false, nil
		}
		target, err := validation.EntryPath(dstDir, name)
		if err != nil {
			return true, fmt.Errorf("archive entry %q escapes destination: %w", header.Name, err)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			return false, os.MkdirAll(target, 0755)
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return true, err
			}
			out, err := os.Create(target)
			if err != nil {
				return true, err
			}
			if _, err := io.Copy(out, content); err != nil {
				out.Close()
				return true, err
			}
			files++
			return false, out.Close()
		default:
			return false, nil
		}
	})
	return files, err
}
