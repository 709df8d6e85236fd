package archive

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/ulikunitz/xz"
)

// epoch is stamped on every entry so packing the same store twice yields
// identical archives.
var epoch = time.Unix(0, 0).UTC()

// Pack writes the directory srcDir into a .tar.gz or .tar.xz archive at
// dstPath. Entries live under a top level directory named after dstPath.
// It returns the number of files packed.
func Pack(ctx context.Context, srcDir, dstPath string) (int, error) {
	format := DetectFormat(dstPath)
	if format != FormatTarGz && format != FormatTarXZ {
		return 0, fmt.Errorf("unsupported archive format: %s", dstPath)
	}
	if err := os.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
		return 0, fmt.Errorf("failed to create parent directory: %w", err)
	}

	outFile, err := os.Create(dstPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create archive file: %w", err)
	}
	defer outFile.Close()

	var compressor io.WriteCloser
	if format == FormatTarXZ {
		compressor, err = xz.NewWriter(outFile)
		if err != nil {
			return 0, fmt.Errorf("xz writer: %w", err)
		}
	} else {
		compressor = gzip.NewWriter(outFile)
	}

	tw := tar.NewWriter(compressor)
	n, err := writeTree(ctx, tw, srcDir, StoreName(dstPath))
	if err != nil {
		tw.Close()
		compressor.Close()
		return 0, fmt.Errorf("failed to create archive: %w", err)
	}
	if err := tw.Close(); err != nil {
		compressor.Close()
		return 0, err
	}
	if err := compressor.Close(); err != nil {
		return 0, err
	}
	return n, outFile.Close()
}

func writeTree(ctx context.Context, tw *tar.Writer, srcDir, baseDir string) (int, error) {
	var paths []string
	err := filepath.Walk(srcDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return 0, err
	}
	sort.Strings(paths)

	files := 0
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		relPath, err := filepath.Rel(srcDir, path)
		if err != nil {
			return 0, err
		}
		if relPath == "." {
			continue
		}

		info, err := os.Lstat(path)
		if err != nil {
			return 0, err
		}
		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return 0, err
		}
		header.Name = baseDir + "/" + filepath.ToSlash(relPath)
		if info.IsDir() {
			header.Name += "/"
		}
		header.ModTime = epoch
		header.AccessTime, header.ChangeTime = time.Time{}, time.Time{}
		header.Uid, header.Gid = 0, 0
		header.Uname, header.Gname = "", ""

		if err := tw.WriteHeader(header); err != nil {
			return 0, err
		}
		if !info.Mode().IsRegular() {
			continue
		}
		if err := copyFile(tw, path); err != nil {
			return 0, err
		}
		files++
	}
	return files, nil
}

func copyFile(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}
