package archive

import (
	"path/filepath"
	"strings"
)

// Format is a compression or packaging format recognised by extension.
type Format string

const (
	FormatPlain Format = "plain"
	FormatGzip  Format = "gz"
	FormatXZ    Format = "xz"
	FormatTar   Format = "tar"
	FormatTarGz Format = "tar.gz"
	FormatTarXZ Format = "tar.xz"
)

// DetectFormat detects the format from the file extension.
func DetectFormat(path string) Format {
	switch {
	case strings.HasSuffix(path, ".tar.xz"), strings.HasSuffix(path, ".txz"):
		return FormatTarXZ
	case strings.HasSuffix(path, ".tar.gz"), strings.HasSuffix(path, ".tgz"):
		return FormatTarGz
	case strings.HasSuffix(path, ".tar"):
		return FormatTar
	case strings.HasSuffix(path, ".xz"):
		return FormatXZ
	case strings.HasSuffix(path, ".gz"):
		return FormatGzip
	default:
		return FormatPlain
	}
}

// IsTar reports whether f is one of the tar formats.
func (f Format) IsTar() bool {
	return f == FormatTar || f == FormatTarGz || f == FormatTarXZ
}

// StoreName derives a directory name from an archive filename by
// removing its known extensions.
func StoreName(filename string) string {
	name := filepath.Base(filename)
	for _, ext := range []string{".tar.xz", ".tar.gz", ".txz", ".tgz", ".tar"} {
		if strings.HasSuffix(name, ext) {
			return strings.TrimSuffix(name, ext)
		}
	}
	return name
}
