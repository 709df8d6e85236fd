package verse

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/zeebo/blake3"

	apperrors "github.com/FocuswithJustin/litbook/core/errors"
)

// ManifestName is the manifest file written at the store root.
const ManifestName = "manifest.json"

// ManifestVersion is the current manifest layout.
const ManifestVersion = 1

// Manifest describes every chapter written to a store, with BLAKE3
// checksums of both files so damage can be told apart from the normal
// end of a book.
type Manifest struct {
	Version int          `json:"version"`
	Books   []BookRecord `json:"books"`
}

// BookRecord is one book directory.
type BookRecord struct {
	Number   int             `json:"number"`
	Name     string          `json:"name"`
	Chapters []ChapterRecord `json:"chapters"`
}

// ChapterRecord is one chapter file pair.
type ChapterRecord struct {
	Number    int    `json:"number"`
	Verses    int    `json:"verses"`
	BlobSize  int64  `json:"blob_size"`
	BlobHash  string `json:"blob_blake3"`
	IndexHash string `json:"index_blake3"`
}

// Verses returns the total verse count.
func (m *Manifest) Verses() int {
	n := 0
	for _, b := range m.Books {
		for _, c := range b.Chapters {
			n += c.Verses
		}
	}
	return n
}

// Checksum returns the hex BLAKE3 digest of data.
func Checksum(data []byte) string {
	h := blake3.Sum256(data)
	return hex.EncodeToString(h[:])
}

// FileChecksum returns the hex BLAKE3 digest of a file's contents.
func FileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Save writes the manifest to <root>/manifest.json atomically.
func (m *Manifest) Save(root string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	data = append(data, '\n')

	tempFile, err := os.CreateTemp(root, ".manifest-*")
	if err != nil {
		return apperrors.NewIO("create", root, err)
	}
	tempPath := tempFile.Name()

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		os.Remove(tempPath)
		return apperrors.NewIO("write", tempPath, err)
	}
	if err := tempFile.Close(); err != nil {
		os.Remove(tempPath)
		return apperrors.NewIO("close", tempPath, err)
	}

	path := filepath.Join(root, ManifestName)
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return apperrors.NewIO("rename", path, err)
	}
	return nil
}

// LoadManifest reads <root>/manifest.json.
func LoadManifest(root string) (*Manifest, error) {
	path := filepath.Join(root, ManifestName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewNotFound("manifest", path)
		}
		return nil, apperrors.NewIO("read", path, err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, apperrors.NewCorrupt(path, 0, err.Error())
	}
	if m.Version != ManifestVersion {
		return nil, apperrors.NewCorrupt(path, 0, fmt.Sprintf("unsupported manifest version %d", m.Version))
	}
	return &m, nil
}
