package verse

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"

	apperrors "github.com/FocuswithJustin/litbook/core/errors"
)

// WriteChapter writes the verse blob and offset index of one chapter
// into dir and returns its manifest record. Verse texts are stored back
// to back with no separators.
func WriteChapter(dir string, number int, texts []string) (ChapterRecord, error) {
	lengths := make([]int, len(texts))
	var blob bytes.Buffer
	for i, t := range texts {
		lengths[i] = len(t)
		blob.WriteString(t)
	}
	ix := NewIndex(lengths)

	var idx bytes.Buffer
	if _, err := ix.WriteTo(&idx); err != nil {
		return ChapterRecord{}, err
	}

	name := filepath.Join(dir, strconv.Itoa(number))
	if err := os.WriteFile(name, blob.Bytes(), 0644); err != nil {
		return ChapterRecord{}, apperrors.NewIO("write", name, err)
	}
	if err := os.WriteFile(name+".index", idx.Bytes(), 0644); err != nil {
		return ChapterRecord{}, apperrors.NewIO("write", name+".index", err)
	}

	return ChapterRecord{
		Number:    number,
		Verses:    len(texts),
		BlobSize:  ix.BlobSize(),
		BlobHash:  Checksum(blob.Bytes()),
		IndexHash: Checksum(idx.Bytes()),
	}, nil
}
