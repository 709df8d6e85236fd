// Package verse implements the offset-indexed verse store: a pair of files
// per chapter, one holding the concatenated verse texts and one holding
// the byte offsets that delimit them.
//
// Index file layout, every field an int64 in the host byte order:
//
//	count | offset[0] | offset[1] | ... | offset[count]
//
// offset[i-1] is where verse i starts and offset[i] is where it ends, so
// the last offset is the size of the verse blob. The file is exactly
// (count+2)*8 bytes long.
package verse

import (
	"encoding/binary"
	"fmt"
	"io"
)

// wordSize is the width of every field in an index file.
const wordSize = 8

// maxVerses bounds the count field so a damaged index cannot force a huge
// allocation.
const maxVerses = 1 << 20

// Index is the offset table of one chapter.
type Index struct {
	offsets []int64
}

// NewIndex builds the table for verses of the given byte lengths.
func NewIndex(lengths []int) *Index {
	offsets := make([]int64, len(lengths)+1)
	for i, n := range lengths {
		offsets[i+1] = offsets[i] + int64(n)
	}
	return &Index{offsets: offsets}
}

// IndexFromOffsets wraps an existing table. offsets must hold count+1
// entries.
func IndexFromOffsets(offsets []int64) (*Index, error) {
	ix := &Index{offsets: offsets}
	if err := ix.check(); err != nil {
		return nil, err
	}
	return ix, nil
}

// Count returns the number of verses.
func (ix *Index) Count() int {
	return len(ix.offsets) - 1
}

// Span returns the byte range [start, end) of verse i (1-based).
func (ix *Index) Span(i int) (start, end int64) {
	return ix.offsets[i-1], ix.offsets[i]
}

// Len returns the length in bytes of verse i.
func (ix *Index) Len(i int) int64 {
	start, end := ix.Span(i)
	return end - start
}

// BlobSize is the expected size of the companion verse blob.
func (ix *Index) BlobSize() int64 {
	return ix.offsets[len(ix.offsets)-1]
}

// FileSize is the exact size of the encoded index.
func (ix *Index) FileSize() int64 {
	return int64(len(ix.offsets)+1) * wordSize
}

// WriteTo encodes the index to w.
func (ix *Index) WriteTo(w io.Writer) (int64, error) {
	buf := make([]byte, ix.FileSize())
	binary.NativeEndian.PutUint64(buf, uint64(ix.Count()))
	for i, off := range ix.offsets {
		binary.NativeEndian.PutUint64(buf[(i+1)*wordSize:], uint64(off))
	}
	n, err := w.Write(buf)
	return int64(n), err
}

// ReadCount reads only the leading verse count.
func ReadCount(r io.Reader) (int64, error) {
	var count int64
	if err := binary.Read(r, binary.NativeEndian, &count); err != nil {
		return 0, err
	}
	return count, nil
}

// ReadIndex decodes a complete index from r. A count below 1, a short
// table or decreasing offsets are reported as errors.
func ReadIndex(r io.Reader) (*Index, error) {
	count, err := ReadCount(r)
	if err != nil {
		return nil, fmt.Errorf("read count: %w", err)
	}
	return readOffsets(r, count)
}

func readOffsets(r io.Reader, count int64) (*Index, error) {
	if count < 1 || count > maxVerses {
		return nil, fmt.Errorf("verse count %d", count)
	}
	offsets := make([]int64, count+1)
	if err := binary.Read(r, binary.NativeEndian, offsets); err != nil {
		return nil, fmt.Errorf("offset table for %d verses: %w", count, err)
	}
	return IndexFromOffsets(offsets)
}

func (ix *Index) check() error {
	if len(ix.offsets) < 2 {
		return fmt.Errorf("offset table has %d entries", len(ix.offsets))
	}
	if ix.offsets[0] < 0 {
		return fmt.Errorf("negative first offset %d", ix.offsets[0])
	}
	for i := 1; i < len(ix.offsets); i++ {
		if ix.offsets[i] < ix.offsets[i-1] {
			return fmt.Errorf("offset %d (%d) precedes offset %d (%d)", i, ix.offsets[i], i-1, ix.offsets[i-1])
		}
	}
	return nil
}
