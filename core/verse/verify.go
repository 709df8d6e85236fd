package verse

import (
	"bytes"
	"context"
	"fmt"
	"os"

	apperrors "github.com/FocuswithJustin/litbook/core/errors"
	"github.com/FocuswithJustin/litbook/internal/workerpool"
)

// Report is the outcome of a store verification.
type Report struct {
	Books    int                       `json:"books"`
	Chapters int                       `json:"chapters"`
	Verses   int                       `json:"verses"`
	Problems []*apperrors.CorruptError `json:"problems,omitempty"`
}

// OK reports whether no problem was found.
func (r *Report) OK() bool {
	return len(r.Problems) == 0
}

func (r *Report) add(path, format string, args ...any) {
	r.Problems = append(r.Problems, apperrors.NewCorrupt(path, 0, fmt.Sprintf(format, args...)))
}

// Verify checks every chapter listed in the store's manifest: both files
// must exist, match their recorded BLAKE3 checksums and sizes, and the
// index must be well formed for its blob. Chapters are checked in parallel
// but problems are reported in manifest order. Problems are collected in
// the report; the error is reserved for a missing or unreadable manifest
// and for cancellation.
func (s *Store) Verify(ctx context.Context) (*Report, error) {
	m, err := LoadManifest(s.Root)
	if err != nil {
		return nil, err
	}

	var jobs []chapterJob
	for _, b := range m.Books {
		for _, c := range b.Chapters {
			jobs = append(jobs, chapterJob{idx: len(jobs), book: b.Name, rec: c})
		}
	}

	pool := workerpool.New[chapterJob, chapterResult](s.Workers, len(jobs))
	pool.Start(func(j chapterJob) chapterResult {
		if err := ctx.Err(); err != nil {
			return chapterResult{idx: j.idx, err: err}
		}
		var part Report
		s.verifyChapter(&part, j.book, j.rec)
		return chapterResult{idx: j.idx, problems: part.Problems}
	})
	for _, j := range jobs {
		pool.Submit(j)
	}
	pool.Close()

	results := make([]chapterResult, len(jobs))
	for r := range pool.Results() {
		results[r.idx] = r
	}

	rep := &Report{Books: len(m.Books)}
	for i, r := range results {
		if r.err != nil {
			return rep, r.err
		}
		rep.Chapters++
		rep.Verses += jobs[i].rec.Verses
		rep.Problems = append(rep.Problems, r.problems...)
	}
	return rep, nil
}

type chapterJob struct {
	idx  int
	book string
	rec  ChapterRecord
}

type chapterResult struct {
	idx      int
	problems []*apperrors.CorruptError
	err      error
}

func (s *Store) verifyChapter(rep *Report, book string, c ChapterRecord) {
	idxPath := s.IndexPath(book, c.Number)
	idxData, err := os.ReadFile(idxPath)
	if err != nil {
		rep.add(idxPath, "%v", err)
		return
	}
	if sum := Checksum(idxData); sum != c.IndexHash {
		rep.add(idxPath, "checksum %s, manifest has %s", sum, c.IndexHash)
	}

	ix, err := ReadIndex(bytes.NewReader(idxData))
	if err != nil {
		rep.add(idxPath, "%v", err)
		return
	}
	if ix.FileSize() != int64(len(idxData)) {
		rep.add(idxPath, "size %d, want %d for %d verses", len(idxData), ix.FileSize(), ix.Count())
	}
	if ix.Count() != c.Verses {
		rep.add(idxPath, "%d verses, manifest has %d", ix.Count(), c.Verses)
	}

	blobPath := s.BlobPath(book, c.Number)
	info, err := os.Stat(blobPath)
	if err != nil {
		rep.add(blobPath, "%v", err)
		return
	}
	if info.Size() != ix.BlobSize() {
		rep.add(blobPath, "size %d, index ends at %d", info.Size(), ix.BlobSize())
	}
	if info.Size() != c.BlobSize {
		rep.add(blobPath, "size %d, manifest has %d", info.Size(), c.BlobSize)
	}
	sum, err := FileChecksum(blobPath)
	if err != nil {
		rep.add(blobPath, "%v", err)
		return
	}
	if sum != c.BlobHash {
		rep.add(blobPath, "checksum %s, manifest has %s", sum, c.BlobHash)
	}
}
