package breakout

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	apperrors "github.com/FocuswithJustin/litbook/core/errors"
	"github.com/FocuswithJustin/litbook/core/verse"
	"github.com/FocuswithJustin/litbook/internal/logging"
)

// Write stores every chapter of bible under root, one directory per book,
// and saves a manifest with checksums of every file. Any directory or
// file failure aborts the whole write.
func Write(ctx context.Context, bible *Bible, root string) (*verse.Manifest, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, apperrors.NewIO("create directory", root, err)
	}

	m := &verse.Manifest{Version: verse.ManifestVersion}
	for _, b := range bible.Books {
		dir := filepath.Join(root, b.Name)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, apperrors.NewIO("create directory", dir, err)
		}

		rec := verse.BookRecord{Number: b.Number, Name: b.Name}
		for _, c := range b.Chapters {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			cr, err := verse.WriteChapter(dir, c.Number, c.Texts())
			if err != nil {
				return nil, err
			}
			rec.Chapters = append(rec.Chapters, cr)
		}
		m.Books = append(m.Books, rec)
		logging.BuildEvent("write", b.Name, len(b.Chapters), "verses", b.Verses())
	}

	if err := m.Save(root); err != nil {
		return nil, err
	}
	return m, nil
}

// Summary prints each book with its chapter and verse counts.
func Summary(w io.Writer, bible *Bible) error {
	for _, b := range bible.Books {
		if _, err := fmt.Fprintf(w, "%s: %d chapters\n", b.Name, len(b.Chapters)); err != nil {
			return err
		}
		for _, c := range b.Chapters {
			if _, err := fmt.Fprintf(w, "\tChapter %d\t%5d Verses\n", c.Number, len(c.Verses)); err != nil {
				return err
			}
		}
	}
	return nil
}
