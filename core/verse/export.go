package verse

import (
	"context"
	"database/sql"
	"fmt"

	apperrors "github.com/FocuswithJustin/litbook/core/errors"
	"github.com/FocuswithJustin/litbook/core/ref"
	"github.com/FocuswithJustin/litbook/core/sqlite"
)

const exportSchema = `
CREATE TABLE IF NOT EXISTS books (
	number INTEGER NOT NULL,
	name   TEXT PRIMARY KEY
);
CREATE TABLE IF NOT EXISTS verses (
	book    TEXT    NOT NULL REFERENCES books(name),
	chapter INTEGER NOT NULL,
	verse   INTEGER NOT NULL,
	text    TEXT    NOT NULL,
	PRIMARY KEY (book, chapter, verse)
);
DELETE FROM verses;
DELETE FROM books;
`

// Export copies every chapter listed in the manifest into the SQLite
// database at dbPath, replacing any earlier export. It returns the number
// of verses written.
func (s *Store) Export(ctx context.Context, dbPath string) (int, error) {
	m, err := LoadManifest(s.Root)
	if err != nil {
		return 0, err
	}

	db, err := sqlite.Open(dbPath)
	if err != nil {
		return 0, apperrors.NewIO("open", dbPath, err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, exportSchema); err != nil {
		return 0, fmt.Errorf("failed to create schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin export: %w", err)
	}
	defer tx.Rollback()

	n, err := s.exportBooks(ctx, tx, m)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit export: %w", err)
	}
	return n, nil
}

func (s *Store) exportBooks(ctx context.Context, tx *sql.Tx, m *Manifest) (int, error) {
	bookStmt, err := tx.PrepareContext(ctx, `INSERT INTO books (number, name) VALUES (?, ?)`)
	if err != nil {
		return 0, err
	}
	defer bookStmt.Close()

	verseStmt, err := tx.PrepareContext(ctx, `INSERT INTO verses (book, chapter, verse, text) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer verseStmt.Close()

	total := 0
	for _, b := range m.Books {
		if _, err := bookStmt.ExecContext(ctx, b.Number, b.Name); err != nil {
			return 0, fmt.Errorf("failed to insert book %s: %w", b.Name, err)
		}
		for _, c := range b.Chapters {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
			ch, err := s.ShowChapterRange(b.Name, c.Number, 1, ref.Open)
			if err != nil {
				return 0, fmt.Errorf("%s %d: %w", b.Name, c.Number, err)
			}
			for _, v := range ch.Verses {
				if _, err := verseStmt.ExecContext(ctx, b.Name, c.Number, v.Number, v.Text); err != nil {
					return 0, fmt.Errorf("failed to insert %s %d:%d: %w", b.Name, c.Number, v.Number, err)
				}
			}
			total += len(ch.Verses)
		}
	}
	return total, nil
}
