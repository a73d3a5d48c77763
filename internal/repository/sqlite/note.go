package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/forgenotes/internal/apperror"
	"github.com/sakif/forgenotes/internal/model"
	"github.com/sakif/forgenotes/internal/repository"
)

var _ repository.NoteRepository = (*DB)(nil)

const noteColumns = `id, title, content, folder_id, created_at, updated_at`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(row rowScanner) (*model.Note, error) {
	var (
		n        model.Note
		folderID sql.NullInt64
	)
	if err := row.Scan(&n.ID, &n.Title, &n.Content, &folderID, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return nil, err
	}
	if folderID.Valid {
		n.FolderID = model.Int64(folderID.Int64)
	}
	return &n, nil
}

func nullFolderID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

func (db *DB) queryNotes(ctx context.Context, op, query string, args ...any) ([]model.Note, error) {
	rows, err := db.q().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: %s: %w", op, err)
	}
	defer rows.Close()

	notes := []model.Note{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning note row: %w", err)
		}
		notes = append(notes, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating notes: %w", err)
	}

	return notes, nil
}

func (db *DB) ListNotes(ctx context.Context) ([]model.Note, error) {
	return db.queryNotes(ctx, "listing notes",
		`SELECT `+noteColumns+` FROM notes ORDER BY id`,
	)
}

func (db *DB) ListNotesByFolder(ctx context.Context, folderID int64) ([]model.Note, error) {
	return db.queryNotes(ctx, "listing notes by folder",
		`SELECT `+noteColumns+` FROM notes WHERE folder_id = ? ORDER BY id`,
		folderID,
	)
}

// SearchNotes matches query anywhere in the title or the content.
//
// WHY instr AND NOT LIKE?
// LIKE treats % and _ in the query as wildcards; instr is a plain substring
// test. Both sides go through fold() (see sqlite.go) so non-ASCII letters
// match regardless of case, the same as the memory backend.
func (db *DB) SearchNotes(ctx context.Context, query string) ([]model.Note, error) {
	return db.queryNotes(ctx, "searching notes",
		`SELECT `+noteColumns+` FROM notes
		 WHERE instr(`+foldFunc+`(title), `+foldFunc+`(?)) > 0
		    OR instr(`+foldFunc+`(content), `+foldFunc+`(?)) > 0
		 ORDER BY id`,
		query, query,
	)
}

func (db *DB) GetNote(ctx context.Context, id int64) (*model.Note, error) {
	n, err := scanNote(db.q().QueryRowContext(ctx,
		`SELECT `+noteColumns+` FROM notes WHERE id = ?`, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("note", id)
		}
		return nil, fmt.Errorf("sqlite: getting note %d: %w", id, err)
	}
	return n, nil
}

func (db *DB) CreateNote(ctx context.Context, note *model.Note) error {
	now := time.Now()
	note.CreatedAt = now
	note.UpdatedAt = now

	result, err := db.q().ExecContext(ctx,
		`INSERT INTO notes (title, content, folder_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		note.Title,
		note.Content,
		nullFolderID(note.FolderID),
		note.CreatedAt,
		note.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating note: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading note id: %w", err)
	}
	note.ID = id

	return nil
}

// UpdateNote reads, merges and writes inside one transaction so the merge
// is applied to the row as it is at write time.
func (db *DB) UpdateNote(ctx context.Context, id int64, patch model.NotePatch) (*model.Note, error) {
	var n *model.Note
	err := db.inTx(ctx, func(q querier) error {
		var err error
		n, err = scanNote(q.QueryRowContext(ctx,
			`SELECT `+noteColumns+` FROM notes WHERE id = ?`, id,
		))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperror.NotFound("note", id)
			}
			return fmt.Errorf("sqlite: loading note %d: %w", id, err)
		}

		patch.Apply(n)
		n.UpdatedAt = time.Now()
		if n.UpdatedAt.Before(n.CreatedAt) {
			n.UpdatedAt = n.CreatedAt
		}

		_, err = q.ExecContext(ctx,
			`UPDATE notes
			 SET title = ?, content = ?, folder_id = ?, updated_at = ?
			 WHERE id = ?`,
			n.Title,
			n.Content,
			nullFolderID(n.FolderID),
			n.UpdatedAt,
			id,
		)
		if err != nil {
			return fmt.Errorf("sqlite: updating note %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return n, nil
}

func (db *DB) DeleteNote(ctx context.Context, id int64) error {
	result, err := db.q().ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting note %d: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("note", id)
	}

	return nil
}
