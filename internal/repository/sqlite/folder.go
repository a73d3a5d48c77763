package sqlite

import (
	"context"
	"fmt"

	"github.com/sakif/forgenotes/internal/apperror"
	"github.com/sakif/forgenotes/internal/model"
	"github.com/sakif/forgenotes/internal/repository"
)

var _ repository.FolderRepository = (*DB)(nil)

func (db *DB) ListFolders(ctx context.Context) ([]model.Folder, error) {
	rows, err := db.q().QueryContext(ctx,
		`SELECT id, name, icon FROM folders ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing folders: %w", err)
	}
	defer rows.Close()

	folders := []model.Folder{}
	for rows.Next() {
		var f model.Folder
		if err := rows.Scan(&f.ID, &f.Name, &f.Icon); err != nil {
			return nil, fmt.Errorf("sqlite: scanning folder row: %w", err)
		}
		folders = append(folders, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating folders: %w", err)
	}

	return folders, nil
}

// CreateFolder inserts the folder and fills in its ID. AUTOINCREMENT keeps
// IDs of deleted folders from being handed out again.
func (db *DB) CreateFolder(ctx context.Context, folder *model.Folder) error {
	if folder.Icon == "" {
		folder.Icon = model.DefaultFolderIcon
	}

	result, err := db.q().ExecContext(ctx,
		`INSERT INTO folders (name, icon) VALUES (?, ?)`,
		folder.Name,
		folder.Icon,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating folder: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading folder id: %w", err)
	}
	folder.ID = id

	return nil
}

// DeleteFolder removes the folder row only; notes keep their folder_id.
func (db *DB) DeleteFolder(ctx context.Context, id int64) error {
	result, err := db.q().ExecContext(ctx, `DELETE FROM folders WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting folder %d: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("folder", id)
	}

	return nil
}
