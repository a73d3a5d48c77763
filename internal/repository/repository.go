// Package repository defines the data-access contract for folders and notes.
//
// There are two implementations, picked at startup by configuration:
//   - repository/memory: process-local maps, used for demos and static deployments
//   - repository/sqlite: an embedded database file
//
// Both return apperror.NotFound for missing IDs and must pass the shared
// contract tests in repositorytest.
package repository

import (
	"context"

	"github.com/sakif/forgenotes/internal/model"
)

// WHY INTERFACES?
// Services depend on these interfaces, not on memory.Store or sqlite.DB.
// The backend is picked once, in server.New, from STORAGE_BACKEND; nothing
// else in the program knows which one is running. Tests exploit the same
// seam: a service test can wrap a real store and fail or pause one method.
//
// THE CONTRACT:
//   - IDs start at 1, increase, and are never reused after a delete.
//   - Lists are ordered by ID ascending and never nil.
//   - Returned values are copies; mutating them changes nothing stored.
//   - A missing ID is apperror.NotFound; other errors are I/O failures.
type FolderRepository interface {
	ListFolders(ctx context.Context) ([]model.Folder, error)
	// CreateFolder assigns folder.ID and applies the default icon.
	CreateFolder(ctx context.Context, folder *model.Folder) error
	DeleteFolder(ctx context.Context, id int64) error
}

type NoteRepository interface {
	ListNotes(ctx context.Context) ([]model.Note, error)
	ListNotesByFolder(ctx context.Context, folderID int64) ([]model.Note, error)
	GetNote(ctx context.Context, id int64) (*model.Note, error)
	// CreateNote assigns note.ID and sets both timestamps to now.
	CreateNote(ctx context.Context, note *model.Note) error
	// UpdateNote merges patch into the stored note and refreshes UpdatedAt.
	UpdateNote(ctx context.Context, id int64, patch model.NotePatch) (*model.Note, error)
	DeleteNote(ctx context.Context, id int64) error
	// SearchNotes matches query as a case-insensitive substring of the
	// title or the content.
	SearchNotes(ctx context.Context, query string) ([]model.Note, error)
}

// Store is everything a backend provides.
type Store interface {
	FolderRepository
	NoteRepository
	// Empty reports whether the store holds no folders and no notes, so
	// seeding can run once on first boot.
	Empty(ctx context.Context) (bool, error)
	Close() error
}

// Atomic is implemented by stores that can apply several writes as one
// unit. fn gets a Store whose writes only become visible if fn returns nil.
//
// Seeding uses it so a failure halfway through does not leave a half-filled
// store that later boots would treat as already seeded.
type Atomic interface {
	Atomically(ctx context.Context, fn func(Store) error) error
}
