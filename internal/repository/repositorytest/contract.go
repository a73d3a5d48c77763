// Package repositorytest holds the behaviour every repository.Store
// implementation must share. Backends call Run from their own tests.
package repositorytest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/forgenotes/internal/apperror"
	"github.com/sakif/forgenotes/internal/model"
	"github.com/sakif/forgenotes/internal/repository"
)

// Factory returns a fresh, empty store. It should register its own cleanup.
type Factory func(t *testing.T) repository.Store

// Run executes the contract suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	tests := []struct {
		name string
		fn   func(t *testing.T, s repository.Store)
	}{
		{"EmptyOnStart", testEmptyOnStart},
		{"CreateFolderAssignsIDs", testCreateFolderAssignsIDs},
		{"CreateFolderDefaultIcon", testCreateFolderDefaultIcon},
		{"DeleteFolderKeepsNotes", testDeleteFolderKeepsNotes},
		{"DeleteFolderNotFound", testDeleteFolderNotFound},
		{"CreateNoteSetsTimestamps", testCreateNoteSetsTimestamps},
		{"GetNoteNotFound", testGetNoteNotFound},
		{"ListNotesOrdered", testListNotesOrdered},
		{"ListNotesByFolder", testListNotesByFolder},
		{"UpdateNoteMergesFields", testUpdateNoteMergesFields},
		{"UpdateNoteClearsFolder", testUpdateNoteClearsFolder},
		{"UpdateNoteNotFound", testUpdateNoteNotFound},
		{"DeleteNoteThenGet", testDeleteNoteThenGet},
		{"DeleteNoteNotFound", testDeleteNoteNotFound},
		{"SearchNotesCaseInsensitive", testSearchNotesCaseInsensitive},
		{"IDsNotReused", testIDsNotReused},
		{"OrphanFolderIDAllowed", testOrphanFolderIDAllowed},
		{"SearchNotesNonASCII", testSearchNotesNonASCII},
		{"AtomicallyRollsBack", testAtomicallyRollsBack},
		{"AtomicallyCommits", testAtomicallyCommits},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

func createNote(t *testing.T, s repository.Store, title, content string, folderID *int64) *model.Note {
	t.Helper()
	n := &model.Note{Title: title, Content: content, FolderID: folderID}
	require.NoError(t, s.CreateNote(context.Background(), n))
	return n
}

func createFolder(t *testing.T, s repository.Store, name, icon string) *model.Folder {
	t.Helper()
	f := &model.Folder{Name: name, Icon: icon}
	require.NoError(t, s.CreateFolder(context.Background(), f))
	return f
}

func testEmptyOnStart(t *testing.T, s repository.Store) {
	ctx := context.Background()

	empty, err := s.Empty(ctx)
	require.NoError(t, err)
	assert.True(t, empty)

	createFolder(t, s, "Work", "")
	empty, err = s.Empty(ctx)
	require.NoError(t, err)
	assert.False(t, empty)
}

func testCreateFolderAssignsIDs(t *testing.T, s repository.Store) {
	a := createFolder(t, s, "Personal", "fa-user")
	b := createFolder(t, s, "Work", "fa-briefcase")

	assert.Equal(t, int64(1), a.ID)
	assert.Equal(t, int64(2), b.ID)

	folders, err := s.ListFolders(context.Background())
	require.NoError(t, err)
	require.Len(t, folders, 2)
	assert.Equal(t, "Personal", folders[0].Name)
	assert.Equal(t, "fa-briefcase", folders[1].Icon)
}

func testCreateFolderDefaultIcon(t *testing.T, s repository.Store) {
	f := createFolder(t, s, "Misc", "")
	assert.Equal(t, model.DefaultFolderIcon, f.Icon)

	folders, err := s.ListFolders(context.Background())
	require.NoError(t, err)
	require.Len(t, folders, 1)
	assert.Equal(t, model.DefaultFolderIcon, folders[0].Icon)
}

func testDeleteFolderKeepsNotes(t *testing.T, s repository.Store) {
	ctx := context.Background()
	f := createFolder(t, s, "Work", "")
	n := createNote(t, s, "T", "C", model.Int64(f.ID))

	require.NoError(t, s.DeleteFolder(ctx, f.ID))

	got, err := s.GetNote(ctx, n.ID)
	require.NoError(t, err)
	require.NotNil(t, got.FolderID)
	assert.Equal(t, f.ID, *got.FolderID)

	folders, err := s.ListFolders(ctx)
	require.NoError(t, err)
	assert.Empty(t, folders)
}

func testDeleteFolderNotFound(t *testing.T, s repository.Store) {
	err := s.DeleteFolder(context.Background(), 99)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func testCreateNoteSetsTimestamps(t *testing.T, s repository.Store) {
	before := time.Now()
	n := createNote(t, s, "Hello", "world", nil)

	assert.NotZero(t, n.ID)
	assert.True(t, n.CreatedAt.Equal(n.UpdatedAt), "createdAt and updatedAt differ on create")
	assert.WithinDuration(t, before, n.CreatedAt, 5*time.Second)

	got, err := s.GetNote(context.Background(), n.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hello", got.Title)
	assert.Equal(t, "world", got.Content)
	assert.Nil(t, got.FolderID)
	assert.True(t, got.CreatedAt.Equal(n.CreatedAt), "stored createdAt = %v, want %v", got.CreatedAt, n.CreatedAt)
}

func testGetNoteNotFound(t *testing.T, s repository.Store) {
	_, err := s.GetNote(context.Background(), 12345)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func testListNotesOrdered(t *testing.T, s repository.Store) {
	createNote(t, s, "first", "", nil)
	createNote(t, s, "second", "", nil)
	createNote(t, s, "third", "", nil)

	notes, err := s.ListNotes(context.Background())
	require.NoError(t, err)
	require.Len(t, notes, 3)
	for i, want := range []string{"first", "second", "third"} {
		assert.Equal(t, want, notes[i].Title)
	}
}

func testListNotesByFolder(t *testing.T, s repository.Store) {
	ctx := context.Background()
	for _, name := range []string{"Personal", "Projects", "Ideas"} {
		createFolder(t, s, name, "")
	}
	work := createFolder(t, s, "Work", "")
	require.Equal(t, int64(4), work.ID)

	createNote(t, s, "elsewhere", "", model.Int64(1))
	createNote(t, s, "loose", "", nil)
	want := createNote(t, s, "T", "C", model.Int64(work.ID))

	notes, err := s.ListNotesByFolder(ctx, work.ID)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, want.ID, notes[0].ID)
	assert.Equal(t, "T", notes[0].Title)
	assert.Equal(t, "C", notes[0].Content)
}

func testUpdateNoteMergesFields(t *testing.T, s repository.Store) {
	ctx := context.Background()
	n := createNote(t, s, "old", "body", model.Int64(3))
	time.Sleep(2 * time.Millisecond)

	got, err := s.UpdateNote(ctx, n.ID, model.NotePatch{Title: model.String("X")})
	require.NoError(t, err)

	assert.Equal(t, "X", got.Title)
	assert.Equal(t, "body", got.Content)
	require.NotNil(t, got.FolderID)
	assert.Equal(t, int64(3), *got.FolderID)
	assert.True(t, got.CreatedAt.Equal(n.CreatedAt), "createdAt changed on update")
	assert.True(t, got.UpdatedAt.After(n.UpdatedAt), "updatedAt was not refreshed")

	stored, err := s.GetNote(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "X", stored.Title)
	assert.False(t, stored.UpdatedAt.Before(stored.CreatedAt))
}

func testUpdateNoteClearsFolder(t *testing.T, s repository.Store) {
	ctx := context.Background()
	n := createNote(t, s, "t", "c", model.Int64(2))

	got, err := s.UpdateNote(ctx, n.ID, model.NotePatch{FolderID: model.Null[int64]()})
	require.NoError(t, err)
	assert.Nil(t, got.FolderID)

	got, err = s.UpdateNote(ctx, n.ID, model.NotePatch{FolderID: model.Some[int64](5)})
	require.NoError(t, err)
	require.NotNil(t, got.FolderID)
	assert.Equal(t, int64(5), *got.FolderID)
}

func testUpdateNoteNotFound(t *testing.T, s repository.Store) {
	_, err := s.UpdateNote(context.Background(), 77, model.NotePatch{Title: model.String("x")})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func testDeleteNoteThenGet(t *testing.T, s repository.Store) {
	ctx := context.Background()
	n := createNote(t, s, "doomed", "", nil)

	require.NoError(t, s.DeleteNote(ctx, n.ID))

	_, err := s.GetNote(ctx, n.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func testDeleteNoteNotFound(t *testing.T, s repository.Store) {
	err := s.DeleteNote(context.Background(), 5)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func testSearchNotesCaseInsensitive(t *testing.T, s repository.Store) {
	ctx := context.Background()
	welcome := createNote(t, s, "Welcome to ForgeNotes", "intro", nil)
	body := createNote(t, s, "Shopping", "remember the WELCOME mat", nil)
	createNote(t, s, "Unrelated", "nothing here", nil)

	notes, err := s.SearchNotes(ctx, "WELCOME")
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, welcome.ID, notes[0].ID)
	assert.Equal(t, body.ID, notes[1].ID)

	notes, err = s.SearchNotes(ctx, "no such text")
	require.NoError(t, err)
	assert.Empty(t, notes)
}

func testIDsNotReused(t *testing.T, s repository.Store) {
	ctx := context.Background()
	createNote(t, s, "a", "", nil)
	b := createNote(t, s, "b", "", nil)
	require.NoError(t, s.DeleteNote(ctx, b.ID))

	c := createNote(t, s, "c", "", nil)
	assert.Greater(t, c.ID, b.ID)

	f := createFolder(t, s, "x", "")
	require.NoError(t, s.DeleteFolder(ctx, f.ID))
	g := createFolder(t, s, "y", "")
	assert.Greater(t, g.ID, f.ID)
}

func testOrphanFolderIDAllowed(t *testing.T, s repository.Store) {
	n := createNote(t, s, "orphan", "", model.Int64(404))

	got, err := s.GetNote(context.Background(), n.ID)
	require.NoError(t, err)
	require.NotNil(t, got.FolderID)
	assert.Equal(t, int64(404), *got.FolderID)
}

// Case folding must cover non-ASCII letters, and an exact-case query must
// always match.
func testSearchNotesNonASCII(t *testing.T, s repository.Store) {
	ctx := context.Background()
	paris := createNote(t, s, "Été à Paris", "Ölfarben und Straße", nil)
	createNote(t, s, "Winter", "snow", nil)

	for _, q := range []string{"Été", "été", "ÉTÉ", "Ölfarben", "ölFARBEN", "straße"} {
		notes, err := s.SearchNotes(ctx, q)
		require.NoError(t, err)
		require.Len(t, notes, 1, "query %q", q)
		assert.Equal(t, paris.ID, notes[0].ID, "query %q", q)
	}
}

func asAtomic(t *testing.T, s repository.Store) repository.Atomic {
	t.Helper()
	a, ok := s.(repository.Atomic)
	if !ok {
		t.Skip("store does not implement repository.Atomic")
	}
	return a
}

func testAtomicallyRollsBack(t *testing.T, s repository.Store) {
	ctx := context.Background()
	errBatch := errors.New("batch failed")

	err := asAtomic(t, s).Atomically(ctx, func(tx repository.Store) error {
		createFolder(t, tx, "Personal", "")
		createNote(t, tx, "half", "written", nil)
		return errBatch
	})
	require.ErrorIs(t, err, errBatch)

	empty, err := s.Empty(ctx)
	require.NoError(t, err)
	assert.True(t, empty, "writes of a failed batch must not be visible")

	// Rolled-back IDs may be skipped but a new row must still get one.
	n := createNote(t, s, "after", "", nil)
	assert.Positive(t, n.ID)
}

func testAtomicallyCommits(t *testing.T, s repository.Store) {
	ctx := context.Background()

	var noteID int64
	err := asAtomic(t, s).Atomically(ctx, func(tx repository.Store) error {
		createFolder(t, tx, "Personal", "")
		n := createNote(t, tx, "draft", "", nil)
		noteID = n.ID
		_, err := tx.UpdateNote(ctx, n.ID, model.NotePatch{Title: model.String("final")})
		return err
	})
	require.NoError(t, err)

	got, err := s.GetNote(ctx, noteID)
	require.NoError(t, err)
	assert.Equal(t, "final", got.Title)

	folders, err := s.ListFolders(ctx)
	require.NoError(t, err)
	assert.Len(t, folders, 1)
}
