// Package memory implements the repository interfaces with plain Go maps.
//
// It backs the demo/static deployment: nothing survives a restart. All
// methods are safe for concurrent use; concurrent writes to the same note
// are applied in lock order and the later one wins.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sakif/forgenotes/internal/apperror"
	"github.com/sakif/forgenotes/internal/model"
	"github.com/sakif/forgenotes/internal/repository"
)

var (
	_ repository.Store  = (*Store)(nil)
	_ repository.Atomic = (*Store)(nil)
)

// Store holds folders and notes in memory.
//
// IDs come from per-collection high-water marks, so an ID is never handed
// out twice even after the highest one is deleted.
type Store struct {
	mu           sync.RWMutex
	folders      map[int64]model.Folder
	notes        map[int64]model.Note
	lastFolderID int64
	lastNoteID   int64
	now          func() time.Time
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		folders: make(map[int64]model.Folder),
		notes:   make(map[int64]model.Note),
		now:     time.Now,
	}
}

func (s *Store) Close() error { return nil }

func (s *Store) Empty(_ context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.folders) == 0 && len(s.notes) == 0, nil
}

// Atomically runs fn and, if it fails, puts the store back the way it was
// before fn started. It rolls back but does not isolate: writes made by
// other goroutines while fn runs are lost on rollback too, which is fine
// for its one caller, seeding at startup.
func (s *Store) Atomically(_ context.Context, fn func(repository.Store) error) error {
	snap := s.snapshot()
	if err := fn(s); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type snapshot struct {
	folders      map[int64]model.Folder
	notes        map[int64]model.Note
	lastFolderID int64
	lastNoteID   int64
}

func (s *Store) snapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := snapshot{
		folders:      make(map[int64]model.Folder, len(s.folders)),
		notes:        make(map[int64]model.Note, len(s.notes)),
		lastFolderID: s.lastFolderID,
		lastNoteID:   s.lastNoteID,
	}
	for id, f := range s.folders {
		snap.folders[id] = f
	}
	for id, n := range s.notes {
		snap.notes[id] = *copyNote(n)
	}
	return snap
}

// restore keeps the ID counters where they are, so IDs handed out by the
// failed batch are still never reused.
func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.folders = snap.folders
	s.notes = snap.notes
}

// =========================================================================
// FOLDERS
// =========================================================================

func (s *Store) ListFolders(_ context.Context) ([]model.Folder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	folders := make([]model.Folder, 0, len(s.folders))
	for _, f := range s.folders {
		folders = append(folders, f)
	}
	sort.Slice(folders, func(i, j int) bool { return folders[i].ID < folders[j].ID })
	return folders, nil
}

func (s *Store) CreateFolder(_ context.Context, folder *model.Folder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastFolderID++
	folder.ID = s.lastFolderID
	if folder.Icon == "" {
		folder.Icon = model.DefaultFolderIcon
	}
	s.folders[folder.ID] = *folder
	return nil
}

func (s *Store) DeleteFolder(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.folders[id]; !ok {
		return apperror.NotFound("folder", id)
	}
	delete(s.folders, id)
	return nil
}

// =========================================================================
// NOTES
// =========================================================================

func (s *Store) ListNotes(_ context.Context) ([]model.Note, error) {
	return s.filterNotes(func(model.Note) bool { return true }), nil
}

func (s *Store) ListNotesByFolder(_ context.Context, folderID int64) ([]model.Note, error) {
	return s.filterNotes(func(n model.Note) bool {
		return n.FolderID != nil && *n.FolderID == folderID
	}), nil
}

func (s *Store) SearchNotes(_ context.Context, query string) ([]model.Note, error) {
	q := strings.ToLower(query)
	return s.filterNotes(func(n model.Note) bool {
		return strings.Contains(strings.ToLower(n.Title), q) ||
			strings.Contains(strings.ToLower(n.Content), q)
	}), nil
}

func (s *Store) GetNote(_ context.Context, id int64) (*model.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.notes[id]
	if !ok {
		return nil, apperror.NotFound("note", id)
	}
	return copyNote(n), nil
}

func (s *Store) CreateNote(_ context.Context, note *model.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastNoteID++
	now := s.now()
	note.ID = s.lastNoteID
	note.CreatedAt = now
	note.UpdatedAt = now
	s.notes[note.ID] = *copyNote(*note)
	return nil
}

func (s *Store) UpdateNote(_ context.Context, id int64, patch model.NotePatch) (*model.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notes[id]
	if !ok {
		return nil, apperror.NotFound("note", id)
	}
	patch.Apply(&n)
	if now := s.now(); now.After(n.CreatedAt) {
		n.UpdatedAt = now
	} else {
		n.UpdatedAt = n.CreatedAt
	}
	s.notes[id] = *copyNote(n)
	return copyNote(n), nil
}

func (s *Store) DeleteNote(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.notes[id]; !ok {
		return apperror.NotFound("note", id)
	}
	delete(s.notes, id)
	return nil
}

// filterNotes returns copies of the matching notes ordered by ID.
func (s *Store) filterNotes(keep func(model.Note) bool) []model.Note {
	s.mu.RLock()
	defer s.mu.RUnlock()

	notes := make([]model.Note, 0, len(s.notes))
	for _, n := range s.notes {
		if keep(n) {
			notes = append(notes, *copyNote(n))
		}
	}
	sort.Slice(notes, func(i, j int) bool { return notes[i].ID < notes[j].ID })
	return notes
}

// copyNote detaches the FolderID pointer so callers cannot write through
// to stored state.
func copyNote(n model.Note) *model.Note {
	if n.FolderID != nil {
		n.FolderID = model.Int64(*n.FolderID)
	}
	return &n
}
