package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/patrickmn/go-cache"

	"github.com/sakif/forgenotes/internal/apperror"
	"github.com/sakif/forgenotes/internal/markdown"
	"github.com/sakif/forgenotes/internal/model"
	"github.com/sakif/forgenotes/internal/repository"
)

// Render cache lifetimes. Entries are also dropped on every note mutation,
// so the expiry only bounds memory for notes nobody edits.
const (
	renderCacheTTL     = 10 * time.Minute
	renderCacheCleanup = 20 * time.Minute
)

// MaxContentLength bounds note bodies and preview input.
const MaxContentLength = 100000

// NoteService handles business logic for notes, including rendering and
// backlink resolution.
//
// RENDER CACHE INVALIDATION:
// Rendered HTML depends on every note's title, not just the note's own
// body: renaming "Draft" to "Getting Started" turns a missing link in some
// other note into a real one. So there is no per-note invalidation; any
// create, update or delete invalidates everything.
//
// WHY A GENERATION AND NOT JUST Flush()?
// Requests run concurrently. A Render can read the old note, then an Update
// commits and flushes, then the Render finishes and stores the old HTML in
// the freshly emptied cache. To rule that out, every mutation bumps gen and
// cache keys carry the generation the render STARTED with:
//
//	Render:  g := gen.Load()  → read note + titles → SetDefault("g:id", html)
//	Update:  write note       → gen.Add(1)         → Flush()
//
// A render that raced an update stores its result under the old
// generation, which no later lookup asks for. Flush only frees the memory.
type NoteService struct {
	repo     repository.NoteRepository
	renderer *markdown.Renderer
	rendered *cache.Cache
	gen      atomic.Uint64
	events   Publisher
	logger   *slog.Logger
}

// NewNoteService creates a NoteService. events may be nil.
func NewNoteService(repo repository.NoteRepository, events Publisher, logger *slog.Logger) *NoteService {
	return &NoteService{
		repo:     repo,
		renderer: markdown.New(),
		rendered: cache.New(renderCacheTTL, renderCacheCleanup),
		events:   orNop(events),
		logger:   logger,
	}
}

// List returns notes ordered by ID. A FolderID restricts to that folder and
// a non-blank Query to notes whose title or content contains it, ignoring
// case. Both may be combined.
func (s *NoteService) List(ctx context.Context, filter model.NoteFilter) ([]model.Note, error) {
	query := strings.TrimSpace(filter.Query)

	var (
		notes []model.Note
		err   error
	)
	switch {
	case filter.FolderID != nil:
		notes, err = s.repo.ListNotesByFolder(ctx, *filter.FolderID)
		if err == nil && query != "" {
			notes = matching(notes, query)
		}
	case query != "":
		notes, err = s.repo.SearchNotes(ctx, query)
	default:
		notes, err = s.repo.ListNotes(ctx)
	}
	if err != nil {
		s.logger.Error("failed to list notes", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing notes: %w", err)
	}

	return notes, nil
}

// Search is List with only a query.
func (s *NoteService) Search(ctx context.Context, query string) ([]model.Note, error) {
	return s.List(ctx, model.NoteFilter{Query: query})
}

func matching(notes []model.Note, query string) []model.Note {
	q := strings.ToLower(query)
	out := make([]model.Note, 0, len(notes))
	for _, n := range notes {
		if strings.Contains(strings.ToLower(n.Title), q) || strings.Contains(strings.ToLower(n.Content), q) {
			out = append(out, n)
		}
	}
	return out
}

// Get retrieves a note by ID. Returns apperror.ErrNotFound if it doesn't exist.
func (s *NoteService) Get(ctx context.Context, id int64) (*model.Note, error) {
	note, err := s.repo.GetNote(ctx, id)
	if err != nil {
		return nil, logUnlessNotFound(s.logger, "failed to get note", id, err)
	}
	return note, nil
}

// Create validates and saves a new note. The folder is not checked for
// existence.
func (s *NoteService) Create(ctx context.Context, in model.NoteInput) (*model.Note, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	note := &model.Note{
		Title:    in.Title,
		Content:  in.Content,
		FolderID: in.FolderID,
	}
	if err := s.repo.CreateNote(ctx, note); err != nil {
		s.logger.Error("failed to create note",
			slog.String("title", in.Title),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating note: %w", err)
	}

	s.invalidateRenders()
	s.logger.Info("note created",
		slog.Int64("id", note.ID),
		slog.String("title", note.Title),
		actor(ctx),
	)
	s.events.Publish(EventNoteCreated, note)

	return note, nil
}

// Update applies a partial update. Only fields present in patch change;
// updatedAt is refreshed even when patch is empty.
func (s *NoteService) Update(ctx context.Context, id int64, patch model.NotePatch) (*model.Note, error) {
	if patch.Title != nil {
		patch.Title = model.String(strings.TrimSpace(*patch.Title))
		if *patch.Title == "" {
			return nil, apperror.ValidationFailed("title", "title is required")
		}
	}
	if err := validateStruct(patch); err != nil {
		return nil, err
	}
	if patch.FolderID.Value != nil && *patch.FolderID.Value <= 0 {
		return nil, apperror.ValidationFailed("folderId", "folderId must be greater than 0")
	}

	note, err := s.repo.UpdateNote(ctx, id, patch)
	if err != nil {
		return nil, logUnlessNotFound(s.logger, "failed to update note", id, err)
	}

	s.invalidateRenders()
	s.logger.Info("note updated",
		slog.Int64("id", note.ID),
		slog.String("title", note.Title),
		actor(ctx),
	)
	s.events.Publish(EventNoteUpdated, note)

	return note, nil
}

func (s *NoteService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.DeleteNote(ctx, id); err != nil {
		return logUnlessNotFound(s.logger, "failed to delete note", id, err)
	}

	s.invalidateRenders()
	s.logger.Info("note deleted", slog.Int64("id", id), actor(ctx))
	s.events.Publish(EventNoteDeleted, DeletedPayload{ID: id})
	return nil
}

// Render returns the note's content as HTML with [[Title]] links resolved
// against the current set of notes.
func (s *NoteService) Render(ctx context.Context, id int64) (string, error) {
	key := s.renderKey(id)
	if html, ok := s.rendered.Get(key); ok {
		return html.(string), nil
	}

	note, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	index, err := s.titleIndex(ctx)
	if err != nil {
		return "", err
	}

	html, err := s.renderer.Render(note.Content, index)
	if err != nil {
		s.logger.Error("failed to render note",
			slog.Int64("id", id),
			slog.String("error", err.Error()),
		)
		return "", err
	}

	s.rendered.SetDefault(key, html)
	return html, nil
}

// Preview renders unsaved content the same way Render does. It is never cached.
func (s *NoteService) Preview(ctx context.Context, content string) (string, error) {
	if utf8.RuneCountInString(content) > MaxContentLength {
		return "", apperror.ValidationFailed("content",
			fmt.Sprintf("content must be %d characters or less", MaxContentLength))
	}

	index, err := s.titleIndex(ctx)
	if err != nil {
		return "", err
	}
	return s.renderer.Render(content, index)
}

// Backlinks returns the notes that link to note id, ordered by ID.
func (s *NoteService) Backlinks(ctx context.Context, id int64) ([]model.Note, error) {
	target, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	all, err := s.repo.ListNotes(ctx)
	if err != nil {
		s.logger.Error("failed to list notes for backlinks", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing notes: %w", err)
	}

	return s.renderer.Backlinks(*target, all), nil
}

func (s *NoteService) renderKey(id int64) string {
	return strconv.FormatUint(s.gen.Load(), 10) + ":" + strconv.FormatInt(id, 10)
}

// invalidateRenders must be called after every successful note mutation.
func (s *NoteService) invalidateRenders() {
	s.gen.Add(1)
	s.rendered.Flush()
}

func (s *NoteService) titleIndex(ctx context.Context) (markdown.TitleIndex, error) {
	all, err := s.repo.ListNotes(ctx)
	if err != nil {
		s.logger.Error("failed to list notes for rendering", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing notes: %w", err)
	}
	return markdown.NewTitleIndex(all), nil
}

// logUnlessNotFound passes err through, logging it first unless it is an
// ordinary not-found.
func logUnlessNotFound(logger *slog.Logger, msg string, id int64, err error) error {
	if errors.Is(err, apperror.ErrNotFound) {
		return err
	}
	logger.Error(msg,
		slog.Int64("id", id),
		slog.String("error", err.Error()),
	)
	return err
}
