package handler

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/forgenotes/internal/apperror"
	"github.com/sakif/forgenotes/internal/model"
	"github.com/sakif/forgenotes/internal/service"
)

//go:embed templates/*.html
var templatesFS embed.FS

// PageHandler serves the server-rendered pages. Templates are parsed once at
// startup; each page is its own set of base.html plus the page file, since
// every page defines "content".
type PageHandler struct {
	folders *service.FolderService
	notes   *service.NoteService
	index   *template.Template
	note    *template.Template
	logger  *slog.Logger
}

func NewPageHandler(folders *service.FolderService, notes *service.NoteService, logger *slog.Logger) (*PageHandler, error) {
	index, err := template.ParseFS(templatesFS, "templates/base.html", "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("parsing index template: %w", err)
	}
	note, err := template.ParseFS(templatesFS, "templates/base.html", "templates/note.html")
	if err != nil {
		return nil, fmt.Errorf("parsing note template: %w", err)
	}

	return &PageHandler{
		folders: folders,
		notes:   notes,
		index:   index,
		note:    note,
		logger:  logger,
	}, nil
}

type pageData struct {
	Title   string
	Query   string
	Folders []model.Folder
}

type indexData struct {
	pageData
	Heading string
	Notes   []model.Note
}

type noteData struct {
	pageData
	Note      *model.Note
	HTML      template.HTML
	Backlinks []model.Note
}

// HandleIndex lists notes, optionally narrowed by ?folderId= and ?q=.
//
// HTTP: GET /
func (h *PageHandler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	folders, err := h.folders.List(ctx)
	if err != nil {
		h.fail(w, err)
		return
	}

	data := indexData{
		pageData: pageData{Title: "All notes", Query: r.URL.Query().Get("q"), Folders: folders},
		Heading:  "All notes",
	}
	filter := model.NoteFilter{Query: data.Query}
	if raw := r.URL.Query().Get("folderId"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			filter.FolderID = &id
			for _, f := range folders {
				if f.ID == id {
					data.Heading = f.Name
				}
			}
		}
	}
	if data.Query != "" {
		data.Heading = fmt.Sprintf("Search: %s", data.Query)
	}

	data.Notes, err = h.notes.List(ctx, filter)
	if err != nil {
		h.fail(w, err)
		return
	}
	data.Title = data.Heading

	h.render(w, h.index, data)
}

// HandleNote shows one rendered note and the notes linking to it.
//
// HTTP: GET /notes/{id}
func (h *PageHandler) HandleNote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r)
	if err != nil {
		h.fail(w, err)
		return
	}

	note, err := h.notes.Get(ctx, id)
	if err != nil {
		h.fail(w, err)
		return
	}
	html, err := h.notes.Render(ctx, id)
	if err != nil {
		h.fail(w, err)
		return
	}
	backlinks, err := h.notes.Backlinks(ctx, id)
	if err != nil {
		h.fail(w, err)
		return
	}
	folders, err := h.folders.List(ctx)
	if err != nil {
		h.fail(w, err)
		return
	}

	h.render(w, h.note, noteData{
		pageData: pageData{Title: note.Title, Folders: folders},
		Note:     note,
		// The renderer escapes titles and drops raw HTML from note bodies.
		HTML:      template.HTML(html),
		Backlinks: backlinks,
	})
}

// render executes into a buffer first so a template error can still become
// a clean 500 instead of a half-written page.
func (h *PageHandler) render(w http.ResponseWriter, tmpl *template.Template, data any) {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		h.logger.Error("failed to render template", slog.String("error", err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (h *PageHandler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperror.ErrNotFound):
		http.Error(w, "Note not found", http.StatusNotFound)
	case errors.Is(err, apperror.ErrValidation):
		http.Error(w, "Bad Request", http.StatusBadRequest)
	default:
		h.logger.Error("page request failed", slog.String("error", err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
