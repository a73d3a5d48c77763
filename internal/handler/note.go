package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/forgenotes/internal/apperror"
	"github.com/sakif/forgenotes/internal/model"
	"github.com/sakif/forgenotes/internal/service"
)

// NoteHandler serves /api/notes and /api/render.
type NoteHandler struct {
	notes  *service.NoteService
	logger *slog.Logger
}

func NewNoteHandler(notes *service.NoteService, logger *slog.Logger) *NoteHandler {
	return &NoteHandler{notes: notes, logger: logger}
}

// HTMLResponse wraps rendered markdown.
type HTMLResponse struct {
	HTML string `json:"html"`
}

// RenderRequest is the body of POST /api/render.
type RenderRequest struct {
	Content string `json:"content"`
}

// HandleList returns notes ordered by ID.
//
// HTTP: GET /api/notes[?folderId=4][&q=welcome]
func (h *NoteHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	filter := model.NoteFilter{Query: r.URL.Query().Get("q")}
	if raw := r.URL.Query().Get("folderId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, apperror.ValidationFailed("folderId", fmt.Sprintf("invalid folderId %q", raw)))
			return
		}
		filter.FolderID = &id
	}

	// A bare ?q= is a search across every note.
	var (
		notes []model.Note
		err   error
	)
	if filter.FolderID == nil && filter.Query != "" {
		notes, err = h.notes.Search(r.Context(), filter.Query)
	} else {
		notes, err = h.notes.List(r.Context(), filter)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

// HTTP: GET /api/notes/{id}
func (h *NoteHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	note, err := h.notes.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// HandleCreate adds a note. Identical requests create distinct notes.
//
// HTTP: POST /api/notes
// REQUEST BODY: {"title": "T", "content": "C", "folderId": 4}
func (h *NoteHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in model.NoteInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	note, err := h.notes.Create(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// HandleUpdate applies a partial update. Omitted fields are unchanged;
// "folderId": null moves the note out of its folder.
//
// HTTP: PATCH /api/notes/{id}
// REQUEST BODY: any subset of {"title": "T", "content": "C", "folderId": 4 | null}
//
// WHY PATCH AND NOT PUT?
// PUT would replace the whole note, so an editor that only changed the body
// would also have to send the title and folder it last saw, and could
// silently undo a rename made in another tab. PATCH sends only what
// changed. An empty object is allowed and just refreshes updatedAt.
func (h *NoteHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var patch model.NotePatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, err)
		return
	}

	note, err := h.notes.Update(r.Context(), id, patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// HTTP: DELETE /api/notes/{id} → 204
func (h *NoteHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.notes.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleHTML returns the note rendered with backlinks resolved.
//
// HTTP: GET /api/notes/{id}/html
func (h *NoteHandler) HandleHTML(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	html, err := h.notes.Render(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, HTMLResponse{HTML: html})
}

// HandleRender previews unsaved markdown. Links resolve against the saved
// notes, so the preview matches what the note will look like once saved.
//
// HTTP: POST /api/render
// REQUEST BODY: {"content": "See [[Getting Started]]"}
func (h *NoteHandler) HandleRender(w http.ResponseWriter, r *http.Request) {
	var req RenderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	html, err := h.notes.Preview(r.Context(), req.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, HTMLResponse{HTML: html})
}

// HTTP: GET /api/notes/{id}/backlinks
func (h *NoteHandler) HandleBacklinks(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	notes, err := h.notes.Backlinks(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

// HandleExport downloads the note as markdown with YAML front matter.
//
// HTTP: GET /api/notes/{id}/export
func (h *NoteHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	exp, err := h.notes.Export(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exp.Filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(exp.Body); err != nil {
		h.logger.Warn("failed to write export", slog.Int64("id", id), slog.String("error", err.Error()))
	}
}
