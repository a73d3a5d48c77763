// Package handler contains the HTTP handlers: the JSON API under /api and
// the server-rendered pages.
//
// Handlers parse the request, call a service and write the response. They
// hold no business rules; errors from services are mapped to status codes
// in one place, writeError.
//
// THE HANDLER PATTERN:
// Every API handler has the same shape:
//
//	1. parse path/query/body   → 400 on garbage (pathID, decodeJSON)
//	2. call one service method → domain error or result
//	3. writeError or writeJSON → status code chosen by error kind
//
// WHY METHODS ON A STRUCT?
// The handler needs its service and logger. A struct holding them, with
// one method per route, is how chi expects http.HandlerFunc values and
// keeps the dependencies visible in NewXxxHandler instead of in globals.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/forgenotes/internal/model"
	"github.com/sakif/forgenotes/internal/service"
)

// FolderHandler serves /api/folders.
type FolderHandler struct {
	folders *service.FolderService
	logger  *slog.Logger
}

func NewFolderHandler(folders *service.FolderService, logger *slog.Logger) *FolderHandler {
	return &FolderHandler{folders: folders, logger: logger}
}

// HandleList returns every folder ordered by ID.
//
// HTTP: GET /api/folders
func (h *FolderHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	folders, err := h.folders.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, folders)
}

// HandleCreate adds a folder.
//
// HTTP: POST /api/folders
// REQUEST BODY: {"name": "Work", "icon": "fa-briefcase"}
func (h *FolderHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in model.FolderInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	folder, err := h.folders.Create(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, folder)
}

// HandleDelete removes a folder; its notes are kept.
//
// HTTP: DELETE /api/folders/{id}
func (h *FolderHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.folders.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
