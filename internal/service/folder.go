// Package service contains the business logic layer of the application.
//
// Handlers parse requests and write responses, services validate input and
// enforce the rules, repositories read and write storage:
//
//	Handler (HTTP) → Service (rules) → Repository (memory or sqlite)
//
// WHY A SEPARATE SERVICE LAYER?
// The same rules apply whichever way a change arrives: a trimmed, non-empty
// title; a folder icon defaulted to fa-folder; a render cache that never
// outlives the notes it was built from. Keeping them here means the JSON
// API, the HTML pages and the seed loader cannot drift apart, and the rules
// are tested with plain function calls instead of HTTP requests.
//
// DEPENDENCY INJECTION:
// Services take repository interfaces, never a concrete backend, so tests can
// hand them a memory store or a fake (see brokenStore and gatedNotes in
// service_test.go). The websocket hub arrives the same way, as a Publisher.
//
// KEY CONCEPTS:
//   - Validation uses go-playground/validator struct tags on the model
//     inputs; the first violation becomes an apperror.ValidationFailed.
//   - Not-found errors pass through untouched and unlogged; they are an
//     ordinary answer, not a failure.
//   - Every successful mutation logs one Info line naming the actor and
//     publishes one change event.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/forgenotes/internal/model"
	"github.com/sakif/forgenotes/internal/repository"
)

// FolderService handles business logic for folders.
type FolderService struct {
	repo   repository.FolderRepository
	events Publisher
	logger *slog.Logger
}

// NewFolderService creates a FolderService. events may be nil.
func NewFolderService(repo repository.FolderRepository, events Publisher, logger *slog.Logger) *FolderService {
	return &FolderService{
		repo:   repo,
		events: orNop(events),
		logger: logger,
	}
}

func (s *FolderService) List(ctx context.Context) ([]model.Folder, error) {
	folders, err := s.repo.ListFolders(ctx)
	if err != nil {
		s.logger.Error("failed to list folders", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing folders: %w", err)
	}
	return folders, nil
}

// Create validates and saves a new folder. A blank icon becomes the default.
// Names are not unique: two identical requests create two folders.
func (s *FolderService) Create(ctx context.Context, in model.FolderInput) (*model.Folder, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Icon = strings.TrimSpace(in.Icon)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	folder := &model.Folder{Name: in.Name, Icon: in.Icon}
	if folder.Icon == "" {
		folder.Icon = model.DefaultFolderIcon
	}

	if err := s.repo.CreateFolder(ctx, folder); err != nil {
		s.logger.Error("failed to create folder",
			slog.String("name", in.Name),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating folder: %w", err)
	}

	s.logger.Info("folder created",
		slog.Int64("id", folder.ID),
		slog.String("name", folder.Name),
		actor(ctx),
	)
	s.events.Publish(EventFolderCreated, folder)

	return folder, nil
}

// Delete removes a folder. Notes filed under it keep their folderId.
func (s *FolderService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.DeleteFolder(ctx, id); err != nil {
		return logUnlessNotFound(s.logger, "failed to delete folder", id, err)
	}

	s.logger.Info("folder deleted", slog.Int64("id", id), actor(ctx))
	s.events.Publish(EventFolderDeleted, DeletedPayload{ID: id})
	return nil
}
