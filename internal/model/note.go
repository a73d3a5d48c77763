// Package model defines the data structures used throughout the application.
package model

import "time"

// Note is a markdown document, optionally filed under a Folder.
//
// FolderID is not checked against existing folders: a note may point at a
// folder that was deleted, and deleting a folder never touches its notes.
type Note struct {
	ID        int64     `json:"id"        yaml:"id"`
	Title     string    `json:"title"     yaml:"title"`
	Content   string    `json:"content"   yaml:"-"`
	FolderID  *int64    `json:"folderId"  yaml:"folderId"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"updatedAt"`
}

// NoteInput is the request body for creating a note.
type NoteInput struct {
	Title    string `json:"title"    validate:"required,max=200"`
	Content  string `json:"content"  validate:"max=100000"`
	FolderID *int64 `json:"folderId" validate:"omitempty,gt=0"`
}

// NotePatch carries a partial update. Nil pointers and an unset FolderID
// leave the stored value alone; FolderID set to null clears the folder.
type NotePatch struct {
	Title    *string         `json:"title"    validate:"omitempty,min=1,max=200"`
	Content  *string         `json:"content"  validate:"omitempty,max=100000"`
	FolderID Nullable[int64] `json:"folderId"`
}

// Apply merges the patch into n. It does not touch timestamps.
func (p NotePatch) Apply(n *Note) {
	if p.Title != nil {
		n.Title = *p.Title
	}
	if p.Content != nil {
		n.Content = *p.Content
	}
	if p.FolderID.Set {
		n.FolderID = p.FolderID.Value
	}
}

// Empty reports whether the patch would change nothing.
func (p NotePatch) Empty() bool {
	return p.Title == nil && p.Content == nil && !p.FolderID.Set
}

// NoteFilter narrows a note listing. Both fields are optional.
type NoteFilter struct {
	FolderID *int64
	Query    string
}

// Int64 returns a pointer to v, for optional fields.
func Int64(v int64) *int64 { return &v }

// String returns a pointer to v, for optional fields.
func String(v string) *string { return &v }
