package service

import (
	"context"
	"log/slog"

	"github.com/sakif/forgenotes/internal/auth"
)

// Change event types sent to a Publisher.
const (
	EventNoteCreated   = "note_created"
	EventNoteUpdated   = "note_updated"
	EventNoteDeleted   = "note_deleted"
	EventFolderCreated = "folder_created"
	EventFolderDeleted = "folder_deleted"
)

// Publisher receives a change event after every successful mutation.
// Publish must not block; the websocket hub satisfies it.
type Publisher interface {
	Publish(eventType string, payload any)
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, any) {}

// DeletedPayload is the data of a *_deleted event.
type DeletedPayload struct {
	ID int64 `json:"id"`
}

func orNop(p Publisher) Publisher {
	if p == nil {
		return nopPublisher{}
	}
	return p
}

// actor names who made a change, for the audit line every mutation logs:
// the token subject on a write-protected server, "anonymous" otherwise.
func actor(ctx context.Context) slog.Attr {
	if id, ok := auth.IdentityFromContext(ctx); ok {
		return slog.String("actor", id.Subject)
	}
	return slog.String("actor", "anonymous")
}
