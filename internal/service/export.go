package service

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sakif/forgenotes/internal/model"
)

// Export is a note as a standalone markdown file.
type Export struct {
	Filename string
	Body     []byte
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-z0-9]+`)

// Export renders note id as markdown with a YAML front matter block holding
// its metadata:
//
//	---
//	id: 1
//	title: Welcome
//	folderId: 1
//	createdAt: 2024-01-01T00:00:00Z
//	updatedAt: 2024-01-01T00:00:00Z
//	---
//
//	# Welcome
func (s *NoteService) Export(ctx context.Context, id int64) (*Export, error) {
	note, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	meta, err := yaml.Marshal(note)
	if err != nil {
		return nil, fmt.Errorf("encoding front matter: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(meta)
	buf.WriteString("---\n\n")
	buf.WriteString(note.Content)

	return &Export{
		Filename: exportFilename(note),
		Body:     buf.Bytes(),
	}, nil
}

func exportFilename(n *model.Note) string {
	slug := strings.Trim(unsafeFilenameChars.ReplaceAllString(strings.ToLower(n.Title), "-"), "-")
	if slug == "" {
		slug = fmt.Sprintf("note-%d", n.ID)
	}
	return slug + ".md"
}
