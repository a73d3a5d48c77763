// Package markdown renders note bodies to HTML and resolves [[Title]]
// references to other notes while the markdown is parsed.
package markdown

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"

	"github.com/sakif/forgenotes/internal/model"
)

// Resolver maps a referenced title to a note ID.
type Resolver interface {
	Resolve(title string) (id int64, ok bool)
}

// TitleIndex resolves titles case-insensitively. When several notes share a
// title the lowest ID wins.
//
// WHY LOWEST ID?
// Titles are not unique. Picking whichever note a map iteration happened to
// visit last would make a link point at different notes from one render to
// the next. The oldest note is a stable answer that only changes when that
// note is renamed or deleted.
type TitleIndex map[string]int64

// NewTitleIndex builds an index over notes.
func NewTitleIndex(notes []model.Note) TitleIndex {
	idx := make(TitleIndex, len(notes))
	for _, n := range notes {
		key := titleKey(n.Title)
		if prev, ok := idx[key]; ok && prev <= n.ID {
			continue
		}
		idx[key] = n.ID
	}
	return idx
}

func (idx TitleIndex) Resolve(title string) (int64, bool) {
	id, ok := idx[titleKey(title)]
	return id, ok
}

func titleKey(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

// Renderer converts markdown to HTML. It is safe for concurrent use.
type Renderer struct {
	md goldmark.Markdown
}

func New() *Renderer {
	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM, wikiLinks{}),
			goldmark.WithRendererOptions(html.WithHardWraps()),
		),
	}
}

// Render converts content to HTML. A nil resolver leaves every [[Title]]
// unresolved.
func (r *Renderer) Render(content string, resolver Resolver) (string, error) {
	pc := parser.NewContext()
	if resolver != nil {
		pc.Set(resolverKey, resolver)
	}

	var buf bytes.Buffer
	if err := r.md.Convert([]byte(content), &buf, parser.WithContext(pc)); err != nil {
		return "", fmt.Errorf("markdown: rendering: %w", err)
	}
	return buf.String(), nil
}

// ExtractLinks returns the distinct titles referenced with [[Title]] in
// content, in order of first appearance. References inside code are not
// links.
func (r *Renderer) ExtractLinks(content string) []string {
	doc := r.md.Parser().Parse(text.NewReader([]byte(content)))

	seen := make(map[string]bool)
	var titles []string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if link, ok := n.(*WikiLink); ok {
			key := titleKey(link.Title)
			if !seen[key] {
				seen[key] = true
				titles = append(titles, link.Title)
			}
		}
		return ast.WalkContinue, nil
	})
	return titles
}

// LinksTo reports whether content references title.
func (r *Renderer) LinksTo(content, title string) bool {
	want := titleKey(title)
	for _, t := range r.ExtractLinks(content) {
		if titleKey(t) == want {
			return true
		}
	}
	return false
}

// Backlinks returns the notes among candidates whose content references the
// note target, ordered by ID. A note never links back to itself.
func (r *Renderer) Backlinks(target model.Note, candidates []model.Note) []model.Note {
	// Only the note that owns the title can be linked to.
	idx := NewTitleIndex(candidates)
	if id, ok := idx.Resolve(target.Title); !ok || id != target.ID {
		return []model.Note{}
	}

	out := []model.Note{}
	for _, n := range candidates {
		if n.ID != target.ID && r.LinksTo(n.Content, target.Title) {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
