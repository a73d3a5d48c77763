package markdown

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/forgenotes/internal/model"
)

func notes(titles ...string) []model.Note {
	out := make([]model.Note, len(titles))
	for i, t := range titles {
		out[i] = model.Note{ID: int64(i + 1), Title: t}
	}
	return out
}

// ============================================
// TitleIndex
// ============================================

func TestTitleIndex_CaseInsensitive(t *testing.T) {
	idx := NewTitleIndex(notes("Getting Started"))

	id, ok := idx.Resolve("getting STARTED")
	assert.True(t, ok)
	assert.Equal(t, int64(1), id)

	_, ok = idx.Resolve("Getting")
	assert.False(t, ok)
}

func TestTitleIndex_LowestIDWins(t *testing.T) {
	ns := []model.Note{
		{ID: 7, Title: "Dup"},
		{ID: 3, Title: "dup"},
		{ID: 5, Title: "DUP"},
	}
	id, ok := NewTitleIndex(ns).Resolve("Dup")
	require.True(t, ok)
	assert.Equal(t, int64(3), id)
}

// ============================================
// Render
// ============================================

func TestRender_ResolvedBacklink(t *testing.T) {
	r := New()
	html, err := r.Render("See [[Getting Started]]", TitleIndex{"getting started": 2})
	require.NoError(t, err)

	assert.Contains(t, html, `<a href="/notes/2" class="backlink" data-note-id="2">Getting Started</a>`)
	assert.NotContains(t, html, "[[")
}

func TestRender_MissingBacklink(t *testing.T) {
	r := New()
	html, err := r.Render("See [[Getting Started]]", TitleIndex{})
	require.NoError(t, err)

	assert.Contains(t, html, `<span class="backlink backlink-missing">Getting Started</span>`)
	assert.NotContains(t, html, "<a")
}

func TestRender_NilResolver(t *testing.T) {
	html, err := New().Render("[[Anything]]", nil)
	require.NoError(t, err)
	assert.Contains(t, html, "backlink-missing")
}

func TestRender_EscapesTitle(t *testing.T) {
	html, err := New().Render(`[[<script>alert(1)</script>]]`, nil)
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "&lt;script&gt;")
}

func TestRender_Markdown(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"heading", "# Title", "<h1>Title</h1>"},
		{"bold", "**b**", "<strong>b</strong>"},
		{"hard wrap", "one\ntwo", "one<br>\ntwo"},
		{"strikethrough", "~~gone~~", "<del>gone</del>"},
		{"table", "| a |\n|---|\n| 1 |", "<table>"},
		{"task list", "- [x] done", `type="checkbox"`},
		{"ordinary link", "[site](https://example.com)", `<a href="https://example.com">site</a>`},
	}

	r := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			html, err := r.Render(tt.input, nil)
			require.NoError(t, err)
			assert.Contains(t, html, tt.want)
		})
	}
}

func TestRender_RawHTMLOmitted(t *testing.T) {
	html, err := New().Render("<b>raw</b>\n\n<div>block</div>", nil)
	require.NoError(t, err)
	assert.NotContains(t, html, "<b>")
	assert.NotContains(t, html, "<div>")
}

func TestRender_BacklinkInsideLinkDoesNotNest(t *testing.T) {
	html, err := New().Render("[see [[Getting Started]]](https://example.com)", TitleIndex{"getting started": 5})
	require.NoError(t, err)

	assert.Contains(t, html, `<a href="https://example.com">`)
	assert.Equal(t, 1, strings.Count(html, "<a "), html)
	assert.Contains(t, html, `<span class="backlink" data-note-id="5">Getting Started</span>`)
}

func TestRender_CodeSpanNotALink(t *testing.T) {
	html, err := New().Render("`[[Getting Started]]`", TitleIndex{"getting started": 1})
	require.NoError(t, err)
	assert.Contains(t, html, "<code>[[Getting Started]]</code>")
	assert.NotContains(t, html, "backlink")
}

// ============================================
// ExtractLinks / Backlinks
// ============================================

func TestExtractLinks(t *testing.T) {
	content := "A [[One]] and [[two]] and [[ONE]] again.\n\n```\n[[Code]]\n```\n\n[[]] is empty."
	got := New().ExtractLinks(content)
	assert.Equal(t, []string{"One", "two"}, got)
}

func TestBacklinks(t *testing.T) {
	ns := []model.Note{
		{ID: 1, Title: "Hub", Content: "links to nobody"},
		{ID: 2, Title: "A", Content: "see [[hub]]"},
		{ID: 3, Title: "B", Content: "no link, just hub"},
		{ID: 4, Title: "C", Content: "`[[Hub]]` in code"},
		{ID: 5, Title: "Hub", Content: "duplicate title, [[Hub]]"},
	}
	r := New()

	got := r.Backlinks(ns[0], ns)
	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got[0].ID)
	assert.Equal(t, int64(5), got[1].ID)

	// The duplicate never receives links: the lowest ID owns the title.
	assert.Empty(t, r.Backlinks(ns[4], ns))
}

func TestRender_Concurrent(t *testing.T) {
	r := New()
	idx := TitleIndex{"x": 1}
	done := make(chan string, 8)
	for i := 0; i < 8; i++ {
		go func() {
			html, _ := r.Render("[[x]]", idx)
			done <- html
		}()
	}
	for i := 0; i < 8; i++ {
		assert.True(t, strings.Contains(<-done, `data-note-id="1"`))
	}
}
