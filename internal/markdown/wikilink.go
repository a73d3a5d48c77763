package markdown

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// KindWikiLink is the node kind of a [[Title]] reference.
var KindWikiLink = ast.NewNodeKind("WikiLink")

// WikiLink is an inline [[Title]] reference. NoteID is only meaningful when
// Resolved is true.
type WikiLink struct {
	ast.BaseInline

	Title    string
	NoteID   int64
	Resolved bool
}

func (n *WikiLink) Kind() ast.NodeKind { return KindWikiLink }

func (n *WikiLink) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{
		"Title":    n.Title,
		"NoteID":   strconv.FormatInt(n.NoteID, 10),
		"Resolved": strconv.FormatBool(n.Resolved),
	}, nil)
}

// PARSE-TIME RESOLUTION:
// A [[Title]] is turned into a WikiLink node while goldmark parses the
// inline text, and the node is resolved right there through the Resolver
// stored in the parser.Context under resolverKey:
//
//	Render(content, resolver)
//	  → pc.Set(resolverKey, resolver)
//	  → wikiLinkParser.Parse sees "[[Getting Started]]"
//	  → resolver.Resolve("Getting Started") → (2, true)
//	  → WikiLink{Title, NoteID: 2, Resolved: true}
//	  → renderWikiLink writes <a href="/notes/2" ...>
//
// WHY NOT A REGEX OVER THE HTML?
// After rendering, "[[x]]" inside a code span looks the same as a real
// reference, and the title is already HTML-escaped. Working on the AST,
// code spans and fenced blocks never reach the inline parser, and the
// renderer escapes the title exactly once.
//
// The Resolver travels in the per-call parser.Context, not in the
// Renderer, so one Renderer serves concurrent renders against different
// title sets.
var resolverKey = parser.NewContextKey()

var (
	openBrackets  = []byte("[[")
	closeBrackets = []byte("]]")
)

type wikiLinkParser struct{}

func (wikiLinkParser) Trigger() []byte { return []byte{'['} }

// Parse consumes "[[Title]]" on a single line. Anything else is left to the
// regular link parser.
func (wikiLinkParser) Parse(_ ast.Node, block text.Reader, pc parser.Context) ast.Node {
	line, _ := block.PeekLine()
	if !bytes.HasPrefix(line, openBrackets) {
		return nil
	}
	end := bytes.Index(line[2:], closeBrackets)
	if end < 0 {
		return nil
	}
	inner := line[2 : 2+end]
	if bytes.ContainsAny(inner, "[]\n") {
		return nil
	}
	title := strings.TrimSpace(string(inner))
	if title == "" {
		return nil
	}
	block.Advance(end + 4)

	node := &WikiLink{Title: title}
	if r, ok := pc.Get(resolverKey).(Resolver); ok && r != nil {
		node.NoteID, node.Resolved = r.Resolve(title)
	}
	return node
}

type wikiLinkRenderer struct{}

func (wikiLinkRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindWikiLink, renderWikiLink)
}

func renderWikiLink(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*WikiLink)
	title := util.EscapeHTML([]byte(n.Title))

	if !n.Resolved {
		_, _ = w.WriteString(`<span class="backlink backlink-missing">`)
		_, _ = w.Write(title)
		_, _ = w.WriteString(`</span>`)
		return ast.WalkSkipChildren, nil
	}

	id := strconv.FormatInt(n.NoteID, 10)
	if insideLink(n) {
		// <a> may not nest: keep the note reference, drop the anchor.
		_, _ = w.WriteString(`<span class="backlink" data-note-id="` + id + `">`)
		_, _ = w.Write(title)
		_, _ = w.WriteString(`</span>`)
		return ast.WalkSkipChildren, nil
	}
	_, _ = w.WriteString(`<a href="/notes/` + id + `" class="backlink" data-note-id="` + id + `">`)
	_, _ = w.Write(title)
	_, _ = w.WriteString(`</a>`)
	return ast.WalkSkipChildren, nil
}

// insideLink reports whether n sits in the text of a regular link, as in
// "[see [[Title]]](https://example.com)".
func insideLink(n ast.Node) bool {
	for p := n.Parent(); p != nil; p = p.Parent() {
		switch p.Kind() {
		case ast.KindLink, ast.KindAutoLink:
			return true
		}
	}
	return false
}

// wikiLinks is the goldmark extension adding [[Title]] syntax. It runs
// ahead of the standard link parser (priority 200).
type wikiLinks struct{}

func (wikiLinks) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(parser.WithInlineParsers(
		util.Prioritized(wikiLinkParser{}, 199),
	))
	m.Renderer().AddOptions(renderer.WithNodeRenderers(
		util.Prioritized(wikiLinkRenderer{}, 500),
	))
}
