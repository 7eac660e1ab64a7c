package todo

import (
	"bytes"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Renderer turns a markdown body into the HTML stored next to it.
type Renderer interface {
	Render(body string) (string, error)
}

var allowedTags = []string{
	"a", "abbr", "acronym", "b", "blockquote", "code", "em", "i",
	"li", "ol", "pre", "strong", "ul", "h1", "h2", "h3", "p",
}

// MarkdownRenderer converts markdown with bare URLs turned into links, then
// strips every tag outside a small allow list.
type MarkdownRenderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

func NewMarkdownRenderer() *MarkdownRenderer {
	policy := bluemonday.NewPolicy()
	policy.AllowElements(allowedTags...)
	policy.AllowAttrs("href").OnElements("a")
	policy.AllowAttrs("title").OnElements("abbr", "acronym")
	policy.AllowStandardURLs()
	policy.RequireNoFollowOnLinks(true)

	return &MarkdownRenderer{
		md:     goldmark.New(goldmark.WithExtensions(extension.Linkify)),
		policy: policy,
	}
}

func (m *MarkdownRenderer) Render(body string) (string, error) {
	var buf bytes.Buffer
	if err := m.md.Convert([]byte(body), &buf); err != nil {
		return "", err
	}
	return m.policy.Sanitize(buf.String()), nil
}
