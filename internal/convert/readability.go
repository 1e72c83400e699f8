// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	readability "github.com/go-shiori/go-readability"
)

var (
	reBlankRuns     = regexp.MustCompile(`\n{3,}`)
	reTrailingSpace = regexp.MustCompile(`[ \t]+\n`)
)

// ReadabilityConverter extracts the main article of a page with
// go-readability and renders it as Markdown.
type ReadabilityConverter struct {
	fetcher *Fetcher
}

// NewReadabilityConverter returns a converter that downloads pages with f.
func NewReadabilityConverter(f *Fetcher) *ReadabilityConverter {
	return &ReadabilityConverter{fetcher: f}
}

// Convert fetches rawURL, extracts the readable article and converts it.
func (r *ReadabilityConverter) Convert(ctx context.Context, rawURL string) (*Document, error) {
	page, err := r.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	article, err := readability.FromReader(bytes.NewReader(page.Body), page.URL)
	if err != nil {
		return nil, fmt.Errorf("extracting article: %w", err)
	}
	if strings.TrimSpace(article.Content) == "" {
		return nil, fmt.Errorf("no readable content at %s", rawURL)
	}

	body, err := md.NewConverter(page.URL.Host, true, nil).ConvertString(article.Content)
	if err != nil {
		return nil, fmt.Errorf("converting article to markdown: %w", err)
	}

	structure, err := Analyze(article.Content, page.URL)
	if err != nil {
		return nil, fmt.Errorf("analyzing article: %w", err)
	}
	title := collapse(article.Title)
	if title != "" {
		structure.Title = title
	}
	structure.Byline = collapse(article.Byline)
	structure.SiteName = collapse(article.SiteName)
	if article.Language != "" {
		structure.Language = article.Language
	}
	if article.Excerpt != "" {
		structure.Excerpt = collapse(article.Excerpt)
	}

	return &Document{
		Title:     title,
		Markdown:  renderMarkdown(title, structure.Byline, structure.SiteName, body),
		Text:      strings.TrimSpace(article.TextContent),
		HTML:      article.Content,
		Structure: structure,
	}, nil
}

// renderMarkdown puts the title heading and a metadata line ahead of the
// article body unless the body already opens with that heading.
func renderMarkdown(title, byline, siteName, body string) string {
	body = cleanMarkdown(body)

	var b strings.Builder
	if title != "" && TitleFromMarkdown(firstLine(body)) != title {
		b.WriteString("# ")
		b.WriteString(title)
		b.WriteString("\n\n")
	}

	var meta []string
	if byline != "" {
		meta = append(meta, "**Author:** "+byline)
	}
	if siteName != "" {
		meta = append(meta, "**Source:** "+siteName)
	}
	if len(meta) > 0 {
		b.WriteString(strings.Join(meta, " | "))
		b.WriteString("\n\n---\n\n")
	}

	b.WriteString(body)
	b.WriteString("\n")
	return b.String()
}

func cleanMarkdown(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = reTrailingSpace.ReplaceAllString(s, "\n")
	s = reBlankRuns.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
