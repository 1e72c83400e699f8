// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/pdiddy/html-converter/internal/container"
)

const imageMarkitdown = "markitdown:latest"

// MarkitdownConverter converts pages by piping their HTML through the
// markitdown container image. It depends on a container.Runtime (docker
// or podman) injected at construction time.
type MarkitdownConverter struct {
	runtime container.Runtime
	fetcher *Fetcher
}

// NewMarkitdownConverter creates a converter that uses rt to run the
// markitdown image. It verifies that the image exists locally before
// returning.
func NewMarkitdownConverter(ctx context.Context, rt container.Runtime, f *Fetcher) (*MarkitdownConverter, error) {
	if err := rt.ImageExists(ctx, imageMarkitdown); err != nil {
		return nil, fmt.Errorf("markitdown image not available in %s: %w", rt.Name(), err)
	}
	return &MarkitdownConverter{runtime: rt, fetcher: f}, nil
}

// Convert fetches rawURL and pipes the HTML through markitdown. The
// container is killed when ctx ends.
func (m *MarkitdownConverter) Convert(ctx context.Context, rawURL string) (*Document, error) {
	page, err := m.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	if err := m.runtime.Run(ctx, imageMarkitdown, []string{"-x", "html"}, bytes.NewReader(page.Body), &out); err != nil {
		return nil, fmt.Errorf("converting %s with markitdown: %w", rawURL, err)
	}
	markdown := strings.TrimSpace(out.String())
	if markdown == "" {
		return nil, fmt.Errorf("markitdown produced empty output for %s", rawURL)
	}

	structure, err := Analyze(string(page.Body), page.URL)
	if err != nil {
		return nil, fmt.Errorf("analyzing page: %w", err)
	}

	title := TitleFromMarkdown(markdown)
	if title == "" {
		title = structure.Title
	}

	return &Document{
		Title:     title,
		Markdown:  markdown + "\n",
		Text:      pageText(page.Body),
		HTML:      string(page.Body),
		Structure: structure,
	}, nil
}
