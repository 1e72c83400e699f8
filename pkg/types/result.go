// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Entry is one URL read from the input file.
type Entry struct {
	// URL is the line as it appeared in the file, trimmed.
	URL string `json:"url" yaml:"url"`

	// Domain is the primary (registrable) domain of the URL host.
	Domain string `json:"domain" yaml:"domain"`
}

// Less orders entries by primary domain, then by full URL.
func (e Entry) Less(o Entry) bool {
	if e.Domain != o.Domain {
		return e.Domain < o.Domain
	}
	return e.URL < o.URL
}

// ConversionResult is the outcome of converting one URL. Title, Markdown
// and Document are populated only when Success is true; Reason only when
// it is false.
type ConversionResult struct {
	URL    string `json:"url"`
	Domain string `json:"domain"`

	Success bool   `json:"success"`
	Reason  string `json:"reason,omitempty"`

	Title    string `json:"title,omitempty"`
	Markdown string `json:"markdown,omitempty"`
	Text     string `json:"text,omitempty"`
	HTML     string `json:"html,omitempty"`
	Document any    `json:"document,omitempty"`

	Elapsed time.Duration `json:"elapsed"`

	// Files lists output paths written for this result.
	Files []string `json:"files,omitempty"`

	// WriteErrors lists per-format write failures.
	WriteErrors []string `json:"write_errors,omitempty"`
}

// Field returns the content stored under a document field name, or nil
// when the field is unknown or empty.
func (r ConversionResult) Field(name string) any {
	switch name {
	case FieldMarkdown:
		if r.Markdown != "" {
			return r.Markdown
		}
	case FieldText:
		if r.Text != "" {
			return r.Text
		}
	case FieldHTML:
		if r.HTML != "" {
			return r.HTML
		}
	case FieldDocument:
		if r.Document != nil {
			return r.Document
		}
	}
	return nil
}
