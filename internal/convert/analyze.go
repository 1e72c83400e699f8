// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Structure is the JSON form of a converted page.
type Structure struct {
	Title     string    `json:"title"`
	SourceURL string    `json:"source_url"`
	Byline    string    `json:"byline,omitempty"`
	SiteName  string    `json:"site_name,omitempty"`
	Language  string    `json:"language,omitempty"`
	Excerpt   string    `json:"excerpt,omitempty"`
	Headings  []Heading `json:"headings"`
	Links     []Link    `json:"links"`
	Images    []string  `json:"images,omitempty"`
	WordCount int       `json:"word_count"`
}

// Heading is one h1-h6 element in document order.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// Link is one distinct hyperlink target.
type Link struct {
	Text string `json:"text,omitempty"`
	Href string `json:"href"`
}

// Analyze parses html and extracts its outline: title, headings, links
// (resolved against base and de-duplicated), images and a word count.
func Analyze(html string, base *url.URL) (*Structure, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	s := &Structure{
		Headings: []Heading{},
		Links:    []Link{},
	}
	if base != nil {
		s.SourceURL = base.String()
	}

	s.Title = collapse(doc.Find("title").First().Text())
	if og, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok && strings.TrimSpace(og) != "" {
		s.Title = collapse(og)
	}
	if lang, ok := doc.Find("html").Attr("lang"); ok {
		s.Language = strings.TrimSpace(lang)
	}
	if desc, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		s.Excerpt = collapse(desc)
	}

	doc.Find("h1, h2, h3, h4, h5, h6").Each(func(_ int, sel *goquery.Selection) {
		text := collapse(sel.Text())
		if text == "" {
			return
		}
		level := int(goquery.NodeName(sel)[1] - '0')
		s.Headings = append(s.Headings, Heading{Level: level, Text: text})
	})

	seen := make(map[string]bool)
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		abs := resolve(base, href)
		if abs == "" || seen[abs] {
			return
		}
		seen[abs] = true
		s.Links = append(s.Links, Link{Text: collapse(sel.Text()), Href: abs})
	})

	seenImg := make(map[string]bool)
	doc.Find("img[src]").Each(func(_ int, sel *goquery.Selection) {
		src, _ := sel.Attr("src")
		abs := resolve(base, src)
		if abs == "" || seenImg[abs] {
			return
		}
		seenImg[abs] = true
		s.Images = append(s.Images, abs)
	})

	doc.Find("script, style, noscript").Remove()
	s.WordCount = len(strings.Fields(doc.Text()))
	return s, nil
}

// resolve makes ref absolute against base, dropping fragment-only,
// javascript: and mailto: references.
func resolve(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "#") {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	switch u.Scheme {
	case "http", "https", "":
	default:
		return ""
	}
	u.Fragment = ""
	return u.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// pageText returns the visible text of an HTML page with whitespace
// collapsed, or "" if it cannot be parsed.
func pageText(html []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return ""
	}
	doc.Find("script, style, noscript, head").Remove()
	return collapse(doc.Text())
}
