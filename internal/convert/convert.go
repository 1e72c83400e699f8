// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert turns web pages into Markdown and a JSON-serializable
// structure through pluggable backends, and drives one conversion per URL
// under a fixed time budget.
package convert

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/pdiddy/html-converter/internal/container"
	"github.com/pdiddy/html-converter/pkg/types"
)

// ReasonTimeout is recorded on results whose conversion exceeded the budget.
const ReasonTimeout = "timeout"

// defaultTitle names documents that carry no usable title.
const defaultTitle = "index"

// ErrTimeout is returned when a conversion does not finish within the budget.
var ErrTimeout = errors.New(ReasonTimeout)

// Converter transforms the page at a URL into a Document. Different
// backends (readability, markitdown) implement this interface.
// Implementations should honor ctx, but the Driver does not rely on it.
type Converter interface {
	Convert(ctx context.Context, rawURL string) (*Document, error)
}

// Document is the converted form of one page.
type Document struct {
	Title     string
	Markdown  string
	Text      string
	HTML      string
	Structure *Structure
}

// New builds the converter selected by cfg.Backend. ctx bounds the
// container runtime checks of the markitdown backend.
func New(ctx context.Context, cfg types.ConversionConfig) (Converter, error) {
	fetcher := NewFetcher(cfg)
	switch cfg.Backend {
	case types.BackendReadability, "":
		return NewReadabilityConverter(fetcher), nil
	case types.BackendMarkitdown:
		rt, err := container.DetectRuntime(ctx, cfg.ContainerRuntime)
		if err != nil {
			return nil, err
		}
		return NewMarkitdownConverter(ctx, rt, fetcher)
	}
	return nil, fmt.Errorf("unknown conversion backend %q", cfg.Backend)
}

// Driver runs a Converter for one URL at a time, enforcing the
// per-URL budget and the optional pacing between conversions.
type Driver struct {
	conv    Converter
	budget  time.Duration
	limiter *rate.Limiter
	log     logrus.FieldLogger
}

// NewDriver returns a Driver for c using the budget and request delay in cfg.
func NewDriver(c Converter, cfg types.ConversionConfig, log logrus.FieldLogger) *Driver {
	budget := cfg.Budget
	if budget <= 0 {
		budget = types.DefaultConversionTimeout
	}
	limit := rate.Inf
	if cfg.RequestDelay > 0 {
		limit = rate.Every(cfg.RequestDelay)
	}
	return &Driver{
		conv:    c,
		budget:  budget,
		limiter: rate.NewLimiter(limit, 1),
		log:     log,
	}
}

// Convert converts entry and always returns a result: failures, including
// timeouts and converter panics, are recorded on the result rather than
// returned.
func (d *Driver) Convert(ctx context.Context, entry types.Entry) types.ConversionResult {
	result := types.ConversionResult{URL: entry.URL, Domain: entry.Domain}
	log := d.log.WithFields(logrus.Fields{"url": entry.URL, "stage": "convert"})

	if err := d.limiter.Wait(ctx); err != nil {
		result.Reason = err.Error()
		log.WithField("reason", result.Reason).Error("conversion not started")
		return result
	}

	log.Info("starting conversion")
	start := time.Now()
	doc, err := d.run(ctx, entry.URL)
	result.Elapsed = time.Since(start)

	if err != nil {
		result.Reason = reason(err)
		log.WithFields(logrus.Fields{
			"reason":  result.Reason,
			"elapsed": result.Elapsed.Round(time.Millisecond),
		}).Error("conversion failed")
		return result
	}

	result.Success = true
	result.Title = ResolveTitle(doc)
	result.Markdown = doc.Markdown
	result.Text = doc.Text
	result.HTML = doc.HTML
	if doc.Structure != nil {
		if doc.Structure.Title == "" {
			doc.Structure.Title = result.Title
		}
		result.Document = doc.Structure
	} else {
		result.Document = &Structure{Title: result.Title, SourceURL: entry.URL}
	}

	log.WithFields(logrus.Fields{
		"title":   result.Title,
		"elapsed": result.Elapsed.Round(time.Millisecond),
	}).Info("conversion finished")
	return result
}

// run races the converter against the budget. The converter runs in its
// own goroutine and receives a context that expires with the budget; if it
// ignores that context it keeps running after run returns and its result
// is dropped into the buffered channel unread.
func (d *Driver) run(ctx context.Context, rawURL string) (*Document, error) {
	ctx, cancel := context.WithTimeout(ctx, d.budget)
	defer cancel()

	type outcome struct {
		doc *Document
		err error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("converter panic: %v", r)}
			}
		}()
		doc, err := d.conv.Convert(ctx, rawURL)
		done <- outcome{doc: doc, err: err}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, ErrTimeout
			}
			return nil, o.err
		}
		if o.doc == nil {
			return nil, errors.New("converter returned no document")
		}
		return o.doc, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, ctx.Err()
	}
}

func reason(err error) string {
	if errors.Is(err, ErrTimeout) {
		return ReasonTimeout
	}
	return err.Error()
}

// ResolveTitle picks a document's title: its own title, else the first
// Markdown heading, else "index".
func ResolveTitle(doc *Document) string {
	if t := strings.TrimSpace(doc.Title); t != "" {
		return t
	}
	if t := TitleFromMarkdown(doc.Markdown); t != "" {
		return t
	}
	return defaultTitle
}

// TitleFromMarkdown returns the text of the first non-empty heading line
// in md, or "" when there is none.
func TitleFromMarkdown(md string) string {
	for _, line := range strings.Split(md, "\n") {
		line = strings.TrimRight(line, "\r \t")
		if !strings.HasPrefix(line, "#") {
			continue
		}
		if t := strings.TrimSpace(strings.Trim(line, "#")); t != "" {
			return t
		}
	}
	return ""
}
