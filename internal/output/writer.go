// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package output writes successful conversions to disk, one directory per
// primary domain and one file per requested format.
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/html-converter/pkg/types"
)

const (
	// maxStemBytes keeps file names well under common 255-byte limits.
	maxStemBytes = 200
	defaultStem  = "index"
)

// Writer persists conversion results under a base directory.
type Writer struct {
	cfg types.OutputConfig
	log logrus.FieldLogger
	now func() time.Time
}

// NewWriter returns a Writer for cfg. Missing field mappings fall back
// to the defaults.
func NewWriter(cfg types.OutputConfig, log logrus.FieldLogger) *Writer {
	fields := types.DefaultFields()
	for f, field := range cfg.Fields {
		fields[f] = field
	}
	cfg.Fields = fields
	if cfg.NameField == "" {
		cfg.NameField = types.NameFromTitle
	}
	return &Writer{cfg: cfg, log: log, now: time.Now}
}

// Dir returns the output directory for a primary domain.
func (w *Writer) Dir(domain string) string {
	return filepath.Join(w.cfg.BaseDir, FileStem(domain, ""))
}

// Path returns the output path for result in format f.
func (w *Writer) Path(result types.ConversionResult, f types.Format) string {
	return filepath.Join(w.Dir(result.Domain), w.stem(result)+f.Extension())
}

// Write writes result in every configured format and returns the paths
// written and the per-format failures. Unsuccessful results and formats
// whose source field is empty are skipped. A failure in one format does
// not stop the others. Existing files are overwritten.
func (w *Writer) Write(result types.ConversionResult) (written []string, errs []error) {
	if !result.Success {
		return nil, nil
	}
	log := w.log.WithFields(logrus.Fields{"url": result.URL, "stage": "write"})

	for _, f := range w.cfg.Formats {
		field := w.cfg.Fields[f]
		content := result.Field(field)
		if content == nil {
			log.WithFields(logrus.Fields{"format": f, "field": field}).Debug("skipping format with no content")
			continue
		}

		p := w.Path(result, f)
		data, err := w.render(result, f, content)
		if err == nil {
			err = writeFile(p, data)
		}
		if err != nil {
			log.WithFields(logrus.Fields{"path": p, "error": err}).Error("write failed")
			errs = append(errs, fmt.Errorf("writing %s: %w", p, err))
			continue
		}
		log.WithField("path", p).Info("file saved")
		written = append(written, p)
	}
	return written, errs
}

func (w *Writer) stem(result types.ConversionResult) string {
	if w.cfg.NameField == types.NameFromURL {
		return FileStem(urlName(result.URL), defaultStem)
	}
	return FileStem(result.Title, defaultStem)
}

func (w *Writer) render(result types.ConversionResult, f types.Format, content any) ([]byte, error) {
	switch f {
	case types.FormatMarkdown:
		text, ok := content.(string)
		if !ok {
			return nil, fmt.Errorf("markdown output needs text content, got %T", content)
		}
		if !w.cfg.Frontmatter {
			return []byte(text), nil
		}
		return w.withFrontmatter(result, text)
	case types.FormatJSON:
		return w.envelope(result, content)
	}
	return nil, fmt.Errorf("unsupported output format %q", f)
}

// frontmatter is the YAML header prepended to Markdown output.
type frontmatter struct {
	Title       string `yaml:"title"`
	SourceURL   string `yaml:"source_url"`
	ConvertedAt string `yaml:"converted_at"`
}

func (w *Writer) withFrontmatter(result types.ConversionResult, body string) ([]byte, error) {
	head, err := yaml.Marshal(frontmatter{
		Title:       result.Title,
		SourceURL:   result.URL,
		ConvertedAt: w.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling frontmatter: %w", err)
	}
	var b bytes.Buffer
	b.WriteString("---\n")
	b.Write(head)
	b.WriteString("---\n\n")
	b.WriteString(body)
	return b.Bytes(), nil
}

// jsonEnvelope is the layout of JSON output files.
type jsonEnvelope struct {
	Title       string `json:"title"`
	SourceURL   string `json:"source_url"`
	ProcessedAt string `json:"processed_at"`
	Content     any    `json:"content"`
	Markdown    string `json:"markdown,omitempty"`
}

func (w *Writer) envelope(result types.ConversionResult, content any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	err := enc.Encode(jsonEnvelope{
		Title:       result.Title,
		SourceURL:   result.URL,
		ProcessedAt: w.now().Format(time.RFC3339),
		Content:     content,
		Markdown:    result.Markdown,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding JSON: %w", err)
	}
	return buf.Bytes(), nil
}

// writeFile writes data to dest through a temporary file in the same
// directory, creating the directory if needed.
func writeFile(dest string, data []byte) error {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".write-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return writeErr
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return closeErr
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// FileStem turns s into a safe file name stem. Path separators, characters
// reserved on common filesystems and control characters become "_";
// surrounding spaces and dots are trimmed; the result is capped at 200
// bytes. Spaces inside the name are kept. An empty result yields fallback.
func FileStem(s, fallback string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		case r == utf8.RuneError, unicode.IsControl(r):
			b.WriteByte('_')
		case strings.ContainsRune(`/\:*?"<>|`, r):
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}
	stem := strings.Trim(b.String(), " .")
	for len(stem) > maxStemBytes {
		_, size := utf8.DecodeLastRuneInString(stem)
		stem = stem[:len(stem)-size]
	}
	stem = strings.TrimRight(stem, " .")
	if stem == "" {
		return fallback
	}
	return stem
}

// urlName picks a name for rawURL: the last path segment without its
// extension, or the host for root URLs.
func urlName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	name := path.Base(strings.TrimSuffix(u.Path, "/"))
	if name == "." || name == "/" || name == "" {
		return u.Hostname()
	}
	return strings.TrimSuffix(name, path.Ext(name))
}
