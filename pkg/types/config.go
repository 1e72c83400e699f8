// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Mode distinguishes repeatable test runs from live runs.
type Mode string

const (
	// ModeDevelopment leaves the URL file untouched after a run.
	ModeDevelopment Mode = "development"
	// ModeProduction truncates the URL file after a run.
	ModeProduction Mode = "production"
)

// ParseMode normalizes a mode string. Anything other than "production"
// (case-insensitive) is treated as development.
func ParseMode(s string) Mode {
	if strings.EqualFold(strings.TrimSpace(s), string(ModeProduction)) {
		return ModeProduction
	}
	return ModeDevelopment
}

// Format is an output file format.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// Extension returns the file extension for the format, including the dot.
func (f Format) Extension() string {
	switch f {
	case FormatMarkdown:
		return ".md"
	case FormatJSON:
		return ".json"
	}
	return "." + string(f)
}

// Content fields a converted document exposes to the writer.
const (
	FieldMarkdown = "markdown"
	FieldText     = "text"
	FieldHTML     = "html"
	FieldDocument = "document"
)

// Filename sources for output files.
const (
	NameFromTitle = "title"
	NameFromURL   = "url"
)

// ConversionBackend identifies the page conversion engine.
type ConversionBackend string

const (
	BackendReadability ConversionBackend = "readability"
	BackendMarkitdown  ConversionBackend = "markitdown"
)

// Defaults applied by DefaultConfig.
const (
	DefaultURLsFile          = "urls.txt"
	DefaultBaseDir           = "scraping_data"
	DefaultConversionTimeout = time.Minute
	DefaultWebhookTimeout    = 10 * time.Second
	DefaultUserAgent         = "html-converter/0.1"
	DefaultMaxRetries        = 3
)

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// ConversionConfig holds settings for the conversion stage.
type ConversionConfig struct {
	HTTPConfig `yaml:",inline"`

	// Backend selects the conversion engine: readability or markitdown.
	Backend ConversionBackend `json:"backend" yaml:"backend"`

	// Budget is the wall-clock limit for converting a single URL (default 1m).
	Budget time.Duration `json:"budget" yaml:"budget"`

	// RequestDelay is the minimum delay between consecutive conversions (default none).
	RequestDelay time.Duration `json:"request_delay" yaml:"request_delay"`

	// MaxRetries is the number of retries on HTTP 429 or 503 while fetching a page.
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// ContainerRuntime pins the markitdown backend to "docker" or "podman".
	// Empty tries docker, then podman.
	ContainerRuntime string `json:"container_runtime" yaml:"container_runtime"`
}

// OutputConfig holds settings for the result writer.
type OutputConfig struct {
	// BaseDir is the directory under which one subdirectory per primary domain is created.
	BaseDir string `json:"dir_save" yaml:"dir_save"`

	// Formats lists the formats to emit, in order.
	Formats []Format `json:"save_in" yaml:"save_in"`

	// Fields maps each format to the document field written into it.
	Fields map[Format]string `json:"save_options" yaml:"save_options"`

	// NameField selects the filename source: "title" or "url".
	NameField string `json:"save_name" yaml:"save_name"`

	// Frontmatter prepends YAML frontmatter to Markdown files.
	Frontmatter bool `json:"markdown_frontmatter" yaml:"markdown_frontmatter"`
}

// NotifyConfig holds settings for the webhook notification.
type NotifyConfig struct {
	HTTPConfig `yaml:",inline"`

	// WebhookURL is the endpoint to POST the run summary to. Empty disables notification.
	WebhookURL string `json:"webhook_notification" yaml:"webhook_notification"`
}

// RunConfig groups every setting a batch run needs. It is built once at
// startup and passed explicitly to each stage.
type RunConfig struct {
	// URLsFile is the input file, one URL per line.
	URLsFile string `json:"urls_file" yaml:"urls_file"`

	// Mode controls whether URLsFile is cleared after the run.
	Mode Mode `json:"mode" yaml:"mode"`

	Conversion ConversionConfig `json:"conversion" yaml:"conversion"`
	Output     OutputConfig     `json:"output" yaml:"output"`
	Notify     NotifyConfig     `json:"notify" yaml:"notify"`
}

// DefaultConfig returns a RunConfig populated with defaults.
func DefaultConfig() RunConfig {
	return RunConfig{
		URLsFile: DefaultURLsFile,
		Mode:     ModeDevelopment,
		Conversion: ConversionConfig{
			HTTPConfig: HTTPConfig{
				Timeout:   DefaultConversionTimeout,
				UserAgent: DefaultUserAgent,
			},
			Backend:    BackendReadability,
			Budget:     DefaultConversionTimeout,
			MaxRetries: DefaultMaxRetries,
		},
		Output: OutputConfig{
			BaseDir:   DefaultBaseDir,
			Formats:   []Format{FormatMarkdown, FormatJSON},
			Fields:    DefaultFields(),
			NameField: NameFromTitle,
		},
		Notify: NotifyConfig{
			HTTPConfig: HTTPConfig{
				Timeout:   DefaultWebhookTimeout,
				UserAgent: DefaultUserAgent,
			},
		},
	}
}

// DefaultFields returns the default format-to-field mapping.
func DefaultFields() map[Format]string {
	return map[Format]string{
		FormatMarkdown: FieldMarkdown,
		FormatJSON:     FieldDocument,
	}
}

// Validate checks that the configuration is usable.
func (c RunConfig) Validate() error {
	if c.URLsFile == "" {
		return errors.New("urls file cannot be empty")
	}
	if c.Output.BaseDir == "" {
		return errors.New("output directory cannot be empty")
	}
	if len(c.Output.Formats) == 0 {
		return errors.New("at least one output format is required")
	}
	for _, f := range c.Output.Formats {
		if f != FormatMarkdown && f != FormatJSON {
			return fmt.Errorf("unsupported output format %q", f)
		}
	}
	for f, field := range c.Output.Fields {
		if !validField(field) {
			return fmt.Errorf("unsupported field %q for format %s", field, f)
		}
		if f == FormatMarkdown && field == FieldDocument {
			return errors.New("markdown output cannot be written from the document structure")
		}
	}
	if c.Output.NameField != NameFromTitle && c.Output.NameField != NameFromURL {
		return fmt.Errorf("save_name must be %q or %q, got %q", NameFromTitle, NameFromURL, c.Output.NameField)
	}
	if c.Conversion.Budget <= 0 {
		return errors.New("conversion timeout must be positive")
	}
	switch c.Conversion.Backend {
	case BackendReadability, BackendMarkitdown:
	default:
		return fmt.Errorf("unknown conversion backend %q", c.Conversion.Backend)
	}
	switch c.Conversion.ContainerRuntime {
	case "", "docker", "podman":
	default:
		return fmt.Errorf("container_runtime must be docker or podman, got %q", c.Conversion.ContainerRuntime)
	}
	return nil
}

func validField(field string) bool {
	switch field {
	case FieldMarkdown, FieldText, FieldHTML, FieldDocument:
		return true
	}
	return false
}

// ParseFormats parses a save_in value such as "markdown,json",
// "markdown json" or `["markdown", "json"]`. Duplicates are dropped.
func ParseFormats(s string) ([]Format, error) {
	var formats []Format
	seen := make(map[Format]bool)
	for _, tok := range splitList(s) {
		f := Format(strings.ToLower(tok))
		if f != FormatMarkdown && f != FormatJSON {
			return nil, fmt.Errorf("unsupported output format %q", tok)
		}
		if seen[f] {
			continue
		}
		seen[f] = true
		formats = append(formats, f)
	}
	return formats, nil
}

// ParseFields parses a save_options value of "format:field" pairs, for
// example "markdown:markdown,json:document". Formats not named keep
// their default field.
func ParseFields(s string) (map[Format]string, error) {
	fields := DefaultFields()
	for _, tok := range splitList(s) {
		format, field, ok := strings.Cut(tok, ":")
		if !ok {
			format, field, ok = strings.Cut(tok, "=")
		}
		if !ok {
			return nil, fmt.Errorf("save option %q is not of the form format:field", tok)
		}
		f := Format(strings.ToLower(strings.TrimSpace(format)))
		if f != FormatMarkdown && f != FormatJSON {
			return nil, fmt.Errorf("unsupported output format %q", format)
		}
		field = strings.ToLower(strings.TrimSpace(field))
		if !validField(field) {
			return nil, fmt.Errorf("unsupported field %q", field)
		}
		fields[f] = field
	}
	return fields, nil
}

// splitList splits a list written as comma or whitespace separated
// tokens, tolerating surrounding brackets and quotes.
func splitList(s string) []string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	out := parts[:0]
	for _, p := range parts {
		p = strings.Trim(p, `"'`)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
