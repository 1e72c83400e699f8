// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/html-converter/pkg/types"
)

// fakeConverter implements Converter for testing. It returns a canned
// document or error, optionally after blocking.
type fakeConverter struct {
	doc   *Document
	err   error
	block time.Duration // sleep ignoring ctx
	panic bool
}

func (f *fakeConverter) Convert(ctx context.Context, rawURL string) (*Document, error) {
	if f.panic {
		panic("boom")
	}
	if f.block > 0 {
		time.Sleep(f.block)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.doc, nil
}

// ctxConverter waits for its context to end and returns its error.
type ctxConverter struct{}

func (ctxConverter) Convert(ctx context.Context, rawURL string) (*Document, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func newTestDriver(c Converter, budget time.Duration) (*Driver, *logtest.Hook) {
	log, hook := logtest.NewNullLogger()
	return NewDriver(c, types.ConversionConfig{Budget: budget}, log), hook
}

var entryA = types.Entry{URL: "https://example.com/a", Domain: "example.com"}

func TestDriverConvert_Success(t *testing.T) {
	d, hook := newTestDriver(&fakeConverter{doc: &Document{
		Title:     "Page A",
		Markdown:  "# Page A\n\nBody.\n",
		Text:      "Body.",
		Structure: &Structure{SourceURL: entryA.URL},
	}}, time.Second)

	res := d.Convert(context.Background(), entryA)

	require.True(t, res.Success)
	assert.Equal(t, entryA.URL, res.URL)
	assert.Equal(t, "example.com", res.Domain)
	assert.Equal(t, "Page A", res.Title)
	assert.Equal(t, "# Page A\n\nBody.\n", res.Markdown)
	assert.Equal(t, "Body.", res.Text)
	assert.Empty(t, res.Reason)
	require.IsType(t, &Structure{}, res.Document)
	assert.Equal(t, "Page A", res.Document.(*Structure).Title)
	assert.Greater(t, res.Elapsed, time.Duration(0))
	assert.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)
}

func TestDriverConvert_Failure(t *testing.T) {
	d, hook := newTestDriver(&fakeConverter{err: errors.New("HTTP 404 from https://example.com/a")}, time.Second)

	res := d.Convert(context.Background(), entryA)

	assert.False(t, res.Success)
	assert.Equal(t, "HTTP 404 from https://example.com/a", res.Reason)
	assert.Empty(t, res.Title)
	assert.Empty(t, res.Markdown)
	assert.Nil(t, res.Document)

	last := hook.LastEntry()
	require.NotNil(t, last)
	assert.Equal(t, logrus.ErrorLevel, last.Level)
	assert.Equal(t, entryA.URL, last.Data["url"])
	assert.Equal(t, "convert", last.Data["stage"])
	assert.Equal(t, res.Reason, last.Data["reason"])
}

func TestDriverConvert_Panic(t *testing.T) {
	d, _ := newTestDriver(&fakeConverter{panic: true}, time.Second)

	res := d.Convert(context.Background(), entryA)

	assert.False(t, res.Success)
	assert.Contains(t, res.Reason, "converter panic: boom")
}

func TestDriverConvert_NilDocument(t *testing.T) {
	d, _ := newTestDriver(&fakeConverter{}, time.Second)

	res := d.Convert(context.Background(), entryA)

	assert.False(t, res.Success)
	assert.Contains(t, res.Reason, "no document")
}

func TestDriverConvert_TimeoutUncooperative(t *testing.T) {
	d, _ := newTestDriver(&fakeConverter{block: 2 * time.Second, doc: &Document{Title: "late"}}, 50*time.Millisecond)

	start := time.Now()
	res := d.Convert(context.Background(), entryA)

	assert.Less(t, time.Since(start), time.Second, "driver must not wait for the converter")
	assert.False(t, res.Success)
	assert.Equal(t, ReasonTimeout, res.Reason)
	assert.Empty(t, res.Title)
}

func TestDriverConvert_TimeoutCooperative(t *testing.T) {
	d, _ := newTestDriver(ctxConverter{}, 20*time.Millisecond)

	res := d.Convert(context.Background(), entryA)

	assert.False(t, res.Success)
	assert.Equal(t, ReasonTimeout, res.Reason)
}

func TestDriverConvert_NextURLAfterTimeout(t *testing.T) {
	slow := &fakeConverter{block: time.Second}
	d, _ := newTestDriver(slow, 20*time.Millisecond)
	res := d.Convert(context.Background(), entryA)
	require.Equal(t, ReasonTimeout, res.Reason)

	d.conv = &fakeConverter{doc: &Document{Title: "Page B", Markdown: "# Page B"}}
	res = d.Convert(context.Background(), types.Entry{URL: "https://hub.example.com/b", Domain: "example.com"})
	assert.True(t, res.Success)
	assert.Equal(t, "Page B", res.Title)
}

func TestDriverConvert_ParentCancelled(t *testing.T) {
	d, _ := newTestDriver(ctxConverter{}, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := d.Convert(ctx, entryA)

	assert.False(t, res.Success)
	assert.NotEqual(t, ReasonTimeout, res.Reason)
}

func TestDriverConvert_Pacing(t *testing.T) {
	log, _ := logtest.NewNullLogger()
	d := NewDriver(&fakeConverter{doc: &Document{Title: "x"}}, types.ConversionConfig{
		Budget:       time.Second,
		RequestDelay: 50 * time.Millisecond,
	}, log)

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.True(t, d.Convert(context.Background(), entryA).Success)
	}
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestResolveTitle(t *testing.T) {
	tests := []struct {
		name string
		doc  Document
		want string
	}{
		{"own title", Document{Title: "  Page A ", Markdown: "# Other"}, "Page A"},
		{"markdown heading", Document{Markdown: "intro\n## Section One\n"}, "Section One"},
		{"skips empty heading", Document{Markdown: "#\n# Real\n"}, "Real"},
		{"crlf closing hashes", Document{Markdown: "## Release Notes ##\r\n\r\nbody\r\n"}, "Release Notes"},
		{"fallback", Document{Markdown: "no headings here"}, "index"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveTitle(&tt.doc))
		})
	}
}

func TestTitleFromMarkdown(t *testing.T) {
	assert.Equal(t, "Title", TitleFromMarkdown("# Title #\r\nbody"))
	assert.Equal(t, "", TitleFromMarkdown(" # indented is not a heading"))
	assert.Equal(t, "", TitleFromMarkdown(""))
}
