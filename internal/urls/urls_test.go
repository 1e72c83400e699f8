// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package urls

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/html-converter/pkg/types"
)

func TestPrimaryDomain(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare domain", "https://example.com/a", "example.com"},
		{"subdomain collapses", "https://hub.example.com/b", "example.com"},
		{"deep subdomain", "https://a.b.c.example.com/", "example.com"},
		{"multi-level suffix", "https://news.bbc.co.uk/page", "bbc.co.uk"},
		{"upper case host", "https://HUB.Example.COM/x", "example.com"},
		{"port stripped", "http://docs.example.com:8080/x", "example.com"},
		{"trailing dot", "https://www.example.com./", "example.com"},
		{"no scheme", "www.example.org/path", "example.org"},
		{"ipv4", "http://127.0.0.1:9000/x", "127.0.0.1"},
		{"ipv6", "http://[::1]:9000/x", "::1"},
		{"localhost", "http://localhost:3000/", "localhost"},
		{"public suffix only", "https://co.uk/", "co.uk"},
		{"empty", "", ""},
		{"garbage", "not a url", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PrimaryDomain(tt.in))
		})
	}
}

func TestParse(t *testing.T) {
	input := strings.Join([]string{
		"https://hub.example.com/b",
		"",
		"   ",
		"  https://zeta.org/x  ",
		"https://example.com/a",
		"\t",
		"https://example.com/a",
		"not a url",
	}, "\n")

	entries, err := Parse(strings.NewReader(input))
	require.NoError(t, err)

	want := []types.Entry{
		{URL: "not a url", Domain: ""},
		{URL: "https://example.com/a", Domain: "example.com"},
		{URL: "https://hub.example.com/b", Domain: "example.com"},
		{URL: "https://zeta.org/x", Domain: "zeta.org"},
	}
	assert.Equal(t, want, entries)
}

func TestParse_CRLFAndBOM(t *testing.T) {
	entries, err := Parse(strings.NewReader("\ufeffhttps://example.com/a\r\nhttps://example.com/b\r\n"))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "https://example.com/a", entries[0].URL)
	assert.Equal(t, "https://example.com/b", entries[1].URL)
}

func TestParse_DeterministicOrder(t *testing.T) {
	input := "https://b.net/2\nhttps://a.com/1\nhttps://www.b.net/1\nhttps://a.com/0\n"
	first, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	second, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, first, second)

	var got []string
	for _, e := range first {
		got = append(got, e.URL)
	}
	assert.Equal(t, []string{
		"https://a.com/0",
		"https://a.com/1",
		"https://b.net/2",
		"https://www.b.net/1",
	}, got)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "urls.txt")
	require.NoError(t, os.WriteFile(path, []byte("https://example.com/a\n\nhttps://hub.example.com/b\n"), 0o644))

	entries, err := Load(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, "example.com", e.Domain)
	}
}

func TestLoad_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "urls.txt")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	entries, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
