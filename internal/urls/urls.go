// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package urls reads the input URL list and groups URLs by primary domain.
package urls

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"sort"
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/pdiddy/html-converter/pkg/types"
)

// Load reads the URL file at path and returns its entries sorted by
// (primary domain, URL). A missing or unreadable file is an error; an
// empty file yields no entries and no error.
func Load(path string) ([]types.Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening URL file %s: %w", path, err)
	}
	defer f.Close()

	entries, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("reading URL file %s: %w", path, err)
	}
	return entries, nil
}

// Parse reads one URL per line from r. Lines are trimmed; blank lines and
// repeats of an earlier line are dropped. Lines are not validated here, a
// malformed URL fails later at conversion time.
func Parse(r io.Reader) ([]types.Entry, error) {
	var entries []types.Entry
	seen := make(map[string]bool)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(strings.TrimPrefix(sc.Text(), "\ufeff"))
		if line == "" || seen[line] {
			continue
		}
		seen[line] = true
		entries = append(entries, types.Entry{URL: line, Domain: PrimaryDomain(line)})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	Sort(entries)
	return entries, nil
}

// Sort orders entries by primary domain, then URL. The sort is stable.
func Sort(entries []types.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Less(entries[j])
	})
}

// PrimaryDomain returns the registrable domain of rawURL's host, so that
// hub.example.com and example.com both map to example.com. IP addresses
// and hosts without a public suffix (localhost) are returned unchanged.
// It returns "" when no host can be found.
func PrimaryDomain(rawURL string) string {
	host := Host(rawURL)
	if host == "" {
		return ""
	}
	if net.ParseIP(host) != nil || !strings.Contains(host, ".") {
		return host
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		// host is itself a public suffix (e.g. "co.uk") or malformed.
		return host
	}
	return domain
}

// Host returns the lower-cased host of rawURL without port or trailing
// dot. Scheme-less input such as "example.com/page" is accepted.
func Host(rawURL string) string {
	s := strings.TrimSpace(rawURL)
	if s == "" {
		return ""
	}
	if !strings.Contains(s, "://") {
		s = "//" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return ""
	}
	return strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
}
