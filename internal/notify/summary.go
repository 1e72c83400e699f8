// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package notify builds the end-of-run summary and delivers it to a
// webhook.
package notify

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/pdiddy/html-converter/pkg/types"
)

// Entry statuses in the webhook payload.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Summary describes one batch run. It lives for the process only.
type Summary struct {
	RunID     string
	Started   time.Time
	Finished  time.Time
	Groups    []DomainGroup
	Attempted int
	Succeeded int
	Failed    int
}

// DomainGroup is the results for one primary domain, sorted by URL.
type DomainGroup struct {
	Domain  string
	Results []types.ConversionResult
}

// BuildSummary groups results by primary domain. Groups are sorted by
// domain and each group's results by URL.
func BuildSummary(runID string, started, finished time.Time, results []types.ConversionResult) *Summary {
	s := &Summary{RunID: runID, Started: started, Finished: finished}

	byDomain := make(map[string][]types.ConversionResult)
	for _, r := range results {
		byDomain[r.Domain] = append(byDomain[r.Domain], r)
		s.Attempted++
		if r.Success {
			s.Succeeded++
		} else {
			s.Failed++
		}
	}

	domains := make([]string, 0, len(byDomain))
	for d := range byDomain {
		domains = append(domains, d)
	}
	sort.Strings(domains)

	for _, d := range domains {
		rs := byDomain[d]
		sort.SliceStable(rs, func(i, j int) bool { return rs[i].URL < rs[j].URL })
		s.Groups = append(s.Groups, DomainGroup{Domain: d, Results: rs})
	}
	return s
}

// Duration returns how long the run took.
func (s *Summary) Duration() time.Duration {
	return s.Finished.Sub(s.Started)
}

// PayloadGroup is one domain group in the webhook body.
type PayloadGroup struct {
	Domain string         `json:"domain"`
	URLs   []PayloadEntry `json:"urls"`
}

// PayloadEntry is one processed URL in the webhook body.
type PayloadEntry struct {
	URL                     string   `json:"url"`
	Status                  string   `json:"status"`
	Title                   string   `json:"title,omitempty"`
	ProcessingTime          float64  `json:"processing_time"`
	ProcessingTimeFormatted string   `json:"processing_time_formatted"`
	ErrorMessage            *string  `json:"error_message"`
	Files                   []string `json:"files,omitempty"`
}

// Payload renders the summary as the webhook body: a list of domain groups.
func (s *Summary) Payload() []PayloadGroup {
	groups := make([]PayloadGroup, 0, len(s.Groups))
	for _, g := range s.Groups {
		pg := PayloadGroup{Domain: g.Domain, URLs: make([]PayloadEntry, 0, len(g.Results))}
		for _, r := range g.Results {
			secs := Seconds(r.Elapsed)
			e := PayloadEntry{
				URL:                     r.URL,
				Status:                  StatusSuccess,
				Title:                   r.Title,
				ProcessingTime:          secs,
				ProcessingTimeFormatted: FormatDuration(secs),
				Files:                   r.Files,
			}
			if !r.Success {
				e.Status = StatusError
				msg := r.Reason
				e.ErrorMessage = &msg
			}
			pg.URLs = append(pg.URLs, e)
		}
		groups = append(groups, pg)
	}
	return groups
}

// Seconds converts d to seconds rounded to two decimals.
func Seconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*100) / 100
}

// FormatDuration renders seconds as "12.34 seconds", "1.50 minutes" or
// "2.00 hours".
func FormatDuration(seconds float64) string {
	switch {
	case seconds < 60:
		return fmt.Sprintf("%.2f seconds", seconds)
	case seconds < 3600:
		return fmt.Sprintf("%.2f minutes", seconds/60)
	default:
		return fmt.Sprintf("%.2f hours", seconds/3600)
	}
}
