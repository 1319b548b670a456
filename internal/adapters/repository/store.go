// Package repository stores analyzed reports for later retrieval.
package repository

import (
	"context"
	"sort"

	"github.com/okian/vibrapulse/internal/domain/report"
)

// Store keeps recent reports. Stored reports are treated as immutable.
type Store interface {
	// Save stores r under r.ID.
	Save(ctx context.Context, r *report.Report) error

	// Get returns the report with id, or ErrNotFound if unknown or expired.
	Get(ctx context.Context, id string) (*report.Report, error)

	// Top returns up to n summaries ordered by max risk desc, then newest.
	Top(ctx context.Context, n int) ([]report.Summary, error)

	// Count returns the number of live reports.
	Count(ctx context.Context) int

	Close() error
}

// sortSummaries orders by max risk desc, created desc, id asc.
func sortSummaries(s []report.Summary) {
	sort.Slice(s, func(i, j int) bool {
		if s[i].MaxRisk != s[j].MaxRisk {
			return s[i].MaxRisk > s[j].MaxRisk
		}
		if !s[i].CreatedAt.Equal(s[j].CreatedAt) {
			return s[i].CreatedAt.After(s[j].CreatedAt)
		}
		return s[i].ID < s[j].ID
	})
}
