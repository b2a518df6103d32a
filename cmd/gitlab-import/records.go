package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/nhle/gitlab-import/internal/model"
	"github.com/nhle/gitlab-import/internal/store"
	"github.com/nhle/gitlab-import/internal/theme"
)

// listRecords renders the most recently imported records, optionally
// narrowed by a substring of the name or description.
func listRecords(ctx context.Context, s store.Store, query string, limit int) (string, error) {
	total, err := s.CountRecords(ctx)
	if err != nil {
		return "", err
	}

	recs, err := s.ListRecords(ctx, store.RecordFilter{
		Query:    &query,
		SortBy:   "imported_at",
		SortDesc: true,
		Limit:    limit,
	})
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(theme.HeaderStyle.Render(fmt.Sprintf("%d of %d records", len(recs), total)))
	b.WriteString("\n")
	for _, rec := range recs {
		fmt.Fprintf(&b, "%s %s\n", theme.IdentifierStyle.Render("#"+rec.Identifier), rec.Name)
	}
	return b.String(), nil
}

// showRecord renders a single stored record.
func showRecord(ctx context.Context, s store.Store, uniqueID string) (string, error) {
	rec, err := s.GetRecordByUniqueID(ctx, uniqueID)
	if err != nil {
		return "", err
	}
	return renderRecord(rec), nil
}

func renderRecord(rec *model.HostRecord) string {
	lines := []string{
		theme.IdentifierStyle.Render("#"+rec.Identifier) + " " + rec.Name,
		rec.URL,
		theme.HelpStyle.Render("imported " + rec.ImportedAt.Format("2006-01-02 15:04:05")),
		"",
		rec.Description,
	}
	return theme.SummaryStyle.Render(strings.Join(lines, "\n"))
}
