package sync

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/nhle/gitlab-import/internal/model"
	"github.com/nhle/gitlab-import/internal/source"
)

// maxPages stops a session whose cursors never run out.
const maxPages = 10000

// Progress reports how far an import session has come.
type Progress struct {
	Page     int
	Imported int
	Last     model.ImportRecord
}

// Result summarizes a finished session.
type Result struct {
	Pages    int
	Imported int
}

// Runner drives one import session against an Importer: it pages through
// candidates, feeding each NextPage back, and imports every record into the
// saver.
type Runner struct {
	importer source.Importer
	saver    model.RecordSaver
	log      logrus.FieldLogger

	// OnProgress, when set, is called after each imported record.
	OnProgress func(Progress)
}

// NewRunner creates a Runner.
func NewRunner(importer source.Importer, saver model.RecordSaver, log logrus.FieldLogger) *Runner {
	return &Runner{
		importer: importer,
		saver:    saver,
		log:      log,
	}
}

// Run imports every candidate matching filters. It stops at the first error;
// records saved before it stay saved.
func (r *Runner) Run(ctx context.Context, filters model.FilterValues) (*Result, error) {
	res := &Result{}
	nextPage := ""

	for {
		if res.Pages >= maxPages {
			return res, fmt.Errorf("giving up after %d pages", maxPages)
		}

		page, err := r.importer.ListCandidates(ctx, filters, nextPage)
		if err != nil {
			return res, fmt.Errorf("listing candidates (page %d): %w", res.Pages+1, err)
		}
		res.Pages++

		for _, record := range page.Records {
			if err := ctx.Err(); err != nil {
				return res, err
			}

			host := model.NewHostRecord(r.saver)
			host.UniqueID = record.UniqueID
			host.Identifier = record.Identifier
			host.Name = record.Name
			host.URL = record.URL

			if err := r.importer.ImportRecord(ctx, record, host); err != nil {
				return res, fmt.Errorf("importing %s: %w", record.Identifier, err)
			}
			res.Imported++

			if r.OnProgress != nil {
				r.OnProgress(Progress{Page: res.Pages, Imported: res.Imported, Last: record})
			}
		}

		r.log.WithFields(logrus.Fields{
			"page":     res.Pages,
			"records":  len(page.Records),
			"imported": res.Imported,
		}).Debug("imported page")

		// No project selected: the importer echoes the cursor and returns
		// nothing, so there is nothing to page through.
		if page.NextPage == "" || (len(page.Records) == 0 && page.NextPage == nextPage) {
			return res, nil
		}
		nextPage = page.NextPage
	}
}
