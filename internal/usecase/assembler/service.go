// Package assembler stitches the scanned page files of a submission into
// ordered paged documents and stores one RDF resource per document.
package assembler

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/UMD-DRASTIC/drastic-trellis/internal/domain"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/domain/batch"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/domain/filename"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/domain/pagedoc"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/logger"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/metrics"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/transport/sparql"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/vocab"
)

// Service assembles paged documents.
type Service struct {
	store       Querier
	writer      GraphWriter
	containment string
	workers     int
}

// New creates an assembler that builds up to workers documents at once.
func New(store Querier, writer GraphWriter, workers int) *Service {
	if workers < 1 {
		workers = 1
	}
	return &Service{store: store, writer: writer, containment: vocab.NPSContainsGraph, workers: workers}
}

// WithContainmentGraph overrides the containment graph IRI.
func (s *Service) WithContainmentGraph(iri string) *Service {
	if iri != "" {
		s.containment = iri
	}
	return s
}

// files are the closure members classified by naming convention.
type files struct {
	pages      []string
	access     map[string]struct{}
	thumbnails map[string]struct{}
}

// Assemble builds and stores every paged document under submission.
//
// Each document is isolated: one failing group never blocks its siblings.
// The returned error joins the retryable failures only, so a redelivery
// rebuilds the whole submission while permanent failures stay in the report.
func (s *Service) Assemble(ctx context.Context, submission string) (batch.Report, error) {
	ctx, log := logger.With(ctx, zap.String("submission", submission))

	fs, err := s.closure(ctx, submission)
	if err != nil {
		return batch.Report{}, err
	}

	groups, rejected := pagedoc.GroupPages(fs.pages)
	for _, f := range rejected {
		log.Warn("page file outside naming convention", zap.String("file", f))
	}
	if len(groups) == 0 {
		log.Info("no page files found")
		return batch.Report{}, nil
	}

	results := make([]batch.Result, len(groups))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, grp := range groups {
		g.Go(func() error {
			results[i] = s.build(gctx, submission, grp, fs)
			return nil
		})
	}
	// build records failures in its Result; no goroutine returns an error.
	g.Wait() //nolint:errcheck

	var (
		rep       batch.Report
		retryable []error
	)
	for _, r := range results {
		rep.Add(r)
		switch r.Status() {
		case batch.StatusOK:
			metrics.PagedDocumentsTotal.WithLabelValues("ok").Inc()
		case batch.StatusSkipped:
			metrics.PagedDocumentsTotal.WithLabelValues("skipped").Inc()
		case batch.StatusError:
			metrics.PagedDocumentsTotal.WithLabelValues("error").Inc()
			if !domain.IsPermanent(r.Err()) {
				retryable = append(retryable, r.Err())
			}
		}
	}

	log.Info("paged documents assembled",
		zap.Int("documents", len(groups)),
		zap.Int("built", len(rep.Built())),
		zap.Int("failed", len(rep.Failed())),
		zap.Int("rejected_files", len(rejected)),
	)
	return rep, errors.Join(retryable...)
}

func (s *Service) closure(ctx context.Context, submission string) (files, error) {
	q, err := sparql.ContainmentClosure(s.containment, submission)
	if err != nil {
		return files{}, fmt.Errorf("submission %q: %w: %w", submission, domain.ErrMalformedPayload, err)
	}
	res, err := s.store.Select(ctx, q)
	if err != nil {
		return files{}, fmt.Errorf("containment closure of %s: %w", submission, err)
	}

	fs := files{access: make(map[string]struct{}), thumbnails: make(map[string]struct{})}
	for _, iri := range res.IRIs("o") {
		switch {
		case filename.IsPageFile(iri):
			fs.pages = append(fs.pages, iri)
		case filename.IsAccessFile(iri):
			fs.access[iri] = struct{}{}
		case filename.IsThumbnailFile(iri):
			fs.thumbnails[iri] = struct{}{}
		}
	}
	return fs, nil
}

func (s *Service) build(ctx context.Context, submission string, grp pagedoc.Group, fs files) batch.Result {
	log := logger.FromContext(ctx).With(zap.String("document", grp.DocID))

	doc, err := pagedoc.New(submission, grp, fs.access, fs.thumbnails)
	if err != nil {
		log.Warn("document skipped", zap.Error(err))
		return batch.NewSkipped(grp.DocID, err)
	}
	triples, err := doc.Triples()
	if err != nil {
		log.Error("document graph", zap.Error(err))
		return batch.NewError(doc.IRI, err)
	}
	if err := s.writer.PutGraph(ctx, doc.IRI, triples); err != nil {
		log.Error("document store failed", zap.String("iri", doc.IRI), zap.Error(err))
		return batch.NewError(doc.IRI, fmt.Errorf("put %s: %w", doc.IRI, err))
	}
	log.Debug("document stored", zap.String("iri", doc.IRI), zap.Int("slots", len(doc.Slots)))
	return batch.NewOK(doc.IRI)
}
