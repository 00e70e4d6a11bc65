// Package indexer builds search documents for the PCDM subjects of changed
// graphs and publishes them to the search index.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/UMD-DRASTIC/drastic-trellis/internal/domain"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/domain/batch"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/domain/searchdoc"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/logger"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/metrics"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/transport/sparql"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/vocab"
)

const authorityPrefix = "/name-authority/"

// Config names the target indexes and the graph paths never indexed.
type Config struct {
	Index          string
	AuthorityIndex string
	SkipPaths      []string
}

// Service indexes changed graphs.
type Service struct {
	store     Querier
	search    SearchIndex
	graphs    GraphReader
	index     string
	authority string
	skip      map[string]struct{}
}

// New creates an indexer. graphs may be nil, which disables authority records.
func New(store Querier, search SearchIndex, graphs GraphReader, cfg Config) *Service {
	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}
	return &Service{
		store:     store,
		search:    search,
		graphs:    graphs,
		index:     cfg.Index,
		authority: cfg.AuthorityIndex,
		skip:      skip,
	}
}

// statement is one (predicate, object) pair about a subject.
type statement struct {
	pred string
	obj  sparql.Term
}

// IndexGraph indexes every Collection and Object subject of graphIRI.
// Failures of single subjects do not stop the others. Retryable failures are
// joined into the returned error so the event is redelivered; permanent ones
// are only reported and logged.
func (s *Service) IndexGraph(ctx context.Context, graphIRI string) (batch.Report, error) {
	ctx, log := logger.With(ctx, zap.String("graph", graphIRI))

	p := pathOf(graphIRI)
	if _, ok := s.skip[p]; ok {
		return batch.Report{}, fmt.Errorf("graph %s: non-content path: %w", graphIRI, domain.ErrSkipped)
	}
	if strings.HasPrefix(p, authorityPrefix) {
		return s.indexAuthority(ctx, graphIRI)
	}

	q, err := sparql.SubjectsIn(graphIRI)
	if err != nil {
		return batch.Report{}, fmt.Errorf("graph %s: %w: %w", graphIRI, domain.ErrMalformedPayload, err)
	}
	res, err := s.store.Select(ctx, q)
	if err != nil {
		return batch.Report{}, fmt.Errorf("subjects of %s: %w", graphIRI, err)
	}
	subjects := res.IRIs("s")
	sort.Strings(subjects)

	var (
		rep       batch.Report
		retryable []error
	)
	for _, subject := range subjects {
		doc, err := s.Build(ctx, subject)
		switch {
		case errors.Is(err, domain.ErrSkipped):
			rep.Add(batch.NewSkipped(subject, err))
			continue
		case err != nil:
			rep.Add(batch.NewError(subject, err))
			retryable = collect(ctx, retryable, subject, err)
			continue
		}
		if err := s.search.Upsert(ctx, s.index, searchdoc.Slug(subject), doc); err != nil {
			err = fmt.Errorf("publish %s: %w", subject, err)
			rep.Add(batch.NewError(subject, err))
			retryable = collect(ctx, retryable, subject, err)
			continue
		}
		metrics.SearchDocumentsTotal.WithLabelValues(string(doc.Kind)).Inc()
		rep.Add(batch.NewOK(subject))
	}

	log.Info("graph indexed",
		zap.Int("subjects", len(subjects)),
		zap.Int("indexed", len(rep.Built())),
		zap.Int("failed", len(rep.Failed())),
	)
	return rep, errors.Join(retryable...)
}

// collect appends err to retryable unless redelivery cannot fix it.
func collect(ctx context.Context, retryable []error, subject string, err error) []error {
	if domain.IsPermanent(err) {
		logger.FromContext(ctx).Warn("subject rejected", zap.String("subject", subject), zap.Error(err))
		return retryable
	}
	return append(retryable, err)
}

// Build assembles the search document of one subject from its statements in
// every named graph. Subjects that are neither Collection nor Object are
// skipped.
func (s *Service) Build(ctx context.Context, subject string) (searchdoc.Document, error) {
	stmts, err := s.statements(ctx, subject)
	if err != nil {
		return searchdoc.Document{}, err
	}

	doc := searchdoc.Document{URI: subject}
	switch {
	case hasType(stmts, vocab.PCDMCollection):
		doc.Kind = searchdoc.KindCollection
	case hasType(stmts, vocab.PCDMObject):
		doc.Kind = searchdoc.KindObject
	default:
		return searchdoc.Document{}, fmt.Errorf("subject %s: not a collection or object: %w", subject, domain.ErrSkipped)
	}

	for _, st := range stmts {
		if vocab.InNamespace(st.pred, vocab.DCTermsNS) {
			doc.AddField(vocab.LocalName(st.pred), st.obj.Value)
		}
	}

	switch doc.Kind {
	case searchdoc.KindCollection:
		doc.Fulltext = fulltext(stmts)
		if id := first(stmts, vocab.ICMSID); id != "" {
			doc.SetPath("/" + strings.Trim(id, "/"))
		}
	case searchdoc.KindObject:
		if p := first(stmts, vocab.NPSPath); p != "" {
			doc.SetPath(p)
		} else {
			logger.FromContext(ctx).Warn("object has no path", zap.String("subject", subject))
		}
		thumb, err := s.thumbnail(ctx, subject)
		if err != nil {
			return searchdoc.Document{}, err
		}
		doc.Thumbnail = thumb
	}
	return doc, nil
}

func (s *Service) statements(ctx context.Context, subject string) ([]statement, error) {
	q, err := sparql.SubjectStatements(subject)
	if err != nil {
		return nil, fmt.Errorf("subject %s: %w: %w", subject, domain.ErrSkipped, err)
	}
	res, err := s.store.Select(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("statements of %s: %w", subject, err)
	}
	out := make([]statement, 0, len(res.Results.Bindings))
	for _, row := range res.Results.Bindings {
		p, ok := row["p"]
		if !ok {
			continue
		}
		out = append(out, statement{pred: p.Value, obj: row["o"]})
	}
	// Store result order is unspecified; sorting keeps documents byte-identical across runs.
	sort.Slice(out, func(i, j int) bool {
		if out[i].pred != out[j].pred {
			return out[i].pred < out[j].pred
		}
		return out[i].obj.Value < out[j].obj.Value
	})
	return out, nil
}

func (s *Service) thumbnail(ctx context.Context, subject string) (string, error) {
	q, err := sparql.ObjectThumbnail(subject)
	if err != nil {
		return "", fmt.Errorf("subject %s: %w: %w", subject, domain.ErrSkipped, err)
	}
	res, err := s.store.Select(ctx, q)
	if err != nil {
		return "", fmt.Errorf("thumbnail of %s: %w", subject, err)
	}
	if iris := res.IRIs("t"); len(iris) > 0 {
		return iris[0], nil
	}
	return "", nil
}

func fulltext(stmts []statement) string {
	var parts []string
	for _, st := range stmts {
		if !vocab.InNamespace(st.pred, vocab.ICMSNS) || !st.obj.IsLiteral() {
			continue
		}
		if _, excluded := vocab.ICMSFulltextExclusions[st.pred]; excluded {
			continue
		}
		parts = append(parts, st.obj.Value)
	}
	return strings.Join(parts, " ")
}

func hasType(stmts []statement, class string) bool {
	for _, st := range stmts {
		if st.pred == vocab.RDFType && st.obj.Value == class {
			return true
		}
	}
	return false
}

func first(stmts []statement, pred string) string {
	for _, st := range stmts {
		if st.pred == pred {
			return st.obj.Value
		}
	}
	return ""
}

func pathOf(iri string) string {
	u, err := url.Parse(iri)
	if err != nil {
		return iri
	}
	return u.Path
}
