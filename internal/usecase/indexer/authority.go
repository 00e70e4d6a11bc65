package indexer

import (
	"context"
	"fmt"

	"github.com/knakk/rdf"
	"go.uber.org/zap"

	"github.com/UMD-DRASTIC/drastic-trellis/internal/domain"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/domain/batch"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/domain/searchdoc"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/graph"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/logger"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/metrics"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/transport/elastic"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/vocab"
)

// indexAuthority bulk indexes the SKOS concepts of a name-authority resource.
func (s *Service) indexAuthority(ctx context.Context, iri string) (batch.Report, error) {
	if s.graphs == nil {
		return batch.Report{}, fmt.Errorf("authority %s: no graph reader: %w", iri, domain.ErrSkipped)
	}
	triples, err := s.graphs.GetGraph(ctx, iri)
	if err != nil {
		return batch.Report{}, fmt.Errorf("fetch authority %s: %w", iri, err)
	}

	var (
		rep     batch.Report
		actions []elastic.BulkAction
	)
	for _, concept := range graph.SubjectsOfType(triples, vocab.SKOSConcept) {
		rec, err := Authority(triples, concept)
		if err != nil {
			logger.FromContext(ctx).Warn("authority record skipped", zap.String("concept", concept), zap.Error(err))
			rep.Add(batch.NewSkipped(concept, err))
			continue
		}
		actions = append(actions, elastic.BulkAction{Index: s.authority, ID: concept, Source: rec})
		rep.Add(batch.NewOK(concept))
	}
	if len(actions) == 0 {
		return rep, nil
	}
	if err := s.search.Bulk(ctx, actions); err != nil {
		return batch.Report{}, fmt.Errorf("bulk authority %s: %w", iri, err)
	}
	metrics.SearchDocumentsTotal.WithLabelValues("Authority").Add(float64(len(actions)))
	return rep, nil
}

// Authority builds the record of one concept. Alternate labels are read both
// as SKOS-XL label resources and as plain skos:altLabel literals.
func Authority(triples []graph.Triple, concept string) (searchdoc.Authority, error) {
	subj, err := rdf.NewIRI(concept)
	if err != nil {
		return searchdoc.Authority{}, fmt.Errorf("concept %q: %w", concept, domain.ErrMalformedPayload)
	}
	rec := searchdoc.Authority{
		ID:    concept,
		Types: graph.ObjectIRIs(triples, concept, vocab.RDFType),
	}

	prefs := graph.Values(triples, subj, vocab.SKOSPrefLabel)
	if len(prefs) == 0 {
		return searchdoc.Authority{}, fmt.Errorf("concept %s has no prefLabel: %w", concept, domain.ErrSkipped)
	}
	rec.PrefLabel = prefs[0].String()

	for _, pred := range []string{vocab.SKOSXLAltLabel, vocab.SKOSAltLabel} {
		for _, o := range graph.Values(triples, subj, pred) {
			if o.Type() == rdf.TermLiteral {
				rec.AltLabels = append(rec.AltLabels, o.String())
				continue
			}
			for _, form := range graph.Values(triples, o, vocab.SKOSXLLiteralForm) {
				rec.AltLabels = append(rec.AltLabels, form.String())
			}
		}
	}
	return rec, nil
}
