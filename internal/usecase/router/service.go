// Package router mirrors resource graphs into per-resource named graphs of a
// SPARQL store and keeps the global containment graph in step.
package router

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/UMD-DRASTIC/drastic-trellis/internal/domain"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/domain/event"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/graph"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/logger"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/transport/sparql"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/vocab"
)

// Service routes change events into the triple store.
type Service struct {
	graphs      GraphReader
	store       Updater
	locks       []Locker
	containment string
}

// New creates a router writing containment edges to vocab.NPSContainsGraph.
// Events for the same resource are serialized through local.
func New(graphs GraphReader, store Updater, local Locker) *Service {
	s := &Service{graphs: graphs, store: store, containment: vocab.NPSContainsGraph}
	if local != nil {
		s.locks = append(s.locks, local)
	}
	return s
}

// WithLease adds a cross-process lease taken after the local lock.
func (s *Service) WithLease(l Locker) *Service {
	if l != nil {
		s.locks = append(s.locks, l)
	}
	return s
}

// WithContainmentGraph overrides the containment graph IRI.
func (s *Service) WithContainmentGraph(iri string) *Service {
	if iri != "" {
		s.containment = iri
	}
	return s
}

// Route applies ev and returns the IRI whose named graph changed.
//
// Delete and Update clear the resource graph and its containment edges.
// Create and Update then fetch the resource and insert its statements, with
// ldp:contains edges of containers going to the containment graph only.
func (s *Service) Route(ctx context.Context, ev event.ChangeEvent) (string, error) {
	ctx, log := logger.With(ctx, zap.String("resource", ev.IRI), zap.String("op", string(ev.Op)))

	unlock, err := s.lock(ctx, ev.IRI)
	if err != nil {
		return "", fmt.Errorf("lock %s: %w", ev.IRI, err)
	}
	defer unlock()

	if ev.Op == event.OpDelete || ev.Op == event.OpUpdate {
		if err := s.clear(ctx, ev.IRI); err != nil {
			return "", err
		}
	}
	if ev.Op == event.OpDelete {
		log.Debug("resource graph removed")
		return ev.IRI, nil
	}

	triples, err := s.graphs.GetGraph(ctx, ev.IRI)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			log.Info("resource no longer exists", zap.Error(err))
			return "", fmt.Errorf("fetch %s: %w: %w", ev.IRI, domain.ErrSkipped, err)
		}
		return "", fmt.Errorf("fetch %s: %w", ev.IRI, err)
	}

	contains, other := graph.Partition(triples, vocab.LDPContains)
	if len(other) > 0 {
		if err := s.insert(ctx, ev.IRI, other); err != nil {
			return "", err
		}
	}
	if len(contains) > 0 && s.isContainer(ev, triples) {
		if err := s.insert(ctx, s.containment, contains); err != nil {
			return "", err
		}
	}

	log.Debug("resource graph written",
		zap.Int("statements", len(other)),
		zap.Int("contains", len(contains)),
	)
	return ev.IRI, nil
}

func (s *Service) lock(ctx context.Context, key string) (func(), error) {
	var unlocks []func()
	release := func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
	for _, l := range s.locks {
		u, err := l.Lock(ctx, key)
		if err != nil {
			release()
			return nil, err
		}
		unlocks = append(unlocks, u)
	}
	return release, nil
}

// clear removes the resource graph and every containment edge with the
// resource as subject in one update request.
func (s *Service) clear(ctx context.Context, iri string) error {
	clearGraph, err := sparql.ClearGraph(iri)
	if err != nil {
		return err
	}
	dropEdges, err := sparql.DeleteContainment(s.containment, iri)
	if err != nil {
		return err
	}
	if err := s.store.Update(ctx, strings.Join([]string{clearGraph, dropEdges}, " ;\n")); err != nil {
		return fmt.Errorf("clear %s: %w", iri, err)
	}
	return nil
}

func (s *Service) insert(ctx context.Context, graphIRI string, triples []graph.Triple) error {
	update, err := sparql.InsertData(graphIRI, triples)
	if err != nil {
		return err
	}
	if err := s.store.Update(ctx, update); err != nil {
		return fmt.Errorf("insert into %s: %w", graphIRI, err)
	}
	return nil
}

// isContainer trusts the event types first, then the fetched rdf:type statements.
func (s *Service) isContainer(ev event.ChangeEvent, triples []graph.Triple) bool {
	if ev.IsContainer() {
		return true
	}
	for _, t := range graph.ObjectIRIs(triples, ev.IRI, vocab.RDFType) {
		if vocab.IsContainerType(t) {
			return true
		}
	}
	return false
}
