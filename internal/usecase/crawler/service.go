// Package crawler walks LDP containment one level per request. Recursion is
// expressed by returning child requests for the caller to publish.
package crawler

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/UMD-DRASTIC/drastic-trellis/internal/domain"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/domain/crawl"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/domain/event"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/graph"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/logger"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/vocab"
)

// Topics whose consumers expect an ActivityStreams change notification.
const (
	TopicObjects     = "objects"
	TopicNewBinaries = "new-binaries"
)

// Emission is the output event for the visited resource.
type Emission struct {
	Topic   string
	Payload []byte
}

// Result of visiting one resource.
type Result struct {
	Children []crawl.Request
	Output   Emission
}

// Service visits resources for crawl requests.
type Service struct {
	graphs   GraphReader
	visited  VisitedSet
	limiter  *rate.Limiter
	maxDepth int
	generic  bool
}

// New creates a crawler. maxDepth <= 0 disables clamping.
func New(graphs GraphReader, maxDepth int) *Service {
	return &Service{graphs: graphs, maxDepth: maxDepth}
}

// WithVisitedSet enables duplicate-visit detection for requests carrying a crawl id.
func (s *Service) WithVisitedSet(v VisitedSet) *Service {
	s.visited = v
	return s
}

// WithRateLimit bounds output emission. A non-positive rate leaves it unlimited.
func (s *Service) WithRateLimit(perSecond float64, burst int) *Service {
	if perSecond > 0 {
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
	return s
}

// WithGenericEnvelope emits {"id": iri, ...options} JSON instead of the bare
// IRI for topics without a notification envelope.
func (s *Service) WithGenericEnvelope(on bool) *Service {
	s.generic = on
	return s
}

// Crawl visits req.StartURI. It returns one child request per contained
// resource while depth remains, and exactly one output event.
//
// With a visited set, a failure after the resource was marked unmarks it so
// the redelivered request is not mistaken for a duplicate.
func (s *Service) Crawl(ctx context.Context, req crawl.Request) (res Result, err error) {
	if err := req.Validate(); err != nil {
		return Result{}, err
	}
	ctx, log := logger.With(ctx,
		zap.String("resource", req.StartURI),
		zap.Int("depth", req.Depth),
		zap.String("topic", req.Topic),
	)

	if s.maxDepth > 0 && req.Depth > s.maxDepth {
		log.Warn("crawl depth clamped", zap.Int("max_depth", s.maxDepth))
		req.Depth = s.maxDepth
	}

	if s.visited != nil && req.CrawlID != "" {
		first, err := s.visited.FirstVisit(ctx, req.CrawlID, req.StartURI)
		if err != nil {
			return Result{}, fmt.Errorf("visited set: %w", err)
		}
		if !first {
			return Result{}, fmt.Errorf("%s already visited by crawl %s: %w", req.StartURI, req.CrawlID, domain.ErrSkipped)
		}
		defer func() {
			if err != nil {
				s.forget(ctx, req)
			}
		}()
	}

	envelope := req.Topic == TopicObjects || req.Topic == TopicNewBinaries
	var children []string
	if !req.Terminal() || envelope {
		triples, err := s.graphs.GetGraph(ctx, req.StartURI)
		if err != nil {
			return Result{}, fmt.Errorf("fetch %s: %w", req.StartURI, err)
		}
		children = unique(graph.ObjectIRIs(triples, "", vocab.LDPContains))
	}

	if !req.Terminal() {
		res.Children = make([]crawl.Request, 0, len(children))
		for _, c := range children {
			res.Children = append(res.Children, req.Child(c))
		}
	}

	payload, err := s.payload(req, envelope, len(children) > 0)
	if err != nil {
		return Result{}, err
	}
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return Result{}, fmt.Errorf("emit rate limit: %w", err)
		}
	}
	res.Output = Emission{Topic: req.Topic, Payload: payload}

	log.Debug("resource crawled", zap.Int("children", len(res.Children)))
	return res, nil
}

// Forget unmarks a visited resource after its results could not be delivered.
func (s *Service) Forget(ctx context.Context, req crawl.Request) {
	if s.visited != nil && req.CrawlID != "" {
		s.forget(ctx, req)
	}
}

func (s *Service) forget(ctx context.Context, req crawl.Request) {
	if err := s.visited.Forget(context.WithoutCancel(ctx), req.CrawlID, req.StartURI); err != nil {
		logger.FromContext(ctx).Warn("visited set forget failed", zap.Error(err))
	}
}

func (s *Service) payload(req crawl.Request, envelope, container bool) ([]byte, error) {
	switch {
	case envelope:
		types := []string{vocab.LDPRDFSource}
		if container {
			types = append(types, vocab.LDPContainer)
		}
		n := event.NewNotification(req.StartURI, event.OpUpdate, vocab.CrawlerAgent, types)
		return json.Marshal(n)
	case s.generic:
		out := make(map[string]string, len(req.Options)+1)
		for k, v := range req.Options {
			out[k] = v
		}
		out["id"] = req.StartURI
		return json.Marshal(out)
	default:
		return []byte(req.StartURI), nil
	}
}

func unique(iris []string) []string {
	seen := make(map[string]struct{}, len(iris))
	out := iris[:0]
	for _, i := range iris {
		if _, ok := seen[i]; ok {
			continue
		}
		seen[i] = struct{}{}
		out = append(out, i)
	}
	return out
}
