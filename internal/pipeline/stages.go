// Package pipeline adapts the stage use cases to event bus handlers: it
// decodes the incoming payload, runs the stage and publishes its outputs.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/UMD-DRASTIC/drastic-trellis/internal/domain"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/domain/batch"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/domain/crawl"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/domain/event"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/logger"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/transport/jetstream"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/usecase/crawler"
)

// Publisher sends a payload to a subject.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// Router applies change events to the triple store.
type Router interface {
	Route(ctx context.Context, ev event.ChangeEvent) (string, error)
}

// Crawler visits one resource per request. Forget undoes the visit mark of a
// request whose results could not be published.
type Crawler interface {
	Crawl(ctx context.Context, req crawl.Request) (crawler.Result, error)
	Forget(ctx context.Context, req crawl.Request)
}

// Indexer indexes one changed graph.
type Indexer interface {
	IndexGraph(ctx context.Context, graphIRI string) (batch.Report, error)
}

// Assembler builds the paged documents of one submission.
type Assembler interface {
	Assemble(ctx context.Context, submission string) (batch.Report, error)
}

// RouterHandler routes change events and announces the changed graph.
func RouterHandler(r Router, pub Publisher, subjects jetstream.Subjects) jetstream.Handler {
	return func(ctx context.Context, data []byte) error {
		ev, err := event.Parse(data)
		if err != nil {
			return err
		}
		iri, err := r.Route(ctx, ev)
		if err != nil {
			return err
		}
		if err := pub.Publish(ctx, subjects.GraphChanged(), []byte(iri)); err != nil {
			return fmt.Errorf("announce %s: %w", iri, err)
		}
		return nil
	}
}

// CrawlerHandler visits one resource, emits its output event and re-publishes
// one crawl request per child.
func CrawlerHandler(c Crawler, pub Publisher, subjects jetstream.Subjects) jetstream.Handler {
	return func(ctx context.Context, data []byte) error {
		req, err := crawl.Parse(data)
		if err != nil {
			return err
		}
		out, err := subjects.Topic(req.Topic)
		if err != nil {
			return fmt.Errorf("crawl request: %w: %w", domain.ErrMalformedPayload, err)
		}

		res, err := c.Crawl(ctx, req)
		if err != nil {
			return err
		}
		if err := publishCrawl(ctx, pub, subjects, out, res); err != nil {
			c.Forget(ctx, req)
			return fmt.Errorf("crawl %s: %w", req.StartURI, err)
		}
		return nil
	}
}

func publishCrawl(ctx context.Context, pub Publisher, subjects jetstream.Subjects, out string, res crawler.Result) error {
	if err := pub.Publish(ctx, out, res.Output.Payload); err != nil {
		return fmt.Errorf("emit: %w", err)
	}
	for _, child := range res.Children {
		body, err := json.Marshal(child)
		if err != nil {
			return fmt.Errorf("encode child request: %w", err)
		}
		if err := pub.Publish(ctx, subjects.Crawl(), body); err != nil {
			return fmt.Errorf("publish child %s: %w", child.StartURI, err)
		}
	}
	return nil
}

// IndexerHandler indexes the graph named by the payload.
func IndexerHandler(ix Indexer) jetstream.Handler {
	return func(ctx context.Context, data []byte) error {
		iri, err := ParseIRI(data)
		if err != nil {
			return err
		}
		_, err = ix.IndexGraph(ctx, iri)
		return err
	}
}

// AssemblerHandler assembles the submission named by the payload.
func AssemblerHandler(a Assembler) jetstream.Handler {
	return func(ctx context.Context, data []byte) error {
		iri, err := ParseIRI(data)
		if err != nil {
			return err
		}
		rep, err := a.Assemble(ctx, iri)
		if failed := rep.Failed(); len(failed) > 0 {
			logger.FromContext(ctx).Warn("documents failed", zap.Strings("documents", failed))
		}
		return err
	}
}
