package crawler

import (
	"context"

	"github.com/UMD-DRASTIC/drastic-trellis/internal/graph"
)

// GraphReader fetches the current statements of a resource.
type GraphReader interface {
	GetGraph(ctx context.Context, iri string) ([]graph.Triple, error)
}

// VisitedSet records resources already emitted by one crawl.
type VisitedSet interface {
	FirstVisit(ctx context.Context, crawlID, iri string) (bool, error)
	Forget(ctx context.Context, crawlID, iri string) error
}
