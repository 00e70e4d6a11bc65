package router

import (
	"context"

	"github.com/UMD-DRASTIC/drastic-trellis/internal/graph"
)

// GraphReader fetches the current statements of a resource.
type GraphReader interface {
	GetGraph(ctx context.Context, iri string) ([]graph.Triple, error)
}

// Updater runs SPARQL updates against the triple store.
type Updater interface {
	Update(ctx context.Context, update string) error
}

// Locker serializes work on one resource key. The returned func releases it.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}
