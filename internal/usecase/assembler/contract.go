package assembler

import (
	"context"

	"github.com/UMD-DRASTIC/drastic-trellis/internal/graph"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/transport/sparql"
)

// Querier runs SPARQL SELECT queries.
type Querier interface {
	Select(ctx context.Context, query string) (*sparql.Results, error)
}

// GraphWriter replaces the statements of a resource.
type GraphWriter interface {
	PutGraph(ctx context.Context, iri string, triples []graph.Triple) error
}
