package indexer

import (
	"context"

	"github.com/UMD-DRASTIC/drastic-trellis/internal/graph"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/transport/elastic"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/transport/sparql"
)

// Querier runs SPARQL SELECT queries.
type Querier interface {
	Select(ctx context.Context, query string) (*sparql.Results, error)
}

// SearchIndex stores search documents.
type SearchIndex interface {
	Upsert(ctx context.Context, index, id string, doc any) error
	Bulk(ctx context.Context, actions []elastic.BulkAction) error
}

// GraphReader fetches resource graphs for authority records.
type GraphReader interface {
	GetGraph(ctx context.Context, iri string) ([]graph.Triple, error)
}
