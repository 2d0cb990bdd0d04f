// Package sink streams assembled documents to a document database with
// idempotent upsert semantics.
package sink

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/geoingest/internal/document"
)

// ErrConnectivity marks a sink failure that is fatal to the whole run, as
// opposed to per-document write failures which are recorded and skipped.
var ErrConnectivity = eris.New("sink: connectivity failure")

// Failure records one document the sink refused (field too large, duplicate
// race, etc.). Non-fatal: the rest of the batch proceeds.
type Failure struct {
	Index  int    // position within the batch
	Key    string // natural key of the failed document
	Reason string
}

// BatchResult reports the outcome of one upsert batch.
type BatchResult struct {
	Upserted int64 // documents inserted
	Matched  int64 // documents that already existed (replaced in place)
	Failures []Failure
}

// Sink is the storage boundary the loader writes through. Implementations
// must be safe for concurrent UpsertBatch calls.
type Sink interface {
	// UpsertBatch writes documents keyed on their natural key. Per-document
	// failures come back in the result; a returned error wrapping
	// ErrConnectivity aborts the run.
	UpsertBatch(ctx context.Context, collection string, docs []document.Document) (BatchResult, error)

	// EnsureIndexes creates the natural-key index and, when spatial is true,
	// a geographic index on the geometry field.
	EnsureIndexes(ctx context.Context, collection string, spatial bool) error

	// Drop removes the destination collection.
	Drop(ctx context.Context, collection string) error

	// Count returns the number of documents in the collection.
	Count(ctx context.Context, collection string) (int64, error)

	Close(ctx context.Context) error
}
