package sink

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/geoingest/internal/document"
)

// MongoOptions configures the MongoDB sink.
type MongoOptions struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
	WriteTimeout   time.Duration
	WriteRate      float64 // batches per second; 0 = unlimited
}

// Mongo is the MongoDB implementation of Sink.
type Mongo struct {
	client       *mongo.Client
	db           *mongo.Database
	writeTimeout time.Duration
	limiter      *rate.Limiter
}

// NewMongo connects to the document database and verifies connectivity.
func NewMongo(ctx context.Context, opts MongoOptions) (*Mongo, error) {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 10 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 30 * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(opts.URI))
	if err != nil {
		return nil, eris.Wrap(err, "sink: connect")
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, eris.Wrapf(ErrConnectivity, "ping: %v", err)
	}

	m := &Mongo{
		client:       client,
		db:           client.Database(opts.Database),
		writeTimeout: opts.WriteTimeout,
	}
	if opts.WriteRate > 0 {
		m.limiter = rate.NewLimiter(rate.Limit(opts.WriteRate), 1)
	}
	return m, nil
}

// UpsertBatch bulk-writes documents as unordered replace-with-upsert keyed on
// natural_key. Re-running the same source file leaves the collection
// unchanged.
func (m *Mongo) UpsertBatch(ctx context.Context, collection string, docs []document.Document) (BatchResult, error) {
	if len(docs) == 0 {
		return BatchResult{}, nil
	}

	if m.limiter != nil {
		if err := m.limiter.Wait(ctx); err != nil {
			return BatchResult{}, eris.Wrapf(ErrConnectivity, "rate wait: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, m.writeTimeout)
	defer cancel()

	models := make([]mongo.WriteModel, len(docs))
	for i, d := range docs {
		models[i] = mongo.NewReplaceOneModel().
			SetFilter(bson.D{{Key: "natural_key", Value: d.Key}}).
			SetReplacement(d).
			SetUpsert(true)
	}

	res, err := m.db.Collection(collection).BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	result := BatchResult{}
	if res != nil {
		result.Upserted = res.UpsertedCount
		result.Matched = res.MatchedCount
	}

	if err != nil {
		failures, fatal := classifyBulkError(err, docs)
		if fatal != nil {
			return result, fatal
		}
		result.Failures = failures
	}

	return result, nil
}

// classifyBulkError splits a bulk-write error into per-document failures
// (non-fatal) and connectivity-level errors (fatal to the run). A write
// timeout fails every document of the batch and lets the run continue;
// cancellation and network-level errors abort.
func classifyBulkError(err error, docs []document.Document) ([]Failure, error) {
	var bwe mongo.BulkWriteException
	if errors.As(err, &bwe) {
		failures := make([]Failure, 0, len(bwe.WriteErrors))
		for _, we := range bwe.WriteErrors {
			f := Failure{Index: we.Index, Reason: we.Message}
			if we.Index >= 0 && we.Index < len(docs) {
				f.Key = docs[we.Index].Key
			}
			failures = append(failures, f)
		}
		if bwe.WriteConcernError != nil {
			return nil, eris.Wrapf(ErrConnectivity, "write concern: %s", bwe.WriteConcernError.Message)
		}
		return failures, nil
	}

	// Run cancellation propagates; the loader stops submitting.
	if errors.Is(err, context.Canceled) {
		return nil, eris.Wrapf(ErrConnectivity, "bulk write: %v", err)
	}

	// A write timeout fails the batch's documents, not the run.
	if mongo.IsTimeout(err) || errors.Is(err, context.DeadlineExceeded) {
		failures := make([]Failure, len(docs))
		for i, d := range docs {
			failures[i] = Failure{Index: i, Key: d.Key, Reason: "write timeout: " + err.Error()}
		}
		return failures, nil
	}

	if mongo.IsNetworkError(err) {
		return nil, eris.Wrapf(ErrConnectivity, "bulk write: %v", err)
	}

	return nil, eris.Wrap(err, "sink: bulk write")
}

// EnsureIndexes creates the unique natural-key index and, when spatial is
// true, a 2dsphere index on the geometry field.
func (m *Mongo) EnsureIndexes(ctx context.Context, collection string, spatial bool) error {
	ctx, cancel := context.WithTimeout(ctx, m.writeTimeout)
	defer cancel()

	indexes := m.db.Collection(collection).Indexes()

	_, err := indexes.CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "natural_key", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return eris.Wrapf(err, "sink: create natural_key index on %s", collection)
	}

	if spatial {
		_, err = indexes.CreateOne(ctx, mongo.IndexModel{
			Keys: bson.D{{Key: "geometry", Value: "2dsphere"}},
		})
		if err != nil {
			return eris.Wrapf(err, "sink: create 2dsphere index on %s", collection)
		}
		zap.L().Info("spatial index ensured",
			zap.String("component", "sink.mongo"),
			zap.String("collection", collection),
		)
	}

	return nil
}

// Drop removes the destination collection.
func (m *Mongo) Drop(ctx context.Context, collection string) error {
	if err := m.db.Collection(collection).Drop(ctx); err != nil {
		return eris.Wrapf(err, "sink: drop %s", collection)
	}
	return nil
}

// Count returns the number of documents in the collection.
func (m *Mongo) Count(ctx context.Context, collection string) (int64, error) {
	n, err := m.db.Collection(collection).CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, eris.Wrapf(err, "sink: count %s", collection)
	}
	return n, nil
}

// CollectionInfo describes one destination collection for status reporting.
type CollectionInfo struct {
	Name      string
	Documents int64
	Indexes   []string
}

// Collections lists destination collections with document counts and index
// names.
func (m *Mongo) Collections(ctx context.Context) ([]CollectionInfo, error) {
	names, err := m.db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, eris.Wrap(err, "sink: list collections")
	}

	infos := make([]CollectionInfo, 0, len(names))
	for _, name := range names {
		coll := m.db.Collection(name)

		count, err := coll.EstimatedDocumentCount(ctx)
		if err != nil {
			return nil, eris.Wrapf(err, "sink: count %s", name)
		}

		cursor, err := coll.Indexes().List(ctx)
		if err != nil {
			return nil, eris.Wrapf(err, "sink: list indexes for %s", name)
		}
		var idxDocs []bson.M
		if err := cursor.All(ctx, &idxDocs); err != nil {
			return nil, eris.Wrapf(err, "sink: read indexes for %s", name)
		}

		info := CollectionInfo{Name: name, Documents: count}
		for _, d := range idxDocs {
			if idxName, ok := d["name"].(string); ok {
				info.Indexes = append(info.Indexes, idxName)
			}
		}
		infos = append(infos, info)
	}

	return infos, nil
}

// Close disconnects from the database.
func (m *Mongo) Close(ctx context.Context) error {
	if err := m.client.Disconnect(ctx); err != nil {
		return eris.Wrap(err, "sink: disconnect")
	}
	return nil
}
