// Package document assembles normalized attributes and a canonical geometry
// into the storage-ready record shape.
package document

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"github.com/twpayne/go-geom"

	"github.com/sells-group/geoingest/internal/geometry"
)

// Source is the traceability metadata attached to every document.
type Source struct {
	Dataset    string    `bson:"dataset" json:"dataset"`
	File       string    `bson:"file" json:"file"`
	Format     string    `bson:"format" json:"format"`
	RunID      string    `bson:"run_id" json:"run_id"`
	IngestedAt time.Time `bson:"ingested_at" json:"ingested_at"`
}

// Document is the unit persisted to the storage sink. Geometry is omitted for
// records with no spatial footprint; their attributes still persist.
type Document struct {
	Key        string            `bson:"natural_key" json:"natural_key"`
	Attributes map[string]any    `bson:"attributes" json:"attributes"`
	Geometry   *geometry.GeoJSON `bson:"geometry,omitempty" json:"geometry,omitempty"`
	Source     Source            `bson:"source" json:"source"`

	// Record is the 1-based source row or feature number, carried so load
	// failures can name the offending row. Never persisted.
	Record int `bson:"-" json:"-"`
}

// Assemble combines attributes, an optional geometry, and source metadata
// into a Document keyed for idempotent upsert. Pure; all validation happened
// upstream.
func Assemble(attrs map[string]any, g geom.T, keyFields []string, meta Source) Document {
	return Document{
		Key:        NaturalKey(attrs, keyFields),
		Attributes: attrs,
		Geometry:   geometry.ToGeoJSON(g),
		Source:     meta,
	}
}

// NaturalKey derives the upsert key. With declared key fields the key hashes
// those field values in declared order; otherwise it hashes the full
// attribute map in sorted key order, so any attribute change yields a new
// record rather than an update.
func NaturalKey(attrs map[string]any, keyFields []string) string {
	h := sha256.New()

	fields := keyFields
	if len(fields) == 0 {
		fields = make([]string, 0, len(attrs))
		for k := range attrs {
			fields = append(fields, k)
		}
		sort.Strings(fields)
	}

	for _, f := range fields {
		fmt.Fprintf(h, "%s\x1f%v\x1e", f, attrs[f])
	}

	return hex.EncodeToString(h.Sum(nil))
}
