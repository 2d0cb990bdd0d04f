// Package ingest streams raw records out of geospatial source files and runs
// the decode, reproject, assemble, load pipeline over them.
package ingest

import (
	"encoding/json"

	"github.com/jonas-p/go-shp"

	"github.com/sells-group/geoingest/internal/normalize"
)

// Format identifies a supported input serialization.
type Format string

const (
	FormatCSV       Format = "csv"
	FormatGeoJSON   Format = "geojson"
	FormatNDJSON    Format = "ndjson"
	FormatShapefile Format = "shp"
)

// RawRecord is one input row or feature: the original fields in source order
// plus whichever geometry carrier the format provides. Immutable once read;
// discarded after assembly.
type RawRecord struct {
	Num      int               // 1-based row/feature number for diagnostics
	Fields   []normalize.Field // attributes as they appeared in the source
	Geometry json.RawMessage   // GeoJSON geometry object, when present
	Shape    shp.Shape         // shapefile geometry, when present
}

// Lookup returns the value of the field whose canonical name matches name,
// so declared column names match regardless of case or punctuation.
func (r RawRecord) Lookup(name string) (any, bool) {
	want := normalize.Key(name)
	for _, f := range r.Fields {
		if normalize.Key(f.Name) == want {
			return f.Value, true
		}
	}
	return nil, false
}
