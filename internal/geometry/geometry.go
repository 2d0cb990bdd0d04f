// Package geometry decodes source geometries (coordinate columns, GeoJSON,
// WKT, shapefile shapes) into a canonical go-geom representation restricted
// to Point, Polygon, and MultiPolygon. The source CRS travels as the geometry
// SRID until reprojection fixes it to the target.
package geometry

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// Decode failure taxonomy. Per-record failures are skipped by the pipeline,
// never fatal to a run.
var (
	ErrMissingCoordinate       = eris.New("geometry: missing or non-numeric coordinate")
	ErrInvalidRange            = eris.New("geometry: coordinate out of range")
	ErrUnsupportedGeometryType = eris.New("geometry: unsupported geometry type")
	ErrMalformedWKT            = eris.New("geometry: malformed WKT")
)

// GeoJSON is the sink-ready geometry shape, stored verbatim so the document
// database can build a geographic index over it.
type GeoJSON struct {
	Type        string `bson:"type" json:"type"`
	Coordinates any    `bson:"coordinates" json:"coordinates"`
}

// IsEmpty reports whether g carries no spatial footprint (nil geometry or a
// zero-ring decode such as POLYGON EMPTY). Empty geometries still persist
// their attributes; they just get no geometry field.
func IsEmpty(g geom.T) bool {
	return g == nil || len(g.FlatCoords()) == 0
}

// ToGeoJSON converts a canonical geometry to its GeoJSON shape. Returns nil
// for empty geometries. Only X and Y are carried; Z/M are dropped.
func ToGeoJSON(g geom.T) *GeoJSON {
	if IsEmpty(g) {
		return nil
	}

	switch t := g.(type) {
	case *geom.Point:
		c := t.Coords()
		return &GeoJSON{Type: "Point", Coordinates: []float64{c[0], c[1]}}

	case *geom.Polygon:
		return &GeoJSON{Type: "Polygon", Coordinates: ringsOf(t.Coords())}

	case *geom.MultiPolygon:
		polys := t.Coords()
		out := make([][][][]float64, len(polys))
		for i, rings := range polys {
			out[i] = ringsOf(rings)
		}
		return &GeoJSON{Type: "MultiPolygon", Coordinates: out}

	default:
		return nil
	}
}

func ringsOf(rings [][]geom.Coord) [][][]float64 {
	out := make([][][]float64, len(rings))
	for i, ring := range rings {
		out[i] = make([][]float64, len(ring))
		for j, c := range ring {
			out[i][j] = []float64{c[0], c[1]}
		}
	}
	return out
}

// setSRID tags a canonical geometry with its CRS identifier.
func setSRID(g geom.T, srid int) geom.T {
	switch t := g.(type) {
	case *geom.Point:
		return t.SetSRID(srid)
	case *geom.Polygon:
		return t.SetSRID(srid)
	case *geom.MultiPolygon:
		return t.SetSRID(srid)
	}
	return g
}
