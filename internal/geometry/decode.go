package geometry

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/encoding/wkt"
)

// PointFromColumns builds a Point from two scalar column values (longitude/x
// first). Absent or non-numeric values fail with ErrMissingCoordinate,
// non-finite values with ErrInvalidRange.
func PointFromColumns(lonVal, latVal any, srid int) (geom.T, error) {
	lon, err := coordFloat(lonVal, "longitude")
	if err != nil {
		return nil, err
	}
	lat, err := coordFloat(latVal, "latitude")
	if err != nil {
		return nil, err
	}

	p := geom.NewPointFlat(geom.XY, []float64{lon, lat})
	return p.SetSRID(srid), nil
}

func coordFloat(v any, name string) (float64, error) {
	var f float64
	switch t := v.(type) {
	case nil:
		return 0, eris.Wrapf(ErrMissingCoordinate, "%s absent", name)
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, eris.Wrapf(ErrMissingCoordinate, "%s absent", name)
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, eris.Wrapf(ErrMissingCoordinate, "%s %q is not numeric", name, s)
		}
		f = parsed
	default:
		return 0, eris.Wrapf(ErrMissingCoordinate, "%s has non-numeric type %T", name, v)
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, eris.Wrapf(ErrInvalidRange, "%s is not finite", name)
	}
	return f, nil
}

// FromGeoJSON decodes a GeoJSON geometry object. Coordinate arrays are copied
// verbatim; only Point, Polygon, and MultiPolygon are supported.
func FromGeoJSON(raw json.RawMessage, srid int) (geom.T, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, eris.Wrap(err, "geometry: decode geojson")
	}

	switch probe.Type {
	case "Point", "Polygon", "MultiPolygon":
	default:
		return nil, eris.Wrapf(ErrUnsupportedGeometryType, "geojson type %q", probe.Type)
	}

	var g geom.T
	if err := geojson.Unmarshal(raw, &g); err != nil {
		return nil, eris.Wrap(err, "geometry: decode geojson")
	}

	return setSRID(g, srid), nil
}

// FromWKT decodes a WKT literal. Empty geometries (POLYGON EMPTY) decode to a
// zero-ring variant, not an error. Parse failures carry the offending
// substring for diagnosis.
func FromWKT(s string, srid int) (geom.T, error) {
	g, err := wkt.Unmarshal(strings.TrimSpace(s))
	if err != nil {
		return nil, eris.Wrapf(ErrMalformedWKT, "%v in %q", err, snippet(s))
	}

	switch g.(type) {
	case *geom.Point, *geom.Polygon, *geom.MultiPolygon:
	default:
		return nil, eris.Wrapf(ErrUnsupportedGeometryType, "wkt type %T", g)
	}

	return setSRID(g, srid), nil
}

// FromShape converts a shapefile shape to a canonical geometry. Polygons
// become MultiPolygons since shapefile parts may hold disjoint outer rings.
// A nil shape carries no footprint.
func FromShape(shape shp.Shape, srid int) (geom.T, error) {
	switch s := shape.(type) {
	case nil:
		return nil, nil

	case *shp.Point:
		return geom.NewPointFlat(geom.XY, []float64{s.X, s.Y}).SetSRID(srid), nil

	case *shp.Polygon:
		return shpPolygonToMultiPolygon(s, srid)

	default:
		return nil, eris.Wrapf(ErrUnsupportedGeometryType, "shapefile type %T", shape)
	}
}

func shpPolygonToMultiPolygon(p *shp.Polygon, srid int) (geom.T, error) {
	mp := geom.NewMultiPolygon(geom.XY).SetSRID(srid)
	if p.NumParts == 0 || len(p.Points) == 0 {
		return mp, nil
	}

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}

		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(geom.NewLinearRingFlat(geom.XY, flat)); err != nil {
			return nil, eris.Wrapf(err, "geometry: shapefile ring %d", i)
		}
		if err := mp.Push(poly); err != nil {
			return nil, eris.Wrapf(err, "geometry: shapefile part %d", i)
		}
	}

	return mp, nil
}

// snippet truncates a WKT literal for error messages.
func snippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 64 {
		return s[:64] + "..."
	}
	return s
}
