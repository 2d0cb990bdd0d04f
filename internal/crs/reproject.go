package crs

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// Reproject transforms every coordinate pair of g from one CRS to another,
// preserving geometry type, ring structure, and point count exactly. No-op
// when the systems are the same. Coordinates that transform to non-finite or
// out-of-domain values fail with ErrOutOfDomain.
func Reproject(g geom.T, from, to CRS) (geom.T, error) {
	if from.Code == to.Code {
		return g, nil
	}
	if g == nil {
		return nil, nil
	}

	flat := g.FlatCoords()
	stride := g.Stride()
	out := make([]float64, len(flat))
	copy(out, flat)

	for i := 0; i+1 < len(out); i += stride {
		x, y, err := transformPoint(from, to, out[i], out[i+1])
		if err != nil {
			return nil, err
		}
		out[i], out[i+1] = x, y
	}

	layout := g.Layout()
	switch t := g.(type) {
	case *geom.Point:
		return geom.NewPointFlat(layout, out).SetSRID(to.Code), nil

	case *geom.Polygon:
		ends := make([]int, len(t.Ends()))
		copy(ends, t.Ends())
		return geom.NewPolygonFlat(layout, out, ends).SetSRID(to.Code), nil

	case *geom.MultiPolygon:
		src := t.Endss()
		endss := make([][]int, len(src))
		for i, ends := range src {
			endss[i] = make([]int, len(ends))
			copy(endss[i], ends)
		}
		return geom.NewMultiPolygonFlat(layout, out, endss).SetSRID(to.Code), nil

	default:
		return nil, eris.Errorf("crs: cannot reproject geometry type %T", g)
	}
}

// transformPoint routes a single coordinate pair through geographic space.
// All math runs in double precision with no rounding.
func transformPoint(from, to CRS, x, y float64) (float64, float64, error) {
	lon, lat := x, y
	if !from.IsGeographic() {
		lon, lat = from.proj.inverse(x*from.unitToMeter, y*from.unitToMeter)
	}

	if !finite(lon) || !finite(lat) || math.Abs(lat) > 90.0000001 {
		return 0, 0, eris.Wrapf(ErrOutOfDomain, "inverse of (%v, %v) from %s", x, y, from)
	}

	if to.IsGeographic() {
		return lon, lat, nil
	}

	px, py := to.proj.forward(lon, lat)
	if !finite(px) || !finite(py) {
		return 0, 0, eris.Wrapf(ErrOutOfDomain, "(%v, %v) has no image in %s", lon, lat, to)
	}

	return px / to.unitToMeter, py / to.unitToMeter, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
