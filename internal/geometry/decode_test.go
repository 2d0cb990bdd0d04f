package geometry

import (
	"encoding/json"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

func TestPointFromColumns(t *testing.T) {
	g, err := PointFromColumns("-73.9857", "40.7484", 4326)
	require.NoError(t, err)

	p, ok := g.(*geom.Point)
	require.True(t, ok)
	assert.Equal(t, 4326, p.SRID())
	assert.InDelta(t, -73.9857, p.X(), 1e-12)
	assert.InDelta(t, 40.7484, p.Y(), 1e-12)
}

func TestPointFromColumns_NumericTypes(t *testing.T) {
	g, err := PointFromColumns(float64(-74), int64(40), 4326)
	require.NoError(t, err)
	p := g.(*geom.Point)
	assert.Equal(t, -74.0, p.X())
	assert.Equal(t, 40.0, p.Y())
}

func TestPointFromColumns_Missing(t *testing.T) {
	_, err := PointFromColumns(nil, "40.0", 4326)
	assert.ErrorIs(t, err, ErrMissingCoordinate)

	_, err = PointFromColumns("", "40.0", 4326)
	assert.ErrorIs(t, err, ErrMissingCoordinate)

	_, err = PointFromColumns("-74.0", "not a number", 4326)
	assert.ErrorIs(t, err, ErrMissingCoordinate)
}

func TestPointFromColumns_NonFinite(t *testing.T) {
	_, err := PointFromColumns("NaN", "40.0", 4326)
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = PointFromColumns("-74.0", "+Inf", 4326)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestFromGeoJSON_Point(t *testing.T) {
	g, err := FromGeoJSON(json.RawMessage(`{"type":"Point","coordinates":[-73.97,40.78]}`), 4326)
	require.NoError(t, err)

	p := g.(*geom.Point)
	assert.Equal(t, []float64{-73.97, 40.78}, p.FlatCoords())
	assert.Equal(t, 4326, p.SRID())
}

func TestFromGeoJSON_PolygonVerbatim(t *testing.T) {
	raw := json.RawMessage(`{"type":"Polygon","coordinates":[[[-74,40],[-74,41],[-73,41],[-73,40],[-74,40]]]}`)
	g, err := FromGeoJSON(raw, 4326)
	require.NoError(t, err)

	poly := g.(*geom.Polygon)
	require.Equal(t, 1, poly.NumLinearRings())
	assert.Equal(t, []float64{-74, 40, -74, 41, -73, 41, -73, 40, -74, 40}, poly.FlatCoords())
}

func TestFromGeoJSON_MultiPolygon(t *testing.T) {
	raw := json.RawMessage(`{"type":"MultiPolygon","coordinates":[[[[0,0],[0,1],[1,1],[0,0]]],[[[5,5],[5,6],[6,6],[5,5]]]]}`)
	g, err := FromGeoJSON(raw, 4326)
	require.NoError(t, err)

	mp := g.(*geom.MultiPolygon)
	assert.Equal(t, 2, mp.NumPolygons())
}

func TestFromGeoJSON_Unsupported(t *testing.T) {
	_, err := FromGeoJSON(json.RawMessage(`{"type":"LineString","coordinates":[[0,0],[1,1]]}`), 4326)
	assert.ErrorIs(t, err, ErrUnsupportedGeometryType)

	_, err = FromGeoJSON(json.RawMessage(`{"type":"GeometryCollection","geometries":[]}`), 4326)
	assert.ErrorIs(t, err, ErrUnsupportedGeometryType)
}

func TestFromWKT_Point(t *testing.T) {
	g, err := FromWKT("POINT (987654.3 210345.1)", 2263)
	require.NoError(t, err)

	p := g.(*geom.Point)
	assert.Equal(t, 2263, p.SRID())
	assert.InDelta(t, 987654.3, p.X(), 1e-9)
	assert.InDelta(t, 210345.1, p.Y(), 1e-9)
}

func TestFromWKT_Polygon(t *testing.T) {
	g, err := FromWKT("POLYGON ((0 0, 0 10, 10 10, 10 0, 0 0), (2 2, 2 4, 4 4, 2 2))", 4326)
	require.NoError(t, err)

	poly := g.(*geom.Polygon)
	assert.Equal(t, 2, poly.NumLinearRings())
	// Ring closure preserved.
	ring := poly.LinearRing(0).Coords()
	assert.Equal(t, ring[0], ring[len(ring)-1])
}

func TestFromWKT_MultiPolygon(t *testing.T) {
	g, err := FromWKT("MULTIPOLYGON (((0 0, 0 1, 1 1, 0 0)), ((5 5, 5 6, 6 6, 5 5)))", 4326)
	require.NoError(t, err)

	mp := g.(*geom.MultiPolygon)
	assert.Equal(t, 2, mp.NumPolygons())
}

func TestFromWKT_Empty(t *testing.T) {
	g, err := FromWKT("POLYGON EMPTY", 4326)
	require.NoError(t, err)
	assert.True(t, IsEmpty(g))
}

func TestFromWKT_Malformed(t *testing.T) {
	_, err := FromWKT("POLYGON ((0 0, 0 10, 10 10", 4326)
	require.ErrorIs(t, err, ErrMalformedWKT)
	// Offending substring carried for diagnosis.
	assert.Contains(t, err.Error(), "POLYGON ((0 0")

	_, err = FromWKT("PONIT (1 2)", 4326)
	assert.ErrorIs(t, err, ErrMalformedWKT)
}

func TestFromWKT_UnsupportedType(t *testing.T) {
	_, err := FromWKT("LINESTRING (0 0, 1 1)", 4326)
	assert.ErrorIs(t, err, ErrUnsupportedGeometryType)
}

func TestFromShape_Point(t *testing.T) {
	g, err := FromShape(&shp.Point{X: -80.19, Y: 25.77}, 4326)
	require.NoError(t, err)

	p := g.(*geom.Point)
	assert.Equal(t, []float64{-80.19, 25.77}, p.FlatCoords())
}

func TestFromShape_Polygon(t *testing.T) {
	poly := &shp.Polygon{
		NumParts: 1,
		Parts:    []int32{0},
		Points: []shp.Point{
			{X: -80.0, Y: 25.0},
			{X: -80.0, Y: 26.0},
			{X: -79.0, Y: 26.0},
			{X: -79.0, Y: 25.0},
			{X: -80.0, Y: 25.0},
		},
	}

	g, err := FromShape(poly, 4326)
	require.NoError(t, err)

	mp := g.(*geom.MultiPolygon)
	assert.Equal(t, 1, mp.NumPolygons())
	assert.Equal(t, 5, mp.Polygon(0).LinearRing(0).NumCoords())
}

func TestFromShape_Nil(t *testing.T) {
	g, err := FromShape(nil, 4326)
	require.NoError(t, err)
	assert.True(t, IsEmpty(g))
}

func TestFromShape_Unsupported(t *testing.T) {
	_, err := FromShape(&shp.PolyLine{}, 4326)
	assert.ErrorIs(t, err, ErrUnsupportedGeometryType)
}

func TestShapeAndColumnsAgree(t *testing.T) {
	fromShape, err := FromShape(&shp.Point{X: -73.97, Y: 40.78}, 4326)
	require.NoError(t, err)
	fromCols, err := PointFromColumns("-73.97", "40.78", 4326)
	require.NoError(t, err)

	assert.Equal(t, fromCols.FlatCoords(), fromShape.FlatCoords())
	assert.Equal(t, fromCols.SRID(), fromShape.SRID())
}
